package srpc

import (
	"sync"

	"github.com/go-srpc/srpc/internal/ring"
)

// connState is one node of the per-connection state machine driven by
// reader.go and timer.go.
type connState uint8

const (
	stateIdle connState = iota + 1
	stateQackSent
	stateResponseSent
	stateConnectSent
	stateQuerySent
	stateAwaitingResponse
	stateTimedOut
	stateDisconnectSent
	stateFragmentSent
	stateFackReceived
	stateFragmentReceived
	stateFackSent
	stateSeqnoSent
)

var stateNames = map[connState]string{
	stateIdle:              "IDLE",
	stateQackSent:          "QACK_SENT",
	stateResponseSent:      "RESPONSE_SENT",
	stateConnectSent:       "CONNECT_SENT",
	stateQuerySent:         "QUERY_SENT",
	stateAwaitingResponse:  "AWAITING_RESPONSE",
	stateTimedOut:          "TIMEDOUT",
	stateDisconnectSent:    "DISCONNECT_SENT",
	stateFragmentSent:      "FRAGMENT_SENT",
	stateFackReceived:      "FACK_RECEIVED",
	stateFragmentReceived:  "FRAGMENT_RECEIVED",
	stateFackSent:          "FACK_SENT",
	stateSeqnoSent:         "SEQNO_SENT",
}

func (s connState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// retrySent reports whether s is one of the *_SENT states the timer task
// retries on a backoff schedule.
func (s connState) retrySent() bool {
	switch s {
	case stateConnectSent, stateQuerySent, stateResponseSent,
		stateDisconnectSent, stateFragmentSent, stateSeqnoSent:
		return true
	default:
		return false
	}
}

// conn is one CRecord: per-peer state, the single outbound payload
// awaiting acknowledgement, and (while reassembling) the inbound fragment
// buffer. Every field is guarded by the owning CTable's mutex; conn never
// locks on its own.
type conn struct {
	cond *sync.Cond // shares the CTable's mutex; Broadcast on every state change

	ep    Endpoint
	id    uint32
	seqno uint32
	state connState

	svc *service // back-reference to the offered service, server side only

	// retry slot: at most one outbound payload awaiting ACK at a time.
	outbound       []byte
	attemptsLeft   int
	ticks          int
	ticksLeft      int

	// assembly buffer: non-nil only while reassembling a multi-fragment
	// request or response.
	asm *ring.Assembly

	// lastFrag is the fragment ordinal of the last piece we sent (while
	// awaiting its FACK) or the last piece we accepted into asm (while
	// reassembling an inbound message) — the two never overlap because
	// the connection state determines which role applies.
	lastFrag uint8

	// response holds a fully reassembled inbound RESPONSE until the
	// blocked Call retrieves it.
	response []byte

	// liveness.
	ticksUntilPing  int
	pingsUntilPurge int

	cfg *Config
}

func newConn(cfg *Config, mu sync.Locker, ep Endpoint, id uint32, seqno uint32) *conn {
	return &conn{
		cond:  sync.NewCond(mu),
		ep:    ep,
		id:    id,
		seqno: seqno,
		cfg:   cfg,
	}
}

// setState transitions the record, resets the liveness counters (a fresh
// state change counts as activity), and wakes every caller blocked on this
// record waiting for its state to change — mirroring crecord_setState.
func (c *conn) setState(s connState) {
	c.state = s
	c.ticksUntilPing = c.cfg.TicksBetweenPings
	c.pingsUntilPurge = c.cfg.PingsBeforePurge
	c.cond.Broadcast()
}

// resetLiveness treats a PACK as a successful liveness probe without
// touching state.
func (c *conn) resetLiveness() {
	c.ticksUntilPing = c.cfg.TicksBetweenPings
	c.pingsUntilPurge = c.cfg.PingsBeforePurge
}

// setPayload buffers pl as the record's single outbound payload awaiting
// ACK, retiring whatever was buffered before it.
func (c *conn) setPayload(pl []byte, attempts, ticks int) {
	c.outbound = pl
	c.attemptsLeft = attempts
	c.ticks = ticks
	c.ticksLeft = ticks
}

// waitForStates blocks (releasing the CTable lock, which the caller must
// already hold) until the record's state matches one of want, then returns
// that state. The caller re-holds the lock on return.
func (c *conn) waitForStates(want ...connState) connState {
	for {
		for _, s := range want {
			if c.state == s {
				return s
			}
		}
		c.cond.Wait()
	}
}

// beginAssembly allocates a fresh reassembly buffer for an inbound
// multi-fragment message of the given total length.
func (c *conn) beginAssembly(total uint16) {
	c.asm = ring.New(total)
}
