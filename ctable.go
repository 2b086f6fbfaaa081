package srpc

import (
	"sync"
)

// ctable is the dual-indexed connection table: every conn is reachable both
// by the endpoint that owns it and by its locally-generated connection id.
// A single mutex guards both indexes and is shared as the Locker behind
// every conn's sync.Cond, mirroring the coarse single-lock design of the
// source's ctable (one pthread_mutex_t shared by every CRecord's
// pthread_cond_t).
type ctable struct {
	mu sync.Mutex

	byEndpoint map[Endpoint]*conn
	byID       map[uint32]*conn

	nextID uint32
	cfg    *Config
}

func newCTable(cfg *Config) *ctable {
	return &ctable{
		byEndpoint: make(map[Endpoint]*conn, cfg.CTableBuckets),
		byID:       make(map[uint32]*conn, cfg.CTableBuckets),
		nextID:     cfg.MinConnID,
		cfg:        cfg,
	}
}

// Lock/Unlock let ctable itself serve as the sync.Locker behind every conn's
// condition variable.
func (t *ctable) Lock()   { t.mu.Lock() }
func (t *ctable) Unlock() { t.mu.Unlock() }

// newConnID allocates the next connection id, wrapping from MaxConnID back
// to MinConnID, skipping any id still in use. The caller must hold t.
func (t *ctable) newConnID() uint32 {
	for {
		id := t.nextID
		t.nextID++
		if t.nextID > t.cfg.MaxConnID {
			t.nextID = t.cfg.MinConnID
		}
		if _, busy := t.byID[id]; !busy {
			return id
		}
	}
}

// insert creates and indexes a new conn for ep, assigning it a fresh
// connection id. The caller must hold t.
func (t *ctable) insert(ep Endpoint, seqno uint32) *conn {
	c := newConn(t.cfg, t, ep, t.newConnID(), seqno)
	t.byEndpoint[ep] = c
	t.byID[c.id] = c
	return c
}

// lookupEndpoint returns the conn for ep, if any. The caller must hold t.
func (t *ctable) lookupEndpoint(ep Endpoint) (*conn, bool) {
	c, ok := t.byEndpoint[ep]
	return c, ok
}

// lookupID returns the conn for connection id, if any. The caller must hold t.
func (t *ctable) lookupID(id uint32) (*conn, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// remove drops c from both indexes, marks it TIMEDOUT and wakes anyone
// still waiting on its state, so blocked callers observe removal instead of
// hanging forever. The caller must hold t.
func (t *ctable) remove(c *conn) {
	delete(t.byEndpoint, c.ep)
	delete(t.byID, c.id)
	c.state = stateTimedOut
	c.cond.Broadcast()
}

// all returns a snapshot slice of every live conn, for the timer task's
// sweep. The caller must hold t.
func (t *ctable) all() []*conn {
	out := make([]*conn, 0, len(t.byID))
	for _, c := range t.byID {
		out = append(out, c)
	}
	return out
}

// sweepAction classifies what the timer task should do with a conn on one
// tick of the 20ms clock, grounded on the source's ctable_scan.
type sweepAction int

const (
	sweepNone sweepAction = iota
	sweepRetry
	sweepTimeout
	sweepPing
	sweepPurge
)

// classify advances c's retry/liveness countdown by one tick and reports
// what the timer task should do as a result. The caller must hold the
// ctable lock (the same lock guarding c).
func classify(c *conn) sweepAction {
	if c.state == stateTimedOut {
		return sweepPurge
	}

	if c.state.retrySent() {
		c.ticksLeft--
		if c.ticksLeft <= 0 {
			if c.attemptsLeft <= 1 {
				return sweepTimeout
			}
			c.attemptsLeft--
			c.ticks *= 2
			c.ticksLeft = c.ticks
			return sweepRetry
		}
		return sweepNone
	}

	// Liveness applies to every other non-terminal state: idle, awaiting a
	// peer's next message, or mid-assembly — anything that isn't already
	// counting down its own retry.
	c.ticksUntilPing--
	if c.ticksUntilPing <= 0 {
		c.pingsUntilPurge--
		if c.pingsUntilPurge <= 0 {
			return sweepPurge
		}
		c.ticksUntilPing = c.cfg.TicksBetweenPings
		return sweepPing
	}
	return sweepNone
}
