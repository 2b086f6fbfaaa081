package srpc

import (
	"fmt"
	"net"
)

// Connection is a client-held handle returned by Connect, analogous to the
// opaque RpcConnection handle of the original interface but backed by the
// connection's locally-generated id rather than a cast pointer.
type Connection struct {
	eng *Engine
	id  uint32
}

// Service is a server-held handle returned by Offer.
type Service struct {
	eng *Engine
	s   *service
}

// QueryHandle identifies the caller a Service.Query call returned data for,
// to be passed back to Service.Response.
type QueryHandle struct {
	ep     Endpoint
	connID uint32
	seqno  uint32
}

func resolveIPv4(host string) ([4]byte, error) {
	var zero [4]byte
	ips, err := net.LookupIP(host)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return [4]byte{v4[0], v4[1], v4[2], v4[3]}, nil
		}
	}
	return zero, fmt.Errorf("%w: no IPv4 address for %s", ErrTransportFailure, host)
}

// Connect sends CONNECT to host:port, requesting svcName, and blocks until
// the peer accepts (CACK) or every retry attempt is exhausted.
func (e *Engine) Connect(host string, port uint16, svcName string, seqno uint32) (*Connection, error) {
	ip, err := resolveIPv4(host)
	if err != nil {
		return nil, err
	}

	e.ct.Lock()
	defer e.ct.Unlock()

	sp := e.sp.next()
	ep := Endpoint{IP: ip, Port: port, Subport: sp}
	c := e.ct.insert(ep, seqno)

	pl := buildConnect(sp, seqno, svcName)
	c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
	if err := e.send(ep, pl); err != nil {
		e.ct.remove(c)
		return nil, err
	}
	c.setState(stateConnectSent)

	if final := c.waitForStates(stateIdle, stateTimedOut); final == stateTimedOut {
		e.ct.remove(c)
		return nil, ErrTimeout
	}
	return &Connection{eng: e, id: c.id}, nil
}

// Call sends query, splitting it into fragments when it exceeds the
// configured fragment size, and blocks until the full response has been
// reassembled. maxResponseSize bounds the buffer conn.Call's original
// caller declared; a response larger than it yields ErrBufferTooSmall
// instead of being truncated.
func (conn *Connection) Call(query []byte, maxResponseSize int) ([]byte, error) {
	e := conn.eng
	cfg := &e.cfg

	e.ct.Lock()
	defer e.ct.Unlock()

	c, ok := e.ct.lookupID(conn.id)
	if !ok {
		return nil, ErrNotConnected
	}
	ep := c.ep

	if c.state != stateIdle {
		return nil, fmt.Errorf("%w: connection busy", ErrProtocolViolation)
	}

	if c.seqno >= cfg.SeqnoLimit {
		c.seqno = cfg.SeqnoStart
		pl := buildControl(ep.Subport, opSeqno, cfg.SeqnoStart, 1, 1)
		c.setPayload(pl, cfg.Attempts, cfg.InitialTicks)
		if err := e.send(ep, pl); err != nil {
			return nil, err
		}
		c.setState(stateSeqnoSent)
		if final := c.waitForStates(stateIdle, stateTimedOut); final == stateTimedOut {
			return nil, ErrTimeout
		}
	}

	c.seqno++
	seqno := c.seqno
	nfrags := fragmentCount(len(query), cfg.FragmentSize)

	for fnum := 1; fnum < nfrags; fnum++ {
		start, end := fragmentBounds(fnum, len(query), cfg.FragmentSize)
		pl := buildFragment(ep.Subport, opFragment, seqno, uint8(fnum), uint8(nfrags), uint16(len(query)), query[start:end])
		c.lastFrag = uint8(fnum)
		c.setPayload(pl, cfg.Attempts, cfg.InitialTicks)
		if err := e.send(ep, pl); err != nil {
			return nil, err
		}
		c.setState(stateFragmentSent)
		if final := c.waitForStates(stateFackReceived, stateTimedOut); final == stateTimedOut {
			return nil, ErrTimeout
		}
	}

	lastFnum := nfrags
	start, end := fragmentBounds(lastFnum, len(query), cfg.FragmentSize)
	pl := buildFragment(ep.Subport, opQuery, seqno, uint8(lastFnum), uint8(nfrags), uint16(len(query)), query[start:end])
	c.setPayload(pl, cfg.Attempts, cfg.InitialTicks)
	if err := e.send(ep, pl); err != nil {
		return nil, err
	}
	c.setState(stateQuerySent)

	if final := c.waitForStates(stateIdle, stateTimedOut); final == stateTimedOut {
		return nil, ErrTimeout
	}

	resp := c.response
	c.response = nil
	if len(resp) > maxResponseSize {
		return nil, ErrBufferTooSmall
	}
	return resp, nil
}

// Disconnect sends DISCONNECT and returns immediately without waiting for
// DACK; the source comments out that wait, so idiomatic callers treat
// disconnect as fire-and-forget too.
func (conn *Connection) Disconnect() {
	e := conn.eng
	e.ct.Lock()
	defer e.ct.Unlock()

	c, ok := e.ct.lookupID(conn.id)
	if !ok {
		return
	}
	pl := buildControl(c.ep.Subport, opDisconnect, c.seqno, 1, 1)
	c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
	e.send(c.ep, pl)
	c.setState(stateDisconnectSent)
}

// Offer registers svcName as servable by this process.
func (e *Engine) Offer(svcName string) (*Service, error) {
	s, err := e.st.offer(svcName)
	if err != nil {
		return nil, err
	}
	return &Service{eng: e, s: s}, nil
}

// Withdraw stops offering svc, unblocking any in-flight Query call.
func (svc *Service) Withdraw() error {
	return svc.eng.st.withdraw(svc.s.name)
}

// Query blocks until a caller's request arrives, returning it along with a
// handle to pass to Response. maxLen bounds the request size the caller
// declared; an oversized request yields ErrBufferTooSmall.
func (svc *Service) Query(maxLen int) (QueryHandle, []byte, error) {
	pc, ok := svc.s.dequeue()
	if !ok {
		return QueryHandle{}, nil, ErrShutdown
	}
	if len(pc.data) > maxLen {
		return QueryHandle{}, nil, ErrBufferTooSmall
	}
	return QueryHandle{ep: pc.ep, connID: pc.connID, seqno: pc.seqno}, pc.data, nil
}

// Response sends resp back to the caller identified by h, fragmenting it
// when it exceeds the configured fragment size.
func (svc *Service) Response(h QueryHandle, resp []byte) error {
	e := svc.eng
	cfg := &e.cfg

	e.ct.Lock()
	defer e.ct.Unlock()

	c, ok := e.ct.lookupEndpoint(h.ep)
	if !ok || c.state != stateQackSent {
		return ErrNotConnected
	}

	nfrags := fragmentCount(len(resp), cfg.FragmentSize)
	for fnum := 1; fnum < nfrags; fnum++ {
		start, end := fragmentBounds(fnum, len(resp), cfg.FragmentSize)
		pl := buildFragment(h.ep.Subport, opFragment, c.seqno, uint8(fnum), uint8(nfrags), uint16(len(resp)), resp[start:end])
		c.lastFrag = uint8(fnum)
		c.setPayload(pl, cfg.Attempts, cfg.InitialTicks)
		if err := e.send(h.ep, pl); err != nil {
			return err
		}
		c.setState(stateFragmentSent)
		if final := c.waitForStates(stateFackReceived, stateTimedOut); final == stateTimedOut {
			return ErrTimeout
		}
	}

	lastFnum := nfrags
	start, end := fragmentBounds(lastFnum, len(resp), cfg.FragmentSize)
	pl := buildFragment(h.ep.Subport, opResponse, c.seqno, uint8(lastFnum), uint8(nfrags), uint16(len(resp)), resp[start:end])
	c.setPayload(pl, cfg.Attempts, cfg.InitialTicks)
	if err := e.send(h.ep, pl); err != nil {
		return err
	}
	c.setState(stateResponseSent)
	return nil
}
