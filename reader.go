package srpc

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// readerTask blocks on the socket, decoding and dispatching one datagram at
// a time. It is the Go counterpart of the source's reader() thread; unlike
// the source, shutdown is driven by closing the socket rather than a
// thread cancellation point.
func (e *Engine) readerTask() {
	defer e.wg.Done()
	buf := make([]byte, e.cfg.ReceiveBufferSize)
	for {
		n, addr, err := e.pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.stopCh:
				return
			default:
				e.log.WithError(err).Warn("reader: read failed")
				return
			}
		}
		e.dispatch(addr, append([]byte(nil), buf[:n]...))
	}
}

func peerIP(addr net.Addr) ([4]byte, uint16) {
	udp, ok := addr.(*net.UDPAddr)
	if !ok {
		return [4]byte{}, 0
	}
	v4 := udp.IP.To4()
	if v4 == nil {
		return [4]byte{}, uint16(udp.Port)
	}
	return [4]byte{v4[0], v4[1], v4[2], v4[3]}, uint16(udp.Port)
}

func (e *Engine) dispatch(addr net.Addr, raw []byte) {
	hdr, err := decodePayloadHeader(raw)
	if err != nil || !hdr.command.valid() {
		e.log.WithField("peer", addr.String()).Debug("reader: malformed or unknown opcode, dropping")
		return
	}
	ip, port := peerIP(addr)
	ep := Endpoint{IP: ip, Port: port, Subport: hdr.subport}

	e.ct.Lock()
	defer e.ct.Unlock()

	c, found := e.ct.lookupEndpoint(ep)

	switch hdr.command {
	case opConnect:
		e.onConnect(ep, hdr, raw, c, found)
	case opCACK:
		if found && hdr.seqno == c.seqno {
			c.setState(stateIdle)
		}
	case opQuery:
		e.onQuery(ep, hdr, raw, c, found)
	case opQACK:
		if found && hdr.seqno == c.seqno {
			c.setState(stateAwaitingResponse)
		}
	case opResponse:
		e.onResponse(ep, hdr, raw, c, found)
	case opRACK:
		if found && hdr.seqno == c.seqno {
			c.setState(stateIdle)
		}
	case opDisconnect:
		e.send(ep, buildControl(hdr.subport, opDACK, hdr.seqno, 1, 1))
		if found {
			c.setState(stateTimedOut)
		}
	case opDACK:
		if found && hdr.seqno == c.seqno {
			c.setState(stateTimedOut)
		}
	case opFragment:
		e.onFragment(ep, hdr, raw, c, found)
	case opFACK:
		if found && hdr.seqno == c.seqno && c.state == stateFragmentSent && hdr.fnum == c.lastFrag {
			c.setState(stateFackReceived)
		}
	case opPing:
		if found {
			e.send(ep, buildControl(hdr.subport, opPACK, hdr.seqno, 1, 1))
		}
	case opPACK:
		if found {
			c.resetLiveness()
		}
	case opSeqno:
		e.onSeqno(ep, hdr, c, found)
	case opSACK:
		if found && c.state == stateSeqnoSent {
			c.setState(stateIdle)
		}
	}
}

func (e *Engine) onConnect(ep Endpoint, hdr payloadHeader, raw []byte, c *conn, found bool) {
	name, err := decodeConnectServiceName(raw)
	if err != nil {
		return
	}
	svc, ok := e.st.lookup(name)
	if !ok {
		return
	}

	isNew := false
	if !found {
		c = e.ct.insert(ep, hdr.seqno)
		isNew = true
	} else if c.state != stateIdle {
		log.WithField("endpoint", ep.String()).Debug("reader: CONNECT retransmit while busy")
	}

	if isNew || c.state == stateIdle {
		if isNew {
			pl := buildControl(hdr.subport, opCACK, hdr.seqno, 1, 1)
			c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
		}
		c.svc = svc
		e.send(c.ep, c.outbound)
		c.setState(stateIdle)
	}
}

func (e *Engine) onQuery(ep Endpoint, hdr payloadHeader, raw []byte, c *conn, found bool) {
	if !found {
		return
	}
	const (
		illegal = iota
		fresh
		stale
	)
	accept := illegal
	var body []byte

	switch {
	case hdr.seqno-c.seqno == 1 && (c.state == stateIdle || c.state == stateResponseSent):
		accept = fresh
		c.seqno = hdr.seqno
		body = raw[payloadHeaderSize+dataHeaderSize:]
	case hdr.seqno == c.seqno && c.state == stateFackSent && hdr.fnum-c.lastFrag == 1 && hdr.fnum == hdr.nfrags:
		accept = fresh
		dh, err := decodeDataHeader(raw[payloadHeaderSize:])
		if err != nil {
			return
		}
		chunk := raw[payloadHeaderSize+dataHeaderSize:]
		if err := c.asm.Put(e.cfg.FragmentSize, hdr.fnum, chunk); err != nil {
			return
		}
		body = append([]byte(nil), c.asm.Bytes()[:dh.tlen]...)
		c.asm = nil
	case hdr.seqno == c.seqno && (c.state == stateQackSent || c.state == stateResponseSent):
		accept = stale
	}

	switch accept {
	case fresh:
		pl := buildControl(hdr.subport, opQACK, hdr.seqno, hdr.fnum, hdr.nfrags)
		c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
		e.send(c.ep, pl)
		if c.svc != nil {
			c.svc.enqueue(pendingCall{ep: c.ep, connID: c.id, seqno: hdr.seqno, data: body})
		}
		c.setState(stateQackSent)
	case stale:
		e.send(c.ep, c.outbound)
		c.setState(c.state)
	}
}

func (e *Engine) onFragment(ep Endpoint, hdr payloadHeader, raw []byte, c *conn, found bool) {
	if !found {
		return
	}
	dh, err := decodeDataHeader(raw[payloadHeaderSize:])
	if err != nil {
		return
	}
	chunk := raw[payloadHeaderSize+dataHeaderSize:]

	isQuery := (c.state == stateIdle || c.state == stateResponseSent) && hdr.seqno-c.seqno == 1 && hdr.fnum == 1
	isReply := (c.state == stateQuerySent || c.state == stateAwaitingResponse) && hdr.seqno == c.seqno && hdr.fnum == 1

	const (
		illegal = iota
		fresh
		stale
	)
	accept := illegal

	switch {
	case isQuery || isReply:
		accept = fresh
		c.seqno = hdr.seqno
		c.beginAssembly(dh.tlen)
		if err := c.asm.Put(e.cfg.FragmentSize, hdr.fnum, chunk); err != nil {
			return
		}
		c.lastFrag = hdr.fnum
	case hdr.seqno == c.seqno && c.state == stateFackSent && hdr.fnum-c.lastFrag == 1:
		accept = fresh
		if err := c.asm.Put(e.cfg.FragmentSize, hdr.fnum, chunk); err != nil {
			return
		}
		c.lastFrag = hdr.fnum
	case hdr.seqno == c.seqno && c.state == stateFackSent && hdr.fnum == c.lastFrag:
		accept = stale
	}

	switch accept {
	case fresh:
		pl := buildControl(hdr.subport, opFACK, hdr.seqno, hdr.fnum, hdr.nfrags)
		c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
		e.send(c.ep, pl)
		c.setState(stateFackSent)
	case stale:
		e.send(c.ep, c.outbound)
		c.setState(c.state)
	}
}

func (e *Engine) onResponse(ep Endpoint, hdr payloadHeader, raw []byte, c *conn, found bool) {
	if !found || hdr.seqno != c.seqno {
		return
	}
	dh, err := decodeDataHeader(raw[payloadHeaderSize:])
	if err != nil {
		return
	}
	chunk := raw[payloadHeaderSize+dataHeaderSize:]

	switch {
	case c.state == stateQuerySent || c.state == stateAwaitingResponse:
		c.beginAssembly(dh.tlen)
		if err := c.asm.Put(e.cfg.FragmentSize, hdr.fnum, chunk); err != nil {
			return
		}
	case c.state == stateFackSent && hdr.fnum-c.lastFrag == 1 && hdr.fnum == hdr.nfrags:
		if err := c.asm.Put(e.cfg.FragmentSize, hdr.fnum, chunk); err != nil {
			return
		}
		c.lastFrag = hdr.fnum
	default:
		return
	}

	pl := buildControl(hdr.subport, opRACK, hdr.seqno, hdr.fnum, hdr.nfrags)
	c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
	e.send(c.ep, pl)
	c.response = append([]byte(nil), c.asm.Bytes()...)
	c.asm = nil
	c.setState(stateIdle)
}

func (e *Engine) onSeqno(ep Endpoint, hdr payloadHeader, c *conn, found bool) {
	if !found {
		return
	}
	if c.state == stateIdle || c.state == stateResponseSent {
		pl := buildControl(hdr.subport, opSACK, hdr.seqno, 1, 1)
		c.setPayload(pl, e.cfg.Attempts, e.cfg.InitialTicks)
		e.send(c.ep, pl)
		c.seqno = hdr.seqno
		c.setState(stateIdle)
	}
}
