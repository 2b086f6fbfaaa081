// Package srpc implements a simple, reliable, at-most-once request/response
// RPC system carried over UDP. A single Engine owns one UDP socket, a
// reader goroutine that decodes and dispatches every inbound datagram, and
// a timer goroutine that retries unacknowledged datagrams on an
// exponential backoff and probes idle connections for liveness.
package srpc

import (
	"fmt"
	"net"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Engine is one bound SRPC endpoint: the UDP socket, the connection and
// service tables, and the reader/timer goroutines driving them.
type Engine struct {
	log *log.Entry

	mu       sync.Mutex // guards pc, hostname, hostIP/hostPort while Reinit rebinds
	cfg      Config
	pc       net.PacketConn
	hostIP   [4]byte
	hostPort uint16
	hostname string

	sp *subportAllocator

	ct *ctable
	st *stable

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// Init binds a UDP socket on port (0 picks an ephemeral port), starts the
// reader and timer goroutines, and returns the running Engine. An optional
// Config overrides DefaultConfig.
func Init(port uint16, overrides ...Config) (*Engine, error) {
	cfg := DefaultConfig()
	if len(overrides) > 0 {
		cfg = overrides[0]
	}

	e := &Engine{
		log: newDefaultLogger(),
		cfg: cfg,
		sp:  newSubportAllocator(),
	}
	e.ct = newCTable(&e.cfg)
	e.st = newSTable(&e.cfg)
	if err := e.bind(port); err != nil {
		return nil, err
	}
	e.startTasks()
	return e, nil
}

func (e *Engine) bind(port uint16) error {
	pc, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	e.pc = pc

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	e.hostname = hostname
	ip, err := localIPv4(hostname)
	if err != nil {
		ip = [4]byte{127, 0, 0, 1}
	}
	e.hostIP = ip
	e.hostPort = uint16(pc.LocalAddr().(*net.UDPAddr).Port)
	return nil
}

func localIPv4(hostname string) ([4]byte, error) {
	var zero [4]byte
	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return zero, err
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			return [4]byte{v4[0], v4[1], v4[2], v4[3]}, nil
		}
	}
	return zero, fmt.Errorf("srpc: no IPv4 address found for %s", hostname)
}

func (e *Engine) startTasks() {
	e.stopCh = make(chan struct{})
	e.wg.Add(2)
	go e.readerTask()
	go e.timerTask()
}

// Details reports this engine's resolved host address and bound port, the
// analogue of obtaining our ip address and port number.
func (e *Engine) Details() (ipaddr string, port uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("%d.%d.%d.%d", e.hostIP[0], e.hostIP[1], e.hostIP[2], e.hostIP[3]), e.hostPort
}

// ReverseLookup resolves ipaddr to a fully-qualified hostname, falling
// back to ipaddr itself when no PTR record is found.
func ReverseLookup(ipaddr string) string {
	names, err := net.LookupAddr(ipaddr)
	if err != nil || len(names) == 0 {
		return ipaddr
	}
	return names[0]
}

// Suspend locks the connection table, pausing the reader and timer
// goroutines until Resume is called, mirroring rpc_suspend/rpc_resume's use
// around a fork() snapshot. That idiom assumed the child process held its
// own copy of the table post-fork; a single Go process has no such copy, so
// Suspend followed by Reinit in the same process is unsafe (see Reinit).
func (e *Engine) Suspend() {
	e.ct.Lock()
}

// Resume releases the lock taken by Suspend.
func (e *Engine) Resume() {
	e.ct.Unlock()
}

// Reinit purges the connection table, closes the current socket, and binds
// a fresh one on port, restarting the reader and timer goroutines.
//
// This does not port cleanly from the fork-based original: the reader and
// timer goroutines may be blocked inside ctable.Lock waiting on the very
// mutex Suspend holds, and overwriting e.ct.mu out from under them here
// corrupts that mutex's state instead of releasing it, so a Suspend→Reinit
// call in one live process can deadlock or panic rather than restart
// cleanly. Reinit is only safe to call once Shutdown has stopped both
// goroutines.
func (e *Engine) Reinit(port uint16) error {
	e.ct.mu = sync.Mutex{}
	e.ct.byEndpoint = make(map[Endpoint]*conn)
	e.ct.byID = make(map[uint32]*conn)

	if e.pc != nil {
		e.pc.Close()
	}
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	e.wg.Wait()

	e.mu.Lock()
	err := e.bind(port)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.startTasks()
	return nil
}

// Shutdown stops the reader and timer goroutines and closes the socket.
func (e *Engine) Shutdown() {
	close(e.stopCh)
	if e.pc != nil {
		e.pc.Close()
	}
	e.wg.Wait()
}

// send transmits payload (already wire-encoded, including the shared
// connection subport in its header) to ep's address.
func (e *Engine) send(ep Endpoint, payload []byte) error {
	addr := &net.UDPAddr{IP: net.IPv4(ep.IP[0], ep.IP[1], ep.IP[2], ep.IP[3]), Port: int(ep.Port)}
	_, err := e.pc.WriteTo(payload, addr)
	if err != nil {
		e.log.WithError(err).WithField("endpoint", ep.String()).Warn("send failed")
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return nil
}
