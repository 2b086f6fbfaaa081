package srpc

import "time"

// timerTask sweeps every live connection once per tick, retransmitting
// unacknowledged payloads on their backoff schedule, pinging idle
// connections, and purging ones that have exhausted their liveness budget.
// Reshaped into a time.Ticker loop matching the launch-and-tick pattern
// used elsewhere for a long-running background goroutine.
func (e *Engine) timerTask() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

func (e *Engine) sweep() {
	e.ct.Lock()
	defer e.ct.Unlock()

	for _, c := range e.ct.all() {
		switch classify(c) {
		case sweepRetry:
			e.send(c.ep, c.outbound)
		case sweepTimeout:
			c.setState(stateTimedOut)
		case sweepPing:
			e.send(c.ep, buildControl(c.ep.Subport, opPing, c.seqno, 1, 1))
		case sweepPurge:
			e.ct.remove(c)
		}
	}
}
