package srpc

import (
	"sync"
	"testing"
	"time"
)

func testConn() (*conn, *sync.Mutex) {
	var mu sync.Mutex
	cfg := DefaultConfig()
	c := newConn(&cfg, &mu, Endpoint{Port: 9000}, 1, 0)
	return c, &mu
}

func TestConnSetStateResetsLiveness(t *testing.T) {
	c, mu := testConn()
	mu.Lock()
	c.ticksUntilPing = 1
	c.pingsUntilPurge = 1
	c.setState(stateIdle)
	mu.Unlock()

	if c.ticksUntilPing != c.cfg.TicksBetweenPings {
		t.Errorf("ticksUntilPing = %d, want %d", c.ticksUntilPing, c.cfg.TicksBetweenPings)
	}
	if c.pingsUntilPurge != c.cfg.PingsBeforePurge {
		t.Errorf("pingsUntilPurge = %d, want %d", c.pingsUntilPurge, c.cfg.PingsBeforePurge)
	}
}

func TestConnWaitForStatesWakesOnBroadcast(t *testing.T) {
	c, mu := testConn()
	mu.Lock()
	c.state = stateConnectSent
	mu.Unlock()

	done := make(chan connState, 1)
	go func() {
		mu.Lock()
		defer mu.Unlock()
		done <- c.waitForStates(stateIdle, stateTimedOut)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	c.setState(stateIdle)
	mu.Unlock()

	select {
	case got := <-done:
		if got != stateIdle {
			t.Errorf("waitForStates() = %v, want IDLE", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waitForStates did not wake on Broadcast")
	}
}

func TestConnRetrySentStates(t *testing.T) {
	retrying := []connState{stateConnectSent, stateQuerySent, stateResponseSent,
		stateDisconnectSent, stateFragmentSent, stateSeqnoSent}
	for _, s := range retrying {
		if !s.retrySent() {
			t.Errorf("%v should be a retry-sent state", s)
		}
	}
	notRetrying := []connState{stateIdle, stateAwaitingResponse, stateTimedOut,
		stateFackReceived, stateFragmentReceived, stateFackSent, stateQackSent}
	for _, s := range notRetrying {
		if s.retrySent() {
			t.Errorf("%v should not be a retry-sent state", s)
		}
	}
}
