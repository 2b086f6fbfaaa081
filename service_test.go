package srpc

import (
	"testing"
	"time"
)

func TestServiceEnqueueDequeueFIFO(t *testing.T) {
	s := newService("Echo")
	s.enqueue(pendingCall{seqno: 1, data: []byte("first")})
	s.enqueue(pendingCall{seqno: 2, data: []byte("second")})

	pc, ok := s.dequeue()
	if !ok || string(pc.data) != "first" {
		t.Fatalf("dequeue() = %+v, ok=%v, want \"first\"", pc, ok)
	}
	pc, ok = s.dequeue()
	if !ok || string(pc.data) != "second" {
		t.Fatalf("dequeue() = %+v, ok=%v, want \"second\"", pc, ok)
	}
}

func TestServiceDequeueBlocksUntilEnqueue(t *testing.T) {
	s := newService("Echo")
	done := make(chan pendingCall, 1)
	go func() {
		pc, _ := s.dequeue()
		done <- pc
	}()

	time.Sleep(10 * time.Millisecond)
	s.enqueue(pendingCall{data: []byte("late")})

	select {
	case pc := <-done:
		if string(pc.data) != "late" {
			t.Errorf("dequeue() data = %q, want %q", pc.data, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake on enqueue")
	}
}

func TestServiceCloseUnblocksDequeue(t *testing.T) {
	s := newService("Echo")
	done := make(chan bool, 1)
	go func() {
		_, ok := s.dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	s.close()

	select {
	case ok := <-done:
		if ok {
			t.Error("dequeue() ok = true after close, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake on close")
	}
}

func TestSTableOfferDuplicateRejected(t *testing.T) {
	cfg := DefaultConfig()
	st := newSTable(&cfg)
	if _, err := st.offer("Echo"); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if _, err := st.offer("Echo"); err == nil {
		t.Error("expected ErrDuplicateOffer on second offer")
	}
}

func TestSTableWithdrawUnknown(t *testing.T) {
	cfg := DefaultConfig()
	st := newSTable(&cfg)
	if err := st.withdraw("Nope"); err == nil {
		t.Error("expected ErrUnknownService withdrawing an unoffered name")
	}
}
