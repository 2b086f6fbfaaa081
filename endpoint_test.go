package srpc

import "testing"

func TestEndpointEqual(t *testing.T) {
	a := Endpoint{IP: [4]byte{10, 0, 0, 1}, Port: 9000, Subport: 7}
	b := Endpoint{IP: [4]byte{10, 0, 0, 1}, Port: 9000, Subport: 7}
	c := Endpoint{IP: [4]byte{10, 0, 0, 1}, Port: 9000, Subport: 8}
	if !a.Equal(b) {
		t.Error("identical endpoints should be equal")
	}
	if a.Equal(c) {
		t.Error("endpoints differing only in subport should not be equal")
	}
}

func TestEndpointHashInRange(t *testing.T) {
	ep := Endpoint{IP: [4]byte{192, 168, 1, 1}, Port: 5000, Subport: 0x1234}
	const buckets = 31
	h := ep.hash(buckets)
	if h < 0 || h >= buckets {
		t.Fatalf("hash() = %d, want in [0,%d)", h, buckets)
	}
}

func TestEndpointHashDeterministic(t *testing.T) {
	ep := Endpoint{IP: [4]byte{192, 168, 1, 1}, Port: 5000, Subport: 0x1234}
	if ep.hash(31) != ep.hash(31) {
		t.Error("hash() should be deterministic for the same endpoint")
	}
}

func TestSubportAllocatorUnique(t *testing.T) {
	a := newSubportAllocator()
	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		sp := a.next()
		if seen[sp] {
			t.Fatalf("subport %08x reused within a single allocator's lifetime", sp)
		}
		seen[sp] = true
	}
}

func TestSubportAllocatorWraps(t *testing.T) {
	a := newSubportAllocator()
	a.counter = 0x7fff
	next := a.next()
	if next&0xffff != 1 {
		t.Errorf("counter should wrap to 1 past 0x7fff, got low bits %x", next&0xffff)
	}
}
