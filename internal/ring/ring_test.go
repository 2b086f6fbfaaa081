package ring

import "testing"

func TestAssemblySingleFragment(t *testing.T) {
	a := New(5)
	if err := a.Put(1024, 1, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := string(a.Bytes()); got != "hello" {
		t.Errorf("Bytes() = %q, want %q", got, "hello")
	}
	if a.LastFrag() != 1 {
		t.Errorf("LastFrag() = %d, want 1", a.LastFrag())
	}
}

func TestAssemblyMultipleFragments(t *testing.T) {
	const fragSize = 4
	a := New(10)
	if err := a.Put(fragSize, 1, []byte("abcd")); err != nil {
		t.Fatalf("Put frag 1: %v", err)
	}
	if err := a.Put(fragSize, 2, []byte("efgh")); err != nil {
		t.Fatalf("Put frag 2: %v", err)
	}
	if err := a.Put(fragSize, 3, []byte("ij")); err != nil {
		t.Fatalf("Put frag 3: %v", err)
	}
	if got := string(a.Bytes()); got != "abcdefghij" {
		t.Errorf("Bytes() = %q, want %q", got, "abcdefghij")
	}
	if a.LastFrag() != 3 {
		t.Errorf("LastFrag() = %d, want 3", a.LastFrag())
	}
}

func TestAssemblyOutOfBounds(t *testing.T) {
	a := New(4)
	if err := a.Put(4, 2, []byte("toolong")); err == nil {
		t.Error("expected out-of-bounds error")
	}
}
