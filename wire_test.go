package srpc

import (
	"bytes"
	"testing"
)

func TestPayloadHeaderRoundTrip(t *testing.T) {
	h := payloadHeader{subport: 0xdeadbeef, seqno: 42, command: opQuery, fnum: 3, nfrags: 5}
	b := h.encode()
	if len(b) != payloadHeaderSize {
		t.Fatalf("encode() length = %d, want %d", len(b), payloadHeaderSize)
	}
	got, err := decodePayloadHeader(b)
	if err != nil {
		t.Fatalf("decodePayloadHeader: %v", err)
	}
	if got != h {
		t.Errorf("decodePayloadHeader() = %+v, want %+v", got, h)
	}
}

func TestDataHeaderRoundTrip(t *testing.T) {
	h := dataHeader{tlen: 2048, flen: 1024}
	got, err := decodeDataHeader(h.encode())
	if err != nil {
		t.Fatalf("decodeDataHeader: %v", err)
	}
	if got != h {
		t.Errorf("decodeDataHeader() = %+v, want %+v", got, h)
	}
}

func TestBuildConnectServiceName(t *testing.T) {
	b := buildConnect(0x1234, 7, "EchoService")
	name, err := decodeConnectServiceName(b)
	if err != nil {
		t.Fatalf("decodeConnectServiceName: %v", err)
	}
	if name != "EchoService" {
		t.Errorf("service name = %q, want %q", name, "EchoService")
	}
}

func TestBuildFragmentPayload(t *testing.T) {
	chunk := []byte("hello")
	b := buildFragment(1, opResponse, 9, 1, 1, 5, chunk)
	hdr, err := decodePayloadHeader(b)
	if err != nil {
		t.Fatalf("decodePayloadHeader: %v", err)
	}
	if hdr.command != opResponse || hdr.seqno != 9 {
		t.Errorf("header = %+v", hdr)
	}
	dh, err := decodeDataHeader(b[payloadHeaderSize:])
	if err != nil {
		t.Fatalf("decodeDataHeader: %v", err)
	}
	if dh.tlen != 5 || dh.flen != 5 {
		t.Errorf("data header = %+v", dh)
	}
	got := b[payloadHeaderSize+dataHeaderSize:]
	if !bytes.Equal(got, chunk) {
		t.Errorf("payload = %q, want %q", got, chunk)
	}
}

func TestFragmentCount(t *testing.T) {
	cases := []struct{ length, fragSize, want int }{
		{0, 1024, 1},
		{1, 1024, 1},
		{1024, 1024, 1},
		{1025, 1024, 2},
		{2048, 1024, 2},
		{2049, 1024, 3},
	}
	for _, c := range cases {
		if got := fragmentCount(c.length, c.fragSize); got != c.want {
			t.Errorf("fragmentCount(%d, %d) = %d, want %d", c.length, c.fragSize, got, c.want)
		}
	}
}

func TestFragmentBounds(t *testing.T) {
	start, end := fragmentBounds(1, 2049, 1024)
	if start != 0 || end != 1024 {
		t.Errorf("fragment 1 bounds = [%d,%d), want [0,1024)", start, end)
	}
	start, end = fragmentBounds(3, 2049, 1024)
	if start != 2048 || end != 2049 {
		t.Errorf("fragment 3 bounds = [%d,%d), want [2048,2049)", start, end)
	}
}

func TestOpcodeValidity(t *testing.T) {
	if !opConnect.valid() || !opSACK.valid() {
		t.Error("boundary opcodes should be valid")
	}
	if opcode(0).valid() || opcode(15).valid() {
		t.Error("out-of-range opcodes should be invalid")
	}
}
