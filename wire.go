package srpc

import (
	"encoding/binary"
	"fmt"
)

// opcode identifies the kind of datagram carried by a payload header, the
// Go equivalent of the source's CONNECT..SACK #defines.
type opcode uint16

const (
	opConnect    opcode = 1
	opCACK       opcode = 2
	opQuery      opcode = 3
	opQACK       opcode = 4
	opResponse   opcode = 5
	opRACK       opcode = 6
	opDisconnect opcode = 7
	opDACK       opcode = 8
	opFragment   opcode = 9
	opFACK       opcode = 10
	opPing       opcode = 11
	opPACK       opcode = 12
	opSeqno      opcode = 13
	opSACK       opcode = 14

	cmdLow  = opConnect
	cmdHigh = opSACK
)

var opcodeNames = map[opcode]string{
	opConnect: "CONNECT", opCACK: "CACK", opQuery: "QUERY", opQACK: "QACK",
	opResponse: "RESPONSE", opRACK: "RACK", opDisconnect: "DISCONNECT",
	opDACK: "DACK", opFragment: "FRAGMENT", opFACK: "FACK", opPing: "PING",
	opPACK: "PACK", opSeqno: "SEQNO", opSACK: "SACK",
}

func (op opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint16(op))
}

func (op opcode) valid() bool {
	return op >= cmdLow && op <= cmdHigh
}

func (op opcode) dataCarrying() bool {
	return op == opQuery || op == opResponse || op == opFragment
}

// payloadHeaderSize is the fixed header every datagram begins with:
// subport(4) + seqno(4) + command(2) + fnum(1) + nfrags(1).
const payloadHeaderSize = 12

// dataHeaderSize is the additional header data-carrying opcodes append:
// tlen(2) + flen(2).
const dataHeaderSize = 4

// payloadHeader is the fixed-size header every datagram begins with, all
// multi-byte fields in network byte order on the wire.
type payloadHeader struct {
	subport uint32 // destination's subport as known to the sender
	seqno   uint32
	command opcode
	fnum    uint8 // 1-based fragment ordinal
	nfrags  uint8
}

func (h payloadHeader) encode() []byte {
	b := make([]byte, payloadHeaderSize)
	binary.BigEndian.PutUint32(b[0:4], h.subport)
	binary.BigEndian.PutUint32(b[4:8], h.seqno)
	binary.BigEndian.PutUint16(b[8:10], uint16(h.command))
	b[10] = h.fnum
	b[11] = h.nfrags
	return b
}

func decodePayloadHeader(b []byte) (payloadHeader, error) {
	if len(b) < payloadHeaderSize {
		return payloadHeader{}, fmt.Errorf("srpc: short datagram (%d bytes)", len(b))
	}
	return payloadHeader{
		subport: binary.BigEndian.Uint32(b[0:4]),
		seqno:   binary.BigEndian.Uint32(b[4:8]),
		command: opcode(binary.BigEndian.Uint16(b[8:10])),
		fnum:    b[10],
		nfrags:  b[11],
	}, nil
}

// dataHeader is appended after the payload header by data-carrying opcodes.
type dataHeader struct {
	tlen uint16 // total length of the user-visible message
	flen uint16 // length of the bytes carried in this fragment
}

func (h dataHeader) encode() []byte {
	b := make([]byte, dataHeaderSize)
	binary.BigEndian.PutUint16(b[0:2], h.tlen)
	binary.BigEndian.PutUint16(b[2:4], h.flen)
	return b
}

func decodeDataHeader(b []byte) (dataHeader, error) {
	if len(b) < dataHeaderSize {
		return dataHeader{}, fmt.Errorf("srpc: short data header (%d bytes)", len(b))
	}
	return dataHeader{
		tlen: binary.BigEndian.Uint16(b[0:2]),
		flen: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// buildControl encodes a zero-length control datagram (CACK, QACK, RACK,
// DACK, FACK, PING, PACK, SACK, and the terminal DISCONNECT) for subport
// sp as seen by the destination.
func buildControl(sp uint32, cmd opcode, seqno uint32, fnum, nfrags uint8) []byte {
	return payloadHeader{subport: sp, seqno: seqno, command: cmd, fnum: fnum, nfrags: nfrags}.encode()
}

// buildConnect encodes a CONNECT datagram carrying the EOS-terminated
// service name after the payload header.
func buildConnect(sp uint32, seqno uint32, svcName string) []byte {
	hdr := payloadHeader{subport: sp, seqno: seqno, command: opConnect, fnum: 1, nfrags: 1}.encode()
	out := make([]byte, 0, len(hdr)+len(svcName)+1)
	out = append(out, hdr...)
	out = append(out, svcName...)
	out = append(out, 0)
	return out
}

func decodeConnectServiceName(b []byte) (string, error) {
	if len(b) <= payloadHeaderSize {
		return "", fmt.Errorf("srpc: CONNECT datagram missing service name")
	}
	rest := b[payloadHeaderSize:]
	for i, c := range rest {
		if c == 0 {
			return string(rest[:i]), nil
		}
	}
	return "", fmt.Errorf("srpc: CONNECT service name not EOS-terminated")
}

// buildFragment encodes one data-carrying piece (QUERY, RESPONSE or
// FRAGMENT) of a possibly-split message.
func buildFragment(sp uint32, cmd opcode, seqno uint32, fnum, nfrags uint8, tlen uint16, chunk []byte) []byte {
	hdr := payloadHeader{subport: sp, seqno: seqno, command: cmd, fnum: fnum, nfrags: nfrags}.encode()
	dh := dataHeader{tlen: tlen, flen: uint16(len(chunk))}.encode()
	out := make([]byte, 0, len(hdr)+len(dh)+len(chunk))
	out = append(out, hdr...)
	out = append(out, dh...)
	out = append(out, chunk...)
	return out
}

// fragmentCount returns ceil(length/fragSize), the number of pieces a
// payload of the given length splits into.
func fragmentCount(length, fragSize int) int {
	if length == 0 {
		return 1
	}
	return (length-1)/fragSize + 1
}

// fragmentBounds returns the half-open byte range [start,end) of fragment
// fnum (1-based) of a payload of the given length, with fragSize-sized
// pieces except for a possibly-shorter final one.
func fragmentBounds(fnum int, length, fragSize int) (start, end int) {
	start = (fnum - 1) * fragSize
	end = start + fragSize
	if end > length {
		end = length
	}
	return start, end
}
