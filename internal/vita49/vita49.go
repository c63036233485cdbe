// Package vita49 decodes the 8-byte VITA 49 VRLP link-layer header.
// Reference: _examples/original_source/src/vita49.rs.
package vita49

import "fmt"

// HeaderSize is the fixed VRLP header length in bytes.
const HeaderSize = 8

// magic is the ASCII identifier every VRLP frame must begin with.
var magic = [4]byte{'V', 'R', 'L', 'P'}

// Header is a decoded VRLP header.
type Header struct {
	FrameSequenceNumber uint16 // 12 bits
	FrameSize           uint32 // 20 bits
}

// Parse decodes a VRLP header from packet. Any packet shorter than
// HeaderSize, or whose first four bytes are not "VRLP", yields a
// zero-valued Header rather than an error.
func Parse(packet []byte) Header {
	if len(packet) < HeaderSize {
		return Header{}
	}
	if packet[0] != magic[0] || packet[1] != magic[1] || packet[2] != magic[2] || packet[3] != magic[3] {
		return Header{}
	}

	b4 := uint16(packet[4])
	b5 := uint16(packet[5])
	b6 := uint32(packet[6])
	b7 := uint32(packet[7])

	frameSeq := (b4 << 4) | (b5 >> 4)
	frameSize := (uint32(b5&0x0f) << 16) | (b6 << 8) | b7

	return Header{
		FrameSequenceNumber: frameSeq,
		FrameSize:           frameSize,
	}
}

// String renders the header the way the original implementation's
// Vita49Header Display impl does.
func (h Header) String() string {
	return fmt.Sprintf(
		"VITA49 Header:\n  %-24s:  VRLP\n  %-24s: %-25d %012b\n  %-24s: %-25d %020b",
		"Identifier",
		"Frame Sequence (12)", h.FrameSequenceNumber, h.FrameSequenceNumber,
		"Frame Size (20)", h.FrameSize, h.FrameSize,
	)
}
