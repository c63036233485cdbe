// Package sdds decodes headers from the SDDS wire format: a fixed
// 1080-byte payload streamed over UDP multicast, with a parity packet
// every 32 frames. All accessors are total and defensive: a short or
// malformed packet yields zero-valued fields rather than an error.
//
// Reference: _examples/original_source/src/sdds.rs.
package sdds

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PayloadSize is the fixed SDDS payload length carried by each datagram.
const PayloadSize = 1080

// FrameSequenceNumber returns the 16-bit frame sequence at bytes [2:4].
func FrameSequenceNumber(packet []byte) uint16 {
	if len(packet) < 4 {
		return 0
	}
	return binary.BigEndian.Uint16(packet[2:4])
}

// TimeTag returns the 64-bit time tag at bytes [8:16].
func TimeTag(packet []byte) uint64 {
	if len(packet) < 16 {
		return 0
	}
	return binary.BigEndian.Uint64(packet[8:16])
}

// TimeTagExt returns the 32-bit time tag extension at bytes [16:20].
func TimeTagExt(packet []byte) uint32 {
	if len(packet) < 20 {
		return 0
	}
	return binary.BigEndian.Uint32(packet[16:20])
}

// byte0 and byte1 return the two format-identifier bytes, or 0 if the
// packet is too short to hold them.
func byte0(packet []byte) byte {
	if len(packet) < 1 {
		return 0
	}
	return packet[0]
}

func byte1(packet []byte) byte {
	if len(packet) < 2 {
		return 0
	}
	return packet[1]
}

// SF reports the Standard Format bit (byte 0, bit 7).
func SF(packet []byte) bool { return byte0(packet)&0x80 != 0 }

// SoS reports the Start of Stream bit (byte 0, bit 6).
func SoS(packet []byte) bool { return byte0(packet)&0x40 != 0 }

// PP reports the Parity Packet bit (byte 0, bit 5).
func PP(packet []byte) bool { return byte0(packet)&0x20 != 0 }

// OF reports the Overflow bit (byte 0, bit 4).
func OF(packet []byte) bool { return byte0(packet)&0x10 != 0 }

// SS reports the Spectral Sense bit (byte 0, bit 3).
func SS(packet []byte) bool { return byte0(packet)&0x08 != 0 }

// DataMode returns the 3-bit data mode field (byte 0, bits 2..0).
func DataMode(packet []byte) uint8 { return byte0(packet) & 0x07 }

// CX reports the Complex bit (byte 1, bit 7).
func CX(packet []byte) bool { return byte1(packet)&0x80 != 0 }

// SNP reports the Sample Number Present bit (byte 1, bit 6).
func SNP(packet []byte) bool { return byte1(packet)&0x40 != 0 }

// VW reports the Valid Word bit (byte 1, bit 5).
func VW(packet []byte) bool { return byte1(packet)&0x20 != 0 }

// BitsPerSample returns the 5-bit bits-per-sample field (byte 1, bits 4..0).
func BitsPerSample(packet []byte) uint8 { return byte1(packet) & 0x1f }

// Timestamp converts a raw 64-bit SDDS time tag into (days, hours, mins,
// secs, nsecs). 4,000,000,000 quarter-nanoseconds make one second; day
// is 1-based: a timetag of 0 is day 1.
func Timestamp(timetag uint64) (days, hours, mins, secs uint32, nsecs uint64) {
	tt := timetag

	nsecs = (tt % 4_000_000_000) / 4
	tt /= 4_000_000_000

	secs = uint32(tt % 60)
	tt /= 60

	mins = uint32(tt % 60)
	tt /= 60

	hours = uint32(tt % 24)
	tt /= 24

	days = uint32(1 + tt)

	return days, hours, mins, secs, nsecs
}

// FormatTimestamp renders timetag as DDD:HH:MM:SS:NNNNNNNNN.
func FormatTimestamp(timetag uint64) string {
	days, hours, mins, secs, nsecs := Timestamp(timetag)
	return fmt.Sprintf("%03d:%02d:%02d:%02d:%09d", days, hours, mins, secs, nsecs)
}

// Header is a decoded view over an SDDS packet, used only to render the
// verbose pretty-printed dump (spec §4.F hex_print callback).
type Header struct {
	packet []byte
}

// NewHeader wraps packet for display. It does not copy the bytes.
func NewHeader(packet []byte) Header {
	return Header{packet: packet}
}

// String renders the header the way the original implementation's
// SddsHeader Display impl does: one line per field, binary alongside
// decimal for the bit-packed format identifier.
func (h Header) String() string {
	seq := FrameSequenceNumber(h.packet)
	timetag := TimeTag(h.packet)
	ttExt := TimeTagExt(h.packet)

	var b strings.Builder
	fmt.Fprintln(&b, "SDDS Header:")
	fmt.Fprintf(&b, "  %-24s: %-25d %016b\n", "Frame Sequence (16)", seq, seq)
	fmt.Fprintf(&b, "  %-24s: %-25s %064b\n", "Time Tag (64)", FormatTimestamp(timetag), timetag)
	fmt.Fprintf(&b, "  %-24s: %-25s %032b\n", "Time Tag Ext (32)", " ", ttExt)
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "SF (1)", b2i(SF(h.packet)), b2i(SF(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "SoS(1)", b2i(SoS(h.packet)), b2i(SoS(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "PP (1)", b2i(PP(h.packet)), b2i(PP(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "OF (1)", b2i(OF(h.packet)), b2i(OF(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "SS (1)", b2i(SS(h.packet)), b2i(SS(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %03b\n", "Data Mode (3)", DataMode(h.packet), DataMode(h.packet))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "CX (1)", b2i(CX(h.packet)), b2i(CX(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "SNP (1)", b2i(SNP(h.packet)), b2i(SNP(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %d\n", "VW (1)", b2i(VW(h.packet)), b2i(VW(h.packet)))
	fmt.Fprintf(&b, "    %-22s: %-25d %05b", "Bits per Sample (5)", BitsPerSample(h.packet), BitsPerSample(h.packet))
	return b.String()
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

// GapTracker accumulates SDDS frame-sequence continuity across a report
// window. ParityModulus exists as a test hook for spec's open question
// about the "every 32nd sequence is a parity packet" rule; it is not
// exposed on the CLI.
type GapTracker struct {
	ParityModulus   uint16
	lastSeq         *uint16
	SkippedInPeriod uint64
	LatestTimestamp string
}

// NewGapTracker returns a tracker with the documented parity modulus (32).
func NewGapTracker() *GapTracker {
	return &GapTracker{ParityModulus: 32}
}

// Observe updates the tracker with one packet's decoded sequence number
// and time tag. Every ParityModulus-th sequence number is a parity
// packet, exempt from gap accounting: it is remembered as the new
// last-seen sequence and nothing else happens.
func (g *GapTracker) Observe(packet []byte) {
	if g.ParityModulus == 0 {
		g.ParityModulus = 32
	}

	seq := FrameSequenceNumber(packet)
	if seq%g.ParityModulus == 0 {
		g.lastSeq = &seq
		return
	}

	if g.lastSeq != nil {
		expected := *g.lastSeq + 1
		if seq != expected {
			var skipped uint64
			if seq > expected {
				skipped = uint64(seq - expected)
			} else {
				skipped = uint64(0xffff-expected) + uint64(seq) + 1
			}
			g.SkippedInPeriod += skipped
		}
	}
	g.lastSeq = &seq

	g.LatestTimestamp = FormatTimestamp(TimeTag(packet))
}

// Reset clears the per-window counters but keeps ParityModulus.
func (g *GapTracker) Reset() {
	modulus := g.ParityModulus
	*g = GapTracker{ParityModulus: modulus}
}

// FormatReport renders a statistics line in the spec §4.F format.
func (g *GapTracker) FormatReport(count uint64, rate float64) string {
	s := fmt.Sprintf("packets: %d  rate: %.2f pkt/s  skipped: %d", count, rate, g.SkippedInPeriod)
	if g.LatestTimestamp != "" {
		s += fmt.Sprintf("  time: %s", g.LatestTimestamp)
	}
	return s
}
