package vita49

import "fmt"

// GapTracker accumulates VRLP frame-sequence continuity across a report
// window. The 12-bit sequence field wraps modulo 0x1000; unlike SDDS
// there is no parity-packet exemption.
type GapTracker struct {
	lastSeq         *uint16
	SkippedInPeriod uint64
}

// NewGapTracker returns a fresh tracker.
func NewGapTracker() *GapTracker {
	return &GapTracker{}
}

// Observe updates the tracker with one packet's decoded VRLP header.
func (g *GapTracker) Observe(packet []byte) {
	header := Parse(packet)
	seq := header.FrameSequenceNumber

	if g.lastSeq != nil {
		expected := (*g.lastSeq + 1) & 0xfff
		if seq != expected {
			var skipped uint64
			if seq > expected {
				skipped = uint64(seq - expected)
			} else {
				skipped = 0x1000 - uint64(expected) + uint64(seq)
			}
			g.SkippedInPeriod += skipped
		}
	}
	g.lastSeq = &seq
}

// Reset clears the per-window counters.
func (g *GapTracker) Reset() {
	*g = GapTracker{}
}

// FormatReport renders a statistics line in the spec §4.F format.
func (g *GapTracker) FormatReport(count uint64, rate float64) string {
	return fmt.Sprintf("packets: %d  rate: %.2f pkt/s  skipped: %d", count, rate, g.SkippedInPeriod)
}
