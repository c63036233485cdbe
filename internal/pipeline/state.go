package pipeline

import (
	"context"
	"sync/atomic"
)

// PacketType is a closed tag chosen once at startup: it governs how the
// reader/writer frame stdin/file bytes and which decoder the statistics
// stage uses.
type PacketType int

const (
	Text PacketType = iota
	Binary
	Vita49
	Sdds
)

// String renders the CLI spelling of a PacketType.
func (t PacketType) String() string {
	switch t {
	case Text:
		return "text"
	case Binary:
		return "binary"
	case Vita49:
		return "vita49"
	case Sdds:
		return "sdds"
	default:
		return "unknown"
	}
}

// ParsePacketType parses the --type flag value.
func ParsePacketType(s string) (PacketType, bool) {
	switch s {
	case "text":
		return Text, true
	case "binary":
		return Binary, true
	case "vita49":
		return Vita49, true
	case "sdds":
		return Sdds, true
	default:
		return 0, false
	}
}

// SharedState is the process-wide control block read by all stages: a
// monotonically increasing packet count and a one-shot exit flag, plus
// the packet type and verbosity chosen once at construction.
//
// should_exit is realized two ways at once: an atomic.Bool that stages
// poll at their loop heads (as spec.md describes), and a context.Context
// that SignalExit also cancels, so the supervisor can select on
// ctx.Done() instead of busy-polling. Both observe the same one-shot
// transition.
type SharedState struct {
	PacketType PacketType
	Verbose    bool

	count  atomic.Uint64
	exit   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSharedState constructs a SharedState rooted at parent.
func NewSharedState(parent context.Context, packetType PacketType, verbose bool) *SharedState {
	ctx, cancel := context.WithCancel(parent)
	return &SharedState{
		PacketType: packetType,
		Verbose:    verbose,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddCount increments the packet counter by n and returns the
// post-increment total.
func (s *SharedState) AddCount(n uint64) uint64 {
	return s.count.Add(n)
}

// Count returns the current packet total.
func (s *SharedState) Count() uint64 {
	return s.count.Load()
}

// SignalExit is idempotent; any stage, the signal handler, or the
// supervisor may call it.
func (s *SharedState) SignalExit() {
	s.exit.Store(true)
	s.cancel()
}

// ShouldExit reports whether exit has been signaled.
func (s *SharedState) ShouldExit() bool {
	return s.exit.Load()
}

// Done returns a channel closed once SignalExit has been called, for use
// in select statements alongside channel receives.
func (s *SharedState) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns the cancellation context backing Done/SignalExit.
func (s *SharedState) Context() context.Context {
	return s.ctx
}
