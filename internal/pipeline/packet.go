// Package pipeline implements the receive/transmit pipeline: reader,
// writer, and statistics stages connected by bounded channels, plus the
// shared control state and supervisor that wire them together.
package pipeline

// MaxPacketSize bounds a single packet buffer (64KiB), matching the
// largest UDP datagram mnc will ever need to hold.
const MaxPacketSize = 65536

// RecvBatchSize is the slab depth the reader pre-allocates for its
// network hot path — the Go analogue of the recvmmsg buffer count.
const RecvBatchSize = 1000

// SendBatchSize bounds how many packets the writer folds into a single
// batch transmit.
const SendBatchSize = 32

// Packet is an owned byte buffer with an independent logical length,
// so a fixed-capacity slab buffer can be reused across receive calls by
// rewriting Length instead of reallocating.
type Packet struct {
	data   []byte
	Length int
}

// NewPacket wraps data as a packet whose length equals its size.
func NewPacket(data []byte) Packet {
	return Packet{data: data, Length: len(data)}
}

// NewPacketWithCapacity allocates a packet of the given capacity with
// its logical length set to that same capacity, ready for a
// scatter/gather fill.
func NewPacketWithCapacity(capacity int) Packet {
	return Packet{data: make([]byte, capacity), Length: capacity}
}

// Bytes returns a read-only view of data[0:Length]. A Length beyond the
// buffer's capacity is clamped defensively to an empty view rather than
// panicking.
func (p Packet) Bytes() []byte {
	if p.Length < 0 || p.Length > len(p.data) {
		return nil
	}
	return p.data[:p.Length]
}

// Buffer returns the full underlying allocation, for scatter/gather
// fills that need every byte of capacity regardless of the current
// logical length.
func (p Packet) Buffer() []byte {
	return p.data
}

// Capacity returns the size of the underlying allocation.
func (p Packet) Capacity() int {
	return len(p.data)
}

// Clone copies the packet's live bytes into a new, independently owned
// Packet. The reader uses this to publish slab contents into a batch
// without letting the batch alias slab memory that the next receive
// call will overwrite.
func (p Packet) Clone() Packet {
	dup := make([]byte, p.Length)
	copy(dup, p.Bytes())
	return Packet{data: dup, Length: p.Length}
}

// PacketBatch is an ordered, immutable sequence of packets shared by
// reference between the writer and the (optional) statistics
// consumer. A plain slice already gives the sharing semantics spec.md
// asks for, provided no consumer mutates a packet's backing array —
// enforced here by only ever exposing Bytes(), never the raw buffer.
type PacketBatch []Packet
