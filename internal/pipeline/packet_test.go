package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacket_BytesMatchesLength(t *testing.T) {
	p := NewPacket([]byte("hello"))
	assert.Equal(t, []byte("hello"), p.Bytes())
	assert.Equal(t, 5, p.Length)
}

func TestPacket_BytesClampsOversizeLength(t *testing.T) {
	p := NewPacketWithCapacity(4)
	p.Length = 10
	assert.Nil(t, p.Bytes())
}

func TestPacket_BytesClampsNegativeLength(t *testing.T) {
	p := NewPacketWithCapacity(4)
	p.Length = -1
	assert.Nil(t, p.Bytes())
}

func TestPacket_CloneIsIndependent(t *testing.T) {
	slab := NewPacketWithCapacity(8)
	copy(slab.Buffer(), []byte("ABCDEFGH"))
	slab.Length = 4

	clone := slab.Clone()
	assert.Equal(t, []byte("ABCD"), clone.Bytes())

	copy(slab.Buffer(), []byte("ZZZZZZZZ"))
	assert.Equal(t, []byte("ABCD"), clone.Bytes(), "clone must not alias the slab buffer")
}

func TestPacket_NewPacketWithCapacitySetsFullLength(t *testing.T) {
	p := NewPacketWithCapacity(16)
	assert.Equal(t, 16, p.Length)
	assert.Equal(t, 16, p.Capacity())
}
