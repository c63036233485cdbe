package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDump_Empty(t *testing.T) {
	assert.Equal(t, "", Dump(nil))
}

func TestDump_SingleShortLine(t *testing.T) {
	out := Dump([]byte("AB"))
	assert.True(t, strings.HasPrefix(out, "00000000"))
	assert.Contains(t, out, "41 42")
	assert.Contains(t, out, "|AB|")
}

func TestDump_NonPrintableBytesBecomeDots(t *testing.T) {
	out := Dump([]byte{0x00, 0x01, 'z'})
	assert.Contains(t, out, "|..z|")
}

func TestDump_MultipleLines(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	out := Dump(data)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "00000010"))
}
