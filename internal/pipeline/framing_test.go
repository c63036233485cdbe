package pipeline

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTextPacket_LineIncludesNewline(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("one\ntwo\n"))

	line, err := readTextPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(line))

	line, err = readTextPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(line))

	_, err = readTextPacket(r)
	assert.Equal(t, io.EOF, err)
}

func TestReadTextPacket_FinalLineWithoutNewline(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("trailing"))
	line, err := readTextPacket(r)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "trailing", string(line))
}

func TestReadBinaryPacket_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBinaryPacket(&buf, []byte("ABCD")))

	payload, err := readBinaryPacket(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), payload)
}

func TestReadBinaryPacket_CleanEOFAtBoundary(t *testing.T) {
	_, err := readBinaryPacket(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}

func TestReadBinaryPacket_MidRecordEOFPropagates(t *testing.T) {
	buf := []byte{0x04, 0x00, 0x00, 0x00, 'A', 'B'}
	_, err := readBinaryPacket(bytes.NewReader(buf))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadBinaryPacket_OversizeIsFatal(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x02, 0x00} // 131072
	_, err := readBinaryPacket(bytes.NewReader(buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestWriteTextPacket_AppendsNewlineWhenMissing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTextPacket(&buf, []byte("no newline")))
	assert.Equal(t, "no newline\n", buf.String())
}

func TestWriteTextPacket_PreservesExistingNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTextPacket(&buf, []byte("has newline\n")))
	assert.Equal(t, "has newline\n", buf.String())
}
