package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// S1, reader half: a binary file input yields its two framed packets.
func TestRunReader_BinaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bin")
	data := []byte{0x04, 0x00, 0x00, 0x00, 'A', 'B', 'C', 'D', 0x02, 0x00, 0x00, 0x00, 'X', 'Y'}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	state := NewSharedState(context.Background(), Binary, false)
	dataCh := make(chan PacketBatch, 10)

	err := RunReader(ReaderConfig{
		Logger: testLogger(),
		State:  state,
		Input:  path,
		DataCh: dataCh,
	})
	require.NoError(t, err)
	close(dataCh)

	var got [][]byte
	for batch := range dataCh {
		for _, p := range batch {
			got = append(got, append([]byte(nil), p.Bytes()...))
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, []byte("ABCD"), got[0])
	assert.Equal(t, []byte("XY"), got[1])
	assert.Equal(t, uint64(2), state.Count())
}

// S2: text count gate from stdin-like reader, stopping after N packets.
func TestRunReader_TextCountGate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\ne\nf\n"), 0o644))

	state := NewSharedState(context.Background(), Text, false)
	dataCh := make(chan PacketBatch, 10)

	err := RunReader(ReaderConfig{
		Logger:   testLogger(),
		State:    state,
		Input:    path,
		MaxCount: 3,
		DataCh:   dataCh,
	})
	require.NoError(t, err)
	close(dataCh)

	var lines []string
	for batch := range dataCh {
		for _, p := range batch {
			lines = append(lines, string(p.Bytes()))
		}
	}
	assert.Equal(t, []string{"a\n", "b\n", "c\n"}, lines)
	assert.Equal(t, uint64(3), state.Count())
	assert.True(t, state.ShouldExit())
}

// S3: oversize binary frame is fatal.
func TestRunReader_OversizeFrameIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x00, 0x02, 0x00}, 0o644))

	state := NewSharedState(context.Background(), Binary, false)
	dataCh := make(chan PacketBatch, 10)

	err := RunReader(ReaderConfig{
		Logger: testLogger(),
		State:  state,
		Input:  path,
		DataCh: dataCh,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestRunReader_StopsWhenExitAlreadySignaled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	state := NewSharedState(context.Background(), Text, false)
	state.SignalExit()
	dataCh := make(chan PacketBatch, 10)

	err := RunReader(ReaderConfig{
		Logger: testLogger(),
		State:  state,
		Input:  path,
		DataCh: dataCh,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, len(dataCh))
}

func TestTrySend_DropsOnFullChannel(t *testing.T) {
	ch := make(chan PacketBatch, 1)
	ch <- PacketBatch{NewPacket([]byte("x"))}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	trySend(ch, PacketBatch{NewPacket([]byte("y"))}, logger, "data")

	assert.Equal(t, 1, len(ch))
	assert.Contains(t, buf.String(), "dropping batch")
}
