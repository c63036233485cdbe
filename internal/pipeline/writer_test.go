package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1, writer half: the two packets of S1's input file, written in binary
// mode, reproduce that file byte-for-byte.
func TestRunWriter_BinaryFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.bin")

	state := NewSharedState(context.Background(), Binary, false)
	dataCh := make(chan PacketBatch, 10)
	dataCh <- PacketBatch{NewPacket([]byte("ABCD"))}
	dataCh <- PacketBatch{NewPacket([]byte("XY"))}
	close(dataCh)

	err := RunWriter(WriterConfig{
		Logger: testLogger(),
		State:  state,
		Output: out,
		DataCh: dataCh,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want := []byte{0x04, 0x00, 0x00, 0x00, 'A', 'B', 'C', 'D', 0x02, 0x00, 0x00, 0x00, 'X', 'Y'}
	assert.Equal(t, want, got)
}

// S2: text mode writes the first three lines to stdout equivalent (a
// file standing in for stdout here).
func TestRunWriter_TextCountGate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	state := NewSharedState(context.Background(), Text, false)
	dataCh := make(chan PacketBatch, 10)
	for _, line := range []string{"a\n", "b\n", "c\n"} {
		dataCh <- PacketBatch{NewPacket([]byte(line))}
	}
	close(dataCh)

	err := RunWriter(WriterConfig{
		Logger: testLogger(),
		State:  state,
		Output: out,
		DataCh: dataCh,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(got))
}

func TestRunWriter_TextAppendsMissingNewline(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	state := NewSharedState(context.Background(), Text, false)
	dataCh := make(chan PacketBatch, 1)
	dataCh <- PacketBatch{NewPacket([]byte("no newline"))}
	close(dataCh)

	require.NoError(t, RunWriter(WriterConfig{
		Logger: testLogger(),
		State:  state,
		Output: out,
		DataCh: dataCh,
	}))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "no newline\n", string(got))
}

func TestRunWriter_Devnull_DrainsAndExitsOnSignal(t *testing.T) {
	state := NewSharedState(context.Background(), Text, false)
	dataCh := make(chan PacketBatch, 10)
	dataCh <- PacketBatch{NewPacket([]byte("x\n"))}

	done := make(chan error, 1)
	go func() {
		done <- RunWriter(WriterConfig{
			Logger: testLogger(),
			State:  state,
			DataCh: dataCh,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	state.SignalExit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("devnull writer did not exit after signal")
	}
}

func TestRunWriter_StreamDrainsOnShutdown(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	state := NewSharedState(context.Background(), Text, false)
	dataCh := make(chan PacketBatch, 10)
	dataCh <- PacketBatch{NewPacket([]byte("queued\n"))}

	done := make(chan error, 1)
	go func() {
		done <- RunWriter(WriterConfig{
			Logger: testLogger(),
			State:  state,
			Output: out,
			DataCh: dataCh,
		})
	}()

	time.Sleep(20 * time.Millisecond)
	state.SignalExit()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream writer did not exit after signal")
	}

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "queued\n", string(got))
}
