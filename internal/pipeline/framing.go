package pipeline

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/weishiuchang/mnc/internal/mncerr"
)

// readTextPacket reads one newline-terminated line, newline included.
// A clean io.EOF (no bytes read) is returned as-is so callers can end
// their loop; a partial final line without a trailing newline is
// returned together with io.EOF so no data is lost.
func readTextPacket(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	if err == io.EOF {
		return line, io.EOF
	}
	return line, err
}

// readBinaryPacket reads a little-endian u32 length prefix followed by
// that many bytes. A clean EOF at the length boundary is reported as
// io.EOF; an EOF in the middle of a record is a propagated error. A
// length exceeding MaxPacketSize is fatal.
func readBinaryPacket(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > MaxPacketSize {
		return nil, mncerr.Critical("packet too large: %d bytes exceeds max %d", length, MaxPacketSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// writeTextPacket writes payload followed by a newline, unless payload
// already ends in one.
func writeTextPacket(w io.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if len(payload) == 0 || payload[len(payload)-1] != '\n' {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// writeBinaryPacket writes a little-endian u32 length prefix followed by
// payload, mirroring readBinaryPacket's framing.
func writeBinaryPacket(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
