// Package hexdump formats a byte slice as an od-like hex dump: one
// 16-byte line at a time, an 8-digit hex offset, the hex bytes, and an
// ASCII gutter between | bars.
package hexdump

import "strings"

// Dump renders data as a multi-line od-style hex dump with no trailing
// newline.
func Dump(data []byte) string {
	var b strings.Builder

	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]

		if i > 0 {
			b.WriteByte('\n')
		}
		writeOffset(&b, i)
		b.WriteString("  ")

		for j, c := range chunk {
			b.WriteString(hexByte(c))
			b.WriteByte(' ')
			if j == 7 {
				b.WriteByte(' ')
			}
		}
		for j := len(chunk); j < 16; j++ {
			b.WriteString("   ")
			if j == 7 {
				b.WriteByte(' ')
			}
		}

		b.WriteString(" |")
		for _, c := range chunk {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('|')
	}

	return b.String()
}

const hexDigits = "0123456789abcdef"

func hexByte(c byte) string {
	return string([]byte{hexDigits[c>>4], hexDigits[c&0x0f]})
}

func writeOffset(b *strings.Builder, offset int) {
	const width = 8
	var buf [width]byte
	for i := width - 1; i >= 0; i-- {
		buf[i] = hexDigits[offset&0x0f]
		offset >>= 4
	}
	b.Write(buf[:])
}
