package output

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize makes untrusted text (container names, log lines, command
// output) safe for a terminal. Control characters other than newline and
// tab become visible escapes such as \x1b; invalid UTF-8 bytes are escaped
// the same way.
func Sanitize(s string) string {
	i := unsafeIndex(s)
	if i < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteString(s[:i])

	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, s[i])
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			writeEscape(&b, r)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// unsafeIndex returns the offset of the first byte needing an escape, or -1
func unsafeIndex(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return i
		}
		i += size
	}
	return -1
}

func writeEscape(b *strings.Builder, r rune) {
	switch {
	case r <= 0xff:
		fmt.Fprintf(b, `\x%02x`, r)
	case r <= 0xffff:
		fmt.Fprintf(b, `\u%04x`, r)
	default:
		fmt.Fprintf(b, `\U%08x`, r)
	}
}

// SafeWriter sanitizes everything written through it
type SafeWriter struct {
	W io.Writer
}

// NewSafeWriter wraps w
func NewSafeWriter(w io.Writer) io.Writer {
	return SafeWriter{W: w}
}

func (w SafeWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(w.W, Sanitize(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
