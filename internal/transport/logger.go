package transport

import (
	"encoding/hex"
	"log/slog"
	"unicode"
	"unicode/utf8"
)

// maxWireLogBytes caps how much of a wire chunk ends up in debug logs.
const maxWireLogBytes = 256

func transportLogger(part string, attrs ...any) *slog.Logger {
	logger := slog.With("component", "transport", "part", part)
	if len(attrs) == 0 {
		return logger
	}

	return logger.With(attrs...)
}

// wireAttrs describes a chunk of wire traffic for debug logging. Printable
// packets are logged as text, anything else (binary memory reads, stray
// control bytes) as hex.
func wireAttrs(p []byte) []any {
	attrs := []any{"len", len(p)}
	shown := p
	if len(shown) > maxWireLogBytes {
		shown = shown[:maxWireLogBytes]
		attrs = append(attrs, "truncated", true)
	}
	if isPrintable(shown) {
		return append(attrs, "data", string(shown))
	}

	return append(attrs, "hex", hex.EncodeToString(shown))
}

func isPrintable(p []byte) bool {
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		if r == utf8.RuneError && size <= 1 {
			return false
		}
		if !unicode.IsPrint(r) {
			return false
		}
		p = p[size:]
	}

	return true
}
