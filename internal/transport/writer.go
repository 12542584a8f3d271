package transport

import "io"

// Writer sends whole messages with a single write attempt.
type Writer struct {
	w      io.Writer
	target string
}

func NewWriter(w io.Writer, target string) *Writer {
	return &Writer{w: w, target: target}
}

// Send writes p once. It reports whether the transport accepted all of it.
// A short write is returned as false with a nil error; an I/O error is
// returned as *FatalWriteError and is never retried.
func (w *Writer) Send(p []byte) (bool, error) {
	logger := transportLogger("writer", "target", w.target)
	logger.Debug("wire out", wireAttrs(p)...)

	written, err := w.w.Write(p)
	if err != nil {
		logger.Error("write failed", "len", len(p), "written", written, "error", err)
		return false, &FatalWriteError{Target: w.target, Written: written, Err: err}
	}
	if written != len(p) {
		logger.Warn("short write", "len", len(p), "written", written)
		return false, nil
	}

	return true, nil
}
