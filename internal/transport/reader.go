package transport

import (
	"bytes"
	"errors"
	"os"
	"time"
)

// ReadBufferSize is the capacity of the refill buffer.
const ReadBufferSize = 4096

// ReadBuffer holds bytes read from the transport but not yet consumed.
// offset <= fullness <= ReadBufferSize always holds; offset == fullness means
// the buffer is empty and must be refilled.
type ReadBuffer struct {
	data     [ReadBufferSize]byte
	fullness int
	offset   int
}

func (b *ReadBuffer) Reset() {
	b.fullness = 0
	b.offset = 0
}

// Cursors returns the next unread index and the number of valid bytes.
func (b *ReadBuffer) Cursors() (offset, fullness int) {
	return b.offset, b.fullness
}

func (b *ReadBuffer) Buffered() int {
	return b.fullness - b.offset
}

func (b *ReadBuffer) empty() bool {
	return b.offset == b.fullness
}

func (b *ReadBuffer) next() byte {
	c := b.data[b.offset]
	b.offset++

	return c
}

func (b *ReadBuffer) unread() []byte {
	return b.data[b.offset:b.fullness]
}

// FramedReader extracts marker-delimited messages from a Conn.
type FramedReader struct {
	conn Conn
	buf  ReadBuffer
	wait func() time.Duration
}

// NewFramedReader reads from conn, bounding every refill by the duration
// returned from wait.
func NewFramedReader(conn Conn, wait func() time.Duration) *FramedReader {
	if wait == nil {
		wait = func() time.Duration { return DefaultWaitTimeout }
	}

	return &FramedReader{conn: conn, wait: wait}
}

// attach switches the reader to a new connection and drops everything
// buffered from the previous one.
func (r *FramedReader) attach(conn Conn) {
	r.conn = conn
	r.buf.Reset()
}

func (r *FramedReader) Buffer() *ReadBuffer {
	return &r.buf
}

// Receive discards input up to the next StartMarker and then copies the
// message body into dst. It returns the body length without the EndMarker.
// When dst fills up before an EndMarker is seen, Receive returns len(dst)
// and ErrFrameTooLong. Refill failures abort the call with a *ReadError and
// whatever was collected so far is dropped.
func (r *FramedReader) Receive(dst []byte) (int, error) {
	for {
		if r.buf.empty() {
			if err := r.refill(); err != nil {
				return 0, err
			}
		}
		if r.buf.next() == StartMarker {
			break
		}
	}

	n := 0
	for n < len(dst) {
		if r.buf.empty() {
			if err := r.refill(); err != nil {
				return 0, err
			}
		}

		chunk := r.buf.unread()
		if room := len(dst) - n; len(chunk) > room {
			chunk = chunk[:room]
		}
		if end := bytes.IndexByte(chunk, EndMarker); end >= 0 {
			copy(dst[n:], chunk[:end])
			r.buf.offset += end + 1
			n += end
			transportLogger("reader").Debug("wire in", wireAttrs(dst[:n])...)
			return n, nil
		}

		copy(dst[n:], chunk)
		r.buf.offset += len(chunk)
		n += len(chunk)
	}

	transportLogger("reader").Debug("wire in: receive buffer exhausted", "len", n)

	return n, ErrFrameTooLong
}

// refill blocks for up to the wait timeout and replaces the buffer contents
// with whatever the transport delivered.
func (r *FramedReader) refill() error {
	logger := transportLogger("reader")
	if r.conn == nil {
		return &ReadError{Kind: ReadFailed, Err: ErrNotOpen}
	}

	timeout := r.wait()
	if err := r.conn.SetWaitTimeout(timeout); err != nil {
		logger.Error("failed to wait for probe data", "error", err)
		return &ReadError{Kind: ReadWaitFailed, Err: err}
	}

	n, err := r.conn.Read(r.buf.data[:])
	// Bytes delivered alongside an error are kept; a persistent error
	// surfaces on the next refill.
	if n > 0 {
		r.buf.fullness = min(n, ReadBufferSize)
		r.buf.offset = 0
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		logger.Error("failed to read response", "error", err)
		return &ReadError{Kind: ReadFailed, Err: err}
	}

	logger.Error("timeout while waiting for probe response", "timeout", timeout)

	return &ReadError{Kind: ReadTimedOut, Err: err}
}
