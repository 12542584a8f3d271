package transport

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestReader(conn *fakeConn) *FramedReader {
	return NewFramedReader(conn, func() time.Duration { return 50 * time.Millisecond })
}

func receiveString(t *testing.T, r *FramedReader, capacity int) string {
	t.Helper()
	buf := make([]byte, capacity)
	n, err := r.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	return string(buf[:n])
}

func TestReceiveReturnsPayloadBetweenMarkers(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "&ab#"))

	if got := receiveString(t, r, 64); got != "ab" {
		t.Fatalf("payload mismatch: got %q want %q", got, "ab")
	}
}

func TestReceiveDiscardsBytesBeforeStartMarker(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "xy&1#"))

	if got := receiveString(t, r, 64); got != "1" {
		t.Fatalf("payload mismatch: got %q want %q", got, "1")
	}
}

func TestReceiveAcrossRefills(t *testing.T) {
	conn := newFakeConn("fake", "noise&he", "ll", "o#")
	r := newTestReader(conn)

	if got := receiveString(t, r, 64); got != "hello" {
		t.Fatalf("payload mismatch: got %q want %q", got, "hello")
	}
	if conn.reads != 3 {
		t.Fatalf("expected 3 reads, got %d", conn.reads)
	}
	for i, wait := range conn.waits {
		if wait != 50*time.Millisecond {
			t.Fatalf("refill %d used wait %s", i, wait)
		}
	}
	offset, fullness := r.Buffer().Cursors()
	if offset != fullness {
		t.Fatalf("expected drained buffer, got offset=%d fullness=%d", offset, fullness)
	}
}

func TestReceiveKeepsFollowingMessageBuffered(t *testing.T) {
	conn := newFakeConn("fake", "&a#&bc#")
	r := newTestReader(conn)

	if got := receiveString(t, r, 64); got != "a" {
		t.Fatalf("first payload: got %q", got)
	}
	if got := r.Buffer().Buffered(); got != len("&bc#") {
		t.Fatalf("expected %d buffered bytes, got %d", len("&bc#"), got)
	}
	if got := receiveString(t, r, 64); got != "bc" {
		t.Fatalf("second payload: got %q", got)
	}
	if conn.reads != 1 {
		t.Fatalf("expected second message to come from the buffer, reads=%d", conn.reads)
	}
}

func TestReceiveEmptyPayload(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "&#"))

	if got := receiveString(t, r, 8); got != "" {
		t.Fatalf("expected empty payload, got %q", got)
	}
}

func TestReceiveTimesOutWithoutStartMarker(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "garbage"))

	buf := make([]byte, 16)
	n, err := r.Receive(buf)
	if n != 0 {
		t.Fatalf("expected no data, got %d bytes", n)
	}
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var readErr *ReadError
	if !errors.As(err, &readErr) || readErr.Kind != ReadTimedOut {
		t.Fatalf("expected *ReadError with timed-out kind, got %#v", err)
	}
}

func TestReceiveTreatsDeadlineAsTimeout(t *testing.T) {
	conn := &fakeConn{target: "fake", steps: []readStep{{err: os.ErrDeadlineExceeded}}}
	r := newTestReader(conn)

	_, err := r.Receive(make([]byte, 8))
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestReceiveWaitFailure(t *testing.T) {
	conn := newFakeConn("fake", "&a#")
	conn.waitErr = errors.New("bad descriptor")
	r := newTestReader(conn)

	_, err := r.Receive(make([]byte, 8))
	if !errors.Is(err, ErrWaitFailed) {
		t.Fatalf("expected wait failure, got %v", err)
	}
	if conn.reads != 0 {
		t.Fatalf("read must not be attempted after a failed wait, reads=%d", conn.reads)
	}
}

func TestReceiveReadFailureDropsPartialMessage(t *testing.T) {
	conn := &fakeConn{target: "fake", steps: []readStep{
		{data: []byte("&par")},
		{err: io.EOF},
	}}
	r := newTestReader(conn)

	buf := make([]byte, 16)
	n, err := r.Receive(buf)
	if n != 0 {
		t.Fatalf("expected partial bytes to be dropped, got n=%d", n)
	}
	if !errors.Is(err, ErrReadFailed) || !errors.Is(err, io.EOF) {
		t.Fatalf("expected read failure wrapping EOF, got %v", err)
	}
	var readErr *ReadError
	if !errors.As(err, &readErr) || readErr.Kind != ReadFailed {
		t.Fatalf("expected read-failed kind, got %#v", err)
	}
}

func TestReceiveFillsCapacityWithoutEndMarker(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "&abcdef#&x#"))

	buf := make([]byte, 3)
	n, err := r.Receive(buf)
	if n != 3 {
		t.Fatalf("expected capacity-sized result, got %d", n)
	}
	if !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("expected ErrFrameTooLong, got %v", err)
	}
	if string(buf) != "abc" {
		t.Fatalf("unexpected bytes: %q", string(buf))
	}

	// The tail of the oversized message is skipped while syncing.
	if got := receiveString(t, r, 8); got != "x" {
		t.Fatalf("expected next message, got %q", got)
	}
}

func TestReceiveEndMarkerJustPastCapacity(t *testing.T) {
	r := newTestReader(newFakeConn("fake", "&abc#"))

	buf := make([]byte, 3)
	n, err := r.Receive(buf)
	if n != 3 || !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("expected full buffer without terminator, got n=%d err=%v", n, err)
	}
}

func TestReceiveZeroCapacityOnlySyncs(t *testing.T) {
	conn := newFakeConn("fake", "zz&abc#")
	r := newTestReader(conn)

	n, err := r.Receive(nil)
	if n != 0 || !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("unexpected result: n=%d err=%v", n, err)
	}
	offset, _ := r.Buffer().Cursors()
	if offset != 3 {
		t.Fatalf("expected cursor right after start marker, got %d", offset)
	}
}

func TestReceiveLargeMessageSpanningFullBuffers(t *testing.T) {
	body := strings.Repeat("x", ReadBufferSize+100)
	stream := "&" + body + "#"
	conn := newFakeConn("fake", stream[:ReadBufferSize], stream[ReadBufferSize:])
	r := newTestReader(conn)

	if got := receiveString(t, r, len(body)+1); got != body {
		t.Fatalf("payload length mismatch: got %d want %d", len(got), len(body))
	}
}

func TestReadBufferCursorInvariant(t *testing.T) {
	messages := []string{"a", "bcd", "", "efghij", "k"}
	stream := ""
	for _, msg := range messages {
		stream += "~&" + msg + "#"
	}

	for chunk := 1; chunk <= len(stream); chunk++ {
		var chunks []string
		for i := 0; i < len(stream); i += chunk {
			chunks = append(chunks, stream[i:min(i+chunk, len(stream))])
		}
		r := newTestReader(newFakeConn("fake", chunks...))

		for _, want := range messages {
			got := receiveString(t, r, 16)
			if got != want {
				t.Fatalf("chunk=%d: got %q want %q", chunk, got, want)
			}
			offset, fullness := r.Buffer().Cursors()
			if offset < 0 || offset > fullness || fullness > ReadBufferSize {
				t.Fatalf("chunk=%d: cursor invariant violated: offset=%d fullness=%d", chunk, offset, fullness)
			}
		}
	}
}

func TestReadErrorKindString(t *testing.T) {
	tests := []struct {
		kind ReadErrorKind
		want string
	}{
		{ReadWaitFailed, "wait-failed"},
		{ReadTimedOut, "timed-out"},
		{ReadFailed, "read-failed"},
		{ReadErrorKind(0), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Fatalf("kind %d: got %q want %q", tc.kind, got, tc.want)
		}
	}
}
