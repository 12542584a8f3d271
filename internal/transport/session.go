package transport

import (
	"context"
	"time"
)

// Session owns one probe connection together with its read buffer. A Session
// is not safe for concurrent use; confine it to one goroutine.
type Session struct {
	resolver    *Resolver
	observer    Observer
	waitTimeout time.Duration

	conn   Conn
	reader *FramedReader
	writer *Writer
}

type SessionOption func(*Session)

func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithWaitTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.SetWaitTimeout(d)
	}
}

func NewSession(resolver *Resolver, opts ...SessionOption) *Session {
	if resolver == nil {
		resolver = NewResolver()
	}
	s := &Session{
		resolver:    resolver,
		observer:    nopObserver{},
		waitTimeout: DefaultWaitTimeout,
	}
	s.reader = NewFramedReader(nil, s.WaitTimeout)
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetWaitTimeout changes how long a receive waits for each chunk of data.
// Non-positive values restore DefaultWaitTimeout.
func (s *Session) SetWaitTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultWaitTimeout
	}
	s.waitTimeout = d
}

func (s *Session) WaitTimeout() time.Duration {
	return s.waitTimeout
}

// Open resolves and opens the probe described by sel. A connection that is
// already open is closed first.
func (s *Session) Open(ctx context.Context, sel Selection) error {
	if err := s.Close(); err != nil {
		transportLogger("session").Warn("close previous connection failed", "error", err)
	}

	conn, err := s.resolver.Open(ctx, sel)
	if err != nil {
		return err
	}

	return s.Attach(conn)
}

// Attach hands conn over to the session. The previous connection, if any, is
// closed the same way Close does it and buffered input is discarded. conn is
// attached even when closing the previous one fails; that error is returned.
func (s *Session) Attach(conn Conn) error {
	var closeErr error
	if s.conn != nil && s.conn != conn {
		closeErr = s.Close()
	}

	s.conn = conn
	s.reader.attach(conn)
	s.writer = NewWriter(conn, conn.Target())
	transportLogger("session", "kind", conn.Kind(), "target", conn.Target()).Info("attached")
	s.observer.Connected(conn.Kind(), conn.Target())

	return closeErr
}

// Close releases the connection. Closing a closed session is a no-op.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}

	conn := s.conn
	s.conn = nil
	s.writer = nil
	s.reader.attach(nil)

	err := conn.Close()
	logger := transportLogger("session", "target", conn.Target())
	if err != nil {
		logger.Warn("close failed", "error", err)
	} else {
		logger.Info("closed")
	}
	s.observer.Disconnected(conn.Target(), err)

	return err
}

func (s *Session) IsOpen() bool {
	return s.conn != nil
}

func (s *Session) Target() string {
	if s.conn == nil {
		return ""
	}

	return s.conn.Target()
}

func (s *Session) Kind() Kind {
	if s.conn == nil {
		return ""
	}

	return s.conn.Kind()
}

// Send writes p in one attempt. See Writer.Send.
func (s *Session) Send(p []byte) (bool, error) {
	if s.conn == nil {
		return false, ErrNotOpen
	}

	ok, err := s.writer.Send(p)
	if ok {
		s.observer.FrameOut(p)
	}

	return ok, err
}

// Receive reads the next message into dst. See FramedReader.Receive.
func (s *Session) Receive(dst []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrNotOpen
	}

	n, err := s.reader.Receive(dst)
	if n > 0 {
		s.observer.FrameIn(dst[:n])
	}

	return n, err
}

// BufferCursors exposes the read buffer position for diagnostics.
func (s *Session) BufferCursors() (offset, fullness int) {
	return s.reader.Buffer().Cursors()
}
