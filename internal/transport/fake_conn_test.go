package transport

import (
	"errors"
	"time"
)

type readStep struct {
	data []byte
	err  error
}

// fakeConn replays scripted reads. Once the script is exhausted every Read
// behaves like an expired serial read timeout.
type fakeConn struct {
	target string
	kind   Kind

	steps   []readStep
	waitErr error

	shortWrite int
	writeErr   error
	written    [][]byte

	waits    []time.Duration
	reads    int
	closed   bool
	closeErr error
}

func newFakeConn(target string, chunks ...string) *fakeConn {
	c := &fakeConn{target: target, kind: KindSerial}
	for _, chunk := range chunks {
		c.steps = append(c.steps, readStep{data: []byte(chunk)})
	}

	return c
}

func (c *fakeConn) Kind() Kind {
	return c.kind
}

func (c *fakeConn) Target() string {
	return c.target
}

func (c *fakeConn) SetWaitTimeout(d time.Duration) error {
	c.waits = append(c.waits, d)

	return c.waitErr
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, errors.New("read from closed fake conn")
	}
	c.reads++
	if len(c.steps) == 0 {
		return 0, nil
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	n := copy(p, step.data)

	return n, step.err
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	n := len(p)
	if c.shortWrite > 0 && c.shortWrite < n {
		n = c.shortWrite
	}
	c.written = append(c.written, append([]byte(nil), p[:n]...))

	return n, nil
}

func (c *fakeConn) Close() error {
	c.closed = true

	return c.closeErr
}

type recordingObserver struct {
	connected    []string
	disconnected []string
	closeErrs    []error
	in           []string
	out          []string
}

func (o *recordingObserver) Connected(_ Kind, target string) {
	o.connected = append(o.connected, target)
}

func (o *recordingObserver) Disconnected(target string, err error) {
	o.disconnected = append(o.disconnected, target)
	o.closeErrs = append(o.closeErrs, err)
}

func (o *recordingObserver) FrameOut(p []byte) {
	o.out = append(o.out, string(p))
}

func (o *recordingObserver) FrameIn(p []byte) {
	o.in = append(o.in, string(p))
}
