package transport

import (
	"io"
	"time"
)

// Kind tells which kind of link a Conn runs over.
type Kind string

const (
	KindSerial  Kind = "serial"
	KindNetwork Kind = "ip"
)

const (
	// StartMarker opens a probe response inside the byte stream.
	StartMarker byte = '&'
	// EndMarker closes a message.
	EndMarker byte = '#'

	DefaultWaitTimeout = 2 * time.Second
	DefaultDialTimeout = 6 * time.Second
)

// Conn is an open byte stream to the probe.
//
// Read follows go.bug.st/serial semantics: once a wait timeout is armed with
// SetWaitTimeout, Read returns as soon as any data is available, and returns
// either 0 bytes with a nil error or os.ErrDeadlineExceeded when nothing
// arrived within the window.
type Conn interface {
	io.ReadWriteCloser
	SetWaitTimeout(d time.Duration) error
	Kind() Kind
	Target() string
}

// Observer receives wire-level notifications from a Session. Implementations
// must not block.
type Observer interface {
	Connected(kind Kind, target string)
	Disconnected(target string, err error)
	FrameOut(payload []byte)
	FrameIn(payload []byte)
}

type nopObserver struct{}

func (nopObserver) Connected(Kind, string)     {}
func (nopObserver) Disconnected(string, error) {}
func (nopObserver) FrameOut([]byte)            {}
func (nopObserver) FrameIn([]byte)             {}
