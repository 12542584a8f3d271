package transport

import (
	"errors"
	"fmt"

	"github.com/skobkin/probelink/internal/discovery"
)

var (
	ErrNameTooLong   = errors.New("hostname:port is too long")
	ErrNoSeparator   = errors.New("device is not a network address in the form hostname:port")
	ErrResolveFailed = errors.New("address resolution failed")
	ErrConnectFailed = errors.New("all connection attempts failed")
	ErrOpenFailed    = errors.New("device open failed")
	ErrSetup         = errors.New("raw mode setup failed")
	ErrNotOpen       = errors.New("transport is not open")

	// ErrNoProbes and ErrAmbiguous come from probe discovery.
	ErrNoProbes  = discovery.ErrNoProbes
	ErrAmbiguous = discovery.ErrAmbiguous

	// ErrFrameTooLong is returned together with a full destination buffer
	// when no end marker arrived within its capacity.
	ErrFrameTooLong = errors.New("message exceeds receive buffer")

	ErrWaitFailed = errors.New("waiting for probe data failed")
	ErrTimedOut   = errors.New("timeout while waiting for probe response")
	ErrReadFailed = errors.New("failed to read probe response")
)

// ReadErrorKind classifies a failed buffer refill.
type ReadErrorKind int

const (
	ReadWaitFailed ReadErrorKind = iota + 1
	ReadTimedOut
	ReadFailed
)

func (k ReadErrorKind) String() string {
	switch k {
	case ReadWaitFailed:
		return "wait-failed"
	case ReadTimedOut:
		return "timed-out"
	case ReadFailed:
		return "read-failed"
	default:
		return "unknown"
	}
}

func (k ReadErrorKind) sentinel() error {
	switch k {
	case ReadWaitFailed:
		return ErrWaitFailed
	case ReadTimedOut:
		return ErrTimedOut
	default:
		return ErrReadFailed
	}
}

// ReadError reports why a receive was aborted.
type ReadError struct {
	Kind ReadErrorKind
	Err  error
}

func (e *ReadError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}

	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *ReadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}

	return []error{e.Kind.sentinel(), e.Err}
}

// SetupError is returned when an opened serial device cannot be switched to
// raw mode.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSetup, e.Op, e.Err)
}

func (e *SetupError) Unwrap() []error {
	return []error{ErrSetup, e.Err}
}

// FatalWriteError marks an I/O failure while sending. Message framing can not
// be trusted after it, so the owner of the session is expected to shut down.
type FatalWriteError struct {
	Target  string
	Written int
	Err     error
}

func (e *FatalWriteError) Error() string {
	return fmt.Sprintf("failed to write to %s: %v", e.Target, e.Err)
}

func (e *FatalWriteError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must terminate the session owner.
func IsFatal(err error) bool {
	var fatal *FatalWriteError

	return errors.As(err, &fatal)
}
