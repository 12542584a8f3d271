package app

import (
	"fmt"
	"io"

	"github.com/skobkin/probelink/internal/config"
	"github.com/skobkin/probelink/internal/transport"
)

// SelectionFromConfig maps probe settings onto a transport selection.
func SelectionFromConfig(cfg config.ProbeConfig) transport.Selection {
	return transport.Selection{
		Device: cfg.Device,
		Serial: cfg.Serial,
	}
}

// NewProbeSession builds a closed session configured from cfg.
func NewProbeSession(cfg config.ProbeConfig, observer transport.Observer) *transport.Session {
	resolver := transport.NewResolver(
		transport.WithByIDDir(cfg.ByIDDir),
		transport.WithDialTimeout(cfg.DialTimeout()),
	)

	return transport.NewSession(resolver,
		transport.WithWaitTimeout(cfg.WaitTimeout()),
		transport.WithObserver(observer),
	)
}

// Exchange sends one request and reads one reply of at most capacity bytes.
// On transport.ErrFrameTooLong the truncated reply is returned with the error.
func Exchange(s *transport.Session, request []byte, capacity int) ([]byte, error) {
	if capacity <= 0 {
		capacity = ReplyBufferSize
	}

	ok, err := s.Send(request)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("send request to %s: %w", s.Target(), io.ErrShortWrite)
	}

	reply := make([]byte, capacity)
	n, err := s.Receive(reply)

	return reply[:n], err
}
