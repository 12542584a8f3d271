package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/skobkin/probelink/internal/discovery"
)

// Selection names the probe to open. With an empty Device the probe is
// looked up among local serial devices, optionally narrowed by a (partial)
// serial number.
type Selection struct {
	Device string
	Serial string
}

// Resolver turns a Selection into an open Conn: a local serial device first,
// a hostname:port connection if that fails.
type Resolver struct {
	byIDDir     string
	dialTimeout time.Duration

	openSerial func(path string) (Conn, error)
	lookup     hostResolver
	dial       dialFunc
}

type ResolverOption func(*Resolver)

// WithByIDDir overrides discovery.DefaultDir.
func WithByIDDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.byIDDir = dir
	}
}

func WithDialTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.dialTimeout = d
		}
	}
}

// WithSerialOpener replaces OpenSerial, mostly for tests.
func WithSerialOpener(open func(path string) (Conn, error)) ResolverOption {
	return func(r *Resolver) {
		r.openSerial = open
	}
}

func withHostResolver(lookup hostResolver) ResolverOption {
	return func(r *Resolver) {
		r.lookup = lookup
	}
}

func withDialer(dial dialFunc) ResolverOption {
	return func(r *Resolver) {
		r.dial = dial
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		byIDDir:     discovery.DefaultDir,
		dialTimeout: DefaultDialTimeout,
		openSerial:  OpenSerial,
		lookup:      net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dial == nil {
		dialer := &net.Dialer{Timeout: r.dialTimeout}
		r.dial = dialer.DialContext
	}

	return r
}

// DevicePath resolves sel to the path or address that Open would try first.
func (r *Resolver) DevicePath(sel Selection) (string, error) {
	if sel.Device == "" {
		return discovery.Resolve(r.byIDDir, sel.Serial)
	}

	path, truncated := BoundDevicePath(sel.Device)
	if truncated {
		transportLogger("resolver").Warn("device path truncated", "len", len(sel.Device), "limit", MaxDevicePathLen)
	}

	return path, nil
}

// Open resolves sel and opens the probe. Configuration errors (no probe,
// ambiguous selection, bad address) and raw mode setup errors are returned
// without any retry.
func (r *Resolver) Open(ctx context.Context, sel Selection) (Conn, error) {
	path, err := r.DevicePath(sel)
	if err != nil {
		return nil, err
	}
	logger := transportLogger("resolver", "device", path)

	conn, serialErr := r.openSerial(path)
	if serialErr == nil {
		return conn, nil
	}
	if errors.Is(serialErr, ErrSetup) {
		return nil, serialErr
	}

	logger.Debug("not a serial device, trying network", "error", serialErr)
	conn, netErr := r.dialNetwork(ctx, path)
	if netErr == nil {
		return conn, nil
	}
	logger.Error("could not open probe", "serial_error", serialErr, "network_error", netErr)

	return nil, errors.Join(fmt.Errorf("%w: %w", ErrOpenFailed, serialErr), netErr)
}
