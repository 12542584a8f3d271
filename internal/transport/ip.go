package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// MaxHostPortLen is the exclusive upper bound on a hostname:port string.
const MaxHostPortLen = 256

type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SplitHostPort splits a device string of the form hostname:port at its first
// colon. Bracketed IPv6 literals such as [::1]:2000 are accepted as well.
func SplitHostPort(device string) (host, service string, err error) {
	if len(device) >= MaxHostPortLen {
		return "", "", fmt.Errorf("%w: %d bytes, limit is %d", ErrNameTooLong, len(device), MaxHostPortLen-1)
	}
	if strings.HasPrefix(device, "[") {
		host, service, err = net.SplitHostPort(device)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrNoSeparator, err)
		}
	} else {
		var ok bool
		host, service, ok = strings.Cut(device, ":")
		if !ok {
			return "", "", ErrNoSeparator
		}
	}
	if service == "" {
		return "", "", fmt.Errorf("%w: empty port", ErrNoSeparator)
	}

	return host, service, nil
}

type ipConn struct {
	net.Conn
	target string
}

func (c *ipConn) Kind() Kind {
	return KindNetwork
}

func (c *ipConn) Target() string {
	return c.target
}

func (c *ipConn) SetWaitTimeout(d time.Duration) error {
	if d <= 0 {
		d = DefaultWaitTimeout
	}

	return c.SetReadDeadline(time.Now().Add(d))
}

// dialNetwork resolves device as hostname:port and connects to the first
// address that accepts, in resolution order.
func (r *Resolver) dialNetwork(ctx context.Context, device string) (Conn, error) {
	host, service, err := SplitHostPort(device)
	if err != nil {
		return nil, err
	}
	logger := transportLogger("ip", "host", host, "service", service)

	addrs, err := r.lookup.LookupHost(ctx, host)
	if err != nil {
		logger.Debug("resolve host failed", "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s: no addresses", ErrResolveFailed, host)
	}
	port, err := r.lookup.LookupPort(ctx, "tcp", service)
	if err != nil {
		logger.Debug("resolve service failed", "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, service, err)
	}

	var dialErrs []error
	for _, addr := range addrs {
		target := net.JoinHostPort(addr, strconv.Itoa(port))
		logger.Debug("connecting", "target", target)
		conn, err := r.dial(ctx, "tcp", target)
		if err != nil {
			dialErrs = append(dialErrs, err)

			continue
		}
		logger.Info("connected", "remote", conn.RemoteAddr().String())
		return &ipConn{Conn: conn, target: target}, nil
	}

	logger.Warn("connect failed", "attempts", len(dialErrs))

	return nil, fmt.Errorf("%w: %w", ErrConnectFailed, errors.Join(dialErrs...))
}
