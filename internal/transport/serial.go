package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// MaxDevicePathLen bounds an explicit device path. Longer paths are truncated
// by BoundDevicePath.
const MaxDevicePathLen = 4095

// BoundDevicePath truncates path to MaxDevicePathLen bytes. The second result
// reports whether truncation happened.
func BoundDevicePath(path string) (string, bool) {
	if len(path) <= MaxDevicePathLen {
		return path, false
	}

	return path[:MaxDevicePathLen], true
}

type serialConn struct {
	port serial.Port
	path string
}

// OpenSerial opens path as a serial device and switches it to raw mode.
func OpenSerial(path string) (Conn, error) {
	logger := transportLogger("serial", "path", path)

	port, err := serial.Open(path, RawMode())
	if err != nil {
		logger.Debug("open failed", "error", err)
		return nil, fmt.Errorf("open serial device %q: %w", path, err)
	}
	if err := ConfigureRaw(port, RawReadTimeoutUnit); err != nil {
		_ = port.Close()
		logger.Error("raw mode setup failed", "error", err)
		return nil, err
	}
	logger.Info("opened")

	return &serialConn{port: port, path: path}, nil
}

func (c *serialConn) Kind() Kind {
	return KindSerial
}

func (c *serialConn) Target() string {
	return c.path
}

func (c *serialConn) SetWaitTimeout(d time.Duration) error {
	if d <= 0 {
		d = DefaultWaitTimeout
	}

	return c.port.SetReadTimeout(d)
}

func (c *serialConn) Read(p []byte) (int, error) {
	return c.port.Read(p)
}

func (c *serialConn) Write(p []byte) (int, error) {
	return c.port.Write(p)
}

func (c *serialConn) Close() error {
	return c.port.Close()
}
