package transport

import (
	"time"

	"go.bug.st/serial"
)

// RawReadTimeoutUnit is the per-read timeout applied while the device is in
// raw mode (five tenths of a second, the termios VTIME granularity).
const RawReadTimeoutUnit = 500 * time.Millisecond

// The probe exposes a USB CDC-ACM port with no real UART behind it, so the
// baud rate is only a formality.
const rawBaudRate = 115200

type rawConfigurable interface {
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
}

// RawMode describes a byte-transparent 8N1 line. go.bug.st/serial applies it
// with canonical input, echo, signal characters, software and hardware flow
// control and output post-processing all switched off.
func RawMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: rawBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// ConfigureRaw puts an opened serial port into raw mode. Reads return as soon
// as any byte is available and give up after unit.
func ConfigureRaw(port rawConfigurable, unit time.Duration) error {
	if unit <= 0 {
		unit = RawReadTimeoutUnit
	}
	if err := port.SetMode(RawMode()); err != nil {
		return &SetupError{Op: "set mode", Err: err}
	}
	if err := port.SetReadTimeout(unit); err != nil {
		return &SetupError{Op: "set read timeout", Err: err}
	}

	return nil
}
