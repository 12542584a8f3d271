//go:build darwin

package discovery

import "fmt"

// Resolve picks a probe device path. macOS has no by-id directory, so the
// path is built from the serial number of the probe.
func Resolve(_ string, serial string) (string, error) {
	if serial == "" {
		return "", fmt.Errorf("%w: serial number is required on macOS", ErrNoProbes)
	}

	return "/dev/cu.usbmodem" + serial + "1", nil
}
