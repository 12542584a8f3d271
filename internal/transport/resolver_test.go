//go:build !darwin

package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const (
	probeA = "usb-Black_Magic_Debug_Black_Magic_Probe_v1.10.0_7BB180B4-if00"
	probeB = "usb-1BitSquared_Black_Magic_Probe_v2.0.0_8BB20695-if00"
	probeC = "usb-Black_Sphere_Technologies_Black_Magic_Probe_E2C0C4C6-if00"
)

func makeByIDDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	return dir
}

func TestResolverOpenSelectsMatchingProbe(t *testing.T) {
	dir := makeByIDDir(t, probeA, probeB, probeC,
		"usb-Black_Magic_Debug_Black_Magic_Probe_v1.10.0_7BB180B4-if02",
		"usb-FTDI_FT232R_USB_UART_A50285BI-if00-port0",
	)

	var opened string
	r := NewResolver(WithByIDDir(dir), WithSerialOpener(func(path string) (Conn, error) {
		opened = path
		return newFakeConn(path), nil
	}))

	conn, err := r.Open(context.Background(), Selection{Serial: "8BB2"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if want := filepath.Join(dir, probeB); opened != want || conn.Target() != want {
		t.Fatalf("opened %q, want %q", opened, want)
	}
}

func TestResolverOpenNoProbes(t *testing.T) {
	dir := makeByIDDir(t, "usb-FTDI_FT232R_USB_UART_A50285BI-if00-port0")
	r := NewResolver(WithByIDDir(dir), WithSerialOpener(func(string) (Conn, error) {
		t.Fatalf("open must not be attempted")
		return nil, nil
	}))

	_, err := r.Open(context.Background(), Selection{})
	if !errors.Is(err, ErrNoProbes) {
		t.Fatalf("expected ErrNoProbes, got %v", err)
	}
}

func TestResolverOpenAmbiguous(t *testing.T) {
	dir := makeByIDDir(t, probeA, probeB)
	r := NewResolver(WithByIDDir(dir))

	_, err := r.Open(context.Background(), Selection{})
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestResolverExplicitDeviceSkipsDiscovery(t *testing.T) {
	r := NewResolver(WithByIDDir(filepath.Join(t.TempDir(), "missing")), WithSerialOpener(func(path string) (Conn, error) {
		return newFakeConn(path), nil
	}))

	conn, err := r.Open(context.Background(), Selection{Device: "/dev/ttyACM3", Serial: "ignored"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if conn.Target() != "/dev/ttyACM3" {
		t.Fatalf("unexpected target %q", conn.Target())
	}
}

func TestResolverSetupErrorDoesNotFallBackToNetwork(t *testing.T) {
	lookup := &fakeHostResolver{addrs: []string{"127.0.0.1"}, port: 2000}
	r := NewResolver(withHostResolver(lookup), WithSerialOpener(func(string) (Conn, error) {
		return nil, &SetupError{Op: "set mode", Err: errors.New("tcsetattr")}
	}))

	_, err := r.Open(context.Background(), Selection{Device: "bmp:2000"})
	if !errors.Is(err, ErrSetup) {
		t.Fatalf("expected setup error, got %v", err)
	}
	if lookup.lookups != 0 {
		t.Fatalf("network fallback must not run after a setup error")
	}
}

func TestResolverReportsBothFailures(t *testing.T) {
	r := NewResolver(WithSerialOpener(func(string) (Conn, error) {
		return nil, errors.New("no such file or directory")
	}))

	_, err := r.Open(context.Background(), Selection{Device: "/dev/ttyNOPE"})
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("expected ErrOpenFailed, got %v", err)
	}
	if !errors.Is(err, ErrNoSeparator) {
		t.Fatalf("expected network reason to be kept, got %v", err)
	}
}
