// Package discovery finds Black Magic Probe GDB ports among the serial
// devices listed by the operating system.
package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the udev directory of stable serial device names.
const DefaultDir = "/dev/serial/by-id/"

// GDBInterfaceSuffix marks the probe interface that speaks the remote
// protocol. The same probe also exposes an auxiliary UART on -if02.
const GDBInterfaceSuffix = "-if00"

// serialTailLen is the length of the interface suffix that follows the
// serial number in a by-id name.
const serialTailLen = len(GDBInterfaceSuffix)

var vendorPrefixes = []string{
	"usb-Black_Sphere_Technologies_Black_Magic_Probe",
	"usb-Black_Magic_Debug_Black_Magic_Probe",
	"usb-1BitSquared_Black_Magic_Probe",
}

var (
	ErrNoProbes  = errors.New("no probe found")
	ErrAmbiguous = errors.New("ambiguous or no probe match")
)

// Candidate describes one directory entry.
type Candidate struct {
	Name            string
	VendorMatch     bool
	InterfaceSuffix string
}

// Classify inspects a by-id entry name.
func Classify(name string) Candidate {
	c := Candidate{Name: name}
	for _, prefix := range vendorPrefixes {
		if strings.HasPrefix(name, prefix) {
			c.VendorMatch = true

			break
		}
	}
	if i := strings.LastIndexByte(name, '-'); i >= 0 {
		c.InterfaceSuffix = name[i:]
	}

	return c
}

func (c Candidate) IsGDBPort() bool {
	return c.VendorMatch && c.InterfaceSuffix == GDBInterfaceSuffix
}

// IsGDBPort reports whether name is the GDB interface of a known probe.
func IsGDBPort(name string) bool {
	return Classify(name).IsGDBPort()
}

// MatchSerial reports whether filter occurs in the serial number part of name:
// the text after the last '_' and before the interface suffix. The window
// assumes the suffix is exactly five bytes long. An empty filter matches.
func MatchSerial(name, filter string) bool {
	if filter == "" {
		return true
	}
	underscore := strings.LastIndexByte(name, '_')
	if underscore < 0 {
		return false
	}
	begin := underscore + 1
	end := len(name) - serialTailLen
	if end < begin {
		return false
	}

	return strings.Contains(name[begin:end], filter)
}

// SelectionError is returned when the filter did not single out one probe.
type SelectionError struct {
	Filter     string
	Matches    int
	Candidates []string
}

func (e *SelectionError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("%s: %d probes found, select one by serial number", ErrAmbiguous, len(e.Candidates))
	}

	return fmt.Sprintf("%s: no single match for (partial) serial number %q (%d matches among %d probes)",
		ErrAmbiguous, e.Filter, e.Matches, len(e.Candidates))
}

func (e *SelectionError) Unwrap() error {
	return ErrAmbiguous
}

// Result is the outcome of one directory scan.
type Result struct {
	Total   int
	Matches int
	// Path is the last matching candidate, joined with the directory.
	Path string
}

// Scan counts probe GDB ports in dir and the ones matching filter.
func Scan(dir, filter string) (Result, error) {
	names, err := readNames(dir)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, name := range names {
		if !IsGDBPort(name) {
			continue
		}
		res.Total++
		if !MatchSerial(name, filter) {
			continue
		}
		res.Matches++
		res.Path = filepath.Join(dir, name)
	}

	return res, nil
}

// List returns the names of all probe GDB ports in dir in directory order.
func List(dir string) ([]string, error) {
	names, err := readNames(dir)
	if err != nil {
		return nil, err
	}

	probes := make([]string, 0, len(names))
	for _, name := range names {
		if IsGDBPort(name) {
			probes = append(probes, name)
		}
	}

	return probes, nil
}

// Select resolves the device path of the single probe matching filter.
func Select(dir, filter string) (string, error) {
	logger := slog.With("component", "discovery", "dir", dir)

	res, err := Scan(dir, filter)
	if err != nil {
		logger.Warn("no serial devices found", "error", err)
		return "", fmt.Errorf("%w: %w", ErrNoProbes, err)
	}
	if res.Total == 0 {
		logger.Error("no probes found")
		return "", ErrNoProbes
	}
	if res.Matches != 1 {
		candidates, err := List(dir)
		if err != nil {
			logger.Error("could not rescan probes", "error", err)
		}
		logger.Info("available probes", "probes", candidates, "serial", filter)
		return "", &SelectionError{Filter: filter, Matches: res.Matches, Candidates: candidates}
	}
	logger.Debug("probe selected", "path", res.Path)

	return res.Path, nil
}

// readNames lists entry names sorted by name, as os.ReadDir does.
func readNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}
