package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skobkin/probelink/internal/app"
	"github.com/skobkin/probelink/internal/config"
)

type rootOptions struct {
	configFile  string
	device      string
	serial      string
	waitTimeout time.Duration
	dialTimeout time.Duration
	logLevel    string
	capture     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   app.Name,
		Short: "Talk to a Black Magic Probe over USB serial or TCP",
		Long: `probelink opens the GDB port of a Black Magic Probe and exchanges
remote protocol messages with it.

The probe is picked from /dev/serial/by-id/ (optionally narrowed with a
partial serial number), or given explicitly as a device path. A device
that cannot be opened as a serial port is tried as a hostname:port address.`,
		Version:       app.BuildVersionWithDate(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file path (default: user config dir)")
	flags.StringVarP(&opts.device, "device", "d", "", "serial device path or hostname:port")
	flags.StringVarP(&opts.serial, "serial", "s", "", "(partial) serial number of the probe to use")
	flags.DurationVar(&opts.waitTimeout, "timeout", 0, "how long to wait for probe data (e.g. 2s)")
	flags.DurationVar(&opts.dialTimeout, "dial-timeout", 0, "TCP connect timeout")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.capture, "capture", false, "record wire traffic into the capture database")

	root.AddCommand(
		newListCmd(opts),
		newPortsCmd(),
		newSendCmd(opts),
		newCapturesCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return root
}

// runtimeFor builds the app runtime with the flags that were set on cmd.
func (o *rootOptions) runtimeFor(cmd *cobra.Command, openCaptureDB bool) (*app.Runtime, error) {
	flags := cmd.Flags()

	var waitMS, dialMS int
	if flags.Changed("timeout") {
		ms, err := durationFlagMS("timeout", o.waitTimeout)
		if err != nil {
			return nil, err
		}
		waitMS = ms
	}
	if flags.Changed("dial-timeout") {
		ms, err := durationFlagMS("dial-timeout", o.dialTimeout)
		if err != nil {
			return nil, err
		}
		dialMS = ms
	}

	return app.Initialize(cmd.Context(), app.Options{
		ConfigFile:    o.configFile,
		OpenCaptureDB: openCaptureDB,
		Override: func(cfg *config.AppConfig) {
			if flags.Changed("device") {
				cfg.Probe.Device = o.device
			}
			if flags.Changed("serial") {
				cfg.Probe.Serial = o.serial
			}
			if waitMS > 0 {
				cfg.Probe.WaitTimeoutMS = waitMS
			}
			if dialMS > 0 {
				cfg.Probe.DialTimeoutMS = dialMS
			}
			if flags.Changed("log-level") {
				cfg.Logging.Level = strings.TrimSpace(o.logLevel)
			}
			if flags.Changed("capture") {
				cfg.Capture.Enabled = o.capture
			}
		},
	})
}

// durationFlagMS converts a timeout flag to whole milliseconds, the
// granularity of the config file.
func durationFlagMS(name string, d time.Duration) (int, error) {
	if d < time.Millisecond {
		return 0, fmt.Errorf("--%s must be at least 1ms, got %s", name, d)
	}

	return int(d / time.Millisecond), nil
}
