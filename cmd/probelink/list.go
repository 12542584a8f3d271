package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skobkin/probelink/internal/discovery"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List Black Magic Probe GDB ports",
		Long: `List the probe GDB ports found in the by-id directory.

Entries matching --serial are marked with '*'.

Examples:
  probelink list
  probelink list -s 7BB1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.runtimeFor(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			dir := rt.Config.Probe.ByIDDir
			filter := rt.Config.Probe.Serial
			probes, err := discovery.List(dir)
			if err != nil {
				return fmt.Errorf("%w: %w", discovery.ErrNoProbes, err)
			}
			if len(probes) == 0 {
				return discovery.ErrNoProbes
			}

			out := cmd.OutOrStdout()
			for _, name := range probes {
				mark := " "
				if filter != "" && discovery.MatchSerial(name, filter) {
					mark = "*"
				}
				if _, err := fmt.Fprintf(out, "%s %s\n", mark, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
