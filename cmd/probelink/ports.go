package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

const (
	bmpVendorID  = "1D50"
	bmpProductID = "6018"
)

var listPorts = enumerator.GetDetailedPortsList

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List all serial ports with USB details",
		Long: `List every serial port the operating system reports, with USB
vendor and product ids. Black Magic Probe interfaces are marked with '*'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := listPorts()
			if err != nil {
				return fmt.Errorf("enumerate serial ports: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, " \tPORT\tVID:PID\tSERIAL\tPRODUCT")
			for _, p := range ports {
				if p == nil {
					continue
				}
				mark := " "
				if isProbePort(p) {
					mark = "*"
				}
				ids := "-"
				if p.IsUSB {
					ids = strings.ToUpper(p.VID) + ":" + strings.ToUpper(p.PID)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, p.Name, ids, dash(p.SerialNumber), dash(p.Product))
			}
			return w.Flush()
		},
	}
}

func isProbePort(p *enumerator.PortDetails) bool {
	return p.IsUSB && strings.EqualFold(p.VID, bmpVendorID) && strings.EqualFold(p.PID, bmpProductID)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}

	return s
}
