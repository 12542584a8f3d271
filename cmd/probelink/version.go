package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skobkin/probelink/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", app.Name, app.BuildVersionWithDate())
			return err
		},
	}
}
