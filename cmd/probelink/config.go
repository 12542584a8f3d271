package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(root), newConfigSaveCmd(root))

	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with flag overrides applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtimeFor(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			raw, err := json.MarshalIndent(rt.Config, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", raw)
			return err
		},
	}
}

func newConfigSaveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the configuration with flag overrides applied to the config file",
		Long: `Write the effective configuration to the config file so that flags
given now become the defaults of later runs.

Examples:
  probelink config save -s 7BB1 --timeout 500ms
  probelink config save -d bmp.local:2000 --capture`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtimeFor(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if err := rt.SaveConfig(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", rt.Paths.ConfigFile)
			return err
		},
	}
}
