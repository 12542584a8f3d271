package main

import (
	"encoding/hex"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newCapturesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captures",
		Short: "Inspect recorded wire captures",
	}
	cmd.AddCommand(newCapturesListCmd(root), newCapturesShowCmd(root))

	return cmd
}

func newCapturesListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List capture sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtimeFor(cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			sessions, err := rt.CaptureRepo.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTRANSPORT\tTARGET\tSTARTED\tDURATION\tFRAMES\tERROR")
			for _, s := range sessions {
				duration := "open"
				if !s.EndedAt.IsZero() {
					duration = s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Transport, s.Target, s.StartedAt.Format(time.RFC3339), duration, s.Frames, dash(s.Error))
			}
			return w.Flush()
		},
	}
}

func newCapturesShowCmd(root *rootOptions) *cobra.Command {
	var asHex bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the frames of one capture session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.runtimeFor(cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			frames, err := rt.CaptureRepo.Frames(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				return fmt.Errorf("no frames recorded for session %q", args[0])
			}

			out := cmd.OutOrStdout()
			for _, f := range frames {
				payload := string(f.Payload)
				if asHex {
					payload = hex.EncodeToString(f.Payload)
				}
				arrow := "<-"
				if f.Direction == "out" {
					arrow = "->"
				}
				if _, err := fmt.Fprintf(out, "%s %s %s\n", f.RecordedAt.Format("15:04:05.000"), arrow, payload); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "print payloads hex encoded")

	return cmd
}
