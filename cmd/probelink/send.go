package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skobkin/probelink/internal/app"
	"github.com/skobkin/probelink/internal/transport"
)

// handshakeRequest starts a remote protocol session and asks for the firmware version.
const handshakeRequest = "+#!GA#"

type sendOptions struct {
	hexRequest bool
	hexReply   bool
	noReply    bool
	bufferSize int
}

func newSendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send [request]",
		Short: "Send one request to the probe and print the reply",
		Long: `Open the probe, send one request and print the payload of the reply
that follows. Without a request the session handshake "` + handshakeRequest + `" is sent.

Exit status is 2 when the probe link fails while writing.

Examples:
  probelink send
  probelink send -s 7BB1 '!GA#'
  probelink send -d bmp.local:2000 --hex-reply '!HC#'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := buildRequest(args, opts.hexRequest)
			if err != nil {
				return err
			}

			rt, err := root.runtimeFor(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if err := rt.OpenProbe(); err != nil {
				return err
			}

			if opts.noReply {
				ok, err := rt.Session.Send(request)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("request to %s was not fully written", rt.Session.Target())
				}
				return nil
			}

			reply, err := app.Exchange(rt.Session, request, opts.bufferSize)
			if len(reply) > 0 || err == nil {
				if printErr := printReply(cmd, reply, opts.hexReply); printErr != nil {
					return printErr
				}
			}
			if errors.Is(err, transport.ErrFrameTooLong) {
				return fmt.Errorf("reply truncated to %d bytes: %w", len(reply), err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.hexRequest, "hex-request", false, "request argument is hex encoded")
	flags.BoolVar(&opts.hexReply, "hex-reply", false, "print the reply hex encoded")
	flags.BoolVar(&opts.noReply, "no-reply", false, "do not wait for a reply")
	flags.IntVar(&opts.bufferSize, "buffer", app.ReplyBufferSize, "maximum reply payload size in bytes")

	return cmd
}

func buildRequest(args []string, isHex bool) ([]byte, error) {
	if len(args) == 0 {
		return []byte(handshakeRequest), nil
	}
	if !isHex {
		return []byte(args[0]), nil
	}

	raw, err := hex.DecodeString(strings.ReplaceAll(args[0], " ", ""))
	if err != nil {
		return nil, fmt.Errorf("decode hex request: %w", err)
	}

	return raw, nil
}

func printReply(cmd *cobra.Command, reply []byte, isHex bool) error {
	out := cmd.OutOrStdout()
	if isHex {
		_, err := fmt.Fprintln(out, hex.EncodeToString(reply))
		return err
	}
	_, err := fmt.Fprintf(out, "%s\n", reply)

	return err
}
