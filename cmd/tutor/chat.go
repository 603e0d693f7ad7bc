package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/tutor"
	bt "github.com/fwojciec/tutor/bubbletea"
	tutorjson "github.com/fwojciec/tutor/json"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *options, e env) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			provider, cfg, err := opts.setup(ctx, e)
			if err != nil {
				return err
			}
			session := tutor.NewSession(provider, cfg)

			if err := bt.Run(ctx, bt.New(session, tutor.DefaultTheme())); err != nil {
				return fmt.Errorf("TUI: %w", err)
			}

			if export != "" {
				data, err := tutorjson.MarshalSession(session)
				if err != nil {
					return fmt.Errorf("export transcript: %w", err)
				}
				if err := os.WriteFile(export, data, 0o600); err != nil {
					return fmt.Errorf("export transcript: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Transcript written to %s\n", export)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "Write the transcript as JSON to this file on exit")
	return cmd
}
