package main

import (
	"github.com/fwojciec/tutor"
	"github.com/fwojciec/tutor/telegram"
	"github.com/spf13/cobra"
)

func newTelegramCmd(opts *options, e env) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Answer Telegram chats over long polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			provider, cfg, err := opts.setup(ctx, e)
			if err != nil {
				return err
			}
			if token == "" {
				token = e.TelegramToken
			}
			api, err := telegram.NewAPI(token)
			if err != nil {
				return err
			}
			logger.Info("telegram bot authorized", "user", api.Self.UserName, "model", cfg.Model)

			bot := telegram.New(api,
				func() *tutor.Session { return tutor.NewSession(provider, cfg) },
				telegram.WithLogger(logger),
			)
			return bot.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Bot token (overrides TELEGRAM_BOT_TOKEN)")
	return cmd
}
