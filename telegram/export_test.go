package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleMessage exports handleMessage for testing.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	b.handleMessage(ctx, msg)
}

// SplitMessage exports splitMessage for testing.
func SplitMessage(text string, limit int) []string {
	return splitMessage(text, limit)
}
