// Package telegram serves tutor sessions to Telegram chats over long
// polling. Each chat has its own session.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/tutor"
	"github.com/fwojciec/tutor/goldmark"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// maxMessageRunes is the Telegram limit on message text.
	maxMessageRunes = 4096
	pollTimeout     = 30
	typingInterval  = 4 * time.Second
)

// API is the part of the Telegram Bot API the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// NewAPI connects to the Bot API with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token is empty: %w", tutor.ErrConfiguration)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w: %w", tutor.ErrConfiguration, err)
	}
	return api, nil
}

// Bot answers Telegram messages with a tutor session per chat.
type Bot struct {
	api        API
	newSession func() *tutor.Session
	logger     *slog.Logger
	typing     time.Duration

	mu    sync.Mutex
	chats map[int64]*tutor.Session
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}

// New creates a Bot that starts sessions with newSession.
func New(api API, newSession func() *tutor.Session, opts ...Option) *Bot {
	b := &Bot{
		api:        api,
		newSession: newSession,
		logger:     slog.New(slog.DiscardHandler),
		typing:     typingInterval,
		chats:      make(map[int64]*tutor.Session),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("telegram bot listening")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	chatID := msg.Chat.ID

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, chatID, msg.MessageID, text)
		return
	}

	sess := b.session(chatID)
	if sess.State() == tutor.StateUninitialized {
		if !b.open(ctx, chatID, msg.MessageID, sess) {
			return
		}
	}
	reply, err := b.withTyping(ctx, chatID, func() (string, error) {
		return sess.Submit(ctx, text)
	})
	b.answer(chatID, msg.MessageID, sess, reply, err)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, replyTo int, text string) {
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Strip @botname suffix from commands (e.g. /new@tutorbot → /new).
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start", "/new":
		b.reset(ctx, chatID, replyTo)
	case "/retry":
		sess := b.session(chatID)
		reply, err := b.withTyping(ctx, chatID, func() (string, error) {
			return sess.Retry(ctx)
		})
		b.answer(chatID, replyTo, sess, reply, err)
	case "/help":
		b.send(chatID, replyTo, helpText)
	default:
		b.send(chatID, replyTo, fmt.Sprintf("Unknown command %s. Try /help", cmd))
	}
}

const helpText = `Send your answer as a normal message.

/new starts over with a fresh session.
/retry resends your last message if it got no answer.`

// reset replaces the chat's session and initializes it, sending the
// opening turn when there is one.
func (b *Bot) reset(ctx context.Context, chatID int64, replyTo int) {
	sess := b.newSession()
	b.mu.Lock()
	b.chats[chatID] = sess
	b.mu.Unlock()
	b.logger.Info("session started", "chat", chatID, "session", sess.ID)

	if b.open(ctx, chatID, replyTo, sess) && len(sess.Transcript()) == 0 {
		b.send(chatID, replyTo, "New session started. "+helpText)
	}
}

// open initializes sess and sends the opening turn when there is one. It
// reports whether the session is ready for student messages.
func (b *Bot) open(ctx context.Context, chatID int64, replyTo int, sess *tutor.Session) bool {
	_, err := b.withTyping(ctx, chatID, func() (string, error) {
		return "", sess.Initialize(ctx)
	})
	if err != nil {
		b.answer(chatID, replyTo, sess, "", err)
		return false
	}
	if turns := sess.Transcript(); len(turns) > 0 {
		b.send(chatID, replyTo, goldmark.Plain(turns[len(turns)-1].Text))
	}
	return true
}

// session returns the chat's session, creating one on first contact.
func (b *Bot) session(chatID int64) *tutor.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.chats[chatID]
	if !ok {
		sess = b.newSession()
		b.chats[chatID] = sess
		b.logger.Info("session started", "chat", chatID, "session", sess.ID)
	}
	return sess
}

// withTyping shows the typing indicator while fn runs.
func (b *Bot) withTyping(ctx context.Context, chatID int64, fn func() (string, error)) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(b.typing)
		defer ticker.Stop()
		for {
			if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
				b.logger.Debug("chat action failed", "chat", chatID, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return fn()
}

func (b *Bot) answer(chatID int64, replyTo int, sess *tutor.Session, reply string, err error) {
	if err != nil {
		kind := tutor.Classify(err)
		b.logger.Warn("request failed", "chat", chatID, "session", sess.ID, "kind", kind.String(), "error", err)
		text := "✗ " + kind.Hint()
		if kind.Retryable() && sess.Pending() {
			text += " Send /retry to resend."
		}
		b.send(chatID, replyTo, text)
		return
	}
	b.send(chatID, replyTo, goldmark.Plain(reply))
}

func (b *Bot) send(chatID int64, replyTo int, text string) {
	for i, part := range splitMessage(text, maxMessageRunes) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Warn("send failed", "chat", chatID, "error", err)
			return
		}
	}
}

// splitMessage cuts text into parts of at most limit runes, preferring
// line breaks.
func splitMessage(text string, limit int) []string {
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	return append(parts, string(runes))
}
