package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fwojciec/tutor"
	"github.com/spf13/cobra"
)

const defaultPreamblePath = ".tutor/preamble.md"

// options holds the flags shared by every command.
type options struct {
	provider        string
	model           string
	apiKey          string
	preamble        string
	temperature     float64
	maxOutputTokens int
	opening         bool
	openingPrompt   string
	logLevel        string
}

func newRootCmd(e env) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "tutor",
		Short: "Language tutoring chat backed by an LLM",
		Long: `tutor runs a tutoring conversation: the student answers, the model
coaches, following the instruction preamble.

  tutor chat                   Chat in the terminal
  tutor serve --addr :8080     Serve the HTTP and websocket API
  tutor telegram               Answer Telegram chats`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.provider, "provider", "", "Provider: gemini, anthropic, ark (auto-detected from env vars if omitted)")
	f.StringVar(&opts.model, "model", "", "Model ID (default: provider default)")
	f.StringVar(&opts.apiKey, "api-key", "", "API key (overrides the provider's env var)")
	f.StringVar(&opts.preamble, "preamble", defaultPreamblePath, "Path to the instruction preamble")
	f.Float64Var(&opts.temperature, "temperature", 0.7, "Sampling temperature in [0, 2]; negative uses the provider default")
	f.IntVar(&opts.maxOutputTokens, "max-output-tokens", 2048, "Maximum tokens per reply (0 uses the provider default)")
	f.BoolVar(&opts.opening, "opening", false, "Ask the model for an opening turn before the student writes")
	f.StringVar(&opts.openingPrompt, "opening-prompt", tutor.DefaultOpeningPrompt, "Hidden student line that requests the opening turn")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newChatCmd(opts, e),
		newServeCmd(opts, e),
		newTelegramCmd(opts, e),
	)
	return cmd
}

// setup resolves the provider and builds the session configuration.
func (o *options) setup(ctx context.Context, e env) (tutor.Provider, tutor.Config, error) {
	rp, err := resolveProvider(ctx, o.provider, o.apiKey, o.model, e)
	if err != nil {
		return nil, tutor.Config{}, err
	}
	preamble, err := readPreamble(o.preamble)
	if err != nil {
		return nil, tutor.Config{}, err
	}
	cfg := tutor.Config{
		Model:           o.model,
		Preamble:        preamble,
		MaxOutputTokens: o.maxOutputTokens,
		Opening:         o.opening,
		OpeningPrompt:   o.openingPrompt,
	}
	if cfg.Model == "" {
		cfg.Model = rp.defaultModel
	}
	if o.temperature >= 0 {
		t := o.temperature
		cfg.Temperature = &t
	}
	if err := cfg.Validate(); err != nil {
		return nil, tutor.Config{}, err
	}
	return rp.provider, cfg, nil
}

func readPreamble(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read preamble: %w: %w", tutor.ErrConfiguration, err)
	}
	return string(data), nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, tutor.ErrConfiguration)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
