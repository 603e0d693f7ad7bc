// Command tutor runs a language tutoring chat backed by an LLM.
//
// Usage:
//
//	GEMINI_API_KEY=... tutor chat [flags]
//	tutor serve --addr :8080
//	TELEGRAM_BOT_TOKEN=... tutor telegram
//
// The instruction preamble is read from .tutor/preamble.md unless
// --preamble names another file. A .env file in the working directory is
// loaded before flags are resolved.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "tutor: load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(envFromOS()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tutor: %v\n", err)
		os.Exit(1)
	}
}

// env holds the environment values the commands read. Env is read only
// in main and passed down as values.
type env struct {
	GeminiKey     string
	AnthropicKey  string
	ArkKey        string
	TelegramToken string
}

func envFromOS() env {
	gemini := os.Getenv("GEMINI_API_KEY")
	if gemini == "" {
		gemini = os.Getenv("GOOGLE_API_KEY")
	}
	return env{
		GeminiKey:     gemini,
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		ArkKey:        os.Getenv("ARK_API_KEY"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}
