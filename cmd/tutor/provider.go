package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/tutor"
	"github.com/fwojciec/tutor/anthropic"
	"github.com/fwojciec/tutor/ark"
	"github.com/fwojciec/tutor/gemini"
)

// resolvedProvider is a constructed provider and the model it serves when
// no model is configured.
type resolvedProvider struct {
	name         string
	provider     tutor.Provider
	defaultModel string
}

// resolveProvider selects and constructs the provider. All env var values
// are passed in as parameters.
func resolveProvider(ctx context.Context, providerFlag, apiKeyFlag, model string, e env) (resolvedProvider, error) {
	name := providerFlag

	// Auto-detect from env vars if no flag.
	if name == "" {
		var found []string
		if e.GeminiKey != "" {
			found = append(found, "gemini")
		}
		if e.AnthropicKey != "" {
			found = append(found, "anthropic")
		}
		if e.ArkKey != "" {
			found = append(found, "ark")
		}
		switch len(found) {
		case 0:
			return resolvedProvider{}, fmt.Errorf("no API key found: set GEMINI_API_KEY, ANTHROPIC_API_KEY or ARK_API_KEY (or use --provider and --api-key): %w", tutor.ErrConfiguration)
		case 1:
			name = found[0]
		default:
			return resolvedProvider{}, fmt.Errorf("multiple API keys found (%v): use --provider to select: %w", found, tutor.ErrConfiguration)
		}
	}

	// Explicit flag overrides env var.
	key := apiKeyFlag
	switch name {
	case "gemini":
		if key == "" {
			key = e.GeminiKey
		}
		if key == "" {
			return resolvedProvider{}, fmt.Errorf("GEMINI_API_KEY not set (use --api-key or the environment): %w", tutor.ErrConfiguration)
		}
		client, err := gemini.New(ctx, key)
		if err != nil {
			return resolvedProvider{}, err
		}
		return resolvedProvider{name: name, provider: client, defaultModel: gemini.DefaultModel}, nil
	case "anthropic":
		if key == "" {
			key = e.AnthropicKey
		}
		if key == "" {
			return resolvedProvider{}, fmt.Errorf("ANTHROPIC_API_KEY not set (use --api-key or the environment): %w", tutor.ErrConfiguration)
		}
		return resolvedProvider{name: name, provider: anthropic.New(key), defaultModel: anthropic.DefaultModel}, nil
	case "ark":
		if key == "" {
			key = e.ArkKey
		}
		if key == "" {
			return resolvedProvider{}, fmt.Errorf("ARK_API_KEY not set (use --api-key or the environment): %w", tutor.ErrConfiguration)
		}
		if model == "" {
			return resolvedProvider{}, fmt.Errorf("ark needs --model naming an endpoint: %w", tutor.ErrConfiguration)
		}
		client, err := ark.New(ctx, ark.Config{APIKey: key, Model: model})
		if err != nil {
			return resolvedProvider{}, err
		}
		return resolvedProvider{name: name, provider: client}, nil
	default:
		return resolvedProvider{}, fmt.Errorf("unknown provider %q: must be gemini, anthropic or ark: %w", name, tutor.ErrConfiguration)
	}
}
