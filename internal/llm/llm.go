// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the language-model providers used by the screening
// stages behind a single Completer interface, with transient-failure retry
// and tolerant JSON extraction of model output.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// DefaultMaxTokens bounds a completion when Request.MaxTokens is zero.
const DefaultMaxTokens = 4096

// Request is one system+user exchange.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// Completer sends a request to a model and returns the text of its reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrMissingAPIKey is returned by New when no credential is configured.
var ErrMissingAPIKey = errors.New("model API key not configured")

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// New builds the configured provider wrapped in a RetryCompleter.
func New(cfg types.LLMConfig, log *zap.Logger) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set it in .secrets/ or the provider's environment variable", ErrMissingAPIKey)
	}
	var base Completer
	switch p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p {
	case "", ProviderAnthropic:
		base = NewAnthropicCompleter(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case ProviderOpenAI, "openai-compatible":
		base = NewOpenAICompleter(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown model provider %q (want anthropic or openai)", cfg.Provider)
	}
	return &RetryCompleter{
		Next:       base,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
		Log:        log,
	}, nil
}
