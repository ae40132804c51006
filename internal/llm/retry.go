// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go/v2"
	"go.uber.org/zap"
)

// backoffBase and backoffMax shape the exponential retry schedule. Tests
// shrink them to avoid real sleeps.
var (
	backoffBase = 2 * time.Second
	backoffMax  = 30 * time.Second
)

const defaultMaxRetries = 3

// RetryCompleter retries transient failures of Next (see IsTransient) with
// capped exponential backoff. Any other error is returned immediately.
type RetryCompleter struct {
	Next       Completer
	MaxRetries int

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration

	Log *zap.Logger
}

// Complete calls Next until it succeeds, fails permanently, or runs out of
// attempts.
func (r *RetryCompleter) Complete(ctx context.Context, req Request) (string, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffBase
	b.MaxInterval = backoffMax
	b.RandomizationFactor = 0

	attempt := 0
	op := func() (string, error) {
		attempt++
		callCtx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		out, err := r.Next.Complete(callCtx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn("transient model error, retrying",
				zap.Error(err),
				zap.Duration("backoff", d),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
			)
		}),
	)
}

// IsTransient reports whether err is worth retrying: a 502, 503, or 504
// from either provider, or a timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if code, ok := StatusCode(err); ok {
		switch code {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// StatusCode extracts the HTTP status from a provider SDK error.
func StatusCode(err error) (int, bool) {
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode, true
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode, true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// StatusError is a provider-neutral HTTP failure, used by Completers that
// do not go through an SDK.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return http.StatusText(e.Code) + ": " + e.Body
}
