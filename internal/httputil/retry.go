// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// RetryMaxDelay caps a single backoff wait.
var RetryMaxDelay = 2 * time.Minute

const defaultMaxRetries = 5

// IsTransient reports whether an HTTP status is worth retrying: 429 Too
// Many Requests and the gateway family 502, 503, 504.
func IsTransient(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Option configures DoWithRetry.
type Option func(*retryOptions)

type retryOptions struct {
	log *zap.Logger
}

// WithLogger reports each retry on log.
func WithLogger(log *zap.Logger) Option {
	return func(o *retryOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// DoWithRetry executes an HTTP request and retries transient statuses (see
// IsTransient) with exponential backoff. The delay starts at RetryBaseDelay
// and doubles each attempt up to RetryMaxDelay.
//
// When maxRetries is 0 the default (5) is used. On each retry the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, opts ...Option) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	o := retryOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !IsTransient(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if backoff > RetryMaxDelay {
			backoff = RetryMaxDelay
		}
		o.log.Warn("transient HTTP status, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
