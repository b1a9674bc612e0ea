// Package retry implements the bounded connect loop shared by the SMTP and
// POP3 clients.
//
// A connect is attempted a fixed number of times, each attempt bounded by its
// own timeout. There is no backoff between attempts: the per-attempt timeout
// is the only wait. Only connection establishment is retried; protocol
// failures after the dial are surfaced to the caller unchanged.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/shineum/mailkit-lite/internal/mailerr"
)

const (
	// DefaultAttempts is the number of dial attempts before giving up.
	DefaultAttempts = 5

	// DefaultAttemptTimeout bounds each individual dial attempt.
	DefaultAttemptTimeout = 500 * time.Millisecond
)

// Dialer is satisfied by *net.Dialer. Tests substitute their own.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialConfig controls the connect loop.
type DialConfig struct {
	Attempts       int
	AttemptTimeout time.Duration
}

// DefaultDialConfig returns 5 attempts of 500ms each.
func DefaultDialConfig() DialConfig {
	return DialConfig{
		Attempts:       DefaultAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Dial connects to address over TCP, retrying failed attempts. When every
// attempt fails the returned error wraps mailerr.ErrConnectionTimeout and the
// last dial error.
func Dial(ctx context.Context, d Dialer, address string, cfg DialConfig) (net.Conn, error) {
	if d == nil {
		d = &net.Dialer{}
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", mailerr.ErrConnectionTimeout, address, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		conn, err := d.DialContext(attemptCtx, "tcp", address)
		cancel()
		if err == nil {
			return conn, nil
		}

		lastErr = err
		slog.Warn("dial attempt failed",
			"addr", address,
			"attempt", attempt,
			"max_attempts", cfg.Attempts,
			"error", err,
		)
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %w", mailerr.ErrConnectionTimeout, address, cfg.Attempts, lastErr)
}
