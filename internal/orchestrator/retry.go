// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Policy selects the backoff curve between retry attempts.
type Policy string

const (
	// PolicyExponential doubles the wait each attempt: base, 2x, 4x, ...
	PolicyExponential Policy = "exponential"

	// PolicyLinear grows the wait by a fixed increment: base, 2x, 3x, ...
	PolicyLinear Policy = "linear"
)

// Unit is a re-invocable network action captured at its call site together
// with the command line it represents. Re-running the unit repeats the whole
// action, not just its final command.
type Unit struct {
	Command string
	Run     func(ctx context.Context) error
}

// RetryConfig bounds and shapes the retry behavior of an Engine.
type RetryConfig struct {
	// MaxRetries is the number of re-invocations after the initial attempt.
	MaxRetries uint64
	Policy     Policy
	// BaseWait is the first wait of the backoff curve.
	BaseWait time.Duration
}

// DefaultRetryConfig retries three times with exponential backoff starting
// at five seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Policy:     PolicyExponential,
		BaseWait:   5 * time.Second,
	}
}

// Backoff returns the unbounded backoff curve of the configuration.
func (c RetryConfig) Backoff() retry.Backoff {
	if c.Policy == PolicyLinear {
		return linearBackoff(c.BaseWait)
	}
	return retry.NewExponential(c.BaseWait)
}

func linearBackoff(increment time.Duration) retry.Backoff {
	var attempt int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return time.Duration(atomic.AddInt64(&attempt, 1)) * increment, false
	})
}

// Engine re-invokes failed units when and only when the failure is
// network-classified.
type Engine struct {
	cfg RetryConfig
	log *zerolog.Logger
}

func NewEngine(cfg RetryConfig, logger *zerolog.Logger) *Engine {
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = 5 * time.Second
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyExponential
	}
	return &Engine{cfg: cfg, log: logger}
}

// Do runs the unit, retrying network-classified failures with backoff until
// the attempt budget is exhausted. Any other failure is returned as is
// after the first attempt. The returned error is always the one from the
// last invocation.
func (e *Engine) Do(ctx context.Context, u Unit) error {
	attempt := 0
	b := retry.WithMaxRetries(e.cfg.MaxRetries, e.cfg.Backoff())

	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := u.Run(ctx)
		if err == nil {
			return nil
		}

		if ClassifyError(err) != ClassNetwork {
			return err
		}

		e.log.Warn().
			Str("command", u.Command).
			Int("attempt", attempt).
			Err(err).
			Msg("Network failure, retrying")
		return retry.RetryableError(err)
	})
}
