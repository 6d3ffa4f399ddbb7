// Package precheck invokes the generated function once after deployment.
package precheck

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/invoke"
	"github.com/watzon/healthcheck/internal/metrics"
)

// Invoker performs a single function invocation.
type Invoker interface {
	Invoke(ctx context.Context, function string, params map[string]any) (*invoke.Result, error)
}

// Outcome describes a precheck. It is informational only.
type Outcome struct {
	Function string
	// Skipped is true when prechecks are disabled.
	Skipped  bool
	OK       bool
	Err      error
	Duration time.Duration
}

// Run invokes opts.Name once when opts.Precheck is set. It never retries and
// never fails the caller: the outcome is logged and counted.
func Run(ctx context.Context, invoker Invoker, opts config.Options) Outcome {
	outcome := Outcome{Function: opts.Name}
	if !opts.Precheck {
		outcome.Skipped = true
		log.Debug().Str("function", opts.Name).Msg("Precheck disabled")
		return outcome
	}

	start := time.Now()
	var err error
	if invoker == nil {
		err = errors.New("no invoker configured")
	} else {
		var res *invoke.Result
		res, err = invoker.Invoke(ctx, opts.Name, nil)
		if err == nil {
			err = res.Err()
		}
	}
	outcome.Duration = time.Since(start)
	outcome.Err = err
	outcome.OK = err == nil

	metrics.RecordPrecheck(opts.Name, outcome.OK)

	if !outcome.OK {
		log.Error().
			Err(err).
			Str("function", opts.Name).
			Dur("duration", outcome.Duration).
			Msg("Health check precheck failed")
		return outcome
	}

	log.Info().
		Str("function", opts.Name).
		Dur("duration", outcome.Duration).
		Msg("Health check precheck succeeded")
	return outcome
}
