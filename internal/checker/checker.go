// Package checker runs health checks locally with the same semantics as the
// generated handler: every target is invoked concurrently, failures are
// counted and never short-circuit the run.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/artifact"
	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/invoke"
	"github.com/watzon/healthcheck/internal/metrics"
	"github.com/watzon/healthcheck/internal/requestctx"
	"github.com/watzon/healthcheck/internal/targets"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Invoker performs a single function invocation.
type Invoker interface {
	Invoke(ctx context.Context, function string, params map[string]any) (*invoke.Result, error)
}

// Check is the outcome of one target.
type Check struct {
	Target      targets.Target
	OK          bool
	LastUpdated time.Time
	Duration    time.Duration
	Err         error
}

// Report is the outcome of one run.
type Report struct {
	RunID     string
	Mode      targets.Mode
	StartedAt time.Time
	Duration  time.Duration
	Checks    []Check
}

// Failures returns the number of failed checks.
func (r *Report) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// Summary is the legacy-mode log line.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d health checks failed", r.Failures(), len(r.Checks))
}

// Document builds the aggregate response body: the header template with one
// entry per check, each the check's format merged with ok and lastUpdated.
func (r *Report) Document(format map[string]any) map[string]any {
	doc := artifact.Header(format)

	checks := make([]any, 0, len(r.Checks))
	for _, c := range r.Checks {
		entry := config.CloneMap(c.Target.Format)
		if entry == nil {
			entry = make(map[string]any, 2)
		}
		entry["ok"] = c.OK
		entry["lastUpdated"] = c.LastUpdated.UTC().Format(TimestampFormat)
		checks = append(checks, entry)
	}
	doc["checks"] = checks
	return doc
}

// Checker fans out invocations over a plan.
type Checker struct {
	invoker Invoker
	now     func() time.Time
}

// New creates a checker.
func New(invoker Invoker) *Checker {
	return &Checker{invoker: invoker, now: time.Now}
}

// Run invokes every target concurrently and waits for all of them. Results
// keep the plan's order.
func (c *Checker) Run(ctx context.Context, plan targets.Plan) *Report {
	report := &Report{
		RunID:     uuid.New().String(),
		Mode:      plan.Mode,
		StartedAt: c.now(),
		Checks:    make([]Check, len(plan.Targets)),
	}
	ctx = requestctx.WithRunID(ctx, report.RunID)

	var wg sync.WaitGroup
	for i, target := range plan.Targets {
		wg.Add(1)
		go func(i int, target targets.Target) {
			defer wg.Done()
			report.Checks[i] = c.check(ctx, target)
		}(i, target)
	}
	wg.Wait()

	report.Duration = c.now().Sub(report.StartedAt)
	failures := report.Failures()
	metrics.RecordRun(failures, report.Duration)

	log.Info().
		Str("run_id", report.RunID).
		Str("request_id", requestctx.RequestID(ctx)).
		Str("mode", string(plan.Mode)).
		Int("failures", failures).
		Int("total", len(report.Checks)).
		Dur("duration", report.Duration).
		Msg(report.Summary())

	return report
}

func (c *Checker) check(ctx context.Context, target targets.Target) (result Check) {
	start := c.now()
	result = Check{Target: target}

	defer func() {
		if r := recover(); r != nil {
			result.OK = false
			result.Err = fmt.Errorf("%w: %s: panic: %v", invoke.ErrInvocationFailed, target.Function, r)
		}
		result.LastUpdated = c.now()
		result.Duration = result.LastUpdated.Sub(start)
		metrics.RecordTargetInvocation(target.Function, result.OK, result.Duration)

		if !result.OK {
			log.Warn().
				Str("run_id", requestctx.RunID(ctx)).
				Str("function", target.Function).
				Str("path", target.Path).
				Err(result.Err).
				Msg("Health check failed")
		}
	}()

	res, err := c.invoker.Invoke(ctx, target.Function, target.Params)
	if err != nil {
		result.Err = err
		return result
	}
	if err := res.Err(); err != nil {
		result.Err = err
		return result
	}
	result.OK = true
	return result
}
