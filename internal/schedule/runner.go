package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner calls a job on every configured schedule.
type Runner struct {
	cron   *cron.Cron
	parser *Parser
	count  int
}

// NewRunner creates an idle runner.
func NewRunner() *Runner {
	return &Runner{
		cron:   cron.New(),
		parser: NewParser(),
	}
}

// Add registers job under expression. Jobs of one schedule never overlap.
func (r *Runner) Add(expression string, job func()) error {
	sched, err := r.parser.Parse(expression)
	if err != nil {
		return err
	}
	id := r.cron.Schedule(sched, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(job)))
	r.count++
	log.Debug().Str("schedule", expression).Int("entry", int(id)).Msg("Registered schedule")
	return nil
}

// Len returns the number of registered schedules.
func (r *Runner) Len() int {
	return r.count
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (r *Runner) Run(ctx context.Context) error {
	if r.count == 0 {
		return fmt.Errorf("%w: no schedules registered", ErrInvalidExpression)
	}

	r.cron.Start()
	for _, e := range r.cron.Entries() {
		log.Info().Time("next", e.Next).Int("entry", int(e.ID)).Msg("Schedule armed")
	}

	<-ctx.Done()
	<-r.cron.Stop().Done()
	return nil
}
