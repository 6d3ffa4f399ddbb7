package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/healthcheck/internal/checker"
	"github.com/watzon/healthcheck/internal/pipeline"
	"github.com/watzon/healthcheck/internal/schedule"
)

var (
	runOnce   bool
	runStrict bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the health checks locally",
	Long: `Invoke every health check target of the active stage from this machine,
with the same semantics as the generated handler: all targets are invoked
concurrently and a failing target never stops the others.

Without --once the checks run on the configured schedule until interrupted.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single pass and print the aggregate document")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "with --once, exit non-zero when any check fails")

	rootCmd.AddCommand(runCmd)
}

// localRun is what a local run needs: the resolved service, a checker and its history.
type localRun struct {
	state   *pipeline.State
	checker *checker.Checker
	history *checker.History
}

func newLocalRun(ctx context.Context) (*localRun, error) {
	state, err := pipeline.New(cfg).Load()
	if err != nil {
		return nil, err
	}

	invoker, err := newInvoker(ctx, cfg, state.Service.Region(cfg.Region))
	if err != nil {
		return nil, err
	}

	return &localRun{
		state:   state,
		checker: checker.New(invoker),
		history: checker.NewHistory(0),
	}, nil
}

func (rt *localRun) check(ctx context.Context) *checker.Report {
	report := rt.checker.Run(ctx, rt.state.Plan)
	rt.history.Add(checker.NewEntry(report))
	return report
}

// scheduleChecks runs the checks on every configured expression until ctx is
// done. Without a usable expression it only waits for ctx.
func (rt *localRun) scheduleChecks(ctx context.Context) error {
	runner := schedule.NewRunner()
	for _, expr := range rt.state.Options.Schedule {
		if err := runner.Add(expr, func() { rt.check(ctx) }); err != nil {
			log.Warn().Err(err).Str("schedule", expr).Msg("Skipping schedule")
		}
	}
	if runner.Len() == 0 {
		log.Warn().
			Strs("schedule", rt.state.Options.Schedule).
			Msg("No usable schedule, checks only run on demand")
		<-ctx.Done()
		return nil
	}
	return runner.Run(ctx)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newLocalRun(ctx)
	if err != nil {
		return err
	}

	if rt.state.Plan.Empty() {
		log.Info().
			Str("service", rt.state.Service.Name).
			Str("stage", rt.state.Service.Stage).
			Msg("No health check targets for stage")
	}

	if runOnce {
		report := rt.check(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.Document(rt.state.Options.Format)); err != nil {
			return err
		}
		if runStrict && report.Failures() > 0 {
			return errors.New(report.Summary())
		}
		return nil
	}

	return rt.scheduleChecks(ctx)
}
