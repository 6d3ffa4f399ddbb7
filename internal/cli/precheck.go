package cli

import (
	"github.com/spf13/cobra"

	"github.com/watzon/healthcheck/internal/pipeline"
)

var precheckCmd = &cobra.Command{
	Use:   "precheck",
	Short: "Invoke the deployed health check function once",
	Long: `Invoke the deployed health check function once, as done right after a
deploy when precheck is true in custom.healthcheck.

A failed invocation is logged but never fails the command.`,
	RunE: runPrecheck,
}

func init() {
	rootCmd.AddCommand(precheckCmd)
}

func runPrecheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := pipeline.New(cfg)

	state, err := p.Load()
	if err != nil {
		return err
	}
	if !state.Options.Precheck {
		_, err := p.Precheck(ctx, nil)
		return err
	}

	invoker, err := newInvoker(ctx, cfg, state.Service.Region(cfg.Region))
	if err != nil {
		return err
	}
	_, err = p.Precheck(ctx, invoker)
	return err
}
