package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/healthcheck/internal/pipeline"
)

var (
	packageOutput string
	packageWatch  bool
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Generate the health check handler and bind it into the manifest",
	Long: `Generate the health check handler for the active stage and register it in
the service manifest under the reserved function key.

The bound manifest is written to --output (stdout by default). When no function
or event is marked for the stage, nothing is generated and the manifest is
written unchanged.

Use --watch to regenerate whenever the service description changes.`,
	RunE: runPackage,
}

func init() {
	packageCmd.Flags().StringVarP(&packageOutput, "output", "o", "", "where to write the bound manifest (- for stdout)")
	packageCmd.Flags().BoolVarP(&packageWatch, "watch", "w", false, "regenerate when the service description changes")
	_ = v.BindPFlag("output", packageCmd.Flags().Lookup("output"))

	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	if err := packageOnce(ctx, cmd, p); err != nil {
		return err
	}
	if !packageWatch {
		return nil
	}

	watcher, err := NewServiceWatcher([]string{cfg.Service, cfg.Template}, func(path string) {
		log.Info().Str("path", path).Msg("Change detected, repackaging")
		if err := packageOnce(ctx, cmd, p); err != nil {
			log.Error().Err(err).Msg("Packaging failed")
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	watcher.Start(ctx)
	log.Info().Str("service", cfg.Service).Msg("Watching for changes")

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")
	return nil
}

func packageOnce(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline) error {
	res, err := p.Package(ctx)
	if err != nil {
		return err
	}
	return writeManifest(res.Manifest, cfg.Output, cmd.OutOrStdout())
}
