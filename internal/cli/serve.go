package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/watzon/healthcheck/internal/server"
)

var (
	serveAddr       string
	serveNoSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregate health document over HTTP",
	Long: `Start an HTTP server that runs the health checks on every request to the
configured endpoint and responds with the aggregate document.

The server also exposes:
  /healthz   liveness and the most recent run
  /runs      recent runs (?failed=true, ?limit=N)
  /metrics   Prometheus metrics

The checks keep running on the configured schedule unless --no-schedule is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (default :8090)")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "only run checks on request")
	_ = v.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newLocalRun(ctx)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:     cfg.Serve.Addr,
		Endpoint: rt.state.Options.Endpoint,
		Format:   rt.state.Options.Format,
		Plan:     rt.state.Plan,
		Version:  version,
	}, rt.checker, rt.history)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if !serveNoSchedule {
		g.Go(func() error {
			return rt.scheduleChecks(gctx)
		})
	}

	err = g.Wait()
	log.Info().Msg("Server stopped")
	return err
}
