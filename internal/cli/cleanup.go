package cli

import (
	"github.com/spf13/cobra"

	"github.com/watzon/healthcheck/internal/pipeline"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove the generated handler folder",
	Long: `Remove the generated handler folder once the deployable package exists.

Nothing is removed when cleanFolder is false in custom.healthcheck.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.New(cfg).Cleanup(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
