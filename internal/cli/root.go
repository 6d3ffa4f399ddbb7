package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watzon/healthcheck/internal/config"
)

var (
	cfgFile string
	verbose bool

	// v holds flag bindings; config.Load layers file and environment under it.
	v = viper.New()

	// cfg is loaded once per invocation in PersistentPreRunE.
	cfg *config.Config

	version = "0.1.0-dev"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Scheduled health checks for serverless services",
	Long: `healthcheck reads a serverless service description, picks the functions
and HTTP events marked for health checking on the active stage, and generates
a single function that invokes all of them on a schedule.

Generate the handler and print the bound manifest:
  healthcheck package --stage prod

Run the checks locally and expose the aggregate document:
  healthcheck serve --stage prod`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, Viper: v})
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(&cfg.Logging)

		if f := v.ConfigFileUsed(); f != "" {
			log.Debug().Str("file", f).Msg("Using config file")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./healthcheck.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.StringP("service", "s", config.DefaultService, "path to the service description")
	flags.String("stage", "", "deployment stage (default: provider.stage, then dev)")
	flags.String("region", "", "region override for the generated handler and AWS clients")
	flags.String("qualifier", config.DefaultQualifier, "function version or alias to invoke")
	flags.String("template", "", "handler template overriding the embedded one")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (console, json)")

	for key, flag := range map[string]string{
		"service":        "service",
		"stage":          "stage",
		"region":         "region",
		"qualifier":      "qualifier",
		"template":       "template",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// setupLogging configures zerolog from the logging settings; --verbose forces debug.
func setupLogging(lc *config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetVersion sets the version reported by the version command and the server.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("healthcheck version %s", version)
}
