package config

// Default configuration values.
const (
	DefaultService   = "serverless.yml"
	DefaultStage     = "dev"
	DefaultRegion    = "us-east-1"
	DefaultQualifier = "$LATEST"
	DefaultOutput    = "-"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultServeAddr = ":8090"
)

// Health check option defaults.
const (
	DefaultCleanFolder = true
	DefaultMemorySize  = 128
	DefaultTimeout     = 10
	DefaultPrecheck    = false
	DefaultEndpoint    = "__health"
	DefaultFolderName  = "_healthcheck"
	DefaultSchedule    = "rate(5 minutes)"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Service:   DefaultService,
		Qualifier: DefaultQualifier,
		Output:    DefaultOutput,
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Serve: ServeConfig{
			Addr: DefaultServeAddr,
		},
	}
}
