// Package config provides configuration management for healthcheck.
//
// Two layers live here: Config holds the tool's own settings (loaded through
// viper from flags, environment and an optional healthcheck.yaml), and
// Options is the per-service health check record resolved from the
// custom.healthcheck block of a service description.
package config

// Config is the root configuration structure for the healthcheck tool.
type Config struct {
	// Path to the service description (serverless.yml)
	Service string `mapstructure:"service"`

	// Active deployment stage; falls back to provider.stage
	Stage string `mapstructure:"stage"`

	// Region hint for the generated handler and AWS clients
	Region string `mapstructure:"region"`

	// Version selector used for invocations
	Qualifier string `mapstructure:"qualifier"`

	// Where the bound manifest is written ("-" for stdout)
	Output string `mapstructure:"output"`

	// Optional on-disk handler template overriding the embedded one
	Template string `mapstructure:"template"`

	Logging LoggingConfig `mapstructure:"logging"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`
}

// AWSConfig holds AWS client settings.
type AWSConfig struct {
	// Shared config profile (optional)
	Profile string `mapstructure:"profile"`

	// Custom endpoint, e.g. a local Lambda emulator (optional)
	Endpoint string `mapstructure:"endpoint"`

	// Static credentials (optional, both must be set)
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ArchiveConfig holds settings for archiving generated artifacts.
type ArchiveConfig struct {
	// S3 bucket name
	Bucket string `mapstructure:"bucket"`

	// Local directory, used instead of a bucket
	Path string `mapstructure:"path"`

	// Use path-style S3 addressing (for S3-compatible stores)
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// Key prefix inside the bucket
	Prefix string `mapstructure:"prefix"`

	// Compression (zstd, gzip, or empty for none)
	Compression string `mapstructure:"compression"`
}

// ServeConfig holds settings for the local health endpoint.
type ServeConfig struct {
	// Address to listen on
	Addr string `mapstructure:"addr"`
}

// ArchiveEnabled reports whether generated artifacts should be archived.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != "" || c.Archive.Path != ""
}
