package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Unwrap lets callers match validation failures with errors.Is(err, ErrInvalidConfig).
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	if strings.TrimSpace(cfg.Service) == "" {
		errs = append(errs, ValidationError{
			Field:   "service",
			Message: "required",
		})
	}

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateAWS(&cfg.AWS)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, panic",
		})
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}

func validateAWS(cfg *AWSConfig) ValidationErrors {
	var errs ValidationErrors

	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		errs = append(errs, ValidationError{
			Field:   "aws.access_key_id",
			Message: "access_key_id and secret_access_key must be set together",
		})
	}

	return errs
}

func validateArchive(cfg *ArchiveConfig) ValidationErrors {
	var errs ValidationErrors

	validCompression := map[string]bool{"": true, "gzip": true, "zstd": true}
	if !validCompression[cfg.Compression] {
		errs = append(errs, ValidationError{
			Field:   "archive.compression",
			Message: "must be 'zstd', 'gzip', or empty",
		})
	}

	if strings.Contains(cfg.Prefix, "..") {
		errs = append(errs, ValidationError{
			Field:   "archive.prefix",
			Message: "path traversal (..) not allowed",
		})
	}

	if cfg.Bucket != "" && cfg.Path != "" {
		errs = append(errs, ValidationError{
			Field:   "archive.path",
			Message: "cannot be combined with archive.bucket",
		})
	}

	return errs
}
