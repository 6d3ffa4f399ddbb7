package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/archive"
	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/deploy"
	"github.com/watzon/healthcheck/internal/invoke"
	"github.com/watzon/healthcheck/internal/pipeline"
)

// newPipeline builds the pipeline for cfg, with an archiver when one is configured.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	var opts []pipeline.Option
	if cfg.ArchiveEnabled() {
		a, err := newArchiver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(a))
	}
	return pipeline.New(cfg, opts...), nil
}

// newArchiver picks the filesystem backend for archive.path and S3 otherwise.
func newArchiver(ctx context.Context, cfg *config.Config) (*archive.Archiver, error) {
	var backend archive.Backend
	if cfg.Archive.Path != "" {
		backend = archive.NewFilesystemBackend(cfg.Archive.Path)
		log.Debug().Str("path", cfg.Archive.Path).Msg("Archiving to filesystem")
	} else {
		awsCfg, err := invoke.LoadAWSConfig(ctx, cfg.Region, cfg.AWS)
		if err != nil {
			return nil, err
		}
		client := archive.NewS3Client(awsCfg, archive.S3Options{
			Bucket:         cfg.Archive.Bucket,
			Endpoint:       cfg.AWS.Endpoint,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		s3Backend, err := archive.NewS3Backend(client, cfg.Archive.Bucket)
		if err != nil {
			return nil, err
		}
		backend = s3Backend
		log.Debug().Str("bucket", cfg.Archive.Bucket).Msg("Archiving to S3")
	}

	return archive.New(backend, archive.Options{
		Prefix:      cfg.Archive.Prefix,
		Compression: cfg.Archive.Compression,
	})
}

// newInvoker creates a Lambda-backed invoker in region using the configured qualifier.
func newInvoker(ctx context.Context, cfg *config.Config, region string) (*invoke.Client, error) {
	awsCfg, err := invoke.LoadAWSConfig(ctx, region, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return invoke.NewClient(invoke.NewLambdaAPI(awsCfg, cfg.AWS), cfg.Qualifier), nil
}

// writeManifest writes the manifest to output, or to stdout for "-" and "".
func writeManifest(m *deploy.Manifest, output string, stdout io.Writer) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	if output == "" || output == "-" {
		_, err := stdout.Write(data)
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", output, err)
	}
	log.Info().Str("path", output).Msg("Wrote manifest")
	return nil
}
