// Package pipeline drives the packaging, cleanup and precheck stages in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/archive"
	"github.com/watzon/healthcheck/internal/artifact"
	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/deploy"
	"github.com/watzon/healthcheck/internal/precheck"
	"github.com/watzon/healthcheck/internal/schedule"
	"github.com/watzon/healthcheck/internal/service"
	"github.com/watzon/healthcheck/internal/targets"
)

var ErrNotIncluded = errors.New("generated handler excluded by package rule")

// Pipeline runs stages against one service description. Each stage reloads
// the description and re-resolves the options.
type Pipeline struct {
	cfg       *config.Config
	generator *artifact.Generator
	archiver  *archive.Archiver
	now       func() time.Time
}

type Option func(*Pipeline)

// WithArchiver archives the generated folder after packaging.
func WithArchiver(a *archive.Archiver) Option {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

// WithGenerator replaces the handler generator.
func WithGenerator(g *artifact.Generator) Option {
	return func(p *Pipeline) {
		p.generator = g
	}
}

// WithClock sets the time source for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline. Without WithGenerator the template comes from
// cfg.Template, or the embedded one when that is empty.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.generator == nil {
		if cfg.Template != "" {
			p.generator = artifact.NewFileGenerator(cfg.Template)
		} else {
			p.generator = artifact.NewGenerator()
		}
	}
	return p
}

// State is the resolved view of the service for one stage.
type State struct {
	Service *service.Service
	Options config.Options
	Plan    targets.Plan
}

// Root is the directory artifacts are generated in.
func (p *Pipeline) Root() string {
	return filepath.Dir(p.cfg.Service)
}

// Load reads the service description and resolves options and targets.
func (p *Pipeline) Load() (*State, error) {
	svc, err := service.Load(p.cfg.Service, p.cfg.Stage)
	if err != nil {
		return nil, err
	}

	opts := config.Resolve(config.DefaultOptions(svc.Name, svc.Stage), svc.Healthcheck)
	return &State{
		Service: svc,
		Options: opts,
		Plan:    targets.Select(svc.Functions, svc.Stage),
	}, nil
}

// PackageResult is the outcome of the package stage.
type PackageResult struct {
	State *State
	// Manifest is the bound manifest, or the unchanged one when there is nothing to check.
	Manifest *deploy.Manifest
	// Artifact, Descriptor and FilePath are nil or empty when nothing was generated.
	Artifact   *artifact.Artifact
	Descriptor *deploy.Descriptor
	FilePath   string
	Archive    *archive.Result
}

// Generated reports whether a handler was written.
func (r *PackageResult) Generated() bool {
	return r.Artifact != nil
}

// Package selects targets, writes the handler and binds it into the manifest.
// With no targets nothing is written and the manifest is returned unchanged.
func (p *Pipeline) Package(ctx context.Context) (*PackageResult, error) {
	state, err := p.Load()
	if err != nil {
		return nil, err
	}

	manifest, err := deploy.NewManifest(state.Service.Document)
	if err != nil {
		return nil, err
	}
	result := &PackageResult{State: state, Manifest: manifest}

	for _, t := range state.Plan.Targets {
		log.Info().
			Str("function", t.Function).
			Str("path", t.Path).
			Str("method", t.Method).
			Msg("Health check target")
	}

	if state.Plan.Empty() {
		log.Info().
			Str("service", state.Service.Name).
			Str("stage", state.Service.Stage).
			Msg("No health check targets for stage, skipping")
		return result, nil
	}

	if err := artifact.CheckFolder(state.Options.FolderName); err != nil {
		return nil, err
	}

	if err := schedule.Validate(state.Options.Schedule); err != nil {
		log.Warn().Err(err).Msg("Schedule will be passed through unvalidated")
	}

	art, err := p.generator.Render(artifact.Input{
		Options:   state.Options,
		Plan:      state.Plan,
		Region:    state.Service.Region(p.cfg.Region),
		CreatedAt: p.now(),
	})
	if err != nil {
		return nil, err
	}

	rule, err := deploy.CompileRule(deploy.PackagePatterns(state.Options.FolderName))
	if err != nil {
		return nil, err
	}
	if !rule.Includes(art.Path) {
		return nil, fmt.Errorf("%w: %s", ErrNotIncluded, art.Path)
	}

	filePath, err := artifact.Write(p.Root(), art)
	if err != nil {
		return nil, err
	}

	bound, descriptor, err := deploy.Bind(manifest, state.Options, art.Handler, state.Plan.Mode)
	if err != nil {
		return nil, err
	}

	result.Manifest = bound
	result.Artifact = art
	result.Descriptor = &descriptor
	result.FilePath = filePath

	log.Info().
		Str("name", descriptor.Name).
		Str("handler", descriptor.Handler).
		Str("mode", string(state.Plan.Mode)).
		Int("targets", len(state.Plan.Targets)).
		Strs("schedule", state.Options.Schedule).
		Msg("Health check function packaged")

	if p.archiver != nil {
		res, err := p.archiver.Archive(ctx, archive.Request{
			Root:    p.Root(),
			Folder:  state.Options.FolderName,
			Service: state.Service.Name,
			Stage:   state.Service.Stage,
			Include: rule.Includes,
		})
		if err != nil {
			return nil, err
		}
		result.Archive = res
	}

	return result, nil
}

// Cleanup removes the generated folder when cleanFolder is set.
func (p *Pipeline) Cleanup(_ context.Context) error {
	state, err := p.Load()
	if err != nil {
		return err
	}

	if !state.Options.CleanFolder {
		log.Debug().Str("folder", state.Options.FolderName).Msg("Keeping generated folder")
		return nil
	}

	if err := artifact.Clean(p.Root(), state.Options.FolderName); err != nil {
		return err
	}
	log.Info().Str("folder", state.Options.FolderName).Msg("Removed generated folder")
	return nil
}

// Precheck invokes the deployed function once when precheck is set. Only
// loading the service can fail; invocation problems are logged.
func (p *Pipeline) Precheck(ctx context.Context, invoker precheck.Invoker) (precheck.Outcome, error) {
	state, err := p.Load()
	if err != nil {
		return precheck.Outcome{}, err
	}
	return precheck.Run(ctx, invoker, state.Options), nil
}
