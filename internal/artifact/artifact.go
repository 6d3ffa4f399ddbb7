// Package artifact renders the generated health check handler.
package artifact

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/invoke"
	"github.com/watzon/healthcheck/internal/targets"
)

var (
	ErrTemplate          = errors.New("handler template unavailable")
	ErrNoEmbeddedTargets = errors.New("artifact has no embedded target list")
	ErrUnsafeFolder      = errors.New("folder must be a relative path inside the service root")
)

const (
	// DefaultTemplate is the name of the embedded handler template.
	DefaultTemplate = "templates/handler.js.tmpl"

	// FileName is the generated handler's file name inside the folder.
	FileName = "index.js"

	// EntryPoint is the exported handler function.
	EntryPoint = "healthCheck"

	// QualifierEnv is read by the generated handler to pick the invoked version.
	QualifierEnv = "HEALTHCHECK_QUALIFIER"

	checksPrefix = "const checks = "
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Artifact is a rendered handler module.
type Artifact struct {
	// Path is the file path relative to the service root.
	Path string
	// Handler is the entry point in `<folder>/index.healthCheck` form.
	Handler string
	// Content is the handler source.
	Content string
	// CreatedAt is the timestamp embedded in the source.
	CreatedAt time.Time
}

// Input holds everything a render depends on.
type Input struct {
	Options config.Options
	Plan    targets.Plan
	// Region hint for the generated Lambda client (optional).
	Region string
	// CreatedAt defaults to now.
	CreatedAt time.Time
}

// Generator renders handler artifacts from a template.
type Generator struct {
	fsys fs.FS
	name string
}

// NewGenerator creates a generator using the embedded template.
func NewGenerator() *Generator {
	return &Generator{fsys: templateFS, name: DefaultTemplate}
}

// NewFileGenerator creates a generator reading the template at path.
func NewFileGenerator(path string) *Generator {
	return &Generator{fsys: os.DirFS(filepath.Dir(path)), name: filepath.Base(path)}
}

// NewFSGenerator creates a generator reading template name from fsys.
func NewFSGenerator(fsys fs.FS, name string) *Generator {
	return &Generator{fsys: fsys, name: name}
}

type templateData struct {
	CreatedAt        string
	EventSource      string
	QualifierEnv     string
	DefaultQualifier string
	Region           string
	Rich             bool
	Header           map[string]any
	Checks           []targets.Target
}

// Render produces the handler source for in. It fails with ErrTemplate when
// the template cannot be read or executed.
func (g *Generator) Render(in Input) (*Artifact, error) {
	raw, err := fs.ReadFile(g.fsys, g.name)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTemplate, g.name, err)
	}

	tmpl, err := template.New(path.Base(g.name)).
		Funcs(template.FuncMap{"json": toJSON}).
		Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrTemplate, g.name, err)
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	checks := in.Plan.Targets
	if checks == nil {
		checks = []targets.Target{}
	}

	data := templateData{
		CreatedAt:        createdAt.Format(time.RFC3339),
		EventSource:      invoke.EventSource,
		QualifierEnv:     QualifierEnv,
		DefaultQualifier: invoke.DefaultQualifier,
		Region:           in.Region,
		Rich:             in.Plan.Mode == targets.ModeEvents,
		Header:           Header(in.Options.Format),
		Checks:           checks,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: executing %s: %w", ErrTemplate, g.name, err)
	}

	folder := in.Options.FolderName
	return &Artifact{
		Path:      path.Join(folder, FileName),
		Handler:   path.Join(folder, strings.TrimSuffix(FileName, ".js")+"."+EntryPoint),
		Content:   buf.String(),
		CreatedAt: createdAt,
	}, nil
}

// Header returns the output header for a format template. The reserved
// "checks" field always exists and starts empty.
func Header(format map[string]any) map[string]any {
	header := config.CloneMap(format)
	if header == nil {
		header = make(map[string]any)
	}
	header["checks"] = []any{}
	return header
}

// CheckFolder rejects folder names that are empty, absolute, or escape the
// service root.
func CheckFolder(folder string) error {
	clean := path.Clean(filepath.ToSlash(folder))
	if folder == "" || clean == "." || path.IsAbs(clean) || filepath.IsAbs(folder) ||
		clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrUnsafeFolder, folder)
	}
	return nil
}

// Write writes the artifact below dir and returns the absolute file path.
func Write(dir string, a *Artifact) (string, error) {
	if err := CheckFolder(path.Dir(a.Path)); err != nil {
		return "", err
	}
	target := filepath.Join(dir, filepath.FromSlash(a.Path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, []byte(a.Content), 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", target, err)
	}

	log.Debug().Str("path", target).Int("bytes", len(a.Content)).Msg("Wrote health check handler")
	return target, nil
}

// Clean removes the generated folder below dir. A missing folder is not an error.
func Clean(dir, folder string) error {
	if err := CheckFolder(folder); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.FromSlash(folder))
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("removing %s: %w", target, err)
	}
	return nil
}

// ParseTargets recovers the embedded target list from rendered handler source.
func ParseTargets(content string) ([]targets.Target, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, checksPrefix) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(line, checksPrefix), ";")

		var out []targets.Target
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("parsing embedded targets: %w", err)
		}
		return out, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning artifact: %w", err)
	}
	return nil, ErrNoEmbeddedTargets
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
