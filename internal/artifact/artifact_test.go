package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/targets"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func legacyInput() Input {
	return Input{
		Options: config.DefaultOptions("orders", "prod"),
		Plan: targets.Plan{
			Mode: targets.ModeFunctions,
			Targets: []targets.Target{
				{Key: "create", Function: "orders-prod-create"},
				{Key: "list", Function: "orders-prod-list"},
				{Key: "create", Function: "orders-prod-create"},
			},
		},
		Region:    "eu-west-1",
		CreatedAt: fixedTime,
	}
}

func TestRender_Legacy(t *testing.T) {
	a, err := NewGenerator().Render(legacyInput())
	require.NoError(t, err)

	require.Equal(t, "_healthcheck/index.js", a.Path)
	require.Equal(t, "_healthcheck/index.healthCheck", a.Handler)
	require.Equal(t, fixedTime, a.CreatedAt)

	require.Contains(t, a.Content, "2026-03-14T09:26:53Z")
	require.Contains(t, a.Content, `const SOURCE = "serverless-plugin-healthcheck";`)
	require.Contains(t, a.Content, `process.env.HEALTHCHECK_QUALIFIER || "$LATEST"`)
	require.Contains(t, a.Content, `{ region: "eu-west-1" }`)
	require.Contains(t, a.Content, "const RICH = false;")
	require.Contains(t, a.Content, `InvocationType: "RequestResponse"`)
	require.Contains(t, a.Content, `LogType: "None"`)
	require.Contains(t, a.Content, "Promise.allSettled")
	require.Contains(t, a.Content, "exports.healthCheck")
}

func TestRender_Rich(t *testing.T) {
	in := legacyInput()
	in.Options.Format = map[string]any{"application": "orders"}
	in.Plan = targets.Plan{
		Mode: targets.ModeEvents,
		Targets: []targets.Target{{
			Key:      "get",
			Function: "orders-prod-get",
			Params:   map[string]any{"path": "/orders/1"},
			Format:   map[string]any{"id": "orders-get", "severity": "high"},
			Path:     "/orders/{id}",
			Method:   "get",
			Event:    true,
		}},
	}

	a, err := NewGenerator().Render(in)
	require.NoError(t, err)
	require.Contains(t, a.Content, "const RICH = true;")
	require.Contains(t, a.Content, `const header = {"application":"orders","checks":[]};`)
}

func TestRender_DeterministicExceptTimestamp(t *testing.T) {
	g := NewGenerator()

	first, err := g.Render(legacyInput())
	require.NoError(t, err)

	second, err := g.Render(legacyInput())
	require.NoError(t, err)
	require.Equal(t, first.Content, second.Content)

	later := legacyInput()
	later.CreatedAt = fixedTime.Add(time.Hour)
	third, err := g.Render(later)
	require.NoError(t, err)

	require.NotEqual(t, first.Content, third.Content)
	require.Equal(t,
		strings.SplitN(first.Content, "\n", 2)[1],
		strings.SplitN(third.Content, "\n", 2)[1],
	)
}

func TestRender_CustomFolder(t *testing.T) {
	in := legacyInput()
	in.Options.FolderName = "_hc"

	a, err := NewGenerator().Render(in)
	require.NoError(t, err)
	require.Equal(t, "_hc/index.js", a.Path)
	require.Equal(t, "_hc/index.healthCheck", a.Handler)
}

func TestRender_NoRegion(t *testing.T) {
	in := legacyInput()
	in.Region = ""

	a, err := NewGenerator().Render(in)
	require.NoError(t, err)
	require.Contains(t, a.Content, "new LambdaClient({})")
}

func TestRender_TemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *Generator
	}{
		{
			name: "missing template",
			gen:  NewFSGenerator(fstest.MapFS{}, "handler.js.tmpl"),
		},
		{
			name: "unparsable template",
			gen: NewFSGenerator(fstest.MapFS{
				"handler.js.tmpl": &fstest.MapFile{Data: []byte("{{ .Broken ")},
			}, "handler.js.tmpl"),
		},
		{
			name: "missing file on disk",
			gen:  NewFileGenerator(filepath.Join(t.TempDir(), "nope.tmpl")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.gen.Render(legacyInput())
			if !errors.Is(err, ErrTemplate) {
				t.Errorf("expected ErrTemplate, got %v", err)
			}
		})
	}
}

func TestRender_FileTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("// {{ .EventSource }}\nconst checks = {{ json .Checks }};\n"), 0o600))

	a, err := NewFileGenerator(path).Render(legacyInput())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a.Content, "// serverless-plugin-healthcheck\n"))
}

func TestParseTargets_RoundTrip(t *testing.T) {
	in := legacyInput()

	a, err := NewGenerator().Render(in)
	require.NoError(t, err)

	got, err := ParseTargets(a.Content)
	require.NoError(t, err)
	require.Equal(t, in.Plan.Targets, got)
	require.Equal(t, in.Plan.Names(), targets.Plan{Targets: got}.Names())
}

func TestParseTargets_Empty(t *testing.T) {
	in := legacyInput()
	in.Plan.Targets = nil

	a, err := NewGenerator().Render(in)
	require.NoError(t, err)
	require.Contains(t, a.Content, "const checks = [];")

	got, err := ParseTargets(a.Content)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseTargets_Missing(t *testing.T) {
	_, err := ParseTargets("exports.healthCheck = async () => {};\n")
	require.ErrorIs(t, err, ErrNoEmbeddedTargets)
}

func TestHeader(t *testing.T) {
	require.Equal(t, map[string]any{"checks": []any{}}, Header(nil))

	format := map[string]any{"service": "orders", "checks": []any{"stale"}}
	header := Header(format)
	require.Equal(t, []any{}, header["checks"])
	require.Equal(t, "orders", header["service"])
	require.Equal(t, []any{"stale"}, format["checks"], "input must not be modified")
}

func TestWriteAndClean(t *testing.T) {
	dir := t.TempDir()

	a, err := NewGenerator().Render(legacyInput())
	require.NoError(t, err)

	path, err := Write(dir, a)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "_healthcheck", "index.js"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, a.Content, string(data))

	require.NoError(t, Clean(dir, "_healthcheck"))
	_, err = os.Stat(filepath.Join(dir, "_healthcheck"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, Clean(dir, "_healthcheck"), "cleaning twice is fine")
}

func TestClean_RefusesUnsafeFolders(t *testing.T) {
	dir := t.TempDir()
	for _, folder := range []string{"", ".", "../outside", "a/../../outside", "/tmp/abs"} {
		require.ErrorIs(t, Clean(dir, folder), ErrUnsafeFolder, folder)
	}
}

func TestCheckFolder(t *testing.T) {
	for _, folder := range []string{"_healthcheck", "build/_healthcheck", "a/../b", "x..y"} {
		require.NoError(t, CheckFolder(folder), folder)
	}
}

func TestWrite_RefusesFolderOutsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "service")
	require.NoError(t, os.MkdirAll(root, 0o755))

	in := legacyInput()
	in.Options.FolderName = "../escaped"
	a, err := NewGenerator().Render(in)
	require.NoError(t, err)

	_, err = Write(root, a)
	require.ErrorIs(t, err, ErrUnsafeFolder)

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escaped"))
	require.True(t, os.IsNotExist(err))
}
