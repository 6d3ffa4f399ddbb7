package config

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("orders", "prod")

	require.True(t, opts.CleanFolder)
	require.Equal(t, 128, opts.MemorySize)
	require.Empty(t, opts.Role)
	require.Equal(t, "orders-prod-healthcheck-plugin", opts.Name)
	require.Equal(t, []string{"rate(5 minutes)"}, opts.Schedule)
	require.Equal(t, 10, opts.Timeout)
	require.False(t, opts.Precheck)
	require.Equal(t, "__health", opts.Endpoint)
	require.Nil(t, opts.Format)
	require.Equal(t, "_healthcheck", opts.FolderName)
}

func TestResolve_TypeMismatchKeepsDefault(t *testing.T) {
	defaults := DefaultOptions("svc", "dev")

	tests := []struct {
		name      string
		overrides map[string]any
		check     func(t *testing.T, opts Options)
	}{
		{
			name:      "memorySize as string",
			overrides: map[string]any{"memorySize": "256"},
			check: func(t *testing.T, opts Options) {
				require.Equal(t, 128, opts.MemorySize)
			},
		},
		{
			name:      "timeout as infinity",
			overrides: map[string]any{"timeout": math.Inf(1)},
			check: func(t *testing.T, opts Options) {
				require.Equal(t, 10, opts.Timeout)
			},
		},
		{
			name:      "cleanFolder as string",
			overrides: map[string]any{"cleanFolder": "false"},
			check: func(t *testing.T, opts Options) {
				require.True(t, opts.CleanFolder)
			},
		},
		{
			name:      "precheck as number",
			overrides: map[string]any{"precheck": 1},
			check: func(t *testing.T, opts Options) {
				require.False(t, opts.Precheck)
			},
		},
		{
			name:      "name as number",
			overrides: map[string]any{"name": 42},
			check: func(t *testing.T, opts Options) {
				require.Equal(t, "svc-dev-healthcheck-plugin", opts.Name)
			},
		},
		{
			name:      "schedule with a non-string entry",
			overrides: map[string]any{"schedule": []any{"rate(1 minute)", 5}},
			check: func(t *testing.T, opts Options) {
				require.Equal(t, []string{"rate(5 minutes)"}, opts.Schedule)
			},
		},
		{
			name:      "empty schedule list",
			overrides: map[string]any{"schedule": []any{}},
			check: func(t *testing.T, opts Options) {
				require.Equal(t, []string{"rate(5 minutes)"}, opts.Schedule)
			},
		},
		{
			name:      "format as list",
			overrides: map[string]any{"format": []any{"checks"}},
			check: func(t *testing.T, opts Options) {
				require.Nil(t, opts.Format)
			},
		},
		{
			name:      "nil overrides",
			overrides: nil,
			check: func(t *testing.T, opts Options) {
				require.Equal(t, defaults, opts)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Resolve(defaults, tt.overrides))
		})
	}
}

func TestResolve_AppliesWellTypedOverrides(t *testing.T) {
	overrides := map[string]any{
		"cleanFolder": false,
		"memorySize":  float64(512),
		"role":        "HealthcheckRole",
		"name":        "custom-health",
		"schedule":    []any{"a", "b"},
		"timeout":     30,
		"precheck":    true,
		"endpoint":    "status",
		"format":      map[string]any{"application": "orders", "checks": []any{}},
		"folderName":  "_hc",
	}

	opts := Resolve(DefaultOptions("svc", "dev"), overrides)

	require.False(t, opts.CleanFolder)
	require.Equal(t, 512, opts.MemorySize)
	require.Equal(t, "HealthcheckRole", opts.Role)
	require.Equal(t, "custom-health", opts.Name)
	require.Equal(t, []string{"a", "b"}, opts.Schedule)
	require.Equal(t, 30, opts.Timeout)
	require.True(t, opts.Precheck)
	require.Equal(t, "status", opts.Endpoint)
	require.Equal(t, "orders", opts.Format["application"])
	require.Equal(t, "_hc", opts.FolderName)
}

func TestResolve_ScheduleString(t *testing.T) {
	opts := Resolve(DefaultOptions("svc", "dev"), map[string]any{"schedule": "rate(1 minute)"})
	require.Equal(t, []string{"rate(1 minute)"}, opts.Schedule)
}

func TestResolve_FromYAML(t *testing.T) {
	var overrides map[string]any
	src := `
memorySize: 256
timeout: "20"
schedule:
  - rate(1 minute)
  - cron(0 12 * * ? *)
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &overrides))

	opts := Resolve(DefaultOptions("svc", "dev"), overrides)
	require.Equal(t, 256, opts.MemorySize)
	require.Equal(t, 10, opts.Timeout)
	require.Equal(t, []string{"rate(1 minute)", "cron(0 12 * * ? *)"}, opts.Schedule)
}

func TestResolve_FractionalNumbersTruncate(t *testing.T) {
	opts := Resolve(DefaultOptions("svc", "dev"), map[string]any{
		"memorySize": 128.5,
		"timeout":    float32(2.9),
	})
	require.Equal(t, 128, opts.MemorySize)
	require.Equal(t, 2, opts.Timeout)
}

func TestResolve_FormatWithNonStringKeys(t *testing.T) {
	var overrides map[string]any
	src := `
format:
  id: svc
  meta:
    200: ok
    true: yes
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &overrides))

	opts := Resolve(DefaultOptions("svc", "dev"), overrides)
	require.Equal(t, map[string]any{
		"id":   "svc",
		"meta": map[string]any{"200": "ok", "true": "yes"},
	}, opts.Format)

	_, err := json.Marshal(opts.Format)
	require.NoError(t, err)
}

func TestAsMap(t *testing.T) {
	m, ok := AsMap(map[any]any{1: map[any]any{2.5: []any{map[any]any{"k": "v"}}}})
	require.True(t, ok)
	require.Equal(t, map[string]any{
		"1": map[string]any{"2.5": []any{map[string]any{"k": "v"}}},
	}, m)

	_, ok = AsMap("not a map")
	require.False(t, ok)
	_, ok = AsMap(nil)
	require.False(t, ok)
}

func TestResolve_Idempotent(t *testing.T) {
	defaults := DefaultOptions("svc", "dev")
	overrides := map[string]any{
		"schedule": []any{"a"},
		"format":   map[string]any{"nested": map[string]any{"k": "v"}},
	}

	first := Resolve(defaults, overrides)
	second := Resolve(defaults, overrides)
	require.Equal(t, first, second)
}

func TestResolve_DoesNotAlias(t *testing.T) {
	defaults := DefaultOptions("svc", "dev")
	format := map[string]any{"nested": map[string]any{"k": "v"}}

	opts := Resolve(defaults, map[string]any{"format": format})
	opts.Schedule[0] = "mutated"
	opts.Format["nested"].(map[string]any)["k"] = "mutated"

	require.Equal(t, "rate(5 minutes)", defaults.Schedule[0])
	require.Equal(t, "v", format["nested"].(map[string]any)["k"])
}
