package config

import (
	"fmt"
	"math"
)

// Options is the resolved health check configuration for one service and stage.
type Options struct {
	// Remove the generated folder once the deployable package exists
	CleanFolder bool `yaml:"cleanFolder" json:"cleanFolder"`

	// Memory size of the generated function in MB
	MemorySize int `yaml:"memorySize" json:"memorySize"`

	// Execution role reference (optional)
	Role string `yaml:"role,omitempty" json:"role,omitempty"`

	// Deployed name of the generated function
	Name string `yaml:"name" json:"name"`

	// Schedule expressions, one trigger each
	Schedule []string `yaml:"schedule" json:"schedule"`

	// Timeout of the generated function in seconds
	Timeout int `yaml:"timeout" json:"timeout"`

	// Invoke the generated function once right after deploy
	Precheck bool `yaml:"precheck" json:"precheck"`

	// HTTP path the aggregate document is exposed on
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Output header template; its "checks" field is reserved
	Format map[string]any `yaml:"format,omitempty" json:"format,omitempty"`

	// Folder the handler is generated into
	FolderName string `yaml:"folderName" json:"folderName"`
}

// DefaultFunctionName returns the default generated function name for a service and stage.
func DefaultFunctionName(service, stage string) string {
	return fmt.Sprintf("%s-%s-healthcheck-plugin", service, stage)
}

// DefaultOptions returns the hard defaults for a service and stage.
func DefaultOptions(service, stage string) Options {
	return Options{
		CleanFolder: DefaultCleanFolder,
		MemorySize:  DefaultMemorySize,
		Name:        DefaultFunctionName(service, stage),
		Schedule:    []string{DefaultSchedule},
		Timeout:     DefaultTimeout,
		Precheck:    DefaultPrecheck,
		Endpoint:    DefaultEndpoint,
		FolderName:  DefaultFolderName,
	}
}

// Resolve applies user overrides over defaults. A field is overridden only when
// the supplied value has the expected shape; anything else keeps the default.
// The result shares no maps or slices with either input.
func Resolve(defaults Options, overrides map[string]any) Options {
	opts := defaults.clone()

	if v, ok := overrides["cleanFolder"].(bool); ok {
		opts.CleanFolder = v
	}
	if v, ok := asInt(overrides["memorySize"]); ok {
		opts.MemorySize = v
	}
	if v, ok := overrides["role"].(string); ok {
		opts.Role = v
	}
	if v, ok := overrides["name"].(string); ok {
		opts.Name = v
	}
	if v, ok := asSchedule(overrides["schedule"]); ok {
		opts.Schedule = v
	}
	if v, ok := asInt(overrides["timeout"]); ok {
		opts.Timeout = v
	}
	if v, ok := overrides["precheck"].(bool); ok {
		opts.Precheck = v
	}
	if v, ok := overrides["endpoint"].(string); ok {
		opts.Endpoint = v
	}
	if v, ok := AsMap(overrides["format"]); ok {
		opts.Format = v
	}
	if v, ok := overrides["folderName"].(string); ok {
		opts.FolderName = v
	}

	return opts
}

func (o Options) clone() Options {
	c := o
	c.Schedule = append([]string(nil), o.Schedule...)
	c.Format = CloneMap(o.Format)
	return c
}

// asInt accepts the numeric kinds YAML and JSON decoders produce. Fractional
// values are truncated toward zero.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return asInt(float64(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(math.Trunc(n)), true
	default:
		return 0, false
	}
}

func asSchedule(v any) ([]string, bool) {
	switch s := v.(type) {
	case string:
		return []string{s}, true
	case []string:
		if len(s) == 0 {
			return nil, false
		}
		return append([]string(nil), s...), true
	case []any:
		if len(s) == 0 {
			return nil, false
		}
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}

// AsMap returns a deep copy of v when it is a decoded object. yaml.v3 decodes
// mappings with non-string keys as map[any]any; those keys are stringified.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t), true
	case map[any]any:
		return stringKeys(t), true
	default:
		return nil, false
	}
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = cloneValue(v)
	}
	return out
}

// CloneMap deep-copies a decoded YAML/JSON object.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case map[any]any:
		return stringKeys(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
