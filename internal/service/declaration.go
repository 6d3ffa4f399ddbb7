package service

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// DeclarationKind identifies which shape a function-level healthcheck declaration took.
type DeclarationKind int

const (
	// Disabled covers an absent declaration and every unsupported shape.
	Disabled DeclarationKind = iota
	// EnabledAllStages is `healthcheck: true`.
	EnabledAllStages
	// EnabledForStages is a stage name or a list of stage names.
	EnabledForStages
)

// String returns a human-readable name for the kind.
func (k DeclarationKind) String() string {
	switch k {
	case EnabledAllStages:
		return "all-stages"
	case EnabledForStages:
		return "stages"
	default:
		return "disabled"
	}
}

// Declaration is a function-level `healthcheck:` value.
type Declaration struct {
	Kind   DeclarationKind
	Stages []string
}

// AllStages returns a declaration enabled for every stage.
func AllStages() Declaration {
	return Declaration{Kind: EnabledAllStages}
}

// ForStages returns a declaration enabled for the given stages.
func ForStages(stages ...string) Declaration {
	return Declaration{Kind: EnabledForStages, Stages: append([]string(nil), stages...)}
}

// ParseDeclaration classifies a decoded YAML/JSON value. `true`, a string, or a
// list made only of strings enable checks; anything else is Disabled.
func ParseDeclaration(v any) Declaration {
	switch t := v.(type) {
	case bool:
		if t {
			return AllStages()
		}
	case string:
		return ForStages(t)
	case []string:
		return ForStages(t...)
	case []any:
		stages := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return Declaration{}
			}
			stages = append(stages, s)
		}
		return ForStages(stages...)
	}
	return Declaration{}
}

// EnabledFor reports whether the declaration matches the active stage.
func (d Declaration) EnabledFor(stage string) bool {
	switch d.Kind {
	case EnabledAllStages:
		return true
	case EnabledForStages:
		return slices.Contains(d.Stages, stage)
	default:
		return false
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Declaration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		// Undecodable shapes are not an error, just not enabled.
		*d = Declaration{}
		return nil
	}
	*d = ParseDeclaration(raw)
	return nil
}
