// Package service loads serverless service descriptions.
package service

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/watzon/healthcheck/internal/config"
)

var ErrInvalidService = errors.New("invalid service description")

const defaultStage = "dev"

// Service is a parsed service description.
type Service struct {
	// Name is the service name.
	Name string
	// Stage is the active stage the function names were resolved for.
	Stage string
	// Provider holds the provider block.
	Provider Provider
	// Healthcheck is the raw custom.healthcheck block (nil when absent).
	Healthcheck map[string]any
	// Functions are the declared functions in declaration order.
	Functions []*Function
	// Document is the parsed YAML document the manifest is built from.
	Document *yaml.Node
}

// Provider is the provider block of a service description.
type Provider struct {
	Name    string `yaml:"name"`
	Runtime string `yaml:"runtime"`
	Stage   string `yaml:"stage"`
	Region  string `yaml:"region"`
}

// Function is a declared deployable unit.
type Function struct {
	// Key is the function's key under `functions:`.
	Key string
	// Name is the deployed function name.
	Name string
	// Handler is the function's entry point.
	Handler string
	// Healthcheck is the function-level declaration.
	Healthcheck Declaration
	// Events are the function's triggers in declaration order.
	Events []Event
}

type rawService struct {
	Service  yaml.Node      `yaml:"service"`
	Provider Provider       `yaml:"provider"`
	Custom   map[string]any `yaml:"custom"`
}

type rawFunction struct {
	Name        string           `yaml:"name"`
	Handler     string           `yaml:"handler"`
	Healthcheck Declaration      `yaml:"healthcheck"`
	Events      []map[string]any `yaml:"events"`
}

// Load reads and parses a service description file.
func Load(path, stage string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service file: %w", err)
	}
	return Parse(data, stage)
}

// Parse parses a service description. An empty stage falls back to
// provider.stage and then to "dev".
func Parse(data []byte, stage string) (*Service, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidService, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document must be a mapping", ErrInvalidService)
	}

	var raw rawService
	if err := doc.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidService, err)
	}

	name := serviceName(&raw.Service)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is required", ErrInvalidService)
	}

	if stage == "" {
		stage = raw.Provider.Stage
	}
	if stage == "" {
		stage = defaultStage
	}

	svc := &Service{
		Name:     name,
		Stage:    stage,
		Provider: raw.Provider,
		Document: &doc,
	}

	if custom, ok := config.AsMap(raw.Custom["healthcheck"]); ok {
		svc.Healthcheck = custom
	}

	functions, err := parseFunctions(doc.Content[0], name, stage)
	if err != nil {
		return nil, err
	}
	svc.Functions = functions

	return svc, nil
}

// Function returns a declared function by key.
func (s *Service) Function(key string) (*Function, bool) {
	for _, fn := range s.Functions {
		if fn.Key == key {
			return fn, true
		}
	}
	return nil, false
}

// Region returns the region override, or the provider's region.
func (s *Service) Region(override string) string {
	if override != "" {
		return override
	}
	return s.Provider.Region
}

// serviceName accepts both `service: name` and `service: {name: name}`.
func serviceName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.ScalarNode:
		return strings.TrimSpace(node.Value)
	case yaml.MappingNode:
		var v struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&v); err == nil {
			return strings.TrimSpace(v.Name)
		}
	}
	return ""
}

func parseFunctions(root *yaml.Node, serviceName, stage string) ([]*Function, error) {
	node := mappingValue(root, "functions")
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: functions must be a mapping", ErrInvalidService)
	}

	functions := make([]*Function, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var raw rawFunction
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: functions.%s: %w", ErrInvalidService, key, err)
		}

		fn := &Function{
			Key:         key,
			Name:        raw.Name,
			Handler:     raw.Handler,
			Healthcheck: raw.Healthcheck,
			Events:      parseEvents(key, raw.Events),
		}
		if fn.Name == "" {
			fn.Name = fmt.Sprintf("%s-%s-%s", serviceName, stage, key)
		}

		functions = append(functions, fn)
		log.Debug().
			Str("function", key).
			Str("name", fn.Name).
			Str("healthcheck", fn.Healthcheck.Kind.String()).
			Int("events", len(fn.Events)).
			Msg("Parsed function")
	}

	return functions, nil
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
