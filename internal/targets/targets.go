// Package targets decides which functions and events a health check invokes.
package targets

import (
	"github.com/watzon/healthcheck/internal/service"
)

// Mode is the selection model a plan was built with.
type Mode string

const (
	// ModeFunctions is the legacy model: function-level stage gating only.
	ModeFunctions Mode = "functions"
	// ModeEvents is the per-route model with params and output formats.
	ModeEvents Mode = "events"
)

// Target is one invocation the generated handler performs.
type Target struct {
	// Key is the function's declaration key.
	Key string `json:"key"`
	// Function is the deployed function name to invoke.
	Function string `json:"function"`
	// Params is merged into the invocation payload.
	Params map[string]any `json:"params,omitempty"`
	// Format is this check's output template.
	Format map[string]any `json:"format,omitempty"`
	// Path and Method describe the originating HTTP event, if any.
	Path   string `json:"path,omitempty"`
	Method string `json:"method,omitempty"`
	// Event is true when the target came from an event-level declaration.
	Event bool `json:"event,omitempty"`
}

// EventTarget is an event-level check of a single function.
type EventTarget struct {
	Path   string
	Method string
	Params map[string]any
	Format map[string]any
}

// Plan is the ordered set of targets for one stage.
type Plan struct {
	Mode    Mode
	Targets []Target
}

// Empty reports whether there is nothing to check.
func (p Plan) Empty() bool {
	return len(p.Targets) == 0
}

// Names returns the deployed function names in target order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		names[i] = t.Function
	}
	return names
}

// SelectFunctionTargets returns the functions whose declaration matches stage,
// in declaration order. Duplicates are kept.
func SelectFunctionTargets(functions []*service.Function, stage string) []*service.Function {
	selected := make([]*service.Function, 0, len(functions))
	for _, fn := range functions {
		if fn.Healthcheck.EnabledFor(stage) {
			selected = append(selected, fn)
		}
	}
	return selected
}

// SelectEventTargets returns the HTTP events of fn that carry a health check.
func SelectEventTargets(fn *service.Function) []EventTarget {
	var selected []EventTarget
	for _, ev := range fn.Events {
		if ev.HTTP == nil || ev.HTTP.Check == nil {
			continue
		}
		selected = append(selected, EventTarget{
			Path:   ev.HTTP.Path,
			Method: ev.HTTP.Method,
			Params: ev.HTTP.Check.Params,
			Format: ev.HTTP.Check.Format,
		})
	}
	return selected
}

// Select builds the plan for stage. Event-level checks are the primary model;
// a function-level declaration is treated as a check without params or format
// and is placed before that function's event checks.
func Select(functions []*service.Function, stage string) Plan {
	plan := Plan{Mode: ModeFunctions}

	for _, fn := range functions {
		if fn.Healthcheck.EnabledFor(stage) {
			plan.Targets = append(plan.Targets, Target{
				Key:      fn.Key,
				Function: fn.Name,
			})
		}

		for _, ev := range SelectEventTargets(fn) {
			plan.Mode = ModeEvents
			plan.Targets = append(plan.Targets, Target{
				Key:      fn.Key,
				Function: fn.Name,
				Params:   ev.Params,
				Format:   ev.Format,
				Path:     ev.Path,
				Method:   ev.Method,
				Event:    true,
			})
		}
	}

	return plan
}
