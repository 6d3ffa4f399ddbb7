package deploy

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/config"
	"github.com/watzon/healthcheck/internal/targets"
)

// Describe builds the generated function's descriptor. The HTTP route is only
// added for plans built from event-level checks.
func Describe(opts config.Options, handler string, mode targets.Mode) Descriptor {
	d := Descriptor{
		Description: Description,
		Handler:     handler,
		Name:        opts.Name,
		MemorySize:  opts.MemorySize,
		Timeout:     opts.Timeout,
		Package:     Package{Patterns: PackagePatterns(opts.FolderName)},
	}

	if opts.Role != "" {
		d.Role = NewRoleRef(opts.Role)
	}

	if mode == targets.ModeEvents {
		d.Events = append(d.Events, Event{HTTP: &HTTPEvent{
			Path:    opts.Endpoint,
			Method:  "get",
			Private: false,
		}})
	}
	for _, expr := range opts.Schedule {
		d.Events = append(d.Events, Event{Schedule: &ScheduleEvent{Rate: expr}})
	}

	return d
}

// Bind returns a new manifest with the generated function registered under
// the reserved key. m is not modified; binding again overwrites the entry.
func Bind(m *Manifest, opts config.Options, handler string, mode targets.Mode) (*Manifest, Descriptor, error) {
	if m == nil {
		return nil, Descriptor{}, errors.New("manifest is required")
	}

	d := Describe(opts, handler, mode)
	bound, err := m.WithFunction(ReservedKey, d)
	if err != nil {
		return nil, Descriptor{}, fmt.Errorf("binding %s: %w", ReservedKey, err)
	}

	log.Debug().
		Str("key", ReservedKey).
		Str("name", d.Name).
		Str("handler", d.Handler).
		Int("events", len(d.Events)).
		Msg("Bound health check function")
	return bound, d, nil
}
