package service

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/config"
)

// EventType is the trigger kind of a function event.
type EventType string

const (
	// EventHTTP is an API Gateway HTTP event.
	EventHTTP EventType = "http"
	// EventSchedule is a scheduled event.
	EventSchedule EventType = "schedule"
)

// Event is one entry of a function's `events:` list.
type Event struct {
	// Type is the event's key (http, schedule, sqs, ...).
	Type EventType
	// HTTP is set for http events.
	HTTP *HTTPEvent
}

// HTTPEvent is an HTTP-triggered event.
type HTTPEvent struct {
	Path   string
	Method string
	// Check is the event-level health check, nil when not declared.
	Check *EventCheck
}

// EventCheck is an event-level `healthcheck: {params, format}` declaration.
type EventCheck struct {
	// Params is merged into the invocation payload.
	Params map[string]any
	// Format is the output template for this check's entry.
	Format map[string]any
}

func parseEvents(fnKey string, raw []map[string]any) []Event {
	events := make([]Event, 0, len(raw))
	for _, entry := range raw {
		for key, value := range entry {
			ev := Event{Type: EventType(key)}
			if ev.Type == EventHTTP {
				ev.HTTP = parseHTTPEvent(value)
				if ev.HTTP == nil {
					log.Warn().Str("function", fnKey).Msg("Ignoring malformed http event")
					continue
				}
			}
			events = append(events, ev)
		}
	}
	return events
}

// parseHTTPEvent accepts the `GET /path` shorthand and the long mapping form.
func parseHTTPEvent(v any) *HTTPEvent {
	switch t := v.(type) {
	case string:
		fields := strings.Fields(t)
		if len(fields) != 2 {
			return nil
		}
		return &HTTPEvent{Method: strings.ToLower(fields[0]), Path: fields[1]}
	case map[string]any:
		ev := &HTTPEvent{}
		ev.Path, _ = t["path"].(string)
		if method, ok := t["method"].(string); ok {
			ev.Method = strings.ToLower(method)
		}
		ev.Check = parseEventCheck(t["healthcheck"])
		return ev
	default:
		return nil
	}
}

// parseEventCheck returns nil unless the value is an object or `true`.
func parseEventCheck(v any) *EventCheck {
	switch t := v.(type) {
	case bool:
		if t {
			return &EventCheck{}
		}
	default:
		m, ok := config.AsMap(v)
		if !ok {
			return nil
		}
		check := &EventCheck{}
		check.Params, _ = config.AsMap(m["params"])
		check.Format, _ = config.AsMap(m["format"])
		return check
	}
	return nil
}
