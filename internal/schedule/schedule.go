// Package schedule understands the provider's rate(...) and cron(...)
// expressions and runs callbacks on them locally.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidExpression = errors.New("invalid schedule expression")
	// ErrUnsupported marks expressions valid for the provider that cannot run locally.
	ErrUnsupported = errors.New("schedule expression not supported locally")
)

// Parser wraps robfig/cron for the provider's expression syntax.
type Parser struct {
	parser cron.Parser
}

// NewParser creates a parser for five-field cron bodies.
func NewParser() *Parser {
	return &Parser{
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		),
	}
}

// Parse parses "rate(<n> <unit>)" or "cron(<6 fields>)".
func (p *Parser) Parse(expression string) (cron.Schedule, error) {
	expr := strings.TrimSpace(expression)

	switch {
	case strings.HasPrefix(expr, "rate(") && strings.HasSuffix(expr, ")"):
		d, err := ParseRate(expr)
		if err != nil {
			return nil, err
		}
		return cron.Every(d), nil

	case strings.HasPrefix(expr, "cron(") && strings.HasSuffix(expr, ")"):
		spec, err := translateCron(expr[len("cron(") : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expression, err)
		}
		sched, err := p.parser.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expression, err)
		}
		return sched, nil

	default:
		return nil, fmt.Errorf("%w: %q: expected rate(...) or cron(...)", ErrInvalidExpression, expression)
	}
}

// Parse parses an expression with a default parser.
func Parse(expression string) (cron.Schedule, error) {
	return NewParser().Parse(expression)
}

// ParseRate returns the interval of a "rate(<n> <unit>)" expression.
func ParseRate(expression string) (time.Duration, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(expression), "rate("), ")")
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: %q: expected rate(<value> <unit>)", ErrInvalidExpression, expression)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q: value must be a positive integer", ErrInvalidExpression, expression)
	}

	var unit time.Duration
	switch fields[1] {
	case "minute", "minutes":
		unit = time.Minute
	case "hour", "hours":
		unit = time.Hour
	case "day", "days":
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: %q: unit must be minute(s), hour(s) or day(s)", ErrInvalidExpression, expression)
	}

	return time.Duration(n) * unit, nil
}

// translateCron turns "min hour dom month dow year" into a five-field spec.
func translateCron(body string) (string, error) {
	fields := strings.Fields(body)
	if len(fields) != 6 {
		return "", fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	for _, f := range fields {
		if !supported(f) {
			return "", fmt.Errorf("%w: field %q", ErrUnsupported, f)
		}
	}
	if fields[5] != "*" {
		return "", fmt.Errorf("%w: year field %q", ErrUnsupported, fields[5])
	}

	dow, err := shiftDow(fields[4])
	if err != nil {
		return "", err
	}

	out := []string{fields[0], fields[1], fields[2], fields[3], dow}
	for i, f := range out {
		if f == "?" {
			out[i] = "*"
		}
	}
	return strings.Join(out, " "), nil
}

// supported reports whether every token of f is a number, a wildcard or a
// three-letter month or weekday name. L, W and # tokens are not.
func supported(f string) bool {
	for _, tok := range strings.FieldsFunc(f, func(r rune) bool { return r == ',' || r == '-' || r == '/' }) {
		if tok == "*" || tok == "?" {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			continue
		}
		if len(tok) == 3 && strings.IndexFunc(tok, func(r rune) bool {
			return (r < 'A' || r > 'Z') && (r < 'a' || r > 'z')
		}) < 0 {
			continue
		}
		return false
	}
	return true
}

// shiftDow converts numeric weekdays from 1-7 (SUN-SAT) to 0-6.
func shiftDow(field string) (string, error) {
	if field == "?" || field == "*" {
		return field, nil
	}

	var b strings.Builder
	num := ""
	flush := func() error {
		if num == "" {
			return nil
		}
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 || n > 7 {
			return fmt.Errorf("day of week %q out of range 1-7", num)
		}
		b.WriteString(strconv.Itoa(n - 1))
		num = ""
		return nil
	}

	afterSlash := false
	for _, r := range field {
		switch {
		case r >= '0' && r <= '9' && !afterSlash:
			num += string(r)
		default:
			if err := flush(); err != nil {
				return "", err
			}
			if r == '/' {
				afterSlash = true
			} else if r == ',' {
				afterSlash = false
			}
			b.WriteRune(r)
		}
	}
	if err := flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Validate checks every expression and logs a warning for each one that is
// invalid or cannot run locally. It returns the first hard error.
func Validate(expressions []string) error {
	var first error
	p := NewParser()
	for _, expr := range expressions {
		_, err := p.Parse(expr)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnsupported):
			log.Warn().Str("schedule", expr).Msg("Schedule cannot be run locally")
		default:
			log.Warn().Err(err).Str("schedule", expr).Msg("Invalid schedule expression")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Next returns the next activation of expression after t.
func Next(expression string, after time.Time) (time.Time, error) {
	sched, err := Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}
