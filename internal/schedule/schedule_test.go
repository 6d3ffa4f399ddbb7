package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		unsupported bool
	}{
		{name: "default rate", expression: "rate(5 minutes)"},
		{name: "singular rate", expression: "rate(1 hour)"},
		{name: "rate in days", expression: "rate(2 days)"},
		{name: "cron with question mark", expression: "cron(0 12 * * ? *)"},
		{name: "cron with step", expression: "cron(0/15 * * * ? *)"},
		{name: "cron weekday names", expression: "cron(0 18 ? * MON-FRI *)"},
		{name: "cron numeric weekdays", expression: "cron(0 8 ? * 2-6 *)"},
		{name: "cron month names", expression: "cron(0 0 1 JAN,JUL ? *)"},
		{name: "surrounding spaces", expression: "  rate(10 minutes) "},
		{name: "zero rate", expression: "rate(0 minutes)", wantErr: true},
		{name: "negative rate", expression: "rate(-1 minutes)", wantErr: true},
		{name: "unknown unit", expression: "rate(5 seconds)", wantErr: true},
		{name: "rate missing unit", expression: "rate(5)", wantErr: true},
		{name: "cron too few fields", expression: "cron(* * * * *)", wantErr: true},
		{name: "cron invalid minute", expression: "cron(60 * * * ? *)", wantErr: true},
		{name: "cron weekday out of range", expression: "cron(0 0 ? * 8 *)", wantErr: true},
		{name: "no wrapper", expression: "*/5 * * * *", wantErr: true},
		{name: "empty", expression: "", wantErr: true},
		{name: "last day of month", expression: "cron(0 0 L * ? *)", wantErr: true, unsupported: true},
		{name: "nth weekday", expression: "cron(0 0 ? * 6#3 *)", wantErr: true, unsupported: true},
		{name: "fixed year", expression: "cron(0 0 1 1 ? 2027)", wantErr: true, unsupported: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.expression)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.unsupported && !errors.Is(err, ErrUnsupported) {
				t.Errorf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		expression string
		want       time.Duration
	}{
		{"rate(5 minutes)", 5 * time.Minute},
		{"rate(1 minute)", time.Minute},
		{"rate(3 hours)", 3 * time.Hour},
		{"rate(1 day)", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := ParseRate(tt.expression)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNext(t *testing.T) {
	after := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) // Monday

	tests := []struct {
		name       string
		expression string
		want       time.Time
	}{
		{
			name:       "rate",
			expression: "rate(5 minutes)",
			want:       time.Date(2026, 1, 5, 10, 5, 0, 0, time.UTC),
		},
		{
			name:       "daily at noon",
			expression: "cron(0 12 * * ? *)",
			want:       time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
		},
		{
			name:       "sunday is day one",
			expression: "cron(0 9 ? * 1 *)",
			want:       time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:       "saturday is day seven",
			expression: "cron(0 9 ? * 7 *)",
			want:       time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.expression, after)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestShiftDow(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"?", "?"},
		{"*", "*"},
		{"1", "0"},
		{"2-6", "1-5"},
		{"1,7", "0,6"},
		{"2/2", "1/2"},
		{"MON-FRI", "MON-FRI"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := shiftDow(tt.field)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := shiftDow("0")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]string{"rate(5 minutes)", "cron(0 12 * * ? *)"}))
	require.NoError(t, Validate([]string{"cron(0 0 L * ? *)"}), "unsupported locally is only a warning")
	require.NoError(t, Validate(nil))

	err := Validate([]string{"rate(5 minutes)", "every hour", "rate(0 days)"})
	require.ErrorIs(t, err, ErrInvalidExpression)
	require.Contains(t, err.Error(), "every hour")
}

func TestRunner(t *testing.T) {
	r := NewRunner()
	require.Error(t, r.Add("not a schedule", func() {}))
	require.Equal(t, 0, r.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, r.Run(ctx), "running without schedules fails")

	var calls atomic.Int32
	require.NoError(t, r.Add("rate(1 minute)", func() { calls.Add(1) }))
	require.Equal(t, 1, r.Len())

	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))
	require.Equal(t, int32(0), calls.Load(), "first activation is a full interval away")
}
