package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")
	health := 97.5

	tests := []struct {
		name     string
		input    []any
		wantKeys []string
	}{
		{"empty input", []any{}, nil},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, []string{"a", "b", "c"}},
		{"time type", []any{"t", now}, []string{"t"}},
		{"float type", []any{"range", 312.0}, []string{"range"}},
		{"float pointer", []any{"health", &health}, []string{"health"}},
		{"bytes", []any{"data", []byte("xyz")}, []string{"data"}},
		{"error only", []any{err}, []string{"error"}},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, []string{"msg", "x", "num"}},
		{"odd number of args", []any{"key1", "val1", "key2"}, []string{"key1", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"duration", []any{"interval", 48 * time.Minute}, []string{"interval"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			if len(fields) != len(tt.wantKeys) {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), len(tt.wantKeys), fields)
			}

			for i, f := range fields {
				if f.Key != tt.wantKeys[i] {
					t.Errorf("field %d key = %q, want %q", i, f.Key, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestLoggerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).WithName("poller").WithValues("vehicle", "KMH123")

	l.Error(errors.New("token expired"), "Vehicle refresh failed", "kind", "authentication")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.LoggerName != "poller" {
		t.Errorf("logger name = %q, want poller", e.LoggerName)
	}

	ctx := e.ContextMap()
	if ctx["vehicle"] != "KMH123" {
		t.Errorf("vehicle = %v, want KMH123", ctx["vehicle"])
	}
	if ctx["kind"] != "authentication" {
		t.Errorf("kind = %v, want authentication", ctx["kind"])
	}
	if ctx["error"] != "token expired" {
		t.Errorf("error = %v, want token expired", ctx["error"])
	}
}

func TestOptionsValidate(t *testing.T) {
	o := NewOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("default options invalid: %v", errs)
	}

	o.Level = "loud"
	o.Format = "xml"
	if errs := o.Validate(); len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}
