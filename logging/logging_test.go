package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)
	logger.SetLevel(DebugLevel)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error(errors.New("boom"), "error line")

	if !strings.Contains(stdout.String(), "[DEBUG] debug line") || !strings.Contains(stdout.String(), "[INFO] info line") {
		t.Errorf("stdout missing debug/info lines: %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "warn line") {
		t.Errorf("warn leaked to stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "[WARN] warn line") {
		t.Errorf("stderr missing warn line: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "[ERROR] error line: boom") {
		t.Errorf("stderr missing error line: %q", stderr.String())
	}
}

func TestDefaultLoggerFiltersBelowLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", stdout.String())
	}
}

func TestWithFieldsMergesSorted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	base := NewWriterLogger(&stdout, &stderr)
	scoped := base.WithFields(Fields{"component": "cqt"})

	scoped.Info("octave", Fields{"bins": 12})

	got := stdout.String()
	if !strings.Contains(got, "{bins=12 component=cqt}") {
		t.Errorf("fields not merged in sorted order: %q", got)
	}

	stdout.Reset()
	base.Info("plain")
	if strings.Contains(stdout.String(), "component") {
		t.Errorf("WithFields mutated the parent logger: %q", stdout.String())
	}
}

func TestWithContextPicksUpFields(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)

	ctx := ContextWithFields(context.Background(), Fields{"run": "abc"})
	logger.WithContext(ctx).Info("started")

	if !strings.Contains(stdout.String(), "run=abc") {
		t.Errorf("context fields missing: %q", stdout.String())
	}
}

func TestFatalCallsExit(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewWriterLogger(&stdout, &stderr)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("bad"), "giving up")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "[FATAL] giving up: bad") {
		t.Errorf("fatal line missing: %q", stderr.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetGlobalLoggerNilInstallsNoOp(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Fatalf("expected NoOpLogger, got %T", GetGlobalLogger())
	}
	Info("discarded")
}
