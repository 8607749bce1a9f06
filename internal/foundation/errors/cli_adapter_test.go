package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "configuration", err: ConfigError("missing outputPath").Build(), expected: 7},
		{name: "wrapped configuration", err: fmt.Errorf("load: %w", ConfigError("bad").Build()), expected: 7},
		{name: "unknown", err: UnknownError("cycle").Build(), expected: 10},
		{name: "generation", err: GenerationError("write failed").Build(), expected: 11},
		{name: "compiler diagnostic", err: CompilerDiagnosticError("error in a.h").Build(), expected: 12},
		{name: "cache", err: CacheError("corrupt").Build(), expected: 1},
		{name: "unclassified", err: errors.New("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	t.Run("configuration is user facing", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, slog.Default())
		msg := adapter.FormatError(WrapError(errors.New("no such file"), CategoryConfig, "cannot read doctool.yaml").Build())
		if !strings.HasPrefix(msg, "Configuration error: cannot read doctool.yaml") {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("internal is hidden unless verbose", func(t *testing.T) {
		quiet := NewCLIErrorAdapter(false, slog.Default())
		loud := NewCLIErrorAdapter(true, slog.Default())
		err := InternalError("nil library").Build()
		if got := quiet.FormatError(err); !strings.Contains(got, "use -v") {
			t.Errorf("expected hint, got %q", got)
		}
		if got := loud.FormatError(err); got != err.Error() {
			t.Errorf("expected full error, got %q", got)
		}
	})

	t.Run("unclassified", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, nil)
		if got := adapter.FormatError(errors.New("boom")); got != "Error: boom" {
			t.Errorf("unexpected message %q", got)
		}
		if got := adapter.FormatError(nil); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}
