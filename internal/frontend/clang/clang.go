// Package clang implements the front end by running clang and decoding its JSON AST dump.
package clang

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/frontend"
	"git.home.luguber.info/inful/doctool/internal/logfields"
)

// FrontEnd runs clang once per file.
type FrontEnd struct {
	path   string
	logger *slog.Logger
}

// New returns a FrontEnd using the clang binary at path, looked up in PATH when it has no
// directory component.
func New(path string, logger *slog.Logger) *FrontEnd {
	if path == "" {
		path = "clang"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrontEnd{path: path, logger: logger}
}

var _ frontend.FrontEnd = (*FrontEnd)(nil)

// Arguments returns the full clang command line for req, without the binary.
func Arguments(req frontend.Request) []string {
	args := []string{"-fsyntax-only", "-Xclang", "-ast-dump=json", "-fparse-all-comments"}
	if !slices.Contains(req.Arguments, "-x") {
		args = append(args, "-x", "objective-c")
	}
	args = append(args, req.Arguments...)
	return append(args, req.Path)
}

// Parse runs clang on req.Path. Compiler errors become diagnostics on the unit; only a
// failure to start clang or to read its output is returned as an error.
func (f *FrontEnd) Parse(ctx context.Context, req frontend.Request) (*decl.Unit, error) {
	content := req.Content
	if content == nil {
		var err error
		// #nosec G304 -- path comes from source discovery
		if content, err = os.ReadFile(req.Path); err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Path, err)
		}
	}

	// #nosec G204 -- arguments come from the trusted configuration file
	cmd := exec.CommandContext(ctx, f.path, Arguments(req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("clang stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", f.path, err)
	}

	unit, decodeErr := Decode(stdout, req.Path, content)
	// Drain anything left so clang can exit.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	diags := ParseDiagnostics(stderr.String())
	if unit == nil {
		unit = &decl.Unit{Path: req.Path}
	}
	unit.Diagnostics = append(unit.Diagnostics, diags...)

	var exitErr *exec.ExitError
	switch {
	case waitErr != nil && !errors.As(waitErr, &exitErr):
		return nil, fmt.Errorf("run %s: %w", f.path, waitErr)
	case waitErr != nil && !unit.Fatal():
		// clang failed without saying why; keep the reason with the unit.
		unit.Diagnostics = append(unit.Diagnostics, decl.Diagnostic{
			Severity: decl.SeverityFatal,
			Location: decl.SourceLocation{Path: req.Path},
			Message:  fmt.Sprintf("clang exited with status %d", exitErr.ExitCode()),
		})
	case decodeErr != nil && !unit.Fatal():
		return nil, fmt.Errorf("decode clang AST for %s: %w", req.Path, decodeErr)
	}
	if decodeErr != nil {
		f.logger.Debug("Incomplete AST for failed parse", logfields.File(req.Path), logfields.Error(decodeErr))
	}
	return unit, nil
}

var diagnosticLine = regexp.MustCompile(`^(.+?):(\d+):(\d+): (fatal error|error|warning|note): (.*)$`)

// ParseDiagnostics extracts "file:line:col: severity: message" lines from clang's stderr.
// Source excerpts and caret lines are ignored.
func ParseDiagnostics(stderr string) []decl.Diagnostic {
	var out []decl.Diagnostic
	for line := range strings.Lines(stderr) {
		m := diagnosticLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		out = append(out, decl.Diagnostic{
			Severity: severity(m[4]),
			Location: decl.SourceLocation{Path: filepath.Clean(m[1]), Line: max(ln-1, 0), Column: max(col-1, 0)},
			Message:  m[5],
		})
	}
	return out
}

func severity(s string) decl.Severity {
	switch s {
	case "fatal error":
		return decl.SeverityFatal
	case "error":
		return decl.SeverityError
	case "warning":
		return decl.SeverityWarning
	}
	return decl.SeverityNote
}
