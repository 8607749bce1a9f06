package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/inful/mdfp"
)

// Writer writes output files below a root directory. Files whose content fingerprint is
// unchanged are left alone so their modification time survives incremental runs.
type Writer struct {
	root      string
	written   atomic.Int64
	unchanged atomic.Int64
}

// NewWriter creates a Writer for root.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the output root.
func (w *Writer) Root() string { return w.root }

// Write stores data at rel (slash separated, relative to the root) and reports whether the
// file changed.
func (w *Writer) Write(rel string, data []byte) (bool, error) {
	full, err := w.resolve(rel)
	if err != nil {
		return false, err
	}

	// #nosec G304 -- full is validated to stay under the output root.
	if existing, err := os.ReadFile(full); err == nil && fingerprint(existing) == fingerprint(data) {
		w.unchanged.Add(1)
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, fmt.Errorf("set output file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return false, fmt.Errorf("replace output file: %w", err)
	}
	w.written.Add(1)
	return true, nil
}

// Counts returns how many files were written and left unchanged so far.
func (w *Writer) Counts() (written, unchanged int) {
	return int(w.written.Load()), int(w.unchanged.Load())
}

func (w *Writer) resolve(rel string) (string, error) {
	if w.root == "" {
		return "", errors.New("output directory is required")
	}
	if rel == "" {
		return "", errors.New("output path is required")
	}
	cleanRel := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleanRel) || cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes the output directory", rel)
	}
	return filepath.Join(w.root, cleanRel), nil
}

func fingerprint(data []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(data))
}
