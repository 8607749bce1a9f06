package testing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileAssertions checks the state of an output tree.
type FileAssertions struct {
	t       testing.TB
	baseDir string
}

// NewFileAssertions creates a new file assertions helper rooted at baseDir.
func NewFileAssertions(t testing.TB, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

// AssertFileExists validates that a file exists.
func (fa *FileAssertions) AssertFileExists(relativePaths ...string) *FileAssertions {
	fa.t.Helper()
	for _, rel := range relativePaths {
		fullPath := filepath.Join(fa.baseDir, filepath.FromSlash(rel))
		if _, err := os.Stat(fullPath); err != nil {
			fa.t.Errorf("Expected file to exist: %s", fullPath)
		}
	}
	return fa
}

// AssertFileNotExists validates that a file does not exist.
func (fa *FileAssertions) AssertFileNotExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, filepath.FromSlash(relativePath))
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected file to not exist: %s", fullPath)
	}
	return fa
}

// AssertFileContains validates that a file contains every expected fragment.
func (fa *FileAssertions) AssertFileContains(relativePath string, expected ...string) *FileAssertions {
	fa.t.Helper()
	content := fa.GetFileContent(relativePath)
	for _, e := range expected {
		if !strings.Contains(content, e) {
			fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s", relativePath, e, content)
		}
	}
	return fa
}

// AssertFileNotContains validates that a file contains none of the fragments.
func (fa *FileAssertions) AssertFileNotContains(relativePath string, unexpected ...string) *FileAssertions {
	fa.t.Helper()
	content := fa.GetFileContent(relativePath)
	for _, u := range unexpected {
		if strings.Contains(content, u) {
			fa.t.Errorf("Expected file %s not to contain %q", relativePath, u)
		}
	}
	return fa
}

// ListFiles returns the slash-separated paths of all files below relativePath, sorted.
func (fa *FileAssertions) ListFiles(relativePath string) []string {
	fa.t.Helper()
	root := filepath.Join(fa.baseDir, filepath.FromSlash(relativePath))
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		fa.t.Logf("Failed to walk %s: %v", root, err)
	}
	return files
}

// GetFileContent reads and returns the content of a file.
func (fa *FileAssertions) GetFileContent(relativePath string) string {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, filepath.FromSlash(relativePath))
	content, err := os.ReadFile(fullPath)
	if err != nil {
		fa.t.Fatalf("Failed to read file %s: %v", fullPath, err)
	}
	return string(content)
}
