// Package pathmatch matches source paths against gitignore-style exclude patterns.
package pathmatch

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Matcher reports whether a source file is excluded. A nil Matcher excludes nothing.
type Matcher struct {
	patterns []string
	gi       *ignore.GitIgnore
	roots    []string
}

// Compile builds a Matcher. Patterns follow .gitignore syntax: "*Private.h" matches at any
// depth, "Tests/" matches a directory, "**/Generated/*.h" crosses directories.
func Compile(patterns []string, roots ...string) (*Matcher, error) {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := path.Match(strings.ReplaceAll(p, "**", "*"), ""); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	m := &Matcher{patterns: cleaned, gi: ignore.CompileIgnoreLines(cleaned...)}
	for _, r := range roots {
		m.roots = append(m.roots, filepath.Clean(r))
	}
	return m, nil
}

// Patterns returns the compiled patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

// Excluded reports whether file matches any pattern. The path is tried relative to each
// root that contains it and, failing that, as given.
func (m *Matcher) Excluded(file string) bool {
	if m == nil || file == "" {
		return false
	}
	file = filepath.Clean(file)
	for _, root := range m.roots {
		rel, err := filepath.Rel(root, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if m.gi.MatchesPath(filepath.ToSlash(rel)) {
			return true
		}
	}
	return m.gi.MatchesPath(filepath.ToSlash(strings.TrimPrefix(file, string(filepath.Separator))))
}

// HasExtension reports whether file's extension is in allowed (case-insensitive).
// An empty allow list allows everything.
func HasExtension(file string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(file))
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}
