// Package source finds the files to document and drives the front end over them.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/pathmatch"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// File is one discovered source file.
type File struct {
	Path         string // Absolute path
	Root         string // The configured path the file was found under
	RelativePath string // Path relative to Root
	Rank         int    // Discovery order, from 0
}

// Discovery walks the configured source paths.
type Discovery struct {
	paths     []string
	fileTypes []string
	exclude   *pathmatch.Matcher
	logger    *slog.Logger
}

// NewDiscovery creates a Discovery. paths may name directories or single files; exclude may be nil.
func NewDiscovery(paths, fileTypes []string, exclude *pathmatch.Matcher, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{paths: paths, fileTypes: fileTypes, exclude: exclude, logger: logger}
}

// Discover returns the files to parse in a deterministic order: configured paths in order,
// each walked lexically. Hidden files and directories are skipped, as are excluded paths and
// files whose extension is not allowed. A file reachable from two paths is listed once.
func (d *Discovery) Discover(ctx context.Context) ([]File, error) {
	var files []File
	seen := sets.New[string]()

	for _, root := range d.paths {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, ferrors.WrapError(fmt.Errorf("%w: %s", ErrSourcePathNotFound, root), ferrors.CategoryConfig, "cannot read source path").
				Fatal().WithContext("path", root).Build()
		}

		add := func(path, rel string) {
			if seen.Has(path) {
				return
			}
			seen.Add(path)
			files = append(files, File{Path: path, Root: root, RelativePath: rel, Rank: len(files)})
			d.logger.Debug("Discovered file", logfields.File(rel), logfields.Path(root))
		}

		if !info.IsDir() {
			if d.accepts(root) {
				add(root, filepath.Base(root))
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				if path != root && d.exclude.Excluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.accepts(path) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			add(path, rel)
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ferrors.WrapError(fmt.Errorf("%w: %s: %w", ErrSourceWalkFailed, root, err), ferrors.CategoryFileSystem, "cannot walk source path").
				WithContext("path", root).Build()
		}
	}

	d.logger.Info("Source files discovered", logfields.Count(len(files)))
	return files, nil
}

func (d *Discovery) accepts(path string) bool {
	return pathmatch.HasExtension(path, d.fileTypes) && !d.exclude.Excluded(path)
}
