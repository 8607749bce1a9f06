// Package vcs derives bundle versions from the version control state of the sources.
package vcs

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
)

// FallbackVersion is used when no commit can be found.
const FallbackVersion = "1.0"

// ErrNoRepository is returned when dir is not inside a git work tree.
var ErrNoRepository = errors.New("not a git repository")

// HeadVersion returns "git-" followed by the abbreviated HEAD commit of the repository
// containing dir. Parent directories are searched for the repository.
func HeadVersion(dir string) (string, error) {
	repository, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNoRepository, dir)
		}
		return "", fmt.Errorf("open repository: %w", err)
	}
	ref, err := repository.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return "git-" + ref.Hash().String()[:7], nil
}

// BundleVersion returns configured when set, else the HEAD version of dir, else FallbackVersion.
func BundleVersion(configured, dir string, logger *slog.Logger) string {
	if configured != "" {
		return configured
	}
	if logger == nil {
		logger = slog.Default()
	}
	v, err := HeadVersion(dir)
	if err != nil {
		logger.Debug("No version control version available", slog.String("dir", dir), slog.String("error", err.Error()))
		return FallbackVersion
	}
	return v
}
