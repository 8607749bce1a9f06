package source

import "errors"

// Sentinel errors for source discovery and parsing.
var (
	// ErrSourcePathNotFound indicates a configured source path does not exist.
	ErrSourcePathNotFound = errors.New("source path not found")

	// ErrSourceWalkFailed indicates traversal of a source directory failed.
	ErrSourceWalkFailed = errors.New("source directory walk failed")

	// ErrNoSourcesFound indicates discovery found no files to document.
	ErrNoSourcesFound = errors.New("no source files found")
)
