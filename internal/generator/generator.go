// Package generator defines the contract shared by output generators and the helpers they
// use to report per-node failures and write output files.
package generator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"git.home.luguber.info/inful/doctool/internal/model"
)

// Generator renders an identified library into an output tree.
//
// A failure limited to individual nodes is returned as a *GenerationError after every other
// node has been written. Any other error means the generator could not run at all.
type Generator interface {
	Name() string
	Generate(ctx context.Context, lib *model.Library) error
}

// Stats counts what a generator did with its output files.
type Stats struct {
	Written   int
	Unchanged int
	Failed    int
}

// NodeFailure is one output file that could not be produced. NodeID is empty for files that
// do not belong to a node, such as the index or static assets.
type NodeFailure struct {
	NodeID model.NodeID
	Name   string
	Path   string
	Err    error
}

func (f NodeFailure) Error() string {
	subject := string(f.NodeID)
	if subject == "" {
		subject = f.Path
	}
	return fmt.Sprintf("%s: %v", subject, f.Err)
}

func (f NodeFailure) Unwrap() error { return f.Err }

// GenerationError aggregates the node failures of one generator run.
type GenerationError struct {
	Generator string
	Failures  []NodeFailure
}

func (e *GenerationError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("%s generator: %s", e.Generator, e.Failures[0].Error())
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s generator: %d outputs failed: %s", e.Generator, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the individual causes to errors.Is and errors.As.
func (e *GenerationError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

// AsGenerationError finds a *GenerationError in err's chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// Failures collects node failures from concurrent workers.
type Failures struct {
	mu   sync.Mutex
	list []NodeFailure
}

// Add records a failure.
func (f *Failures) Add(failure NodeFailure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append(f.list, failure)
}

// Len returns the number of recorded failures.
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.list)
}

// Err returns nil when nothing failed, else a *GenerationError with the failures ordered by path.
func (f *Failures) Err(generator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.list) == 0 {
		return nil
	}
	list := slices.Clone(f.list)
	slices.SortStableFunc(list, func(a, b NodeFailure) int { return cmp.Compare(a.Path, b.Path) })
	return &GenerationError{Generator: generator, Failures: list}
}
