// Package frontend defines the boundary between doctool and the compiler front end that
// extracts declarations from source files.
package frontend

import (
	"context"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// Request describes one file to parse.
type Request struct {
	// Path is the absolute path of the main file.
	Path string
	// Content is the file content the fingerprint was computed from.
	Content []byte
	// Arguments are passed to the compiler unchanged and in order.
	Arguments []string
}

// FrontEnd parses one translation unit.
//
// Implementations report problems in the source as diagnostics on the returned unit; an
// error means the front end itself could not run. Parse may be called concurrently.
type FrontEnd interface {
	Parse(ctx context.Context, req Request) (*decl.Unit, error)
}

// Func adapts a function to FrontEnd.
type Func func(ctx context.Context, req Request) (*decl.Unit, error)

// Parse calls f.
func (f Func) Parse(ctx context.Context, req Request) (*decl.Unit, error) {
	return f(ctx, req)
}
