// Package decl holds the values exchanged with a declaration front end: raw declarations,
// their structured comments, availability metadata and parse diagnostics.
//
// Everything here is plain data so it can be cached and compared.
package decl

import (
	"fmt"
	"strings"
)

// Kind identifies what a raw declaration declares.
type Kind string

const (
	KindClass          Kind = "class"
	KindProtocol       Kind = "protocol"
	KindCategory       Kind = "category"
	KindFunction       Kind = "function"
	KindVariable       Kind = "variable"
	KindEnum           Kind = "enum"
	KindEnumConstant   Kind = "enumConstant"
	KindStruct         Kind = "struct"
	KindField          Kind = "field"
	KindIvar           Kind = "ivar"
	KindClassMethod    Kind = "classMethod"
	KindInstanceMethod Kind = "instanceMethod"
	KindProperty       Kind = "property"
	KindParameter      Kind = "parameter"
	KindTypedef        Kind = "typedef"
)

// SourceLocation is a position in a source file. Line and Column are 0-indexed.
type SourceLocation struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String renders the location the way compilers print it (1-indexed).
func (l SourceLocation) String() string {
	if l.Path == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line+1, l.Column+1)
}

// Declaration is one declaration cursor as reported by the front end.
type Declaration struct {
	Kind      Kind           `json:"kind"`
	Name      string         `json:"name"`
	Signature string         `json:"signature,omitempty"`
	Type      string         `json:"type,omitempty"`
	Location  SourceLocation `json:"location"`

	Comment      *Comment     `json:"comment,omitempty"`
	Availability Availability `json:"availability,omitzero"`

	SuperclassName    string   `json:"superclass,omitempty"`
	ProtocolNames     []string `json:"protocols,omitempty"`
	ExtendedClassName string   `json:"extendedClass,omitempty"`

	// PropertyAttributes lists declared property attributes in source order (e.g. nonatomic, copy).
	PropertyAttributes []string `json:"propertyAttributes,omitempty"`

	Implicit bool `json:"implicit,omitempty"`
	Optional bool `json:"optional,omitempty"`
	ReadOnly bool `json:"readOnly,omitempty"`
	Variadic bool `json:"variadic,omitempty"`

	Children []Declaration `json:"children,omitempty"`
}

// Parameters returns the parameter children in declaration order.
func (d *Declaration) Parameters() []Declaration {
	var out []Declaration
	for _, c := range d.Children {
		if c.Kind == KindParameter {
			out = append(out, c)
		}
	}
	return out
}

// Comment is a structured documentation comment.
type Comment struct {
	Paragraphs []string       `json:"paragraphs,omitempty"`
	Params     []ParamComment `json:"params,omitempty"`
	Returns    string         `json:"returns,omitempty"`
	Blocks     []BlockCommand `json:"blocks,omitempty"`
}

// ParamComment documents one parameter.
type ParamComment struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// BlockCommand is a block command such as @deprecated, @internal or @task.
type BlockCommand struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

// Block returns the first block command called name (case-insensitive).
func (c *Comment) Block(name string) (BlockCommand, bool) {
	if c == nil {
		return BlockCommand{}, false
	}
	for _, b := range c.Blocks {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return BlockCommand{}, false
}

// IsEmpty reports whether the comment carries no text at all.
func (c *Comment) IsEmpty() bool {
	if c == nil {
		return true
	}
	for _, p := range c.Paragraphs {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	for _, p := range c.Params {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	if strings.TrimSpace(c.Returns) != "" {
		return false
	}
	for _, b := range c.Blocks {
		if strings.TrimSpace(b.Text) != "" {
			return false
		}
	}
	return true
}

// Availability is the availability and deprecation metadata of a declaration.
type Availability struct {
	Deprecated         bool                   `json:"deprecated,omitempty"`
	DeprecationMessage string                 `json:"deprecationMessage,omitempty"`
	Unavailable        bool                   `json:"unavailable,omitempty"`
	UnavailableMessage string                 `json:"unavailableMessage,omitempty"`
	Platforms          []PlatformAvailability `json:"platforms,omitempty"`
}

// PlatformAvailability is one platform's availability entry.
type PlatformAvailability struct {
	Platform    string `json:"platform"`
	Introduced  string `json:"introduced,omitempty"`
	Deprecated  string `json:"deprecated,omitempty"`
	Obsoleted   string `json:"obsoleted,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Message     string `json:"message,omitempty"`
}

// IsDeprecated reports unconditional or any-platform deprecation.
func (a Availability) IsDeprecated() bool {
	if a.Deprecated {
		return true
	}
	for _, p := range a.Platforms {
		if p.Deprecated != "" {
			return true
		}
	}
	return false
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityNote    Severity = "note"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Diagnostic is one message from the front end.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Location SourceLocation `json:"location"`
}

// IsFatal reports whether the diagnostic excludes the file's declarations.
func (d Diagnostic) IsFatal() bool {
	return d.Severity == SeverityError || d.Severity == SeverityFatal
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// Unit is the front end's result for one source file.
type Unit struct {
	Path         string        `json:"path"`
	Declarations []Declaration `json:"declarations,omitempty"`
	Diagnostics  []Diagnostic  `json:"diagnostics,omitempty"`
}

// Fatal reports whether any diagnostic is fatal.
func (u *Unit) Fatal() bool {
	for _, d := range u.Diagnostics {
		if d.IsFatal() {
			return true
		}
	}
	return false
}

// FatalDiagnostics returns the fatal diagnostics only.
func (u *Unit) FatalDiagnostics() []Diagnostic {
	var out []Diagnostic
	for _, d := range u.Diagnostics {
		if d.IsFatal() {
			out = append(out, d)
		}
	}
	return out
}
