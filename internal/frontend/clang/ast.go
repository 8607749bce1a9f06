package clang

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// node is the subset of clang's JSON AST node layout doctool reads.
type node struct {
	Kind       string  `json:"kind"`
	Loc        loc     `json:"loc"`
	Range      srange  `json:"range"`
	Name       string  `json:"name"`
	IsImplicit bool    `json:"isImplicit"`
	Type       *qual   `json:"type"`
	ReturnType *qual   `json:"returnType"`
	Instance   bool    `json:"instance"`
	Variadic   bool    `json:"variadic"`
	Super      *ref    `json:"super"`
	Interface  *ref    `json:"interface"`
	Protocols  []ref   `json:"protocols"`
	Control    string  `json:"control"`
	TagUsed    string  `json:"tagUsed"`
	Complete   bool    `json:"completeDefinition"`
	Storage    string  `json:"storageClass"`
	Nullable   string  `json:"nullability"`
	Getter     *ref    `json:"getter"`
	Setter     *ref    `json:"setter"`
	Inner      []*node `json:"inner"`

	// Property attributes.
	ReadOnly         bool `json:"readonly"`
	ReadWrite        bool `json:"readwrite"`
	Assign           bool `json:"assign"`
	Retain           bool `json:"retain"`
	Copy             bool `json:"copy"`
	NonAtomic        bool `json:"nonatomic"`
	Atomic           bool `json:"atomic"`
	Weak             bool `json:"weak"`
	Strong           bool `json:"strong"`
	UnsafeUnretained bool `json:"unsafe_unretained"`
	Class            bool `json:"class"`

	// Comments.
	Text       string   `json:"text"`
	Param      string   `json:"param"`
	RenderKind string   `json:"renderKind"`
	Args       []string `json:"args"`

	// Attributes.
	Message     string `json:"message"`
	Platform    string `json:"platform"`
	Introduced  string `json:"introduced"`
	Deprecated  string `json:"deprecated"`
	Obsoleted   string `json:"obsoleted"`
	Unavailable bool   `json:"unavailable"`

	at      decl.SourceLocation
	inMain  bool
	begin   int
	located bool
}

type qual struct {
	QualType string `json:"qualType"`
}

type ref struct {
	Name string `json:"name"`
}

type srange struct {
	Begin loc `json:"begin"`
	End   loc `json:"end"`
}

// loc is a clang source location. Clang omits "file" and "line" when they equal the
// previously printed location, so locations only make sense when read in output order.
type loc struct {
	Offset       *int   `json:"offset"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Col          int    `json:"col"`
	SpellingLoc  *loc   `json:"spellingLoc"`
	ExpansionLoc *loc   `json:"expansionLoc"`
}

// tracker replays clang's location elision.
type tracker struct {
	file string
	line int
}

// visit updates the tracker with l and returns l's expansion location.
func (t *tracker) visit(l *loc) (decl.SourceLocation, bool) {
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		var out decl.SourceLocation
		var ok bool
		if l.SpellingLoc != nil {
			t.visit(l.SpellingLoc)
		}
		if l.ExpansionLoc != nil {
			out, ok = t.visit(l.ExpansionLoc)
		}
		return out, ok
	}
	if l.Offset == nil {
		return decl.SourceLocation{}, false
	}
	if l.File != "" {
		t.file = l.File
	}
	if l.Line != 0 {
		t.line = l.Line
	}
	return decl.SourceLocation{
		Path:   t.file,
		Offset: *l.Offset,
		Line:   max(t.line-1, 0),
		Column: max(l.Col-1, 0),
	}, true
}

// locate resolves every location below n in output order.
func (t *tracker) locate(n *node, main string) {
	at, ok := t.visit(&n.Loc)
	if begin, bok := t.visit(&n.Range.Begin); bok {
		n.begin = begin.Offset
		if !ok {
			at, ok = begin, true
		}
	} else {
		n.begin = at.Offset
	}
	t.visit(&n.Range.End)
	if ok {
		n.at = at
		n.located = true
		n.inMain = filepath.Clean(at.Path) == main
	}
	for _, c := range n.Inner {
		t.locate(c, main)
	}
}

// Decode reads a JSON AST dump from r and converts the declarations located in mainPath.
// The translation unit's top-level declarations are decoded one at a time, so memory stays
// proportional to the largest declaration rather than to the whole dump.
func Decode(r io.Reader, mainPath string, content []byte) (*decl.Unit, error) {
	dec := json.NewDecoder(r)
	main := filepath.Clean(mainPath)
	conv := &converter{main: main, content: content}
	unit := &decl.Unit{Path: mainPath}

	if err := expectDelim(dec, '{'); err != nil {
		return unit, err
	}
	var t tracker
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return unit, err
		}
		key, _ := tok.(string)
		if key != "inner" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return unit, err
			}
			continue
		}
		if err := expectDelim(dec, '['); err != nil {
			return unit, err
		}
		for dec.More() {
			var n node
			if err := dec.Decode(&n); err != nil {
				unit.Declarations = conv.finish()
				return unit, err
			}
			t.locate(&n, main)
			conv.topLevel(&n)
		}
		if err := expectDelim(dec, ']'); err != nil {
			unit.Declarations = conv.finish()
			return unit, err
		}
	}
	unit.Declarations = conv.finish()
	return unit, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %v", tok, want)
	}
	return nil
}
