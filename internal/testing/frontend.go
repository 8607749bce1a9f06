package testing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/frontend"
)

// FakeFrontEnd stands in for the compiler in tests. It understands a small line-oriented
// dialect that looks enough like a header to keep fixtures readable:
//
//	/// Text                  comment paragraph for the next declaration (blank /// starts a new one)
//	/// @param x Text         parameter comment; also @return, @deprecated, @internal, @task
//	@protocol Name <P, Q>     protocol, closed by @end
//	@interface Name : Super <P>
//	@interface Class (Cat)    category
//	- name / + name           method; keywords with (type)arg declare parameters
//	@property type name       property
//	type name(type a, ...)    function
//	enum Name { A, B }        enum with constants
//	#error text / #warning text
//	#crash                    makes Parse return an error
type FakeFrontEnd struct {
	calls atomic.Int64

	mu    sync.Mutex
	paths []string
}

var _ frontend.FrontEnd = (*FakeFrontEnd)(nil)

// ErrFakeCrash is returned for sources containing #crash.
var ErrFakeCrash = errors.New("fake front end crashed")

var (
	containerRe = regexp.MustCompile(`^@(interface|protocol)\s+(\w+)\s*(?:\((\w+)\))?\s*(?::\s*(\w+))?\s*(?:<([^>]*)>)?`)
	keywordRe   = regexp.MustCompile(`(\w+):\(([^)]*)\)\s*(\w+)`)
	functionRe  = regexp.MustCompile(`^([\w\s\*]+?)\s*\b(\w+)\((.*)\)\s*;?$`)
	enumRe      = regexp.MustCompile(`^enum\s+(\w+)\s*\{(.*)\}`)
)

// Calls returns how many times Parse ran.
func (f *FakeFrontEnd) Calls() int { return int(f.calls.Load()) }

// Parsed returns the paths parsed so far, in call order.
func (f *FakeFrontEnd) Parsed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

// Parse implements frontend.FrontEnd.
func (f *FakeFrontEnd) Parse(ctx context.Context, req frontend.Request) (*decl.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls.Add(1)
	f.mu.Lock()
	f.paths = append(f.paths, req.Path)
	f.mu.Unlock()

	p := &fakeParser{unit: &decl.Unit{Path: req.Path}}
	offset := 0
	for i, raw := range strings.Split(string(req.Content), "\n") {
		loc := decl.SourceLocation{Path: req.Path, Offset: offset, Line: i}
		offset += len(raw) + 1
		if err := p.line(strings.TrimSpace(raw), loc); err != nil {
			return nil, err
		}
	}
	p.closeContainer()
	return p.unit, nil
}

type fakeParser struct {
	unit      *decl.Unit
	comment   *decl.Comment
	paragraph []string
	container *decl.Declaration
}

func (p *fakeParser) line(line string, loc decl.SourceLocation) error {
	switch {
	case line == "":
		p.flushParagraph()
	case strings.HasPrefix(line, "///"):
		p.commentLine(strings.TrimSpace(strings.TrimPrefix(line, "///")))
	case line == "#crash":
		return ErrFakeCrash
	case strings.HasPrefix(line, "#error"):
		p.diagnose(decl.SeverityError, strings.TrimSpace(strings.TrimPrefix(line, "#error")), loc)
	case strings.HasPrefix(line, "#warning"):
		p.diagnose(decl.SeverityWarning, strings.TrimSpace(strings.TrimPrefix(line, "#warning")), loc)
	case line == "@end":
		p.closeContainer()
	case strings.HasPrefix(line, "@interface"), strings.HasPrefix(line, "@protocol"):
		p.openContainer(line, loc)
	case strings.HasPrefix(line, "@property"):
		fields := strings.Fields(strings.TrimPrefix(line, "@property"))
		if len(fields) == 0 {
			return nil
		}
		name := strings.TrimLeft(fields[len(fields)-1], "*")
		typ := strings.Join(fields[:len(fields)-1], " ")
		if strings.HasPrefix(fields[len(fields)-1], "*") {
			typ += " *"
		}
		p.member(decl.Declaration{Kind: decl.KindProperty, Name: name, Type: typ, Location: loc})
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "+"):
		p.member(method(line, loc))
	case enumRe.MatchString(line):
		m := enumRe.FindStringSubmatch(line)
		d := decl.Declaration{Kind: decl.KindEnum, Name: m[1], Location: loc, Signature: "enum " + m[1]}
		for _, c := range strings.Split(m[2], ",") {
			if c = strings.TrimSpace(c); c != "" {
				d.Children = append(d.Children, decl.Declaration{Kind: decl.KindEnumConstant, Name: c, Location: loc})
			}
		}
		p.topLevel(d)
	case functionRe.MatchString(line):
		m := functionRe.FindStringSubmatch(line)
		d := decl.Declaration{Kind: decl.KindFunction, Name: m[2], Type: strings.TrimSpace(m[1]), Location: loc}
		for _, arg := range strings.Split(m[3], ",") {
			fields := strings.Fields(arg)
			if len(fields) < 2 {
				continue
			}
			d.Children = append(d.Children, decl.Declaration{
				Kind: decl.KindParameter, Name: fields[len(fields)-1], Type: strings.Join(fields[:len(fields)-1], " "), Location: loc,
			})
		}
		p.topLevel(d)
	}
	return nil
}

func (p *fakeParser) commentLine(text string) {
	if p.comment == nil {
		p.comment = &decl.Comment{}
	}
	if text == "" {
		p.flushParagraph()
		return
	}
	if !strings.HasPrefix(text, "@") {
		p.paragraph = append(p.paragraph, text)
		return
	}
	p.flushParagraph()
	cmd, rest, _ := strings.Cut(strings.TrimPrefix(text, "@"), " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "param":
		name, desc, _ := strings.Cut(rest, " ")
		p.comment.Params = append(p.comment.Params, decl.ParamComment{Name: name, Text: strings.TrimSpace(desc)})
	case "return", "returns":
		p.comment.Returns = rest
	default:
		p.comment.Blocks = append(p.comment.Blocks, decl.BlockCommand{Name: cmd, Text: rest})
	}
}

func (p *fakeParser) flushParagraph() {
	if len(p.paragraph) > 0 && p.comment != nil {
		p.comment.Paragraphs = append(p.comment.Paragraphs, strings.Join(p.paragraph, "\n"))
	}
	p.paragraph = nil
}

func (p *fakeParser) takeComment() *decl.Comment {
	p.flushParagraph()
	c := p.comment
	p.comment = nil
	return c
}

func (p *fakeParser) diagnose(sev decl.Severity, msg string, loc decl.SourceLocation) {
	p.unit.Diagnostics = append(p.unit.Diagnostics, decl.Diagnostic{Severity: sev, Message: msg, Location: loc})
}

func (p *fakeParser) openContainer(line string, loc decl.SourceLocation) {
	p.closeContainer()
	m := containerRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	d := decl.Declaration{Kind: decl.KindClass, Name: m[2], SuperclassName: m[4], Location: loc, Comment: p.takeComment()}
	switch {
	case m[1] == "protocol":
		d.Kind = decl.KindProtocol
	case m[3] != "":
		d.Kind = decl.KindCategory
		d.Name = m[3]
		d.ExtendedClassName = m[2]
	}
	for _, name := range strings.Split(m[5], ",") {
		if name = strings.TrimSpace(name); name != "" {
			d.ProtocolNames = append(d.ProtocolNames, name)
		}
	}
	p.container = &d
}

func (p *fakeParser) closeContainer() {
	if p.container == nil {
		return
	}
	p.unit.Declarations = append(p.unit.Declarations, *p.container)
	p.container = nil
}

func (p *fakeParser) member(d decl.Declaration) {
	d.Comment = p.takeComment()
	if p.container == nil {
		return
	}
	p.container.Children = append(p.container.Children, d)
}

func (p *fakeParser) topLevel(d decl.Declaration) {
	d.Comment = p.takeComment()
	p.unit.Declarations = append(p.unit.Declarations, d)
}

func method(line string, loc decl.SourceLocation) decl.Declaration {
	kind := decl.KindInstanceMethod
	if strings.HasPrefix(line, "+") {
		kind = decl.KindClassMethod
	}
	body := strings.TrimSpace(line[1:])
	d := decl.Declaration{Kind: kind, Type: "void", Location: loc}
	matches := keywordRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		d.Name = strings.Fields(body + " _")[0]
		return d
	}
	var name strings.Builder
	for _, m := range matches {
		name.WriteString(m[1] + ":")
		d.Children = append(d.Children, decl.Declaration{Kind: decl.KindParameter, Name: m[3], Type: m[2], Location: loc})
	}
	d.Name = name.String()
	return d
}
