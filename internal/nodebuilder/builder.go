// Package nodebuilder turns raw front-end declarations into documentation nodes.
//
// Nodes produced here carry text, structure and textual references only. Linking
// superclasses and protocols, merging categories and grouping tasks is left to the resolver.
package nodebuilder

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/markdown"
	"git.home.luguber.info/inful/doctool/internal/model"
)

// Warning codes.
const (
	WarnUnmatchedParamComment = "UNMATCHED_PARAM_COMMENT"
	WarnCommentRender         = "COMMENT_RENDER_FAILED"
	WarnUnsupportedKind       = "UNSUPPORTED_DECLARATION"
)

// Warning is a non-fatal problem found while building a node.
type Warning struct {
	Code     string
	Message  string
	Location decl.SourceLocation
}

// Owner scopes a declaration. Top-level declarations have an empty ParentKind.
type Owner struct {
	ParentKind model.Kind
	ParentName string
	// Unit is the translation unit the declaration was reported in.
	Unit string
}

// Builder converts declarations into nodes. It is safe for concurrent use.
type Builder struct {
	logger *slog.Logger
}

// New creates a Builder.
func New(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

type buildState struct {
	warnings []Warning
}

func (s *buildState) warn(code string, loc decl.SourceLocation, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...), Location: loc})
}

// Build converts d and its children. The returned node has id set to id and members
// carry ids derived from it.
func (b *Builder) Build(d decl.Declaration, id model.NodeID, owner Owner) (*model.Node, []Warning) {
	st := &buildState{}
	n := b.build(d, owner, st)
	if n == nil {
		return nil, st.warnings
	}
	model.AssignIDs(n, id)
	for _, w := range st.warnings {
		b.logger.Debug("Node builder warning", slog.String("code", w.Code), logfields.File(w.Location.String()), slog.String("message", w.Message))
	}
	return n, st.warnings
}

// KindOf maps a declaration kind to a node kind. The second result is false for kinds that
// do not become nodes on their own.
func KindOf(k decl.Kind) (model.Kind, bool) {
	switch k {
	case decl.KindClass:
		return model.KindClass, true
	case decl.KindProtocol:
		return model.KindProtocol, true
	case decl.KindCategory:
		return model.KindCategory, true
	case decl.KindFunction:
		return model.KindFunction, true
	case decl.KindVariable, decl.KindEnum, decl.KindStruct, decl.KindTypedef, decl.KindEnumConstant:
		return model.KindConstant, true
	case decl.KindClassMethod, decl.KindInstanceMethod:
		return model.KindMethod, true
	case decl.KindProperty:
		return model.KindProperty, true
	case decl.KindField, decl.KindIvar:
		return model.KindField, true
	case decl.KindParameter:
		return model.KindParameter, true
	}
	return "", false
}

func (b *Builder) build(d decl.Declaration, owner Owner, st *buildState) *model.Node {
	kind, ok := KindOf(d.Kind)
	if !ok {
		st.warn(WarnUnsupportedKind, d.Location, "declaration %q of kind %s is not documented", d.Name, d.Kind)
		return nil
	}

	n := &model.Node{
		Kind:              kind,
		Name:              d.Name,
		Type:              d.Type,
		Location:          d.Location,
		Availability:      d.Availability,
		SuperclassName:    d.SuperclassName,
		ProtocolNames:     append([]string(nil), d.ProtocolNames...),
		ExtendedClassName: d.ExtendedClassName,
		IsClassMethod:     d.Kind == decl.KindClassMethod,
		IsInstanceMethod:  d.Kind == decl.KindInstanceMethod,
		IsProperty:        d.Kind == decl.KindProperty,
		IsRequired:        owner.ParentKind != model.KindProtocol || !d.Optional,
		IsReadOnly:        d.ReadOnly,
		IsImplicitMethod:  d.Implicit && (d.Kind == decl.KindInstanceMethod || d.Kind == decl.KindClassMethod),
	}

	n.Declaration = Signature(d)
	n.DeclarationHTML = html.EscapeString(n.Declaration)

	memberOwner := Owner{ParentKind: kind, ParentName: d.Name, Unit: owner.Unit}
	for _, c := range d.Children {
		child := b.build(c, memberOwner, st)
		if child == nil {
			continue
		}
		placeMember(n, child)
	}

	b.applyComment(n, d, st)
	applyDeprecation(n, d)
	return n
}

func placeMember(n, child *model.Node) {
	switch child.Kind {
	case model.KindMethod:
		switch {
		case child.IsImplicitMethod:
			n.ImplicitMethods = append(n.ImplicitMethods, child)
		case child.IsClassMethod:
			n.ClassMethods = append(n.ClassMethods, child)
		default:
			n.InstanceMethods = append(n.InstanceMethods, child)
		}
	case model.KindProperty:
		n.Properties = append(n.Properties, child)
	case model.KindConstant:
		n.Constants = append(n.Constants, child)
	case model.KindField:
		n.Fields = append(n.Fields, child)
	case model.KindParameter:
		n.Parameters = append(n.Parameters, child)
	}
}

func (b *Builder) applyComment(n *model.Node, d decl.Declaration, st *buildState) {
	c := d.Comment
	if c == nil {
		return
	}

	var paragraphs []string
	for _, p := range c.Paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	var discussion []string
	for _, blk := range c.Blocks {
		if strings.EqualFold(blk.Name, "discussion") || strings.EqualFold(blk.Name, "details") {
			if t := strings.TrimSpace(blk.Text); t != "" {
				discussion = append(discussion, t)
			}
		}
	}

	brief, rest := "", paragraphs
	if blk, ok := c.Block("brief"); ok && strings.TrimSpace(blk.Text) != "" {
		brief = strings.TrimSpace(blk.Text)
	} else if len(paragraphs) > 0 {
		brief, rest = paragraphs[0], paragraphs[1:]
	}
	expanded := append(append([]string(nil), rest...), discussion...)
	full := expanded
	if brief != "" {
		full = append([]string{brief}, expanded...)
	}

	n.BriefComment = brief
	n.ExpandedComment = strings.Join(expanded, "\n\n")
	n.FullComment = strings.Join(full, "\n\n")
	n.BriefHTML = renderHTML(n.BriefComment, d.Location, st)
	n.ExpandedHTML = renderHTML(n.ExpandedComment, d.Location, st)
	n.FullHTML = renderHTML(n.FullComment, d.Location, st)

	for _, name := range []string{"return", "returns", "result"} {
		if blk, ok := c.Block(name); ok {
			n.ReturnValueComment = strings.TrimSpace(blk.Text)
			break
		}
	}
	if n.ReturnValueComment == "" {
		n.ReturnValueComment = strings.TrimSpace(c.Returns)
	}

	if blk, ok := c.Block("internal"); ok {
		n.Internal = true
		n.InternalComment = strings.TrimSpace(blk.Text)
	}
	for _, name := range []string{"task", "name"} {
		if blk, ok := c.Block(name); ok {
			n.TaskName = strings.TrimSpace(blk.Text)
			break
		}
	}
	for _, blk := range c.Blocks {
		if strings.EqualFold(blk.Name, "see") || strings.EqualFold(blk.Name, "sa") {
			if t := strings.TrimSpace(blk.Text); t != "" {
				n.SeeAlso = append(n.SeeAlso, t)
			}
		}
	}

	for _, pc := range c.Params {
		param := findParameter(n, pc.Name)
		if param == nil {
			st.warn(WarnUnmatchedParamComment, d.Location, "comment documents parameter %q which %s does not declare", pc.Name, d.Name)
			continue
		}
		param.ParameterComment = strings.TrimSpace(pc.Text)
	}
}

func findParameter(n *model.Node, name string) *model.Node {
	for _, p := range n.Parameters {
		if p.Name != "" && p.Name == name {
			return p
		}
	}
	return nil
}

func renderHTML(src string, loc decl.SourceLocation, st *buildState) string {
	out, err := markdown.ToHTML(src)
	if err != nil {
		st.warn(WarnCommentRender, loc, "render comment: %v", err)
		return html.EscapeString(src)
	}
	return out
}

// applyDeprecation sets the deprecation flag and message. Message precedence: unconditional
// attribute message, first platform message, then the @deprecated block.
func applyDeprecation(n *model.Node, d decl.Declaration) {
	block, hasBlock := d.Comment.Block("deprecated")
	if !d.Availability.IsDeprecated() && !hasBlock {
		return
	}
	n.Deprecated = true
	switch {
	case d.Availability.Deprecated && strings.TrimSpace(d.Availability.DeprecationMessage) != "":
		n.DeprecationComment = strings.TrimSpace(d.Availability.DeprecationMessage)
		return
	default:
		for _, p := range d.Availability.Platforms {
			if p.Deprecated != "" && strings.TrimSpace(p.Message) != "" {
				n.DeprecationComment = strings.TrimSpace(p.Message)
				return
			}
		}
	}
	if hasBlock {
		n.DeprecationComment = strings.TrimSpace(block.Text)
	}
}
