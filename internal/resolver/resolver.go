// Package resolver wires built nodes into a navigable documentation graph.
package resolver

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/nodebuilder"
	"git.home.luguber.info/inful/doctool/internal/report"
)

// Options controls optional resolution behavior.
type Options struct {
	// InheritDocumentation copies documentation onto undocumented members from the member
	// they override in a superclass or adopted protocol.
	InheritDocumentation bool
}

// Resolver builds a Library from parsed units.
type Resolver struct {
	builder *nodebuilder.Builder
	opts    Options
	logger  *slog.Logger
}

// New creates a Resolver.
func New(builder *nodebuilder.Builder, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if builder == nil {
		builder = nodebuilder.New(logger)
	}
	return &Resolver{builder: builder, opts: opts, logger: logger}
}

type state struct {
	rep    *report.Report
	logger *slog.Logger

	alloc      model.IDAllocator
	classes    []*model.Node
	protocols  []*model.Node
	categories []*model.Node
	functions  []*model.Node
	constants  []*model.Node

	classByName map[string]*model.Node
	protoByName map[string]*model.Node
	// fileRank orders source files by discovery for cross-file member ordering.
	fileRank map[string]int
	// mergedFrom is 1 + the discovery index of the category a member was merged from.
	// A class's own members are absent and sort first.
	mergedFrom map[*model.Node]int
}

func (s *state) warn(code report.IssueCode, subject, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Warn(msg, slog.String("code", string(code)), logfields.Node(subject))
	if s.rep != nil {
		s.rep.Warn(code, report.StageResolve, subject, msg)
	}
}

// Resolve builds nodes for every declaration in units, in order, and links them.
// Unresolvable references are recorded on rep (which may be nil) and left empty.
// Only graph integrity failures are returned as errors.
func (r *Resolver) Resolve(units []decl.Unit, rep *report.Report) (*model.Library, error) {
	s := &state{
		rep:         rep,
		logger:      r.logger,
		classByName: make(map[string]*model.Node),
		protoByName: make(map[string]*model.Node),
		fileRank:    make(map[string]int),
		mergedFrom:  make(map[*model.Node]int),
	}

	for _, u := range units {
		if _, ok := s.fileRank[u.Path]; !ok {
			s.fileRank[u.Path] = len(s.fileRank)
		}
		for _, d := range u.Declarations {
			r.addTopLevel(s, d, u.Path)
		}
	}

	keptCategories := s.mergeCategories()
	for _, group := range [][]*model.Node{s.classes, s.protocols, keptCategories} {
		for _, n := range group {
			s.groupTasks(n)
			model.AssignIDs(n, n.ID)
		}
	}
	s.linkSuperclasses()
	for _, group := range [][]*model.Node{s.classes, keptCategories, s.protocols} {
		for _, n := range group {
			s.linkProtocols(n)
		}
	}

	lib, err := model.NewLibrary(s.classes, s.protocols, keptCategories, s.functions, s.constants)
	if err != nil {
		return nil, err
	}
	if err := lib.CheckAcyclic(); err != nil {
		return nil, err
	}
	if r.opts.InheritDocumentation {
		if err := inheritDocumentation(lib); err != nil {
			return nil, err
		}
	}
	if rep != nil {
		rep.Count(func(c *report.Counters) { c.NodesBuilt = lib.Len() })
	}
	return lib, nil
}

func groupFor(k decl.Kind) (model.Group, bool) {
	switch k {
	case decl.KindClass:
		return model.GroupClasses, true
	case decl.KindProtocol:
		return model.GroupProtocols, true
	case decl.KindCategory:
		return model.GroupCategories, true
	case decl.KindFunction:
		return model.GroupFunctions, true
	case decl.KindVariable, decl.KindEnum, decl.KindStruct, decl.KindTypedef, decl.KindEnumConstant:
		return model.GroupConstants, true
	}
	return "", false
}

func (r *Resolver) addTopLevel(s *state, d decl.Declaration, unit string) {
	group, ok := groupFor(d.Kind)
	if !ok {
		s.warn(report.IssueBuilderWarning, d.Location.String(), "top-level %s declaration %q is not documented", d.Kind, d.Name)
		return
	}

	switch group {
	case model.GroupClasses:
		if prev, dup := s.classByName[d.Name]; dup {
			s.warn(report.IssueDuplicateDeclaration, d.Location.String(), "class %s already declared at %s", d.Name, prev.Location)
			return
		}
	case model.GroupProtocols:
		if prev, dup := s.protoByName[d.Name]; dup {
			s.warn(report.IssueDuplicateDeclaration, d.Location.String(), "protocol %s already declared at %s", d.Name, prev.Location)
			return
		}
	}

	base := d.Name
	if d.Kind == decl.KindCategory {
		base = d.ExtendedClassName + "(" + d.Name + ")"
	}
	id := s.alloc.Allocate(model.TopLevelID(group, base))
	n, warnings := r.builder.Build(d, id, nodebuilder.Owner{Unit: unit})
	for _, w := range warnings {
		code := report.IssueBuilderWarning
		if w.Code == nodebuilder.WarnUnmatchedParamComment {
			code = report.IssueUnmatchedParamComment
		}
		s.warn(code, w.Location.String(), "%s", w.Message)
	}
	if n == nil {
		return
	}

	switch group {
	case model.GroupClasses:
		s.classes = append(s.classes, n)
		s.classByName[n.Name] = n
	case model.GroupProtocols:
		s.protocols = append(s.protocols, n)
		s.protoByName[n.Name] = n
	case model.GroupCategories:
		s.categories = append(s.categories, n)
	case model.GroupFunctions:
		s.functions = append(s.functions, n)
	case model.GroupConstants:
		s.constants = append(s.constants, n)
	}
}

// mergeCategories moves category members onto their classes, after the class's own members,
// in discovery order. It returns the categories that remain top-level nodes.
func (s *state) mergeCategories() []*model.Node {
	var kept []*model.Node
	for i, cat := range s.categories {
		cls := s.classByName[cat.ExtendedClassName]
		if cls == nil {
			s.warn(report.IssueUnresolvedCategory, string(cat.ID), "class %s extended by category %s is not in the processed sources", cat.ExtendedClassName, cat.Name)
			kept = append(kept, cat)
			continue
		}

		for _, list := range [][]*model.Node{cat.ClassMethods, cat.InstanceMethods, cat.Properties} {
			for _, m := range list {
				s.mergedFrom[m] = i + 1
			}
		}
		cls.ClassMethods = append(cls.ClassMethods, cat.ClassMethods...)
		cls.InstanceMethods = append(cls.InstanceMethods, cat.InstanceMethods...)
		cls.ImplicitMethods = append(cls.ImplicitMethods, cat.ImplicitMethods...)
		cls.Properties = append(cls.Properties, cat.Properties...)
		cls.Fields = append(cls.Fields, cat.Fields...)
		cls.Constants = append(cls.Constants, cat.Constants...)
		for _, p := range cat.ProtocolNames {
			if !slices.Contains(cls.ProtocolNames, p) {
				cls.ProtocolNames = append(cls.ProtocolNames, p)
			}
		}

		if cat.FullComment == "" {
			continue
		}
		// A documented category keeps its own page; its members now live on the class.
		cat.ClassMethods, cat.InstanceMethods, cat.ImplicitMethods = nil, nil, nil
		cat.Properties, cat.Fields, cat.Constants = nil, nil, nil
		cat.ExtendedClassID = cls.ID
		kept = append(kept, cat)
	}
	return kept
}

// groupTasks moves members marked with a task heading out of the flat member lists into
// Tasks. Tasks appear in order of their first member. The node's own members come first in
// source order, followed by members merged from categories in category discovery order.
func (s *state) groupTasks(n *model.Node) {
	var marked []*model.Node
	extract := func(list []*model.Node) []*model.Node {
		out := list[:0:0]
		for _, m := range list {
			if m.TaskName != "" {
				marked = append(marked, m)
				continue
			}
			out = append(out, m)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	n.ClassMethods = extract(n.ClassMethods)
	n.InstanceMethods = extract(n.InstanceMethods)
	n.Properties = extract(n.Properties)
	if len(marked) == 0 {
		return
	}

	slices.SortStableFunc(marked, func(a, b *model.Node) int {
		return cmp.Or(
			cmp.Compare(s.mergedFrom[a], s.mergedFrom[b]),
			cmp.Compare(s.rank(a.Location.Path), s.rank(b.Location.Path)),
			cmp.Compare(a.Location.Offset, b.Location.Offset),
		)
	})
	index := make(map[string]*model.Task)
	for _, m := range marked {
		t, ok := index[m.TaskName]
		if !ok {
			t = &model.Task{Name: m.TaskName}
			index[m.TaskName] = t
			n.Tasks = append(n.Tasks, t)
		}
		t.Members = append(t.Members, m)
	}
}

func (s *state) rank(path string) int {
	if r, ok := s.fileRank[path]; ok {
		return r
	}
	return len(s.fileRank)
}

func (s *state) linkSuperclasses() {
	for _, cls := range s.classes {
		if cls.SuperclassName == "" {
			continue
		}
		super := s.classByName[cls.SuperclassName]
		if super == nil {
			s.warn(report.IssueUnresolvedSuperclass, string(cls.ID), "superclass %s of %s is not in the processed sources", cls.SuperclassName, cls.Name)
			continue
		}
		cls.SuperclassID = super.ID
	}
}

func (s *state) linkProtocols(n *model.Node) {
	n.ProtocolIDs = nil
	for _, name := range n.ProtocolNames {
		p := s.protoByName[name]
		if p == nil {
			s.warn(report.IssueUnresolvedProtocol, string(n.ID), "protocol %s adopted by %s is not in the processed sources", name, n.Name)
			continue
		}
		n.ProtocolIDs = append(n.ProtocolIDs, p.ID)
	}
}
