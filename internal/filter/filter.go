// Package filter prunes a documentation library down to what should be published.
package filter

import (
	"slices"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/pathmatch"
)

// Options are the predicates derived from configuration.
type Options struct {
	ShowUndocumented bool
	ShowInternal     bool
	// Exclude drops nodes declared in matching files. Nil excludes nothing.
	Exclude *pathmatch.Matcher
	// FileTypes is the extension allow list. Empty allows every file.
	FileTypes []string
}

// FromConfig derives Options from a loaded configuration.
func FromConfig(cfg *config.Configuration) (Options, error) {
	m, err := pathmatch.Compile(cfg.ExcludePatterns, cfg.Paths...)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ShowUndocumented: cfg.ShowUndocumentedEntities,
		ShowInternal:     cfg.ShowInternalComments,
		Exclude:          m,
		FileTypes:        cfg.FileTypes,
	}, nil
}

// Apply returns a filtered copy of lib. lib itself is never modified, and applying the same
// options to the result returns an equal library.
func Apply(lib *model.Library, opts Options) *model.Library {
	src := lib.Clone()
	keep := func(nodes []*model.Node) []*model.Node {
		var out []*model.Node
		for _, n := range nodes {
			if opts.retain(n) {
				out = append(out, n)
			}
		}
		return out
	}
	classes := keep(src.Classes)
	protocols := keep(src.Protocols)
	categories := keep(src.Categories)
	functions := keep(src.Functions)
	constants := keep(src.Constants)

	// Top-level nodes were filtered in place, so ids stay valid and unique.
	out, err := model.NewLibrary(classes, protocols, categories, functions, constants)
	if err != nil {
		panic("filter: subset of a valid library is invalid: " + err.Error())
	}
	dropDanglingLinks(out)
	return out
}

// rejected reports whether a hard predicate removes n regardless of its members.
func (o Options) rejected(n *model.Node) bool {
	if n.IsInternal() && !o.ShowInternal {
		return true
	}
	if n.Location.Path == "" {
		return false
	}
	return o.Exclude.Excluded(n.Location.Path) || !pathmatch.HasExtension(n.Location.Path, o.FileTypes)
}

func (o Options) documented(n *model.Node) bool {
	return o.ShowUndocumented || n.IsDocumented()
}

// retain filters n's members in place and reports whether n itself survives.
func (o Options) retain(n *model.Node) bool {
	if o.rejected(n) {
		return false
	}
	if !o.ShowInternal {
		n.InternalComment = ""
	}
	had := hasMembers(n)
	o.filterMembers(n)
	if o.documented(n) {
		return true
	}
	// An undocumented owner survives through its retained members.
	return had && hasMembers(n)
}

func (o Options) filterMembers(n *model.Node) {
	keep := func(nodes []*model.Node) []*model.Node {
		out := slices.DeleteFunc(nodes, func(m *model.Node) bool { return !o.retain(m) })
		if len(out) == 0 {
			return nil
		}
		return out
	}
	n.ClassMethods = keep(n.ClassMethods)
	n.InstanceMethods = keep(n.InstanceMethods)
	n.ImplicitMethods = keep(n.ImplicitMethods)
	n.Properties = keep(n.Properties)
	n.Constants = keep(n.Constants)
	n.Fields = keep(n.Fields)

	var tasks []*model.Task
	for _, t := range n.Tasks {
		t.Members = keep(t.Members)
		if len(t.Members) > 0 {
			tasks = append(tasks, t)
		}
	}
	n.Tasks = tasks
	// Parameters follow their owner.
}

func hasMembers(n *model.Node) bool {
	return len(n.Members()) > len(n.Parameters)
}

// dropDanglingLinks clears resolved references to nodes that were filtered out.
// Names are kept so generators can still mention them as plain text.
func dropDanglingLinks(lib *model.Library) {
	for _, group := range [][]*model.Node{lib.Classes, lib.Protocols, lib.Categories} {
		for _, n := range group {
			if n.SuperclassID != "" && lib.Lookup(n.SuperclassID) == nil {
				n.SuperclassID = ""
			}
			if n.ExtendedClassID != "" && lib.Lookup(n.ExtendedClassID) == nil {
				n.ExtendedClassID = ""
			}
			n.ProtocolIDs = slices.DeleteFunc(n.ProtocolIDs, func(id model.NodeID) bool { return lib.Lookup(id) == nil })
			if len(n.ProtocolIDs) == 0 {
				n.ProtocolIDs = nil
			}
		}
	}
}
