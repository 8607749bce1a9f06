package htmlgen

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/doctool/internal/model"
)

type link struct {
	Name  string
	Href  string
	Brief string
}

type param struct {
	Name    string
	Anchor  string
	Comment string
}

type member struct {
	Node      *model.Node
	Anchor    string
	Href      string
	DocSet    bool
	Params    []param
	Internal  string
	Inherited *link
}

type section struct {
	Title   string
	Members []member
}

type pageView struct {
	Framework     string
	Title         string
	Root          string
	DocSet        bool
	KindTitle     string
	DeclaredIn    string
	Superclass    *link
	Protocols     []link
	ExtendedClass *link
	Top           member
	Tasks         []section
	Sections      []section
}

type entry struct {
	link
	Children []link
}

type group struct {
	Title   string
	Entries []entry
}

type listView struct {
	Framework string
	Title     string
	Root      string
	DocSet    bool
	Groups    []group
}

var groupTitles = map[model.Group]string{
	model.GroupClasses:    "Classes",
	model.GroupProtocols:  "Protocols",
	model.GroupCategories: "Categories",
	model.GroupFunctions:  "Functions",
	model.GroupConstants:  "Constants",
}

var kindTitles = map[model.Kind]string{
	model.KindClass:    "Class Reference",
	model.KindProtocol: "Protocol Reference",
	model.KindCategory: "Category Reference",
	model.KindFunction: "Function Reference",
	model.KindConstant: "Constants Reference",
}

// viewBuilder turns library nodes into template data. Links are relative to the page
// being rendered so the tree can be moved as a whole.
type viewBuilder struct {
	lib  *model.Library
	opts Options
}

func (b *viewBuilder) page(n *model.Node) pageView {
	page := pagePath(n.HTMLPath)
	v := pageView{
		Framework: b.opts.FrameworkName,
		Title:     displayName(n) + " " + kindTitles[n.Kind],
		Root:      rootPrefix(page),
		DocSet:    b.opts.DocSet,
		KindTitle: kindTitles[n.Kind],
		Top:       b.member(page, n),
	}
	if n.Location.Path != "" {
		v.DeclaredIn = filepath.Base(n.Location.Path)
	}
	if n.SuperclassName != "" {
		l := b.linkTo(page, b.lib.Superclass(n), n.SuperclassName)
		v.Superclass = &l
	}
	for _, name := range n.ProtocolNames {
		v.Protocols = append(v.Protocols, b.linkTo(page, b.lib.ProtocolNamed(name), name))
	}
	if n.Kind == model.KindCategory && n.ExtendedClassName != "" {
		l := b.linkTo(page, b.lib.Lookup(n.ExtendedClassID), n.ExtendedClassName)
		v.ExtendedClass = &l
	}

	flat := []struct {
		title string
		nodes []*model.Node
	}{
		{"Class Methods", n.ClassMethods},
		{"Instance Methods", n.InstanceMethods},
		{"Properties", n.Properties},
		{"Implicit Methods", n.ImplicitMethods},
		{"Constants", n.Constants},
		{"Fields", n.Fields},
	}
	for _, f := range flat {
		if s, ok := b.section(page, f.title, f.nodes); ok {
			v.Sections = append(v.Sections, s)
		}
	}
	for _, t := range n.Tasks {
		title := t.Name
		if title == "" {
			title = "Other"
		}
		if s, ok := b.section(page, title, t.Members); ok {
			v.Tasks = append(v.Tasks, s)
			v.Sections = append(v.Sections, s)
		}
	}
	return v
}

func (b *viewBuilder) section(page, title string, nodes []*model.Node) (section, bool) {
	if len(nodes) == 0 {
		return section{}, false
	}
	s := section{Title: title}
	for _, m := range nodes {
		s.Members = append(s.Members, b.member(page, m))
	}
	return s, true
}

func (b *viewBuilder) member(page string, n *model.Node) member {
	m := member{Node: n, DocSet: b.opts.DocSet}
	if _, frag, ok := strings.Cut(n.HTMLPath, "#"); ok {
		m.Anchor = frag
		m.Href = "#" + frag
	}
	for _, p := range n.Parameters {
		_, frag, _ := strings.Cut(p.HTMLPath, "#")
		m.Params = append(m.Params, param{Name: p.Name, Anchor: frag, Comment: p.ParameterComment})
	}
	if b.opts.ShowInternalComments {
		m.Internal = n.InternalComment
	}
	if n.InheritedFrom != "" {
		l := link{Name: string(n.InheritedFrom)}
		if src := b.lib.Lookup(n.InheritedFrom); src != nil {
			l = b.linkTo(page, src, src.Name)
			if owner := b.lib.Parent(src); owner != nil {
				l.Name = displayName(owner) + " " + src.Name
			}
		}
		m.Inherited = &l
	}
	return m
}

// linkTo links to target when it is part of the output, else yields plain text.
func (b *viewBuilder) linkTo(page string, target *model.Node, name string) link {
	if target == nil || target.HTMLPath == "" {
		return link{Name: name}
	}
	return link{Name: name, Href: relHref(page, target.HTMLPath)}
}

// index lists every top-level node, grouped by kind and collated case-insensitively.
// withMembers adds member links for the table of contents.
func (b *viewBuilder) index(title string, withMembers bool) listView {
	v := listView{Framework: b.opts.FrameworkName, Title: title, DocSet: b.opts.DocSet}
	coll := collate.New(language.English, collate.IgnoreCase)
	for _, g := range model.Groups {
		nodes := slices.Clone(b.lib.Group(g))
		if len(nodes) == 0 {
			continue
		}
		slices.SortStableFunc(nodes, func(x, y *model.Node) int {
			return coll.CompareString(displayName(x), displayName(y))
		})
		grp := group{Title: groupTitles[g]}
		for _, n := range nodes {
			e := entry{link: link{Name: displayName(n), Href: n.HTMLPath, Brief: n.BriefComment}}
			if withMembers {
				for _, m := range n.Members() {
					if m.Kind == model.KindParameter || m.HTMLPath == "" {
						continue
					}
					e.Children = append(e.Children, link{Name: m.Name, Href: m.HTMLPath})
				}
			}
			grp.Entries = append(grp.Entries, e)
		}
		v.Groups = append(v.Groups, grp)
	}
	return v
}

func displayName(n *model.Node) string {
	if n.Kind == model.KindCategory && n.ExtendedClassName != "" {
		return n.ExtendedClassName + "(" + n.Name + ")"
	}
	return n.Name
}

func pagePath(htmlPath string) string {
	page, _, _ := strings.Cut(htmlPath, "#")
	return page
}

func rootPrefix(page string) string {
	return strings.Repeat("../", strings.Count(page, "/"))
}

// relHref rewrites a root-relative target for use on page.
func relHref(page, target string) string {
	targetPage, frag, hasFrag := strings.Cut(target, "#")
	if targetPage == page && hasFrag {
		return "#" + frag
	}
	return rootPrefix(page) + target
}
