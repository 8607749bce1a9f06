// Package identity assigns the publishing identity of every retained node: a UUID, a dense
// reference number and the output-relative page path used for cross-links.
package identity

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// FirstReferenceNumber is the reference number of the first node assigned.
const FirstReferenceNumber = 1

// Options tunes assignment.
type Options struct {
	// Seed makes UUIDs reproducible. Empty means random UUIDs.
	Seed string
}

var groupDirs = map[model.Group]string{
	model.GroupClasses:    "Classes",
	model.GroupProtocols:  "Protocols",
	model.GroupCategories: "Categories",
	model.GroupFunctions:  "Functions",
	model.GroupConstants:  "Constants",
}

type assigner struct {
	next      int
	pages     sets.Set[string]
	namespace uuid.UUID
	seeded    bool
}

// Assign returns a copy of lib with identity fields set on every node. Apart from UUIDs of
// an unseeded run, the result depends only on lib.
func Assign(lib *model.Library, opts Options) *model.Library {
	out := lib.Clone()
	a := &assigner{next: FirstReferenceNumber, pages: sets.New[string]()}
	if opts.Seed != "" {
		a.seeded = true
		a.namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("doctool:"+opts.Seed))
	}
	for _, g := range model.Groups {
		for _, n := range ordered(out.Group(g)) {
			page := a.page(g, n)
			a.assign(n, page)
		}
	}
	return out
}

// ordered sorts by name, then file, then line without touching the library's own order.
func ordered(nodes []*model.Node) []*model.Node {
	out := slices.Clone(nodes)
	slices.SortStableFunc(out, func(a, b *model.Node) int {
		return cmp.Or(
			cmp.Compare(pageName(a), pageName(b)),
			cmp.Compare(a.Location.Path, b.Location.Path),
			cmp.Compare(a.Location.Line, b.Location.Line),
		)
	})
	return out
}

func (a *assigner) page(g model.Group, n *model.Node) string {
	base := groupDirs[g] + "/" + sanitize(pageName(n))
	p := base + ".html"
	for i := 2; a.pages.Has(strings.ToLower(p)); i++ {
		p = fmt.Sprintf("%s-%d.html", base, i)
	}
	a.pages.Add(strings.ToLower(p))
	return p
}

func pageName(n *model.Node) string {
	if n.Kind == model.KindCategory && n.ExtendedClassName != "" {
		return n.ExtendedClassName + "+" + n.Name
	}
	return n.Name
}

// assign sets identity on the top-level node n and its members, pre-order.
func (a *assigner) assign(n *model.Node, page string) {
	a.stamp(n, page, AppleRef(n, nil))
	anchors := sets.New[string]()
	var walk func(owner *model.Node, parentAnchor string)
	walk = func(owner *model.Node, parentAnchor string) {
		for _, m := range owner.Members() {
			ref := AppleRef(m, owner)
			if m.Kind == model.KindParameter && parentAnchor != "" {
				ref = parentAnchor + "/" + m.Name
			}
			anchor := uniqueAnchor(anchors, ref)
			a.stamp(m, page+"#"+anchor, ref)
			walk(m, anchor)
		}
	}
	walk(n, "")
}

func (a *assigner) stamp(n *model.Node, path, ref string) {
	n.HTMLPath = path
	n.AppleRef = ref
	n.ReferenceNumber = a.next
	a.next++
	if a.seeded {
		n.UUID = uuid.NewSHA1(a.namespace, []byte(path)).String()
	} else {
		n.UUID = uuid.NewString()
	}
}

func uniqueAnchor(used sets.Set[string], anchor string) string {
	a := anchor
	for i := 2; used.Has(a); i++ {
		a = fmt.Sprintf("%s-%d", anchor, i)
	}
	used.Add(a)
	return a
}

// sanitize keeps file names portable.
func sanitize(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '+', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
