package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/report"
)

func doc(text string) *decl.Comment {
	return &decl.Comment{Paragraphs: []string{text}}
}

func at(path string, offset int) decl.SourceLocation {
	return decl.SourceLocation{Path: path, Offset: offset}
}

func method(name string, offset int, comment *decl.Comment) decl.Declaration {
	return decl.Declaration{Kind: decl.KindInstanceMethod, Name: name, Type: "void", Location: at("/src/Foo.h", offset), Comment: comment}
}

func names(nodes []*model.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func resolve(t *testing.T, opts Options, units ...decl.Unit) (*model.Library, *report.Report) {
	t.Helper()
	rep := report.New()
	lib, err := New(nil, opts, nil).Resolve(units, rep)
	require.NoError(t, err)
	return lib, rep
}

func TestResolve_MissingSuperclassIsWarning(t *testing.T) {
	lib, rep := resolve(t, Options{}, decl.Unit{Path: "/src/Sub.h", Declarations: []decl.Declaration{
		{Kind: decl.KindClass, Name: "Sub", SuperclassName: "Base", Comment: doc("A subclass.")},
	}})

	sub := lib.ClassNamed("Sub")
	require.NotNil(t, sub)
	assert.Nil(t, lib.Superclass(sub))
	assert.Empty(t, sub.SuperclassID)
	assert.Equal(t, "Base", sub.SuperclassName)

	warnings := rep.IssuesWith(report.IssueUnresolvedSuperclass)
	require.Len(t, warnings, 1)
	assert.Equal(t, report.SeverityWarning, warnings[0].Severity)
}

func TestResolve_LinksAcrossUnits(t *testing.T) {
	lib, rep := resolve(t, Options{},
		decl.Unit{Path: "/src/A.h", Declarations: []decl.Declaration{
			{Kind: decl.KindClass, Name: "A", SuperclassName: "B", ProtocolNames: []string{"P1"}},
			{Kind: decl.KindProtocol, Name: "P1", ProtocolNames: []string{"P3"}},
		}},
		decl.Unit{Path: "/src/B.h", Declarations: []decl.Declaration{
			{Kind: decl.KindClass, Name: "B", SuperclassName: "C", ProtocolNames: []string{"P2"}},
			{Kind: decl.KindClass, Name: "C"},
			{Kind: decl.KindProtocol, Name: "P2"},
			{Kind: decl.KindProtocol, Name: "P3"},
		}},
	)
	a := lib.ClassNamed("A")
	supers, err := lib.AllSuperclasses(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, names(supers))

	protos, err := lib.AllProtocols(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P3", "P2"}, names(protos))
	assert.False(t, rep.HasFailures())
}

func TestResolve_MergesCategories(t *testing.T) {
	lib, rep := resolve(t, Options{},
		decl.Unit{Path: "/src/Foo.h", Declarations: []decl.Declaration{
			{Kind: decl.KindClass, Name: "Foo", Children: []decl.Declaration{method("own", 10, doc("Own."))}},
			{Kind: decl.KindCategory, Name: "Quiet", ExtendedClassName: "Foo", ProtocolNames: []string{"NSCopying"}, Children: []decl.Declaration{method("quiet", 50, doc("Quiet."))}},
		}},
		decl.Unit{Path: "/src/Foo+Loud.h", Declarations: []decl.Declaration{
			{Kind: decl.KindCategory, Name: "Loud", ExtendedClassName: "Foo", Comment: doc("Loud additions."), Children: []decl.Declaration{
				method("own", 5, doc("Loud own.")),
			}},
			{Kind: decl.KindCategory, Name: "Orphan", ExtendedClassName: "Missing", Children: []decl.Declaration{method("lost", 60, nil)}},
		}},
	)

	foo := lib.ClassNamed("Foo")
	require.NotNil(t, foo)
	assert.Equal(t, []string{"own", "quiet", "own"}, names(foo.InstanceMethods))
	assert.Equal(t, []model.NodeID{"classes/Foo/instanceMethod/own", "classes/Foo/instanceMethod/quiet", "classes/Foo/instanceMethod/own~2"},
		[]model.NodeID{foo.InstanceMethods[0].ID, foo.InstanceMethods[1].ID, foo.InstanceMethods[2].ID})
	for _, m := range foo.InstanceMethods {
		assert.Equal(t, foo.ID, m.ParentID)
		assert.Same(t, foo, lib.Parent(m))
	}
	assert.Equal(t, []string{"NSCopying"}, foo.ProtocolNames)

	// Only the documented category and the orphan remain top-level.
	require.Len(t, lib.Categories, 2)
	loud := lib.Categories[0]
	assert.Equal(t, "Loud", loud.Name)
	assert.Equal(t, foo.ID, loud.ExtendedClassID)
	assert.Empty(t, loud.InstanceMethods)
	orphan := lib.Categories[1]
	assert.Equal(t, []string{"lost"}, names(orphan.InstanceMethods))

	assert.Len(t, rep.IssuesWith(report.IssueUnresolvedCategory), 1)
	assert.Len(t, rep.IssuesWith(report.IssueUnresolvedProtocol), 1)
}

func TestResolve_TaskGrouping(t *testing.T) {
	task := func(name, heading string, offset int) decl.Declaration {
		m := method(name, offset, &decl.Comment{Paragraphs: []string{name + "."}, Blocks: []decl.BlockCommand{{Name: "name", Text: heading}}})
		return m
	}
	lib, _ := resolve(t, Options{}, decl.Unit{Path: "/src/Foo.h", Declarations: []decl.Declaration{
		{Kind: decl.KindClass, Name: "Foo", Children: []decl.Declaration{
			task("start", "Lifecycle", 10),
			method("plain", 20, doc("Plain.")),
			{Kind: decl.KindProperty, Name: "state", Location: at("/src/Foo.h", 15), Comment: &decl.Comment{Blocks: []decl.BlockCommand{{Name: "task", Text: "State"}}}},
			task("stop", "Lifecycle", 30),
		}},
	}})

	foo := lib.ClassNamed("Foo")
	assert.Equal(t, []string{"plain"}, names(foo.InstanceMethods))
	assert.Empty(t, foo.Properties)
	require.Len(t, foo.Tasks, 2)
	assert.Equal(t, "Lifecycle", foo.Tasks[0].Name)
	assert.Equal(t, []string{"start", "stop"}, names(foo.Tasks[0].Members))
	assert.Equal(t, "State", foo.Tasks[1].Name)
	assert.Equal(t, []string{"state"}, names(foo.Tasks[1].Members))
	assert.Same(t, foo, lib.Parent(foo.Tasks[0].Members[1]))
}

func TestResolve_ImplicitMethodsKeptApart(t *testing.T) {
	lib, _ := resolve(t, Options{}, decl.Unit{Path: "/src/Foo.h", Declarations: []decl.Declaration{
		{Kind: decl.KindClass, Name: "Foo", Children: []decl.Declaration{
			{Kind: decl.KindProperty, Name: "title", Type: "NSString *"},
			{Kind: decl.KindInstanceMethod, Name: "title", Type: "NSString *", Implicit: true},
			{Kind: decl.KindInstanceMethod, Name: "setTitle:", Type: "void", Implicit: true},
			method("reload", 40, nil),
		}},
	}})
	foo := lib.ClassNamed("Foo")
	assert.Equal(t, []string{"reload"}, names(foo.InstanceMethods))
	assert.Equal(t, []string{"title", "setTitle:"}, names(foo.ImplicitMethods))
}

func TestResolve_DuplicateFunctionsKept(t *testing.T) {
	lib, rep := resolve(t, Options{}, decl.Unit{Path: "/src/math.h", Declarations: []decl.Declaration{
		{Kind: decl.KindFunction, Name: "compute", Type: "int"},
		{Kind: decl.KindFunction, Name: "compute", Type: "double"},
		{Kind: decl.KindClass, Name: "Foo"},
		{Kind: decl.KindClass, Name: "Foo"},
	}})
	require.Len(t, lib.Functions, 2)
	assert.NotEqual(t, lib.Functions[0].ID, lib.Functions[1].ID)
	assert.Len(t, lib.Classes, 1)
	assert.Len(t, rep.IssuesWith(report.IssueDuplicateDeclaration), 1)
}

func TestResolve_CycleAborts(t *testing.T) {
	_, err := New(nil, Options{}, nil).Resolve([]decl.Unit{{Path: "/src/A.h", Declarations: []decl.Declaration{
		{Kind: decl.KindClass, Name: "A", SuperclassName: "B"},
		{Kind: decl.KindClass, Name: "B", SuperclassName: "A"},
	}}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrGraphCycle))
}

func TestResolve_InheritsDocumentation(t *testing.T) {
	units := []decl.Unit{{Path: "/src/A.h", Declarations: []decl.Declaration{
		{Kind: decl.KindProtocol, Name: "Drawing", Children: []decl.Declaration{
			{Kind: decl.KindInstanceMethod, Name: "draw", Comment: doc("Draws the receiver.")},
		}},
		{Kind: decl.KindClass, Name: "Base", Children: []decl.Declaration{
			{Kind: decl.KindInstanceMethod, Name: "reset", Comment: doc("Resets state.")},
		}},
		{Kind: decl.KindClass, Name: "Mid", SuperclassName: "Base", Children: []decl.Declaration{
			{Kind: decl.KindInstanceMethod, Name: "reset"},
		}},
		{Kind: decl.KindClass, Name: "Leaf", SuperclassName: "Mid", ProtocolNames: []string{"Drawing"}, Children: []decl.Declaration{
			{Kind: decl.KindInstanceMethod, Name: "reset"},
			{Kind: decl.KindInstanceMethod, Name: "draw"},
			{Kind: decl.KindClassMethod, Name: "reset"},
		}},
	}}}

	lib, _ := resolve(t, Options{InheritDocumentation: true}, units...)
	leaf := lib.ClassNamed("Leaf")
	require.Len(t, leaf.InstanceMethods, 2)
	assert.Equal(t, "Resets state.", leaf.InstanceMethods[0].FullComment)
	assert.Equal(t, model.NodeID("classes/Base/instanceMethod/reset"), leaf.InstanceMethods[0].InheritedFrom)
	assert.Equal(t, "Draws the receiver.", leaf.InstanceMethods[1].FullComment)
	assert.False(t, leaf.ClassMethods[0].IsDocumented(), "class methods do not inherit from instance methods")

	lib, _ = resolve(t, Options{}, units...)
	assert.False(t, lib.ClassNamed("Leaf").InstanceMethods[0].IsDocumented())
}

func TestResolve_TaskMembersFromCategoryFollowClass(t *testing.T) {
	member := func(name, path string, offset int, task string) decl.Declaration {
		c := &decl.Comment{Paragraphs: []string{name + "."}}
		if task != "" {
			c.Blocks = []decl.BlockCommand{{Name: "task", Text: task}}
		}
		return decl.Declaration{Kind: decl.KindInstanceMethod, Name: name, Type: "void", Location: at(path, offset), Comment: c}
	}
	// The category's file is discovered before the class's file.
	lib, _ := resolve(t, Options{},
		decl.Unit{Path: "/src/Foo+Extras.h", Declarations: []decl.Declaration{
			{Kind: decl.KindCategory, Name: "Extras", ExtendedClassName: "Foo", Children: []decl.Declaration{
				member("catTask", "/src/Foo+Extras.h", 10, "Lifecycle"),
				member("catPlain", "/src/Foo+Extras.h", 20, ""),
			}},
		}},
		decl.Unit{Path: "/src/Foo.h", Declarations: []decl.Declaration{
			{Kind: decl.KindClass, Name: "Foo", Children: []decl.Declaration{
				member("own", "/src/Foo.h", 30, ""),
				member("start", "/src/Foo.h", 40, "Lifecycle"),
			}},
		}},
	)

	foo := lib.ClassNamed("Foo")
	require.NotNil(t, foo)
	assert.Equal(t, []string{"own", "catPlain"}, names(foo.InstanceMethods))
	require.Len(t, foo.Tasks, 1)
	assert.Equal(t, []string{"start", "catTask"}, names(foo.Tasks[0].Members))
}
