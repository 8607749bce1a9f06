package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/pathmatch"
)

func node(kind model.Kind, name, comment, file string) *model.Node {
	return &model.Node{Kind: kind, Name: name, FullComment: comment, Location: decl.SourceLocation{Path: file}}
}

func method(name, comment string) *model.Node {
	n := node(model.KindMethod, name, comment, "/src/Foo.h")
	n.IsInstanceMethod = true
	return n
}

func library(t *testing.T, classes, functions []*model.Node) *model.Library {
	t.Helper()
	for _, n := range append(append([]*model.Node{}, classes...), functions...) {
		group := model.GroupClasses
		if n.Kind == model.KindFunction {
			group = model.GroupFunctions
		}
		model.AssignIDs(n, model.TopLevelID(group, n.Name))
	}
	lib, err := model.NewLibrary(classes, nil, nil, functions, nil)
	require.NoError(t, err)
	return lib
}

func names(nodes []*model.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestApply_UndocumentedMembersDropped(t *testing.T) {
	foo := node(model.KindClass, "Foo", "", "/src/Foo.h")
	foo.InstanceMethods = []*model.Node{method("bar", "Does bar."), method("baz", "")}
	lib := library(t, []*model.Node{foo}, nil)

	out := Apply(lib, Options{})
	require.Len(t, out.Classes, 1)
	assert.Equal(t, []string{"bar"}, names(out.Classes[0].InstanceMethods))
	assert.Equal(t, 2, out.Len())

	// The input library is untouched.
	assert.Equal(t, []string{"bar", "baz"}, names(lib.Classes[0].InstanceMethods))
	assert.NotSame(t, lib.Classes[0], out.Classes[0])

	all := Apply(lib, Options{ShowUndocumented: true})
	assert.Equal(t, []string{"bar", "baz"}, names(all.Classes[0].InstanceMethods))
}

func TestApply_ContainerRules(t *testing.T) {
	documentedEmpty := node(model.KindClass, "Documented", "A documented class.", "/src/A.h")
	documentedEmpty.InstanceMethods = []*model.Node{method("hidden", "")}
	undocumentedEmpty := node(model.KindClass, "Bare", "", "/src/B.h")
	undocumentedEmpty.InstanceMethods = []*model.Node{method("hidden", "")}
	noMembers := node(model.KindClass, "Nothing", "", "/src/C.h")

	out := Apply(library(t, []*model.Node{documentedEmpty, undocumentedEmpty, noMembers}, nil), Options{})
	require.Len(t, out.Classes, 1)
	assert.Equal(t, "Documented", out.Classes[0].Name)
	assert.Empty(t, out.Classes[0].InstanceMethods)
}

func TestApply_HardPredicates(t *testing.T) {
	internal := node(model.KindClass, "Secret", "Documented.", "/src/Secret.h")
	internal.Internal = true
	excluded := node(model.KindClass, "FooPrivate", "Documented.", "/src/FooPrivate.h")
	wrongType := node(model.KindFunction, "helper", "Documented.", "/src/helper.m")
	kept := node(model.KindFunction, "compute", "Documented.", "/src/compute.h")
	kept.InternalComment = "Do not call twice."

	internalMember := method("reset", "Resets.")
	internalMember.Internal = true
	host := node(model.KindClass, "Host", "", "/src/Host.h")
	host.InstanceMethods = []*model.Node{internalMember}

	lib := library(t, []*model.Node{internal, excluded, host}, []*model.Node{wrongType, kept})
	exclude, err := pathmatch.Compile([]string{"*Private.h"}, "/src")
	require.NoError(t, err)
	opts := Options{Exclude: exclude, FileTypes: []string{".h"}}

	out := Apply(lib, opts)
	assert.Empty(t, out.Classes, "an undocumented class whose only member is internal is dropped")
	assert.Equal(t, []string{"compute"}, names(out.Functions))
	assert.Empty(t, out.Functions[0].InternalComment)

	opts.ShowInternal = true
	out = Apply(lib, opts)
	assert.Equal(t, []string{"Secret", "Host"}, names(out.Classes))
	assert.Equal(t, "Do not call twice.", out.Functions[0].InternalComment)

	// A documented container is dropped by a hard predicate even with members.
	excluded.InstanceMethods = []*model.Node{method("visible", "Documented.")}
	out = Apply(library(t, []*model.Node{excluded}, nil), opts)
	assert.Empty(t, out.Classes)
}

func TestApply_TasksRebuilt(t *testing.T) {
	foo := node(model.KindClass, "Foo", "Foo.", "/src/Foo.h")
	start := method("start", "Starts.")
	start.TaskName = "Lifecycle"
	stop := method("stop", "")
	stop.TaskName = "Lifecycle"
	debug := method("dump", "")
	debug.TaskName = "Debugging"
	foo.Tasks = []*model.Task{{Name: "Lifecycle", Members: []*model.Node{start, stop}}, {Name: "Debugging", Members: []*model.Node{debug}}}

	out := Apply(library(t, []*model.Node{foo}, nil), Options{})
	require.Len(t, out.Classes[0].Tasks, 1)
	assert.Equal(t, "Lifecycle", out.Classes[0].Tasks[0].Name)
	assert.Equal(t, []string{"start"}, names(out.Classes[0].Tasks[0].Members))
	assert.NotNil(t, out.Lookup(start.ID))
	assert.Nil(t, out.Lookup(stop.ID))
}

func TestApply_ParametersFollowOwner(t *testing.T) {
	fn := node(model.KindFunction, "compute", "", "/src/compute.h")
	fn.Parameters = []*model.Node{
		{Kind: model.KindParameter, Name: "x", ParameterComment: "The input."},
		{Kind: model.KindParameter, Name: "y"},
	}
	out := Apply(library(t, nil, []*model.Node{fn}), Options{})
	require.Len(t, out.Functions, 1)
	assert.Equal(t, []string{"x", "y"}, names(out.Functions[0].Parameters))
}

func TestApply_Idempotent(t *testing.T) {
	foo := node(model.KindClass, "Foo", "", "/src/Foo.h")
	foo.InstanceMethods = []*model.Node{method("bar", "Bar."), method("baz", "")}
	sub := node(model.KindClass, "Sub", "Sub.", "/src/Sub.h")
	sub.SuperclassName = "Gone"
	gone := node(model.KindClass, "Gone", "", "/src/Gone.h")
	lib := library(t, []*model.Node{foo, sub, gone}, []*model.Node{node(model.KindFunction, "f", "", "/src/f.h")})
	sub.SuperclassID = gone.ID

	once := Apply(lib, Options{})
	twice := Apply(once, Options{})
	assert.Equal(t, once.Classes, twice.Classes)
	assert.Equal(t, once.Functions, twice.Functions)
	assert.Equal(t, once.Len(), twice.Len())

	assert.Empty(t, once.ClassNamed("Sub").SuperclassID)
	assert.Equal(t, "Gone", once.ClassNamed("Sub").SuperclassName)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Configuration{
		ShowUndocumentedEntities: true,
		ExcludePatterns:          []string{"Tests/"},
		Paths:                    []string{"/src"},
		FileTypes:                []string{".h"},
	}
	opts, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.True(t, opts.ShowUndocumented)
	assert.False(t, opts.ShowInternal)
	assert.True(t, opts.Exclude.Excluded("/src/Tests/A.h"))
	assert.Equal(t, []string{".h"}, opts.FileTypes)

	cfg.ExcludePatterns = []string{"[bad"}
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}
