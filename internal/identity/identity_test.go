package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctool/internal/decl"
	"git.home.luguber.info/inful/doctool/internal/model"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

func fixture(t *testing.T) *model.Library {
	t.Helper()
	foo := &model.Node{Kind: model.KindClass, Name: "Foo", Location: decl.SourceLocation{Path: "/src/Foo.h", Line: 3}}
	foo.InstanceMethods = []*model.Node{
		{Kind: model.KindMethod, Name: "bar", IsInstanceMethod: true},
		{Kind: model.KindMethod, Name: "bar", IsInstanceMethod: true},
	}
	foo.ClassMethods = []*model.Node{{
		Kind: model.KindMethod, Name: "fooWithName:", IsClassMethod: true,
		Parameters: []*model.Node{{Kind: model.KindParameter, Name: "name"}},
	}}
	lower := &model.Node{Kind: model.KindClass, Name: "foo", Location: decl.SourceLocation{Path: "/src/lower.h"}}
	proto := &model.Node{Kind: model.KindProtocol, Name: "Drawing", Properties: []*model.Node{{Kind: model.KindProperty, Name: "bounds"}}}
	cat := &model.Node{Kind: model.KindCategory, Name: "Loud", ExtendedClassName: "Foo"}
	compute1 := &model.Node{Kind: model.KindFunction, Name: "compute", Location: decl.SourceLocation{Path: "/src/b.h", Line: 9}}
	compute2 := &model.Node{Kind: model.KindFunction, Name: "compute", Location: decl.SourceLocation{Path: "/src/a.h", Line: 1},
		Parameters: []*model.Node{{Kind: model.KindParameter, Name: "x"}}}
	enum := &model.Node{Kind: model.KindConstant, Name: "Mode", Declaration: "typedef enum Mode Mode",
		Constants: []*model.Node{{Kind: model.KindConstant, Name: "ModeFast"}}}

	var alloc model.IDAllocator
	for g, nodes := range map[model.Group][]*model.Node{
		model.GroupClasses:    {foo, lower},
		model.GroupProtocols:  {proto},
		model.GroupCategories: {cat},
		model.GroupFunctions:  {compute1, compute2},
		model.GroupConstants:  {enum},
	} {
		for _, n := range nodes {
			model.AssignIDs(n, alloc.Allocate(model.TopLevelID(g, n.Name)))
		}
	}
	lib, err := model.NewLibrary([]*model.Node{foo, lower}, []*model.Node{proto}, []*model.Node{cat}, []*model.Node{compute1, compute2}, []*model.Node{enum})
	require.NoError(t, err)
	return lib
}

func collect(lib *model.Library) []*model.Node {
	var out []*model.Node
	_ = lib.Walk(func(n *model.Node) error {
		out = append(out, n)
		return nil
	})
	return out
}

func TestAssign_DenseReferenceNumbers(t *testing.T) {
	lib := fixture(t)
	out := Assign(lib, Options{})

	nodes := collect(out)
	seen := make(map[int]bool)
	for _, n := range nodes {
		assert.False(t, seen[n.ReferenceNumber], "duplicate reference number %d", n.ReferenceNumber)
		seen[n.ReferenceNumber] = true
	}
	for i := FirstReferenceNumber; i < FirstReferenceNumber+len(nodes); i++ {
		assert.True(t, seen[i], "missing reference number %d", i)
	}

	for _, n := range collect(lib) {
		assert.Zero(t, n.ReferenceNumber, "input library is not modified")
		assert.Empty(t, n.HTMLPath)
	}
}

func TestAssign_UniquePaths(t *testing.T) {
	out := Assign(fixture(t), Options{})
	paths := sets.New[string]()
	for _, n := range collect(out) {
		require.NotEmpty(t, n.HTMLPath, n.ID)
		assert.False(t, paths.Has(strings.ToLower(n.HTMLPath)), "duplicate path %s", n.HTMLPath)
		paths.Add(strings.ToLower(n.HTMLPath))
	}
}

func TestAssign_Paths(t *testing.T) {
	out := Assign(fixture(t), Options{})

	// Functions are ordered by name, then file, so the a.h declaration claims the plain path.
	byFile := map[string]string{}
	for _, fn := range out.Functions {
		byFile[fn.Location.Path] = fn.HTMLPath
	}
	assert.Equal(t, "Functions/compute.html", byFile["/src/a.h"])
	assert.Equal(t, "Functions/compute-2.html", byFile["/src/b.h"])

	foo := out.ClassNamed("Foo")
	assert.Equal(t, "Classes/Foo.html", foo.HTMLPath)
	assert.Equal(t, "Classes/foo-2.html", out.Classes[1].HTMLPath)
	assert.Equal(t, "//apple_ref/occ/cl/Foo", foo.AppleRef)
	assert.Equal(t, "Classes/Foo.html#//apple_ref/occ/instm/Foo/bar", foo.InstanceMethods[0].HTMLPath)
	assert.Equal(t, "Classes/Foo.html#//apple_ref/occ/instm/Foo/bar-2", foo.InstanceMethods[1].HTMLPath)
	assert.Equal(t, "//apple_ref/occ/clm/Foo/fooWithName:", foo.ClassMethods[0].AppleRef)
	assert.Equal(t, "Classes/Foo.html#//apple_ref/occ/clm/Foo/fooWithName:/name", foo.ClassMethods[0].Parameters[0].HTMLPath)

	assert.Equal(t, "Categories/Foo+Loud.html", out.Categories[0].HTMLPath)
	assert.Equal(t, "//apple_ref/occ/cat/Foo(Loud)", out.Categories[0].AppleRef)
	assert.Equal(t, "//apple_ref/occ/intfp/Drawing/bounds", out.Protocols[0].Properties[0].AppleRef)

	enum := out.Constants[0]
	assert.Equal(t, "Constants/Mode.html", enum.HTMLPath)
	assert.Equal(t, "//apple_ref/c/tdef/Mode", enum.AppleRef)
	assert.Equal(t, "//apple_ref/c/econst/ModeFast", enum.Constants[0].AppleRef)
}

func TestAssign_Order(t *testing.T) {
	out := Assign(fixture(t), Options{})
	foo := out.ClassNamed("Foo")
	assert.Equal(t, FirstReferenceNumber, foo.ReferenceNumber)
	// Class methods come before instance methods, parameters directly after their owner.
	assert.Equal(t, foo.ReferenceNumber+1, foo.ClassMethods[0].ReferenceNumber)
	assert.Equal(t, foo.ReferenceNumber+2, foo.ClassMethods[0].Parameters[0].ReferenceNumber)
	assert.Equal(t, foo.ReferenceNumber+3, foo.InstanceMethods[0].ReferenceNumber)
	assert.Less(t, out.Classes[1].ReferenceNumber, out.Protocols[0].ReferenceNumber)
	assert.Less(t, out.Protocols[0].ReferenceNumber, out.Categories[0].ReferenceNumber)
}

func TestAssign_Stable(t *testing.T) {
	lib := fixture(t)
	first := collect(Assign(lib, Options{}))
	second := collect(Assign(lib, Options{}))
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].HTMLPath, second[i].HTMLPath)
		assert.Equal(t, first[i].ReferenceNumber, second[i].ReferenceNumber)
		assert.NotEqual(t, first[i].UUID, second[i].UUID, "unseeded uuids differ per run")
	}

	seeded1 := collect(Assign(lib, Options{Seed: "MyFramework"}))
	seeded2 := collect(Assign(lib, Options{Seed: "MyFramework"}))
	other := collect(Assign(lib, Options{Seed: "Other"}))
	for i := range seeded1 {
		assert.Equal(t, seeded1[i].UUID, seeded2[i].UUID)
		assert.NotEqual(t, seeded1[i].UUID, other[i].UUID)
	}
}

func TestTokenType(t *testing.T) {
	tests := map[string]string{
		"//apple_ref/occ/cl/Foo":          "Class",
		"//apple_ref/occ/intfm/P/draw":    "Method",
		"//apple_ref/occ/instp/Foo/title": "Property",
		"//apple_ref/c/func/compute":      "Function",
		"//apple_ref/c/tdef/Mode":         "Type",
		"//apple_ref/c/econst/ModeFast":   "Constant",
		"bogus":                           "Entry",
	}
	for ref, want := range tests {
		t.Run(ref, func(t *testing.T) {
			assert.Equal(t, want, TokenType(ref))
		})
	}
}
