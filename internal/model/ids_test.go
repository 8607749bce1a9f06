package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDAllocator(t *testing.T) {
	var a IDAllocator
	assert.Equal(t, NodeID("functions/compute"), a.Allocate(TopLevelID(GroupFunctions, "compute")))
	assert.Equal(t, NodeID("functions/compute~2"), a.Allocate(TopLevelID(GroupFunctions, "compute")))
	assert.Equal(t, NodeID("functions/compute~3"), a.Allocate(TopLevelID(GroupFunctions, "compute")))
	assert.Equal(t, NodeID("constants/compute"), a.Allocate(TopLevelID(GroupConstants, "compute")))
}

func TestAssignIDs(t *testing.T) {
	x := &Node{Kind: KindParameter, Name: "x"}
	anon := &Node{Kind: KindParameter}
	bar := &Node{Kind: KindMethod, Name: "bar:", IsInstanceMethod: true, Parameters: []*Node{x, anon}}
	cbar := &Node{Kind: KindMethod, Name: "bar:", IsClassMethod: true}
	dup := &Node{Kind: KindMethod, Name: "bar:", IsInstanceMethod: true}
	foo := &Node{Kind: KindClass, Name: "Foo", ClassMethods: []*Node{cbar}, InstanceMethods: []*Node{bar, dup}}

	AssignIDs(foo, "classes/Foo")

	assert.Equal(t, NodeID("classes/Foo/classMethod/bar:"), cbar.ID)
	assert.Equal(t, NodeID("classes/Foo/instanceMethod/bar:"), bar.ID)
	assert.Equal(t, NodeID("classes/Foo/instanceMethod/bar:~2"), dup.ID)
	assert.Equal(t, NodeID("classes/Foo/instanceMethod/bar:/parameter/x"), x.ID)
	assert.Equal(t, NodeID("classes/Foo/instanceMethod/bar:/parameter/_"), anon.ID)
	assert.Equal(t, bar.ID, x.ParentID)
	assert.Equal(t, foo.ID, dup.ParentID)
}
