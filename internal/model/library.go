package model

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
)

// Group is one of the disjoint top-level sets of a Library.
type Group string

const (
	GroupClasses    Group = "classes"
	GroupProtocols  Group = "protocols"
	GroupCategories Group = "categories"
	GroupFunctions  Group = "functions"
	GroupConstants  Group = "constants"
)

// Groups lists the top-level groups in canonical order.
var Groups = []Group{GroupClasses, GroupProtocols, GroupCategories, GroupFunctions, GroupConstants}

// Library is the whole-program container of documentation nodes.
type Library struct {
	Classes    []*Node
	Protocols  []*Node
	Categories []*Node
	Functions  []*Node
	Constants  []*Node

	nodes       map[NodeID]*Node
	classIndex  map[string]*Node
	protoIndex  map[string]*Node
	insertOrder []NodeID
}

// NewLibrary indexes the given top-level nodes and all nodes they own.
// Duplicate IDs and inconsistent parent IDs are rejected.
func NewLibrary(classes, protocols, categories, functions, constants []*Node) (*Library, error) {
	lib := &Library{
		Classes:    classes,
		Protocols:  protocols,
		Categories: categories,
		Functions:  functions,
		Constants:  constants,
		nodes:      make(map[NodeID]*Node),
		classIndex: make(map[string]*Node),
		protoIndex: make(map[string]*Node),
	}
	for _, g := range Groups {
		for _, n := range lib.Group(g) {
			if n.ParentID != "" {
				return nil, ferrors.UnknownError("top-level node has a parent").
					WithContext("node", string(n.ID)).Build()
			}
			if err := lib.index(n); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range classes {
		if _, ok := lib.classIndex[c.Name]; !ok {
			lib.classIndex[c.Name] = c
		}
	}
	for _, p := range protocols {
		if _, ok := lib.protoIndex[p.Name]; !ok {
			lib.protoIndex[p.Name] = p
		}
	}
	return lib, nil
}

func (l *Library) index(n *Node) error {
	if n.ID == "" {
		return ferrors.UnknownError("node without id").WithContext("name", n.Name).Build()
	}
	if _, dup := l.nodes[n.ID]; dup {
		return ferrors.UnknownError("duplicate node id").WithContext("node", string(n.ID)).Build()
	}
	l.nodes[n.ID] = n
	l.insertOrder = append(l.insertOrder, n.ID)
	for _, m := range n.Members() {
		if m.ParentID != n.ID {
			return ferrors.UnknownError(fmt.Sprintf("member %s is owned by %s but names parent %q", m.ID, n.ID, m.ParentID)).Build()
		}
		if err := l.index(m); err != nil {
			return err
		}
	}
	return nil
}

// Group returns the top-level nodes of g.
func (l *Library) Group(g Group) []*Node {
	switch g {
	case GroupClasses:
		return l.Classes
	case GroupProtocols:
		return l.Protocols
	case GroupCategories:
		return l.Categories
	case GroupFunctions:
		return l.Functions
	case GroupConstants:
		return l.Constants
	}
	return nil
}

// TopLevel returns every top-level node in group order.
func (l *Library) TopLevel() []*Node {
	var out []*Node
	for _, g := range Groups {
		out = append(out, l.Group(g)...)
	}
	return out
}

// Len is the number of nodes, members included.
func (l *Library) Len() int { return len(l.nodes) }

// Lookup returns the node with id, or nil.
func (l *Library) Lookup(id NodeID) *Node {
	if id == "" {
		return nil
	}
	return l.nodes[id]
}

// ClassNamed returns the first class declared with name.
func (l *Library) ClassNamed(name string) *Node { return l.classIndex[name] }

// ProtocolNamed returns the first protocol declared with name.
func (l *Library) ProtocolNamed(name string) *Node { return l.protoIndex[name] }

// Parent returns n's owner, or nil for top-level nodes.
func (l *Library) Parent(n *Node) *Node { return l.Lookup(n.ParentID) }

// Superclass returns the linked superclass, or nil when absent from the corpus.
func (l *Library) Superclass(n *Node) *Node { return l.Lookup(n.SuperclassID) }

// AdoptedProtocols returns the linked adopted protocols that are present in the library.
func (l *Library) AdoptedProtocols(n *Node) []*Node {
	var out []*Node
	for _, id := range n.ProtocolIDs {
		if p := l.Lookup(id); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Walk visits every node in deterministic pre-order: top-level nodes in group order,
// each followed by its members in canonical order. Returning an error stops the walk.
func (l *Library) Walk(fn func(*Node) error) error {
	for _, n := range l.TopLevel() {
		if err := walk(n, fn); err != nil {
			return err
		}
	}
	return nil
}

func walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, m := range n.Members() {
		if err := walk(m, fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy. Mutating the copy never affects l.
func (l *Library) Clone() *Library {
	c, err := NewLibrary(cloneNodes(l.Classes), cloneNodes(l.Protocols), cloneNodes(l.Categories), cloneNodes(l.Functions), cloneNodes(l.Constants))
	if err != nil {
		// l was validated on construction and a deep copy keeps every id.
		panic(fmt.Sprintf("model: clone of valid library failed: %v", err))
	}
	return c
}
