package model

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// TopLevelID is the base id of a top-level node before disambiguation.
func TopLevelID(g Group, name string) NodeID {
	return NodeID(string(g) + "/" + idSegment(name))
}

// MemberID is the base id of a member before disambiguation.
func MemberID(parent NodeID, m *Node) NodeID {
	return NodeID(fmt.Sprintf("%s/%s/%s", parent, memberSegment(m), idSegment(m.Name)))
}

func memberSegment(m *Node) string {
	switch {
	case m.Kind == KindMethod && m.IsClassMethod:
		return "classMethod"
	case m.Kind == KindMethod:
		return "instanceMethod"
	default:
		return string(m.Kind)
	}
}

func idSegment(name string) string {
	if name == "" {
		return "_"
	}
	return strings.ReplaceAll(name, "/", "_")
}

// IDAllocator hands out ids unique within one scope. The first claimant of a base id gets it
// unchanged; later claimants get "~2", "~3" and so on.
type IDAllocator struct {
	used sets.Set[NodeID]
}

// Allocate returns a unique id derived from base.
func (a *IDAllocator) Allocate(base NodeID) NodeID {
	if a.used == nil {
		a.used = sets.New[NodeID]()
	}
	id := base
	for i := 2; a.used.Has(id); i++ {
		id = NodeID(fmt.Sprintf("%s~%d", base, i))
	}
	a.used.Add(id)
	return id
}

// AssignIDs sets n.ID and rewrites the ids and parent ids of everything n owns.
// Member ids are derived in canonical member order, so the result is deterministic.
func AssignIDs(n *Node, id NodeID) {
	n.ID = id
	var alloc IDAllocator
	for _, m := range n.Members() {
		m.ParentID = id
		AssignIDs(m, alloc.Allocate(MemberID(id, m)))
	}
}
