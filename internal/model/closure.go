package model

import (
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/util/sets"
)

// ErrGraphCycle is matched (errors.Is) by every cycle error from the closure walks.
var ErrGraphCycle = ferrors.UnknownError("graph cycle").Build()

func cycleError(kind string, at *Node) error {
	return ferrors.UnknownError("graph cycle").
		WithContext("relation", kind).
		WithContext("node", string(at.ID)).
		Build()
}

// AllSuperclasses walks the superclass chain of n until it leaves the library.
// The result is ordered nearest first and excludes n.
func (l *Library) AllSuperclasses(n *Node) ([]*Node, error) {
	visiting := sets.New(n.ID)
	var out []*Node
	for cur := l.Superclass(n); cur != nil; cur = l.Superclass(cur) {
		if visiting.Has(cur.ID) {
			return nil, cycleError("superclass", cur)
		}
		visiting.Add(cur.ID)
		out = append(out, cur)
	}
	return out, nil
}

// AllProtocols returns every protocol n conforms to, first seen first: each of n's own
// protocols followed by the protocols it adopts, then the same for every superclass in
// chain order. Duplicates are dropped.
func (l *Library) AllProtocols(n *Node) ([]*Node, error) {
	supers, err := l.AllSuperclasses(n)
	if err != nil {
		return nil, err
	}
	var seen sets.Ordered[NodeID]
	var out []*Node
	for _, owner := range append([]*Node{n}, supers...) {
		for _, p := range l.AdoptedProtocols(owner) {
			if err := l.collectProtocol(p, &seen, &out, sets.New[NodeID]()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (l *Library) collectProtocol(p *Node, seen *sets.Ordered[NodeID], out *[]*Node, visiting sets.Set[NodeID]) error {
	if visiting.Has(p.ID) {
		return cycleError("protocol", p)
	}
	if seen.Has(p.ID) {
		return nil
	}
	visiting.Add(p.ID)
	defer visiting.Delete(p.ID)

	seen.Add(p.ID)
	*out = append(*out, p)
	for _, adopted := range l.AdoptedProtocols(p) {
		if err := l.collectProtocol(adopted, seen, out, visiting); err != nil {
			return err
		}
	}
	return nil
}

// CheckAcyclic verifies that no superclass chain or protocol adoption graph loops.
func (l *Library) CheckAcyclic() error {
	for _, group := range [][]*Node{l.Classes, l.Protocols, l.Categories} {
		for _, n := range group {
			if _, err := l.AllProtocols(n); err != nil {
				return err
			}
		}
	}
	return nil
}
