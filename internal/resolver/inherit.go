package resolver

import (
	"git.home.luguber.info/inful/doctool/internal/model"
)

// inheritDocumentation gives undocumented methods and properties of classes the documentation
// of the member they override. Superclasses are searched nearest first, then adopted protocols.
// Only members with their own documentation are used as sources, so the result does not
// depend on processing order.
func inheritDocumentation(lib *model.Library) error {
	for _, cls := range lib.Classes {
		supers, err := lib.AllSuperclasses(cls)
		if err != nil {
			return err
		}
		protos, err := lib.AllProtocols(cls)
		if err != nil {
			return err
		}
		sources := append(supers, protos...)
		if len(sources) == 0 {
			continue
		}
		for _, m := range documentableMembers(cls) {
			if m.IsDocumented() {
				continue
			}
			if src := findOverridden(m, sources); src != nil {
				copyDocumentation(m, src)
			}
		}
	}
	return nil
}

func documentableMembers(n *model.Node) []*model.Node {
	var out []*model.Node
	for _, m := range n.Members() {
		if m.Kind == model.KindMethod || m.Kind == model.KindProperty {
			out = append(out, m)
		}
	}
	return out
}

func findOverridden(m *model.Node, owners []*model.Node) *model.Node {
	for _, owner := range owners {
		for _, candidate := range documentableMembers(owner) {
			if candidate.Kind != m.Kind || candidate.Name != m.Name || candidate.IsClassMethod != m.IsClassMethod {
				continue
			}
			if candidate.HasInheritedDocumentation() || !candidate.IsDocumented() {
				continue
			}
			return candidate
		}
	}
	return nil
}

func copyDocumentation(dst, src *model.Node) {
	dst.BriefComment = src.BriefComment
	dst.ExpandedComment = src.ExpandedComment
	dst.FullComment = src.FullComment
	dst.BriefHTML = src.BriefHTML
	dst.ExpandedHTML = src.ExpandedHTML
	dst.FullHTML = src.FullHTML
	dst.ReturnValueComment = src.ReturnValueComment
	dst.SeeAlso = append([]string(nil), src.SeeAlso...)
	for i, p := range dst.Parameters {
		if i < len(src.Parameters) && p.ParameterComment == "" {
			p.ParameterComment = src.Parameters[i].ParameterComment
		}
	}
	dst.InheritedFrom = src.ID
}
