package identity

import (
	"strings"

	"git.home.luguber.info/inful/doctool/internal/model"
)

// AppleRef returns the apple_ref token identifying n in documentation sets. owner is the
// container n is a member of, nil for top-level nodes. Parameters are not covered; they
// are addressed relative to their owner.
func AppleRef(n *model.Node, owner *model.Node) string {
	if owner == nil {
		switch n.Kind {
		case model.KindClass:
			return "//apple_ref/occ/cl/" + n.Name
		case model.KindProtocol:
			return "//apple_ref/occ/intf/" + n.Name
		case model.KindCategory:
			return "//apple_ref/occ/cat/" + n.ExtendedClassName + "(" + n.Name + ")"
		case model.KindFunction:
			return "//apple_ref/c/func/" + n.Name
		case model.KindConstant:
			return "//apple_ref/c/" + constantType(n) + "/" + n.Name
		}
		return "//apple_ref/doc/uid/" + n.Name
	}

	scope := owner.Name
	if owner.Kind == model.KindCategory && owner.ExtendedClassName != "" {
		scope = owner.ExtendedClassName
	}
	inProtocol := owner.Kind == model.KindProtocol
	switch n.Kind {
	case model.KindMethod:
		switch {
		case inProtocol && n.IsClassMethod:
			return "//apple_ref/occ/intfcm/" + scope + "/" + n.Name
		case inProtocol:
			return "//apple_ref/occ/intfm/" + scope + "/" + n.Name
		case n.IsClassMethod:
			return "//apple_ref/occ/clm/" + scope + "/" + n.Name
		default:
			return "//apple_ref/occ/instm/" + scope + "/" + n.Name
		}
	case model.KindProperty:
		if inProtocol {
			return "//apple_ref/occ/intfp/" + scope + "/" + n.Name
		}
		return "//apple_ref/occ/instp/" + scope + "/" + n.Name
	case model.KindConstant:
		return "//apple_ref/c/econst/" + n.Name
	case model.KindField:
		if owner.Kind.IsContainer() {
			return "//apple_ref/occ/instv/" + scope + "/" + n.Name
		}
		return "//apple_ref/c/field/" + scope + "/" + n.Name
	case model.KindParameter:
		return AppleRef(owner, nil) + "/" + n.Name
	}
	return "//apple_ref/doc/uid/" + scope + "/" + n.Name
}

// TokenType maps an apple_ref to the short entry type used in documentation set search
// indexes, for example "instm" becomes "Method".
func TokenType(ref string) string {
	parts := strings.Split(strings.TrimPrefix(ref, "//apple_ref/"), "/")
	if len(parts) < 2 {
		return "Entry"
	}
	switch parts[1] {
	case "cl":
		return "Class"
	case "intf":
		return "Protocol"
	case "cat":
		return "Category"
	case "instm", "clm", "intfm", "intfcm":
		return "Method"
	case "instp", "intfp":
		return "Property"
	case "func":
		return "Function"
	case "data":
		return "Variable"
	case "econst":
		return "Constant"
	case "tdef":
		return "Type"
	case "tag":
		return "Struct"
	case "instv", "field":
		return "Field"
	}
	return "Entry"
}

func constantType(n *model.Node) string {
	decl := strings.TrimSpace(n.Declaration)
	switch {
	case strings.HasPrefix(decl, "typedef"):
		return "tdef"
	case strings.HasPrefix(decl, "enum"), strings.HasPrefix(decl, "struct"), strings.HasPrefix(decl, "union"):
		return "tag"
	}
	return "data"
}
