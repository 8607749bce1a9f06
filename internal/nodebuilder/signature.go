package nodebuilder

import (
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// Signature returns the display declaration of d with whitespace normalized. The front end's
// signature is used when present; otherwise one is synthesized from the declaration parts.
func Signature(d decl.Declaration) string {
	if s := normalizeSpace(d.Signature); s != "" {
		return s
	}
	return normalizeSpace(synthesize(d))
}

func synthesize(d decl.Declaration) string {
	switch d.Kind {
	case decl.KindClass:
		s := "@interface " + d.Name
		if d.SuperclassName != "" {
			s += " : " + d.SuperclassName
		}
		return s + protocolList(d.ProtocolNames)
	case decl.KindCategory:
		return "@interface " + d.ExtendedClassName + " (" + d.Name + ")" + protocolList(d.ProtocolNames)
	case decl.KindProtocol:
		return "@protocol " + d.Name + protocolList(d.ProtocolNames)
	case decl.KindClassMethod, decl.KindInstanceMethod:
		return methodSignature(d)
	case decl.KindProperty:
		s := "@property"
		if len(d.PropertyAttributes) > 0 {
			s += " (" + strings.Join(d.PropertyAttributes, ", ") + ")"
		}
		return s + " " + typedName(d.Type, d.Name)
	case decl.KindFunction:
		return functionSignature(d)
	case decl.KindEnum:
		if d.Name == "" {
			return "enum"
		}
		return "enum " + d.Name
	case decl.KindStruct:
		return "struct " + d.Name
	case decl.KindTypedef:
		return "typedef " + typedName(d.Type, d.Name)
	case decl.KindEnumConstant:
		return d.Name
	default:
		return typedName(d.Type, d.Name)
	}
}

func protocolList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return " <" + strings.Join(names, ", ") + ">"
}

func methodSignature(d decl.Declaration) string {
	var b strings.Builder
	if d.Kind == decl.KindClassMethod {
		b.WriteString("+ ")
	} else {
		b.WriteString("- ")
	}
	ret := d.Type
	if ret == "" {
		ret = "id"
	}
	b.WriteString("(" + ret + ")")

	params := d.Parameters()
	if len(params) == 0 {
		b.WriteString(d.Name)
		return b.String()
	}
	pieces := strings.Split(strings.TrimSuffix(d.Name, ":"), ":")
	for i, p := range params {
		piece := ""
		if i < len(pieces) {
			piece = pieces[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(piece + ":(" + p.Type + ")" + p.Name)
	}
	if d.Variadic {
		b.WriteString(", ...")
	}
	return b.String()
}

func functionSignature(d decl.Declaration) string {
	ret := d.Type
	if ret == "" {
		ret = "void"
	}
	params := d.Parameters()
	args := make([]string, 0, len(params)+1)
	for _, p := range params {
		args = append(args, typedName(p.Type, p.Name))
	}
	if d.Variadic {
		args = append(args, "...")
	}
	if len(args) == 0 {
		args = append(args, "void")
	}
	return typedName(ret, d.Name) + "(" + strings.Join(args, ", ") + ")"
}

// typedName joins a C type and a name, keeping pointer stars against the name.
func typedName(typ, name string) string {
	typ = strings.TrimSpace(typ)
	switch {
	case typ == "":
		return name
	case name == "":
		return typ
	case strings.HasSuffix(typ, "*"):
		return typ + name
	default:
		return typ + " " + name
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
