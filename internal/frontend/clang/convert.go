package clang

import (
	"bytes"
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// converter turns decoded AST nodes into declarations of the main file.
type converter struct {
	main    string
	content []byte
	decls   []decl.Declaration
}

func (c *converter) topLevel(n *node) {
	if n.Kind == "LinkageSpecDecl" {
		for _, child := range n.Inner {
			c.topLevel(child)
		}
		return
	}
	if n.IsImplicit || !n.inMain {
		return
	}
	if d, ok := c.declaration(n, nil); ok {
		c.decls = append(c.decls, d)
	}
}

func (c *converter) finish() []decl.Declaration {
	return foldTypedefs(c.decls)
}

// declaration converts n. container is the enclosing Objective-C container, if any.
func (c *converter) declaration(n *node, container *node) (decl.Declaration, bool) {
	d := decl.Declaration{Name: n.Name, Location: n.at, Implicit: n.IsImplicit}
	for _, p := range n.Protocols {
		d.ProtocolNames = append(d.ProtocolNames, p.Name)
	}
	switch n.Kind {
	case "ObjCInterfaceDecl":
		if c.forward(n, "@class") {
			return d, false
		}
		d.Kind = decl.KindClass
		if n.Super != nil {
			d.SuperclassName = n.Super.Name
		}
	case "ObjCProtocolDecl":
		if c.forward(n, "") {
			return d, false
		}
		d.Kind = decl.KindProtocol
	case "ObjCCategoryDecl":
		d.Kind = decl.KindCategory
		if n.Interface != nil {
			d.ExtendedClassName = n.Interface.Name
		}
	case "ObjCMethodDecl":
		d.Kind = decl.KindClassMethod
		if n.Instance {
			d.Kind = decl.KindInstanceMethod
		}
		d.Type = qualType(n.ReturnType)
		d.Variadic = n.Variadic
		d.Optional = container != nil && container.Kind == "ObjCProtocolDecl" && c.optionalSection(container, n)
	case "ObjCPropertyDecl":
		d.Kind = decl.KindProperty
		d.Type = qualType(n.Type)
		d.ReadOnly = n.ReadOnly
		d.PropertyAttributes = propertyAttributes(n)
		d.Optional = n.Control == "optional"
	case "ObjCIvarDecl":
		d.Kind = decl.KindIvar
		d.Type = qualType(n.Type)
	case "FunctionDecl":
		d.Kind = decl.KindFunction
		ret, variadic := splitFunctionType(qualType(n.Type))
		d.Type = ret
		d.Variadic = variadic
	case "ParmVarDecl":
		d.Kind = decl.KindParameter
		d.Type = qualType(n.Type)
	case "VarDecl":
		if n.Name == "" {
			return d, false
		}
		d.Kind = decl.KindVariable
		d.Type = qualType(n.Type)
	case "EnumDecl":
		d.Kind = decl.KindEnum
	case "EnumConstantDecl":
		d.Kind = decl.KindEnumConstant
		d.Type = qualType(n.Type)
	case "RecordDecl":
		if !n.Complete {
			return d, false
		}
		d.Kind = decl.KindStruct
	case "FieldDecl":
		d.Kind = decl.KindField
		d.Type = qualType(n.Type)
	case "TypedefDecl":
		d.Kind = decl.KindTypedef
		d.Type = qualType(n.Type)
	default:
		return d, false
	}

	for _, child := range n.Inner {
		switch child.Kind {
		case "FullComment":
			d.Comment = convertComment(child)
			continue
		case "DeprecatedAttr":
			d.Availability.Deprecated = true
			d.Availability.DeprecationMessage = child.Message
			continue
		case "UnavailableAttr":
			d.Availability.Unavailable = true
			d.Availability.UnavailableMessage = child.Message
			continue
		case "AvailabilityAttr":
			if child.Platform != "" {
				d.Availability.Platforms = append(d.Availability.Platforms, decl.PlatformAvailability{
					Platform:    child.Platform,
					Introduced:  child.Introduced,
					Deprecated:  child.Deprecated,
					Obsoleted:   child.Obsoleted,
					Unavailable: child.Unavailable,
					Message:     child.Message,
				})
			}
			continue
		}
		if child.IsImplicit && !isMethod(child) {
			continue
		}
		if cd, ok := c.declaration(child, n); ok {
			d.Children = append(d.Children, cd)
		}
	}
	return d, true
}

func isMethod(n *node) bool {
	return n.Kind == "ObjCMethodDecl"
}

// forward reports whether n is a forward declaration (@class Foo; or @protocol Foo;),
// which clang reports with the same node kind as the definition.
func (c *converter) forward(n *node, keyword string) bool {
	if keyword != "" && n.begin >= 0 && n.begin < len(c.content) {
		if bytes.HasPrefix(c.content[n.begin:], []byte(keyword)) {
			return true
		}
	}
	end := n.at.Offset + len(n.Name)
	if end <= 0 || end > len(c.content) {
		return false
	}
	rest := bytes.TrimLeft(c.content[end:], " \t\r\n")
	return len(rest) > 0 && (rest[0] == ';' || rest[0] == ',')
}

// optionalSection reports whether method sits after an @optional marker in its protocol.
// Clang's JSON dump does not carry this for methods, so the protocol's source is scanned.
func (c *converter) optionalSection(protocol, method *node) bool {
	start, end := protocol.begin, method.at.Offset
	if start < 0 || end > len(c.content) || start >= end {
		return false
	}
	body := c.content[start:end]
	return bytes.LastIndex(body, []byte("@optional")) > bytes.LastIndex(body, []byte("@required"))
}

func qualType(q *qual) string {
	if q == nil {
		return ""
	}
	return q.QualType
}

func propertyAttributes(n *node) []string {
	var attrs []string
	add := func(on bool, name string) {
		if on {
			attrs = append(attrs, name)
		}
	}
	add(n.Class, "class")
	add(n.NonAtomic, "nonatomic")
	add(n.Atomic, "atomic")
	add(n.ReadOnly, "readonly")
	add(n.ReadWrite, "readwrite")
	add(n.Copy, "copy")
	add(n.Strong, "strong")
	add(n.Retain, "retain")
	add(n.Weak, "weak")
	add(n.Assign, "assign")
	add(n.UnsafeUnretained, "unsafe_unretained")
	switch n.Nullable {
	case "nullable", "nonnull", "null_resettable":
		attrs = append(attrs, n.Nullable)
	}
	if n.Getter != nil && n.Getter.Name != "" {
		attrs = append(attrs, "getter="+n.Getter.Name)
	}
	if n.Setter != nil && n.Setter.Name != "" {
		attrs = append(attrs, "setter="+n.Setter.Name)
	}
	return attrs
}

// splitFunctionType splits a function type such as "int (int, double)" into its return
// type and whether it takes variable arguments.
func splitFunctionType(t string) (string, bool) {
	t = strings.TrimSpace(t)
	if !strings.HasSuffix(t, ")") {
		return t, false
	}
	depth := 0
	for i := len(t) - 1; i >= 0; i-- {
		switch t[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				params := t[i+1 : len(t)-1]
				return strings.TrimSpace(t[:i]), strings.HasSuffix(strings.TrimSpace(params), "...")
			}
		}
	}
	return t, false
}

// foldTypedefs merges "typedef enum/struct X X" style pairs into one declaration named by
// the typedef, so each type is documented once.
func foldTypedefs(decls []decl.Declaration) []decl.Declaration {
	out := make([]decl.Declaration, 0, len(decls))
	for i := 0; i < len(decls); i++ {
		d := decls[i]
		if (d.Kind == decl.KindEnum || d.Kind == decl.KindStruct) && i+1 < len(decls) {
			next := decls[i+1]
			if next.Kind == decl.KindTypedef && typedefNames(next.Type, d) {
				d.Name = next.Name
				if d.Comment.IsEmpty() {
					d.Comment = next.Comment
				}
				if !d.Availability.IsDeprecated() {
					d.Availability = next.Availability
				}
				out = append(out, d)
				i++
				continue
			}
		}
		if d.Kind == decl.KindTypedef && i+1 < len(decls) {
			// NS_ENUM and NS_OPTIONS expand to the typedef first, then the enum.
			next := decls[i+1]
			if (next.Kind == decl.KindEnum || next.Kind == decl.KindStruct) && next.Name == d.Name {
				if next.Comment.IsEmpty() {
					next.Comment = d.Comment
				}
				if !next.Availability.IsDeprecated() {
					next.Availability = d.Availability
				}
				out = append(out, next)
				i++
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// typedefNames reports whether a typedef of type typ names tag declaration d.
func typedefNames(typ string, d decl.Declaration) bool {
	typ = strings.TrimSpace(typ)
	if d.Name == "" {
		return strings.HasPrefix(typ, "enum ") || strings.HasPrefix(typ, "struct ") || strings.Contains(typ, "(unnamed") || strings.Contains(typ, "(anonymous")
	}
	return typ == "enum "+d.Name || typ == "struct "+d.Name || typ == d.Name
}
