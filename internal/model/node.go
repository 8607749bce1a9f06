package model

import (
	"strings"

	"git.home.luguber.info/inful/doctool/internal/decl"
)

// Kind is the kind of a documentation node.
type Kind string

const (
	KindClass     Kind = "class"
	KindProtocol  Kind = "protocol"
	KindCategory  Kind = "category"
	KindFunction  Kind = "function"
	KindConstant  Kind = "constant"
	KindMethod    Kind = "method"
	KindProperty  Kind = "property"
	KindField     Kind = "field"
	KindParameter Kind = "parameter"
)

// IsContainer reports whether nodes of this kind own documentable members.
func (k Kind) IsContainer() bool {
	return k == KindClass || k == KindProtocol || k == KindCategory
}

// NodeID is the stable structural identity of a node inside one Library.
type NodeID string

// Node is one documentable entity.
type Node struct {
	ID   NodeID
	Kind Kind
	Name string

	// Assigned by the identity assigner after filtering.
	UUID            string
	ReferenceNumber int
	HTMLPath        string
	AppleRef        string

	BriefComment       string
	ExpandedComment    string
	FullComment        string
	BriefHTML          string
	ExpandedHTML       string
	FullHTML           string
	ParameterComment   string
	ReturnValueComment string
	Deprecated         bool
	DeprecationComment string
	Internal           bool
	InternalComment    string
	SeeAlso            []string

	// InheritedFrom is set when the documentation fields were copied from an overridden member.
	InheritedFrom NodeID

	Declaration     string
	DeclarationHTML string
	Type            string
	Location        decl.SourceLocation
	Availability    decl.Availability

	ParentID          NodeID
	SuperclassName    string
	SuperclassID      NodeID
	ProtocolNames     []string
	ProtocolIDs       []NodeID
	ExtendedClassName string
	ExtendedClassID   NodeID

	ClassMethods    []*Node
	InstanceMethods []*Node
	ImplicitMethods []*Node
	Properties      []*Node
	Constants       []*Node
	Fields          []*Node
	Parameters      []*Node
	Tasks           []*Task

	IsClassMethod    bool
	IsInstanceMethod bool
	IsProperty       bool
	IsRequired       bool
	IsReadOnly       bool
	IsImplicitMethod bool

	// TaskName is the task heading a member was marked with, empty when unmarked.
	TaskName string
}

// Task groups members of a container under an author-declared heading.
type Task struct {
	Name    string
	Members []*Node
}

// IsDocumented reports whether the node carries any documentation text, its own or inherited.
func (n *Node) IsDocumented() bool {
	if strings.TrimSpace(n.FullComment) != "" || strings.TrimSpace(n.ReturnValueComment) != "" {
		return true
	}
	if n.Kind == KindParameter {
		return strings.TrimSpace(n.ParameterComment) != ""
	}
	return n.HasCommentedParameters()
}

// IsInternal reports whether the node is marked @internal.
func (n *Node) IsInternal() bool {
	return n.Internal
}

// HasInheritedDocumentation reports whether the documentation was copied from another node.
func (n *Node) HasInheritedDocumentation() bool {
	return n.InheritedFrom != ""
}

// HasCommentedMethods reports whether any method member is documented.
func (n *Node) HasCommentedMethods() bool {
	for _, m := range n.Methods() {
		if m.IsDocumented() {
			return true
		}
	}
	return false
}

// HasCommentedParameters reports whether any parameter carries a comment.
func (n *Node) HasCommentedParameters() bool {
	return anyDocumented(n.Parameters)
}

// HasCommentedConstants reports whether any constant member is documented.
func (n *Node) HasCommentedConstants() bool {
	return anyDocumented(n.Constants)
}

// HasCommentedFields reports whether any field member is documented.
func (n *Node) HasCommentedFields() bool {
	return anyDocumented(n.Fields)
}

func anyDocumented(nodes []*Node) bool {
	for _, c := range nodes {
		if c.IsDocumented() {
			return true
		}
	}
	return false
}

// Methods returns class, instance and implicit methods plus task-grouped methods.
func (n *Node) Methods() []*Node {
	var out []*Node
	out = append(out, n.ClassMethods...)
	out = append(out, n.InstanceMethods...)
	out = append(out, n.ImplicitMethods...)
	for _, t := range n.Tasks {
		for _, m := range t.Members {
			if m.Kind == KindMethod {
				out = append(out, m)
			}
		}
	}
	return out
}

// Members returns every directly owned node in canonical order: class methods, instance
// methods, implicit methods, properties, constants, fields, parameters, then task members.
func (n *Node) Members() []*Node {
	var out []*Node
	for _, group := range [][]*Node{n.ClassMethods, n.InstanceMethods, n.ImplicitMethods, n.Properties, n.Constants, n.Fields, n.Parameters} {
		out = append(out, group...)
	}
	for _, t := range n.Tasks {
		out = append(out, t.Members...)
	}
	return out
}

// Clone returns a deep copy of the node and everything it owns.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.ProtocolNames = cloneSlice(n.ProtocolNames)
	c.ProtocolIDs = cloneSlice(n.ProtocolIDs)
	c.SeeAlso = cloneSlice(n.SeeAlso)
	c.Availability.Platforms = cloneSlice(n.Availability.Platforms)
	c.ClassMethods = cloneNodes(n.ClassMethods)
	c.InstanceMethods = cloneNodes(n.InstanceMethods)
	c.ImplicitMethods = cloneNodes(n.ImplicitMethods)
	c.Properties = cloneNodes(n.Properties)
	c.Constants = cloneNodes(n.Constants)
	c.Fields = cloneNodes(n.Fields)
	c.Parameters = cloneNodes(n.Parameters)
	if n.Tasks != nil {
		c.Tasks = make([]*Task, len(n.Tasks))
		for i, t := range n.Tasks {
			c.Tasks[i] = &Task{Name: t.Name, Members: cloneNodes(t.Members)}
		}
	}
	return &c
}

func cloneNodes(in []*Node) []*Node {
	if in == nil {
		return nil
	}
	out := make([]*Node, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
