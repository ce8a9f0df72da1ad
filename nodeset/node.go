package nodeset

import "github.com/andaru/uanodeset/ua"

// Node is one of ObjectNode, VariableNode, MethodNode, ObjectTypeNode,
// VariableTypeNode, ReferenceTypeNode, DataTypeNode or ViewNode.
type Node interface {
	Class() ua.NodeClass
	Base() *BaseNode
	node()
}

// BaseNode holds the attributes common to every node class
type BaseNode struct {
	ID           ua.NodeID
	BrowseName   ua.QualifiedName
	DisplayName  ua.LocalizedText
	Description  ua.LocalizedText
	SymbolicName string
	WriteMask    uint32
	// Extension is the opaque content of the node's Extensions element
	Extension string

	HierarchicalRefs    []*Reference
	NonHierarchicalRefs []*Reference

	// references not yet classified
	pending []*Reference
	// set when a reference of the node could not be resolved
	invalid bool
}

func (b *BaseNode) Base() *BaseNode { return b }

// Invalid reports whether the node is excluded from sorting because one
// of its references could not be resolved.
func (b *BaseNode) Invalid() bool { return b.invalid }
func (*BaseNode) node()           {}

// References returns the hierarchical references followed by the
// non-hierarchical ones.
func (b *BaseNode) References() []*Reference {
	refs := make([]*Reference, 0, len(b.HierarchicalRefs)+len(b.NonHierarchicalRefs))
	refs = append(refs, b.HierarchicalRefs...)
	return append(refs, b.NonHierarchicalRefs...)
}

type ObjectNode struct {
	BaseNode
	ParentNodeID   ua.NodeID
	TypeDefinition *Reference
	EventNotifier  uint8
}

type VariableNode struct {
	BaseNode
	ParentNodeID    ua.NodeID
	TypeDefinition  *Reference
	DataType        ua.NodeID
	ValueRank       int32
	ArrayDimensions string
	AccessLevel     uint8
	UserAccessLevel uint8
	Historizing     bool
	Value           *Value
}

type MethodNode struct {
	BaseNode
	Executable          bool
	UserExecutable      bool
	MethodDeclarationID ua.NodeID
}

type ObjectTypeNode struct {
	BaseNode
	IsAbstract bool
}

type VariableTypeNode struct {
	BaseNode
	DataType        ua.NodeID
	ValueRank       int32
	ArrayDimensions string
	IsAbstract      bool
	Value           *Value
}

type ReferenceTypeNode struct {
	BaseNode
	IsAbstract  bool
	Symmetric   bool
	InverseName ua.LocalizedText
}

type DataTypeNode struct {
	BaseNode
	IsAbstract bool
	// Definition is nil for types without a DataTypeDefinition
	Definition *Definition
}

type ViewNode struct {
	BaseNode
	ContainsNoLoops bool
	EventNotifier   uint8
}

func (*ObjectNode) Class() ua.NodeClass        { return ua.NodeClassObject }
func (*VariableNode) Class() ua.NodeClass      { return ua.NodeClassVariable }
func (*MethodNode) Class() ua.NodeClass        { return ua.NodeClassMethod }
func (*ObjectTypeNode) Class() ua.NodeClass    { return ua.NodeClassObjectType }
func (*VariableTypeNode) Class() ua.NodeClass  { return ua.NodeClassVariableType }
func (*ReferenceTypeNode) Class() ua.NodeClass { return ua.NodeClassReferenceType }
func (*DataTypeNode) Class() ua.NodeClass      { return ua.NodeClassDataType }
func (*ViewNode) Class() ua.NodeClass          { return ua.NodeClassView }

// Definition is the structure, union or enumeration definition of a
// DataTypeNode.
type Definition struct {
	Name        string
	BaseType    ua.NodeID
	IsUnion     bool
	IsOptionSet bool
	Fields      []*Field
}

// HasOptionalFields reports whether any field is optional
func (d *Definition) HasOptionalFields() bool {
	for _, f := range d.Fields {
		if f.IsOptional {
			return true
		}
	}
	return false
}

// Field is one field of a Definition
type Field struct {
	Name            string
	DataType        ua.NodeID
	ValueRank       int32
	ArrayDimensions string
	IsOptional      bool
	// Value is the enumeration value, valid when HasValue is set
	Value    int64
	HasValue bool
	// SwitchValue is the discriminant selecting this field in a union,
	// starting at 1 for the first field.
	SwitchValue uint32
}

// TypeDefinitionOf returns the has-type-definition reference of an
// Object or Variable node, or nil.
func TypeDefinitionOf(n Node) *Reference {
	switch v := n.(type) {
	case *ObjectNode:
		return v.TypeDefinition
	case *VariableNode:
		return v.TypeDefinition
	}
	return nil
}

// ParentOf returns the structural parent of n and the reference type
// linking them. An explicit ParentNodeId takes precedence over the
// target of the first inverse hierarchical reference.
func ParentOf(n Node) (parent, refType ua.NodeID, ok bool) {
	var explicit ua.NodeID
	switch v := n.(type) {
	case *ObjectNode:
		explicit = v.ParentNodeID
	case *VariableNode:
		explicit = v.ParentNodeID
	}
	var first *Reference
	for _, ref := range n.Base().HierarchicalRefs {
		if ref.IsForward {
			continue
		}
		if first == nil {
			first = ref
		}
		if !explicit.IsNull() && ref.Target == explicit {
			return explicit, ref.RefType, true
		}
	}
	switch {
	case !explicit.IsNull() && first != nil:
		return explicit, first.RefType, true
	case !explicit.IsNull():
		return explicit, ua.NodeID{}, true
	case first != nil:
		return first.Target, first.RefType, true
	}
	return ua.NodeID{}, ua.NodeID{}, false
}

func newNodeOfClass(class ua.NodeClass) Node {
	switch class {
	case ua.NodeClassObject:
		return &ObjectNode{}
	case ua.NodeClassVariable:
		return &VariableNode{ValueRank: -1, AccessLevel: 1, UserAccessLevel: 1}
	case ua.NodeClassMethod:
		return &MethodNode{Executable: true, UserExecutable: true}
	case ua.NodeClassObjectType:
		return &ObjectTypeNode{}
	case ua.NodeClassVariableType:
		return &VariableTypeNode{ValueRank: -1}
	case ua.NodeClassReferenceType:
		return &ReferenceTypeNode{}
	case ua.NodeClassDataType:
		return &DataTypeNode{}
	case ua.NodeClassView:
		return &ViewNode{}
	}
	return nil
}
