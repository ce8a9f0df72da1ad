package loader

import (
	"context"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/value"
)

// Backend is the address space nodes are loaded into. Nodes are added in
// dependency order: a node's parent and type definition are added before
// it unless they were already present or are outside the nodeset.
type Backend interface {
	// AddNamespace returns the global index of a namespace URI, adding
	// it if needed.
	AddNamespace(uri string) uint16
	// AddDataTypes is called with the data type descriptors of a nodeset
	// after its DataType nodes and before any instance.
	AddDataTypes(ctx context.Context, types []*datatype.Descriptor) error
	AddNode(ctx context.Context, e *Emission) error
	// AddReference is called for every reference of every added node,
	// once all nodes of the nodeset are added.
	AddReference(ctx context.Context, source ua.NodeID, ref *nodeset.Reference) error
}

// ClassifierBackend is a Backend which classifies references itself
type ClassifierBackend interface {
	Backend
	Classifier() nodeset.ReferenceClassifier
}

// Emission is a node handed to the Backend
type Emission struct {
	Node           nodeset.Node
	Parent         ua.NodeID
	ParentRefType  ua.NodeID
	TypeDefinition ua.NodeID
	// ArrayDimensions and Value are set for Variable and VariableType
	// nodes only.
	ArrayDimensions []uint32
	Value           *value.Buffer
}
