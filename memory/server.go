// Package memory is an in-memory address space implementing
// loader.Backend. It checks that nodes arrive in dependency order and is
// used by the command line tool and in tests.
package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/loader"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/value"
)

// Node is a node held by the Server
type Node struct {
	ID              ua.NodeID
	Class           ua.NodeClass
	BrowseName      ua.QualifiedName
	DisplayName     ua.LocalizedText
	Parent          ua.NodeID
	ParentRefType   ua.NodeID
	TypeDefinition  ua.NodeID
	ArrayDimensions []uint32
	Value           *value.Buffer
	References      []nodeset.Reference
}

// Server is an address space. It is not safe for concurrent use.
type Server struct {
	namespaces []string
	byURI      map[string]uint16
	nodes      map[ua.NodeID]*Node
	order      []ua.NodeID
	types      map[ua.NodeID]*datatype.Descriptor
	classifier *nodeset.StandardClassifier
}

var _ loader.ClassifierBackend = (*Server)(nil)

// NewServer returns a Server holding only the standard namespace.
// Nodes of namespace zero are assumed to exist.
func NewServer() *Server {
	return &Server{
		namespaces: []string{ua.StandardNamespace},
		byURI:      map[string]uint16{ua.StandardNamespace: 0},
		nodes:      map[ua.NodeID]*Node{},
		types:      map[ua.NodeID]*datatype.Descriptor{},
		classifier: nodeset.NewStandardClassifier(),
	}
}

func (s *Server) AddNamespace(uri string) uint16 {
	if idx, ok := s.byURI[uri]; ok {
		return idx
	}
	idx := uint16(len(s.namespaces))
	s.namespaces = append(s.namespaces, uri)
	s.byURI[uri] = idx
	return idx
}

func (s *Server) Classifier() nodeset.ReferenceClassifier { return s.classifier }

func (s *Server) AddDataTypes(_ context.Context, types []*datatype.Descriptor) error {
	for _, d := range types {
		if _, ok := s.types[d.ID]; ok {
			return errors.Errorf("data type %s already defined", d.ID)
		}
		s.types[d.ID] = d
	}
	return nil
}

// exists reports whether id is held or assumed to be held
func (s *Server) exists(id ua.NodeID) bool {
	if id.Namespace == 0 {
		return true
	}
	_, ok := s.nodes[id]
	return ok
}

// AddNode adds a node. Its parent and type definition must already be
// present.
func (s *Server) AddNode(_ context.Context, e *loader.Emission) error {
	b := e.Node.Base()
	if _, ok := s.nodes[b.ID]; ok {
		return errors.Errorf("node %s already exists", b.ID)
	}
	if !e.Parent.IsNull() && !s.exists(e.Parent) {
		return errors.Errorf("node %s: parent %s not present", b.ID, e.Parent)
	}
	if !e.TypeDefinition.IsNull() && !s.exists(e.TypeDefinition) {
		return errors.Errorf("node %s: type definition %s not present", b.ID, e.TypeDefinition)
	}
	s.nodes[b.ID] = &Node{
		ID:              b.ID,
		Class:           e.Node.Class(),
		BrowseName:      b.BrowseName,
		DisplayName:     b.DisplayName,
		Parent:          e.Parent,
		ParentRefType:   e.ParentRefType,
		TypeDefinition:  e.TypeDefinition,
		ArrayDimensions: e.ArrayDimensions,
		Value:           e.Value,
	}
	s.order = append(s.order, b.ID)
	return nil
}

func (s *Server) AddReference(_ context.Context, source ua.NodeID, ref *nodeset.Reference) error {
	n, ok := s.nodes[source]
	if !ok {
		return errors.Errorf("reference source %s not present", source)
	}
	n.References = append(n.References, *ref)
	return nil
}

// Node returns the node id
func (s *Server) Node(id ua.NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Order returns the ids of the nodes in the order they were added
func (s *Server) Order() []ua.NodeID { return s.order }

// Len returns the number of nodes held
func (s *Server) Len() int { return len(s.nodes) }

// Namespaces returns the namespace array; index 0 is the standard
// namespace.
func (s *Server) Namespaces() []string { return append([]string(nil), s.namespaces...) }

// DataType returns the descriptor of the data type id
func (s *Server) DataType(id ua.NodeID) (*datatype.Descriptor, bool) {
	d, ok := s.types[id]
	return d, ok
}

// Browse returns the targets of the forward references of id with the
// given reference type. A null refType matches every reference.
func (s *Server) Browse(id, refType ua.NodeID) ([]ua.NodeID, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, errors.Errorf("node %s not present", id)
	}
	var out []ua.NodeID
	for _, ref := range n.References {
		if ref.IsForward && (refType.IsNull() || ref.RefType == refType) {
			out = append(out, ref.Target)
		}
	}
	return out, nil
}
