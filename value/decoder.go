// Package value decodes the literal values of Variable and VariableType
// nodes into native buffers laid out by datatype descriptors.
package value

import (
	"encoding/binary"

	"github.com/go-logr/logr"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
)

var le = binary.LittleEndian

// TypeSource provides descriptors by data type id and by encoding id.
// *datatype.Importer is a TypeSource.
type TypeSource interface {
	Lookup(id ua.NodeID) (*datatype.Descriptor, bool)
	LookupEncoding(id ua.NodeID) (*datatype.Descriptor, bool)
}

// Buffer is a decoded value. Data holds the value itself, or the
// elements of an array packed contiguously. Variable length content is
// held in Heap and referenced from Data by handle, the heap index plus
// one.
type Buffer struct {
	// Type is nil when the data type could not be resolved, in which case
	// Raw holds the value as written.
	Type            *datatype.Descriptor
	Data            []byte
	Heap            [][]byte
	IsArray         bool
	ArrayLength     int
	ArrayDimensions []uint32
	Raw             string
	Warnings        []*nserr.Error
}

// Bytes returns the native encoding of the value
func (b *Buffer) Bytes() []byte { return b.Data }

// Ref returns the heap entry of handle, or nil for the null handle
func (b *Buffer) Ref(handle uint64) []byte {
	if handle == 0 || handle > uint64(len(b.Heap)) {
		return nil
	}
	return b.Heap[handle-1]
}

// Text returns the String, ByteString or XmlElement stored at the start
// of field.
func (b *Buffer) Text(field []byte) string {
	n := le.Uint64(field)
	ref := b.Ref(le.Uint64(field[8:]))
	if uint64(len(ref)) < n {
		return ""
	}
	return string(ref[:n])
}

// Element returns the native encoding of array element i
func (b *Buffer) Element(i int) []byte {
	if b.Type == nil {
		return nil
	}
	size := b.Type.Size()
	if (i+1)*size > len(b.Data) {
		return nil
	}
	return b.Data[i*size : (i+1)*size]
}

func (b *Buffer) alloc(p []byte) uint64 {
	b.Heap = append(b.Heap, p)
	return uint64(len(b.Heap))
}

// Decoder decodes nodeset values
type Decoder struct {
	log        logr.Logger
	types      TypeSource
	namespaces *nodeset.NamespaceList
	legacy     bool
}

// Option configures a Decoder
type Option func(*Decoder)

func WithLogger(l logr.Logger) Option { return func(d *Decoder) { d.log = l } }

// WithLegacyScalarArray controls the dimensions given to a scalar value
// of a variable with value rank 1 and no declared dimensions. When set,
// the default, the one-element array gets dimension 0 rather than 1.
func WithLegacyScalarArray(legacy bool) Option { return func(d *Decoder) { d.legacy = legacy } }

// WithNamespaces translates namespace indexes of node ids inside values
func WithNamespaces(l *nodeset.NamespaceList) Option {
	return func(d *Decoder) { d.namespaces = l }
}

// NewDecoder returns a Decoder resolving data types with types. A nil
// types only knows the built-in types.
func NewDecoder(types TypeSource, opts ...Option) *Decoder {
	d := &Decoder{log: logr.Discard(), types: types, legacy: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) lookup(id ua.NodeID) (*datatype.Descriptor, bool) {
	if d.types == nil {
		b, ok := ua.Builtin(id)
		if !ok {
			return nil, false
		}
		return datatype.Builtin(b), true
	}
	return d.types.Lookup(id)
}

func (d *Decoder) lookupEncoding(id ua.NodeID) (*datatype.Descriptor, bool) {
	if d.types == nil {
		return nil, false
	}
	if desc, ok := d.types.LookupEncoding(id); ok {
		return desc, true
	}
	return d.types.Lookup(id)
}

func (d *Decoder) translate(id ua.NodeID) ua.NodeID {
	if d.namespaces == nil {
		return id
	}
	if g, ok := d.namespaces.Translate(id); ok {
		return g
	}
	return id
}

// DecodeVariable decodes the value of n, returning nil if it has none
func (d *Decoder) DecodeVariable(n *nodeset.VariableNode) (*Buffer, error) {
	return d.decode(n.ID, ua.NodeClassVariable, n.DataType, n.ValueRank, n.ArrayDimensions, n.Value)
}

// DecodeVariableType decodes the default value of n, returning nil if it
// has none.
func (d *Decoder) DecodeVariableType(n *nodeset.VariableTypeNode) (*Buffer, error) {
	return d.decode(n.ID, ua.NodeClassVariableType, n.DataType, n.ValueRank, n.ArrayDimensions, n.Value)
}

// Decode decodes v as a value of dataType with the given value rank and
// array dimensions text. A nil v decodes to a nil Buffer.
func (d *Decoder) Decode(dataType ua.NodeID, valueRank int32, dims string, v *nodeset.Value) (*Buffer, error) {
	return d.decode(ua.NodeID{}, ua.NodeClassVariable, dataType, valueRank, dims, v)
}

func (d *Decoder) decode(node ua.NodeID, class ua.NodeClass, dataType ua.NodeID, valueRank int32, dims string, v *nodeset.Value) (*Buffer, error) {
	if v == nil {
		return nil, nil
	}
	nodeText := ""
	if !node.IsNull() {
		nodeText = node.String()
	}
	if v.Data == nil {
		return nil, nserr.MalformedNode("", "Value", nserr.WithNodeID(nodeText), nserr.WithMessage("empty value"))
	}
	buf := &Buffer{}
	e := &encoder{d: d, buf: buf, node: nodeText}

	elements := []*nodeset.Data{v.Data}
	if v.IsArray {
		elements = v.Data.Members
	}
	buf.ArrayDimensions = e.arrayDimensions(class, valueRank, dims, v)
	switch {
	case v.IsArray:
		buf.IsArray, buf.ArrayLength = true, len(elements)
	case len(buf.ArrayDimensions) > 0 && valueRank >= 0:
		buf.IsArray, buf.ArrayLength = true, 1
	}

	desc := e.valueType(dataType, v, elements)
	if desc == nil {
		buf.Raw = render(v.Data)
		e.warning(nserr.UnresolvedType(dataType.String(),
			nserr.WithTarget(nodeText), nserr.WithMessage("value kept undecoded")))
		return buf, nil
	}
	buf.Type = desc
	stride := desc.Size()
	buf.Data = make([]byte, stride*len(elements))
	for i, el := range elements {
		e.value(desc, el, buf.Data[i*stride:(i+1)*stride])
	}
	return buf, nil
}

// ArrayDimensions returns the array dimensions of a Variable or
// VariableType: those declared, else [N] for an array value of N
// elements, else a single unbounded dimension for array value ranks.
func (d *Decoder) ArrayDimensions(class ua.NodeClass, valueRank int32, dims string, v *nodeset.Value) []uint32 {
	e := &encoder{d: d, buf: &Buffer{}}
	return e.arrayDimensions(class, valueRank, dims, v)
}

func (e *encoder) arrayDimensions(class ua.NodeClass, valueRank int32, dims string, v *nodeset.Value) []uint32 {
	parsed, err := datatype.ParseArrayDimensions(dims)
	if err != nil {
		e.warn("ArrayDimensions", err.Error())
	}
	switch {
	case len(parsed) > 0:
		return parsed
	case v != nil && v.IsArray:
		return []uint32{uint32(len(v.Data.Members))}
	case valueRank == 1 && v != nil && !e.d.legacy:
		return []uint32{1}
	case valueRank == 1:
		return []uint32{0}
	case class == ua.NodeClassVariableType && valueRank >= 0:
		return []uint32{0}
	}
	return nil
}

// valueType picks the descriptor to decode with. Abstract built-in
// types take the type named by the value element, and structures held
// in ExtensionObjects take the type the body is encoded as.
func (e *encoder) valueType(dataType ua.NodeID, v *nodeset.Value, elements []*nodeset.Data) *datatype.Descriptor {
	desc, ok := e.d.lookup(dataType)
	if !ok {
		return nil
	}
	if desc.Kind == datatype.KindBuiltin && isAbstract(desc.Builtin) {
		if b, ok := ua.BuiltinByName(v.Type); ok {
			desc = datatype.Builtin(b)
		}
	}
	if desc.Kind == datatype.KindBuiltin && desc.Builtin == ua.Structure && len(elements) > 0 {
		if concrete, _ := e.extension(elements[0]); concrete != nil {
			return concrete
		}
	}
	return desc
}

func isAbstract(b ua.BuiltinID) bool {
	switch b {
	case ua.BaseDataType, ua.Number, ua.Integer, ua.UInteger, ua.Structure, ua.Enumeration:
		return true
	}
	return false
}
