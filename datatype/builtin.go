package datatype

import "github.com/andaru/uanodeset/ua"

// Native sizes of the variable length encodings
const (
	// arraySize is a uint64 element count and a uint64 heap handle
	arraySize = 16
	// handleSize is a uint64 heap handle, index+1 with 0 meaning absent
	handleSize = 8
)

type nativeLayout struct {
	size, align int
}

// builtinLayouts is the 64-bit native layout of each built-in type.
// String, ByteString, XmlElement and Image are a length and a heap
// handle; Number, Integer and UInteger are held as a Variant and
// Enumeration as an Int32.
var builtinLayouts = [...]nativeLayout{
	ua.Boolean:           {1, 1},
	ua.SByte:             {1, 1},
	ua.Byte:              {1, 1},
	ua.Int16:             {2, 2},
	ua.UInt16:            {2, 2},
	ua.Int32:             {4, 4},
	ua.UInt32:            {4, 4},
	ua.Int64:             {8, 8},
	ua.UInt64:            {8, 8},
	ua.Float:             {4, 4},
	ua.Double:            {8, 8},
	ua.String:            {16, 8},
	ua.DateTime:          {8, 8},
	ua.Guid:              {16, 4},
	ua.ByteString:        {16, 8},
	ua.XmlElement:        {16, 8},
	ua.NodeId:            {24, 8},
	ua.ExpandedNodeId:    {48, 8},
	ua.StatusCode:        {4, 4},
	ua.QualifiedNameType: {24, 8},
	ua.LocalizedTextType: {32, 8},
	ua.Structure:         {48, 8},
	ua.DataValue:         {80, 8},
	ua.BaseDataType:      {48, 8},
	ua.DiagnosticInfo:    {56, 8},
	ua.Number:            {48, 8},
	ua.Integer:           {48, 8},
	ua.UInteger:          {48, 8},
	ua.Enumeration:       {4, 4},
	ua.Image:             {16, 8},
}

var builtins [ua.MaxBuiltin + 1]*Descriptor

// optionSet is the layout of subtypes of OptionSet
var optionSet *Descriptor

func init() {
	for id := ua.Boolean; id <= ua.MaxBuiltin; id++ {
		l := builtinLayouts[id]
		builtins[id] = &Descriptor{
			ID:      id.NodeID(),
			Name:    id.String(),
			Kind:    KindBuiltin,
			Builtin: id,
			size:    l.size,
			align:   l.align,
		}
	}
	optionSet = newOptionSet(ua.OptionSetType, "OptionSet")
}

func newOptionSet(id ua.NodeID, name string) *Descriptor {
	d := &Descriptor{
		ID:   id,
		Name: name,
		Kind: KindStructure,
		Members: []*Member{
			{Name: "Value", Type: builtins[ua.ByteString]},
			{Name: "ValidBits", Type: builtins[ua.ByteString]},
		},
	}
	d.layout()
	return d
}

// Builtin returns the shared descriptor of a built-in type
func Builtin(id ua.BuiltinID) *Descriptor {
	if id < ua.Boolean || id > ua.MaxBuiltin {
		return nil
	}
	return builtins[id]
}

// standard returns the descriptor of a namespace zero type handled
// without a DataType node: the built-ins, OptionSet and Union.
func standard(id ua.NodeID) (*Descriptor, bool) {
	if b, ok := ua.Builtin(id); ok {
		return builtins[b], true
	}
	switch id {
	case ua.OptionSetType:
		return optionSet, true
	case ua.UnionType:
		return builtins[ua.Structure], true
	}
	return nil, false
}
