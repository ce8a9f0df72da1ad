package ua

// BuiltinID is the numeric namespace zero id of a built-in data type
type BuiltinID uint32

const (
	Boolean BuiltinID = iota + 1
	SByte
	Byte
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float
	Double
	String
	DateTime
	Guid
	ByteString
	XmlElement
	NodeId
	ExpandedNodeId
	StatusCode
	QualifiedNameType
	LocalizedTextType
	Structure
	DataValue
	BaseDataType
	DiagnosticInfo
	Number
	Integer
	UInteger
	Enumeration
	Image

	// MaxBuiltin is the highest built-in data type id
	MaxBuiltin = Image
)

var builtinNames = [...]string{
	Boolean:           "Boolean",
	SByte:             "SByte",
	Byte:              "Byte",
	Int16:             "Int16",
	UInt16:            "UInt16",
	Int32:             "Int32",
	UInt32:            "UInt32",
	Int64:             "Int64",
	UInt64:            "UInt64",
	Float:             "Float",
	Double:            "Double",
	String:            "String",
	DateTime:          "DateTime",
	Guid:              "Guid",
	ByteString:        "ByteString",
	XmlElement:        "XmlElement",
	NodeId:            "NodeId",
	ExpandedNodeId:    "ExpandedNodeId",
	StatusCode:        "StatusCode",
	QualifiedNameType: "QualifiedName",
	LocalizedTextType: "LocalizedText",
	Structure:         "Structure",
	DataValue:         "DataValue",
	BaseDataType:      "BaseDataType",
	DiagnosticInfo:    "DiagnosticInfo",
	Number:            "Number",
	Integer:           "Integer",
	UInteger:          "UInteger",
	Enumeration:       "Enumeration",
	Image:             "Image",
}

// NodeID returns the namespace zero node id of b
func (b BuiltinID) NodeID() NodeID { return NewNumericNodeID(0, uint32(b)) }

func (b BuiltinID) String() string {
	if b >= Boolean && b <= MaxBuiltin {
		return builtinNames[b]
	}
	return "Builtin(" + NewNumericNodeID(0, uint32(b)).String() + ")"
}

// Builtin returns the built-in type id of id when id is one of the
// built-in data types (ns=0, numeric, 1..30).
func Builtin(id NodeID) (BuiltinID, bool) {
	if id.IsNumeric(0) && id.Numeric >= uint32(Boolean) && id.Numeric <= uint32(MaxBuiltin) {
		return BuiltinID(id.Numeric), true
	}
	return 0, false
}

// IsKnownBase reports whether id terminates the upward data type walk:
// a built-in data type or the OptionSet type.
func IsKnownBase(id NodeID) bool {
	if _, ok := Builtin(id); ok {
		return true
	}
	return id == OptionSetType
}

// BuiltinByName maps a value element name (Int32, LocalizedText, ...)
// to its built-in type. ExtensionObject and Variant are accepted for
// Structure and BaseDataType.
func BuiltinByName(name string) (BuiltinID, bool) {
	switch name {
	case "ExtensionObject":
		return Structure, true
	case "Variant":
		return BaseDataType, true
	}
	for i := Boolean; i <= MaxBuiltin; i++ {
		if builtinNames[i] == name {
			return i, true
		}
	}
	return 0, false
}
