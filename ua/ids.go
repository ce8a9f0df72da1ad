package ua

// StandardNamespace is the URI of namespace zero
const StandardNamespace = "http://opcfoundation.org/UA/"

// Well-known namespace zero reference type ids
var (
	HierarchicalReferences    = NewNumericNodeID(0, 33)
	NonHierarchicalReferences = NewNumericNodeID(0, 32)
	HasChild                  = NewNumericNodeID(0, 34)
	Organizes                 = NewNumericNodeID(0, 35)
	HasEventSource            = NewNumericNodeID(0, 36)
	HasModellingRule          = NewNumericNodeID(0, 37)
	HasEncoding               = NewNumericNodeID(0, 38)
	HasDescription            = NewNumericNodeID(0, 39)
	HasTypeDefinition         = NewNumericNodeID(0, 40)
	GeneratesEvent            = NewNumericNodeID(0, 41)
	Aggregates                = NewNumericNodeID(0, 44)
	HasSubtype                = NewNumericNodeID(0, 45)
	HasProperty               = NewNumericNodeID(0, 46)
	HasComponent              = NewNumericNodeID(0, 47)
	HasNotifier               = NewNumericNodeID(0, 48)
	HasOrderedComponent       = NewNumericNodeID(0, 49)
	FromState                 = NewNumericNodeID(0, 51)
	ToState                   = NewNumericNodeID(0, 52)
	HasCause                  = NewNumericNodeID(0, 53)
	HasEffect                 = NewNumericNodeID(0, 54)
	AlwaysGeneratesEvent      = NewNumericNodeID(0, 3065)
	HasTrueSubState           = NewNumericNodeID(0, 9004)
	HasFalseSubState          = NewNumericNodeID(0, 9005)
	HasCondition              = NewNumericNodeID(0, 9006)
)

// Well-known namespace zero data type ids outside the built-in range
var (
	OptionSetType = NewNumericNodeID(0, 12755)
	UnionType     = NewNumericNodeID(0, 12756)
)

// Browse names of the data type encoding objects
const (
	EncodingDefaultBinary = "Default Binary"
	EncodingDefaultXML    = "Default XML"
	EncodingDefaultJSON   = "Default JSON"
)
