package ua

import "fmt"

// NodeClass is the category of an address space node
type NodeClass int

const (
	NodeClassObject NodeClass = iota
	NodeClassVariable
	NodeClassMethod
	NodeClassObjectType
	NodeClassVariableType
	NodeClassReferenceType
	NodeClassDataType
	NodeClassView

	// NodeClassCount is the number of node classes
	NodeClassCount = int(NodeClassView) + 1
)

// EmitOrder is the fixed node class precedence: type hierarchies are
// created before any instance can reference them.
var EmitOrder = [NodeClassCount]NodeClass{
	NodeClassReferenceType,
	NodeClassDataType,
	NodeClassObjectType,
	NodeClassObject,
	NodeClassMethod,
	NodeClassVariableType,
	NodeClassVariable,
	NodeClassView,
}

func (c NodeClass) String() string {
	switch c {
	case NodeClassObject:
		return "Object"
	case NodeClassVariable:
		return "Variable"
	case NodeClassMethod:
		return "Method"
	case NodeClassObjectType:
		return "ObjectType"
	case NodeClassVariableType:
		return "VariableType"
	case NodeClassReferenceType:
		return "ReferenceType"
	case NodeClassDataType:
		return "DataType"
	case NodeClassView:
		return "View"
	default:
		return fmt.Sprintf("NodeClass(%d)", int(c))
	}
}

func (c NodeClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Precedence returns the position of c in EmitOrder
func (c NodeClass) Precedence() int {
	for i, o := range EmitOrder {
		if o == c {
			return i
		}
	}
	return NodeClassCount
}

// NodeClassByElement maps a nodeset element name (UAObject, ...) to
// its node class.
func NodeClassByElement(name string) (NodeClass, bool) {
	switch name {
	case "UAObject":
		return NodeClassObject, true
	case "UAVariable":
		return NodeClassVariable, true
	case "UAMethod":
		return NodeClassMethod, true
	case "UAObjectType":
		return NodeClassObjectType, true
	case "UAVariableType":
		return NodeClassVariableType, true
	case "UAReferenceType":
		return NodeClassReferenceType, true
	case "UADataType":
		return NodeClassDataType, true
	case "UAView":
		return NodeClassView, true
	}
	return 0, false
}
