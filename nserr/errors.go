package nserr

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

// Kind represents the category of an import diagnostic
type Kind int

const (
	// KindMalformedNode is a node missing a required attribute
	KindMalformedNode Kind = iota
	// KindUnresolvedAlias is a reference to an undefined alias
	KindUnresolvedAlias
	// KindUnresolvedType is a data type which cannot be reached
	KindUnresolvedType
	// KindCyclicDependency is a node which cannot be linearized
	KindCyclicDependency
	// KindUnknownReferenceTarget is an edge to a node outside the graph
	KindUnknownReferenceTarget
)

func (k Kind) String() string {
	switch k {
	case KindMalformedNode:
		return "malformed-node"
	case KindUnresolvedAlias:
		return "unresolved-alias"
	case KindUnresolvedType:
		return "unresolved-type"
	case KindCyclicDependency:
		return "cyclic-dependency"
	case KindUnknownReferenceTarget:
		return "unknown-reference-target"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k *Kind) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "malformed-node":
		*k = KindMalformedNode
	case "unresolved-alias":
		*k = KindUnresolvedAlias
	case "unresolved-type":
		*k = KindUnresolvedType
	case "cyclic-dependency":
		*k = KindCyclicDependency
	case "unknown-reference-target":
		*k = KindUnknownReferenceTarget
	default:
		return errors.New("unknown value")
	}
	return nil
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Severity represents how a diagnostic affects the import
type Severity int

const (
	// SeverityError excludes the offending node from emission
	SeverityError Severity = iota
	// SeverityWarning is reported but the node is still emitted
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return errors.New("unknown value")
	}
	return nil
}

// Error is a node-local import diagnostic.
//
// Errors marshal to XML, JSON and YAML so that a backend can publish the
// diagnostic lists of an import in whatever format it reports in:
//
//	out, _ := xml.Marshal(nserr.UnresolvedAlias("HasFoo"))
type Error struct {
	XMLName   xml.Name `xml:"diagnostic" json:"-" yaml:"-"`
	Kind      Kind     `xml:"kind" json:"kind" yaml:"kind"`
	Severity  Severity `xml:"severity" json:"severity" yaml:"severity"`
	NodeID    string   `xml:"node-id,omitempty" json:"node-id,omitempty" yaml:"node-id,omitempty"`
	Target    string   `xml:"target,omitempty" json:"target,omitempty" yaml:"target,omitempty"`
	Attribute string   `xml:"attribute,omitempty" json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Element   string   `xml:"element,omitempty" json:"element,omitempty" yaml:"element,omitempty"`
	Message   string   `xml:"message,omitempty" json:"message,omitempty" yaml:"message,omitempty"`
}

func (e Error) Error() string {
	s := fmt.Sprintf("%s %s", e.Severity, e.Kind)
	if e.NodeID != "" {
		s += " node:" + e.NodeID
	}
	if e.Target != "" {
		s += " target:" + e.Target
	}
	if e.Attribute != "" {
		s += " attribute:" + e.Attribute
	}
	if e.Element != "" {
		s += " element:" + e.Element
	}
	if e.Message != "" {
		s += " " + e.Message
	}
	return s
}

func MalformedNode(attributeName, elementName string, opts ...Option) *Error {
	e := &Error{
		Kind:      KindMalformedNode,
		Attribute: attributeName,
		Element:   elementName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func UnresolvedAlias(alias string, opts ...Option) *Error {
	e := &Error{Kind: KindUnresolvedAlias, Target: alias}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UnresolvedType is reported as a warning unless overridden; the type
// is left without a descriptor and its values decode as raw data.
func UnresolvedType(typeID string, opts ...Option) *Error {
	e := &Error{Kind: KindUnresolvedType, Severity: SeverityWarning, NodeID: typeID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func CyclicDependency(nodeID string, opts ...Option) *Error {
	e := &Error{Kind: KindCyclicDependency, NodeID: nodeID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UnknownReferenceTarget is always a warning: the dangling edge is
// treated as satisfied by the hosting server.
func UnknownReferenceTarget(source, target string, opts ...Option) *Error {
	e := &Error{Kind: KindUnknownReferenceTarget, NodeID: source, Target: target}
	for _, opt := range opts {
		opt(e)
	}
	// unknown targets never exclude a node
	e.Severity = SeverityWarning
	return e
}

// As returns the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err's chain contains an *Error of kind k.
func Is(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
