package ua

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// IDType is the kind of a NodeID's local identifier
type IDType uint8

const (
	IDTypeNumeric IDType = iota
	IDTypeString
	IDTypeGUID
	IDTypeOpaque
)

// NodeID identifies a node by namespace index and local identifier.
//
// NodeID is comparable and is used directly as a map key. The opaque
// identifier is held as a string of raw bytes for that reason.
type NodeID struct {
	Namespace uint16
	Type      IDType
	Numeric   uint32
	StringID  string
	GUID      uuid.UUID
	Opaque    string
}

// NewNumericNodeID returns a numeric NodeID
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeNumeric, Numeric: id}
}

// NewStringNodeID returns a string NodeID
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeString, StringID: id}
}

// IsNull reports whether id is the null node id (ns=0;i=0)
func (id NodeID) IsNull() bool { return id == NodeID{} }

// IsNumeric reports whether id is a numeric id in namespace ns
func (id NodeID) IsNumeric(ns uint16) bool {
	return id.Namespace == ns && id.Type == IDTypeNumeric
}

// WithNamespace returns a copy of id in namespace ns
func (id NodeID) WithNamespace(ns uint16) NodeID {
	id.Namespace = ns
	return id
}

func (id NodeID) String() string {
	var s string
	switch id.Type {
	case IDTypeNumeric:
		s = "i=" + strconv.FormatUint(uint64(id.Numeric), 10)
	case IDTypeString:
		s = "s=" + id.StringID
	case IDTypeGUID:
		s = "g=" + id.GUID.String()
	case IDTypeOpaque:
		s = "b=" + base64.StdEncoding.EncodeToString([]byte(id.Opaque))
	}
	if id.Namespace != 0 {
		return "ns=" + strconv.FormatUint(uint64(id.Namespace), 10) + ";" + s
	}
	return s
}

func (id NodeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *NodeID) UnmarshalText(b []byte) error {
	v, err := ParseNodeID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseNodeID parses the textual node id forms used by nodeset files:
//
//	i=85, ns=1;i=5001, ns=2;s=Pump;1, g=<uuid>, b=<base64>
//
// The namespace index is returned as written; translation to a server
// index is the caller's concern.
func ParseNodeID(s string) (NodeID, error) {
	s = strings.TrimSpace(s)
	var id NodeID
	if strings.HasPrefix(s, "ns=") {
		pos := strings.IndexByte(s, ';')
		if pos == -1 {
			return id, errors.Errorf("invalid node id %q: missing identifier", s)
		}
		ns, err := strconv.ParseUint(s[3:pos], 10, 16)
		if err != nil {
			return id, errors.Wrapf(err, "invalid node id %q", s)
		}
		id.Namespace = uint16(ns)
		s = s[pos+1:]
	}
	if len(s) < 2 || s[1] != '=' {
		return id, errors.Errorf("invalid node id %q", s)
	}
	body := s[2:]
	switch s[0] {
	case 'i':
		v, err := strconv.ParseUint(body, 10, 32)
		if err != nil {
			return id, errors.Wrapf(err, "invalid numeric node id %q", s)
		}
		id.Type, id.Numeric = IDTypeNumeric, uint32(v)
	case 's':
		id.Type, id.StringID = IDTypeString, body
	case 'g':
		g, err := uuid.Parse(body)
		if err != nil {
			return id, errors.Wrapf(err, "invalid guid node id %q", s)
		}
		id.Type, id.GUID = IDTypeGUID, g
	case 'b':
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return id, errors.Wrapf(err, "invalid opaque node id %q", s)
		}
		id.Type, id.Opaque = IDTypeOpaque, string(b)
	default:
		return id, errors.Errorf("invalid node id %q: unknown identifier type %q", s, s[0])
	}
	return id, nil
}

// MustParseNodeID is ParseNodeID which panics on error. Only for
// constants and tests.
func MustParseNodeID(s string) NodeID {
	id, err := ParseNodeID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// QualifiedName is a namespace qualified browse name
type QualifiedName struct {
	Namespace uint16
	Name      string
}

// ParseQualifiedName parses "1:Name" or "Name". A prefix which is not a
// namespace index is kept as part of the name.
func ParseQualifiedName(s string) QualifiedName {
	pos := strings.IndexByte(s, ':')
	if pos == -1 {
		return QualifiedName{Name: s}
	}
	ns, err := strconv.ParseUint(s[:pos], 10, 16)
	if err != nil {
		return QualifiedName{Name: s}
	}
	return QualifiedName{Namespace: uint16(ns), Name: s[pos+1:]}
}

func (q QualifiedName) String() string {
	if q.Namespace == 0 {
		return q.Name
	}
	return fmt.Sprintf("%d:%s", q.Namespace, q.Name)
}

// LocalizedText is a locale and text pair
type LocalizedText struct {
	Locale string
	Text   string
}
