package datatype

import (
	"strconv"
	"strings"

	"github.com/andaru/uanodeset/ua"
)

// Kind is the shape of a Descriptor
type Kind uint8

const (
	// KindBuiltin is a built-in type, or a custom subtype using a
	// built-in layout.
	KindBuiltin Kind = iota
	// KindEnum is an enumeration, laid out as Int32
	KindEnum
	KindStructure
	// KindOptionalStructure is a structure with optional members,
	// preceded by an implicit UInt32 EncodingMask member.
	KindOptionalStructure
	// KindUnion is a union, preceded by an implicit UInt32 SwitchField
	// member. All arms share storage.
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindEnum:
		return "enum"
	case KindStructure:
		return "structure"
	case KindOptionalStructure:
		return "optional-structure"
	case KindUnion:
		return "union"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Implicit member names
const (
	SwitchFieldName  = "SwitchField"
	EncodingMaskName = "EncodingMask"
)

// Descriptor is the native memory layout of a data type
type Descriptor struct {
	ID   ua.NodeID
	Name string
	Kind Kind
	// Builtin is the built-in type whose layout a KindBuiltin or KindEnum
	// descriptor uses.
	Builtin ua.BuiltinID
	Members []*Member
	// Values are the named values of an enumeration or option set
	Values []EnumValue

	BinaryEncodingID ua.NodeID
	XMLEncodingID    ua.NodeID
	JSONEncodingID   ua.NodeID

	size  int
	align int
}

// EnumValue is a named enumeration value or option set bit
type EnumValue struct {
	Name  string
	Value int64
}

// Member is a member of a structure or union
type Member struct {
	Name string
	Type *Descriptor
	// IsArray members hold a length and a heap handle
	IsArray         bool
	ArrayDimensions []uint32
	// IsOptional members hold a heap handle, 0 when absent
	IsOptional bool
	// SwitchValue selects this arm of a union, starting at 1
	SwitchValue uint32
	Offset      int
}

// Size returns the native size of d in bytes
func (d *Descriptor) Size() int { return d.size }

// Align returns the native alignment of d in bytes
func (d *Descriptor) Align() int { return d.align }

// IsStructured reports whether d has members
func (d *Descriptor) IsStructured() bool {
	return d.Kind == KindStructure || d.Kind == KindOptionalStructure || d.Kind == KindUnion
}

// Member returns the member called name
func (d *Descriptor) Member(name string) (*Member, bool) {
	for _, m := range d.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Arm returns the union arm selected by switchValue
func (d *Descriptor) Arm(switchValue uint32) (*Member, bool) {
	if d.Kind != KindUnion || switchValue == 0 {
		return nil, false
	}
	for _, m := range d.Members[1:] {
		if m.SwitchValue == switchValue {
			return m, true
		}
	}
	return nil, false
}

// EnumValue returns the value of the enumeration name. Names in the
// Name_Value form are accepted.
func (d *Descriptor) EnumValue(name string) (int64, bool) {
	for _, v := range d.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	if pos := strings.LastIndexByte(name, '_'); pos != -1 {
		if v, err := strconv.ParseInt(name[pos+1:], 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// Size returns the storage used by m inside its parent
func (m *Member) Size() int {
	switch {
	case m.IsArray:
		return arraySize
	case m.IsOptional:
		return handleSize
	}
	return m.Type.Size()
}

// Align returns the alignment of m inside its parent
func (m *Member) Align() int {
	if m.IsArray || m.IsOptional {
		return handleSize
	}
	return m.Type.Align()
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// layout assigns member offsets and computes d's size and alignment.
// Enumerations and built-in layouts are left as they are.
func (d *Descriptor) layout() {
	if !d.IsStructured() {
		return
	}
	d.align = 1
	if d.Kind == KindUnion {
		d.layoutUnion()
		return
	}
	off := 0
	for _, m := range d.Members {
		a := m.Align()
		off = alignUp(off, a)
		m.Offset = off
		off += m.Size()
		if a > d.align {
			d.align = a
		}
	}
	d.size = alignUp(off, d.align)
}

// layoutUnion places the discriminant at offset 0 and every arm at the
// first offset after it aligned for the most aligned arm.
func (d *Descriptor) layoutUnion() {
	sw := d.Members[0]
	sw.Offset = 0
	armAlign, armSize := 1, 0
	for _, m := range d.Members[1:] {
		if a := m.Align(); a > armAlign {
			armAlign = a
		}
		if s := m.Size(); s > armSize {
			armSize = s
		}
	}
	off := alignUp(sw.Size(), armAlign)
	for _, m := range d.Members[1:] {
		m.Offset = off
	}
	d.align = sw.Align()
	if armAlign > d.align {
		d.align = armAlign
	}
	d.size = alignUp(off+armSize, d.align)
}
