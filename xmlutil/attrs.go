package xmlutil

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
)

// Attr is a single attribute name and value
type Attr struct {
	Name  string
	Value string
}

// Attrs is an ordered sequence of element attributes, in document order
type Attrs []Attr

// NewAttrs returns Attrs from alternating name, value arguments. A
// trailing name without a value is dropped.
func NewAttrs(pairs ...string) Attrs {
	a := make(Attrs, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		a = append(a, Attr{Name: pairs[i], Value: pairs[i+1]})
	}
	return a
}

// FromXML returns the passed XML attributes as Attrs, keyed by local
// name. Namespace declarations (xmlns and xmlns:<prefix>) are skipped.
func FromXML(attrs ...xml.Attr) Attrs {
	a := make(Attrs, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			continue
		}
		a = append(a, Attr{Name: attr.Name.Local, Value: attr.Value})
	}
	return a
}

// Get returns the value of the first attribute called name
func (a Attrs) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Value returns the value of name, or def if name is absent
func (a Attrs) Value(name, def string) string {
	if v, ok := a.Get(name); ok {
		return v
	}
	return def
}

// Bool returns the boolean value of name, or def if name is absent or
// not a boolean.
func (a Attrs) Bool(name string, def bool) bool {
	if v, ok := a.Get(name); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Int returns the integer value of name, or def if name is absent or
// not an integer of the given bit size.
func (a Attrs) Int(name string, bitSize int, def int64) int64 {
	if v, ok := a.Get(name); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, bitSize); err == nil {
			return i
		}
	}
	return def
}

// Names returns the attribute names sorted lexically
func (a Attrs) Names() (names []string) {
	for _, attr := range a {
		names = append(names, attr.Name)
	}
	if len(names) > 0 {
		sort.Strings(names)
	}
	return names
}
