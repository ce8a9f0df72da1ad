package nodeset

// Value is the literal value of a Variable or VariableType node, as
// written in the nodeset. Data mirrors the XML value element: leaf
// elements carry Text, structured elements carry Members.
type Value struct {
	// IsArray is set for ListOf<Type> values; Data.Members are the
	// array elements.
	IsArray bool
	// Type is the value element name without any ListOf prefix
	Type string
	Data *Data
}

// Len returns the number of array elements, or 1 for a scalar
func (v *Value) Len() int {
	if v == nil || v.Data == nil {
		return 0
	}
	if v.IsArray {
		return len(v.Data.Members)
	}
	return 1
}

// Data is one element of a literal value
type Data struct {
	Name    string
	Text    string
	Members []*Data
}

// IsLeaf reports whether d carries text rather than members
func (d *Data) IsLeaf() bool { return len(d.Members) == 0 }

// Member returns the first member called name
func (d *Data) Member(name string) *Data {
	if d == nil {
		return nil
	}
	for _, m := range d.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// MemberText returns the text of member name, or "" if absent
func (d *Data) MemberText(name string) string {
	if m := d.Member(name); m != nil {
		return m.Text
	}
	return ""
}
