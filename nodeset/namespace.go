package nodeset

import "github.com/andaru/uanodeset/ua"

// NamespaceFunc asks the hosting server for the global index of a
// namespace URI. It is called once per distinct URI.
type NamespaceFunc func(uri string) uint16

// Namespace is a nodeset namespace and its global index
type Namespace struct {
	URI   string
	Index uint16
}

// NamespaceList maps nodeset-local namespace indexes to global ones.
// Entry 0 is always the standard namespace.
type NamespaceList struct {
	list  []Namespace
	byURI map[string]uint16
	fn    NamespaceFunc
}

// NewNamespaceList returns a NamespaceList resolving URIs with fn. A
// nil fn assigns global indexes sequentially from 1.
func NewNamespaceList(fn NamespaceFunc) *NamespaceList {
	if fn == nil {
		next := uint16(0)
		fn = func(string) uint16 {
			next++
			return next
		}
	}
	return &NamespaceList{
		list:  []Namespace{{URI: ua.StandardNamespace, Index: 0}},
		byURI: map[string]uint16{ua.StandardNamespace: 0},
		fn:    fn,
	}
}

// Add appends uri as the next local namespace
func (l *NamespaceList) Add(uri string) Namespace {
	idx, ok := l.byURI[uri]
	if !ok {
		idx = l.fn(uri)
		l.byURI[uri] = idx
	}
	ns := Namespace{URI: uri, Index: idx}
	l.list = append(l.list, ns)
	return ns
}

// Global returns the global index of the local namespace index local
func (l *NamespaceList) Global(local uint16) (uint16, bool) {
	if int(local) >= len(l.list) {
		return 0, false
	}
	return l.list[local].Index, true
}

// Translate returns id with its namespace index made global
func (l *NamespaceList) Translate(id ua.NodeID) (ua.NodeID, bool) {
	g, ok := l.Global(id.Namespace)
	if !ok {
		return id, false
	}
	return id.WithNamespace(g), true
}

// Len returns the number of namespaces including the standard one
func (l *NamespaceList) Len() int { return len(l.list) }

// All returns the namespaces in local index order
func (l *NamespaceList) All() []Namespace { return append([]Namespace(nil), l.list...) }
