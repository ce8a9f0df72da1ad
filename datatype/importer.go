package datatype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
)

type state uint8

const (
	unvisited state = iota
	resolving
	resolved
	failed
)

// errInProgress is returned for a type whose descriptor is being built
var errInProgress = errors.New("data type resolution in progress")

// lineage is where a type's supertype chain ends
type lineage struct {
	base  ua.NodeID
	union bool
	// inherited is set when the chain ends at a preloaded descriptor
	inherited *Descriptor
}

// Importer builds Descriptors for the DataType nodes of one or more
// nodesets. Types from earlier nodesets remain available to later ones.
type Importer struct {
	log logr.Logger

	nodes     map[ua.NodeID]*nodeset.DataTypeNode
	graph     *nodeset.Nodeset
	types     map[ua.NodeID]*Descriptor
	encodings map[ua.NodeID]*Descriptor
	states    map[ua.NodeID]state
	errs      map[ua.NodeID]error
	lineages  map[ua.NodeID]lineage
	// users maps a type to the types whose descriptors point at its own
	users map[ua.NodeID][]ua.NodeID

	order      []*Descriptor
	unresolved []*nserr.Error
}

// Option configures an Importer
type Option func(*Importer)

func WithLogger(l logr.Logger) Option { return func(im *Importer) { im.log = l } }

// WithKnownType preloads a descriptor, for types provided by a nodeset
// imported earlier or by the hosting server.
func WithKnownType(d *Descriptor) Option {
	return func(im *Importer) { im.register(d) }
}

func NewImporter(opts ...Option) *Importer {
	im := &Importer{
		log:       logr.Discard(),
		nodes:     map[ua.NodeID]*nodeset.DataTypeNode{},
		types:     map[ua.NodeID]*Descriptor{},
		encodings: map[ua.NodeID]*Descriptor{},
		states:    map[ua.NodeID]state{},
		errs:      map[ua.NodeID]error{},
		lineages:  map[ua.NodeID]lineage{},
		users:     map[ua.NodeID][]ua.NodeID{},
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *Importer) register(d *Descriptor) {
	im.types[d.ID] = d
	im.states[d.ID] = resolved
	for _, enc := range []ua.NodeID{d.BinaryEncodingID, d.XMLEncodingID, d.JSONEncodingID} {
		if !enc.IsNull() {
			im.encodings[enc] = d
		}
	}
}

// Import builds descriptors for every DataType node of ns, in the
// Nodeset's order, and returns the descriptors created. Failures are
// available from Unresolved.
func (im *Importer) Import(ns *nodeset.Nodeset) []*Descriptor {
	im.graph = ns
	defer func() { im.graph = nil }()

	var added []*nodeset.DataTypeNode
	ns.ForEachNode(ua.NodeClassDataType, func(n nodeset.Node) {
		dt := n.(*nodeset.DataTypeNode)
		if im.AddDataType(dt) {
			added = append(added, dt)
		}
	})
	im.attachEncodings(ns)

	start := len(im.order)
	for _, dt := range added {
		// failures are recorded in unresolved
		_, _ = im.Resolve(dt.ID)
	}
	out := append([]*Descriptor(nil), im.order[start:]...)
	im.log.V(1).Info("imported data types", "nodes", len(added), "descriptors", len(out))
	return out
}

// AddDataType makes n available for resolution. Built-in types and
// OptionSet are skipped, returning false.
func (im *Importer) AddDataType(n *nodeset.DataTypeNode) bool {
	if _, ok := standard(n.ID); ok {
		return false
	}
	im.nodes[n.ID] = n
	return true
}

// attachEncodings adds each has-encoding edge to the data type's
// non-hierarchical references when only the encoding object declared
// it, and records the encoding ids of the type.
func (im *Importer) attachEncodings(ns *nodeset.Nodeset) {
	for _, enc := range ns.HasEncodingRefs() {
		dt, ok := im.nodes[enc.Source]
		if !ok {
			continue
		}
		if !hasForwardRef(&dt.BaseNode, enc.RefType, enc.Target) {
			dt.NonHierarchicalRefs = append(dt.NonHierarchicalRefs,
				&nodeset.Reference{RefType: enc.RefType, Target: enc.Target, IsForward: true})
		}
	}
}

func hasForwardRef(b *nodeset.BaseNode, refType, target ua.NodeID) bool {
	for _, ref := range b.NonHierarchicalRefs {
		if ref.IsForward && ref.RefType == refType && ref.Target == target {
			return true
		}
	}
	return false
}

// setEncodings copies the encoding object ids of n onto d
func (im *Importer) setEncodings(n *nodeset.DataTypeNode, d *Descriptor) {
	if im.graph == nil {
		return
	}
	for _, ref := range n.NonHierarchicalRefs {
		if !ref.IsForward || ref.RefType != ua.HasEncoding {
			continue
		}
		obj, ok := im.graph.Node(ref.Target)
		if !ok {
			continue
		}
		switch obj.Base().BrowseName.Name {
		case ua.EncodingDefaultBinary:
			d.BinaryEncodingID = ref.Target
		case ua.EncodingDefaultXML:
			d.XMLEncodingID = ref.Target
		case ua.EncodingDefaultJSON:
			d.JSONEncodingID = ref.Target
		}
	}
}

// Lookup returns the descriptor of id if it is built in, preloaded or
// already resolved.
func (im *Importer) Lookup(id ua.NodeID) (*Descriptor, bool) {
	if d, ok := standard(id); ok {
		return d, true
	}
	if im.states[id] != resolved {
		return nil, false
	}
	d, ok := im.types[id]
	return d, ok
}

// LookupEncoding returns the descriptor of the type with the given
// encoding object id.
func (im *Importer) LookupEncoding(id ua.NodeID) (*Descriptor, bool) {
	d, ok := im.encodings[id]
	return d, ok
}

// Types returns the descriptors built so far, in resolution order
func (im *Importer) Types() []*Descriptor { return im.order }

// Unresolved returns the diagnostics of types which got no descriptor
func (im *Importer) Unresolved() []*nserr.Error { return im.unresolved }

// Resolve returns the descriptor of id, building it and the descriptors
// it depends on as needed.
func (im *Importer) Resolve(id ua.NodeID) (*Descriptor, error) {
	d, err := im.resolve(id)
	if err == errInProgress {
		return nil, im.fail(id, nserr.UnresolvedType(id.String(),
			nserr.WithMessage("type contains itself")))
	}
	return d, err
}

func (im *Importer) resolve(id ua.NodeID) (*Descriptor, error) {
	if d, ok := standard(id); ok {
		return d, nil
	}
	switch im.states[id] {
	case resolved:
		return im.types[id], nil
	case resolving:
		return im.types[id], errInProgress
	case failed:
		return nil, im.errs[id]
	}
	n, ok := im.nodes[id]
	if !ok {
		return nil, nserr.UnresolvedType(id.String(), nserr.WithMessage("unknown data type"))
	}

	im.states[id] = resolving
	d := &Descriptor{ID: id, Name: n.BrowseName.Name}
	im.types[id] = d
	if err := im.build(n, d); err != nil {
		return nil, im.fail(id, err)
	}
	if im.states[id] == failed {
		// failed through a type it captured while that type was in progress
		return nil, im.errs[id]
	}
	d.layout()
	im.setEncodings(n, d)
	im.register(d)
	im.order = append(im.order, d)
	im.log.V(1).Info("data type", "id", id.String(), "name", d.Name, "kind", d.Kind.String(),
		"size", d.size, "members", len(d.Members))
	return d, nil
}

func (im *Importer) fail(id ua.NodeID, err error) error {
	if im.states[id] == failed {
		return im.errs[id]
	}
	e, ok := nserr.As(err)
	if !ok {
		e = nserr.UnresolvedType(id.String(), nserr.WithMessage(err.Error()))
	}
	if e.NodeID != id.String() {
		// a dependency failed; report against this type
		e = nserr.UnresolvedType(id.String(), nserr.WithTarget(e.NodeID), nserr.WithMessage(e.Message))
	}
	if d, ok := im.types[id]; ok && im.states[id] == resolved {
		im.unregister(d)
	}
	im.states[id] = failed
	im.errs[id] = e
	delete(im.types, id)
	im.unresolved = append(im.unresolved, e)
	im.log.Info("unresolved data type", "severity", "warning", "id", id.String(), "reason", e.Error())

	// types holding a pointer to id's descriptor fail with it
	users := im.users[id]
	delete(im.users, id)
	for _, u := range users {
		if s := im.states[u]; s == resolved || s == resolving {
			_ = im.fail(u, nserr.UnresolvedType(u.String(), nserr.WithTarget(id.String()),
				nserr.WithMessage("depends on unresolved type")))
		}
	}
	return e
}

// use records that the descriptor of user points at the one of used
func (im *Importer) use(user, used ua.NodeID) {
	if user == used {
		return
	}
	if _, ok := standard(used); ok {
		return
	}
	im.users[used] = append(im.users[used], user)
}

// unregister withdraws a resolved descriptor
func (im *Importer) unregister(d *Descriptor) {
	for enc, ed := range im.encodings {
		if ed == d {
			delete(im.encodings, enc)
		}
	}
	for i, od := range im.order {
		if od == d {
			im.order = append(im.order[:i], im.order[i+1:]...)
			break
		}
	}
}

// supertype returns the target of n's inverse HasSubtype reference
func supertype(n *nodeset.DataTypeNode) (ua.NodeID, bool) {
	for _, ref := range n.HierarchicalRefs {
		if !ref.IsForward && ref.RefType == ua.HasSubtype {
			return ref.Target, true
		}
	}
	parent, _, ok := nodeset.ParentOf(n)
	return parent, ok
}

// lineage walks the supertype chain of id to a built-in type, OptionSet
// or preloaded descriptor. Results are memoized for every type on the
// chain.
func (im *Importer) lineage(id ua.NodeID) (lineage, error) {
	if l, ok := im.lineages[id]; ok {
		return l, nil
	}
	var chain []ua.NodeID
	seen := map[ua.NodeID]bool{}
	cur := id
	var l lineage
	for {
		n, ok := im.nodes[cur]
		if !ok {
			return l, nserr.UnresolvedType(id.String(),
				nserr.WithTarget(cur.String()), nserr.WithMessage("supertype is not a data type"))
		}
		seen[cur] = true
		chain = append(chain, cur)
		super, ok := supertype(n)
		if !ok {
			return l, nserr.UnresolvedType(id.String(), nserr.WithMessage("no supertype"))
		}
		if super == ua.UnionType {
			l.union = true
			super = ua.Structure.NodeID()
		}
		if ua.IsKnownBase(super) {
			l.base = super
			break
		}
		if memo, ok := im.lineages[super]; ok {
			l.base, l.inherited = memo.base, memo.inherited
			l.union = l.union || memo.union
			break
		}
		if _, inGraph := im.nodes[super]; !inGraph && im.states[super] == resolved {
			d := im.types[super]
			l.base, l.inherited = d.baseID(), d
			l.union = l.union || d.Kind == KindUnion
			break
		}
		if seen[super] {
			return l, nserr.CyclicDependency(id.String(),
				nserr.WithTarget(super.String()), nserr.WithMessage("data type supertype cycle"))
		}
		cur = super
	}
	for _, c := range chain {
		im.lineages[c] = l
	}
	return l, nil
}

// baseID is the built-in type a preloaded descriptor derives from
func (d *Descriptor) baseID() ua.NodeID {
	switch d.Kind {
	case KindEnum:
		return ua.Enumeration.NodeID()
	case KindBuiltin:
		return d.Builtin.NodeID()
	}
	return ua.Structure.NodeID()
}

func (im *Importer) build(n *nodeset.DataTypeNode, d *Descriptor) error {
	l, err := im.lineage(n.ID)
	if err != nil {
		return err
	}
	def := n.Definition
	if def == nil || len(def.Fields) == 0 {
		return im.inherit(n, d, l)
	}
	switch {
	case l.base == ua.Enumeration.NodeID():
		d.Kind, d.Builtin = KindEnum, ua.Int32
		d.Values = enumValues(def)
		d.size, d.align = builtins[ua.Int32].size, builtins[ua.Int32].align
		return nil
	case l.base == ua.OptionSetType:
		*d = *withIdentity(newOptionSet(d.ID, d.Name), d)
		d.Values = enumValues(def)
		return nil
	case l.base != ua.Structure.NodeID():
		// option set bits over an integer type, or named values on a
		// built-in subtype
		b, _ := ua.Builtin(l.base)
		d.Kind, d.Builtin = KindBuiltin, b
		d.Values = enumValues(def)
		d.size, d.align = builtins[b].size, builtins[b].align
		return nil
	}

	switch {
	case def.IsUnion || l.union:
		d.Kind = KindUnion
		d.Members = append(d.Members, &Member{Name: SwitchFieldName, Type: builtins[ua.UInt32]})
	case def.HasOptionalFields():
		d.Kind = KindOptionalStructure
		d.Members = append(d.Members, &Member{Name: EncodingMaskName, Type: builtins[ua.UInt32]})
	default:
		d.Kind = KindStructure
	}
	for i, f := range def.Fields {
		m, err := im.member(n, f)
		if err != nil {
			return err
		}
		if d.Kind == KindUnion {
			m.SwitchValue = uint32(i + 1)
			m.IsOptional = false
		}
		d.Members = append(d.Members, m)
	}
	return nil
}

func (im *Importer) member(n *nodeset.DataTypeNode, f *nodeset.Field) (*Member, error) {
	m := &Member{
		Name:       f.Name,
		IsArray:    f.ValueRank >= 0,
		IsOptional: f.IsOptional,
	}
	if m.IsArray {
		dims, err := ParseArrayDimensions(f.ArrayDimensions)
		if err != nil || len(dims) == 0 {
			dims = []uint32{0}
		}
		m.ArrayDimensions = dims
	}
	t, err := im.resolve(f.DataType)
	switch {
	case err == errInProgress && (m.IsArray || m.IsOptional):
		// stored behind a handle, so a recursive reference is fine
	case err == errInProgress:
		return nil, nserr.UnresolvedType(n.ID.String(), nserr.WithTarget(f.DataType.String()),
			nserr.WithMessage(fmt.Sprintf("member %q contains its own type", f.Name)))
	case err != nil:
		target := f.DataType.String()
		if f.DataType.IsNull() {
			target = ""
		}
		return nil, nserr.UnresolvedType(n.ID.String(), nserr.WithTarget(target),
			nserr.WithMessage(fmt.Sprintf("member %q: %s", f.Name, reason(err))))
	}
	im.use(n.ID, f.DataType)
	m.Type = t
	return m, nil
}

func reason(err error) string {
	if e, ok := nserr.As(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// inherit gives d the layout of its supertype, for types without
// fields of their own.
func (im *Importer) inherit(n *nodeset.DataTypeNode, d *Descriptor, l lineage) error {
	super, ok := supertype(n)
	if !ok {
		return nserr.UnresolvedType(n.ID.String(), nserr.WithMessage("no supertype"))
	}
	if super == ua.UnionType {
		d.Kind = KindUnion
		d.Members = []*Member{{Name: SwitchFieldName, Type: builtins[ua.UInt32]}}
		return nil
	}
	parent, err := im.resolve(super)
	if err == errInProgress {
		return nserr.CyclicDependency(n.ID.String(), nserr.WithTarget(super.String()),
			nserr.WithMessage("data type supertype cycle"))
	}
	if err != nil {
		return err
	}
	im.use(n.ID, super)
	switch {
	case parent == builtins[ua.Structure]:
		// abstract structure without members
		d.Kind = KindStructure
		if l.union {
			d.Kind = KindUnion
			d.Members = []*Member{{Name: SwitchFieldName, Type: builtins[ua.UInt32]}}
		}
	case parent == builtins[ua.Enumeration]:
		d.Kind, d.Builtin = KindEnum, ua.Int32
		d.size, d.align = parent.size, parent.align
	case parent.Kind == KindBuiltin || parent.Kind == KindEnum:
		d.Kind, d.Builtin, d.Values = parent.Kind, parent.Builtin, parent.Values
		d.size, d.align = parent.size, parent.align
	default:
		*d = *withIdentity(parent, d)
		d.Members = cloneMembers(parent.Members)
	}
	return nil
}

// withIdentity returns a copy of layout carrying the id and name of d
func withIdentity(layout, d *Descriptor) *Descriptor {
	c := *layout
	c.ID, c.Name = d.ID, d.Name
	c.BinaryEncodingID, c.XMLEncodingID, c.JSONEncodingID = ua.NodeID{}, ua.NodeID{}, ua.NodeID{}
	return &c
}

func cloneMembers(ms []*Member) []*Member {
	out := make([]*Member, len(ms))
	for i, m := range ms {
		c := *m
		out[i] = &c
	}
	return out
}

func enumValues(def *nodeset.Definition) []EnumValue {
	vals := make([]EnumValue, 0, len(def.Fields))
	for i, f := range def.Fields {
		v := int64(i)
		if f.HasValue {
			v = f.Value
		}
		vals = append(vals, EnumValue{Name: f.Name, Value: v})
	}
	return vals
}

// ParseArrayDimensions parses a comma or semicolon separated list of
// dimension lengths. An empty string has no dimensions.
func ParseArrayDimensions(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	dims := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid array dimensions %q", s)
		}
		dims = append(dims, uint32(v))
	}
	return dims, nil
}
