package nodeset

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/andaru/uanodeset/arena"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/xmlutil"
)

// defaultDataType is the DataType of variables which do not name one
var defaultDataType = ua.NewNumericNodeID(0, uint32(ua.BaseDataType))

// Nodeset is the node graph of a single import
type Nodeset struct {
	log        logr.Logger
	chunkSize  int
	arena      *arena.Arena
	classifier ReferenceClassifier
	namespaces *NamespaceList

	aliases map[string]string
	nodes   [ua.NodeClassCount][]Node
	index   map[ua.NodeID]Node

	hasEncoding []BiDirectionalReference
	// nodes holding unclassified references
	pending []Node

	diagnostics []*nserr.Error
	sorted      *SortResult
}

// Option configures a Nodeset
type Option func(*Nodeset)

// WithLogger sets the Nodeset's logger. By default the Nodeset logs
// nothing.
func WithLogger(l logr.Logger) Option { return func(ns *Nodeset) { ns.log = l } }

// WithClassifier sets the reference classifier. The default is a
// StandardClassifier.
func WithClassifier(c ReferenceClassifier) Option {
	return func(ns *Nodeset) { ns.classifier = c }
}

// WithNamespaceFunc sets the function resolving namespace URIs to
// global namespace indexes.
func WithNamespaceFunc(fn NamespaceFunc) Option {
	return func(ns *Nodeset) { ns.namespaces = NewNamespaceList(fn) }
}

// WithArena sets the chunk size of the Nodeset's string arena
func WithArena(chunkSize int) Option { return func(ns *Nodeset) { ns.chunkSize = chunkSize } }

// New returns an empty Nodeset
func New(opts ...Option) *Nodeset {
	ns := &Nodeset{
		log:     logr.Discard(),
		aliases: map[string]string{},
		index:   map[ua.NodeID]Node{},
	}
	for _, opt := range opts {
		opt(ns)
	}
	if ns.classifier == nil {
		ns.classifier = NewStandardClassifier()
	}
	if ns.namespaces == nil {
		ns.namespaces = NewNamespaceList(nil)
	}
	ns.arena = arena.New(ns.chunkSize)
	return ns
}

func (ns *Nodeset) str(s string) string { return ns.arena.Intern(s) }

// report logs and records a diagnostic, returning it as an error
func (ns *Nodeset) report(e *nserr.Error) error {
	ns.diagnostics = append(ns.diagnostics, e)
	if e.Severity == nserr.SeverityWarning {
		ns.log.Info(e.Error(), "severity", "warning", "kind", e.Kind.String())
	} else {
		ns.log.Error(e, "nodeset diagnostic", "kind", e.Kind.String())
	}
	return e
}

// Diagnostics returns the diagnostics recorded while the Nodeset was
// populated.
func (ns *Nodeset) Diagnostics() []*nserr.Error { return ns.diagnostics }

// Namespaces returns the namespace table
func (ns *Nodeset) Namespaces() *NamespaceList { return ns.namespaces }

// NewNamespace adds the next nodeset-local namespace
func (ns *Nodeset) NewNamespace(uri string) Namespace {
	n := ns.namespaces.Add(ns.str(strings.TrimSpace(uri)))
	ns.log.V(1).Info("namespace", "uri", n.URI, "local", ns.namespaces.Len()-1, "global", n.Index)
	return n
}

// NewAlias defines alias as a name for the node id text id
func (ns *Nodeset) NewAlias(alias, id string) error {
	alias, id = strings.TrimSpace(alias), strings.TrimSpace(id)
	if alias == "" {
		return ns.report(nserr.MalformedNode("Alias", "Alias", nserr.WithMessage("empty alias name")))
	}
	if prev, ok := ns.aliases[alias]; ok && prev != id {
		ns.log.V(1).Info("alias redefined", "alias", alias, "was", prev, "now", id)
	}
	ns.aliases[ns.str(alias)] = ns.str(id)
	return nil
}

// Alias returns the node id text an alias stands for
func (ns *Nodeset) Alias(alias string) (string, bool) {
	v, ok := ns.aliases[alias]
	return v, ok
}

// resolveID parses s, which may be an alias, to a NodeID with a global
// namespace index.
func (ns *Nodeset) resolveID(s, attribute, element string) (ua.NodeID, *nserr.Error) {
	s = strings.TrimSpace(s)
	if v, ok := ns.aliases[s]; ok {
		s = v
	}
	id, err := ua.ParseNodeID(s)
	if err != nil {
		return id, nserr.UnresolvedAlias(s,
			nserr.WithElement(element),
			nserr.WithMessage(attribute+": "+err.Error()))
	}
	gid, ok := ns.namespaces.Translate(id)
	if !ok {
		return id, nserr.MalformedNode(attribute, element,
			nserr.WithMessage(fmt.Sprintf("namespace index %d not declared", id.Namespace)))
	}
	if gid.Type == ua.IDTypeString {
		gid.StringID = ns.str(gid.StringID)
	}
	return gid, nil
}

func (ns *Nodeset) qualifiedName(s string) ua.QualifiedName {
	q := ua.ParseQualifiedName(strings.TrimSpace(s))
	if g, ok := ns.namespaces.Global(q.Namespace); ok {
		q.Namespace = g
	}
	q.Name = ns.str(q.Name)
	return q
}

func elementName(class ua.NodeClass) string { return "UA" + class.String() }

// NewNode creates a node of class from its element attributes and adds
// it to the graph. A node whose NodeId is already present is rejected.
func (ns *Nodeset) NewNode(class ua.NodeClass, attrs xmlutil.Attrs) (Node, error) {
	element := elementName(class)
	n := newNodeOfClass(class)
	if n == nil {
		return nil, ns.report(nserr.MalformedNode("", element, nserr.WithMessage("unknown node class")))
	}
	idText, ok := attrs.Get("NodeId")
	if !ok || strings.TrimSpace(idText) == "" {
		return nil, ns.report(nserr.MalformedNode("NodeId", element, nserr.WithMessage("required attribute missing")))
	}
	id, e := ns.resolveID(idText, "NodeId", element)
	if e != nil {
		return nil, ns.report(e)
	}
	browse, ok := attrs.Get("BrowseName")
	if !ok {
		return nil, ns.report(nserr.MalformedNode("BrowseName", element,
			nserr.WithNodeID(id.String()), nserr.WithMessage("required attribute missing")))
	}
	if _, dup := ns.index[id]; dup {
		return nil, ns.report(nserr.MalformedNode("NodeId", element,
			nserr.WithNodeID(id.String()), nserr.WithMessage("duplicate node id")))
	}

	b := n.Base()
	b.ID = id
	b.BrowseName = ns.qualifiedName(browse)
	b.SymbolicName = ns.str(attrs.Value("SymbolicName", ""))
	b.WriteMask = uint32(attrs.Int("WriteMask", 33, 0))

	if err := ns.setClassAttributes(n, attrs, element); err != nil {
		return nil, err
	}

	ns.index[id] = n
	ns.nodes[class] = append(ns.nodes[class], n)
	ns.sorted = nil
	ns.log.V(1).Info("node", "class", class.String(), "id", id.String(), "browseName", b.BrowseName.String())
	return n, nil
}

func (ns *Nodeset) optionalID(attrs xmlutil.Attrs, name, element string, id ua.NodeID) (ua.NodeID, error) {
	s, ok := attrs.Get(name)
	if !ok || strings.TrimSpace(s) == "" {
		return ua.NodeID{}, nil
	}
	v, e := ns.resolveID(s, name, element)
	if e != nil {
		e.NodeID = id.String()
		return ua.NodeID{}, ns.report(e)
	}
	return v, nil
}

func (ns *Nodeset) setClassAttributes(n Node, attrs xmlutil.Attrs, element string) error {
	id := n.Base().ID
	var err error
	dataType := func() ua.NodeID {
		var dt ua.NodeID
		if dt, err = ns.optionalID(attrs, "DataType", element, id); err == nil && dt.IsNull() {
			dt = defaultDataType
		}
		return dt
	}
	switch v := n.(type) {
	case *ObjectNode:
		v.ParentNodeID, err = ns.optionalID(attrs, "ParentNodeId", element, id)
		v.EventNotifier = uint8(attrs.Int("EventNotifier", 16, 0))
	case *VariableNode:
		if v.ParentNodeID, err = ns.optionalID(attrs, "ParentNodeId", element, id); err != nil {
			return err
		}
		v.DataType = dataType()
		v.ValueRank = int32(attrs.Int("ValueRank", 32, -1))
		v.ArrayDimensions = ns.str(strings.TrimSpace(attrs.Value("ArrayDimensions", "")))
		v.AccessLevel = uint8(attrs.Int("AccessLevel", 16, 1))
		v.UserAccessLevel = uint8(attrs.Int("UserAccessLevel", 16, 1))
		v.Historizing = attrs.Bool("Historizing", false)
	case *MethodNode:
		v.Executable = attrs.Bool("Executable", true)
		v.UserExecutable = attrs.Bool("UserExecutable", true)
		v.MethodDeclarationID, err = ns.optionalID(attrs, "MethodDeclarationId", element, id)
	case *ObjectTypeNode:
		v.IsAbstract = attrs.Bool("IsAbstract", false)
	case *VariableTypeNode:
		v.DataType = dataType()
		v.ValueRank = int32(attrs.Int("ValueRank", 32, -1))
		v.ArrayDimensions = ns.str(strings.TrimSpace(attrs.Value("ArrayDimensions", "")))
		v.IsAbstract = attrs.Bool("IsAbstract", false)
	case *ReferenceTypeNode:
		v.IsAbstract = attrs.Bool("IsAbstract", false)
		v.Symmetric = attrs.Bool("Symmetric", false)
	case *DataTypeNode:
		v.IsAbstract = attrs.Bool("IsAbstract", false)
	case *ViewNode:
		v.ContainsNoLoops = attrs.Bool("ContainsNoLoops", false)
		v.EventNotifier = uint8(attrs.Int("EventNotifier", 16, 0))
	}
	return err
}

// NewReference adds a reference from n to the node id text target. The
// reference is classified immediately if the classifier knows its type,
// otherwise it is parked until FinishNode or Sort.
// A reference which cannot be resolved marks n invalid: Sort excludes it
// and every node depending on it.
func (ns *Nodeset) NewReference(n Node, attrs xmlutil.Attrs, target string) (*Reference, error) {
	b := n.Base()
	typ, ok := attrs.Get("ReferenceType")
	if !ok || strings.TrimSpace(typ) == "" {
		b.invalid = true
		return nil, ns.report(nserr.MalformedNode("ReferenceType", "Reference",
			nserr.WithNodeID(b.ID.String()), nserr.WithMessage("required attribute missing")))
	}
	refType, e := ns.resolveID(typ, "ReferenceType", "Reference")
	if e != nil {
		b.invalid = true
		e.NodeID = b.ID.String()
		return nil, ns.report(e)
	}
	to, e := ns.resolveID(target, "Reference", "Reference")
	if e != nil {
		b.invalid = true
		e.NodeID = b.ID.String()
		return nil, ns.report(e)
	}
	ref := &Reference{RefType: refType, Target: to, IsForward: attrs.Bool("IsForward", true)}

	if refType == ua.HasEncoding {
		enc := BiDirectionalReference{Source: b.ID, Target: to, RefType: refType}
		if !ref.IsForward {
			enc.Source, enc.Target = to, b.ID
		}
		ns.hasEncoding = append(ns.hasEncoding, enc)
	}

	if !ns.place(n, ref) {
		if len(b.pending) == 0 {
			ns.pending = append(ns.pending, n)
		}
		b.pending = append(b.pending, ref)
	}
	return ref, nil
}

// place files ref in n's reference lists, returning false when the
// classifier cannot classify it yet.
func (ns *Nodeset) place(n Node, ref *Reference) bool {
	b := n.Base()
	switch {
	case ns.classifier.IsHasTypeDefinition(ref):
		if ref.IsForward {
			switch v := n.(type) {
			case *ObjectNode:
				if v.TypeDefinition == nil {
					v.TypeDefinition = ref
					return true
				}
			case *VariableNode:
				if v.TypeDefinition == nil {
					v.TypeDefinition = ref
					return true
				}
			}
		}
		b.NonHierarchicalRefs = append(b.NonHierarchicalRefs, ref)
	case ns.classifier.IsHierarchical(ref):
		b.HierarchicalRefs = append(b.HierarchicalRefs, ref)
	case ns.classifier.IsNonHierarchical(ref):
		b.NonHierarchicalRefs = append(b.NonHierarchicalRefs, ref)
	default:
		return false
	}
	return true
}

// classifyPending retries the parked references. When final is set,
// references which still cannot be classified are filed as
// non-hierarchical.
func (ns *Nodeset) classifyPending(final bool) {
	remaining := ns.pending[:0]
	for _, n := range ns.pending {
		b := n.Base()
		left := b.pending[:0]
		for _, ref := range b.pending {
			if ns.place(n, ref) {
				continue
			}
			if final {
				ns.log.Info("unclassified reference type, treating as non-hierarchical",
					"severity", "warning", "node", b.ID.String(), "referenceType", ref.RefType.String())
				b.NonHierarchicalRefs = append(b.NonHierarchicalRefs, ref)
				continue
			}
			left = append(left, ref)
		}
		b.pending = left
		if len(left) > 0 {
			remaining = append(remaining, n)
		}
	}
	ns.pending = remaining
}

// FinishNode marks the end of n's element. Finishing a ReferenceType
// node registers it with the classifier and retries parked references.
func (ns *Nodeset) FinishNode(n Node) {
	rt, ok := n.(*ReferenceTypeNode)
	if !ok {
		return
	}
	ns.classifier.RegisterReferenceType(rt)
	if len(ns.pending) > 0 {
		ns.classifyPending(false)
	}
}

func (ns *Nodeset) localizedText(locale, text string) ua.LocalizedText {
	return ua.LocalizedText{Locale: ns.str(strings.TrimSpace(locale)), Text: ns.str(text)}
}

// SetDisplayName sets the DisplayName attribute of n
func (ns *Nodeset) SetDisplayName(n Node, locale, text string) {
	n.Base().DisplayName = ns.localizedText(locale, text)
}

// SetDescription sets the Description attribute of n
func (ns *Nodeset) SetDescription(n Node, locale, text string) {
	n.Base().Description = ns.localizedText(locale, text)
}

// SetInverseName sets the inverse name of a ReferenceType node; it is
// ignored for other classes.
func (ns *Nodeset) SetInverseName(n Node, locale, text string) {
	if rt, ok := n.(*ReferenceTypeNode); ok {
		rt.InverseName = ns.localizedText(locale, text)
	}
}

// SetExtension stores the raw content of the node's Extensions element
func (ns *Nodeset) SetExtension(n Node, xml string) {
	n.Base().Extension = ns.str(xml)
}

// SetValue sets the literal value of a Variable or VariableType node
func (ns *Nodeset) SetValue(n Node, v *Value) error {
	if v != nil {
		v.Type = ns.str(v.Type)
		ns.internData(v.Data)
	}
	switch t := n.(type) {
	case *VariableNode:
		t.Value = v
	case *VariableTypeNode:
		t.Value = v
	default:
		return ns.report(nserr.MalformedNode("", "Value",
			nserr.WithNodeID(n.Base().ID.String()),
			nserr.WithMessage(n.Class().String()+" nodes carry no value")))
	}
	return nil
}

func (ns *Nodeset) internData(d *Data) {
	if d == nil {
		return
	}
	d.Name = ns.str(d.Name)
	d.Text = ns.str(d.Text)
	for _, m := range d.Members {
		ns.internData(m)
	}
}

// AddDataTypeDefinition starts the Definition of a DataType node
func (ns *Nodeset) AddDataTypeDefinition(n Node, attrs xmlutil.Attrs) (*Definition, error) {
	dt, ok := n.(*DataTypeNode)
	if !ok {
		return nil, ns.report(nserr.MalformedNode("", "Definition",
			nserr.WithNodeID(n.Base().ID.String()),
			nserr.WithMessage(n.Class().String()+" nodes carry no definition")))
	}
	def := &Definition{
		Name:        ns.str(attrs.Value("Name", "")),
		IsUnion:     attrs.Bool("IsUnion", false),
		IsOptionSet: attrs.Bool("IsOptionSet", false),
	}
	var err error
	def.BaseType, err = ns.optionalID(attrs, "BaseType", "Definition", dt.ID)
	dt.Definition = def
	return def, err
}

// AddDataTypeField appends a field to the Definition of a DataType
// node. A field whose DataType does not resolve is still added, with a
// null DataType, so that the type is later reported as unresolved.
func (ns *Nodeset) AddDataTypeField(n Node, attrs xmlutil.Attrs) (*Field, error) {
	dt, ok := n.(*DataTypeNode)
	if !ok || dt.Definition == nil {
		return nil, ns.report(nserr.MalformedNode("", "Field",
			nserr.WithNodeID(n.Base().ID.String()), nserr.WithMessage("field outside a definition")))
	}
	def := dt.Definition
	f := &Field{
		Name:            ns.str(attrs.Value("Name", "")),
		DataType:        defaultDataType,
		ValueRank:       int32(attrs.Int("ValueRank", 32, -1)),
		ArrayDimensions: ns.str(strings.TrimSpace(attrs.Value("ArrayDimensions", ""))),
		IsOptional:      attrs.Bool("IsOptional", false),
		SwitchValue:     uint32(len(def.Fields) + 1),
	}
	if v, ok := attrs.Get("Value"); ok {
		f.Value = attrs.Int("Value", 64, 0)
		f.HasValue = strings.TrimSpace(v) != ""
	}
	var err error
	if s, ok := attrs.Get("DataType"); ok {
		id, e := ns.resolveID(s, "DataType", "Field")
		if e != nil {
			e.NodeID = dt.ID.String()
			err = ns.report(e)
			id = ua.NodeID{}
		}
		f.DataType = id
	}
	def.Fields = append(def.Fields, f)
	return f, err
}

// Node returns the node with the given global id
func (ns *Nodeset) Node(id ua.NodeID) (Node, bool) {
	n, ok := ns.index[id]
	return n, ok
}

// Nodes returns the nodes of class, sorted once Sort has run
func (ns *Nodeset) Nodes(class ua.NodeClass) []Node { return ns.nodes[class] }

// ForEachNode calls fn for each node of class, returning the count
func (ns *Nodeset) ForEachNode(class ua.NodeClass, fn func(Node)) int {
	for _, n := range ns.nodes[class] {
		fn(n)
	}
	return len(ns.nodes[class])
}

// Len returns the number of nodes in the graph
func (ns *Nodeset) Len() int { return len(ns.index) }

// HasEncodingRefs returns the HasEncoding references seen, oriented
// from data type to encoding object.
func (ns *Nodeset) HasEncodingRefs() []BiDirectionalReference { return ns.hasEncoding }

// Arena returns the string arena backing the Nodeset
func (ns *Nodeset) Arena() *arena.Arena { return ns.arena }

// Release frees the Nodeset's storage. The Nodeset and the nodes it
// returned must not be used afterwards.
func (ns *Nodeset) Release() {
	ns.arena.Release()
	for i := range ns.nodes {
		ns.nodes[i] = nil
	}
	ns.index = nil
	ns.aliases = nil
	ns.pending = nil
	ns.hasEncoding = nil
	ns.sorted = nil
}
