package nodeset

import "github.com/andaru/uanodeset/ua"

// ReferenceClassifier decides which references are hierarchical. It is
// owned by the hosting server, which knows the reference types already
// present in its address space.
type ReferenceClassifier interface {
	IsHierarchical(ref *Reference) bool
	IsNonHierarchical(ref *Reference) bool
	IsHasTypeDefinition(ref *Reference) bool
	// RegisterReferenceType is called when a ReferenceType node of the
	// nodeset is complete, so that references of that type can be
	// classified.
	RegisterReferenceType(n *ReferenceTypeNode)
}

// StandardClassifier knows the namespace zero reference types and
// learns subtypes of them from ReferenceType nodes.
type StandardClassifier struct {
	hierarchical    map[ua.NodeID]bool
	nonHierarchical map[ua.NodeID]bool
}

var _ ReferenceClassifier = (*StandardClassifier)(nil)

var (
	standardHierarchical = []ua.NodeID{
		ua.HierarchicalReferences,
		ua.HasChild,
		ua.Organizes,
		ua.HasEventSource,
		ua.Aggregates,
		ua.HasSubtype,
		ua.HasProperty,
		ua.HasComponent,
		ua.HasNotifier,
		ua.HasOrderedComponent,
	}
	standardNonHierarchical = []ua.NodeID{
		ua.NonHierarchicalReferences,
		ua.HasModellingRule,
		ua.HasEncoding,
		ua.HasDescription,
		ua.GeneratesEvent,
		ua.AlwaysGeneratesEvent,
		ua.FromState,
		ua.ToState,
		ua.HasCause,
		ua.HasEffect,
		ua.HasTrueSubState,
		ua.HasFalseSubState,
		ua.HasCondition,
	}
)

// NewStandardClassifier returns a classifier knowing the namespace zero
// reference types.
func NewStandardClassifier() *StandardClassifier {
	c := &StandardClassifier{
		hierarchical:    map[ua.NodeID]bool{},
		nonHierarchical: map[ua.NodeID]bool{},
	}
	for _, id := range standardHierarchical {
		c.hierarchical[id] = true
	}
	for _, id := range standardNonHierarchical {
		c.nonHierarchical[id] = true
	}
	return c
}

func (c *StandardClassifier) IsHierarchical(ref *Reference) bool {
	return c.hierarchical[ref.RefType]
}

func (c *StandardClassifier) IsNonHierarchical(ref *Reference) bool {
	return c.nonHierarchical[ref.RefType]
}

func (c *StandardClassifier) IsHasTypeDefinition(ref *Reference) bool {
	return ref.RefType == ua.HasTypeDefinition
}

// RegisterReferenceType classifies n like its supertype. A supertype
// which is still unknown leaves n unclassified.
func (c *StandardClassifier) RegisterReferenceType(n *ReferenceTypeNode) {
	super, ok := supertypeOf(&n.BaseNode)
	if !ok {
		return
	}
	switch {
	case c.hierarchical[super]:
		c.hierarchical[n.ID] = true
	case c.nonHierarchical[super]:
		c.nonHierarchical[n.ID] = true
	}
}

// supertypeOf returns the target of the first inverse HasSubtype
// reference of b, classified or not.
func supertypeOf(b *BaseNode) (ua.NodeID, bool) {
	for _, refs := range [][]*Reference{b.HierarchicalRefs, b.NonHierarchicalRefs, b.pending} {
		for _, ref := range refs {
			if !ref.IsForward && ref.RefType == ua.HasSubtype {
				return ref.Target, true
			}
		}
	}
	return ua.NodeID{}, false
}
