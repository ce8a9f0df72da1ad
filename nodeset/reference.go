package nodeset

import "github.com/andaru/uanodeset/ua"

// Reference is a directed, typed edge from the node holding it
type Reference struct {
	RefType   ua.NodeID
	Target    ua.NodeID
	IsForward bool
}

// BiDirectionalReference is a reference recorded with both ends, used
// to collect HasEncoding edges regardless of which side declared them.
type BiDirectionalReference struct {
	Source  ua.NodeID
	Target  ua.NodeID
	RefType ua.NodeID
}

// UnknownReference is a sort dependency whose target is not part of
// the nodeset.
type UnknownReference struct {
	Source  ua.NodeID
	Target  ua.NodeID
	RefType ua.NodeID
}
