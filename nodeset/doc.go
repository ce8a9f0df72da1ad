/*
Package nodeset holds the in-memory graph of one OPC UA nodeset import.

A Nodeset is populated incrementally by a front end (see the parser
package) which pushes namespaces, aliases, nodes and references in
document order. Every text attribute handed to the Nodeset is copied
into an arena owned by the Nodeset, so the front end may reuse its
buffers as soon as each call returns.

# Nodes

Nodes are a closed set of variants, one per node class: ObjectNode,
VariableNode, MethodNode, ObjectTypeNode, VariableTypeNode,
ReferenceTypeNode, DataTypeNode and ViewNode. All of them embed
BaseNode and satisfy the Node interface; code needing class specific
fields uses a type switch over the variants.

# References

References are classified as they arrive by the ReferenceClassifier
supplied with WithClassifier. The graph itself has no knowledge of
which reference types are hierarchical, because a nodeset may define
new hierarchical reference types itself. References whose type the
classifier does not know yet are parked and re-classified each time a
ReferenceType node is finished, and a final time when the Nodeset is
sorted.

# Sorting

Sort orders the nodes so that each node's type definition and parent
are emitted before the node. Nodes which cannot be ordered because of a
cycle are excluded along with everything depending on them; edges to
nodes outside the graph are reported but do not block the sort.
*/
package nodeset
