package nodeset

import (
	"strings"

	"github.com/gammazero/deque"

	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
)

// SortResult is the outcome of Sort
type SortResult struct {
	// OK is false when any node was excluded
	OK bool
	// Order holds every sortable node, dependencies first
	Order []Node
	// Excluded holds the nodes on a cycle or marked invalid, and the
	// nodes depending on them
	Excluded          []Node
	UnknownReferences []UnknownReference
	Errors            []*nserr.Error
}

type color uint8

const (
	white color = iota
	gray
	black
)

type dependency struct {
	target  ua.NodeID
	refType ua.NodeID
}

type frame struct {
	node    Node
	deps    []dependency
	next    int
	failed  bool
	inCycle bool
	invalid bool
	// failed through an invalid node rather than a cycle
	malformed bool
	// the excluded dependency which failed this frame
	cause ua.NodeID
}

type sorter struct {
	ns     *Nodeset
	color  map[Node]color
	failed map[Node]bool
	// excluded through an invalid node
	malformed map[Node]bool
	unknown   map[UnknownReference]bool
	result    *SortResult
}

// dependencies returns the edges of n which must be satisfied before n
// is emitted: its type definition, then its parent.
func dependencies(n Node) []dependency {
	var deps []dependency
	if td := TypeDefinitionOf(n); td != nil {
		deps = append(deps, dependency{target: td.Target, refType: td.RefType})
	}
	if parent, refType, ok := ParentOf(n); ok {
		deps = append(deps, dependency{target: parent, refType: refType})
	}
	return deps
}

// Sort orders the graph so that every node follows its type definition
// and parent. Roots are visited in node class precedence, then in
// insertion order, so sorting a sorted Nodeset yields the same order.
// After Sort, Nodes returns each class in sorted order without the
// excluded nodes.
func (ns *Nodeset) Sort() *SortResult {
	if len(ns.pending) > 0 {
		ns.classifyPending(true)
	}
	s := &sorter{
		ns:        ns,
		color:     make(map[Node]color, len(ns.index)),
		failed:    map[Node]bool{},
		malformed: map[Node]bool{},
		unknown:   map[UnknownReference]bool{},
		result:    &SortResult{Order: make([]Node, 0, len(ns.index))},
	}
	for _, class := range ua.EmitOrder {
		for _, n := range ns.nodes[class] {
			s.visit(n)
		}
	}
	res := s.result
	res.OK = len(res.Excluded) == 0

	var sorted [ua.NodeClassCount][]Node
	for _, n := range res.Order {
		sorted[n.Class()] = append(sorted[n.Class()], n)
	}
	ns.nodes = sorted
	ns.sorted = res
	ns.log.V(1).Info("sorted", "nodes", len(res.Order), "excluded", len(res.Excluded),
		"unknownReferences", len(res.UnknownReferences))
	return res
}

// Sorted returns the result of the last Sort, or nil if the graph
// changed since.
func (ns *Nodeset) Sorted() *SortResult { return ns.sorted }

func (s *sorter) push(stack *deque.Deque[*frame], n Node) {
	s.color[n] = gray
	if n.Base().invalid {
		// already reported when the reference was added
		stack.PushBack(&frame{node: n, failed: true, invalid: true})
		return
	}
	stack.PushBack(&frame{node: n, deps: dependencies(n)})
}

func (s *sorter) visit(root Node) {
	if s.color[root] != white {
		return
	}
	var stack deque.Deque[*frame]
	s.push(&stack, root)
	for stack.Len() > 0 {
		f := stack.Back()
		if f.next < len(f.deps) {
			d := f.deps[f.next]
			f.next++
			dep, ok := s.ns.index[d.target]
			if !ok {
				s.unknownTarget(f.node, d)
				continue
			}
			switch s.color[dep] {
			case white:
				s.push(&stack, dep)
			case gray:
				s.cycle(&stack, dep)
			case black:
				if s.failed[dep] && !f.failed {
					f.failed, f.cause, f.malformed = true, dep.Base().ID, s.malformed[dep]
				}
			}
			continue
		}

		stack.PopBack()
		s.color[f.node] = black
		if !f.failed {
			s.result.Order = append(s.result.Order, f.node)
			continue
		}
		malformed := f.invalid || f.malformed
		s.failed[f.node] = true
		s.malformed[f.node] = malformed
		s.result.Excluded = append(s.result.Excluded, f.node)
		switch {
		case f.invalid, f.inCycle:
		case f.malformed:
			s.error(nserr.MalformedNode("", elementName(f.node.Class()),
				nserr.WithNodeID(f.node.Base().ID.String()),
				nserr.WithTarget(f.cause.String()),
				nserr.WithMessage("depends on excluded node")))
		default:
			s.error(nserr.CyclicDependency(f.node.Base().ID.String(),
				nserr.WithTarget(f.cause.String()),
				nserr.WithMessage("depends on unsortable node")))
		}
		if stack.Len() > 0 {
			if parent := stack.Back(); !parent.failed {
				parent.failed, parent.cause, parent.malformed = true, f.node.Base().ID, malformed
			}
		}
	}
}

// cycle fails every frame from dep to the top of the stack
func (s *sorter) cycle(stack *deque.Deque[*frame], dep Node) {
	start := stack.Len() - 1
	for start > 0 && stack.At(start).node != dep {
		start--
	}
	path := make([]string, 0, stack.Len()-start+1)
	for i := start; i < stack.Len(); i++ {
		path = append(path, stack.At(i).node.Base().ID.String())
	}
	path = append(path, dep.Base().ID.String())
	msg := "cycle " + strings.Join(path, " -> ")
	for i := start; i < stack.Len(); i++ {
		f := stack.At(i)
		next := dep
		if i+1 < stack.Len() {
			next = stack.At(i + 1).node
		}
		if !f.inCycle {
			s.error(nserr.CyclicDependency(f.node.Base().ID.String(),
				nserr.WithTarget(next.Base().ID.String()),
				nserr.WithMessage(msg)))
		}
		f.failed, f.inCycle = true, true
	}
}

func (s *sorter) unknownTarget(n Node, d dependency) {
	u := UnknownReference{Source: n.Base().ID, Target: d.target, RefType: d.refType}
	if s.unknown[u] {
		return
	}
	s.unknown[u] = true
	s.result.UnknownReferences = append(s.result.UnknownReferences, u)
	s.result.Errors = append(s.result.Errors,
		nserr.UnknownReferenceTarget(u.Source.String(), u.Target.String()))
	s.ns.log.V(1).Info("reference target outside nodeset", "node", u.Source.String(), "target", u.Target.String())
}

func (s *sorter) error(e *nserr.Error) {
	s.result.Errors = append(s.result.Errors, e)
	s.ns.log.Error(e, "cannot sort node")
}
