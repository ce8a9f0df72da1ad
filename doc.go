/*
Package uanodeset imports OPC UA nodeset XML documents into an address
space.

The import runs in stages, each in its own package:

  - parser reads a document into a nodeset.Nodeset, resolving aliases
    and translating namespace indexes as it goes.
  - nodeset holds the node graph, classifies references and sorts the
    graph so that every node follows its type definition and parent.
  - datatype builds a native memory layout for each DataType.
  - value encodes the XML values of variables in those layouts.
  - loader drives the stages and hands nodes to a Backend in dependency
    order; memory is a Backend holding the address space in maps.

Problems with individual nodes never abort an import. They are reported
as nserr diagnostics and the node, and whatever depends on it, is left
out.
*/
package uanodeset
