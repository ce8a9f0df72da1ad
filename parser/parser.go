// Package parser reads OPC UA nodeset XML documents into a Nodeset.
//
// The document is parsed with xmlquery and walked in document order:
// namespace URIs and aliases first, then each UA* node element with its
// display name, description, references, definition, value and
// extensions. Node-local problems are recorded as diagnostics on the
// Nodeset and the node is skipped; only a document that cannot be read
// at all fails the parse.
package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/xmlutil"
)

var (
	xpNodeSet      = xpath.MustCompile(`/*[local-name()='UANodeSet']`)
	xpNamespaceURI = xpath.MustCompile(`/*[local-name()='UANodeSet']/*[local-name()='NamespaceUris']/*[local-name()='Uri']`)
	xpAlias        = xpath.MustCompile(`/*[local-name()='UANodeSet']/*[local-name()='Aliases']/*[local-name()='Alias']`)
)

type parser struct {
	log logr.Logger
	ns  *nodeset.Nodeset
	// nodes added and node elements skipped
	added, skipped int
}

// Option configures Parse
type Option func(*parser)

func WithLogger(l logr.Logger) Option { return func(p *parser) { p.log = l } }

// Parse reads the nodeset document from r into ns
func Parse(r io.Reader, ns *nodeset.Nodeset, opts ...Option) error {
	p := &parser{log: logr.Discard(), ns: ns}
	for _, opt := range opts {
		opt(p)
	}
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return errors.Wrap(err, "nodeset document")
	}
	root := xmlquery.QuerySelector(doc, xpNodeSet)
	if root == nil {
		return errors.New("missing <UANodeSet> element")
	}

	for _, uri := range xmlquery.QuerySelectorAll(doc, xpNamespaceURI) {
		if x := strings.TrimSpace(uri.InnerText()); x != "" {
			ns.NewNamespace(x)
		}
	}
	for _, alias := range xmlquery.QuerySelectorAll(doc, xpAlias) {
		// failures are recorded on the nodeset
		_ = ns.NewAlias(alias.SelectAttr("Alias"), alias.InnerText())
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if class, ok := ua.NodeClassByElement(child.Data); ok {
			p.node(class, child)
		}
	}
	p.log.V(1).Info("parsed nodeset", "nodes", p.added, "skipped", p.skipped,
		"namespaces", ns.Namespaces().Len(), "diagnostics", len(ns.Diagnostics()))
	return nil
}

// ParseBytes reads a nodeset document held in memory
func ParseBytes(b []byte, ns *nodeset.Nodeset, opts ...Option) error {
	return Parse(bytes.NewReader(b), ns, opts...)
}

func attrs(n *xmlquery.Node) xmlutil.Attrs {
	xa := make([]xml.Attr, 0, len(n.Attr))
	for _, a := range n.Attr {
		xa = append(xa, xml.Attr{Name: a.Name, Value: a.Value})
	}
	return xmlutil.FromXML(xa...)
}

func elements(n *xmlquery.Node, fn func(*xmlquery.Node)) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			fn(child)
		}
	}
}

func (p *parser) node(class ua.NodeClass, el *xmlquery.Node) {
	n, err := p.ns.NewNode(class, attrs(el))
	if err != nil {
		p.skipped++
		return
	}
	p.added++
	elements(el, func(child *xmlquery.Node) {
		switch child.Data {
		case "DisplayName":
			p.ns.SetDisplayName(n, child.SelectAttr("Locale"), child.InnerText())
		case "Description":
			p.ns.SetDescription(n, child.SelectAttr("Locale"), child.InnerText())
		case "InverseName":
			p.ns.SetInverseName(n, child.SelectAttr("Locale"), child.InnerText())
		case "References":
			elements(child, func(ref *xmlquery.Node) {
				if ref.Data == "Reference" {
					_, _ = p.ns.NewReference(n, attrs(ref), ref.InnerText())
				}
			})
		case "Definition":
			p.definition(n, child)
		case "Value":
			if v := value(child); v != nil {
				_ = p.ns.SetValue(n, v)
			}
		case "Extensions":
			p.ns.SetExtension(n, innerXML(child))
		}
	})
	p.ns.FinishNode(n)
}

func (p *parser) definition(n nodeset.Node, el *xmlquery.Node) {
	if _, err := p.ns.AddDataTypeDefinition(n, attrs(el)); err != nil && n.Class() != ua.NodeClassDataType {
		return
	}
	elements(el, func(field *xmlquery.Node) {
		if field.Data == "Field" {
			_, _ = p.ns.AddDataTypeField(n, attrs(field))
		}
	})
}

// value converts a <Value> element to a value tree
func value(el *xmlquery.Node) *nodeset.Value {
	var first *xmlquery.Node
	elements(el, func(child *xmlquery.Node) {
		if first == nil {
			first = child
		}
	})
	if first == nil {
		return nil
	}
	v := &nodeset.Value{Type: first.Data, Data: data(first)}
	if t := strings.TrimPrefix(first.Data, "ListOf"); t != first.Data {
		v.IsArray, v.Type = true, t
	}
	return v
}

func data(el *xmlquery.Node) *nodeset.Data {
	d := &nodeset.Data{Name: el.Data}
	if el.Data == "XmlElement" {
		d.Text = innerXML(el)
		return d
	}
	elements(el, func(child *xmlquery.Node) {
		d.Members = append(d.Members, data(child))
	})
	if len(d.Members) == 0 {
		d.Text = el.InnerText()
	}
	return d
}

func innerXML(el *xmlquery.Node) string {
	var sb strings.Builder
	for child := el.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(child.OutputXML(true))
	}
	return strings.TrimSpace(sb.String())
}
