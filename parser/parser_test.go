package parser

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
	valuepkg "github.com/andaru/uanodeset/value"
)

func parseFile(t *testing.T, name string) *nodeset.Nodeset {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	ns := nodeset.New()
	require.NoError(t, Parse(f, ns))
	return ns
}

func node(t *testing.T, ns *nodeset.Nodeset, id uint32) nodeset.Node {
	t.Helper()
	n, ok := ns.Node(ua.NewNumericNodeID(1, id))
	require.True(t, ok, "node ns=1;i=%d", id)
	return n
}

func TestParse(t *testing.T) {
	a := assert.New(t)
	ns := parseFile(t, "testdata/union.xml")

	a.Equal(7, ns.Len())
	a.Equal(2, ns.Namespaces().Len())
	diags := ns.Diagnostics()
	require.Len(t, diags, 1)
	a.Equal(nserr.KindMalformedNode, diags[0].Kind)
	a.Equal("BrowseName", diags[0].Attribute)

	unions := node(t, ns, 5000).(*nodeset.ObjectNode)
	a.Equal(ua.LocalizedText{Locale: "en", Text: "Unions"}, unions.DisplayName)
	a.Equal("Variables holding MyUnion values", unions.Description.Text)
	require.NotNil(t, unions.TypeDefinition)
	a.Equal(ua.NewNumericNodeID(0, 61), unions.TypeDefinition.Target)

	y := node(t, ns, 6021).(*nodeset.VariableNode)
	a.Equal(ua.NewNumericNodeID(1, 3000), y.DataType)
	a.Equal(ua.NewNumericNodeID(1, 5000), y.ParentNodeID)
	require.NotNil(t, y.Value)
	a.False(y.Value.IsArray)
	a.Equal("ExtensionObject", y.Value.Type)
	a.Equal("ns=1;i=5001", y.Value.Data.Member("TypeId").MemberText("Identifier"))
	body := y.Value.Data.Member("Body").Member("MyUnion")
	require.NotNil(t, body)
	a.Equal("-1000", body.MemberText("Y"))

	dt := node(t, ns, 3000).(*nodeset.DataTypeNode)
	require.NotNil(t, dt.Definition)
	a.True(dt.Definition.IsUnion)
	require.Len(t, dt.Definition.Fields, 2)
	a.Equal("X", dt.Definition.Fields[0].Name)
	a.Equal(ua.NewNumericNodeID(0, 6), dt.Definition.Fields[1].DataType)

	rt := node(t, ns, 4000).(*nodeset.ReferenceTypeNode)
	a.Equal("DrivenBy", rt.InverseName.Text)
	a.False(rt.Symmetric)

	counts := node(t, ns, 6030).(*nodeset.VariableNode)
	a.Equal(int32(1), counts.ValueRank)
	a.Equal("3", counts.ArrayDimensions)
	a.True(counts.Value.IsArray)
	a.Equal("Int32", counts.Value.Type)
	a.Equal(3, counts.Value.Len())
	a.True(strings.HasPrefix(counts.Extension, "<Extension>"), counts.Extension)
	a.Contains(counts.Extension, "kept")
	parent, refType, ok := nodeset.ParentOf(counts)
	a.True(ok)
	a.Equal(ua.NewNumericNodeID(1, 5000), parent)
	a.Equal(ua.NewNumericNodeID(1, 4000), refType)

	a.Equal([]nodeset.BiDirectionalReference{{
		Source:  ua.NewNumericNodeID(1, 3000),
		Target:  ua.NewNumericNodeID(1, 5001),
		RefType: ua.HasEncoding,
	}}, ns.HasEncodingRefs())
}

func TestParseAndDecodeUnion(t *testing.T) {
	ns := parseFile(t, "testdata/union.xml")
	res := ns.Sort()
	require.True(t, res.OK)

	im := datatype.NewImporter()
	im.Import(ns)
	require.Empty(t, im.Unresolved())
	desc, ok := im.Lookup(ua.NewNumericNodeID(1, 3000))
	require.True(t, ok)
	assert.Equal(t, datatype.KindUnion, desc.Kind)
	assert.Equal(t, ua.NewNumericNodeID(1, 5001), desc.BinaryEncodingID)

	dec := valuepkg.NewDecoder(im, valuepkg.WithNamespaces(ns.Namespaces()))
	x, err := dec.DecodeVariable(node(t, ns, 6018).(*nodeset.VariableNode))
	require.NoError(t, err)
	y, err := dec.DecodeVariable(node(t, ns, 6021).(*nodeset.VariableNode))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0x70, 0x11, 0x01, 0x00}, x.Bytes())
	assert.Equal(t, []byte{2, 0, 0, 0, 0x18, 0xfc, 0xff, 0xff}, y.Bytes())

	counts, err := dec.DecodeVariable(node(t, ns, 6030).(*nodeset.VariableNode))
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, counts.ArrayDimensions)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}, counts.Bytes())
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"not xml", "<UANodeSet><UAObject"},
		{"wrong root", `<?xml version="1.0"?><NodeSet/>`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ns := nodeset.New()
			assert.Error(t, ParseBytes([]byte(tc.doc), ns))
			assert.Equal(t, 0, ns.Len())
		})
	}
}

func TestParseValueElements(t *testing.T) {
	doc := `<UANodeSet xmlns="http://opcfoundation.org/UA/2011/03/UANodeSet.xsd">
  <UAVariable NodeId="i=5001" BrowseName="Xml" DataType="i=16">
    <Value><XmlElement><a b="1">text</a></XmlElement></Value>
  </UAVariable>
  <UAVariable NodeId="i=5002" BrowseName="Text" DataType="i=21">
    <Value><LocalizedText><Locale>de</Locale><Text>Pumpe</Text></LocalizedText></Value>
  </UAVariable>
  <UAVariable NodeId="i=5003" BrowseName="Empty" DataType="i=6">
    <Value></Value>
  </UAVariable>
</UANodeSet>`
	ns := nodeset.New()
	require.NoError(t, ParseBytes([]byte(doc), ns))

	xmlVar, _ := ns.Node(ua.NewNumericNodeID(0, 5001))
	v := xmlVar.(*nodeset.VariableNode).Value
	require.NotNil(t, v)
	assert.True(t, v.Data.IsLeaf())
	assert.Contains(t, v.Data.Text, "text")
	assert.Contains(t, v.Data.Text, "<a")

	textVar, _ := ns.Node(ua.NewNumericNodeID(0, 5002))
	lt := textVar.(*nodeset.VariableNode).Value.Data
	assert.Equal(t, "de", lt.MemberText("Locale"))
	assert.Equal(t, "Pumpe", lt.MemberText("Text"))

	empty, _ := ns.Node(ua.NewNumericNodeID(0, 5003))
	assert.Nil(t, empty.(*nodeset.VariableNode).Value)
}
