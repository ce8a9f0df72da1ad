package xmlutil

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromXML(t *testing.T) {
	for _, tc := range []struct {
		attrs []xml.Attr
		want  Attrs
	}{
		// test number #00: identity check
		{want: Attrs{}},

		// #01: namespace declarations are dropped
		{
			attrs: []xml.Attr{
				{Name: xml.Name{Local: "xmlns"}, Value: "http://opcfoundation.org/UA/2011/03/UANodeSet.xsd"},
				{Name: xml.Name{Space: "xmlns", Local: "uax"}, Value: "http://opcfoundation.org/UA/2008/02/Types.xsd"},
				{Name: xml.Name{Local: "NodeId"}, Value: "ns=1;i=5001"},
				{Name: xml.Name{Space: "urn:x", Local: "BrowseName"}, Value: "1:Pump"},
			},
			want: Attrs{{Name: "NodeId", Value: "ns=1;i=5001"}, {Name: "BrowseName", Value: "1:Pump"}},
		},
	} {
		t.Run("", func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.want, FromXML(tc.attrs...))
		})
	}
}

func TestAttrs(t *testing.T) {
	a := assert.New(t)
	attrs := NewAttrs(
		"ValueRank", "1",
		"Historizing", "true",
		"AccessLevel", "x",
		"NodeId", "ns=1;i=6002",
		"dangling")
	a.Len(attrs, 4)

	v, ok := attrs.Get("NodeId")
	a.True(ok)
	a.Equal("ns=1;i=6002", v)
	_, ok = attrs.Get("BrowseName")
	a.False(ok)

	a.Equal("-1", attrs.Value("ArrayDimensions", "-1"))
	a.Equal(int64(1), attrs.Int("ValueRank", 32, -1))
	a.Equal(int64(1), attrs.Int("AccessLevel", 8, 1))
	a.Equal(int64(-1), attrs.Int("Missing", 32, -1))
	a.True(attrs.Bool("Historizing", false))
	a.False(attrs.Bool("AccessLevel", false))
	a.Equal([]string{"AccessLevel", "Historizing", "NodeId", "ValueRank"}, attrs.Names())
}
