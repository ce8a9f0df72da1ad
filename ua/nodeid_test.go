package ua

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseNodeID(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    NodeID
		str     string
		wantErr bool
	}{
		{in: "i=85", want: NewNumericNodeID(0, 85), str: "i=85"},
		{in: "ns=1;i=5001", want: NewNumericNodeID(1, 5001), str: "ns=1;i=5001"},
		{in: " ns=2;s=Pump;1 ", want: NewStringNodeID(2, "Pump;1"), str: "ns=2;s=Pump;1"},
		{
			in:   "ns=3;g=09087e75-8e5e-499b-954f-f2a9603db28a",
			want: NodeID{Namespace: 3, Type: IDTypeGUID, GUID: uuid.MustParse("09087e75-8e5e-499b-954f-f2a9603db28a")},
			str:  "ns=3;g=09087e75-8e5e-499b-954f-f2a9603db28a",
		},
		{in: "b=AQID", want: NodeID{Type: IDTypeOpaque, Opaque: "\x01\x02\x03"}, str: "b=AQID"},
		{in: "HasComponent", wantErr: true},
		{in: "ns=1", wantErr: true},
		{in: "ns=x;i=1", wantErr: true},
		{in: "i=abc", wantErr: true},
		{in: "g=nope", wantErr: true},
		{in: "x=1", wantErr: true},
		{in: "", wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)
			got, err := ParseNodeID(tc.in)
			if tc.wantErr {
				a.Error(err)
				return
			}
			if a.NoError(err) {
				a.Equal(tc.want, got)
				a.Equal(tc.str, got.String())
			}
		})
	}
}

func TestNodeIDText(t *testing.T) {
	a := assert.New(t)
	var id NodeID
	a.NoError(id.UnmarshalText([]byte("ns=4;s=x")))
	b, _ := id.MarshalText()
	a.Equal("ns=4;s=x", string(b))
	a.True(NodeID{}.IsNull())
	a.False(id.IsNull())
	a.Equal(NewStringNodeID(7, "x"), id.WithNamespace(7))
	a.Panics(func() { MustParseNodeID("bogus") })
}

func TestParseQualifiedName(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want QualifiedName
	}{
		{in: "Objects", want: QualifiedName{Name: "Objects"}},
		{in: "1:Pump", want: QualifiedName{Namespace: 1, Name: "Pump"}},
		{in: "a:b", want: QualifiedName{Name: "a:b"}},
		{in: "2:", want: QualifiedName{Namespace: 2}},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.want, ParseQualifiedName(tc.in))
		})
	}
	assert.Equal(t, "1:Pump", QualifiedName{Namespace: 1, Name: "Pump"}.String())
}

func TestBuiltin(t *testing.T) {
	a := assert.New(t)
	b, ok := Builtin(MustParseNodeID("i=6"))
	a.True(ok)
	a.Equal(Int32, b)
	a.Equal("Int32", b.String())
	_, ok = Builtin(MustParseNodeID("ns=1;i=6"))
	a.False(ok)
	_, ok = Builtin(MustParseNodeID("i=31"))
	a.False(ok)
	a.True(IsKnownBase(OptionSetType))
	a.True(IsKnownBase(Structure.NodeID()))
	a.False(IsKnownBase(UnionType))

	for name, want := range map[string]BuiltinID{
		"LocalizedText":   LocalizedTextType,
		"ExtensionObject": Structure,
		"Variant":         BaseDataType,
		"Image":           Image,
	} {
		got, ok := BuiltinByName(name)
		a.True(ok, name)
		a.Equal(want, got, name)
	}
	_, ok = BuiltinByName("MyStruct")
	a.False(ok)
}

func TestNodeClass(t *testing.T) {
	a := assert.New(t)
	a.Equal(0, NodeClassReferenceType.Precedence())
	a.Equal(7, NodeClassView.Precedence())
	a.Equal("VariableType", NodeClassVariableType.String())
	c, ok := NodeClassByElement("UADataType")
	a.True(ok)
	a.Equal(NodeClassDataType, c)
	_, ok = NodeClassByElement("Alias")
	a.False(ok)
}
