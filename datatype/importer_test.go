package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/xmlutil"
)

type testType struct {
	id, name, super string
	def             xmlutil.Attrs
	fields          []xmlutil.Attrs
	refs            [][2]string
}

func field(name, dataType string, extra ...string) xmlutil.Attrs {
	return xmlutil.NewAttrs(append([]string{"Name", name, "DataType", dataType}, extra...)...)
}

func buildTypes(t *testing.T, types ...testType) *nodeset.Nodeset {
	t.Helper()
	ns := nodeset.New()
	ns.NewNamespace("urn:test")
	for _, tt := range types {
		n, err := ns.NewNode(ua.NodeClassDataType, xmlutil.NewAttrs("NodeId", tt.id, "BrowseName", "1:"+tt.name))
		require.NoError(t, err)
		if tt.super != "" {
			_, err = ns.NewReference(n, xmlutil.NewAttrs("ReferenceType", "i=45", "IsForward", "false"), tt.super)
			require.NoError(t, err)
		}
		for _, r := range tt.refs {
			_, err = ns.NewReference(n, xmlutil.NewAttrs("ReferenceType", r[0]), r[1])
			require.NoError(t, err)
		}
		if tt.def != nil || tt.fields != nil {
			_, err = ns.AddDataTypeDefinition(n, tt.def)
			require.NoError(t, err)
			for _, f := range tt.fields {
				_, err = ns.AddDataTypeField(n, f)
				require.NoError(t, err)
			}
		}
		ns.FinishNode(n)
	}
	return ns
}

func importTypes(t *testing.T, types ...testType) *Importer {
	t.Helper()
	im := NewImporter()
	im.Import(buildTypes(t, types...))
	return im
}

func lookup(t *testing.T, im *Importer, id string) *Descriptor {
	t.Helper()
	d, ok := im.Lookup(ua.MustParseNodeID(id))
	require.True(t, ok, "no descriptor for %s", id)
	return d
}

func offsets(d *Descriptor) (out []int) {
	for _, m := range d.Members {
		out = append(out, m.Offset)
	}
	return out
}

func TestStructureLayout(t *testing.T) {
	for _, tc := range []struct {
		name    string
		fields  []xmlutil.Attrs
		kind    Kind
		size    int
		align   int
		offsets []int
	}{
		{
			name:    "naturally aligned members",
			fields:  []xmlutil.Attrs{field("A", "i=6"), field("B", "i=7"), field("C", "i=11")},
			kind:    KindStructure,
			size:    16,
			align:   8,
			offsets: []int{0, 4, 8},
		},
		{
			name:    "padding before wider member",
			fields:  []xmlutil.Attrs{field("A", "i=3"), field("B", "i=8")},
			kind:    KindStructure,
			size:    16,
			align:   8,
			offsets: []int{0, 8},
		},
		{
			name:    "trailing padding",
			fields:  []xmlutil.Attrs{field("A", "i=8"), field("B", "i=1")},
			kind:    KindStructure,
			size:    16,
			align:   8,
			offsets: []int{0, 8},
		},
		{
			name:    "string and array members",
			fields:  []xmlutil.Attrs{field("Name", "i=12"), field("Values", "i=6", "ValueRank", "1")},
			kind:    KindStructure,
			size:    32,
			align:   8,
			offsets: []int{0, 16},
		},
		{
			name:    "optional members",
			fields:  []xmlutil.Attrs{field("A", "i=6", "IsOptional", "true"), field("B", "i=6")},
			kind:    KindOptionalStructure,
			size:    24,
			align:   8,
			offsets: []int{0, 8, 16},
		},
		{
			name:    "guid keeps four byte alignment",
			fields:  []xmlutil.Attrs{field("A", "i=1"), field("G", "i=14")},
			kind:    KindStructure,
			size:    20,
			align:   4,
			offsets: []int{0, 4},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			im := importTypes(t, testType{id: "ns=1;i=100", name: "T", super: "i=22", fields: tc.fields})
			assert.Empty(t, im.Unresolved())
			d := lookup(t, im, "ns=1;i=100")
			assert.Equal(t, tc.kind, d.Kind)
			assert.Equal(t, tc.size, d.Size())
			assert.Equal(t, tc.align, d.Align())
			assert.Equal(t, tc.offsets, offsets(d))
		})
	}
}

func TestStructureSizeIsMemberSum(t *testing.T) {
	im := importTypes(t, testType{id: "ns=1;i=100", name: "T", super: "i=22", fields: []xmlutil.Attrs{
		field("A", "i=11"), field("B", "i=17"), field("C", "i=12"), field("D", "i=6"), field("E", "i=7"),
	}})
	d := lookup(t, im, "ns=1;i=100")
	sum := 0
	for _, m := range d.Members {
		sum += m.Size()
	}
	assert.Equal(t, sum, d.Size())
	assert.Equal(t, 8+24+16+4+4, d.Size())
}

func TestUnionLayout(t *testing.T) {
	a := assert.New(t)
	im := importTypes(t, testType{
		id: "ns=1;i=6018", name: "MyUnion", super: "i=12756",
		def:    xmlutil.NewAttrs("Name", "1:MyUnion", "IsUnion", "true"),
		fields: []xmlutil.Attrs{field("X", "i=6"), field("Y", "i=6")},
	})
	d := lookup(t, im, "ns=1;i=6018")
	a.Equal(KindUnion, d.Kind)
	require.Len(t, d.Members, 3)
	a.Equal(SwitchFieldName, d.Members[0].Name)
	a.Equal(ua.UInt32, d.Members[0].Type.Builtin)
	a.Equal([]int{0, 4, 4}, offsets(d))
	a.Equal(8, d.Size())

	x, ok := d.Arm(1)
	a.True(ok)
	a.Equal("X", x.Name)
	y, ok := d.Arm(2)
	a.True(ok)
	a.Equal("Y", y.Name)
	_, ok = d.Arm(3)
	a.False(ok)
	_, ok = d.Arm(0)
	a.False(ok)
}

func TestUnionOfWideArms(t *testing.T) {
	im := importTypes(t, testType{
		id: "ns=1;i=1", name: "U", super: "i=12756",
		fields: []xmlutil.Attrs{field("S", "i=12"), field("B", "i=1")},
	})
	d := lookup(t, im, "ns=1;i=1")
	assert.Equal(t, KindUnion, d.Kind)
	assert.Equal(t, []int{0, 8, 8}, offsets(d))
	assert.Equal(t, 24, d.Size())
}

func TestEnumeration(t *testing.T) {
	im := importTypes(t, testType{
		id: "ns=1;i=3000", name: "Colour", super: "i=29",
		fields: []xmlutil.Attrs{
			xmlutil.NewAttrs("Name", "Red", "Value", "0"),
			xmlutil.NewAttrs("Name", "Green", "Value", "5"),
		},
	})
	d := lookup(t, im, "ns=1;i=3000")
	assert.Equal(t, KindEnum, d.Kind)
	assert.Equal(t, ua.Int32, d.Builtin)
	assert.Equal(t, 4, d.Size())
	assert.Equal(t, []EnumValue{{"Red", 0}, {"Green", 5}}, d.Values)
	v, ok := d.EnumValue("Green")
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)
	v, ok = d.EnumValue("Blue_7")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)
	_, ok = d.EnumValue("Purple")
	assert.False(t, ok)
}

func TestInheritance(t *testing.T) {
	im := importTypes(t,
		testType{id: "ns=1;i=1", name: "Base", super: "i=22", fields: []xmlutil.Attrs{field("A", "i=11")}},
		testType{id: "ns=1;i=2", name: "Derived", super: "ns=1;i=1"},
		testType{id: "ns=1;i=3", name: "Celsius", super: "i=11"},
		testType{id: "ns=1;i=4", name: "Flags", super: "i=12755", fields: []xmlutil.Attrs{
			xmlutil.NewAttrs("Name", "On", "Value", "0"),
		}},
		testType{id: "ns=1;i=5", name: "Abstract", super: "i=22"},
	)
	assert.Empty(t, im.Unresolved())

	derived := lookup(t, im, "ns=1;i=2")
	assert.Equal(t, KindStructure, derived.Kind)
	assert.Equal(t, "Derived", derived.Name)
	assert.Equal(t, 8, derived.Size())
	base := lookup(t, im, "ns=1;i=1")
	assert.NotSame(t, base.Members[0], derived.Members[0])

	celsius := lookup(t, im, "ns=1;i=3")
	assert.Equal(t, KindBuiltin, celsius.Kind)
	assert.Equal(t, ua.Double, celsius.Builtin)
	assert.Equal(t, 8, celsius.Size())

	flags := lookup(t, im, "ns=1;i=4")
	assert.Equal(t, KindStructure, flags.Kind)
	assert.Equal(t, 32, flags.Size())
	_, ok := flags.Member("ValidBits")
	assert.True(t, ok)

	abstract := lookup(t, im, "ns=1;i=5")
	assert.Equal(t, 0, abstract.Size())
}

func TestUnresolvedMember(t *testing.T) {
	im := importTypes(t,
		testType{id: "ns=1;i=1", name: "Broken", super: "i=22", fields: []xmlutil.Attrs{field("A", "ns=1;i=999")}},
		testType{id: "ns=1;i=2", name: "UsesBroken", super: "i=22", fields: []xmlutil.Attrs{field("B", "ns=1;i=1")}},
		testType{id: "ns=1;i=3", name: "Fine", super: "i=22", fields: []xmlutil.Attrs{field("C", "i=6")}},
	)
	_, ok := im.Lookup(ua.MustParseNodeID("ns=1;i=1"))
	assert.False(t, ok)
	_, ok = im.Lookup(ua.MustParseNodeID("ns=1;i=2"))
	assert.False(t, ok)
	lookup(t, im, "ns=1;i=3")

	errs := im.Unresolved()
	require.Len(t, errs, 2)
	assert.Equal(t, nserr.KindUnresolvedType, errs[0].Kind)
	assert.Equal(t, "ns=1;i=1", errs[0].NodeID)
	assert.Equal(t, "ns=1;i=999", errs[0].Target)
	assert.Equal(t, nserr.SeverityWarning, errs[0].Severity)
	assert.Equal(t, "ns=1;i=2", errs[1].NodeID)
	assert.Equal(t, "ns=1;i=1", errs[1].Target)
	assert.Len(t, im.Types(), 1)
}

func TestSupertypeCycle(t *testing.T) {
	im := importTypes(t,
		testType{id: "ns=1;i=1", name: "A", super: "ns=1;i=2"},
		testType{id: "ns=1;i=2", name: "B", super: "ns=1;i=1"},
		testType{id: "ns=1;i=3", name: "C", super: "i=22", fields: []xmlutil.Attrs{field("C", "i=6")}},
	)
	errs := im.Unresolved()
	require.NotEmpty(t, errs)
	assert.Equal(t, nserr.KindCyclicDependency, errs[0].Kind)
	lookup(t, im, "ns=1;i=3")
}

func TestRecursiveMembers(t *testing.T) {
	im := importTypes(t,
		testType{id: "ns=1;i=1", name: "Tree", super: "i=22", fields: []xmlutil.Attrs{
			field("Value", "i=6"),
			field("Children", "ns=1;i=1", "ValueRank", "1"),
		}},
		testType{id: "ns=1;i=2", name: "Loop", super: "i=22", fields: []xmlutil.Attrs{
			field("Self", "ns=1;i=2"),
		}},
	)
	tree := lookup(t, im, "ns=1;i=1")
	assert.Equal(t, 24, tree.Size())
	assert.Same(t, tree, tree.Members[1].Type)
	assert.Equal(t, []uint32{0}, tree.Members[1].ArrayDimensions)

	_, ok := im.Lookup(ua.MustParseNodeID("ns=1;i=2"))
	assert.False(t, ok)
	require.Len(t, im.Unresolved(), 1)
	assert.Equal(t, "ns=1;i=2", im.Unresolved()[0].NodeID)
}

func TestFailedTypeFailsItsUsers(t *testing.T) {
	im := importTypes(t,
		testType{id: "ns=1;i=1", name: "Outer", super: "i=22", fields: []xmlutil.Attrs{
			field("Inner", "ns=1;i=2"),
			field("Broken", "ns=1;i=99"),
		}},
		testType{id: "ns=1;i=2", name: "Inner", super: "i=22", fields: []xmlutil.Attrs{
			field("Outers", "ns=1;i=1", "ValueRank", "1"),
		}},
		testType{id: "ns=1;i=3", name: "Fine", super: "i=22", fields: []xmlutil.Attrs{
			field("Inner", "ns=1;i=2", "IsOptional", "true"),
		}},
	)
	for _, id := range []string{"ns=1;i=1", "ns=1;i=2", "ns=1;i=3"} {
		_, ok := im.Lookup(ua.MustParseNodeID(id))
		assert.False(t, ok, id)
	}
	assert.Empty(t, im.Types())

	errs := im.Unresolved()
	require.Len(t, errs, 3)
	assert.Equal(t, "ns=1;i=1", errs[0].NodeID)
	assert.Equal(t, "ns=1;i=99", errs[0].Target)
	assert.Equal(t, "ns=1;i=2", errs[1].NodeID)
	assert.Equal(t, "ns=1;i=1", errs[1].Target)
	assert.Equal(t, "depends on unresolved type", errs[1].Message)
	assert.Equal(t, "ns=1;i=3", errs[2].NodeID)
	assert.Equal(t, "ns=1;i=2", errs[2].Target)
}

func TestKnownType(t *testing.T) {
	known := &Descriptor{
		ID:   ua.NewNumericNodeID(2, 10),
		Name: "Vector",
		Kind: KindStructure,
		Members: []*Member{
			{Name: "X", Type: Builtin(ua.Double)},
			{Name: "Y", Type: Builtin(ua.Double)},
		},
		BinaryEncodingID: ua.NewNumericNodeID(2, 11),
	}
	known.layout()
	im := NewImporter(WithKnownType(known))
	ns := nodeset.New()
	ns.NewNamespace("urn:test")
	ns.NewNamespace("urn:base")
	n, err := ns.NewNode(ua.NodeClassDataType, xmlutil.NewAttrs("NodeId", "ns=1;i=1", "BrowseName", "1:Pose"))
	require.NoError(t, err)
	_, err = ns.NewReference(n, xmlutil.NewAttrs("ReferenceType", "i=45", "IsForward", "false"), "i=22")
	require.NoError(t, err)
	_, err = ns.AddDataTypeDefinition(n, nil)
	require.NoError(t, err)
	_, err = ns.AddDataTypeField(n, field("Position", "ns=2;i=10"))
	require.NoError(t, err)

	out := im.Import(ns)
	require.Len(t, out, 1)
	assert.Equal(t, 16, out[0].Size())
	assert.Same(t, known, out[0].Members[0].Type)
	d, ok := im.LookupEncoding(ua.NewNumericNodeID(2, 11))
	assert.True(t, ok)
	assert.Same(t, known, d)
}

func TestEncodingIDs(t *testing.T) {
	ns := buildTypes(t, testType{
		id: "ns=1;i=1", name: "Point", super: "i=22",
		fields: []xmlutil.Attrs{field("X", "i=6")},
	})
	bin, err := ns.NewNode(ua.NodeClassObject, xmlutil.NewAttrs("NodeId", "ns=1;i=2", "BrowseName", "Default Binary"))
	require.NoError(t, err)
	_, err = ns.NewReference(bin, xmlutil.NewAttrs("ReferenceType", "i=38", "IsForward", "false"), "ns=1;i=1")
	require.NoError(t, err)
	xml, err := ns.NewNode(ua.NodeClassObject, xmlutil.NewAttrs("NodeId", "ns=1;i=3", "BrowseName", "Default XML"))
	require.NoError(t, err)
	_, err = ns.NewReference(xml, xmlutil.NewAttrs("ReferenceType", "i=38", "IsForward", "false"), "ns=1;i=1")
	require.NoError(t, err)

	im := NewImporter()
	im.Import(ns)
	d := lookup(t, im, "ns=1;i=1")
	assert.Equal(t, ua.NewNumericNodeID(1, 2), d.BinaryEncodingID)
	assert.Equal(t, ua.NewNumericNodeID(1, 3), d.XMLEncodingID)
	got, ok := im.LookupEncoding(ua.NewNumericNodeID(1, 2))
	assert.True(t, ok)
	assert.Same(t, d, got)

	dt, _ := ns.Node(ua.NewNumericNodeID(1, 1))
	assert.Len(t, dt.Base().NonHierarchicalRefs, 2)
}

func TestBuiltinDescriptors(t *testing.T) {
	for _, tc := range []struct {
		id          ua.BuiltinID
		size, align int
	}{
		{ua.Boolean, 1, 1},
		{ua.Int16, 2, 2},
		{ua.Float, 4, 4},
		{ua.String, 16, 8},
		{ua.DateTime, 8, 8},
		{ua.Guid, 16, 4},
		{ua.NodeId, 24, 8},
		{ua.ExpandedNodeId, 48, 8},
		{ua.QualifiedNameType, 24, 8},
		{ua.LocalizedTextType, 32, 8},
		{ua.Structure, 48, 8},
		{ua.DataValue, 80, 8},
		{ua.BaseDataType, 48, 8},
		{ua.DiagnosticInfo, 56, 8},
		{ua.Enumeration, 4, 4},
	} {
		t.Run(tc.id.String(), func(t *testing.T) {
			d := Builtin(tc.id)
			require.NotNil(t, d)
			assert.Equal(t, tc.size, d.Size())
			assert.Equal(t, tc.align, d.Align())
		})
	}
	assert.Nil(t, Builtin(0))
	assert.Nil(t, Builtin(ua.MaxBuiltin+1))
}

func TestParseArrayDimensions(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    []uint32
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "3", want: []uint32{3}},
		{in: "2,3", want: []uint32{2, 3}},
		{in: "2;3; 4", want: []uint32{2, 3, 4}},
		{in: "0", want: []uint32{0}},
		{in: "x", wantErr: true},
		{in: "-1", wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseArrayDimensions(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
