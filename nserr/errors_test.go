package nserr

import (
	"fmt"
	"testing"

	"encoding/json"
	"encoding/xml"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestError(t *testing.T) {
	for _, tc := range []struct {
		err *Error

		error string
		xml   string
		json  string
	}{
		{
			err:   MalformedNode("NodeId", "UAObject"),
			error: "error malformed-node attribute:NodeId element:UAObject",
			xml:   "<diagnostic><kind>malformed-node</kind><severity>error</severity><attribute>NodeId</attribute><element>UAObject</element></diagnostic>",
			json:  "{\"kind\":\"malformed-node\",\"severity\":\"error\",\"attribute\":\"NodeId\",\"element\":\"UAObject\"}",
		},

		{
			err:   UnresolvedAlias("HasFoo", WithNodeID("ns=1;i=5001")),
			error: "error unresolved-alias node:ns=1;i=5001 target:HasFoo",
			xml:   "<diagnostic><kind>unresolved-alias</kind><severity>error</severity><node-id>ns=1;i=5001</node-id><target>HasFoo</target></diagnostic>",
			json:  "{\"kind\":\"unresolved-alias\",\"severity\":\"error\",\"node-id\":\"ns=1;i=5001\",\"target\":\"HasFoo\"}",
		},

		{
			err:   UnresolvedType("ns=1;i=3001", WithMessage("member x")),
			error: "warning unresolved-type node:ns=1;i=3001 member x",
			xml:   "<diagnostic><kind>unresolved-type</kind><severity>warning</severity><node-id>ns=1;i=3001</node-id><message>member x</message></diagnostic>",
			json:  "{\"kind\":\"unresolved-type\",\"severity\":\"warning\",\"node-id\":\"ns=1;i=3001\",\"message\":\"member x\"}",
		},

		{
			err:   CyclicDependency("ns=1;i=3002", WithTarget("ns=1;i=3003")),
			error: "error cyclic-dependency node:ns=1;i=3002 target:ns=1;i=3003",
			xml:   "<diagnostic><kind>cyclic-dependency</kind><severity>error</severity><node-id>ns=1;i=3002</node-id><target>ns=1;i=3003</target></diagnostic>",
			json:  "{\"kind\":\"cyclic-dependency\",\"severity\":\"error\",\"node-id\":\"ns=1;i=3002\",\"target\":\"ns=1;i=3003\"}",
		},

		{
			err:   UnknownReferenceTarget("ns=1;i=6001", "i=85", WithSeverity(SeverityError)),
			error: "warning unknown-reference-target node:ns=1;i=6001 target:i=85",
			xml:   "<diagnostic><kind>unknown-reference-target</kind><severity>warning</severity><node-id>ns=1;i=6001</node-id><target>i=85</target></diagnostic>",
			json:  "{\"kind\":\"unknown-reference-target\",\"severity\":\"warning\",\"node-id\":\"ns=1;i=6001\",\"target\":\"i=85\"}",
		},
	} {
		t.Run(fmt.Sprintf("%v", tc.err), func(t *testing.T) {
			check := assert.New(t)
			bXML, _ := xml.Marshal(tc.err)
			bJSON, _ := json.Marshal(tc.err)
			check.Equal(tc.error, tc.err.Error())
			check.Equal(tc.json, string(bJSON))
			check.Equal(tc.xml, string(bXML))

			ev := Error{}
			if check.NoError(xml.Unmarshal(bXML, &ev)) {
				evXML, _ := xml.Marshal(ev)
				check.Equal(tc.xml, string(evXML))
			}
			ev = Error{}
			if check.NoError(json.Unmarshal(bJSON, &ev)) {
				evJSON, _ := json.Marshal(ev)
				check.Equal(tc.json, string(evJSON))
			}
			bYAML, err := yaml.Marshal(tc.err)
			if check.NoError(err) {
				ev = Error{}
				check.NoError(yaml.Unmarshal(bYAML, &ev))
				check.Equal(tc.err.Kind, ev.Kind)
				check.Equal(tc.err.Severity, ev.Severity)
			}
		})
	}
}

func TestIs(t *testing.T) {
	a := assert.New(t)
	err := errors.Wrap(CyclicDependency("i=1"), "sorting")
	a.True(Is(err, KindCyclicDependency))
	a.False(Is(err, KindMalformedNode))
	a.False(Is(errors.New("plain"), KindMalformedNode))
	a.False(Is(nil, KindMalformedNode))

	e, ok := As(errors.WithStack(UnresolvedAlias("Foo")))
	if a.True(ok) {
		a.Equal("Foo", e.Target)
	}
}

func TestKindText(t *testing.T) {
	for _, tc := range []struct {
		text    string
		want    Kind
		wantErr bool
	}{
		{text: "malformed-node", want: KindMalformedNode},
		{text: " unresolved-type ", want: KindUnresolvedType},
		{text: "unknown-reference-target", want: KindUnknownReferenceTarget},
		{text: "bogus", wantErr: true},
	} {
		t.Run(tc.text, func(t *testing.T) {
			a := assert.New(t)
			var k Kind
			err := k.UnmarshalText([]byte(tc.text))
			if tc.wantErr {
				a.Error(err)
				return
			}
			a.NoError(err)
			a.Equal(tc.want, k)
		})
	}
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, "Severity(7)", Severity(7).String())
}
