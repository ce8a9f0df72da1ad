package value

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
)

// ExtensionObject body encodings
const (
	BodyNone    uint32 = 0
	BodyXML     uint32 = 2
	BodyDecoded uint32 = 3
)

// tick offset between 1601-01-01 and the unix epoch, in 100ns
const epochTicks = 116444736000000000

// encoder writes one value into a Buffer
type encoder struct {
	d    *Decoder
	buf  *Buffer
	node string
}

func (e *encoder) warning(w *nserr.Error) {
	e.buf.Warnings = append(e.buf.Warnings, w)
	e.d.log.Info("value", "severity", "warning", "node", e.node, "reason", w.Error())
}

func (e *encoder) warn(element, format string, args ...interface{}) {
	e.warning(nserr.MalformedNode("Value", element,
		nserr.WithSeverity(nserr.SeverityWarning),
		nserr.WithNodeID(e.node),
		nserr.WithMessage(fmt.Sprintf(format, args...))))
}

// value writes data as a value of desc into out, which is desc.Size()
// bytes long. A nil data leaves out zeroed.
func (e *encoder) value(desc *datatype.Descriptor, data *nodeset.Data, out []byte) {
	if data == nil {
		return
	}
	switch desc.Kind {
	case datatype.KindBuiltin:
		e.builtin(desc.Builtin, data, out)
	case datatype.KindEnum:
		le.PutUint32(out, uint32(e.enum(desc, data)))
	case datatype.KindUnion:
		e.union(desc, unwrap(data), out)
	default:
		e.structure(desc, unwrap(data), out)
	}
}

// unwrap returns the encoded body of an ExtensionObject element, or
// data itself.
func unwrap(data *nodeset.Data) *nodeset.Data {
	if data.Member("TypeId") == nil && data.Member("Body") == nil {
		return data
	}
	body := data.Member("Body")
	if body == nil || len(body.Members) == 0 {
		return &nodeset.Data{Name: data.Name}
	}
	return body.Members[0]
}

func (e *encoder) enum(desc *datatype.Descriptor, data *nodeset.Data) int32 {
	text := strings.TrimSpace(data.Text)
	if i, err := strconv.ParseInt(text, 10, 32); err == nil {
		return int32(i)
	}
	if v, ok := desc.EnumValue(text); ok {
		return int32(v)
	}
	e.warn(data.Name, "invalid %s value %q", desc.Name, text)
	return 0
}

func (e *encoder) structure(desc *datatype.Descriptor, data *nodeset.Data, out []byte) {
	members := desc.Members
	optional := desc.Kind == datatype.KindOptionalStructure
	if optional {
		members = members[1:]
	}
	var mask uint32
	bit := uint(0)
	for _, m := range members {
		md := data.Member(m.Name)
		if m.IsOptional {
			if md != nil {
				mask |= 1 << bit
			}
			bit++
			if !m.IsArray {
				if md != nil {
					field := make([]byte, m.Type.Size())
					e.value(m.Type, md, field)
					le.PutUint64(out[m.Offset:], e.buf.alloc(field))
				}
				continue
			}
		}
		e.member(m, md, out[m.Offset:m.Offset+m.Size()])
	}
	if optional {
		le.PutUint32(out, mask)
	}
}

// union writes the discriminant and the selected arm. Without an explicit
// SwitchField the first arm present selects itself.
func (e *encoder) union(desc *datatype.Descriptor, data *nodeset.Data, out []byte) {
	var sw uint32
	if s := data.Member(datatype.SwitchFieldName); s != nil {
		v, err := strconv.ParseUint(strings.TrimSpace(s.Text), 10, 32)
		if err != nil {
			e.warn(s.Name, "invalid switch field %q", s.Text)
		}
		sw = uint32(v)
	} else {
		for _, m := range desc.Members[1:] {
			if data.Member(m.Name) != nil {
				sw = m.SwitchValue
				break
			}
		}
	}
	if sw == 0 {
		return
	}
	arm, ok := desc.Arm(sw)
	if !ok {
		e.warn(data.Name, "switch field %d selects no member of %s", sw, desc.Name)
		return
	}
	le.PutUint32(out, sw)
	e.member(arm, data.Member(arm.Name), out[arm.Offset:arm.Offset+arm.Size()])
}

// member writes a structure member. Arrays are written as an element
// count and a handle to the packed elements.
func (e *encoder) member(m *datatype.Member, data *nodeset.Data, out []byte) {
	if data == nil {
		return
	}
	if !m.IsArray {
		e.value(m.Type, data, out)
		return
	}
	elems := data.Members
	le.PutUint64(out, uint64(len(elems)))
	if len(elems) == 0 {
		return
	}
	stride := m.Type.Size()
	blob := make([]byte, stride*len(elems))
	for i, el := range elems {
		e.value(m.Type, el, blob[i*stride:(i+1)*stride])
	}
	le.PutUint64(out[8:], e.buf.alloc(blob))
}

func (e *encoder) builtin(id ua.BuiltinID, data *nodeset.Data, out []byte) {
	text := strings.TrimSpace(data.Text)
	switch id {
	case ua.Boolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			e.warn(data.Name, "invalid boolean %q", text)
		}
		if b {
			out[0] = 1
		}
	case ua.SByte:
		out[0] = byte(int8(e.int(data.Name, text, 8)))
	case ua.Byte:
		out[0] = byte(e.uint(data.Name, text, 8))
	case ua.Int16:
		le.PutUint16(out, uint16(int16(e.int(data.Name, text, 16))))
	case ua.UInt16:
		le.PutUint16(out, uint16(e.uint(data.Name, text, 16)))
	case ua.Int32, ua.Enumeration:
		le.PutUint32(out, uint32(int32(e.int(data.Name, text, 32))))
	case ua.UInt32:
		le.PutUint32(out, uint32(e.uint(data.Name, text, 32)))
	case ua.Int64:
		le.PutUint64(out, uint64(e.int(data.Name, text, 64)))
	case ua.UInt64:
		le.PutUint64(out, e.uint(data.Name, text, 64))
	case ua.Float:
		le.PutUint32(out, math.Float32bits(float32(e.float(data.Name, text, 32))))
	case ua.Double:
		le.PutUint64(out, math.Float64bits(e.float(data.Name, text, 64)))
	case ua.String, ua.XmlElement:
		e.putBytes(out, []byte(data.Text))
	case ua.ByteString, ua.Image:
		e.putBytes(out, e.base64(data.Name, text))
	case ua.DateTime:
		le.PutUint64(out, uint64(e.dateTime(data.Name, text)))
	case ua.Guid:
		e.guid(data, out)
	case ua.StatusCode:
		code := text
		if c := data.Member("Code"); c != nil {
			code = strings.TrimSpace(c.Text)
		}
		le.PutUint32(out, uint32(e.uint(data.Name, code, 32)))
	case ua.NodeId:
		e.nodeID(data, out)
	case ua.ExpandedNodeId:
		e.nodeID(data, out[:24])
		e.putBytes(out[24:40], []byte(data.MemberText("NamespaceUri")))
		if s := data.Member("ServerIndex"); s != nil {
			le.PutUint32(out[40:], uint32(e.uint(s.Name, strings.TrimSpace(s.Text), 32)))
		}
	case ua.QualifiedNameType:
		if ns := data.Member("NamespaceIndex"); ns != nil {
			le.PutUint16(out, uint16(e.uint(ns.Name, strings.TrimSpace(ns.Text), 16)))
		}
		e.putBytes(out[8:24], []byte(data.MemberText("Name")))
	case ua.LocalizedTextType:
		e.putBytes(out[0:16], []byte(strings.TrimSpace(data.MemberText("Locale"))))
		e.putBytes(out[16:32], []byte(data.MemberText("Text")))
	case ua.Structure:
		e.extensionObject(data, out)
	case ua.DataValue:
		if v := data.Member("Value"); v != nil {
			e.variant(v, out[0:48])
		}
		if s := data.Member("StatusCode"); s != nil {
			e.builtin(ua.StatusCode, s, out[48:52])
		}
		if ts := data.Member("SourceTimestamp"); ts != nil {
			le.PutUint64(out[56:], uint64(e.dateTime(ts.Name, strings.TrimSpace(ts.Text))))
		}
		if ts := data.Member("ServerTimestamp"); ts != nil {
			le.PutUint64(out[64:], uint64(e.dateTime(ts.Name, strings.TrimSpace(ts.Text))))
		}
	case ua.BaseDataType, ua.Number, ua.Integer, ua.UInteger:
		e.variant(data, out)
	case ua.DiagnosticInfo:
		for i, name := range []string{"SymbolicId", "NamespaceUri", "LocalizedText", "Locale"} {
			if m := data.Member(name); m != nil {
				le.PutUint32(out[i*4:], uint32(int32(e.int(name, strings.TrimSpace(m.Text), 32))))
			}
		}
		e.putBytes(out[16:32], []byte(data.MemberText("AdditionalInfo")))
		if m := data.Member("InnerStatusCode"); m != nil {
			e.builtin(ua.StatusCode, m, out[32:36])
		}
	}
}

func (e *encoder) putBytes(out []byte, p []byte) {
	le.PutUint64(out, uint64(len(p)))
	if len(p) > 0 {
		le.PutUint64(out[8:], e.buf.alloc(p))
	}
}

func (e *encoder) int(element, text string, bits int) int64 {
	i, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		// integral float literals such as 1e3, within the type's range
		limit := math.Ldexp(1, bits-1)
		if f, ferr := parseFloat(text, 64); ferr == nil && f == math.Trunc(f) && f >= -limit && f < limit {
			return int64(f)
		}
		e.warn(element, "invalid integer %q", text)
		return 0
	}
	return i
}

func (e *encoder) uint(element, text string, bits int) uint64 {
	u, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		e.warn(element, "invalid unsigned integer %q", text)
		return 0
	}
	return u
}

func (e *encoder) float(element, text string, bits int) float64 {
	f, err := parseFloat(text, bits)
	if err != nil {
		e.warn(element, "invalid number %q", text)
		return 0
	}
	return f
}

// parseFloat accepts both '.' and a single ',' as the decimal separator
func parseFloat(text string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(text, bits)
	if err != nil && strings.Count(text, ",") == 1 && !strings.Contains(text, ".") {
		f, err = strconv.ParseFloat(strings.Replace(text, ",", ".", 1), bits)
	}
	return f, err
}

func (e *encoder) base64(element, text string) []byte {
	text = strings.Join(strings.Fields(text), "")
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		e.warn(element, "invalid base64 content")
		return nil
	}
	return b
}

// dateTime returns the 100ns ticks since 1601-01-01 UTC of text
func (e *encoder) dateTime(element, text string) int64 {
	if text == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		if t, err = time.Parse("2006-01-02T15:04:05", text); err != nil {
			e.warn(element, "invalid date time %q", text)
			return 0
		}
	}
	return t.Unix()*1e7 + int64(t.Nanosecond())/100 + epochTicks
}

func (e *encoder) guid(data *nodeset.Data, out []byte) {
	text := strings.TrimSpace(data.Text)
	if s := data.Member("String"); s != nil {
		text = strings.TrimSpace(s.Text)
	}
	g, err := uuid.Parse(text)
	if err != nil {
		e.warn(data.Name, "invalid guid %q", text)
		return
	}
	putGUID(out, g)
}

// putGUID writes g as Data1 uint32, Data2 and Data3 uint16, Data4 [8]byte
func putGUID(out []byte, g uuid.UUID) {
	le.PutUint32(out, uint32(g[0])<<24|uint32(g[1])<<16|uint32(g[2])<<8|uint32(g[3]))
	le.PutUint16(out[4:], uint16(g[4])<<8|uint16(g[5]))
	le.PutUint16(out[6:], uint16(g[6])<<8|uint16(g[7]))
	copy(out[8:16], g[8:])
}

// nodeID writes a NodeId: namespace uint16, identifier type uint32 at
// offset 4, identifier at offset 8.
func (e *encoder) nodeID(data *nodeset.Data, out []byte) {
	text := strings.TrimSpace(data.Text)
	if m := data.Member("Identifier"); m != nil {
		text = strings.TrimSpace(m.Text)
	}
	if text == "" {
		return
	}
	id, err := ua.ParseNodeID(text)
	if err != nil {
		e.warn(data.Name, "%v", err)
		return
	}
	putNodeID(e, out, e.d.translate(id))
}

func putNodeID(e *encoder, out []byte, id ua.NodeID) {
	le.PutUint16(out, id.Namespace)
	le.PutUint32(out[4:], uint32(id.Type))
	switch id.Type {
	case ua.IDTypeNumeric:
		le.PutUint32(out[8:], id.Numeric)
	case ua.IDTypeString:
		e.putBytes(out[8:24], []byte(id.StringID))
	case ua.IDTypeGUID:
		putGUID(out[8:24], id.GUID)
	case ua.IDTypeOpaque:
		e.putBytes(out[8:24], []byte(id.Opaque))
	}
}

// extension resolves the type of an ExtensionObject element and returns
// it with the element holding the encoded body.
func (e *encoder) extension(data *nodeset.Data) (*datatype.Descriptor, *nodeset.Data) {
	typeID := data.Member("TypeId")
	if typeID == nil {
		return nil, nil
	}
	text := strings.TrimSpace(typeID.MemberText("Identifier"))
	if text == "" {
		text = strings.TrimSpace(typeID.Text)
	}
	id, err := ua.ParseNodeID(text)
	if err != nil {
		return nil, nil
	}
	desc, ok := e.d.lookupEncoding(e.d.translate(id))
	if !ok || !desc.IsStructured() {
		return nil, nil
	}
	return desc, unwrap(data)
}

// extensionObject writes an ExtensionObject: body encoding uint32, type
// id NodeId at offset 8 and body ByteString at offset 32. Bodies of
// known types are decoded natively, others kept as XML text.
func (e *encoder) extensionObject(data *nodeset.Data, out []byte) {
	desc, body := e.extension(data)
	if desc == nil {
		raw := data.Member("Body")
		if raw == nil {
			return
		}
		if tid := data.Member("TypeId"); tid != nil {
			e.nodeID(tid, out[8:32])
		}
		le.PutUint32(out, BodyXML)
		e.putBytes(out[32:48], []byte(renderMembers(raw)))
		e.warn(data.Name, "extension object of unknown type kept as xml")
		return
	}
	le.PutUint32(out, BodyDecoded)
	putNodeID(e, out[8:32], desc.ID)
	native := make([]byte, desc.Size())
	e.value(desc, body, native)
	e.putBytes(out[32:48], native)
}

// variant writes a Variant: built-in type id uint32, handle to the
// encoded value at offset 8, array length at offset 16. data is the
// element holding the typed value element.
func (e *encoder) variant(data *nodeset.Data, out []byte) {
	inner := data
	for {
		if _, _, ok := typeName(inner.Name); ok || len(inner.Members) != 1 {
			break
		}
		inner = inner.Members[0]
	}
	name, isArray, ok := typeName(inner.Name)
	if !ok {
		if len(inner.Members) > 0 || inner.Text != "" {
			e.warn(data.Name, "variant of unknown type %q", inner.Name)
		}
		return
	}
	b, _ := ua.BuiltinByName(name)
	desc := datatype.Builtin(b)
	elems := []*nodeset.Data{inner}
	if isArray {
		elems = inner.Members
		le.PutUint64(out[16:], uint64(len(elems)))
	}
	le.PutUint32(out, uint32(b))
	if len(elems) == 0 {
		return
	}
	stride := desc.Size()
	blob := make([]byte, stride*len(elems))
	for i, el := range elems {
		e.value(desc, el, blob[i*stride:(i+1)*stride])
	}
	le.PutUint64(out[8:], e.buf.alloc(blob))
}

// typeName strips a ListOf prefix, reporting whether one was present
// and whether the rest names a built-in type.
func typeName(name string) (base string, isArray, ok bool) {
	base = strings.TrimPrefix(name, "ListOf")
	_, ok = ua.BuiltinByName(base)
	return base, base != name, ok
}

// render returns data as XML text
func render(d *nodeset.Data) string {
	var sb strings.Builder
	writeData(&sb, d)
	return sb.String()
}

func renderMembers(d *nodeset.Data) string {
	var sb strings.Builder
	for _, m := range d.Members {
		writeData(&sb, m)
	}
	return sb.String()
}

func writeData(sb *strings.Builder, d *nodeset.Data) {
	sb.WriteString("<" + d.Name + ">")
	if d.IsLeaf() {
		_ = xml.EscapeText(sb, []byte(d.Text))
	}
	for _, m := range d.Members {
		writeData(sb, m)
	}
	sb.WriteString("</" + d.Name + ">")
}
