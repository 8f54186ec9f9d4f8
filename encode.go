package dataskema

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/dataskema/schema"
)

// encoder writes a record tree in canonical form: discriminant first, then
// present fields in declaration order, keyed collections with sorted keys.
type encoder struct {
	buf    bytes.Buffer
	issues Issues
}

func (e *encoder) report(it Issue) { e.issues = append(e.issues, it) }

func (e *encoder) str(s string) {
	b, err := gojson.MarshalNoEscape(s)
	if err != nil {
		e.report(Issue{Path: "/", Code: CodeInvalidFormat, Message: err.Error(), Cause: err, Offset: -1})
		return
	}
	e.buf.Write(b)
}

func (e *encoder) value(s *schema.Schema, v any, path string, at site) {
	rs := s.Resolve()
	if v == nil {
		if s.AllowsNull() || rs.Kind == schema.KindEmpty {
			e.buf.WriteString("null")
			return
		}
		e.report(TypeMismatch(path, at.typ, at.field, expectedKind(rs), "null"))
		return
	}

	switch rs.Kind {
	case schema.KindEmpty:
		e.raw(v, path, at)
	case schema.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			e.report(TypeMismatch(path, at.typ, at.field, "boolean", jsonKindOf(v)))
			return
		}
		e.buf.WriteString(strconv.FormatBool(b))
	case schema.KindString, schema.KindTimestamp, schema.KindEnum:
		str, ok := v.(string)
		if !ok {
			e.report(TypeMismatch(path, at.typ, at.field, "string", jsonKindOf(v)))
			return
		}
		if rs.Kind == schema.KindEnum && !rs.HasEnum(str) {
			e.report(newIssue(path, CodeInvalidEnum, map[string]any{
				"type": at.typ, "field": at.field, "expected": rs.Enum, "value": str,
			}))
			return
		}
		e.str(str)
	case schema.KindFloat32, schema.KindFloat64:
		f, ok := toFloat(v)
		if !ok {
			e.report(TypeMismatch(path, at.typ, at.field, "number", jsonKindOf(v)))
			return
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			e.report(newIssue(path, CodeInvalidFormat, map[string]any{"type": at.typ, "field": at.field, "expected": "finite number"}))
			return
		}
		bits := 64
		if rs.Kind == schema.KindFloat32 {
			bits = 32
		}
		e.buf.WriteString(formatFloat(f, bits))
	case schema.KindElements:
		items, ok := v.([]any)
		if !ok {
			e.report(TypeMismatch(path, at.typ, at.field, "array", jsonKindOf(v)))
			return
		}
		e.buf.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.value(rs.Elements, it, joinIndex(path, i), at)
		}
		e.buf.WriteByte(']')
	case schema.KindValues:
		m, ok := v.(map[string]any)
		if !ok {
			e.report(TypeMismatch(path, at.typ, at.field, "object", jsonKindOf(v)))
			return
		}
		e.buf.WriteByte('{')
		for i, k := range sortedMapKeys(m) {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.str(k)
			e.buf.WriteByte(':')
			e.value(rs.Values, m[k], joinPointer(path, k), at)
		}
		e.buf.WriteByte('}')
	case schema.KindProperties:
		rec, ok := v.(*Record)
		if !ok || rec == nil {
			e.report(TypeMismatch(path, at.typ, at.field, "object", jsonKindOf(v)))
			return
		}
		if rec.obj != rs.Object || rec.family != "" {
			e.report(newIssue(path, CodeWrongType, map[string]any{"expected": rs.Object.Name, "actual": rec.TypeName()}))
			return
		}
		e.record(rec, path)
	case schema.KindDiscriminator:
		rec, ok := v.(*Record)
		if !ok || rec == nil {
			e.report(TypeMismatch(path, at.typ, at.field, "object", jsonKindOf(v)))
			return
		}
		variant, known := rs.Union.Variant(rec.literal)
		if rec.family != rs.Union.Name || !known || variant != rec.obj {
			e.report(newIssue(path, CodeWrongType, map[string]any{"expected": rs.Union.Name, "actual": rec.TypeName()}))
			return
		}
		e.record(rec, path)
	default:
		if rs.Kind.IsInteger() {
			e.integer(rs.Kind, v, path, at)
			return
		}
		e.report(TypeMismatch(path, at.typ, at.field, rs.Kind.String(), jsonKindOf(v)))
	}
}

func (e *encoder) integer(k schema.Kind, v any, path string, at site) {
	var i int64
	switch t := v.(type) {
	case int64:
		i = t
	case int:
		i = int64(t)
	case float64:
		if math.Trunc(t) != t {
			e.report(TypeMismatch(path, at.typ, at.field, "integer", "number"))
			return
		}
		i = int64(t)
	case json.Number:
		n, err := t.Int64()
		if errors.Is(err, strconv.ErrRange) {
			e.report(overflow(path, at, t.String(), k.String()))
			return
		}
		if err != nil {
			e.report(TypeMismatch(path, at.typ, at.field, "integer", "number"))
			return
		}
		i = n
	default:
		e.report(TypeMismatch(path, at.typ, at.field, "integer", jsonKindOf(v)))
		return
	}
	if lo, hi := k.IntRange(); i < lo || i > hi {
		e.report(overflow(path, at, strconv.FormatInt(i, 10), k.String()))
		return
	}
	e.buf.WriteString(strconv.FormatInt(i, 10))
}

// record writes a present-fields-only object.
func (e *encoder) record(r *Record, path string) {
	e.buf.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
	}
	if r.family != "" {
		sep()
		e.str(r.tag)
		e.buf.WriteByte(':')
		e.str(r.literal)
	}
	for _, f := range r.obj.Fields {
		v, present := r.fields[f.Name]
		if !present {
			if !f.Optional {
				e.report(MissingField(joinPointer(path, f.Name), r.obj.Name, f.Name))
			}
			continue
		}
		sep()
		e.str(f.Name)
		e.buf.WriteByte(':')
		e.value(f.Schema, v, joinPointer(path, f.Name), site{typ: r.obj.Name, field: f.Name})
	}
	e.buf.WriteByte('}')
}

// raw writes an untyped value; records are not allowed inside it.
func (e *encoder) raw(v any, path string, at site) {
	if containsRecord(v) {
		e.report(TypeMismatch(path, at.typ, at.field, "json value", "record"))
		return
	}
	b, err := gojson.MarshalNoEscape(v)
	if err != nil {
		e.report(Issue{Path: pointerOrRoot(path), Code: CodeInvalidFormat, Message: err.Error(), Cause: err, Offset: -1})
		return
	}
	e.buf.Write(b)
}

func containsRecord(v any) bool {
	switch t := v.(type) {
	case *Record:
		return true
	case []any:
		return slices.ContainsFunc(t, containsRecord)
	case map[string]any:
		for _, e := range t {
			if containsRecord(e) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func formatFloat(f float64, bits int) string {
	if a := math.Abs(f); a != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
