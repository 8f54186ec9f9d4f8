package dataskema

import (
	"math"
	"strconv"
	"strings"

	"github.com/reoring/dataskema/codec"
	eng "github.com/reoring/dataskema/internal/engine"
	"github.com/reoring/dataskema/schema"
)

// decoder walks a parsed tree against a descriptor. It has two record paths,
// object and union; every other form is a scalar or a container of those.
type decoder struct {
	opt    DecodeOpt
	issues Issues
	stop   bool
}

// site names the record type and field a value belongs to, for issue params.
type site struct {
	typ   string
	field string
}

func (d *decoder) report(it Issue, n *eng.Node) {
	if d.stop {
		return
	}
	if n != nil && it.Offset < 0 {
		it.Offset = n.Offset
	}
	d.issues = append(d.issues, it)
	if d.opt.FailFast {
		d.stop = true
	}
}

func (d *decoder) value(s *schema.Schema, n *eng.Node, path string, at site) (any, bool) {
	if d.stop {
		return nil, false
	}
	rs := s.Resolve()
	if n.Kind == eng.NodeNull {
		if s.AllowsNull() || rs.Kind == schema.KindEmpty {
			return nil, true
		}
		d.report(TypeMismatch(path, at.typ, at.field, expectedKind(rs), "null"), n)
		return nil, false
	}

	switch rs.Kind {
	case schema.KindEmpty:
		return eng.ToAny(n, d.opt.Numbers == NumberFloat64), true
	case schema.KindBoolean:
		if n.Kind != eng.NodeBool {
			d.report(TypeMismatch(path, at.typ, at.field, "boolean", n.Kind.String()), n)
			return nil, false
		}
		return n.Bool, true
	case schema.KindString, schema.KindTimestamp, schema.KindEnum:
		return d.str(s, rs, n, path, at)
	case schema.KindFloat32, schema.KindFloat64:
		if n.Kind != eng.NodeNumber {
			d.report(TypeMismatch(path, at.typ, at.field, "number", n.Kind.String()), n)
			return nil, false
		}
		bits := 64
		if rs.Kind == schema.KindFloat32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(n.Text, bits)
		if err != nil {
			d.report(overflow(path, at, n.Text, rs.Kind.String()), n)
			return nil, false
		}
		return f, true
	case schema.KindElements:
		if n.Kind != eng.NodeArray {
			d.report(TypeMismatch(path, at.typ, at.field, "array", n.Kind.String()), n)
			return nil, false
		}
		out := make([]any, 0, len(n.Items))
		ok := true
		for i, item := range n.Items {
			v, vok := d.value(rs.Elements, item, joinIndex(path, i), at)
			ok = ok && vok
			out = append(out, v)
		}
		return out, ok
	case schema.KindValues:
		if n.Kind != eng.NodeObject {
			d.report(TypeMismatch(path, at.typ, at.field, "object", n.Kind.String()), n)
			return nil, false
		}
		out := make(map[string]any, len(n.Keys))
		ok := true
		for _, k := range n.Keys {
			v, vok := d.value(rs.Values, n.Fields[k], joinPointer(path, k), at)
			ok = ok && vok
			out[k] = v
		}
		return out, ok
	case schema.KindProperties:
		rec, ok := d.record(rs.Object, n, path, at, "")
		if !ok {
			return nil, false
		}
		return rec, true
	case schema.KindDiscriminator:
		rec, ok := d.union(rs.Union, n, path, at)
		if !ok {
			return nil, false
		}
		return rec, true
	}
	if rs.Kind.IsInteger() {
		return d.integer(rs.Kind, n, path, at)
	}
	d.report(TypeMismatch(path, at.typ, at.field, rs.Kind.String(), n.Kind.String()), n)
	return nil, false
}

func (d *decoder) str(s, rs *schema.Schema, n *eng.Node, path string, at site) (any, bool) {
	if n.Kind != eng.NodeString {
		d.report(TypeMismatch(path, at.typ, at.field, "string", n.Kind.String()), n)
		return nil, false
	}
	switch rs.Kind {
	case schema.KindTimestamp:
		if _, err := codec.ParseRFC3339(n.Text); err != nil {
			it := newIssue(path, CodeInvalidFormat, map[string]any{
				"type": at.typ, "field": at.field, "expected": "timestamp", "value": n.Text,
			})
			it.Cause = err
			d.report(it, n)
			return nil, false
		}
	case schema.KindEnum:
		if !rs.HasEnum(n.Text) {
			it := newIssue(path, CodeInvalidEnum, map[string]any{
				"type": at.typ, "field": at.field, "expected": rs.Enum, "value": n.Text,
			})
			it.Hint = "one of: " + strings.Join(rs.Enum, ", ")
			d.report(it, n)
			return nil, false
		}
	}
	if d.opt.Patterns == PatternEnforce {
		if re := s.PatternOf(); re != nil && !re.MatchString(n.Text) {
			d.report(PatternViolation(path, at.typ, at.field, n.Text, re.String()), n)
			return nil, false
		}
	}
	return n.Text, true
}

func (d *decoder) integer(k schema.Kind, n *eng.Node, path string, at site) (any, bool) {
	if n.Kind != eng.NodeNumber {
		d.report(TypeMismatch(path, at.typ, at.field, "integer", n.Kind.String()), n)
		return nil, false
	}
	lo, hi := k.IntRange()
	i, err := strconv.ParseInt(n.Text, 10, 64)
	if err != nil {
		// JTD accepts integral numbers written with a fraction or exponent.
		f, ferr := strconv.ParseFloat(n.Text, 64)
		if ferr != nil || math.Trunc(f) != f {
			d.report(TypeMismatch(path, at.typ, at.field, "integer", "number"), n)
			return nil, false
		}
		if f < float64(lo) || f > float64(hi) {
			d.report(overflow(path, at, n.Text, k.String()), n)
			return nil, false
		}
		i = int64(f)
	}
	if i < lo || i > hi {
		d.report(overflow(path, at, n.Text, k.String()), n)
		return nil, false
	}
	return i, true
}

func overflow(path string, at site, value, kind string) Issue {
	return newIssue(path, CodeOverflow, map[string]any{
		"type": at.typ, "field": at.field, "expected": kind, "value": value,
	})
}

// record decodes an object against a record type. skip names the union
// discriminant, which is consumed by the caller.
func (d *decoder) record(obj *schema.Object, n *eng.Node, path string, at site, skip string) (*Record, bool) {
	if n.Kind != eng.NodeObject {
		d.report(TypeMismatch(path, at.typ, at.field, "object", n.Kind.String()), n)
		return nil, false
	}
	rec := newRecord(obj)
	ok := true
	for _, f := range obj.Fields {
		if d.stop {
			return nil, false
		}
		child, present := n.Fields[f.Name]
		if !present {
			if !f.Optional {
				d.report(MissingField(joinPointer(path, f.Name), obj.Name, f.Name), n)
				ok = false
			}
			continue
		}
		v, vok := d.value(f.Schema, child, joinPointer(path, f.Name), site{typ: obj.Name, field: f.Name})
		if !vok {
			ok = false
			continue
		}
		rec.fields[f.Name] = v
	}
	if d.opt.Unknown == UnknownStrict && !obj.Additional {
		for _, k := range n.Keys {
			if k == skip {
				continue
			}
			if _, declared := obj.Field(k); !declared {
				d.report(newIssue(joinPointer(path, k), CodeUnknownKey, map[string]any{"type": obj.Name, "field": k}), n.Fields[k])
				ok = false
			}
		}
	}
	if !ok {
		return nil, false
	}
	return rec, true
}

// union reads the discriminant first, then decodes the selected variant.
func (d *decoder) union(u *schema.Union, n *eng.Node, path string, at site) (*Record, bool) {
	if n.Kind != eng.NodeObject {
		d.report(TypeMismatch(path, at.typ, at.field, "object", n.Kind.String()), n)
		return nil, false
	}
	tagPath := joinPointer(path, u.Tag)
	tn, present := n.Fields[u.Tag]
	if !present {
		d.report(MissingField(tagPath, u.Name, u.Tag), n)
		return nil, false
	}
	if tn.Kind != eng.NodeString {
		d.report(TypeMismatch(tagPath, u.Name, u.Tag, "string", tn.Kind.String()), tn)
		return nil, false
	}
	variant, known := u.Variant(tn.Text)
	if !known {
		it := UnknownVariant(tagPath, u.Name, tn.Text)
		it.Params["expected"] = u.Literals()
		d.report(it, tn)
		return nil, false
	}
	rec, ok := d.record(variant, n, path, at, u.Tag)
	if !ok {
		return nil, false
	}
	rec.family, rec.tag, rec.literal = u.Name, u.Tag, tn.Text
	return rec, true
}

func expectedKind(s *schema.Schema) string {
	switch s.Kind {
	case schema.KindBoolean:
		return "boolean"
	case schema.KindString, schema.KindTimestamp, schema.KindEnum:
		return "string"
	case schema.KindElements:
		return "array"
	case schema.KindValues, schema.KindProperties, schema.KindDiscriminator:
		return "object"
	}
	if s.Kind.IsInteger() {
		return "integer"
	}
	if s.Kind.IsFloat() {
		return "number"
	}
	return s.Kind.String()
}
