package schema

import (
	"math"
	"regexp"
	"strings"
)

// Kind identifies the JSON Typedef form of a schema node.
type Kind int

const (
	KindEmpty Kind = iota // any JSON value
	KindBoolean
	KindString
	KindTimestamp
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
	KindFloat64
	KindEnum
	KindRef
	KindElements
	KindValues
	KindProperties
	KindDiscriminator
)

var kindNames = [...]string{
	KindEmpty:         "empty",
	KindBoolean:       "boolean",
	KindString:        "string",
	KindTimestamp:     "timestamp",
	KindInt8:          "int8",
	KindUint8:         "uint8",
	KindInt16:         "int16",
	KindUint16:        "uint16",
	KindInt32:         "int32",
	KindUint32:        "uint32",
	KindFloat32:       "float32",
	KindFloat64:       "float64",
	KindEnum:          "enum",
	KindRef:           "ref",
	KindElements:      "elements",
	KindValues:        "values",
	KindProperties:    "properties",
	KindDiscriminator: "discriminator",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// KindFromType maps a JTD "type" keyword value to its Kind.
func KindFromType(t string) (Kind, bool) {
	switch t {
	case "boolean":
		return KindBoolean, true
	case "string":
		return KindString, true
	case "timestamp":
		return KindTimestamp, true
	case "int8":
		return KindInt8, true
	case "uint8":
		return KindUint8, true
	case "int16":
		return KindInt16, true
	case "uint16":
		return KindUint16, true
	case "int32":
		return KindInt32, true
	case "uint32":
		return KindUint32, true
	case "float32":
		return KindFloat32, true
	case "float64":
		return KindFloat64, true
	}
	return 0, false
}

// IsInteger reports whether k is one of the sized integer kinds.
func (k Kind) IsInteger() bool { return k >= KindInt8 && k <= KindUint32 }

// IsFloat reports whether k is float32 or float64.
func (k Kind) IsFloat() bool { return k == KindFloat32 || k == KindFloat64 }

// IntRange returns the inclusive bounds of an integer kind.
func (k Kind) IntRange() (lo, hi int64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindUint8:
		return 0, math.MaxUint8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindUint16:
		return 0, math.MaxUint16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	case KindUint32:
		return 0, math.MaxUint32
	}
	return math.MinInt64, math.MaxInt64
}

// Schema is one node of a descriptor tree. Exactly one form is populated
// according to Kind; Nullable and Description apply to every form.
type Schema struct {
	Kind        Kind
	Nullable    bool
	Enum        []string
	Ref         string
	Elements    *Schema
	Values      *Schema
	Object      *Object
	Union       *Union
	Pattern     string
	Description string

	target  *Schema
	pattern *regexp.Regexp
}

// Resolve follows ref nodes to the concrete schema. It returns s itself for
// non-ref nodes and for refs that were never resolved by Registry.Freeze.
func (s *Schema) Resolve() *Schema {
	cur := s
	for i := 0; cur != nil && cur.Kind == KindRef && cur.target != nil; i++ {
		if i > 64 {
			break
		}
		cur = cur.target
	}
	return cur
}

// AllowsNull reports whether null is accepted at this node, either on the
// node itself or on any ref it passes through.
func (s *Schema) AllowsNull() bool {
	for cur, i := s, 0; cur != nil && i <= 64; i++ {
		if cur.Nullable {
			return true
		}
		if cur.Kind != KindRef {
			return false
		}
		cur = cur.target
	}
	return false
}

// TypeName reports the definition name a ref points at, or the record/union
// name for inline forms. Empty for anonymous scalars and containers.
func (s *Schema) TypeName() string {
	switch s.Kind {
	case KindRef:
		return s.Ref
	case KindProperties:
		if s.Object != nil {
			return s.Object.Name
		}
	case KindDiscriminator:
		if s.Union != nil {
			return s.Union.Name
		}
	}
	return ""
}

// PatternOf returns the first pattern found on s or along its ref chain.
func (s *Schema) PatternOf() *regexp.Regexp {
	for cur, i := s, 0; cur != nil && i <= 64; i++ {
		if cur.pattern != nil {
			return cur.pattern
		}
		if cur.Kind != KindRef {
			return nil
		}
		cur = cur.target
	}
	return nil
}

// HasEnum reports whether v is one of the enum literals.
func (s *Schema) HasEnum(v string) bool {
	for _, e := range s.Enum {
		if e == v {
			return true
		}
	}
	return false
}

// Field is a named member of a record type.
type Field struct {
	Name     string
	Schema   *Schema
	Optional bool
}

// Object describes a record type: an ordered set of fields. The field order
// is the encode order.
type Object struct {
	Name        string
	Fields      []Field
	Additional  bool
	Description string

	index map[string]int
}

// Field looks up a declared field by wire key.
func (o *Object) Field(name string) (Field, bool) {
	if o.index == nil {
		for _, f := range o.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return Field{}, false
	}
	i, ok := o.index[name]
	if !ok {
		return Field{}, false
	}
	return o.Fields[i], true
}

// Position returns the declaration index of a field, or -1.
func (o *Object) Position(name string) int {
	if o.index != nil {
		if i, ok := o.index[name]; ok {
			return i
		}
		return -1
	}
	for i, f := range o.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Required lists required field names in declaration order.
func (o *Object) Required() []string {
	var out []string
	for _, f := range o.Fields {
		if !f.Optional {
			out = append(out, f.Name)
		}
	}
	return out
}

func (o *Object) reindex() {
	o.index = make(map[string]int, len(o.Fields))
	for i, f := range o.Fields {
		o.index[f.Name] = i
	}
}

// Union is a discriminated family: the value of Tag selects the variant.
// Variant objects never declare Tag themselves.
type Union struct {
	Name     string
	Tag      string
	Variants map[string]*Object
	order    []string
}

// Variant returns the variant registered under literal.
func (u *Union) Variant(literal string) (*Object, bool) {
	o, ok := u.Variants[literal]
	return o, ok
}

// Literals returns the discriminant literals in sorted order.
func (u *Union) Literals() []string {
	if u.order != nil {
		return append([]string(nil), u.order...)
	}
	return sortedKeys(u.Variants)
}

// pascal converts a snake_case literal to PascalCase ("table_text" -> "TableText").
func pascal(s string) string {
	var b strings.Builder
	up := true
	for _, r := range s {
		if r == '_' || r == '-' || r == '.' || r == ' ' {
			up = true
			continue
		}
		if up && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		up = false
		b.WriteRune(r)
	}
	return b.String()
}
