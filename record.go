package dataskema

import (
	"errors"
	"fmt"

	"github.com/reoring/dataskema/schema"
)

var (
	// ErrUnknownField is returned by Record.Set for keys the record type does not declare.
	ErrUnknownField = errors.New("dataskema: field not declared")
	// ErrNotRecord is returned when a definition does not describe a record or union.
	ErrNotRecord = errors.New("dataskema: definition is not a record type")
)

// Record is one node of a decoded document: a typed record holding only the
// fields that are present. Union members also remember their family and
// discriminant literal.
//
// Field values are string, bool, int64, float64, nil (present-and-null),
// *Record, []any (ordered sequence), map[string]any (keyed collection) or
// raw JSON values (json.Number, map[string]any, []any) for untyped fields.
type Record struct {
	obj     *schema.Object
	family  string
	tag     string
	literal string
	fields  map[string]any
}

func newRecord(obj *schema.Object) *Record {
	return &Record{obj: obj, fields: map[string]any{}}
}

// Type returns the record type descriptor.
func (r *Record) Type() *schema.Object { return r.obj }

// TypeName returns the record type name (for union members, the variant name).
func (r *Record) TypeName() string {
	if r.obj == nil {
		return ""
	}
	return r.obj.Name
}

// Family returns the union name for union members, "" otherwise.
func (r *Record) Family() string { return r.family }

// Discriminant returns the discriminant key and literal of a union member.
func (r *Record) Discriminant() (key, literal string, ok bool) {
	if r.family == "" {
		return "", "", false
	}
	return r.tag, r.literal, true
}

// Get returns a present field. The discriminant key of a union member reads
// as its literal.
func (r *Record) Get(key string) (any, bool) {
	if r.family != "" && key == r.tag {
		return r.literal, true
	}
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores a field value after normalizing Go scalars and containers. Only
// declared fields can be set; the discriminant of a union member is fixed.
func (r *Record) Set(key string, v any) error {
	if r.family != "" && key == r.tag {
		return fmt.Errorf("%w: %s is the discriminant of %s", ErrUnknownField, key, r.family)
	}
	if _, ok := r.obj.Field(key); !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, r.TypeName(), key)
	}
	r.fields[key] = normalize(v)
	return nil
}

// MustSet is Set that panics; it returns r for chaining in tests and fixtures.
func (r *Record) MustSet(key string, v any) *Record {
	if err := r.Set(key, v); err != nil {
		panic(err)
	}
	return r
}

// Unset removes a field so that it is omitted on encode.
func (r *Record) Unset(key string) { delete(r.fields, key) }

// Keys lists present keys in encode order: the discriminant first, then
// fields in declaration order.
func (r *Record) Keys() []string {
	out := make([]string, 0, len(r.fields)+1)
	if r.family != "" {
		out = append(out, r.tag)
	}
	for _, f := range r.obj.Fields {
		if _, ok := r.fields[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Len returns the number of present keys, discriminant included.
func (r *Record) Len() int { return len(r.Keys()) }

// String returns a string field.
func (r *Record) String(key string) (string, bool) {
	v, ok := r.Get(key)
	s, isStr := v.(string)
	return s, ok && isStr
}

// Int returns an integer field.
func (r *Record) Int(key string) (int64, bool) {
	v, ok := r.fields[key]
	i, isInt := v.(int64)
	return i, ok && isInt
}

// Float returns a float field; integers widen.
func (r *Record) Float(key string) (float64, bool) {
	switch t := r.fields[key].(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Bool returns a boolean field.
func (r *Record) Bool(key string) (bool, bool) {
	b, ok := r.fields[key].(bool)
	return b, ok
}

// Record returns a nested record field.
func (r *Record) Record(key string) (*Record, bool) {
	c, ok := r.fields[key].(*Record)
	return c, ok && c != nil
}

// Sequence returns an ordered-sequence field.
func (r *Record) Sequence(key string) ([]any, bool) {
	s, ok := r.fields[key].([]any)
	return s, ok
}

// Collection returns a keyed-collection field.
func (r *Record) Collection(key string) (map[string]any, bool) {
	m, ok := r.fields[key].(map[string]any)
	return m, ok
}

// ID returns the `_id` field, "" when absent.
func (r *Record) ID() string {
	s, _ := r.String("_id")
	return s
}

// Equal reports field-for-field equality, including record types and
// discriminants.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.obj != o.obj || r.family != o.family || r.literal != o.literal || len(r.fields) != len(o.fields) {
		return false
	}
	for k, v := range r.fields {
		ov, ok := o.fields[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{obj: r.obj, family: r.family, tag: r.tag, literal: r.literal, fields: make(map[string]any, len(r.fields))}
	for k, v := range r.fields {
		c.fields[k] = cloneValue(v)
	}
	return c
}
