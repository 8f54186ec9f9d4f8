// Package jsonschema projects a schema registry onto a JSON Schema document
// for editors and external validators.
package jsonschema

import (
	"errors"
	"fmt"

	"github.com/reoring/dataskema/schema"
)

// Draft is the dialect written to $schema.
const Draft = "https://json-schema.org/draft/2020-12/schema"

var (
	// ErrUnknownDefinition is returned by FromDefinition for names the
	// registry does not define.
	ErrUnknownDefinition = errors.New("jsonschema: unknown definition")
	// ErrNameClash is returned when a union variant would be written to
	// $defs under a name another definition or variant already holds.
	ErrNameClash = errors.New("jsonschema: $defs name clash")
)

// FromRegistry exports every definition of reg under $defs. Unions become
// oneOf over their variants; each variant requires its discriminant as a
// const. Variant record types are added to $defs under their own names.
func FromRegistry(reg *schema.Registry) (*Schema, error) {
	x := &exporter{defs: map[string]*Schema{}, owner: map[string]string{}}
	names := reg.Names()
	for _, name := range names {
		x.owner[name] = "definition " + name
	}
	for _, name := range names {
		s, _ := reg.Lookup(name)
		x.defs[name] = x.node(s)
	}
	if x.err != nil {
		return nil, x.err
	}
	return &Schema{Schema: Draft, Defs: x.defs}, nil
}

// FromDefinition exports one definition as the document root; $defs still
// carries the whole registry so refs resolve.
func FromDefinition(reg *schema.Registry, name string) (*Schema, error) {
	if _, ok := reg.Lookup(name); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownDefinition, name)
	}
	doc, err := FromRegistry(reg)
	if err != nil {
		return nil, err
	}
	doc.Ref = "#/$defs/" + name
	return doc, nil
}

type exporter struct {
	defs map[string]*Schema
	// owner names what holds each $defs entry
	owner map[string]string
	err   error
}

// node expands records and unions in place; only definitions and union
// variants are addressable through $ref.
func (x *exporter) node(s *schema.Schema) *Schema {
	out := x.bare(s)
	if s.Description != "" && out.Description == "" && out.Ref == "" {
		out.Description = s.Description
	}
	if s.Nullable {
		return nullable(out)
	}
	return out
}

func (x *exporter) bare(s *schema.Schema) *Schema {
	switch s.Kind {
	case schema.KindRef:
		return &Schema{Ref: "#/$defs/" + s.Ref}
	case schema.KindEmpty:
		return &Schema{}
	case schema.KindBoolean:
		return &Schema{Type: "boolean"}
	case schema.KindString:
		return &Schema{Type: "string", Pattern: s.Pattern}
	case schema.KindTimestamp:
		return &Schema{Type: "string", Format: "date-time"}
	case schema.KindEnum:
		vals := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			vals[i] = v
		}
		return &Schema{Type: "string", Enum: vals}
	case schema.KindFloat32, schema.KindFloat64:
		return &Schema{Type: "number"}
	case schema.KindElements:
		return &Schema{Type: "array", Items: x.node(s.Elements)}
	case schema.KindValues:
		return &Schema{Type: "object", AdditionalProperties: x.node(s.Values)}
	case schema.KindProperties:
		return x.object(s.Object, "", "")
	case schema.KindDiscriminator:
		return x.union(s.Union)
	}
	if s.Kind.IsInteger() {
		lo, hi := s.Kind.IntRange()
		return &Schema{Type: "integer", Minimum: &lo, Maximum: &hi}
	}
	return &Schema{}
}

// object exports a record type. tag/literal, when set, add the union
// discriminant as a required const property.
func (x *exporter) object(o *schema.Object, tag, literal string) *Schema {
	out := &Schema{
		Type:        "object",
		Title:       o.Name,
		Description: o.Description,
		Properties:  map[string]*Schema{},
	}
	if !o.Additional {
		out.AdditionalProperties = false
	}
	if tag != "" {
		out.Properties[tag] = &Schema{Const: literal}
		out.Required = append(out.Required, tag)
	}
	for _, f := range o.Fields {
		out.Properties[f.Name] = x.node(f.Schema)
		if !f.Optional {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

func (x *exporter) union(u *schema.Union) *Schema {
	out := &Schema{Type: "object", Title: u.Name}
	for _, lit := range u.Literals() {
		v, _ := u.Variant(lit)
		me := fmt.Sprintf("variant %s[%s]", u.Name, lit)
		switch held, taken := x.owner[v.Name]; {
		case !taken:
			x.owner[v.Name] = me
			x.defs[v.Name] = x.object(v, u.Tag, lit)
		case held != me && x.err == nil:
			x.err = fmt.Errorf("%w: %s is both %s and %s", ErrNameClash, v.Name, held, me)
		}
		out.OneOf = append(out.OneOf, &Schema{Ref: "#/$defs/" + v.Name})
	}
	return out
}

func nullable(s *Schema) *Schema {
	if t, ok := s.Type.(string); ok && s.Ref == "" && s.OneOf == nil {
		s.Type = []string{t, "null"}
		if s.Enum != nil {
			s.Enum = append(s.Enum, nil)
		}
		return s
	}
	return &Schema{OneOf: []*Schema{s, {Type: "null"}}}
}
