// Package jtd loads JSON Typedef documents (JSON or YAML) into a frozen
// schema.Registry.
package jtd

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/dataskema/schema"
)

// Form is the wire shape of a JTD schema node. Keys outside the JTD
// vocabulary are ignored.
type Form struct {
	Definitions          map[string]*Form `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Metadata             *Metadata        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Nullable             bool             `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Ref                  *string          `json:"ref,omitempty" yaml:"ref,omitempty"`
	Type                 string           `json:"type,omitempty" yaml:"type,omitempty"`
	Enum                 []string         `json:"enum,omitempty" yaml:"enum,omitempty"`
	Elements             *Form            `json:"elements,omitempty" yaml:"elements,omitempty"`
	Values               *Form            `json:"values,omitempty" yaml:"values,omitempty"`
	Properties           map[string]*Form `json:"properties,omitempty" yaml:"properties,omitempty"`
	OptionalProperties   map[string]*Form `json:"optionalProperties,omitempty" yaml:"optionalProperties,omitempty"`
	AdditionalProperties bool             `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	Discriminator        string           `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
	Mapping              map[string]*Form `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

// Metadata carries the extension keywords understood by the loader.
type Metadata struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Mixins      []string `json:"mixins,omitempty" yaml:"mixins,omitempty"`
}

// Parse decodes a JTD document. JSON input (first non-space byte '{') is read
// with go-json, anything else as YAML.
func Parse(data []byte) (*Form, error) {
	var root Form
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("jtd: empty document")
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return nil, fmt.Errorf("jtd: decode json: %w", err)
		}
		return &root, nil
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("jtd: decode yaml: %w", err)
	}
	return &root, nil
}

// Load parses a JTD document and returns its definitions as a frozen registry.
func Load(data []byte) (*schema.Registry, error) {
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(root)
}

// Build converts a parsed root form into a frozen registry.
func Build(root *Form) (*schema.Registry, error) {
	if root == nil || len(root.Definitions) == 0 {
		return nil, errors.New("jtd: document has no definitions")
	}
	b := &builder{root: root, done: map[string]*schema.Schema{}, mixing: map[string]bool{}}
	names := make([]string, 0, len(root.Definitions))
	for name := range root.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := schema.NewRegistry()
	for _, name := range names {
		s, err := b.definition(name)
		if err != nil {
			return nil, err
		}
		if err := reg.Define(name, s); err != nil {
			return nil, err
		}
	}
	if err := reg.Freeze(); err != nil {
		return nil, fmt.Errorf("jtd: %w", err)
	}
	return reg, nil
}

type builder struct {
	root   *Form
	done   map[string]*schema.Schema
	mixing map[string]bool
}

func (b *builder) definition(name string) (*schema.Schema, error) {
	if s, ok := b.done[name]; ok {
		return s, nil
	}
	f, ok := b.root.Definitions[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("jtd: definitions/%s: %w", name, schema.ErrUnknownType)
	}
	if b.mixing[name] {
		return nil, fmt.Errorf("jtd: definitions/%s: mixin cycle", name)
	}
	b.mixing[name] = true
	defer delete(b.mixing, name)

	s, err := b.convert("definitions/"+name, f, name)
	if err != nil {
		return nil, err
	}
	b.done[name] = s
	return s, nil
}

func (b *builder) convert(path string, f *Form, name string) (*schema.Schema, error) {
	if f == nil {
		return nil, fmt.Errorf("jtd: %s: null schema", path)
	}
	s := &schema.Schema{Nullable: f.Nullable}
	if md := f.Metadata; md != nil {
		s.Description = md.Description
		s.Pattern = md.Pattern
	}

	switch {
	case f.Ref != nil:
		s.Kind = schema.KindRef
		s.Ref = *f.Ref
		if _, ok := b.root.Definitions[s.Ref]; !ok {
			return nil, fmt.Errorf("jtd: %s: ref to undefined %q", path, s.Ref)
		}
	case f.Type != "":
		k, ok := schema.KindFromType(f.Type)
		if !ok {
			return nil, fmt.Errorf("jtd: %s: unknown type %q", path, f.Type)
		}
		s.Kind = k
	case f.Enum != nil:
		if len(f.Enum) == 0 {
			return nil, fmt.Errorf("jtd: %s: empty enum", path)
		}
		s.Kind = schema.KindEnum
		s.Enum = append([]string(nil), f.Enum...)
	case f.Elements != nil:
		el, err := b.convert(path+"/elements", f.Elements, name)
		if err != nil {
			return nil, err
		}
		s.Kind = schema.KindElements
		s.Elements = el
	case f.Values != nil:
		v, err := b.convert(path+"/values", f.Values, name)
		if err != nil {
			return nil, err
		}
		s.Kind = schema.KindValues
		s.Values = v
	case f.Discriminator != "":
		u, err := b.union(path, f, name)
		if err != nil {
			return nil, err
		}
		s.Kind = schema.KindDiscriminator
		s.Union = u
	case f.Properties != nil || f.OptionalProperties != nil || hasMixins(f):
		o, err := b.object(path, f, name, "")
		if err != nil {
			return nil, err
		}
		s.Kind = schema.KindProperties
		s.Object = o
	default:
		s.Kind = schema.KindEmpty
	}
	return s, nil
}

func hasMixins(f *Form) bool { return f.Metadata != nil && len(f.Metadata.Mixins) > 0 }

// object builds a record type. Fields are ordered the way jtd-codegen emits
// them: required keys sorted, then optional keys sorted. Mixin fields merge
// in before ordering; own fields override inherited ones.
func (b *builder) object(path string, f *Form, name, tag string) (*schema.Object, error) {
	title := name
	if f.Metadata != nil && f.Metadata.Title != "" {
		title = f.Metadata.Title
	}
	fields := map[string]schema.Field{}
	if hasMixins(f) {
		for _, mix := range f.Metadata.Mixins {
			ms, err := b.definition(mix)
			if err != nil {
				return nil, fmt.Errorf("jtd: %s: mixin %q: %w", path, mix, err)
			}
			if ms.Kind != schema.KindProperties || ms.Object == nil {
				return nil, fmt.Errorf("jtd: %s: mixin %q is not a properties form", path, mix)
			}
			for _, fd := range ms.Object.Fields {
				fields[fd.Name] = fd
			}
		}
	}
	for key, sub := range f.Properties {
		child, err := b.convert(path+"/properties/"+key, sub, title+pascalLiteral(key))
		if err != nil {
			return nil, err
		}
		fields[key] = schema.Field{Name: key, Schema: child}
	}
	for key, sub := range f.OptionalProperties {
		if _, dup := f.Properties[key]; dup {
			return nil, fmt.Errorf("jtd: %s: %q is both required and optional", path, key)
		}
		child, err := b.convert(path+"/optionalProperties/"+key, sub, title+pascalLiteral(key))
		if err != nil {
			return nil, err
		}
		fields[key] = schema.Field{Name: key, Schema: child, Optional: true}
	}
	if tag != "" {
		delete(fields, tag)
	}

	ob := schema.NewObject(title)
	if f.Metadata != nil {
		ob.Describe(f.Metadata.Description)
	}
	if f.AdditionalProperties {
		ob.AllowAdditional()
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, c string) int {
		fa, fc := fields[a], fields[c]
		if fa.Optional != fc.Optional {
			if fa.Optional {
				return 1
			}
			return -1
		}
		switch {
		case a < c:
			return -1
		case a > c:
			return 1
		}
		return 0
	})
	for _, k := range keys {
		fd := fields[k]
		step := ob.Field(fd.Name, fd.Schema)
		if fd.Optional {
			step.Optional()
		}
	}
	return ob.Object(), nil
}

func (b *builder) union(path string, f *Form, name string) (*schema.Union, error) {
	if len(f.Mapping) == 0 {
		return nil, fmt.Errorf("jtd: %s: discriminator without mapping", path)
	}
	ub := schema.NewUnion(name, f.Discriminator)
	lits := make([]string, 0, len(f.Mapping))
	for lit := range f.Mapping {
		lits = append(lits, lit)
	}
	sort.Strings(lits)
	for _, lit := range lits {
		vf := f.Mapping[lit]
		if vf == nil {
			return nil, fmt.Errorf("jtd: %s/mapping/%s: null variant", path, lit)
		}
		if vf.Nullable {
			return nil, fmt.Errorf("jtd: %s/mapping/%s: variant must not be nullable", path, lit)
		}
		if _, clash := vf.Properties[f.Discriminator]; clash {
			return nil, fmt.Errorf("jtd: %s/mapping/%s: variant redeclares %q", path, lit, f.Discriminator)
		}
		if _, clash := vf.OptionalProperties[f.Discriminator]; clash {
			return nil, fmt.Errorf("jtd: %s/mapping/%s: variant redeclares %q", path, lit, f.Discriminator)
		}
		vname := name + pascalLiteral(lit)
		o, err := b.object(path+"/mapping/"+lit, vf, vname, f.Discriminator)
		if err != nil {
			return nil, err
		}
		ub.Variant(lit, o)
	}
	return ub.Union(), nil
}

func pascalLiteral(s string) string {
	out := make([]byte, 0, len(s))
	up := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c == '-' || c == '.' {
			up = true
			continue
		}
		if up && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		up = false
		out = append(out, c)
	}
	return string(out)
}
