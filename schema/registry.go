package schema

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
)

var (
	// ErrFrozen is returned when a frozen registry is modified.
	ErrFrozen = errors.New("schema: registry is frozen")
	// ErrUnknownType is returned for lookups of undefined names.
	ErrUnknownType = errors.New("schema: unknown type")
)

// Registry holds named definitions. It is built once, frozen, and then shared
// read-only between goroutines.
type Registry struct {
	defs   map[string]*Schema
	order  []string
	unions map[string]*Union
	objs   map[string]*Object
	frozen bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*Schema{}}
}

// Define adds a named definition.
func (r *Registry) Define(name string, s *Schema) error {
	if r.frozen {
		return ErrFrozen
	}
	if name == "" {
		return errors.New("schema: empty definition name")
	}
	if s == nil {
		return fmt.Errorf("schema: definition %q is nil", name)
	}
	if _, dup := r.defs[name]; dup {
		return fmt.Errorf("schema: definition %q already defined", name)
	}
	r.defs[name] = s
	r.order = append(r.order, name)
	return nil
}

// MustDefine is Define that panics on error; intended for static descriptor sets.
func (r *Registry) MustDefine(name string, s *Schema) *Registry {
	if err := r.Define(name, s); err != nil {
		panic(err)
	}
	return r
}

// Freeze resolves refs, names anonymous records and unions, compiles
// patterns and indexes families. After Freeze the registry is read-only.
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}
	f := &freezer{reg: r, seen: map[*Schema]bool{}}
	r.unions = map[string]*Union{}
	r.objs = map[string]*Object{}
	for _, name := range r.order {
		s := r.defs[name]
		switch s.Kind {
		case KindProperties:
			if s.Object != nil && s.Object.Name == "" {
				s.Object.Name = name
			}
		case KindDiscriminator:
			if s.Union != nil && s.Union.Name == "" {
				s.Union.Name = name
			}
		}
		f.walk("definitions/"+name, s, name)
	}
	for _, name := range r.order {
		if err := r.checkRefChain(name); err != nil {
			f.errs = append(f.errs, err)
		}
	}
	if len(f.errs) > 0 {
		return errors.Join(f.errs...)
	}
	r.frozen = true
	return nil
}

// Frozen reports whether Freeze has completed successfully.
func (r *Registry) Frozen() bool { return r.frozen }

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	s, ok := r.defs[name]
	return s, ok
}

// Object returns the record type named name. Both top-level definitions and
// union variants are indexed.
func (r *Registry) Object(name string) (*Object, bool) {
	if o, ok := r.objs[name]; ok {
		return o, true
	}
	if s, ok := r.defs[name]; ok {
		if rs := s.Resolve(); rs.Kind == KindProperties {
			return rs.Object, true
		}
	}
	return nil, false
}

// Union returns the family named name.
func (r *Registry) Union(name string) (*Union, bool) {
	if u, ok := r.unions[name]; ok {
		return u, true
	}
	if s, ok := r.defs[name]; ok {
		if rs := s.Resolve(); rs.Kind == KindDiscriminator {
			return rs.Union, true
		}
	}
	return nil, false
}

// Variant resolves (family, discriminant literal) to the variant record type.
func (r *Registry) Variant(family, literal string) (*Object, bool) {
	u, ok := r.Union(family)
	if !ok {
		return nil, false
	}
	return u.Variant(literal)
}

// Names lists definition names in definition order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

// Unions lists every named family, including inline ones, sorted.
func (r *Registry) Unions() []string { return sortedKeys(r.unions) }

func (r *Registry) checkRefChain(name string) error {
	seen := map[string]bool{}
	cur := r.defs[name]
	for cur != nil && cur.Kind == KindRef {
		if seen[cur.Ref] {
			return fmt.Errorf("definitions/%s: ref cycle through %q", name, cur.Ref)
		}
		seen[cur.Ref] = true
		cur = r.defs[cur.Ref]
	}
	return nil
}

type freezer struct {
	reg  *Registry
	seen map[*Schema]bool
	errs []error
}

func (f *freezer) errorf(path, format string, args ...any) {
	f.errs = append(f.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

// walk visits a node; owner names anonymous records found beneath it.
func (f *freezer) walk(path string, s *Schema, owner string) {
	if s == nil {
		f.errorf(path, "nil schema")
		return
	}
	if f.seen[s] {
		return
	}
	f.seen[s] = true

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			f.errorf(path, "invalid pattern: %v", err)
		} else {
			s.pattern = re
		}
	}

	switch s.Kind {
	case KindRef:
		t, ok := f.reg.defs[s.Ref]
		if !ok {
			f.errorf(path, "%v %q", ErrUnknownType, s.Ref)
			return
		}
		s.target = t
	case KindEnum:
		if len(s.Enum) == 0 {
			f.errorf(path, "enum has no values")
		}
	case KindElements:
		f.walk(path+"/elements", s.Elements, owner)
	case KindValues:
		f.walk(path+"/values", s.Values, owner)
	case KindProperties:
		if s.Object == nil {
			f.errorf(path, "properties form without object")
			return
		}
		if s.Object.Name == "" {
			s.Object.Name = owner
		}
		f.object(path, s.Object)
	case KindDiscriminator:
		u := s.Union
		if u == nil {
			f.errorf(path, "discriminator form without union")
			return
		}
		if u.Name == "" {
			u.Name = owner
		}
		if u.Tag == "" {
			f.errorf(path, "discriminator without tag")
		}
		if prev, dup := f.reg.unions[u.Name]; dup && prev != u {
			f.errorf(path, "union name %q already used", u.Name)
		}
		f.reg.unions[u.Name] = u
		u.order = sortedKeys(u.Variants)
		for _, lit := range u.order {
			v := u.Variants[lit]
			if v == nil {
				f.errorf(path+"/mapping/"+lit, "nil variant")
				continue
			}
			if v.Name == "" {
				v.Name = u.Name + pascal(lit)
			}
			if _, clash := v.Field(u.Tag); clash {
				f.errorf(path+"/mapping/"+lit, "variant declares discriminator %q", u.Tag)
			}
			f.object(path+"/mapping/"+lit, v)
		}
	}
}

func (f *freezer) object(path string, o *Object) {
	// first record registered under a name wins lookups
	if _, dup := f.reg.objs[o.Name]; !dup {
		f.reg.objs[o.Name] = o
	}
	o.reindex()
	if len(o.index) != len(o.Fields) {
		f.errorf(path, "duplicate field names in %s", o.Name)
	}
	for _, fd := range o.Fields {
		f.walk(path+"/properties/"+fd.Name, fd.Schema, o.Name+pascal(fd.Name))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
