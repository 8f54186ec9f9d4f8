package schema

// Scalar and container constructors. They return fresh nodes so callers can
// chain Nullable/WithPattern without sharing state.

func Any() *Schema       { return &Schema{Kind: KindEmpty} }
func Bool() *Schema      { return &Schema{Kind: KindBoolean} }
func String() *Schema    { return &Schema{Kind: KindString} }
func Timestamp() *Schema { return &Schema{Kind: KindTimestamp} }
func Float() *Schema     { return &Schema{Kind: KindFloat64} }

// Int returns an integer node of the given width kind (KindInt8..KindUint32).
func Int(k Kind) *Schema {
	if !k.IsInteger() {
		k = KindInt32
	}
	return &Schema{Kind: k}
}

// Enum returns a string enum node.
func Enum(values ...string) *Schema {
	return &Schema{Kind: KindEnum, Enum: append([]string(nil), values...)}
}

// Ref points at a named definition in the registry.
func Ref(name string) *Schema { return &Schema{Kind: KindRef, Ref: name} }

// ArrayOf returns an ordered sequence of elem.
func ArrayOf(elem *Schema) *Schema { return &Schema{Kind: KindElements, Elements: elem} }

// MapOf returns a keyed collection of elem.
func MapOf(elem *Schema) *Schema { return &Schema{Kind: KindValues, Values: elem} }

// AsNullable marks the node as accepting null and returns it.
func (s *Schema) AsNullable() *Schema {
	s.Nullable = true
	return s
}

// WithPattern attaches an identifier pattern (Go regexp syntax) to a string node.
func (s *Schema) WithPattern(p string) *Schema {
	s.Pattern = p
	return s
}

// Describe sets the description and returns the node.
func (s *Schema) Describe(d string) *Schema {
	s.Description = d
	return s
}

// ObjectBuilder assembles a record type in declaration order.
type ObjectBuilder struct {
	obj *Object
}

// FieldStep finishes a field declaration with its optionality.
type FieldStep struct {
	b    *ObjectBuilder
	name string
}

// NewObject starts a record type named name.
func NewObject(name string) *ObjectBuilder {
	return &ObjectBuilder{obj: &Object{Name: name}}
}

// Extend copies the fields of base objects in front of any fields declared so
// far. A field declared later with the same name replaces the inherited one.
func (b *ObjectBuilder) Extend(bases ...*Object) *ObjectBuilder {
	var inherited []Field
	for _, base := range bases {
		if base == nil {
			continue
		}
		inherited = append(inherited, base.Fields...)
	}
	own := b.obj.Fields
	b.obj.Fields = nil
	for _, f := range inherited {
		b.put(f)
	}
	for _, f := range own {
		b.put(f)
	}
	return b
}

// Field declares a field; it is required until Optional is called.
func (b *ObjectBuilder) Field(name string, s *Schema) *FieldStep {
	b.put(Field{Name: name, Schema: s})
	return &FieldStep{b: b, name: name}
}

// Required declares a required field.
func (b *ObjectBuilder) Required(name string, s *Schema) *ObjectBuilder {
	return b.Field(name, s).Required()
}

// Optional declares an optional field.
func (b *ObjectBuilder) Optional(name string, s *Schema) *ObjectBuilder {
	return b.Field(name, s).Optional()
}

// AllowAdditional mirrors JTD additionalProperties: true.
func (b *ObjectBuilder) AllowAdditional() *ObjectBuilder {
	b.obj.Additional = true
	return b
}

// Describe sets the record description.
func (b *ObjectBuilder) Describe(d string) *ObjectBuilder {
	b.obj.Description = d
	return b
}

// Object returns the assembled record type.
func (b *ObjectBuilder) Object() *Object {
	b.obj.reindex()
	return b.obj
}

// Build wraps the record type in a properties node.
func (b *ObjectBuilder) Build() *Schema {
	return &Schema{Kind: KindProperties, Object: b.Object()}
}

func (b *ObjectBuilder) put(f Field) {
	for i := range b.obj.Fields {
		if b.obj.Fields[i].Name == f.Name {
			b.obj.Fields[i] = f
			return
		}
	}
	b.obj.Fields = append(b.obj.Fields, f)
}

// Required marks the field as required.
func (f *FieldStep) Required() *ObjectBuilder {
	f.set(false)
	return f.b
}

// Optional marks the field as optional.
func (f *FieldStep) Optional() *ObjectBuilder {
	f.set(true)
	return f.b
}

func (f *FieldStep) set(optional bool) {
	for i := range f.b.obj.Fields {
		if f.b.obj.Fields[i].Name == f.name {
			f.b.obj.Fields[i].Optional = optional
		}
	}
}

// UnionBuilder assembles a discriminated family.
type UnionBuilder struct {
	u *Union
}

// NewUnion starts a family keyed by the tag field.
func NewUnion(name, tag string) *UnionBuilder {
	return &UnionBuilder{u: &Union{Name: name, Tag: tag, Variants: map[string]*Object{}}}
}

// Variant registers the record type selected by literal.
func (b *UnionBuilder) Variant(literal string, o *Object) *UnionBuilder {
	if o.Name == "" {
		o.Name = b.u.Name + pascal(literal)
	}
	b.u.Variants[literal] = o
	return b
}

// Union returns the assembled family.
func (b *UnionBuilder) Union() *Union {
	b.u.order = sortedKeys(b.u.Variants)
	return b.u
}

// Build wraps the family in a discriminator node.
func (b *UnionBuilder) Build() *Schema {
	return &Schema{Kind: KindDiscriminator, Union: b.Union()}
}
