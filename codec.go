package dataskema

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	eng "github.com/reoring/dataskema/internal/engine"
	"github.com/reoring/dataskema/schema"
)

// Codec decodes, encodes and validates documents against a frozen registry.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	reg *schema.Registry
}

// NewCodec freezes reg if needed and returns a Codec over it.
func NewCodec(reg *schema.Registry) (*Codec, error) {
	if reg == nil {
		return nil, fmt.Errorf("dataskema: nil registry")
	}
	if !reg.Frozen() {
		if err := reg.Freeze(); err != nil {
			return nil, err
		}
	}
	return &Codec{reg: reg}, nil
}

// MustCodec is NewCodec that panics.
func MustCodec(reg *schema.Registry) *Codec {
	c, err := NewCodec(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// Registry returns the registry the codec reads.
func (c *Codec) Registry() *schema.Registry { return c.reg }

func (c *Codec) lookup(typeName string) (*schema.Schema, error) {
	s, ok := c.reg.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w %q", schema.ErrUnknownType, typeName)
	}
	return s, nil
}

// New returns an empty record of the named record type.
func (c *Codec) New(typeName string) (*Record, error) {
	obj, ok := c.reg.Object(typeName)
	if !ok {
		if _, isUnion := c.reg.Union(typeName); isUnion {
			return nil, fmt.Errorf("%w: %s is a union; use NewVariant", ErrNotRecord, typeName)
		}
		return nil, fmt.Errorf("%w %q", schema.ErrUnknownType, typeName)
	}
	return newRecord(obj), nil
}

// NewVariant returns an empty union member of family selected by literal.
func (c *Codec) NewVariant(family, literal string) (*Record, error) {
	u, ok := c.reg.Union(family)
	if !ok {
		return nil, fmt.Errorf("%w %q", schema.ErrUnknownType, family)
	}
	obj, ok := u.Variant(literal)
	if !ok {
		return nil, Issues{UnknownVariant("/"+u.Tag, family, literal)}
	}
	r := newRecord(obj)
	r.family, r.tag, r.literal = u.Name, u.Tag, literal
	return r, nil
}

// Decode reads one document from src and decodes it as typeName, which must
// name a record or union definition. On any issue no record is returned.
func (c *Codec) Decode(ctx context.Context, typeName string, src Source, opts ...Option) (*Record, error) {
	v, err := c.decodeSource(ctx, typeName, src, true, opts)
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*Record)
	if rec == nil {
		// a nullable root decoded from null
		return nil, Issues{TypeMismatch("", typeName, "", "object", "null")}
	}
	return rec, nil
}

// DecodeBytes decodes a JSON document.
func (c *Codec) DecodeBytes(ctx context.Context, typeName string, data []byte, opts ...Option) (*Record, error) {
	return c.Decode(ctx, typeName, JSONBytes(data), opts...)
}

// DecodeYAML decodes a YAML document.
func (c *Codec) DecodeYAML(ctx context.Context, typeName string, data []byte, opts ...Option) (*Record, error) {
	return c.Decode(ctx, typeName, YAMLBytes(data), opts...)
}

// DecodeReader decodes JSON from r. With MaxBytes set the size cap is
// enforced up front.
func (c *Codec) DecodeReader(ctx context.Context, typeName string, r io.Reader, opts ...Option) (*Record, error) {
	opt := buildOpt(opts)
	if opt.MaxBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
		if err != nil {
			return nil, singleIssue(CodeParseError, err.Error())
		}
		if int64(len(data)) > opt.MaxBytes {
			return nil, singleIssue(CodeTruncated, "max bytes exceeded")
		}
		return c.Decode(ctx, typeName, JSONBytes(data), opts...)
	}
	return c.Decode(ctx, typeName, JSONReader(r), opts...)
}

// DecodeValue decodes an already-parsed JSON value (as produced by
// encoding/json, go-json or yaml.v3) against any named definition. Records
// come back as *Record, sequences as []any, collections as map[string]any.
func (c *Codec) DecodeValue(ctx context.Context, typeName string, v any, opts ...Option) (any, error) {
	s, err := c.lookup(typeName)
	if err != nil {
		return nil, err
	}
	n, err := eng.FromAny(v)
	if err != nil {
		return nil, singleIssue(CodeParseError, err.Error())
	}
	return c.decodeNode(ctx, s, n, buildOpt(opts))
}

func (c *Codec) decodeSource(ctx context.Context, typeName string, src Source, recordOnly bool, opts []Option) (any, error) {
	s, err := c.lookup(typeName)
	if err != nil {
		return nil, err
	}
	if recordOnly {
		if k := s.Resolve().Kind; k != schema.KindProperties && k != schema.KindDiscriminator {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotRecord, typeName, k)
		}
	}
	opt := buildOpt(opts)
	if IsFailFast(ctx) {
		opt.FailFast = true
	}
	n, iss := readTree(src, opt)
	if len(iss) > 0 {
		return nil, iss
	}
	return c.decodeNode(ctx, s, n, opt)
}

func (c *Codec) decodeNode(ctx context.Context, s *schema.Schema, n *eng.Node, opt DecodeOpt) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsFailFast(ctx) {
		opt.FailFast = true
	}
	d := &decoder{opt: opt}
	v, ok := d.value(s, n, "", site{typ: s.TypeName()})
	if len(d.issues) > 0 {
		return nil, d.issues
	}
	if !ok {
		return nil, singleIssue(CodeParseError, "decode failed")
	}
	return v, nil
}

// Encode renders a record tree as JSON. It fails only for trees that could
// not have come from a successful decode: missing required fields, values of
// the wrong Go type, records of the wrong type.
func (c *Codec) Encode(ctx context.Context, r *Record, opts ...EncodeOpt) ([]byte, error) {
	if r == nil {
		return nil, singleIssue(CodeInvalidType, "nil record")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := &encoder{}
	e.record(r, "")
	if len(e.issues) > 0 {
		return nil, e.issues
	}
	out := e.buf.Bytes()
	if len(opts) > 0 && opts[len(opts)-1].Indent != "" {
		var ind bytes.Buffer
		if err := gojson.Indent(&ind, out, "", opts[len(opts)-1].Indent); err != nil {
			return nil, err
		}
		return ind.Bytes(), nil
	}
	return out, nil
}

// EncodeValue renders a value decoded by DecodeValue against typeName.
func (c *Codec) EncodeValue(ctx context.Context, typeName string, v any, opts ...EncodeOpt) ([]byte, error) {
	s, err := c.lookup(typeName)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := &encoder{}
	e.value(s, normalize(v), "", site{typ: s.TypeName()})
	if len(e.issues) > 0 {
		return nil, e.issues
	}
	out := e.buf.Bytes()
	if len(opts) > 0 && opts[len(opts)-1].Indent != "" {
		var ind bytes.Buffer
		if err := gojson.Indent(&ind, out, "", opts[len(opts)-1].Indent); err != nil {
			return nil, err
		}
		return ind.Bytes(), nil
	}
	return out, nil
}

// Validate re-checks a record tree: required fields, identifier patterns and
// consistency of child ids with their parent id and collection key.
func (c *Codec) Validate(ctx context.Context, r *Record) error {
	if r == nil {
		return singleIssue(CodeInvalidType, "nil record")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v := &validator{failFast: IsFailFast(ctx)}
	v.record(r, "")
	if len(v.issues) > 0 {
		return v.issues
	}
	return nil
}
