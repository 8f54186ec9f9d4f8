// Package dataskema decodes, encodes and validates Datasworn documents
// against a schema registry.
//
// A registry (package schema) holds named definitions: primitives, enums,
// sequences, keyed collections, records and discriminated unions. It is
// built once, frozen, and then shared read-only. Codec drives every
// operation against a frozen registry:
//
//   - Decode reads a JSON or YAML document into a *Record tree. Unknown keys
//     are dropped, absent optional fields stay absent, and every problem is
//     reported as an Issue with a JSON Pointer.
//   - Encode renders a tree back to JSON with the discriminant first and
//     fields in declaration order. Absent fields are never written.
//   - Validate re-checks an in-memory tree: required presence, identifier
//     patterns and child id consistency.
//
// Typical usage:
//
//	c := dataskema.MustCodec(datasworn.Registry())
//	rec, err := c.DecodeBytes(ctx, datasworn.Npc, data)
//	out, err := c.Encode(ctx, rec)
//
// Sources are pluggable: JSONBytes/JSONReader use the go-json tokenizer by
// default (StdJSONDriver switches to encoding/json), YAMLBytes walks a
// yaml.v3 document. All of them feed the same duplicate-key, depth and size
// enforcement.
package dataskema
