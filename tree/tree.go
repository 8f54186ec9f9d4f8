// Package tree walks decoded record trees and indexes them by `_id`.
package tree

import (
	"errors"
	"slices"

	"github.com/reoring/dataskema"
	"github.com/reoring/dataskema/ids"
)

// SkipChildren can be returned by a WalkFunc to skip the records below the
// current one.
var SkipChildren = errors.New("tree: skip children")

// WalkFunc is called for every record with its JSON Pointer ("/" for the root).
type WalkFunc func(path string, r *dataskema.Record) error

// Walk visits r and every record nested below it, depth first, fields in
// declaration order, sequences in order and keyed collections by sorted key.
func Walk(r *dataskema.Record, fn WalkFunc) error {
	if r == nil {
		return nil
	}
	err := walkRecord(r, dataskema.Root(), fn)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	return err
}

func walkRecord(r *dataskema.Record, at dataskema.PathRef, fn WalkFunc) error {
	if err := fn(at.Pointer(), r); err != nil {
		return err
	}
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		if err := walkValue(v, at.Field(k), fn); err != nil {
			return err
		}
	}
	return nil
}

func walkValue(v any, at dataskema.PathRef, fn WalkFunc) error {
	switch t := v.(type) {
	case *dataskema.Record:
		if t == nil {
			return nil
		}
		err := walkRecord(t, at, fn)
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	case []any:
		for i, e := range t {
			if err := walkValue(e, at.Index(i), fn); err != nil {
				return err
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := walkValue(t[k], at.Field(k), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Entry is one indexed record.
type Entry struct {
	ID     string
	Path   string
	Record *dataskema.Record
}

// Index maps `_id` values to the records carrying them. It is the resolver
// for cross-reference fields (`replaces`, `enhances`, oracle and move links),
// which the decoder leaves as plain strings.
type Index struct {
	byID  map[string]Entry
	order []string
}

// NewIndex indexes every record below root that has an `_id`. When two
// records share an id, the first one in walk order wins.
func NewIndex(root *dataskema.Record) *Index {
	ix := &Index{byID: map[string]Entry{}}
	_ = Walk(root, func(path string, r *dataskema.Record) error {
		id := r.ID()
		if id == "" {
			return nil
		}
		if _, dup := ix.byID[id]; dup {
			return nil
		}
		ix.byID[id] = Entry{ID: id, Path: path, Record: r}
		ix.order = append(ix.order, id)
		return nil
	})
	return ix
}

// Len returns the number of indexed ids.
func (ix *Index) Len() int { return len(ix.order) }

// Lookup returns the record with the given id.
func (ix *Index) Lookup(id string) (Entry, bool) {
	e, ok := ix.byID[id]
	return e, ok
}

// Match returns every record whose id is addressed by the wildcard pattern,
// in walk order. An invalid pattern matches nothing.
func (ix *Index) Match(pattern string) []Entry {
	p, err := ids.Parse(pattern)
	if err != nil {
		return nil
	}
	if !p.IsWildcard() {
		if e, ok := ix.byID[p.String()]; ok {
			return []Entry{e}
		}
		return nil
	}
	var out []Entry
	for _, id := range ix.order {
		parsed, err := ids.Parse(id)
		if err != nil {
			continue
		}
		if ids.Match(p, parsed) {
			out = append(out, ix.byID[id])
		}
	}
	return out
}

// IDs lists indexed ids in walk order.
func (ix *Index) IDs() []string { return slices.Clone(ix.order) }
