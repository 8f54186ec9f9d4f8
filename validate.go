package dataskema

import (
	"strconv"

	"github.com/reoring/dataskema/ids"
	"github.com/reoring/dataskema/schema"
)

// validator re-checks a record tree that may have been built or edited in
// memory: required presence, identifier patterns and child id consistency.
type validator struct {
	issues   Issues
	failFast bool
}

func (v *validator) report(it Issue) {
	if v.failFast && len(v.issues) > 0 {
		return
	}
	v.issues = append(v.issues, it)
}

func (v *validator) record(r *Record, path string) {
	for _, f := range r.obj.Fields {
		val, present := r.fields[f.Name]
		if !present {
			if !f.Optional {
				v.report(MissingField(joinPointer(path, f.Name), r.obj.Name, f.Name))
			}
			continue
		}
		v.value(f.Schema, val, joinPointer(path, f.Name), site{typ: r.obj.Name, field: f.Name}, r)
	}
}

// value walks one field value. owner is the record holding the field; its
// `_id` is the parent id for keyed-collection and sequence children.
func (v *validator) value(s *schema.Schema, val any, path string, at site, owner *Record) {
	if val == nil {
		return
	}
	if re := s.PatternOf(); re != nil {
		if str, ok := val.(string); ok && !re.MatchString(str) {
			v.report(PatternViolation(path, at.typ, at.field, str, re.String()))
		}
	}
	rs := s.Resolve()
	switch rs.Kind {
	case schema.KindElements:
		items, _ := val.([]any)
		for i, it := range items {
			p := joinIndex(path, i)
			v.value(rs.Elements, it, p, at, owner)
			v.childID(owner, it, strconv.Itoa(i), p)
		}
	case schema.KindValues:
		m, _ := val.(map[string]any)
		for _, k := range sortedMapKeys(m) {
			p := joinPointer(path, k)
			v.value(rs.Values, m[k], p, at, owner)
			v.childID(owner, m[k], k, p)
		}
	case schema.KindProperties, schema.KindDiscriminator:
		if rec, ok := val.(*Record); ok && rec != nil {
			v.record(rec, path)
		}
	}
}

// childID checks that a child's `_id` equals the id derived from its parent's
// `_id` and the key it is stored under. Ids that do not parse are left to
// the pattern check.
func (v *validator) childID(owner *Record, child any, key, path string) {
	rec, ok := child.(*Record)
	if !ok || rec == nil || owner == nil {
		return
	}
	parentID, childID := owner.ID(), rec.ID()
	if parentID == "" || childID == "" {
		return
	}
	p, err := ids.Parse(parentID)
	if err != nil || p.IsWildcard() {
		return
	}
	c, err := ids.Parse(childID)
	if err != nil {
		return
	}
	want, err := p.Child(c.Type(), key)
	if err != nil {
		// children of an unrelated type are cross-references, not containment
		return
	}
	if want.String() != childID {
		v.report(newIssue(joinPointer(path, "_id"), CodeIDMismatch, map[string]any{
			"type": rec.TypeName(), "field": "_id", "value": childID, "expected": want.String(),
		}))
	}
}
