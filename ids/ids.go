// Package ids parses, derives and matches Datasworn identifiers:
//
//	type(.embed_type)*:package/key(/key)*(.embed_key)*
//
// The primary type and package/key path address a top-level node; each
// embedded type adds one dotted key (a dictionary key or a sequence index).
package ids

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	PathKeySep = "/"
	TypeSep    = "."
	PrefixSep  = ":"
	Wildcard   = "*"
	Globstar   = "**"

	// CollectionDepthMax bounds nested collections below the package key.
	CollectionDepthMax = 4
	CollectionDepthMin = 1
)

var (
	dictKey  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	indexKey = regexp.MustCompile(`^\d+$`)

	// ErrSyntax is wrapped by every Parse failure.
	ErrSyntax = errors.New("ids: invalid id")
	// ErrUnrelated is returned when a child type cannot live under a parent.
	ErrUnrelated = errors.New("ids: child type is not contained by parent")
)

// ID is a parsed identifier.
type ID struct {
	Types  []string // primary type followed by embedded types
	Path   []string // package followed by collection/item keys
	Embeds []string // one key per embedded type
}

// Parse parses s. Wildcard keys are accepted so patterns can be parsed too.
func Parse(s string) (ID, error) {
	prefix, rest, ok := strings.Cut(s, PrefixSep)
	if !ok {
		return ID{}, fmt.Errorf("%w %q: missing %q", ErrSyntax, s, PrefixSep)
	}
	types := strings.Split(prefix, TypeSep)
	for _, t := range types {
		if !dictKey.MatchString(t) {
			return ID{}, fmt.Errorf("%w %q: bad type %q", ErrSyntax, s, t)
		}
	}
	// embedded keys follow the last path key, split on TypeSep
	segs := strings.Split(rest, PathKeySep)
	last := strings.Split(segs[len(segs)-1], TypeSep)
	segs[len(segs)-1] = last[0]
	embeds := last[1:]
	if len(embeds) != len(types)-1 {
		return ID{}, fmt.Errorf("%w %q: %d embedded types but %d embedded keys", ErrSyntax, s, len(types)-1, len(embeds))
	}
	if len(segs) < 2 {
		return ID{}, fmt.Errorf("%w %q: path needs a package and a key", ErrSyntax, s)
	}
	if len(segs) > CollectionDepthMax+2 {
		return ID{}, fmt.Errorf("%w %q: path deeper than %d", ErrSyntax, s, CollectionDepthMax+2)
	}
	for _, k := range segs {
		if !validKey(k, true, false) {
			return ID{}, fmt.Errorf("%w %q: bad key %q", ErrSyntax, s, k)
		}
	}
	for _, k := range embeds {
		if !validKey(k, true, true) {
			return ID{}, fmt.Errorf("%w %q: bad embedded key %q", ErrSyntax, s, k)
		}
	}
	return ID{Types: types, Path: segs, Embeds: embeds}, nil
}

// MustParse is Parse that panics.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func validKey(k string, wildcards, index bool) bool {
	if wildcards && (k == Wildcard || k == Globstar) {
		return true
	}
	if index && indexKey.MatchString(k) {
		return true
	}
	return dictKey.MatchString(k)
}

// Type returns the full dotted type ("asset.ability").
func (id ID) Type() string { return strings.Join(id.Types, TypeSep) }

// Primary returns the primary (outermost) type.
func (id ID) Primary() string {
	if len(id.Types) == 0 {
		return ""
	}
	return id.Types[0]
}

// Package returns the rules package key.
func (id ID) Package() string {
	if len(id.Path) == 0 {
		return ""
	}
	return id.Path[0]
}

// Key returns the innermost key: the last embedded key, or the last path key.
func (id ID) Key() string {
	if n := len(id.Embeds); n > 0 {
		return id.Embeds[n-1]
	}
	if n := len(id.Path); n > 0 {
		return id.Path[n-1]
	}
	return ""
}

// IsWildcard reports whether any key is a wildcard or globstar.
func (id ID) IsWildcard() bool {
	for _, k := range append(append([]string{}, id.Path...), id.Embeds...) {
		if k == Wildcard || k == Globstar {
			return true
		}
	}
	return false
}

func (id ID) String() string {
	var b strings.Builder
	b.WriteString(id.Type())
	b.WriteString(PrefixSep)
	b.WriteString(strings.Join(id.Path, PathKeySep))
	for _, e := range id.Embeds {
		b.WriteString(TypeSep)
		b.WriteString(e)
	}
	return b.String()
}

// Child derives the id of a node of childType stored under key in the node
// identified by parent. Embedded children (childType = parent type + "." +
// embed type) append a dotted key; collection children append a path key.
func (id ID) Child(childType, key string) (ID, error) {
	parentType := id.Type()
	if embed, ok := strings.CutPrefix(childType, parentType+TypeSep); ok && !strings.Contains(embed, TypeSep) {
		if !CanEmbed(id.Types[len(id.Types)-1], embed) {
			return ID{}, fmt.Errorf("%w: %s cannot embed %s", ErrUnrelated, parentType, embed)
		}
		if !validKey(key, false, true) {
			return ID{}, fmt.Errorf("%w: bad embedded key %q", ErrSyntax, key)
		}
		return ID{
			Types:  append(append([]string{}, id.Types...), embed),
			Path:   append([]string{}, id.Path...),
			Embeds: append(append([]string{}, id.Embeds...), key),
		}, nil
	}
	if len(id.Embeds) > 0 || len(id.Types) != 1 {
		return ID{}, fmt.Errorf("%w: embedded %s has no collection children", ErrUnrelated, parentType)
	}
	if childType != parentType && CollectedBy(parentType) != childType {
		return ID{}, fmt.Errorf("%w: %s does not contain %s", ErrUnrelated, parentType, childType)
	}
	if !validKey(key, false, false) {
		return ID{}, fmt.Errorf("%w: bad key %q", ErrSyntax, key)
	}
	if len(id.Path)+1 > CollectionDepthMax+2 {
		return ID{}, fmt.Errorf("%w: path deeper than %d", ErrSyntax, CollectionDepthMax+2)
	}
	return ID{
		Types: []string{childType},
		Path:  append(append([]string{}, id.Path...), key),
	}, nil
}

// Derive is Child on string ids.
func Derive(parent, childType, key string) (string, error) {
	p, err := Parse(parent)
	if err != nil {
		return "", err
	}
	c, err := p.Child(childType, key)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
