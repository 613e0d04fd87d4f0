package typesystem

import (
	"sort"
	"strings"
)

// Union represents a union type (e.g. string | number).
// Members are normalized: flattened, deduplicated and sorted for comparison.
type Union struct {
	Members []Type // At least 2 types
	hash    uint64
}

func (u *Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		switch m.(type) {
		case *Function, *Conditional:
			parts[i] = "(" + m.String() + ")"
		default:
			parts[i] = m.String()
		}
	}
	return strings.Join(parts, " | ")
}
func (u *Union) Kind() Kind { return KindUnion }
func (u *Union) Hash() uint64 {
	if u.hash != 0 {
		return u.hash
	}
	return newHasher(KindUnion).types(u.Members).sum()
}
func (u *Union) typeNode() {}

// Contains reports whether t is one of the members.
func (u *Union) Contains(t Type) bool {
	for _, m := range u.Members {
		if Identical(m, t) {
			return true
		}
	}
	return false
}

// NewUnion creates a normalized union type.
// It flattens nested unions, drops never, lets any/unknown absorb their
// siblings, removes duplicates and literals already covered by their base
// primitive, and sorts members. A single remaining member is returned as is;
// no members at all is never.
func NewUnion(types ...Type) Type {
	flat := make([]Type, 0, len(types))
	var collect func(t Type)
	collect = func(t Type) {
		switch v := t.(type) {
		case nil:
		case *Union:
			for _, m := range v.Members {
				collect(m)
			}
		default:
			flat = append(flat, t)
		}
	}
	for _, t := range types {
		collect(t)
	}

	hasUnknown := false
	primitives := map[PrimitiveKind]bool{}
	for _, t := range flat {
		switch t.Kind() {
		case KindAny:
			return Any
		case KindUnknown:
			hasUnknown = true
		case KindPrimitive:
			primitives[t.(*Primitive).Name] = true
		}
	}
	if hasUnknown {
		return Unknown
	}

	seen := make(map[uint64][]Type)
	unique := make([]Type, 0, len(flat))
	for _, t := range flat {
		if t.Kind() == KindNever {
			continue
		}
		if lit, ok := t.(*Literal); ok && primitives[lit.Base] {
			continue
		}
		h := t.Hash()
		dup := false
		for _, prev := range seen[h] {
			if Identical(prev, t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], t)
		unique = append(unique, t)
	}

	switch len(unique) {
	case 0:
		return Never
	case 1:
		return unique[0]
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].String() < unique[j].String()
	})
	return &Union{Members: unique, hash: newHasher(KindUnion).types(unique).sum()}
}
