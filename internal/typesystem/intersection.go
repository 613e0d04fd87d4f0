package typesystem

import (
	"sort"
	"strings"
)

// Intersection represents an intersection type (e.g. A & B).
type Intersection struct {
	Members []Type
	hash    uint64
}

func (it *Intersection) String() string {
	parts := make([]string, len(it.Members))
	for i, m := range it.Members {
		switch m.(type) {
		case *Union, *Function, *Conditional:
			parts[i] = "(" + m.String() + ")"
		default:
			parts[i] = m.String()
		}
	}
	return strings.Join(parts, " & ")
}
func (it *Intersection) Kind() Kind { return KindIntersection }
func (it *Intersection) Hash() uint64 {
	if it.hash != 0 {
		return it.hash
	}
	return newHasher(KindIntersection).types(it.Members).sum()
}
func (it *Intersection) typeNode() {}

// NewIntersection creates a normalized intersection type.
//
// never absorbs everything, any absorbs the rest, unknown is the identity.
// Unions are distributed ((A | B) & C = A & C | B & C), object shapes are
// merged, and among concrete members the narrower of two comparable types is
// kept while incompatible ones (two different literals, a literal and a
// foreign primitive, an object and a primitive) collapse to never. With no
// members left the result is {}.
func NewIntersection(types ...Type) Type {
	flat := make([]Type, 0, len(types))
	var collect func(t Type)
	collect = func(t Type) {
		switch v := t.(type) {
		case nil:
		case *Intersection:
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

	hasAny := false
	filtered := flat[:0]
	for _, t := range flat {
		switch t.Kind() {
		case KindNever:
			return Never
		case KindAny:
			hasAny = true
		case KindUnknown:
			continue
		}
		filtered = append(filtered, t)
	}
	if hasAny {
		return Any
	}
	flat = filtered

	for i, t := range flat {
		u, ok := t.(*Union)
		if !ok {
			continue
		}
		out := make([]Type, 0, len(u.Members))
		for _, m := range u.Members {
			rest := make([]Type, 0, len(flat))
			rest = append(rest, flat[:i]...)
			rest = append(rest, m)
			rest = append(rest, flat[i+1:]...)
			out = append(out, NewIntersection(rest...))
		}
		return NewUnion(out...)
	}

	var obj *Object
	others := make([]Type, 0, len(flat))
	for _, t := range flat {
		if o, ok := t.(*Object); ok {
			if obj == nil {
				obj = o
			} else {
				obj = mergeObjects(obj, o)
			}
			continue
		}
		others = append(others, t)
	}
	if obj != nil {
		others = append(others, obj)
	}

	unique := make([]Type, 0, len(others))
	for _, t := range others {
		dup := false
		for _, u := range unique {
			if Identical(t, u) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, t)
		}
	}

	reduced, ok := reduceIntersection(unique)
	if !ok {
		return Never
	}
	switch len(reduced) {
	case 0:
		return EmptyObject
	case 1:
		return reduced[0]
	}
	sort.SliceStable(reduced, func(i, j int) bool {
		return reduced[i].String() < reduced[j].String()
	})
	return &Intersection{Members: reduced, hash: newHasher(KindIntersection).types(reduced).sum()}
}

// reduceIntersection drops members implied by a narrower concrete member and
// reports false when two members can never hold at the same time.
func reduceIntersection(ts []Type) ([]Type, bool) {
	keep := make([]bool, len(ts))
	for i := range keep {
		keep[i] = true
	}
	rel := newRelation(nil)
	for i := range ts {
		for j := i + 1; j < len(ts); j++ {
			if !keep[i] || !keep[j] {
				continue
			}
			x, y := ts[i], ts[j]
			if !isConcrete(x) || !isConcrete(y) {
				continue
			}
			xy, yx := rel.isSubtype(x, y), rel.isSubtype(y, x)
			switch {
			case xy:
				keep[j] = false
			case yx:
				keep[i] = false
			case disjoint(x, y):
				return nil, false
			}
		}
	}
	out := make([]Type, 0, len(ts))
	for i, t := range ts {
		if keep[i] {
			out = append(out, t)
		}
	}
	return out, true
}

// primitiveClass reports the primitive a value-like type belongs to.
func primitiveClass(t Type) (PrimitiveKind, bool) {
	switch v := t.(type) {
	case *Primitive:
		return v.Name, true
	case *Literal:
		return v.Base, true
	case *Template:
		return PrimString, true
	}
	return 0, false
}

func isObjectLike(t Type) bool {
	switch t.(type) {
	case *Object, *Array, *Tuple, *Function:
		return true
	}
	return false
}

// disjoint is only asked about pairs where neither side is a subtype of the
// other.
func disjoint(x, y Type) bool {
	cx, okx := primitiveClass(x)
	cy, oky := primitiveClass(y)
	switch {
	case okx && oky:
		if cx != cy {
			return true
		}
		_, lx := x.(*Literal)
		_, ly := y.(*Literal)
		return lx || ly
	case okx:
		return isObjectLike(y)
	case oky:
		return isObjectLike(x)
	}
	return false
}
