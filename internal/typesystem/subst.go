package typesystem

import (
	"sort"
	"strings"
)

// Subst maps type parameter names to their bindings.
type Subst map[string]Type

func (s Subst) Clone() Subst {
	out := make(Subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a copy of s extended by other; other wins on conflicts.
func (s Subst) Merge(other Subst) Subst {
	out := make(Subst, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (s Subst) without(names []string) Subst {
	drop := false
	for _, n := range names {
		if _, ok := s[n]; ok {
			drop = true
			break
		}
	}
	if !drop {
		return s
	}
	out := s.Clone()
	for _, n := range names {
		delete(out, n)
	}
	return out
}

func (s Subst) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " := " + s[name].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Substitute replaces every type parameter bound by s. Unbound parameters
// are left as they are, so partial substitution is fine. A replacement that
// mentions another bound parameter is substituted in turn; a parameter that
// is already being expanded is left in place, which keeps cyclic bindings
// finite.
//
// Infer placeholders are never replaced, and names they declare shadow s
// inside the true branch of their conditional. A distributive conditional
// whose checked parameter becomes a union is split into one conditional per
// member.
func Substitute(t Type, s Subst) Type {
	if t == nil || len(s) == 0 || !mentions(t, s) {
		return t
	}
	sub := &substituter{bindings: s, chain: true, expanding: map[string]bool{}}
	return sub.apply(t)
}

// substituteOnce replaces bound parameters simultaneously: replacements are
// taken as they are. Alias expansion uses it so that arguments mentioning
// parameters of the same name are not rewritten a second time.
func substituteOnce(t Type, s Subst) Type {
	if t == nil || len(s) == 0 || !mentions(t, s) {
		return t
	}
	sub := &substituter{bindings: s, expanding: map[string]bool{}}
	return sub.apply(t)
}

type substituter struct {
	bindings  Subst
	chain     bool
	expanding map[string]bool
}

func (sub *substituter) with(s Subst) *substituter {
	return &substituter{bindings: s, chain: sub.chain, expanding: sub.expanding}
}

func (sub *substituter) apply(t Type) Type {
	switch v := t.(type) {
	case *Param:
		rep, ok := sub.bindings[v.Name]
		if !ok || rep == nil || sub.expanding[v.Name] {
			return v
		}
		if !sub.chain {
			return rep
		}
		sub.expanding[v.Name] = true
		out := sub.apply(rep)
		delete(sub.expanding, v.Name)
		return out
	case *Conditional:
		return sub.conditional(v)
	}
	return rebuild(t, sub.apply)
}

func (sub *substituter) conditional(c *Conditional) Type {
	if p, ok := c.Check.(*Param); ok && c.Distribute {
		if bound, ok := sub.bindings[p.Name]; ok && bound != nil && !sub.expanding[p.Name] {
			var alternatives []Type
			switch b := sub.apply(p).(type) {
			case *Union:
				alternatives = b.Members
			case *Primitive:
				if b.Name == PrimBoolean {
					alternatives = []Type{False, True}
				}
			case *Sentinel:
				if b.Kind() == KindNever {
					return Never
				}
			}
			if alternatives != nil {
				out := make([]Type, 0, len(alternatives))
				for _, m := range alternatives {
					s := sub.bindings.Clone()
					s[p.Name] = m
					out = append(out, sub.with(s).conditional(c))
				}
				return NewUnion(out...)
			}
		}
	}

	check := sub.apply(c.Check)
	extends := sub.apply(c.Extends)
	els := sub.apply(c.Else)
	then := sub.with(sub.bindings.without(inferNames(c.Extends))).apply(c.Then)
	_, distribute := check.(*Param)
	return newConditional(check, extends, then, els, distribute && c.Distribute)
}

// rebuild maps f over the direct children of t and reconstructs it through
// the normalizing constructors. Leaves are returned unchanged.
func rebuild(t Type, f func(Type) Type) Type {
	switch v := t.(type) {
	case *Template:
		segs := make([]TemplateSegment, len(v.Segments))
		for i, s := range v.Segments {
			if s.Hole == nil {
				segs[i] = s
			} else {
				segs[i] = HoleSegment(f(s.Hole))
			}
		}
		return normalizeTemplate(segs)
	case *Object:
		props := make([]Property, len(v.Props))
		for i, p := range v.Props {
			p.Type = f(p.Type)
			props[i] = p
		}
		var index *IndexSignature
		if v.Index != nil {
			index = &IndexSignature{Key: v.Index.Key, Value: f(v.Index.Value)}
		}
		return newObject(props, index)
	case *Array:
		if v.Readonly {
			return NewReadonlyArray(f(v.Elem))
		}
		return NewArray(f(v.Elem))
	case *Tuple:
		return NewTuple(mapTypes(v.Elems, f)...)
	case *Union:
		return NewUnion(mapTypes(v.Members, f)...)
	case *Intersection:
		return NewIntersection(mapTypes(v.Members, f)...)
	case *Infer:
		if v.Constraint == nil {
			return v
		}
		return &Infer{Name: v.Name, Constraint: f(v.Constraint)}
	case *Conditional:
		check := f(v.Check)
		_, distribute := check.(*Param)
		return newConditional(check, f(v.Extends), f(v.Then), f(v.Else), distribute && v.Distribute)
	case *Reference:
		return NewReference(v.Name, mapTypes(v.Args, f)...)
	case *Function:
		return NewFunction(mapTypes(v.Params, f), f(v.Result))
	case *KeyOf:
		return NewKeyOf(f(v.Target))
	case *IndexedAccess:
		return NewIndexedAccess(f(v.Object), f(v.Index))
	case *Intrinsic:
		return NewIntrinsic(v.Op, f(v.Arg))
	}
	return t
}

func mapTypes(ts []Type, f func(Type) Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = f(t)
	}
	return out
}
