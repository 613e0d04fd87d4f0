package typesystem

import (
	"strconv"

	"github.com/funvibe/structype/internal/config"
	"github.com/hashicorp/go-set/v2"
	"go.uber.org/zap"
)

// condKey identifies a conditional under resolution by its structural hash.
type condKey struct {
	cond *Conditional
}

func (k condKey) Hash() uint64 { return k.cond.Hash() }

// resolution is the state of one Evaluate call: its depth and the
// conditionals currently being resolved. It is never shared between calls.
type resolution struct {
	c     *Checker
	depth int
	// active holds the hashes of the conditionals on stack; stack is
	// consulted to rule out hash collisions.
	active *set.HashSet[condKey, uint64]
	stack  []*Conditional
}

func (c *Checker) newResolution() *resolution {
	return &resolution{c: c, active: set.NewHashSet[condKey, uint64](8)}
}

// push marks c as being resolved. It reports false when an identical
// conditional is already on the stack.
func (res *resolution) push(c *Conditional) bool {
	key := condKey{cond: c}
	if res.active.Contains(key) {
		for _, open := range res.stack {
			if Identical(open, c) {
				return false
			}
		}
	}
	res.active.Insert(key)
	res.stack = append(res.stack, c)
	return true
}

func (res *resolution) pop() {
	top := res.stack[len(res.stack)-1]
	res.stack = res.stack[:len(res.stack)-1]
	for _, open := range res.stack {
		if open.Hash() == top.Hash() {
			return
		}
	}
	res.active.Remove(condKey{cond: top})
}

func (res *resolution) enter(t Type) error {
	if res.depth >= res.c.maxDepth {
		return &RecursionLimitExceededError{Limit: res.c.maxDepth, Type: t}
	}
	res.depth++
	return nil
}

func (res *resolution) leave() { res.depth-- }

// reducible reports whether t holds anything reduce would change.
func (res *resolution) reducible(t Type) bool {
	return contains(t, func(n Type) bool {
		switch v := n.(type) {
		case *Conditional, *KeyOf, *IndexedAccess, *Intrinsic:
			return true
		case *Reference:
			_, ok := res.c.declaration(v.Name)
			return ok
		}
		return false
	})
}

func (res *resolution) reduce(t Type) (Type, error) {
	if t == nil || !res.reducible(t) {
		return t, nil
	}
	if err := res.enter(t); err != nil {
		return nil, err
	}
	defer res.leave()

	switch v := t.(type) {
	case *Conditional:
		return res.conditional(v)
	case *Reference:
		return res.reference(v)
	case *KeyOf:
		target, err := res.reduce(v.Target)
		if err != nil {
			return nil, err
		}
		return keyOf(target), nil
	case *IndexedAccess:
		obj, err := res.reduce(v.Object)
		if err != nil {
			return nil, err
		}
		idx, err := res.reduce(v.Index)
		if err != nil {
			return nil, err
		}
		return indexAccess(obj, idx)
	case *Intrinsic:
		arg, err := res.reduce(v.Arg)
		if err != nil {
			return nil, err
		}
		return applyIntrinsic(v.Op, arg), nil
	}

	var firstErr error
	out := rebuild(t, func(c Type) Type {
		if firstErr != nil {
			return c
		}
		r, err := res.reduce(c)
		if err != nil {
			firstErr = err
			return c
		}
		return r
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// closeBindings resolves chained bindings against each other and reduces
// every binding.
func (res *resolution) closeBindings(s Subst) (Subst, error) {
	if len(s) == 0 {
		return s, nil
	}
	out := make(Subst, len(s))
	for name, b := range s {
		if b == nil {
			continue
		}
		r, err := res.reduce(Substitute(b, s))
		if err != nil {
			return nil, err
		}
		out[name] = r
	}
	return out, nil
}

// conditional resolves c. Re-entering a conditional identical to one still
// being resolved can never terminate and fails with UnresolvableRecursion;
// nested conditionals that merely share their check and extends operands
// resolve normally.
func (res *resolution) conditional(c *Conditional) (Type, error) {
	if !res.push(c) {
		return nil, &UnresolvableRecursionError{Check: c.Check, Extends: c.Extends}
	}
	defer res.pop()

	check, err := res.reduce(c.Check)
	if err != nil {
		return nil, err
	}
	extends, err := res.reduce(c.Extends)
	if err != nil {
		return nil, err
	}

	if hasFreeParams(check) || hasFreeParams(extends) {
		_, distribute := check.(*Param)
		return newConditional(check, extends, c.Then, c.Else, distribute && c.Distribute), nil
	}

	names := inferNames(extends)
	if check.Kind() == KindAny {
		s := make(Subst, len(names))
		for _, n := range names {
			s[n] = Unknown
		}
		then, err := res.reduce(substituteOnce(c.Then, s))
		if err != nil {
			return nil, err
		}
		els, err := res.reduce(c.Else)
		if err != nil {
			return nil, err
		}
		return NewUnion(then, els), nil
	}

	r := newRelation(res.c)
	matched := r.isSubtype(check, extends)
	res.c.logger.Debug("conditional",
		zap.Stringer("check", check),
		zap.Stringer("extends", extends),
		zap.Bool("matched", matched),
		zap.Int("depth", res.depth))
	if !matched {
		return res.reduce(c.Else)
	}
	s := make(Subst, len(names))
	for _, n := range names {
		if captured, ok := r.captures[n]; ok {
			s[n] = captured
		} else {
			s[n] = Never
		}
	}
	return res.reduce(substituteOnce(c.Then, s))
}

// reference expands a declared alias. Undeclared names are nominal and only
// get their arguments reduced.
func (res *resolution) reference(ref *Reference) (Type, error) {
	args := make([]Type, len(ref.Args))
	for i, a := range ref.Args {
		r, err := res.reduce(a)
		if err != nil {
			return nil, err
		}
		args[i] = r
	}
	decl, ok := res.c.declaration(ref.Name)
	if !ok {
		return NewReference(ref.Name, args...), nil
	}
	bindings, err := res.instantiate(decl.Params, args, nil)
	if err != nil {
		return nil, err
	}
	res.c.logger.Debug("expanding alias", zap.String("name", ref.Name), zap.Stringer("bindings", bindings))
	return res.reduce(substituteOnce(decl.Body, bindings))
}

// keyOf computes `keyof t` for a known operand; anything else stays
// deferred.
func keyOf(t Type) Type {
	switch v := t.(type) {
	case *Object:
		keys := make([]Type, 0, len(v.Props)+2)
		for _, p := range v.Props {
			keys = append(keys, propertyKey(p.Key))
		}
		if v.Index != nil {
			keys = append(keys, Number)
			if v.Index.Key == PrimString {
				keys = append(keys, String)
			}
		}
		return NewUnion(keys...)
	case *Array:
		return NewUnion(Number, StringLit(config.LengthPropertyName))
	case *Tuple:
		keys := make([]Type, 0, len(v.Elems)+2)
		for i := range v.Elems {
			keys = append(keys, StringLit(strconv.Itoa(i)))
		}
		return NewUnion(append(keys, Number, StringLit(config.LengthPropertyName))...)
	case *Union:
		// only keys every member has
		out := make([]Type, len(v.Members))
		for i, m := range v.Members {
			out[i] = keyOf(m)
		}
		return NewIntersection(out...)
	case *Intersection:
		out := make([]Type, len(v.Members))
		for i, m := range v.Members {
			out[i] = keyOf(m)
		}
		return NewUnion(out...)
	case *Sentinel:
		switch v.Kind() {
		case KindAny, KindNever:
			return NewUnion(String, Number, Symbol)
		}
		return Never
	case *Primitive, *Literal, *Template, *Function, *Reference:
		return Never
	}
	return NewKeyOf(t)
}

func propertyKey(key string) Type {
	if isNumericKey(key) {
		f, _ := strconv.ParseFloat(key, 64)
		return NumberLit(f)
	}
	return StringLit(key)
}

// indexAccess computes obj[idx] when both operands are known.
func indexAccess(obj, idx Type) (Type, error) {
	if !isConcrete(obj) || !isConcrete(idx) {
		return NewIndexedAccess(obj, idx), nil
	}
	if obj.Kind() == KindAny {
		return Any, nil
	}
	if u, ok := idx.(*Union); ok {
		return mapIndex(u.Members, func(m Type) (Type, error) { return indexAccess(obj, m) })
	}
	if u, ok := obj.(*Union); ok {
		return mapIndex(u.Members, func(m Type) (Type, error) { return indexAccess(m, idx) })
	}
	if idx.Kind() == KindNever {
		return Never, nil
	}

	miss := func() error {
		return malformed(NewIndexedAccess(obj, idx), "%s cannot be used to index %s", idx, obj)
	}
	numeric := func() bool {
		class, ok := primitiveClass(idx)
		return ok && class == PrimNumber
	}

	switch o := obj.(type) {
	case *Object:
		if lit, ok := idx.(*Literal); ok && (lit.Base == PrimString || lit.Base == PrimNumber) {
			if p, found := o.Lookup(lit.Text); found {
				if p.Optional {
					return NewUnion(p.Type, Undefined), nil
				}
				return p.Type, nil
			}
			if o.Index != nil && o.Index.covers(lit.Text) {
				return o.Index.Value, nil
			}
			return nil, miss()
		}
		if o.Index != nil && (Identical(idx, PrimitiveOf(o.Index.Key)) || (numeric() && o.Index.Key == PrimString)) {
			return o.Index.Value, nil
		}
	case *Array:
		if numeric() {
			return o.Elem, nil
		}
		if lit, ok := idx.(*Literal); ok && lit.Base == PrimString && lit.Text == config.LengthPropertyName {
			return Number, nil
		}
	case *Tuple:
		if lit, ok := idx.(*Literal); ok {
			if lit.Base == PrimString && lit.Text == config.LengthPropertyName {
				return NumberLit(float64(len(o.Elems))), nil
			}
			if i, err := strconv.Atoi(lit.Text); err == nil && i >= 0 && i < len(o.Elems) {
				return o.Elems[i], nil
			}
			return nil, miss()
		}
		if numeric() {
			return NewUnion(o.Elems...), nil
		}
	case *Intersection:
		var found []Type
		for _, m := range o.Members {
			if r, err := indexAccess(m, idx); err == nil {
				found = append(found, r)
			}
		}
		if len(found) > 0 {
			return NewIntersection(found...), nil
		}
	}
	return nil, miss()
}

func mapIndex(ts []Type, f func(Type) (Type, error)) (Type, error) {
	out := make([]Type, len(ts))
	for i, t := range ts {
		r, err := f(t)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return NewUnion(out...), nil
}
