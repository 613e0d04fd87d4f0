package typesystem

import (
	"strconv"
	"time"

	"github.com/funvibe/structype/internal/config"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop()

// relation carries the state of one subtype query: the depth guard, the
// infer captures collected so far and the caller's options.
type relation struct {
	maxDepth int
	depth    int
	clipped  bool
	captures Subst
	// anyAssignable lets any flow into every target. It is only set while
	// validating explicit generic arguments.
	anyAssignable bool
	timeout       time.Duration
	logger        *zap.Logger
}

func newRelation(c *Checker) *relation {
	r := &relation{
		maxDepth: config.DefaultMaxDepth,
		timeout:  config.DefaultTemplateTimeout,
		logger:   nopLogger,
	}
	if c != nil {
		r.maxDepth = c.maxDepth
		r.timeout = c.templateTimeout
		r.logger = c.logger
	}
	return r
}

func (r *relation) snapshot() Subst {
	if r.captures == nil {
		return nil
	}
	return r.captures.Clone()
}

func (r *relation) restore(s Subst) { r.captures = s }

// capture records name := t. Several captures of the same name unify by
// union.
func (r *relation) capture(name string, t Type) {
	if r.captures == nil {
		r.captures = Subst{}
	}
	if prev, ok := r.captures[name]; ok {
		t = NewUnion(prev, t)
	}
	r.captures[name] = t
}

// attempt runs a speculative check and rolls back its captures on failure.
func (r *relation) attempt(a, b Type) bool {
	snap := r.snapshot()
	if r.isSubtype(a, b) {
		return true
	}
	r.restore(snap)
	return false
}

func (r *relation) isSubtype(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	if r.depth >= r.maxDepth {
		if !r.clipped {
			r.clipped = true
			r.logger.Warn("subtype check exceeded depth limit",
				zap.Int("limit", r.maxDepth),
				zap.Stringer("source", a),
				zap.Stringer("target", b))
		}
		return false
	}
	r.depth++
	defer func() { r.depth-- }()
	return r.check(a, b)
}

func (r *relation) check(a, b Type) bool {
	// Bottom and top
	if a.Kind() == KindNever {
		return true
	}
	if k := b.Kind(); k == KindAny || k == KindUnknown {
		return true
	}
	if a.Kind() == KindAny && r.anyAssignable {
		return true
	}
	if Identical(a, b) {
		return true
	}

	// Unions and intersections are distributed before anything structural
	if u, ok := a.(*Union); ok {
		for _, m := range u.Members {
			if !r.isSubtype(m, b) {
				return false
			}
		}
		return true
	}
	if u, ok := b.(*Union); ok {
		if p, ok := a.(*Primitive); ok && p.Name == PrimBoolean && u.Contains(True) && u.Contains(False) {
			return true
		}
		for _, m := range u.Members {
			if r.attempt(a, m) {
				return true
			}
		}
		if bound := upperBound(a); bound != nil {
			return r.isSubtype(bound, b)
		}
		return false
	}
	if it, ok := a.(*Intersection); ok {
		for _, m := range it.Members {
			if r.attempt(m, b) {
				return true
			}
		}
		return false
	}
	if it, ok := b.(*Intersection); ok {
		for _, m := range it.Members {
			if !r.isSubtype(a, m) {
				return false
			}
		}
		return true
	}

	// Infer placeholders capture instead of comparing
	if inf, ok := b.(*Infer); ok {
		if inf.Constraint != nil && !r.isSubtype(a, inf.Constraint) {
			return false
		}
		r.capture(inf.Name, a)
		return true
	}
	if inf, ok := a.(*Infer); ok {
		// contravariant position, e.g. a function parameter
		if inf.Constraint != nil && !r.isSubtype(b, inf.Constraint) {
			return false
		}
		r.capture(inf.Name, b)
		return true
	}

	switch a.(type) {
	case *Sentinel:
		// any without the generic-argument allowance, unknown and void only
		// reach their own kind or a top type
		return false
	case *Param, *Conditional, *KeyOf:
		if bound := upperBound(a); bound != nil {
			return r.isSubtype(bound, b)
		}
		return false
	}

	switch y := b.(type) {
	case *Sentinel:
		// void accepts undefined
		if y.Kind() == KindVoid {
			p, ok := a.(*Primitive)
			return ok && p.Name == PrimUndefined
		}
		return false
	case *Primitive:
		switch x := a.(type) {
		case *Literal:
			return x.Base == y.Name
		case *Template, *Intrinsic:
			return y.Name == PrimString
		}
		return false
	case *Literal:
		return false
	case *Template:
		switch x := a.(type) {
		case *Literal:
			return x.Base == PrimString && r.matchTemplate(x.Text, y)
		case *Template:
			return r.templateSubtype(x, y)
		}
		return false
	case *Intrinsic:
		x, ok := a.(*Literal)
		return ok && x.Base == PrimString && y.Op.Apply(x.Text) == x.Text && r.isSubtype(x, y.Arg)
	case *Object:
		src, ok := apparentObject(a)
		return ok && r.objectSubtype(src, y)
	case *Array:
		switch x := a.(type) {
		case *Array:
			if x.Readonly && !y.Readonly {
				return false
			}
			return r.isSubtype(x.Elem, y.Elem)
		case *Tuple:
			return r.isSubtype(NewUnion(x.Elems...), y.Elem)
		}
		return false
	case *Tuple:
		x, ok := a.(*Tuple)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !r.isSubtype(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Reference:
		x, ok := a.(*Reference)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !r.isSubtype(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Function:
		x, ok := a.(*Function)
		if !ok || len(x.Params) > len(y.Params) {
			return false
		}
		for i := range x.Params {
			if !r.isSubtype(y.Params[i], x.Params[i]) {
				return false
			}
		}
		return r.isSubtype(x.Result, y.Result)
	}
	return false
}

// upperBound is what an unresolved type is known to be assignable to: a
// parameter's constraint, either branch of a deferred conditional, or the
// property key types for keyof.
func upperBound(t Type) Type {
	switch v := t.(type) {
	case *Param:
		return v.Constraint
	case *Conditional:
		return NewUnion(v.Then, v.Else)
	case *KeyOf:
		return NewUnion(String, Number, Symbol)
	}
	return nil
}

// apparentObject returns the object shape a value-like type presents to an
// object target. Primitives have none: `{}` stands for the non-primitive
// object type.
func apparentObject(t Type) (*Object, bool) {
	switch v := t.(type) {
	case *Object:
		return v, true
	case *Array:
		return newObject(
			[]Property{{Key: config.LengthPropertyName, Type: Number, Readonly: v.Readonly}},
			&IndexSignature{Key: PrimNumber, Value: v.Elem},
		), true
	case *Tuple:
		props := make([]Property, 0, len(v.Elems)+1)
		for i, e := range v.Elems {
			props = append(props, Property{Key: strconv.Itoa(i), Type: e})
		}
		props = append(props, Property{Key: config.LengthPropertyName, Type: NumberLit(float64(len(v.Elems)))})
		return newObject(props, &IndexSignature{Key: PrimNumber, Value: NewUnion(v.Elems...)}), true
	case *Function, *Reference:
		return EmptyObject, true
	}
	return nil, false
}

func (r *relation) objectSubtype(a, b *Object) bool {
	for _, want := range b.Props {
		got, ok := a.Lookup(want.Key)
		if !ok {
			if want.Optional {
				continue
			}
			return false
		}
		if got.Optional && !want.Optional {
			return false
		}
		if got.Readonly && !want.Readonly {
			return false
		}
		if !r.isSubtype(got.Type, want.Type) {
			return false
		}
	}
	if b.Index == nil {
		return true
	}
	for _, p := range a.Props {
		if b.Index.covers(p.Key) && !r.isSubtype(p.Type, b.Index.Value) {
			return false
		}
	}
	if a.Index != nil && (a.Index.Key == b.Index.Key || b.Index.Key == PrimString) {
		return r.isSubtype(a.Index.Value, b.Index.Value)
	}
	return true
}
