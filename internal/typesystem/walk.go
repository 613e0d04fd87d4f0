package typesystem

import "sort"

// children returns the direct sub-trees of t in a fixed order.
func children(t Type) []Type {
	switch v := t.(type) {
	case *Template:
		out := make([]Type, 0, len(v.Segments))
		for _, s := range v.Segments {
			if s.Hole != nil {
				out = append(out, s.Hole)
			}
		}
		return out
	case *Object:
		out := make([]Type, 0, len(v.Props)+1)
		for _, p := range v.Props {
			out = append(out, p.Type)
		}
		if v.Index != nil {
			out = append(out, v.Index.Value)
		}
		return out
	case *Array:
		return []Type{v.Elem}
	case *Tuple:
		return v.Elems
	case *Union:
		return v.Members
	case *Intersection:
		return v.Members
	case *Infer:
		if v.Constraint != nil {
			return []Type{v.Constraint}
		}
	case *Conditional:
		return []Type{v.Check, v.Extends, v.Then, v.Else}
	case *Reference:
		return v.Args
	case *Function:
		out := make([]Type, 0, len(v.Params)+1)
		out = append(out, v.Params...)
		return append(out, v.Result)
	case *KeyOf:
		return []Type{v.Target}
	case *IndexedAccess:
		return []Type{v.Object, v.Index}
	case *Intrinsic:
		return []Type{v.Arg}
	}
	return nil
}

// walk visits t and its sub-trees depth first. Returning false from visit
// skips the children of that node.
func walk(t Type, visit func(Type) bool) {
	if t == nil || !visit(t) {
		return
	}
	for _, c := range children(t) {
		walk(c, visit)
	}
}

func contains(t Type, pred func(Type) bool) bool {
	found := false
	walk(t, func(n Type) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// isConcrete reports whether t is free of parameters, placeholders and
// operators still waiting for evaluation.
func isConcrete(t Type) bool {
	return !contains(t, func(n Type) bool {
		switch n.(type) {
		case *Param, *Infer, *Conditional, *KeyOf, *IndexedAccess, *Intrinsic:
			return true
		}
		return false
	})
}

func hasFreeParams(t Type) bool {
	return len(FreeParams(t)) > 0
}

func containsInfer(t Type) bool {
	return contains(t, func(n Type) bool {
		_, ok := n.(*Infer)
		return ok
	})
}

// mentions reports whether t refers to any parameter bound by s.
func mentions(t Type, s Subst) bool {
	return contains(t, func(n Type) bool {
		p, ok := n.(*Param)
		if !ok {
			return false
		}
		_, bound := s[p.Name]
		return bound
	})
}

// inferNames lists the infer placeholders declared in an extends operand,
// in order of first appearance.
func inferNames(t Type) []string {
	var names []string
	seen := map[string]bool{}
	walk(t, func(n Type) bool {
		if i, ok := n.(*Infer); ok && !seen[i.Name] {
			seen[i.Name] = true
			names = append(names, i.Name)
		}
		return true
	})
	return names
}

// FreeParams returns the sorted names of the type parameters referenced by
// t. Names captured by infer inside a conditional's true branch are bound
// there and not reported.
func FreeParams(t Type) []string {
	seen := map[string]bool{}
	collectFree(t, nil, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectFree(t Type, bound map[string]bool, out map[string]bool) {
	switch v := t.(type) {
	case nil:
		return
	case *Param:
		if !bound[v.Name] {
			out[v.Name] = true
		}
		return
	case *Conditional:
		collectFree(v.Check, bound, out)
		collectFree(v.Extends, bound, out)
		collectFree(v.Else, bound, out)
		names := inferNames(v.Extends)
		if len(names) == 0 {
			collectFree(v.Then, bound, out)
			return
		}
		inner := make(map[string]bool, len(bound)+len(names))
		for k := range bound {
			inner[k] = true
		}
		for _, n := range names {
			inner[n] = true
		}
		collectFree(v.Then, inner, out)
		return
	}
	for _, c := range children(t) {
		collectFree(c, bound, out)
	}
}
