package typesystem

// Identical reports structural identity. Hashes are compared first; the deep
// comparison only runs for candidates that already agree on the hash.
func Identical(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() || a.Hash() != b.Hash() {
		return false
	}

	switch x := a.(type) {
	case *Sentinel:
		return true
	case *Primitive:
		return x.Name == b.(*Primitive).Name
	case *Literal:
		y := b.(*Literal)
		return x.Base == y.Base && x.Text == y.Text
	case *Template:
		y := b.(*Template)
		if len(x.Segments) != len(y.Segments) {
			return false
		}
		for i, s := range x.Segments {
			if s.Text != y.Segments[i].Text || !Identical(s.Hole, y.Segments[i].Hole) {
				return false
			}
		}
		return true
	case *Object:
		y := b.(*Object)
		if len(x.Props) != len(y.Props) || (x.Index == nil) != (y.Index == nil) {
			return false
		}
		for i, p := range x.Props {
			q := y.Props[i]
			if p.Key != q.Key || p.Optional != q.Optional || p.Readonly != q.Readonly || !Identical(p.Type, q.Type) {
				return false
			}
		}
		if x.Index != nil {
			return x.Index.Key == y.Index.Key && Identical(x.Index.Value, y.Index.Value)
		}
		return true
	case *Array:
		y := b.(*Array)
		return x.Readonly == y.Readonly && Identical(x.Elem, y.Elem)
	case *Tuple:
		return identicalAll(x.Elems, b.(*Tuple).Elems)
	case *Union:
		return identicalAll(x.Members, b.(*Union).Members)
	case *Intersection:
		return identicalAll(x.Members, b.(*Intersection).Members)
	case *Param:
		return x.Name == b.(*Param).Name
	case *Infer:
		y := b.(*Infer)
		return x.Name == y.Name && Identical(x.Constraint, y.Constraint)
	case *Conditional:
		y := b.(*Conditional)
		return x.Distribute == y.Distribute &&
			Identical(x.Check, y.Check) && Identical(x.Extends, y.Extends) &&
			Identical(x.Then, y.Then) && Identical(x.Else, y.Else)
	case *Reference:
		y := b.(*Reference)
		return x.Name == y.Name && identicalAll(x.Args, y.Args)
	case *Function:
		y := b.(*Function)
		return identicalAll(x.Params, y.Params) && Identical(x.Result, y.Result)
	case *KeyOf:
		return Identical(x.Target, b.(*KeyOf).Target)
	case *IndexedAccess:
		y := b.(*IndexedAccess)
		return Identical(x.Object, y.Object) && Identical(x.Index, y.Index)
	case *Intrinsic:
		y := b.(*Intrinsic)
		return x.Op == y.Op && Identical(x.Arg, y.Arg)
	}
	return false
}

func identicalAll(xs, ys []Type) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !Identical(xs[i], ys[i]) {
			return false
		}
	}
	return true
}
