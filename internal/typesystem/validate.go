package typesystem

// Validate checks the placement invariants of a type tree: infer
// placeholders may only occur under the extends operand of a conditional,
// and template holes must be string-like.
func Validate(t Type) error {
	return validate(t, false)
}

// validateExtends checks an extends operand, where infer is allowed.
func validateExtends(t Type) error {
	return validate(t, true)
}

func validate(t Type, inExtends bool) error {
	if t == nil {
		return malformed(nil, "missing type")
	}
	switch v := t.(type) {
	case *Infer:
		if !inExtends {
			return malformed(v, "infer is only allowed in the extends clause of a conditional type")
		}
		if v.Constraint != nil {
			return validate(v.Constraint, false)
		}
		return nil
	case *Conditional:
		for _, c := range []Type{v.Check, v.Then, v.Else} {
			if err := validate(c, inExtends); err != nil {
				return err
			}
		}
		return validate(v.Extends, true)
	case *Template:
		for _, s := range v.Segments {
			if s.Hole != nil && !stringLike(s.Hole) {
				return malformed(v, "%s cannot be embedded in a template literal", s.Hole)
			}
		}
	case *Object:
		if v.Index != nil && v.Index.Key != PrimString && v.Index.Key != PrimNumber {
			return malformed(v, "index signature key must be string or number, got %s", v.Index.Key)
		}
		for _, p := range v.Props {
			if p.Type == nil {
				return malformed(v, "property %q has no type", p.Key)
			}
		}
	case *Param:
		if v.Name == "" {
			return malformed(v, "type parameter without a name")
		}
		if v.Constraint != nil {
			if err := validate(v.Constraint, false); err != nil {
				return err
			}
		}
		if v.Default != nil {
			return validate(v.Default, false)
		}
		return nil
	}
	for _, c := range children(t) {
		if err := validate(c, inExtends); err != nil {
			return err
		}
	}
	return nil
}
