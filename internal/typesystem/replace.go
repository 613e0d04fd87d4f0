package typesystem

// ReplaceParam replaces all occurrences of the named type parameter with the
// replacement type. Unlike Substitute it does not look into the replacement.
func ReplaceParam(t Type, name string, replacement Type) Type {
	return substituteOnce(t, Subst{name: replacement})
}

// paramsToInfer turns the given type parameters into infer placeholders so
// that a capturing subtype check against a usage site recovers their
// bindings.
func paramsToInfer(t Type, params []ParamDecl) Type {
	s := make(Subst, len(params))
	for _, p := range params {
		s[p.Name] = NewInfer(p.Name)
	}
	return substituteOnce(t, s)
}
