package typesystem

import (
	"go.uber.org/zap"
)

// ParamDecl declares a type parameter of a generic declaration.
type ParamDecl struct {
	Name       string
	Constraint Type
	Default    Type
}

// Ref returns a reference to the declared parameter.
func (p ParamDecl) Ref() *Param {
	return &Param{Name: p.Name, Constraint: p.Constraint, Default: p.Default}
}

// InferenceSite pairs a parameter usage, such as the declared type of a
// function parameter, with the concrete argument passed in that position.
type InferenceSite struct {
	Usage Type
	Arg   Type
}

// Declaration is a named generic type alias, e.g.
// ArrayWrap<T> = T extends any[] ? T : T[].
type Declaration struct {
	Name   string
	Params []ParamDecl
	Body   Type
}

func validateParams(params []ParamDecl) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return malformed(nil, "type parameter without a name")
		}
		if seen[p.Name] {
			return malformed(nil, "duplicate type parameter %s", p.Name)
		}
		seen[p.Name] = true
		for _, t := range []Type{p.Constraint, p.Default} {
			if t == nil {
				continue
			}
			if err := Validate(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// Declare registers a generic alias. Redeclaring a name replaces it.
func (c *Checker) Declare(d Declaration) error {
	if d.Name == "" {
		return malformed(nil, "declaration without a name")
	}
	if err := validateParams(d.Params); err != nil {
		return err
	}
	if err := Validate(d.Body); err != nil {
		return err
	}
	c.mu.Lock()
	c.decls[d.Name] = &d
	c.mu.Unlock()
	if c.cache != nil {
		c.cache.Purge()
	}
	c.logger.Debug("declared alias", zap.String("name", d.Name), zap.Int("params", len(d.Params)))
	return nil
}

func (c *Checker) declaration(name string) (*Declaration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.decls[name]
	return d, ok
}

// Declaration returns a registered alias.
func (c *Checker) Declaration(name string) (Declaration, bool) {
	d, ok := c.declaration(name)
	if !ok {
		return Declaration{}, false
	}
	return *d, true
}

// InstantiateDeclaration binds args to a registered alias and returns the
// evaluated body.
func (c *Checker) InstantiateDeclaration(name string, args []Type) (Type, error) {
	if _, ok := c.declaration(name); !ok {
		return nil, malformed(nil, "unknown declaration %s", name)
	}
	return c.Evaluate(NewReference(name, args...), nil)
}

// Instantiate binds type arguments to params. An explicit argument must
// satisfy its parameter's constraint, with earlier bindings substituted into
// the constraint. A missing argument (nil or past the end of args) takes the
// parameter's default, else a binding inferred from the inference sites,
// else the constraint, else unknown.
func (c *Checker) Instantiate(params []ParamDecl, args []Type, sites []InferenceSite) (Subst, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	res := c.newResolution()
	reduced := make([]Type, len(args))
	for i, a := range args {
		if a == nil {
			continue
		}
		if err := Validate(a); err != nil {
			return nil, err
		}
		r, err := res.reduce(a)
		if err != nil {
			return nil, err
		}
		reduced[i] = r
	}
	return res.instantiate(params, reduced, sites)
}

func (res *resolution) instantiate(params []ParamDecl, args []Type, sites []InferenceSite) (Subst, error) {
	if len(args) > len(params) {
		return nil, malformed(nil, "expected at most %d type arguments, got %d", len(params), len(args))
	}
	bindings := make(Subst, len(params))
	for i, p := range params {
		var arg Type
		if i < len(args) {
			arg = args[i]
		}
		if arg != nil {
			if err := res.checkConstraint(p, arg, bindings); err != nil {
				return nil, err
			}
			bindings[p.Name] = arg
			continue
		}
		if p.Default != nil {
			def, err := res.reduce(substituteOnce(p.Default, bindings))
			if err != nil {
				return nil, err
			}
			bindings[p.Name] = def
			continue
		}
		if inferred, ok := res.infer(p, params, sites, bindings); ok {
			if err := res.checkConstraint(p, inferred, bindings); err != nil {
				return nil, err
			}
			bindings[p.Name] = inferred
			continue
		}
		if p.Constraint != nil {
			constraint, err := res.reduce(substituteOnce(p.Constraint, bindings))
			if err != nil {
				return nil, err
			}
			bindings[p.Name] = constraint
			continue
		}
		bindings[p.Name] = Unknown
	}
	return bindings, nil
}

// checkConstraint validates arg against p's constraint. Arguments that still
// hold placeholders or free parameters are checked once they are bound.
func (res *resolution) checkConstraint(p ParamDecl, arg Type, bindings Subst) error {
	if p.Constraint == nil || containsInfer(arg) || hasFreeParams(arg) {
		return nil
	}
	constraint, err := res.reduce(substituteOnce(p.Constraint, bindings))
	if err != nil {
		return err
	}
	if hasFreeParams(constraint) {
		return nil
	}
	r := newRelation(res.c)
	r.anyAssignable = true
	if !r.isSubtype(arg, constraint) {
		return &ConstraintViolationError{Param: p.Name, Arg: arg, Constraint: constraint}
	}
	return nil
}

// infer recovers a binding for p from the inference sites: each usage has
// the still unbound parameters turned into infer placeholders and is matched
// against its argument. Candidates from several sites are unioned.
func (res *resolution) infer(p ParamDecl, params []ParamDecl, sites []InferenceSite, bindings Subst) (Type, bool) {
	unbound := make([]ParamDecl, 0, len(params))
	for _, q := range params {
		if _, ok := bindings[q.Name]; !ok {
			unbound = append(unbound, q)
		}
	}
	var candidates []Type
	for _, site := range sites {
		if site.Usage == nil || site.Arg == nil {
			continue
		}
		usage := paramsToInfer(substituteOnce(site.Usage, bindings), unbound)
		r := newRelation(res.c)
		if !r.isSubtype(site.Arg, usage) {
			continue
		}
		if t, ok := r.captures[p.Name]; ok {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	inferred := NewUnion(candidates...)
	res.c.logger.Debug("inferred type argument", zap.String("param", p.Name), zap.Stringer("type", inferred))
	return inferred, true
}
