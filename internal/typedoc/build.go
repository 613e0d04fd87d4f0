package typedoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/structype/internal/config"
	"github.com/funvibe/structype/internal/typesystem"
	"gopkg.in/yaml.v3"
)

// BuildType converts a YAML type node into a typesystem.Type. The node is a
// mapping with exactly one of these keys:
//
//	keyword         any | unknown | never | void | object
//	primitive       string | number | boolean | bigint | symbol | null | undefined
//	string, number, boolean, bigint, symbol
//	                a literal of that primitive
//	template        sequence of text scalars and hole type nodes
//	object          {props: [{name, type, optional, readonly}], index: {key, value}}
//	array, readonly_array, keyof
//	                a single type node
//	tuple, union, intersection
//	                sequence of type nodes
//	param, infer    a name, or {name, constraint}
//	ref             {name, args}; Array, ReadonlyArray and the string
//	                mappings (Uppercase, ...) are built in
//	function        {params: [...], result}
//	index           {object, index}
//	intrinsic       {op, arg}
//	conditional     {check, extends, then, else}
//
// Errors wrap typesystem.ErrMalformedType and carry the node's line.
func BuildType(n *yaml.Node) (typesystem.Type, error) {
	n = resolve(n)
	if n == nil {
		return nil, nodeError(n, "missing type")
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, nodeError(n, "a type is a mapping with exactly one key")
	}
	key, val := n.Content[0].Value, resolve(n.Content[1])

	switch key {
	case "keyword":
		return buildKeyword(val)
	case "primitive":
		name, err := scalar(val)
		if err != nil {
			return nil, err
		}
		k, ok := typesystem.ParsePrimitiveKind(name)
		if !ok {
			return nil, nodeError(val, "unknown primitive %q", name)
		}
		return typesystem.PrimitiveOf(k), nil
	case "string":
		s, err := scalar(val)
		if err != nil {
			return nil, err
		}
		return typesystem.StringLit(s), nil
	case "number":
		return buildLiteral(val, typesystem.PrimNumber)
	case "boolean":
		return buildLiteral(val, typesystem.PrimBoolean)
	case "bigint":
		return buildLiteral(val, typesystem.PrimBigInt)
	case "symbol":
		return buildLiteral(val, typesystem.PrimSymbol)
	case "template":
		return buildTemplate(val)
	case "object":
		return buildObject(val)
	case "array":
		elem, err := BuildType(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewArray(elem), nil
	case "readonly_array":
		elem, err := BuildType(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewReadonlyArray(elem), nil
	case "tuple":
		elems, err := buildList(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewTuple(elems...), nil
	case "union":
		members, err := buildList(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewUnion(members...), nil
	case "intersection":
		members, err := buildList(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewIntersection(members...), nil
	case "param":
		name, constraint, err := buildNamed(val)
		if err != nil {
			return nil, err
		}
		return &typesystem.Param{Name: name, Constraint: constraint}, nil
	case "infer":
		name, constraint, err := buildNamed(val)
		if err != nil {
			return nil, err
		}
		return &typesystem.Infer{Name: name, Constraint: constraint}, nil
	case "ref":
		return buildRef(val)
	case "function":
		return buildFunction(val)
	case "keyof":
		target, err := BuildType(val)
		if err != nil {
			return nil, err
		}
		return typesystem.NewKeyOf(target), nil
	case "index":
		f, err := fields(val, "object", "index")
		if err != nil {
			return nil, err
		}
		obj, err := required(val, f, "object")
		if err != nil {
			return nil, err
		}
		idx, err := required(val, f, "index")
		if err != nil {
			return nil, err
		}
		return typesystem.NewIndexedAccess(obj, idx), nil
	case "intrinsic":
		return buildIntrinsic(val)
	case "conditional":
		return buildConditional(val)
	}
	return nil, nodeError(n.Content[0], "unknown type form %q", key)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func nodeError(n *yaml.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if n != nil && n.Line > 0 {
		return fmt.Errorf("line %d: %s: %w", n.Line, msg, typesystem.ErrMalformedType)
	}
	return fmt.Errorf("%s: %w", msg, typesystem.ErrMalformedType)
}

// atLine attaches a node position to an error from a typesystem
// constructor.
func atLine(n *yaml.Node, err error) error {
	if n == nil || n.Line == 0 {
		return err
	}
	return fmt.Errorf("line %d: %w", n.Line, err)
}

func scalar(n *yaml.Node) (string, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", nodeError(n, "expected a scalar")
	}
	return n.Value, nil
}

// fields decodes a struct-like mapping, rejecting unknown and repeated keys.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "expected a mapping with keys %s", strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		known := false
		for _, a := range allowed {
			if a == k {
				known = true
				break
			}
		}
		if !known {
			return nil, nodeError(n.Content[i], "unexpected key %q", k)
		}
		if _, dup := out[k]; dup {
			return nil, nodeError(n.Content[i], "key %q given twice", k)
		}
		out[k] = resolve(n.Content[i+1])
	}
	return out, nil
}

func required(parent *yaml.Node, f map[string]*yaml.Node, key string) (typesystem.Type, error) {
	n, ok := f[key]
	if !ok {
		return nil, nodeError(parent, "%s is required", key)
	}
	return BuildType(n)
}

func optional(f map[string]*yaml.Node, key string) (typesystem.Type, error) {
	n, ok := f[key]
	if !ok {
		return nil, nil
	}
	return BuildType(n)
}

func flag(f map[string]*yaml.Node, key string) (bool, error) {
	n, ok := f[key]
	if !ok {
		return false, nil
	}
	s, err := scalar(n)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, nodeError(n, "%s must be true or false", key)
	}
	return b, nil
}

func buildKeyword(n *yaml.Node) (typesystem.Type, error) {
	name, err := scalar(n)
	if err != nil {
		return nil, err
	}
	switch name {
	case "any":
		return typesystem.Any, nil
	case "unknown":
		return typesystem.Unknown, nil
	case "never":
		return typesystem.Never, nil
	case "void":
		return typesystem.Void, nil
	case config.ObjectKeywordName:
		return typesystem.EmptyObject, nil
	}
	return nil, nodeError(n, "unknown keyword %q", name)
}

func buildLiteral(n *yaml.Node, base typesystem.PrimitiveKind) (typesystem.Type, error) {
	text, err := scalar(n)
	if err != nil {
		return nil, err
	}
	if base == typesystem.PrimBigInt {
		text = strings.TrimSuffix(text, "n")
	}
	lit, err := typesystem.NewLiteral(base, text)
	if err != nil {
		return nil, atLine(n, err)
	}
	return lit, nil
}

func buildList(n *yaml.Node) ([]typesystem.Type, error) {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, nodeError(n, "expected a sequence of types")
	}
	out := make([]typesystem.Type, 0, len(n.Content))
	for _, item := range n.Content {
		t, err := BuildType(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func buildNamed(n *yaml.Node) (string, typesystem.Type, error) {
	if n != nil && n.Kind == yaml.ScalarNode {
		if n.Value == "" {
			return "", nil, nodeError(n, "empty name")
		}
		return n.Value, nil, nil
	}
	f, err := fields(n, "name", "constraint")
	if err != nil {
		return "", nil, err
	}
	nameNode, ok := f["name"]
	if !ok {
		return "", nil, nodeError(n, "name is required")
	}
	name, err := scalar(nameNode)
	if err != nil {
		return "", nil, err
	}
	constraint, err := optional(f, "constraint")
	if err != nil {
		return "", nil, err
	}
	return name, constraint, nil
}

func buildTemplate(n *yaml.Node) (typesystem.Type, error) {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, nodeError(n, "template is a sequence of text and holes")
	}
	segs := make([]typesystem.TemplateSegment, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolve(item)
		if item.Kind == yaml.ScalarNode {
			segs = append(segs, typesystem.TextSegment(item.Value))
			continue
		}
		hole, err := BuildType(item)
		if err != nil {
			return nil, err
		}
		segs = append(segs, typesystem.HoleSegment(hole))
	}
	t, err := typesystem.NewTemplate(segs...)
	if err != nil {
		return nil, atLine(n, err)
	}
	return t, nil
}

func buildObject(n *yaml.Node) (typesystem.Type, error) {
	if n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "") {
		return typesystem.EmptyObject, nil
	}
	f, err := fields(n, "props", "index")
	if err != nil {
		return nil, err
	}
	var props []typesystem.Property
	if pn, ok := f["props"]; ok {
		if pn.Kind != yaml.SequenceNode {
			return nil, nodeError(pn, "props is a sequence")
		}
		for _, item := range pn.Content {
			p, err := buildProperty(resolve(item))
			if err != nil {
				return nil, err
			}
			props = append(props, p)
		}
	}
	var index *typesystem.IndexSignature
	if in, ok := f["index"]; ok {
		idx, err := fields(in, "key", "value")
		if err != nil {
			return nil, err
		}
		keyNode, ok := idx["key"]
		if !ok {
			return nil, nodeError(in, "key is required")
		}
		keyName, err := scalar(keyNode)
		if err != nil {
			return nil, err
		}
		key, ok := typesystem.ParsePrimitiveKind(keyName)
		if !ok {
			return nil, nodeError(keyNode, "unknown index key %q", keyName)
		}
		value, err := required(in, idx, "value")
		if err != nil {
			return nil, err
		}
		index = &typesystem.IndexSignature{Key: key, Value: value}
	}
	o, err := typesystem.NewObject(props, index)
	if err != nil {
		return nil, atLine(n, err)
	}
	return o, nil
}

func buildProperty(n *yaml.Node) (typesystem.Property, error) {
	var p typesystem.Property
	f, err := fields(n, "name", "type", "optional", "readonly")
	if err != nil {
		return p, err
	}
	nameNode, ok := f["name"]
	if !ok {
		return p, nodeError(n, "name is required")
	}
	if p.Key, err = scalar(nameNode); err != nil {
		return p, err
	}
	if p.Type, err = required(n, f, "type"); err != nil {
		return p, err
	}
	if p.Optional, err = flag(f, "optional"); err != nil {
		return p, err
	}
	if p.Readonly, err = flag(f, "readonly"); err != nil {
		return p, err
	}
	return p, nil
}

func buildRef(n *yaml.Node) (typesystem.Type, error) {
	f, err := fields(n, "name", "args")
	if err != nil {
		return nil, err
	}
	nameNode, ok := f["name"]
	if !ok {
		return nil, nodeError(n, "name is required")
	}
	name, err := scalar(nameNode)
	if err != nil {
		return nil, err
	}
	var args []typesystem.Type
	if an, ok := f["args"]; ok {
		if args, err = buildList(an); err != nil {
			return nil, err
		}
	}

	builtin := func(build func(typesystem.Type) typesystem.Type) (typesystem.Type, error) {
		if len(args) != 1 {
			return nil, nodeError(n, "%s takes exactly one type argument, got %d", name, len(args))
		}
		return build(args[0]), nil
	}
	switch name {
	case config.ArrayTypeName:
		return builtin(func(t typesystem.Type) typesystem.Type { return typesystem.NewArray(t) })
	case config.ReadonlyArrayTypeName:
		return builtin(func(t typesystem.Type) typesystem.Type { return typesystem.NewReadonlyArray(t) })
	}
	if op, ok := typesystem.ParseIntrinsicOp(name); ok {
		return builtin(func(t typesystem.Type) typesystem.Type { return typesystem.NewIntrinsic(op, t) })
	}
	return typesystem.NewReference(name, args...), nil
}

func buildFunction(n *yaml.Node) (typesystem.Type, error) {
	f, err := fields(n, "params", "result")
	if err != nil {
		return nil, err
	}
	var params []typesystem.Type
	if pn, ok := f["params"]; ok {
		if params, err = buildList(pn); err != nil {
			return nil, err
		}
	}
	result, err := optional(f, "result")
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = typesystem.Void
	}
	return typesystem.NewFunction(params, result), nil
}

func buildIntrinsic(n *yaml.Node) (typesystem.Type, error) {
	f, err := fields(n, "op", "arg")
	if err != nil {
		return nil, err
	}
	opNode, ok := f["op"]
	if !ok {
		return nil, nodeError(n, "op is required")
	}
	name, err := scalar(opNode)
	if err != nil {
		return nil, err
	}
	op, ok := typesystem.ParseIntrinsicOp(name)
	if !ok {
		return nil, nodeError(opNode, "unknown string mapping %q", name)
	}
	arg, err := required(n, f, "arg")
	if err != nil {
		return nil, err
	}
	return typesystem.NewIntrinsic(op, arg), nil
}

func buildConditional(n *yaml.Node) (typesystem.Type, error) {
	f, err := fields(n, "check", "extends", "then", "else")
	if err != nil {
		return nil, err
	}
	parts := make([]typesystem.Type, 4)
	for i, key := range []string{"check", "extends", "then", "else"} {
		if parts[i], err = required(n, f, key); err != nil {
			return nil, err
		}
	}
	c, err := typesystem.NewConditional(parts[0], parts[1], parts[2], parts[3])
	if err != nil {
		return nil, atLine(n, err)
	}
	return c, nil
}
