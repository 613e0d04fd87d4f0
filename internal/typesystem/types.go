package typesystem

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Type is the interface for all types in our system.
// Types are immutable trees; every transformation builds a new tree.
type Type interface {
	String() string
	Kind() Kind
	// Hash is a structural hash: identical trees hash equally.
	Hash() uint64
	typeNode()
}

// --- Sentinels ---

// Sentinel is one of the top/bottom types: any, unknown, void, never.
type Sentinel struct {
	kind Kind
}

func (s *Sentinel) String() string { return s.kind.String() }
func (s *Sentinel) Kind() Kind     { return s.kind }
func (s *Sentinel) Hash() uint64   { return uint64(s.kind)*1099511628211 + 16777619 }
func (s *Sentinel) typeNode()      {}

var (
	Any     = &Sentinel{kind: KindAny}
	Unknown = &Sentinel{kind: KindUnknown}
	Void    = &Sentinel{kind: KindVoid}
	Never   = &Sentinel{kind: KindNever}
)

// --- Primitives ---

// Primitive is a base type such as string or number. Primitives are
// singletons, but equality is structural all the same.
type Primitive struct {
	Name PrimitiveKind
}

func (p *Primitive) String() string { return p.Name.String() }
func (p *Primitive) Kind() Kind     { return KindPrimitive }
func (p *Primitive) Hash() uint64   { return newHasher(KindPrimitive).int(int(p.Name)).sum() }
func (p *Primitive) typeNode()      {}

var (
	String    = &Primitive{Name: PrimString}
	Number    = &Primitive{Name: PrimNumber}
	Boolean   = &Primitive{Name: PrimBoolean}
	BigInt    = &Primitive{Name: PrimBigInt}
	Symbol    = &Primitive{Name: PrimSymbol}
	Null      = &Primitive{Name: PrimNull}
	Undefined = &Primitive{Name: PrimUndefined}
)

// PrimitiveOf returns the singleton for a primitive kind.
func PrimitiveOf(k PrimitiveKind) *Primitive {
	switch k {
	case PrimString:
		return String
	case PrimNumber:
		return Number
	case PrimBoolean:
		return Boolean
	case PrimBigInt:
		return BigInt
	case PrimSymbol:
		return Symbol
	case PrimNull:
		return Null
	default:
		return Undefined
	}
}

// --- Literals ---

// Literal is a unit type: one exact value of a base primitive.
// Text holds the canonical value (unquoted for strings, shortest float
// formatting for numbers, decimal digits for bigints, the name for unique
// symbols).
type Literal struct {
	Base PrimitiveKind
	Text string
}

func (l *Literal) String() string {
	switch l.Base {
	case PrimString:
		return strconv.Quote(l.Text)
	case PrimBigInt:
		return l.Text + "n"
	case PrimSymbol:
		return "unique symbol " + l.Text
	default:
		return l.Text
	}
}
func (l *Literal) Kind() Kind   { return KindLiteral }
func (l *Literal) Hash() uint64 { return newHasher(KindLiteral).int(int(l.Base)).str(l.Text).sum() }
func (l *Literal) typeNode()    {}

// Widen returns the base primitive of the literal.
func (l *Literal) Widen() *Primitive { return PrimitiveOf(l.Base) }

// Float returns the numeric value of a number literal.
func (l *Literal) Float() (float64, bool) {
	if l.Base != PrimNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(l.Text, 64)
	return f, err == nil
}

func StringLit(s string) *Literal { return &Literal{Base: PrimString, Text: s} }

func NumberLit(f float64) *Literal {
	return &Literal{Base: PrimNumber, Text: formatNumber(f)}
}

func BoolLit(b bool) *Literal { return &Literal{Base: PrimBoolean, Text: strconv.FormatBool(b)} }

func BigIntLit(v *big.Int) *Literal { return &Literal{Base: PrimBigInt, Text: v.String()} }

// SymbolLit is a unique symbol. Two unique symbols are the same type only
// when they carry the same name.
func SymbolLit(name string) *Literal { return &Literal{Base: PrimSymbol, Text: name} }

var (
	True  = BoolLit(true)
	False = BoolLit(false)
)

// NewLiteral builds a literal from its textual value, validating it
// against the base kind.
func NewLiteral(base PrimitiveKind, text string) (*Literal, error) {
	switch base {
	case PrimString:
		return StringLit(text), nil
	case PrimNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, malformed(nil, "invalid number literal %q", text)
		}
		return NumberLit(f), nil
	case PrimBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, malformed(nil, "invalid boolean literal %q", text)
		}
		return BoolLit(b), nil
	case PrimBigInt:
		v, ok := new(big.Int).SetString(strings.TrimSuffix(text, "n"), 10)
		if !ok {
			return nil, malformed(nil, "invalid bigint literal %q", text)
		}
		return BigIntLit(v), nil
	case PrimSymbol:
		if text == "" {
			return nil, malformed(nil, "unique symbol needs a name")
		}
		return SymbolLit(text), nil
	default:
		return nil, malformed(nil, "%s has no literal form", base)
	}
}

func formatNumber(f float64) string {
	if f == 0 {
		// -0 and 0 are the same literal
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// --- Arrays and tuples ---

// Array is a homogeneous, variable-length array.
type Array struct {
	Elem     Type
	Readonly bool
	hash     uint64
}

func NewArray(elem Type) *Array {
	return &Array{Elem: elem, hash: hashArray(elem, false)}
}

func NewReadonlyArray(elem Type) *Array {
	return &Array{Elem: elem, Readonly: true, hash: hashArray(elem, true)}
}

func hashArray(elem Type, readonly bool) uint64 {
	return newHasher(KindArray).typ(elem).bool(readonly).sum()
}

func (a *Array) String() string {
	s := wrapOperand(a.Elem) + "[]"
	if a.Readonly {
		return "readonly " + s
	}
	return s
}
func (a *Array) Kind() Kind { return KindArray }
func (a *Array) Hash() uint64 {
	if a.hash != 0 {
		return a.hash
	}
	return hashArray(a.Elem, a.Readonly)
}
func (a *Array) typeNode() {}

// Tuple is the fixed-length array variant.
type Tuple struct {
	Elems []Type
	hash  uint64
}

func NewTuple(elems ...Type) *Tuple {
	return &Tuple{Elems: elems, hash: newHasher(KindTuple).types(elems).sum()}
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (t *Tuple) Kind() Kind { return KindTuple }
func (t *Tuple) Hash() uint64 {
	if t.hash != 0 {
		return t.hash
	}
	return newHasher(KindTuple).types(t.Elems).sum()
}
func (t *Tuple) typeNode() {}

// --- Parameters and placeholders ---

// Param is a reference to a type parameter. It is free until bound by a
// substitution. Identity is by name.
type Param struct {
	Name       string
	Constraint Type
	Default    Type
}

func NewParam(name string) *Param { return &Param{Name: name} }

func (p *Param) String() string { return p.Name }
func (p *Param) Kind() Kind     { return KindParam }
func (p *Param) Hash() uint64   { return newHasher(KindParam).str(p.Name).sum() }
func (p *Param) typeNode()      {}

// Infer is a named capture placeholder. It is only meaningful under the
// extends operand of a Conditional.
type Infer struct {
	Name       string
	Constraint Type
}

func NewInfer(name string) *Infer { return &Infer{Name: name} }

func (i *Infer) String() string {
	if i.Constraint != nil {
		return fmt.Sprintf("infer %s extends %s", i.Name, i.Constraint)
	}
	return "infer " + i.Name
}
func (i *Infer) Kind() Kind   { return KindInfer }
func (i *Infer) Hash() uint64 { return newHasher(KindInfer).str(i.Name).typ(i.Constraint).sum() }
func (i *Infer) typeNode()    {}

// --- References and functions ---

// Reference is a named generic application such as Promise<string>. When the
// name is a registered Declaration it is an alias and expands on
// evaluation; otherwise it is compared nominally by name and arguments.
type Reference struct {
	Name string
	Args []Type
	hash uint64
}

func NewReference(name string, args ...Type) *Reference {
	return &Reference{Name: name, Args: args, hash: newHasher(KindReference).str(name).types(args).sum()}
}

func (r *Reference) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}
	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		parts[i] = a.String()
	}
	return r.Name + "<" + strings.Join(parts, ", ") + ">"
}
func (r *Reference) Kind() Kind { return KindReference }
func (r *Reference) Hash() uint64 {
	if r.hash != 0 {
		return r.hash
	}
	return newHasher(KindReference).str(r.Name).types(r.Args).sum()
}
func (r *Reference) typeNode() {}

// Function is a call signature (params) => result.
type Function struct {
	Params []Type
	Result Type
	hash   uint64
}

func NewFunction(params []Type, result Type) *Function {
	return &Function{Params: params, Result: result, hash: hashFunction(params, result)}
}

func hashFunction(params []Type, result Type) uint64 {
	return newHasher(KindFunction).types(params).typ(result).sum()
}

func (f *Function) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = fmt.Sprintf("arg%d: %s", i, p)
	}
	return fmt.Sprintf("(%s) => %s", strings.Join(parts, ", "), f.Result)
}
func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) Hash() uint64 {
	if f.hash != 0 {
		return f.hash
	}
	return hashFunction(f.Params, f.Result)
}
func (f *Function) typeNode() {}

// --- Deferred operators ---

// KeyOf is `keyof Target`, reduced by Evaluate once Target is concrete.
type KeyOf struct {
	Target Type
}

func NewKeyOf(target Type) *KeyOf { return &KeyOf{Target: target} }

func (k *KeyOf) String() string { return "keyof " + wrapOperand(k.Target) }
func (k *KeyOf) Kind() Kind     { return KindKeyOf }
func (k *KeyOf) Hash() uint64   { return newHasher(KindKeyOf).typ(k.Target).sum() }
func (k *KeyOf) typeNode()      {}

// IndexedAccess is `Object[Index]`.
type IndexedAccess struct {
	Object Type
	Index  Type
}

func NewIndexedAccess(object, index Type) *IndexedAccess {
	return &IndexedAccess{Object: object, Index: index}
}

func (ia *IndexedAccess) String() string {
	return wrapOperand(ia.Object) + "[" + ia.Index.String() + "]"
}
func (ia *IndexedAccess) Kind() Kind { return KindIndexedAccess }
func (ia *IndexedAccess) Hash() uint64 {
	return newHasher(KindIndexedAccess).typ(ia.Object).typ(ia.Index).sum()
}
func (ia *IndexedAccess) typeNode() {}

// Intrinsic applies a built-in string mapping (Uppercase, Capitalize, ...).
type Intrinsic struct {
	Op  IntrinsicOp
	Arg Type
}

func NewIntrinsic(op IntrinsicOp, arg Type) *Intrinsic { return &Intrinsic{Op: op, Arg: arg} }

// Uppercase-family helpers used by document loading and tests.
func Uppercase(arg Type) *Intrinsic    { return NewIntrinsic(OpUppercase, arg) }
func Lowercase(arg Type) *Intrinsic    { return NewIntrinsic(OpLowercase, arg) }
func Capitalize(arg Type) *Intrinsic   { return NewIntrinsic(OpCapitalize, arg) }
func Uncapitalize(arg Type) *Intrinsic { return NewIntrinsic(OpUncapitalize, arg) }

func (in *Intrinsic) String() string { return fmt.Sprintf("%s<%s>", in.Op, in.Arg) }
func (in *Intrinsic) Kind() Kind     { return KindIntrinsic }
func (in *Intrinsic) Hash() uint64   { return newHasher(KindIntrinsic).int(int(in.Op)).typ(in.Arg).sum() }
func (in *Intrinsic) typeNode()      {}

// --- Conditionals ---

// Conditional is `Check extends Extends ? Then : Else`.
// Distribute is set when Check is a bare type parameter: the conditional then
// maps over the members of a union bound to that parameter.
type Conditional struct {
	Check      Type
	Extends    Type
	Then       Type
	Else       Type
	Distribute bool
	hash       uint64
}

// NewConditional validates infer placement and derives Distribute.
func NewConditional(check, extends, then, els Type) (*Conditional, error) {
	for _, t := range []Type{check, extends, then, els} {
		if t == nil {
			return nil, malformed(nil, "conditional operand is nil")
		}
	}
	for _, t := range []Type{check, then, els} {
		if err := Validate(t); err != nil {
			return nil, err
		}
	}
	if err := validateExtends(extends); err != nil {
		return nil, err
	}
	_, distribute := check.(*Param)
	return newConditional(check, extends, then, els, distribute), nil
}

func newConditional(check, extends, then, els Type, distribute bool) *Conditional {
	return &Conditional{
		Check:      check,
		Extends:    extends,
		Then:       then,
		Else:       els,
		Distribute: distribute,
		hash:       hashConditional(check, extends, then, els, distribute),
	}
}

func hashConditional(check, extends, then, els Type, distribute bool) uint64 {
	return newHasher(KindConditional).typ(check).typ(extends).typ(then).typ(els).bool(distribute).sum()
}

func (c *Conditional) String() string {
	return fmt.Sprintf("%s extends %s ? %s : %s", wrapOperand(c.Check), wrapOperand(c.Extends), c.Then, c.Else)
}
func (c *Conditional) Kind() Kind { return KindConditional }
func (c *Conditional) Hash() uint64 {
	if c.hash != 0 {
		return c.hash
	}
	return hashConditional(c.Check, c.Extends, c.Then, c.Else, c.Distribute)
}
func (c *Conditional) typeNode() {}

// wrapOperand parenthesizes types that would otherwise bind loosely when
// printed as an operand of a postfix or prefix operator.
func wrapOperand(t Type) string {
	switch v := t.(type) {
	case *Union, *Intersection, *Function, *Conditional, *KeyOf:
		return "(" + t.String() + ")"
	case *Array:
		if v.Readonly {
			return "(" + t.String() + ")"
		}
	}
	return t.String()
}
