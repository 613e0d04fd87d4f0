package typesystem

import "fmt"

// Kind is the variant tag of a Type. Every component dispatches on it (or on
// the concrete Go type) rather than on ad-hoc properties.
type Kind int

const (
	KindAny Kind = iota
	KindUnknown
	KindVoid
	KindNever
	KindPrimitive
	KindLiteral
	KindTemplate
	KindObject
	KindArray
	KindTuple
	KindUnion
	KindIntersection
	KindParam
	KindConditional
	KindInfer
	KindReference
	KindFunction
	KindKeyOf
	KindIndexedAccess
	KindIntrinsic
)

var kindNames = [...]string{
	KindAny:           "any",
	KindUnknown:       "unknown",
	KindVoid:          "void",
	KindNever:         "never",
	KindPrimitive:     "primitive",
	KindLiteral:       "literal",
	KindTemplate:      "template",
	KindObject:        "object",
	KindArray:         "array",
	KindTuple:         "tuple",
	KindUnion:         "union",
	KindIntersection:  "intersection",
	KindParam:         "param",
	KindConditional:   "conditional",
	KindInfer:         "infer",
	KindReference:     "reference",
	KindFunction:      "function",
	KindKeyOf:         "keyof",
	KindIndexedAccess: "indexed-access",
	KindIntrinsic:     "intrinsic",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// PrimitiveKind names the base of a Primitive or Literal.
type PrimitiveKind int

const (
	PrimString PrimitiveKind = iota
	PrimNumber
	PrimBoolean
	PrimBigInt
	PrimSymbol
	PrimNull
	PrimUndefined
)

var primitiveNames = [...]string{
	PrimString:    "string",
	PrimNumber:    "number",
	PrimBoolean:   "boolean",
	PrimBigInt:    "bigint",
	PrimSymbol:    "symbol",
	PrimNull:      "null",
	PrimUndefined: "undefined",
}

func (p PrimitiveKind) String() string {
	if p >= 0 && int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("PrimitiveKind(%d)", int(p))
}

// ParsePrimitiveKind maps a primitive keyword to its kind.
func ParsePrimitiveKind(name string) (PrimitiveKind, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return PrimitiveKind(i), true
		}
	}
	return 0, false
}
