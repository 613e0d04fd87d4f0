package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleTypes(t *testing.T) []Type {
	return []Type{
		Any, Unknown, Void, Never,
		String, Number, Boolean, BigInt, Symbol, Null, Undefined,
		StringLit("a"), NumberLit(1), True, SymbolLit("tag"),
		NewArray(String), NewReadonlyArray(Number), NewTuple(String, Number),
		EmptyObject, object(t, prop("a", String)),
		NewUnion(String, Number),
		NewIntersection(T, object(t, prop("b", Number))),
		T,
		template(t, TextSegment("x"), HoleSegment(Number)),
		NewReference("Promise", String),
		NewFunction([]Type{String}, Number),
		cond(t, T, String, Never, T),
		NewKeyOf(T),
	}
}

func TestSubtypeReflexive(t *testing.T) {
	for _, typ := range sampleTypes(t) {
		assert.True(t, IsSubtype(typ, typ), "%s <: %s", typ, typ)
	}
}

func TestSubtypeTopBottom(t *testing.T) {
	for _, typ := range sampleTypes(t) {
		assert.True(t, IsSubtype(Never, typ), "never <: %s", typ)
		assert.True(t, IsSubtype(typ, Unknown), "%s <: unknown", typ)
		assert.True(t, IsSubtype(typ, Any), "%s <: any", typ)
	}
}

func TestSubtypeUnionDistribution(t *testing.T) {
	set := []Type{
		String, Number, Boolean, Null,
		StringLit("a"), NumberLit(1), True, False,
		NewArray(String), EmptyObject, object(t, prop("a", String)),
	}
	for _, a := range set {
		for _, b := range set {
			for _, c := range set {
				want := IsSubtype(a, c) && IsSubtype(b, c)
				assert.Equal(t, want, IsSubtype(NewUnion(a, b), c), "(%s | %s) <: %s", a, b, c)
			}
		}
	}
}

func TestSubtypeRules(t *testing.T) {
	optionalB := Property{Key: "b", Type: Number, Optional: true}
	readonlyA := Property{Key: "a", Type: String, Readonly: true}
	stringIndex := func(value Type, props ...Property) *Object {
		o, err := NewObject(props, &IndexSignature{Key: PrimString, Value: value})
		require.NoError(t, err)
		return o
	}
	withB := func(props ...Property) *Object {
		o, err := NewObject(props, nil)
		require.NoError(t, err)
		return o
	}
	constrained := &Param{Name: "S", Constraint: String}

	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"literal widens", StringLit("a"), String, true},
		{"primitive does not narrow", String, StringLit("a"), false},
		{"number literal", NumberLit(1), Number, true},
		{"foreign primitive", NumberLit(1), String, false},
		{"boolean splits", Boolean, NewUnion(True, False), true},
		{"boolean vs one literal", Boolean, True, false},
		{"undefined to void", Undefined, Void, true},
		{"null to void", Null, Void, false},
		{"void to undefined", Void, Undefined, false},
		{"any is structural", Any, String, false},
		{"unknown to string", Unknown, String, false},
		{"union target some member", StringLit("a"), NewUnion(Number, String), true},
		{"union source every member", NewUnion(StringLit("a"), NumberLit(1)), String, false},
		{"intersection source any member", NewIntersection(T, object(t, prop("a", String))), object(t, prop("a", String)), true},
		{"intersection target every member", object(t, prop("a", String), prop("b", Number)), NewIntersection(T, object(t, prop("a", String))), false},
		{"mutable to readonly array", NewArray(String), NewReadonlyArray(String), true},
		{"readonly to mutable array", NewReadonlyArray(String), NewArray(String), false},
		{"covariant arrays", NewArray(StringLit("a")), NewArray(String), true},
		{"tuple to array", NewTuple(String, Number), NewArray(NewUnion(String, Number)), true},
		{"tuple to narrower array", NewTuple(String, Number), NewArray(String), false},
		{"tuple arity", NewTuple(String), NewTuple(String, Number), false},
		{"array to tuple", NewArray(String), NewTuple(String), false},
		{"tuple elementwise", NewTuple(StringLit("a"), NumberLit(1)), NewTuple(String, Number), true},
		{"width subtyping", object(t, prop("a", String), prop("b", Number)), object(t, prop("a", String)), true},
		{"missing property", object(t, prop("a", String)), object(t, prop("a", String), prop("b", Number)), false},
		{"optional target property", object(t, prop("a", String)), withB(prop("a", String), optionalB), true},
		{"optional source property", withB(Property{Key: "a", Type: String, Optional: true}), object(t, prop("a", String)), false},
		{"readonly source property", withB(readonlyA), object(t, prop("a", String)), false},
		{"mutable satisfies readonly", object(t, prop("a", String)), withB(readonlyA), true},
		{"index signature accepts", object(t, prop("a", StringLit("x"))), stringIndex(String), true},
		{"index signature rejects", object(t, prop("a", NumberLit(1))), stringIndex(String), false},
		{"index to index", stringIndex(StringLit("x")), stringIndex(String), true},
		{"array as object", NewArray(String), object(t, prop("length", Number)), true},
		{"primitive is not an object", StringLit("a"), EmptyObject, false},
		{"function is an object", NewFunction(nil, Void), EmptyObject, true},
		{"same reference", NewReference("Promise", StringLit("a")), NewReference("Promise", String), true},
		{"other reference", NewReference("Promise", String), NewReference("Box", String), false},
		{"function variance", NewFunction([]Type{String}, StringLit("a")), NewFunction([]Type{StringLit("b")}, String), true},
		{"parameter not contravariant", NewFunction([]Type{StringLit("b")}, String), NewFunction([]Type{String}, String), false},
		{"fewer parameters", NewFunction(nil, Number), NewFunction([]Type{String}, Number), true},
		{"more parameters", NewFunction([]Type{String, String}, Number), NewFunction([]Type{String}, Number), false},
		{"template prefix", StringLit("get_x"), template(t, TextSegment("get_"), HoleSegment(String)), true},
		{"template prefix mismatch", StringLit("set_x"), template(t, TextSegment("get_"), HoleSegment(String)), false},
		{"numeric template", StringLit("12"), template(t, HoleSegment(Number)), true},
		{"numeric template rejects", StringLit("x12"), template(t, HoleSegment(Number)), false},
		{"number literal is not a string", NumberLit(12), template(t, HoleSegment(Number)), false},
		{"template to string", template(t, TextSegment("a"), HoleSegment(Number)), String, true},
		{"template to wider template", template(t, TextSegment("get"), HoleSegment(Number)), template(t, TextSegment("get"), HoleSegment(String)), true},
		{"template to narrower template", template(t, TextSegment("get"), HoleSegment(String)), template(t, TextSegment("get"), HoleSegment(Number)), false},
		{"template suffix", template(t, TextSegment("on"), HoleSegment(String), TextSegment("Click")), template(t, HoleSegment(String), TextSegment("Click")), true},
		{"uppercase intrinsic", StringLit("ABC"), Uppercase(String), true},
		{"uppercase intrinsic rejects", StringLit("Abc"), Uppercase(String), false},
		{"constrained param", constrained, String, true},
		{"unconstrained param", T, String, false},
		{"deferred conditional", cond(t, T, String, StringLit("a"), StringLit("b")), String, true},
		{"keyof param", NewKeyOf(T), NewUnion(String, Number, Symbol), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubtype(tt.a, tt.b), "%s <: %s", tt.a, tt.b)
		})
	}
}

func TestSubtypeCapturing(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want Subst
	}{
		{
			"reference argument",
			NewReference("Promise", NewUnion(String, Number)),
			NewReference("Promise", NewInfer("R")),
			Subst{"R": NewUnion(String, Number)},
		},
		{
			"tuple elements",
			NewTuple(String, Number),
			NewTuple(NewInfer("A"), NewInfer("B")),
			Subst{"A": String, "B": Number},
		},
		{
			"repeated name unions",
			NewTuple(String, Number),
			NewTuple(NewInfer("A"), NewInfer("A")),
			Subst{"A": NewUnion(String, Number)},
		},
		{
			"template tail",
			StringLit("getFoo"),
			template(t, TextSegment("get"), HoleSegment(NewInfer("N"))),
			Subst{"N": StringLit("Foo")},
		},
		{
			"numeric template capture",
			StringLit("v42"),
			template(t, TextSegment("v"), HoleSegment(&Infer{Name: "N", Constraint: Number})),
			Subst{"N": NumberLit(42)},
		},
		{
			"head and rest",
			StringLit("abc"),
			template(t, HoleSegment(NewInfer("H")), HoleSegment(NewInfer("R"))),
			Subst{"H": StringLit("a"), "R": StringLit("bc")},
		},
		{
			"function parts",
			NewFunction([]Type{String}, Number),
			NewFunction([]Type{NewInfer("P")}, NewInfer("R")),
			Subst{"P": String, "R": Number},
		},
		{
			"failed member rolled back",
			NewTuple(NumberLit(1), StringLit("x")),
			NewUnion(NewTuple(NewInfer("X"), Number), NewTuple(Number, NewInfer("Y"))),
			Subst{"Y": StringLit("x")},
		},
		{
			"object property",
			object(t, prop("value", NewArray(String))),
			object(t, prop("value", NewArray(NewInfer("E")))),
			Subst{"E": String},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, got := IsSubtypeCapturing(tt.a, tt.b)
			require.True(t, ok, "%s <: %s", tt.a, tt.b)
			require.Len(t, got, len(tt.want), "captures %s", got)
			for name, want := range tt.want {
				assertType(t, want, got[name])
			}
		})
	}

	ok, got := IsSubtypeCapturing(NewTuple(String), NewTuple(NewInfer("A"), NewInfer("B")))
	assert.False(t, ok)
	assert.Nil(t, got)

	ok, got = IsSubtypeCapturing(StringLit("v4x"), template(t, TextSegment("v"), HoleSegment(&Infer{Name: "N", Constraint: Number})))
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSubtypeDepthLimit(t *testing.T) {
	nest := func(elem Type, n int) Type {
		for i := 0; i < n; i++ {
			elem = NewArray(elem)
		}
		return elem
	}
	a, b := nest(StringLit("a"), 6), nest(String, 6)

	core, logs := observer.New(zap.WarnLevel)
	shallow := newTestChecker(t, Options{MaxDepth: 3, Logger: zap.New(core)})
	assert.False(t, shallow.IsSubtype(a, b))
	assert.Equal(t, 1, logs.FilterMessage("subtype check exceeded depth limit").Len())

	assert.True(t, newTestChecker(t, Options{}).IsSubtype(a, b))
}
