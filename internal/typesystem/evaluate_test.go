package typesystem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveArrayWrap(t *testing.T) {
	arrayWrap := cond(t, T, NewArray(Any), T, NewArray(T))

	got, err := ResolveConditional(arrayWrap, Subst{"T": String})
	require.NoError(t, err)
	assertType(t, NewArray(String), got)

	got, err = ResolveConditional(arrayWrap, Subst{"T": NewArray(String)})
	require.NoError(t, err)
	assertType(t, NewArray(String), got)
}

func TestResolveNoStringsDistributes(t *testing.T) {
	noStrings := cond(t, T, String, Never, T)
	arg := NewUnion(StringLit("a"), StringLit("b"), NumberLit(5), EmptyObject)

	got, err := ResolveConditional(noStrings, Subst{"T": arg})
	require.NoError(t, err)
	assertType(t, NewUnion(NumberLit(5), EmptyObject), got)
	assert.Equal(t, "5 | {}", got.String())

	// the same check against the whole union is not distributive
	whole := cond(t, NewTuple(T), NewTuple(String), Never, T)
	got, err = ResolveConditional(whole, Subst{"T": arg})
	require.NoError(t, err)
	assertType(t, arg, got)
}

func TestResolvePromiseResult(t *testing.T) {
	promiseResult := cond(t, T, NewReference("Promise", NewInfer("R")), NewParam("R"), Never)

	got, err := ResolveConditional(promiseResult, Subst{"T": NewReference("Promise", NewUnion(String, Number))})
	require.NoError(t, err)
	assertType(t, NewUnion(String, Number), got)

	got, err = ResolveConditional(promiseResult, Subst{"T": String})
	require.NoError(t, err)
	assertType(t, Never, got)
}

func TestResolveGetterName(t *testing.T) {
	c := newTestChecker(t, Options{})
	params := []ParamDecl{{Name: "T", Constraint: String}}
	declare(t, c, "GetterName", params, template(t, TextSegment("get"), HoleSegment(Capitalize(T))))

	_, err := c.Evaluate(NewReference("GetterName", NumberLit(5)), nil)
	var violation *ConstraintViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "T", violation.Param)
	assertType(t, NumberLit(5), violation.Arg)
	assertType(t, String, violation.Constraint)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = c.Instantiate(params, []Type{NumberLit(5)}, nil)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	got, err := c.Evaluate(NewReference("GetterName", NewUnion(StringLit("foo"), StringLit("bar"))), nil)
	require.NoError(t, err)
	assertType(t, NewUnion(StringLit("getFoo"), StringLit("getBar")), got)
}

func TestResolveCycleGuard(t *testing.T) {
	c := newTestChecker(t, Options{})
	loop := cond(t, T, NewReference("Loop", T), NumberLit(1), NumberLit(0))
	declare(t, c, "Loop", []ParamDecl{{Name: "T"}}, loop)

	_, err := c.Evaluate(NewReference("Loop", String), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvableRecursion)
	assert.True(t, IsUnresolvable(err))
	var rec *UnresolvableRecursionError
	require.True(t, errors.As(err, &rec))
	assertType(t, String, rec.Check)
	assertType(t, NewReference("Loop", String), rec.Extends)
}

func TestResolveNestedRepeatedCheck(t *testing.T) {
	c := newTestChecker(t, Options{})

	inner := cond(t, StringLit("a"), String, True, False)
	outer := cond(t, StringLit("a"), String, inner, False)
	got, err := c.Evaluate(outer, nil)
	require.NoError(t, err)
	assertType(t, True, got)

	declare(t, c, "IsStr", []ParamDecl{{Name: "T"}}, cond(t, T, String, True, False))
	declare(t, c, "Both", []ParamDecl{{Name: "T"}}, cond(t, T, String, NewReference("IsStr", T), False))
	tests := []struct {
		arg  Type
		want Type
	}{
		{StringLit("a"), True},
		{NumberLit(5), False},
		{NewUnion(StringLit("a"), NumberLit(5)), NewUnion(False, True)},
	}
	for _, tt := range tests {
		t.Run(tt.arg.String(), func(t *testing.T) {
			got, err := c.Evaluate(NewReference("Both", tt.arg), nil)
			require.NoError(t, err)
			assertType(t, tt.want, got)
		})
	}
}

func TestResolutionStack(t *testing.T) {
	res := newTestChecker(t, Options{}).newResolution()
	a := cond(t, StringLit("a"), String, True, False)
	same := cond(t, StringLit("a"), String, True, False)
	other := cond(t, StringLit("a"), String, False, True)

	require.True(t, res.push(a))
	assert.True(t, res.push(other))
	assert.False(t, res.push(same))
	res.pop()
	res.pop()
	assert.True(t, res.push(same))
	assert.Len(t, res.stack, 1)
}

func TestResolveDepthLimit(t *testing.T) {
	c := newTestChecker(t, Options{MaxDepth: 50})
	declare(t, c, "Deep", []ParamDecl{{Name: "T"}}, NewReference("Deep", NewArray(T)))

	_, err := c.Evaluate(NewReference("Deep", String), nil)
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)
	assert.True(t, IsUnresolvable(err))
	assert.False(t, errors.Is(err, ErrUnresolvableRecursion))
}

func TestResolveRecursiveAlias(t *testing.T) {
	c := newTestChecker(t, Options{})
	flatten := cond(t, T, NewArray(NewInfer("E")), NewReference("Flatten", NewParam("E")), T)
	declare(t, c, "Flatten", []ParamDecl{{Name: "T"}}, flatten)

	got, err := c.Evaluate(NewReference("Flatten", NewArray(NewArray(NewArray(String)))), nil)
	require.NoError(t, err)
	assertType(t, String, got)
}

func TestResolveConditionalCases(t *testing.T) {
	tests := []struct {
		name     string
		cond     *Conditional
		bindings Subst
		want     Type
	}{
		{
			"any check takes both branches",
			cond(t, T, String, NumberLit(1), NumberLit(2)),
			Subst{"T": Any},
			NewUnion(NumberLit(1), NumberLit(2)),
		},
		{
			"never check distributes to never",
			cond(t, T, String, NumberLit(1), NumberLit(2)),
			Subst{"T": Never},
			Never,
		},
		{
			"boolean distributes",
			cond(t, T, True, StringLit("yes"), StringLit("no")),
			Subst{"T": Boolean},
			NewUnion(StringLit("yes"), StringLit("no")),
		},
		{
			"nested conditional",
			cond(t, T, String, cond(t, T, StringLit("a"), NumberLit(1), NumberLit(2)), NumberLit(3)),
			Subst{"T": NewUnion(StringLit("a"), StringLit("b"), NumberLit(5))},
			NewUnion(NumberLit(1), NumberLit(2), NumberLit(3)),
		},
		{
			"uncaptured infer is never",
			cond(t, T, NewUnion(NewReference("Box", NewInfer("R")), String), NewParam("R"), Null),
			Subst{"T": StringLit("x")},
			Never,
		},
		{
			"template infer",
			cond(t, T, template(t, TextSegment("get"), HoleSegment(NewInfer("N"))), Uncapitalize(NewParam("N")), Never),
			Subst{"T": NewUnion(StringLit("getFoo"), StringLit("setBar"), StringLit("getBaz"))},
			NewUnion(StringLit("foo"), StringLit("baz")),
		},
		{
			"function parts",
			cond(t, T, NewFunction([]Type{NewInfer("P")}, Any), NewParam("P"), Never),
			Subst{"T": NewFunction([]Type{String}, Void)},
			String,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveConditional(tt.cond, tt.bindings)
			require.NoError(t, err)
			assertType(t, tt.want, got)
		})
	}
}

func TestResolveDefersFreeParams(t *testing.T) {
	c := cond(t, NewTuple(T), NewTuple(String), NumberLit(1), NumberLit(2))
	got, err := ResolveConditional(c, Subst{"U": String})
	require.NoError(t, err)
	assert.Equal(t, KindConditional, got.Kind())

	_, err = ResolveConditional(String, nil)
	assert.ErrorIs(t, err, ErrMalformedType)
}

func TestEvaluateOperators(t *testing.T) {
	point := object(t, prop("x", Number), prop("y", Number), Property{Key: "label", Type: String, Optional: true})
	dict, err := NewObject(nil, &IndexSignature{Key: PrimString, Value: Boolean})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Type
		want Type
	}{
		{"keyof object", NewKeyOf(point), NewUnion(StringLit("x"), StringLit("y"), StringLit("label"))},
		{"keyof string index", NewKeyOf(dict), NewUnion(String, Number)},
		{"keyof union keeps shared keys", NewKeyOf(NewUnion(point, object(t, prop("x", String)))), StringLit("x")},
		{"keyof primitive", NewKeyOf(String), Never},
		{"property access", NewIndexedAccess(point, StringLit("x")), Number},
		{"optional property access", NewIndexedAccess(point, StringLit("label")), NewUnion(String, Undefined)},
		{"union index", NewIndexedAccess(point, NewUnion(StringLit("x"), StringLit("label"))), NewUnion(Number, String, Undefined)},
		{"index signature access", NewIndexedAccess(dict, StringLit("anything")), Boolean},
		{"array element", NewIndexedAccess(NewArray(String), Number), String},
		{"tuple element", NewIndexedAccess(NewTuple(String, Number), NumberLit(1)), Number},
		{"tuple length", NewIndexedAccess(NewTuple(String, Number), StringLit("length")), NumberLit(2)},
		{"all property values", NewIndexedAccess(point, NewKeyOf(point)), NewUnion(Number, String, Undefined)},
		{"uppercase", Uppercase(StringLit("abc")), StringLit("ABC")},
		{"uncapitalize union", Uncapitalize(NewUnion(StringLit("Foo"), StringLit("Bar"))), NewUnion(StringLit("foo"), StringLit("bar"))},
		{"capitalize template", Capitalize(template(t, TextSegment("on"), HoleSegment(Number))), template(t, TextSegment("On"), HoleSegment(Number))},
		{"intrinsic inside object", object(t, prop("k", Lowercase(StringLit("AB")))), object(t, prop("k", StringLit("ab")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.in, nil)
			require.NoError(t, err)
			assertType(t, tt.want, got)
		})
	}

	_, err = Evaluate(NewIndexedAccess(point, StringLit("z")), nil)
	assert.ErrorIs(t, err, ErrMalformedType)

	deferred, err := Evaluate(NewKeyOf(T), nil)
	require.NoError(t, err)
	assertType(t, NewKeyOf(T), deferred)
}

func TestEvaluateNominalReference(t *testing.T) {
	got, err := Evaluate(NewReference("Promise", Uppercase(StringLit("a"))), nil)
	require.NoError(t, err)
	assertType(t, NewReference("Promise", StringLit("A")), got)
}

func TestEvaluateRejectsMisplacedInfer(t *testing.T) {
	_, err := Evaluate(NewTuple(NewInfer("X")), nil)
	assert.ErrorIs(t, err, ErrMalformedType)
}

func TestResolveDistributesOverAliasBinding(t *testing.T) {
	c := newTestChecker(t, Options{})
	declare(t, c, "MyUnion", nil, NewUnion(StringLit("a"), NumberLit(5)))
	noStrings := cond(t, T, String, Never, T)
	declare(t, c, "NoStrings", []ParamDecl{{Name: "T"}}, noStrings)
	myUnion := NewReference("MyUnion")

	got, err := c.Evaluate(NewReference("NoStrings", myUnion), nil)
	require.NoError(t, err)
	assertType(t, NumberLit(5), got)

	got, err = c.ResolveConditional(noStrings, Subst{"T": myUnion})
	require.NoError(t, err)
	assertType(t, NumberLit(5), got)

	// a binding reached through another binding
	got, err = c.ResolveConditional(noStrings, Subst{"T": U, "U": myUnion})
	require.NoError(t, err)
	assertType(t, NumberLit(5), got)

	// a binding that fails to evaluate fails the whole call
	_, err = c.ResolveConditional(noStrings, Subst{"T": NewIndexedAccess(EmptyObject, StringLit("missing"))})
	assert.ErrorIs(t, err, ErrMalformedType)
}
