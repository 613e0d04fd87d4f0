package typesystem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnion(t *testing.T) {
	tests := []struct {
		name string
		in   []Type
		want string
	}{
		{"flatten", []Type{String, NewUnion(Number, Boolean)}, "boolean | number | string"},
		{"never absorbed", []Type{Never, String}, "string"},
		{"empty is never", nil, "never"},
		{"only never", []Type{Never, Never}, "never"},
		{"any absorbs", []Type{String, Unknown, Any}, "any"},
		{"unknown absorbs", []Type{String, Unknown}, "unknown"},
		{"dedupe", []Type{StringLit("a"), StringLit("a")}, `"a"`},
		{"literal covered by base", []Type{StringLit("a"), String, NumberLit(1)}, "1 | string"},
		{"order independent", []Type{NumberLit(2), NumberLit(1)}, "1 | 2"},
		{"function member", []Type{NewFunction(nil, String), Null}, "(() => string) | null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewUnion(tt.in...).String())
		})
	}
}

func TestUnionNeverNested(t *testing.T) {
	u := NewUnion(NewUnion(StringLit("a"), StringLit("b")), NewUnion(StringLit("c"), Number))
	require.IsType(t, &Union{}, u)
	for _, m := range u.(*Union).Members {
		assert.NotEqual(t, KindUnion, m.Kind())
	}
	assert.Len(t, u.(*Union).Members, 4)
}

func TestNewIntersection(t *testing.T) {
	a := object(t, prop("a", String))
	b := object(t, prop("b", Number))
	tests := []struct {
		name string
		in   []Type
		want string
	}{
		{"filters union by primitive", []Type{NewUnion(StringLit("a"), StringLit("b"), NumberLit(5), EmptyObject), String}, `"a" | "b"`},
		{"incompatible literals", []Type{StringLit("a"), StringLit("b")}, "never"},
		{"different primitives", []Type{String, Number}, "never"},
		{"object and primitive", []Type{a, String}, "never"},
		{"narrower kept", []Type{String, StringLit("a")}, `"a"`},
		{"objects merged", []Type{a, b}, "{ a: string; b: number }"},
		{"unknown is identity", []Type{Unknown, String}, "string"},
		{"never absorbs", []Type{String, Never}, "never"},
		{"empty is top object", nil, "{}"},
		{"param kept", []Type{T, String}, "T & string"},
		{"shared key intersected", []Type{object(t, prop("a", String)), object(t, prop("a", StringLit("x")))}, `{ a: "x" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewIntersection(tt.in...).String())
		})
	}
}

func TestLiterals(t *testing.T) {
	assert.Equal(t, "0", NumberLit(math0()).Text)
	assert.Equal(t, "10n", BigIntLit(big.NewInt(10)).String())
	assert.Equal(t, `"a"`, StringLit("a").String())
	assert.Equal(t, "unique symbol tag", SymbolLit("tag").String())
	assert.Same(t, String, StringLit("x").Widen())

	lit, err := NewLiteral(PrimNumber, "1.50")
	require.NoError(t, err)
	assert.Equal(t, "1.5", lit.Text)

	for _, bad := range []struct {
		base PrimitiveKind
		text string
	}{
		{PrimNumber, "NaN"},
		{PrimNumber, "x"},
		{PrimBoolean, "yes"},
		{PrimBigInt, "1.5"},
		{PrimNull, "null"},
		{PrimUndefined, "undefined"},
		{PrimSymbol, ""},
	} {
		_, err := NewLiteral(bad.base, bad.text)
		assert.ErrorIs(t, err, ErrMalformedType, "%s %q", bad.base, bad.text)
	}
}

// math0 returns negative zero without tripping constant folding.
func math0() float64 {
	z := 0.0
	return -z
}

func TestNewObject(t *testing.T) {
	o, err := NewObject([]Property{
		{Key: "b", Type: Number, Optional: true},
		{Key: "a", Type: String, Readonly: true},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "{ readonly a: string; b?: number }", o.String())
	p, ok := o.Lookup("b")
	require.True(t, ok)
	assert.True(t, p.Optional)
	_, ok = o.Lookup("c")
	assert.False(t, ok)

	tests := []struct {
		name  string
		props []Property
		index *IndexSignature
	}{
		{"duplicate key", []Property{prop("a", String), prop("a", Number)}, nil},
		{"nil type", []Property{{Key: "a"}}, nil},
		{"boolean index key", nil, &IndexSignature{Key: PrimBoolean, Value: String}},
		{"entry incompatible with string index", []Property{prop("a", Number)}, &IndexSignature{Key: PrimString, Value: String}},
		{"numeric entry incompatible with number index", []Property{prop("0", Number)}, &IndexSignature{Key: PrimNumber, Value: String}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObject(tt.props, tt.index)
			assert.ErrorIs(t, err, ErrMalformedType)
		})
	}

	_, err = NewObject([]Property{prop("name", Number)}, &IndexSignature{Key: PrimNumber, Value: String})
	assert.NoError(t, err, "non-numeric keys are outside a number index")
}

func TestNewTemplate(t *testing.T) {
	tests := []struct {
		name string
		segs []TemplateSegment
		want string
	}{
		{"no holes", []TemplateSegment{TextSegment("a"), TextSegment("b")}, `"ab"`},
		{"literal hole folded", []TemplateSegment{TextSegment("v"), HoleSegment(NumberLit(1))}, `"v1"`},
		{"number hole", []TemplateSegment{TextSegment("x"), HoleSegment(Number)}, "`x${number}`"},
		{"lone string", []TemplateSegment{HoleSegment(String)}, "string"},
		{"union hole expanded", []TemplateSegment{TextSegment("get"), HoleSegment(NewUnion(StringLit("A"), StringLit("B")))}, `"getA" | "getB"`},
		{"boolean hole expanded", []TemplateSegment{TextSegment("is-"), HoleSegment(Boolean)}, `"is-false" | "is-true"`},
		{"never hole", []TemplateSegment{TextSegment("x"), HoleSegment(Never)}, "never"},
		{"null folded", []TemplateSegment{HoleSegment(Null), TextSegment("!")}, `"null!"`},
		{"nested template inlined", []TemplateSegment{TextSegment("a"), HoleSegment(template(t, TextSegment("b"), HoleSegment(Number)))}, "`ab${number}`"},
		{"cross product", []TemplateSegment{
			HoleSegment(NewUnion(NumberLit(1), NumberLit(2))),
			TextSegment("-"),
			HoleSegment(NewUnion(StringLit("a"), StringLit("b"))),
		}, `"1-a" | "1-b" | "2-a" | "2-b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTemplate(tt.segs...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	for _, hole := range []Type{EmptyObject, NewArray(String), Symbol, Unknown} {
		_, err := NewTemplate(TextSegment("x"), HoleSegment(hole))
		assert.ErrorIs(t, err, ErrMalformedType, "hole %s", hole)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(NewArray(T)))
	assert.ErrorIs(t, Validate(NewArray(NewInfer("R"))), ErrMalformedType)

	_, err := NewConditional(T, NewReference("Promise", NewInfer("R")), NewParam("R"), Never)
	assert.NoError(t, err)
	_, err = NewConditional(T, String, NewInfer("R"), Never)
	assert.ErrorIs(t, err, ErrMalformedType, "infer in the true branch")
	_, err = NewConditional(NewInfer("R"), String, T, Never)
	assert.ErrorIs(t, err, ErrMalformedType, "infer as the checked type")
	_, err = NewConditional(T, String, nil, Never)
	assert.ErrorIs(t, err, ErrMalformedType)
}

func TestConditionalDistribute(t *testing.T) {
	assert.True(t, cond(t, T, String, Never, T).Distribute)
	assert.False(t, cond(t, NewTuple(T), NewTuple(String), Never, T).Distribute)
	assert.False(t, cond(t, String, String, Never, T).Distribute)
}

func TestIdenticalAndHash(t *testing.T) {
	a := NewUnion(StringLit("x"), NewArray(Number), object(t, prop("k", T)))
	b := NewUnion(object(t, prop("k", T)), StringLit("x"), NewArray(Number))
	assert.True(t, Identical(a, b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, Identical(NewArray(String), NewReadonlyArray(String)))
	assert.False(t, Identical(StringLit("1"), NumberLit(1)))
	assert.False(t, Identical(NewInfer("A"), NewInfer("B")))
}

func TestFreeParams(t *testing.T) {
	c := cond(t, T, NewReference("Box", NewInfer("R")), NewUnion(NewParam("R"), U), Never)
	assert.Equal(t, []string{"T", "U"}, FreeParams(c))
	assert.Empty(t, FreeParams(NewArray(String)))
}

func TestStringForms(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{NewArray(NewUnion(String, Number)), "(number | string)[]"},
		{NewReadonlyArray(String), "readonly string[]"},
		{NewTuple(String, NumberLit(1)), "[string, 1]"},
		{NewReference("Promise", String), "Promise<string>"},
		{NewFunction([]Type{String}, Void), "(arg0: string) => void"},
		{NewKeyOf(T), "keyof T"},
		{NewIndexedAccess(T, StringLit("a")), `T["a"]`},
		{Capitalize(T), "Capitalize<T>"},
		{NewInfer("R"), "infer R"},
		{&Infer{Name: "N", Constraint: Number}, "infer N extends number"},
		{cond(t, T, String, Never, T), "T extends string ? never : T"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}
