package typesystem

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func assertType(t *testing.T, want, got Type) {
	t.Helper()
	if !Identical(want, got) {
		t.Errorf("type mismatch\nwant: %s\ngot:  %s\n%s", want, got, spew.Sdump(got))
	}
}

func cond(t *testing.T, check, extends, then, els Type) *Conditional {
	t.Helper()
	c, err := NewConditional(check, extends, then, els)
	require.NoError(t, err)
	return c
}

func object(t *testing.T, props ...Property) *Object {
	t.Helper()
	o, err := NewObject(props, nil)
	require.NoError(t, err)
	return o
}

func prop(key string, typ Type) Property { return Property{Key: key, Type: typ} }

func template(t *testing.T, segs ...TemplateSegment) Type {
	t.Helper()
	tt, err := NewTemplate(segs...)
	require.NoError(t, err)
	return tt
}

func newTestChecker(t *testing.T, opts Options) *Checker {
	t.Helper()
	c, err := NewChecker(opts)
	require.NoError(t, err)
	return c
}

func declare(t *testing.T, c *Checker, name string, params []ParamDecl, body Type) {
	t.Helper()
	require.NoError(t, c.Declare(Declaration{Name: name, Params: params, Body: body}))
}

var (
	T = NewParam("T")
	U = NewParam("U")
)
