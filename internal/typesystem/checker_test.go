package typesystem

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type countingObserver struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) CacheHit(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[op]++
}

func (o *countingObserver) CacheMiss(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[op]++
}

func TestCheckerMemoizes(t *testing.T) {
	obs := newCountingObserver()
	c := newTestChecker(t, Options{Observer: obs})

	a, b := NewArray(StringLit("a")), NewArray(String)
	assert.True(t, c.IsSubtype(a, b))
	assert.True(t, c.IsSubtype(a, b))
	assert.Equal(t, 1, obs.misses["subtype"])
	assert.Equal(t, 1, obs.hits["subtype"])

	wrap := cond(t, T, NewArray(Any), T, NewArray(T))
	for i := 0; i < 3; i++ {
		got, err := c.Evaluate(wrap, Subst{"T": String})
		require.NoError(t, err)
		assertType(t, NewArray(String), got)
	}
	assert.Equal(t, 1, obs.misses["evaluate"])
	assert.Equal(t, 2, obs.hits["evaluate"])

	// other bindings are a different entry
	got, err := c.Evaluate(wrap, Subst{"T": Number})
	require.NoError(t, err)
	assertType(t, NewArray(Number), got)
	assert.Equal(t, 2, obs.misses["evaluate"])
}

func TestCheckerCacheDisabled(t *testing.T) {
	obs := newCountingObserver()
	c := newTestChecker(t, Options{CacheSize: -1, Observer: obs})
	assert.True(t, c.IsSubtype(String, Unknown))
	assert.True(t, c.IsSubtype(String, Unknown))
	assert.Empty(t, obs.hits)
	assert.Empty(t, obs.misses)
}

func TestCheckerDefaults(t *testing.T) {
	c := newTestChecker(t, Options{})
	assert.Equal(t, 1000, c.MaxDepth())
	assert.Equal(t, 7, newTestChecker(t, Options{MaxDepth: 7}).MaxDepth())
	assert.NotNil(t, Default())
}

func TestDeclareInvalidatesCache(t *testing.T) {
	c := newTestChecker(t, Options{})
	ref := NewReference("Box", String)

	got, err := c.Evaluate(ref, nil)
	require.NoError(t, err)
	assertType(t, ref, got)

	declare(t, c, "Box", []ParamDecl{{Name: "T"}}, NewArray(T))
	got, err = c.Evaluate(ref, nil)
	require.NoError(t, err)
	assertType(t, NewArray(String), got)

	declare(t, c, "Box", []ParamDecl{{Name: "T"}}, NewTuple(T))
	got, err = c.Evaluate(ref, nil)
	require.NoError(t, err)
	assertType(t, NewTuple(String), got)
}

func TestCheckerConcurrent(t *testing.T) {
	c := newTestChecker(t, Options{CacheSize: 16})
	flatten := cond(t, T, NewArray(NewInfer("E")), NewReference("Flatten", NewParam("E")), T)
	declare(t, c, "Flatten", []ParamDecl{{Name: "T"}}, flatten)
	loop := cond(t, T, NewReference("Loop", T), NumberLit(1), NumberLit(0))
	declare(t, c, "Loop", []ParamDecl{{Name: "T"}}, loop)

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < 32; i++ {
		elem := Type(String)
		if i%2 == 1 {
			elem = NumberLit(float64(i))
		}
		nested := NewArray(NewArray(elem))
		g.Go(func() error {
			for j := 0; j < 20; j++ {
				got, err := c.Evaluate(NewReference("Flatten", nested), nil)
				if err != nil {
					return err
				}
				if !Identical(got, elem) {
					t.Errorf("Flatten<%s> = %s", nested, got)
				}
				if _, err := c.Evaluate(NewReference("Loop", elem), nil); !IsUnresolvable(err) {
					t.Errorf("Loop<%s> resolved: %v", elem, err)
				}
				if !c.IsSubtype(nested, NewArray(NewArray(Unknown))) {
					t.Errorf("%s is not a nested array", nested)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestDeclarationsHash(t *testing.T) {
	a := newTestChecker(t, Options{})
	b := newTestChecker(t, Options{})
	assert.Equal(t, a.DeclarationsHash(), b.DeclarationsHash())

	declare(t, a, "Box", []ParamDecl{{Name: "T"}}, NewArray(T))
	declare(t, a, "Name", nil, String)
	declare(t, b, "Name", nil, String)
	assert.NotEqual(t, a.DeclarationsHash(), b.DeclarationsHash())
	declare(t, b, "Box", []ParamDecl{{Name: "T"}}, NewArray(T))
	assert.Equal(t, a.DeclarationsHash(), b.DeclarationsHash(), "order of declaration does not matter")

	before := a.DeclarationsHash()
	declare(t, a, "Name", nil, Number)
	assert.NotEqual(t, before, a.DeclarationsHash())
	declare(t, a, "Name", nil, String)
	assert.Equal(t, before, a.DeclarationsHash())
}

