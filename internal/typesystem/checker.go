package typesystem

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/funvibe/structype/internal/config"
	"github.com/hashicorp/golang-lru/arc/v2"
	"go.uber.org/zap"
)

// Observer is notified about memo cache lookups.
type Observer interface {
	CacheHit(op string)
	CacheMiss(op string)
}

// Options configure a Checker. Zero values select the defaults from
// internal/config; a negative CacheSize disables memoization.
type Options struct {
	MaxDepth        int
	CacheSize       int
	TemplateTimeout time.Duration
	Logger          *zap.Logger
	Observer        Observer
}

type cacheOp uint8

const (
	opSubtype cacheOp = iota
	opEvaluate
)

func (op cacheOp) String() string {
	if op == opSubtype {
		return "subtype"
	}
	return "evaluate"
}

type cacheKey struct {
	op   cacheOp
	a, b uint64
}

// cacheEntry keeps the operands so that a hash collision is never mistaken
// for a hit.
type cacheEntry struct {
	a, b   Type
	ok     bool
	result Type
}

// Checker decides subtyping and evaluates types against a set of
// declarations. It is safe for concurrent use: every call works on its own
// capture map and recursion guard, declarations are read-mostly and the memo
// cache is internally synchronized.
type Checker struct {
	maxDepth        int
	templateTimeout time.Duration
	logger          *zap.Logger
	observer        Observer
	cache           *arc.ARCCache[cacheKey, cacheEntry]

	mu    sync.RWMutex
	decls map[string]*Declaration
}

func NewChecker(opts Options) (*Checker, error) {
	c := &Checker{
		maxDepth:        opts.MaxDepth,
		templateTimeout: opts.TemplateTimeout,
		logger:          opts.Logger,
		observer:        opts.Observer,
		decls:           make(map[string]*Declaration),
	}
	if c.maxDepth <= 0 {
		c.maxDepth = config.DefaultMaxDepth
	}
	if c.templateTimeout <= 0 {
		c.templateTimeout = config.DefaultTemplateTimeout
	}
	if c.logger == nil {
		c.logger = nopLogger
	}
	size := opts.CacheSize
	if size == 0 {
		size = config.DefaultCacheSize
	}
	if size > 0 {
		cache, err := arc.NewARC[cacheKey, cacheEntry](size)
		if err != nil {
			return nil, fmt.Errorf("creating memo cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// MaxDepth reports the recursion limit in effect.
func (c *Checker) MaxDepth() int { return c.maxDepth }

func (c *Checker) lookup(key cacheKey, a, b Type) (cacheEntry, bool) {
	if c.cache == nil {
		return cacheEntry{}, false
	}
	e, ok := c.cache.Get(key)
	if ok && Identical(e.a, a) && Identical(e.b, b) {
		if c.observer != nil {
			c.observer.CacheHit(key.op.String())
		}
		return e, true
	}
	if c.observer != nil {
		c.observer.CacheMiss(key.op.String())
	}
	return cacheEntry{}, false
}

func (c *Checker) store(key cacheKey, e cacheEntry) {
	if c.cache != nil {
		c.cache.Add(key, e)
	}
}

// IsSubtype reports whether a is assignable to b. It never fails: malformed
// or overly deep comparisons answer false.
func (c *Checker) IsSubtype(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	key := cacheKey{op: opSubtype, a: a.Hash(), b: b.Hash()}
	if e, ok := c.lookup(key, a, b); ok {
		return e.ok
	}
	ok := newRelation(c).isSubtype(a, b)
	c.store(key, cacheEntry{a: a, b: b, ok: ok})
	return ok
}

// IsSubtypeCapturing is IsSubtype that also returns the bindings recorded
// for infer placeholders in b. Captures are only returned on success.
func (c *Checker) IsSubtypeCapturing(a, b Type) (bool, Subst) {
	if a == nil || b == nil {
		return false, nil
	}
	r := newRelation(c)
	if !r.isSubtype(a, b) {
		return false, nil
	}
	if r.captures == nil {
		return true, Subst{}
	}
	return true, r.captures
}

// Evaluate substitutes bindings into t and reduces it: conditionals are
// resolved, declared aliases expanded, and keyof, indexed access and
// string mappings computed wherever their operands are known. Bindings are
// reduced first, so a distributive conditional maps over the members of an
// alias that expands to a union.
func (c *Checker) Evaluate(t Type, bindings Subst) (Type, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	key := cacheKey{op: opEvaluate, a: t.Hash(), b: bindings.Hash()}
	bound := bindingsType(bindings)
	if e, ok := c.lookup(key, t, bound); ok {
		return e.result, nil
	}
	res := c.newResolution()
	closed, err := res.closeBindings(bindings)
	if err != nil {
		c.logger.Debug("binding evaluation failed", zap.Stringer("bindings", bindings), zap.Error(err))
		return nil, err
	}
	out, err := res.reduce(Substitute(t, closed))
	if err != nil {
		c.logger.Debug("evaluation failed", zap.Stringer("type", t), zap.Error(err))
		return nil, err
	}
	c.store(key, cacheEntry{a: t, b: bound, result: out})
	return out, nil
}

// ResolveConditional resolves a conditional type under the given bindings.
func (c *Checker) ResolveConditional(cond Type, bindings Subst) (Type, error) {
	if _, ok := cond.(*Conditional); !ok {
		return nil, malformed(cond, "not a conditional type")
	}
	return c.Evaluate(cond, bindings)
}

// bindingsType encodes a binding map as a tuple of name/type pairs so the
// cache can verify it structurally.
func bindingsType(s Subst) Type {
	if len(s) == 0 {
		return nil
	}
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	elems := make([]Type, 0, 2*len(names))
	for _, name := range names {
		elems = append(elems, StringLit(name), s[name])
	}
	return NewTuple(elems...)
}

var defaultChecker = mustChecker(Options{})

func mustChecker(opts Options) *Checker {
	c, err := NewChecker(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the package-level checker used by the functions below.
func Default() *Checker { return defaultChecker }

func IsSubtype(a, b Type) bool { return defaultChecker.IsSubtype(a, b) }

func IsSubtypeCapturing(a, b Type) (bool, Subst) { return defaultChecker.IsSubtypeCapturing(a, b) }

func Evaluate(t Type, bindings Subst) (Type, error) { return defaultChecker.Evaluate(t, bindings) }

func ResolveConditional(cond Type, bindings Subst) (Type, error) {
	return defaultChecker.ResolveConditional(cond, bindings)
}

func Instantiate(params []ParamDecl, args []Type, sites []InferenceSite) (Subst, error) {
	return defaultChecker.Instantiate(params, args, sites)
}
