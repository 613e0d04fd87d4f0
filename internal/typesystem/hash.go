package typesystem

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// hasher accumulates a structural hash. Composite types compute their hash
// once at construction, so Hash() on a tree is O(1) after building it.
type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher(k Kind) *hasher {
	h := &hasher{d: xxhash.New()}
	return h.int(int(k))
}

func (h *hasher) u64(v uint64) *hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
	return h
}

func (h *hasher) int(v int) *hasher { return h.u64(uint64(v)) }

func (h *hasher) bool(v bool) *hasher {
	if v {
		return h.u64(1)
	}
	return h.u64(0)
}

func (h *hasher) str(s string) *hasher {
	h.int(len(s))
	_, _ = h.d.WriteString(s)
	return h
}

func (h *hasher) typ(t Type) *hasher {
	if t == nil {
		return h.u64(0)
	}
	return h.u64(t.Hash())
}

func (h *hasher) types(ts []Type) *hasher {
	h.int(len(ts))
	for _, t := range ts {
		h.typ(t)
	}
	return h
}

func (h *hasher) sum() uint64 { return h.d.Sum64() }

// Hash returns a structural hash of the binding map, independent of
// iteration order.
func (s Subst) Hash() uint64 {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	h := &hasher{d: xxhash.New()}
	h.int(len(names))
	for _, name := range names {
		h.str(name).typ(s[name])
	}
	return h.sum()
}

// Hash fingerprints a declaration: its name, parameters and body.
func (d Declaration) Hash() uint64 {
	h := &hasher{d: xxhash.New()}
	h.str(d.Name).int(len(d.Params))
	for _, p := range d.Params {
		h.str(p.Name).typ(p.Constraint).typ(p.Default)
	}
	return h.typ(d.Body).sum()
}

// DeclarationsHash fingerprints every registered declaration. It changes
// whenever a declaration is added or replaced.
func (c *Checker) DeclarationsHash() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.decls))
	for name := range c.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	h := &hasher{d: xxhash.New()}
	h.int(len(names))
	for _, name := range names {
		h.u64(c.decls[name].Hash())
	}
	return h.sum()
}
