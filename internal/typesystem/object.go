package typesystem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Property is a named member of an object shape.
type Property struct {
	Key      string
	Type     Type
	Optional bool
	Readonly bool
}

// IndexSignature describes `[key: string]: Value` or `[key: number]: Value`.
type IndexSignature struct {
	Key   PrimitiveKind
	Value Type
}

// Object represents an object shape (e.g. { x: number; readonly y?: string }).
// Props are kept sorted by key.
type Object struct {
	Props []Property
	Index *IndexSignature
	hash  uint64
}

// EmptyObject is `{}`, the top object type. It also stands for the
// non-primitive `object` keyword.
var EmptyObject = newObject(nil, nil)

// NewObject validates and builds an object shape: keys must be unique, an
// index signature key must be string or number, and every named entry must
// be compatible with the index signature.
func NewObject(props []Property, index *IndexSignature) (*Object, error) {
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		if p.Type == nil {
			return nil, malformed(nil, "property %q has no type", p.Key)
		}
		if seen[p.Key] {
			return nil, malformed(nil, "duplicate property %q", p.Key)
		}
		seen[p.Key] = true
	}
	if index != nil {
		if index.Key != PrimString && index.Key != PrimNumber {
			return nil, malformed(nil, "index signature key must be string or number, got %s", index.Key)
		}
		if index.Value == nil {
			return nil, malformed(nil, "index signature has no value type")
		}
	}
	o := newObject(props, index)
	if index != nil && isConcrete(index.Value) {
		for _, p := range o.Props {
			if !index.covers(p.Key) || !isConcrete(p.Type) {
				continue
			}
			if !newRelation(nil).isSubtype(p.Type, index.Value) {
				return nil, malformed(o, "property %q of type %s is not compatible with index signature %s", p.Key, p.Type, index.Value)
			}
		}
	}
	return o, nil
}

// newObject builds an object shape without validation. Later duplicates
// replace earlier ones.
func newObject(props []Property, index *IndexSignature) *Object {
	byKey := make(map[string]int, len(props))
	sorted := make([]Property, 0, len(props))
	for _, p := range props {
		if i, ok := byKey[p.Key]; ok {
			sorted[i] = p
			continue
		}
		byKey[p.Key] = len(sorted)
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	o := &Object{Props: sorted, Index: index}
	o.hash = o.computeHash()
	return o
}

func (o *Object) computeHash() uint64 {
	h := newHasher(KindObject).int(len(o.Props))
	for _, p := range o.Props {
		h.str(p.Key).typ(p.Type).bool(p.Optional).bool(p.Readonly)
	}
	if o.Index != nil {
		h.int(int(o.Index.Key)).typ(o.Index.Value)
	} else {
		h.int(-1)
	}
	return h.sum()
}

func (o *Object) String() string {
	if len(o.Props) == 0 && o.Index == nil {
		return "{}"
	}
	parts := make([]string, 0, len(o.Props)+1)
	for _, p := range o.Props {
		var sb strings.Builder
		if p.Readonly {
			sb.WriteString("readonly ")
		}
		sb.WriteString(formatKey(p.Key))
		if p.Optional {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		sb.WriteString(p.Type.String())
		parts = append(parts, sb.String())
	}
	if o.Index != nil {
		parts = append(parts, fmt.Sprintf("[key: %s]: %s", o.Index.Key, o.Index.Value))
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}
func (o *Object) Kind() Kind { return KindObject }
func (o *Object) Hash() uint64 {
	if o.hash != 0 {
		return o.hash
	}
	return o.computeHash()
}
func (o *Object) typeNode() {}

// Lookup finds a property by key.
func (o *Object) Lookup(key string) (Property, bool) {
	i := sort.Search(len(o.Props), func(i int) bool { return o.Props[i].Key >= key })
	if i < len(o.Props) && o.Props[i].Key == key {
		return o.Props[i], true
	}
	return Property{}, false
}

// covers reports whether a named key falls under the index signature.
func (s *IndexSignature) covers(key string) bool {
	if s.Key == PrimString {
		return true
	}
	return isNumericKey(key)
}

func isNumericKey(key string) bool {
	f, err := strconv.ParseFloat(key, 64)
	return err == nil && formatNumber(f) == key
}

func formatKey(key string) string {
	if key == "" {
		return `""`
	}
	for i, r := range key {
		ident := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ident {
			if isNumericKey(key) {
				return key
			}
			return strconv.Quote(key)
		}
	}
	return key
}

// mergeObjects combines two shapes the way an intersection of them behaves:
// shared keys intersect their types and stay optional/readonly only when both
// sides are.
func mergeObjects(a, b *Object) *Object {
	props := make([]Property, 0, len(a.Props)+len(b.Props))
	for _, p := range a.Props {
		if q, ok := b.Lookup(p.Key); ok {
			props = append(props, Property{
				Key:      p.Key,
				Type:     NewIntersection(p.Type, q.Type),
				Optional: p.Optional && q.Optional,
				Readonly: p.Readonly && q.Readonly,
			})
			continue
		}
		props = append(props, p)
	}
	for _, q := range b.Props {
		if _, ok := a.Lookup(q.Key); !ok {
			props = append(props, q)
		}
	}
	index := a.Index
	switch {
	case index == nil:
		index = b.Index
	case b.Index != nil && b.Index.Key == index.Key:
		index = &IndexSignature{Key: index.Key, Value: NewIntersection(index.Value, b.Index.Value)}
	}
	return newObject(props, index)
}
