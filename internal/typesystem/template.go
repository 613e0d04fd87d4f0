package typesystem

import "strings"

// TemplateSegment is either literal text (Hole == nil) or a type hole.
type TemplateSegment struct {
	Text string
	Hole Type
}

func TextSegment(s string) TemplateSegment { return TemplateSegment{Text: s} }

func HoleSegment(t Type) TemplateSegment { return TemplateSegment{Hole: t} }

// Template is a template literal pattern such as `get${string}`. Normalized
// templates never hold literal or union holes and never have two adjacent
// text segments.
type Template struct {
	Segments []TemplateSegment
	hash     uint64
}

func (t *Template) String() string {
	var sb strings.Builder
	sb.WriteByte('`')
	for _, s := range t.Segments {
		if s.Hole == nil {
			sb.WriteString(escapeTemplateText(s.Text))
			continue
		}
		sb.WriteString("${")
		sb.WriteString(s.Hole.String())
		sb.WriteString("}")
	}
	sb.WriteByte('`')
	return sb.String()
}
func (t *Template) Kind() Kind { return KindTemplate }
func (t *Template) Hash() uint64 {
	if t.hash != 0 {
		return t.hash
	}
	return hashTemplate(t.Segments)
}
func (t *Template) typeNode() {}

func hashTemplate(segs []TemplateSegment) uint64 {
	h := newHasher(KindTemplate).int(len(segs))
	for _, s := range segs {
		h.str(s.Text).typ(s.Hole)
	}
	return h.sum()
}

var templateEscaper = strings.NewReplacer("\\", "\\\\", "`", "\\`", "${", "\\${")

func escapeTemplateText(s string) string { return templateEscaper.Replace(s) }

// NewTemplate validates the holes and normalizes the pattern. The result is
// a string literal when no holes remain, a union when a hole is a union
// (one template per member), never when a hole is never, and string for a
// lone `${string}`.
func NewTemplate(segs ...TemplateSegment) (Type, error) {
	for _, s := range segs {
		if s.Hole == nil {
			continue
		}
		if !stringLike(s.Hole) {
			return nil, malformed(s.Hole, "type cannot be embedded in a template literal")
		}
	}
	return normalizeTemplate(segs), nil
}

// stringLike reports whether a type may appear as a template hole.
func stringLike(t Type) bool {
	switch v := t.(type) {
	case *Primitive:
		return v.Name != PrimSymbol
	case *Literal:
		return v.Base != PrimSymbol
	case *Sentinel:
		return v.kind == KindAny || v.kind == KindNever
	case *Union:
		for _, m := range v.Members {
			if !stringLike(m) {
				return false
			}
		}
		return true
	case *Intersection:
		for _, m := range v.Members {
			if stringLike(m) {
				return true
			}
		}
		return false
	case *Template, *Param, *Infer, *Intrinsic, *KeyOf, *IndexedAccess, *Conditional, *Reference:
		return true
	}
	return false
}

func normalizeTemplate(segs []TemplateSegment) Type {
	out := make([]TemplateSegment, 0, len(segs))
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Hole == nil {
			out[n-1].Text += s
			return
		}
		out = append(out, TextSegment(s))
	}

	for i, s := range segs {
		if s.Hole == nil {
			appendText(s.Text)
			continue
		}
		switch h := s.Hole.(type) {
		case *Literal:
			if h.Base == PrimSymbol {
				return Never
			}
			appendText(h.Text)
			continue
		case *Primitive:
			switch h.Name {
			case PrimNull, PrimUndefined:
				appendText(h.Name.String())
				continue
			case PrimBoolean:
				return expandTemplate(segs, i, []Type{False, True})
			case PrimSymbol:
				return Never
			}
		case *Template:
			for _, inner := range h.Segments {
				if inner.Hole == nil {
					appendText(inner.Text)
				} else {
					out = append(out, inner)
				}
			}
			continue
		case *Union:
			return expandTemplate(segs, i, h.Members)
		default:
			if !stringLike(h) {
				return Never
			}
			if h.Kind() == KindNever {
				return Never
			}
		}
		out = append(out, s)
	}

	switch {
	case len(out) == 0:
		return StringLit("")
	case len(out) == 1 && out[0].Hole == nil:
		return StringLit(out[0].Text)
	case len(out) == 1 && Identical(out[0].Hole, String):
		return String
	}
	return &Template{Segments: out, hash: hashTemplate(out)}
}

// expandTemplate replaces hole i by each of the given members in turn. The
// leftmost union hole is expanded first, so earlier hole positions vary
// slowest in the cross product.
func expandTemplate(segs []TemplateSegment, i int, alternatives []Type) Type {
	out := make([]Type, 0, len(alternatives))
	for _, m := range alternatives {
		next := make([]TemplateSegment, len(segs))
		copy(next, segs)
		next[i] = HoleSegment(m)
		out = append(out, normalizeTemplate(next))
	}
	return NewUnion(out...)
}

// singleHole splits a template of the shape prefix${hole}suffix.
func (t *Template) singleHole() (prefix string, hole Type, suffix string, ok bool) {
	holes := 0
	for _, s := range t.Segments {
		if s.Hole != nil {
			holes++
			hole = s.Hole
			continue
		}
		if holes == 0 {
			prefix = s.Text
		} else {
			suffix = s.Text
		}
	}
	return prefix, hole, suffix, holes == 1
}
