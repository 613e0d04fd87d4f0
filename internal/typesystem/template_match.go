package typesystem

import (
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

const (
	numberPattern   = `[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`
	bigintPattern   = `-?\d+`
	booleanPattern  = `(?:true|false)`
	wildcardPattern = `.*?`
)

type patternKey struct {
	expr    string
	timeout time.Duration
}

// patterns caches compiled template expressions. A *regexp2.Regexp is safe
// for concurrent matching.
var patterns sync.Map // patternKey -> *regexp2.Regexp

func compilePattern(expr string, timeout time.Duration) (*regexp2.Regexp, error) {
	key := patternKey{expr: expr, timeout: timeout}
	if re, ok := patterns.Load(key); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(expr, regexp2.Singleline)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	actual, _ := patterns.LoadOrStore(key, re)
	return actual.(*regexp2.Regexp), nil
}

// holePattern is the sub-expression a hole matches. Holes without a
// recognizable textual shape match lazily and are checked after the match.
func holePattern(h Type) string {
	switch v := h.(type) {
	case *Primitive:
		switch v.Name {
		case PrimNumber:
			return numberPattern
		case PrimBigInt:
			return bigintPattern
		case PrimBoolean:
			return booleanPattern
		case PrimNull, PrimUndefined:
			return v.Name.String()
		}
	case *Literal:
		return regexp2.Escape(v.Text)
	case *Union:
		alts := make([]string, len(v.Members))
		for i, m := range v.Members {
			alts[i] = holePattern(m)
		}
		return "(?:" + strings.Join(alts, "|") + ")"
	case *Infer:
		if v.Constraint != nil {
			return holePattern(v.Constraint)
		}
	}
	return wildcardPattern
}

func templateExpr(t *Template) (string, []Type) {
	var sb strings.Builder
	var holes []Type
	sb.WriteString(`\A`)
	for i, s := range t.Segments {
		if s.Hole == nil {
			sb.WriteString(regexp2.Escape(s.Text))
			continue
		}
		holes = append(holes, s.Hole)
		pattern := holePattern(s.Hole)
		// an unconstrained infer directly followed by another hole takes a
		// single character
		if inf, ok := s.Hole.(*Infer); ok && inf.Constraint == nil && i+1 < len(t.Segments) && t.Segments[i+1].Hole != nil {
			pattern = "."
		}
		sb.WriteString("(")
		sb.WriteString(pattern)
		sb.WriteString(")")
	}
	sb.WriteString(`\z`)
	return sb.String(), holes
}

// matchTemplate decides whether the string literal s inhabits the template
// pattern t, capturing infer holes along the way.
func (r *relation) matchTemplate(s string, t *Template) bool {
	expr, holes := templateExpr(t)
	re, err := compilePattern(expr, r.timeout)
	if err != nil {
		r.logger.Warn("invalid template pattern", zap.Stringer("template", t), zap.Error(err))
		return false
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		r.logger.Warn("template match failed", zap.Stringer("template", t), zap.String("input", s), zap.Error(err))
		return false
	}
	if m == nil {
		return false
	}
	for i, h := range holes {
		g := m.GroupByNumber(i + 1)
		if g == nil || !r.matchHole(g.String(), h) {
			return false
		}
	}
	return true
}

func (r *relation) matchHole(region string, h Type) bool {
	switch v := h.(type) {
	case *Infer:
		var captured Type = StringLit(region)
		if v.Constraint != nil {
			if lit := literalFor(region, v.Constraint); lit != nil {
				captured = lit
			}
			if !r.isSubtype(captured, v.Constraint) {
				return false
			}
		}
		r.capture(v.Name, captured)
		return true
	case *Template:
		return r.matchTemplate(region, v)
	case *Union:
		for _, m := range v.Members {
			snap := r.snapshot()
			if r.matchHole(region, m) {
				return true
			}
			r.restore(snap)
		}
		return false
	}
	lit := literalFor(region, h)
	if lit == nil {
		lit = StringLit(region)
	}
	return r.isSubtype(lit, h)
}

// literalFor reads region as a literal of the primitive the hole expects,
// or returns nil when the hole expects a string or the text does not parse.
func literalFor(region string, h Type) Type {
	switch v := h.(type) {
	case *Union:
		for _, m := range v.Members {
			if lit := literalFor(region, m); lit != nil {
				return lit
			}
		}
		return nil
	case *Primitive, *Literal:
		class, _ := primitiveClass(v)
		switch class {
		case PrimNumber:
			f, err := strconv.ParseFloat(region, 64)
			if err != nil || strings.TrimSpace(region) != region {
				return nil
			}
			return NumberLit(f)
		case PrimBigInt:
			n, ok := new(big.Int).SetString(region, 10)
			if !ok {
				return nil
			}
			return BigIntLit(n)
		case PrimBoolean:
			if b, err := strconv.ParseBool(region); err == nil && (region == "true" || region == "false") {
				return BoolLit(b)
			}
		case PrimNull:
			if region == "null" {
				return Null
			}
		case PrimUndefined:
			if region == "undefined" {
				return Undefined
			}
		}
	}
	return nil
}

// templateSubtype compares two patterns. Patterns with the same layout are
// compared hole by hole; otherwise a target of the form prefix${hole}suffix
// accepts any source that starts and ends with that text, with the rest of
// the source checked against the hole.
func (r *relation) templateSubtype(a, b *Template) bool {
	if len(a.Segments) == len(b.Segments) {
		snap := r.snapshot()
		if r.alignedSubtype(a, b) {
			return true
		}
		r.restore(snap)
	}

	prefix, hole, suffix, ok := b.singleHole()
	if !ok {
		return false
	}
	segs := make([]TemplateSegment, len(a.Segments))
	copy(segs, a.Segments)
	if prefix != "" {
		if segs[0].Hole != nil || !strings.HasPrefix(segs[0].Text, prefix) {
			return false
		}
		segs[0].Text = segs[0].Text[len(prefix):]
	}
	if suffix != "" {
		last := len(segs) - 1
		if segs[last].Hole != nil || !strings.HasSuffix(segs[last].Text, suffix) {
			return false
		}
		segs[last].Text = segs[last].Text[:len(segs[last].Text)-len(suffix)]
	}
	return r.isSubtype(normalizeTemplate(segs), hole)
}

func (r *relation) alignedSubtype(a, b *Template) bool {
	for i, sa := range a.Segments {
		sb := b.Segments[i]
		if (sa.Hole == nil) != (sb.Hole == nil) {
			return false
		}
		if sa.Hole == nil {
			if sa.Text != sb.Text {
				return false
			}
			continue
		}
		if !r.isSubtype(sa.Hole, sb.Hole) {
			return false
		}
	}
	return true
}
