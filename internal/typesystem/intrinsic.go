package typesystem

import (
	"unicode/utf8"

	"github.com/funvibe/structype/internal/config"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IntrinsicOp is a built-in string mapping type.
type IntrinsicOp int

const (
	OpUppercase IntrinsicOp = iota
	OpLowercase
	OpCapitalize
	OpUncapitalize
)

func (op IntrinsicOp) String() string {
	switch op {
	case OpUppercase:
		return config.UppercaseName
	case OpLowercase:
		return config.LowercaseName
	case OpCapitalize:
		return config.CapitalizeName
	case OpUncapitalize:
		return config.UncapitalizeName
	default:
		return "Intrinsic?"
	}
}

// ParseIntrinsicOp maps a mapping name such as "Capitalize" to its op.
func ParseIntrinsicOp(name string) (IntrinsicOp, bool) {
	for _, op := range []IntrinsicOp{OpUppercase, OpLowercase, OpCapitalize, OpUncapitalize} {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}

// Apply maps a string value. Casers are not safe for concurrent use, so
// each call builds its own.
func (op IntrinsicOp) Apply(s string) string {
	switch op {
	case OpUppercase:
		return cases.Upper(language.Und).String(s)
	case OpLowercase:
		return cases.Lower(language.Und).String(s)
	case OpCapitalize, OpUncapitalize:
		if s == "" {
			return s
		}
		_, size := utf8.DecodeRuneInString(s)
		head := s[:size]
		if op == OpCapitalize {
			head = cases.Upper(language.Und).String(head)
		} else {
			head = cases.Lower(language.Und).String(head)
		}
		return head + s[size:]
	}
	return s
}

// applyIntrinsic reduces a mapping over a concrete argument. Literals map
// their text, unions map member-wise, templates map their text segments and
// wrap their holes; other arguments stay deferred.
func applyIntrinsic(op IntrinsicOp, arg Type) Type {
	switch v := arg.(type) {
	case *Literal:
		if v.Base == PrimSymbol {
			return Never
		}
		return StringLit(op.Apply(v.Text))
	case *Union:
		out := make([]Type, len(v.Members))
		for i, m := range v.Members {
			out[i] = applyIntrinsic(op, m)
		}
		return NewUnion(out...)
	case *Sentinel:
		if v.Kind() == KindNever || v.Kind() == KindAny {
			return v
		}
	case *Template:
		return mapTemplate(op, v)
	case *Primitive:
		if v.Name == PrimString {
			return NewIntrinsic(op, v)
		}
		if v.Name == PrimNull || v.Name == PrimUndefined {
			return StringLit(op.Apply(v.Name.String()))
		}
	}
	return NewIntrinsic(op, arg)
}

// mapTemplate applies op to a template pattern. Uppercase and Lowercase
// reach every segment; the capitalize pair only touches the leading one.
func mapTemplate(op IntrinsicOp, t *Template) Type {
	segs := make([]TemplateSegment, len(t.Segments))
	copy(segs, t.Segments)
	for i, s := range segs {
		if (op == OpCapitalize || op == OpUncapitalize) && i > 0 {
			break
		}
		if s.Hole == nil {
			segs[i].Text = op.Apply(s.Text)
		} else {
			segs[i].Hole = applyIntrinsic(op, s.Hole)
		}
	}
	return normalizeTemplate(segs)
}
