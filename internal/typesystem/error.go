package typesystem

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedType          = errors.New("malformed type")
	ErrConstraintViolation    = errors.New("constraint violation")
	ErrUnresolvableRecursion  = errors.New("unresolvable recursion")
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
)

// MalformedTypeError indicates a type tree that violates a structural invariant.
type MalformedTypeError struct {
	Reason string
	Type   Type
}

func (e *MalformedTypeError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("malformed type %s: %s", e.Type, e.Reason)
	}
	return "malformed type: " + e.Reason
}

func (e *MalformedTypeError) Unwrap() error { return ErrMalformedType }

func malformed(t Type, format string, args ...any) *MalformedTypeError {
	return &MalformedTypeError{Reason: fmt.Sprintf(format, args...), Type: t}
}

// ConstraintViolationError indicates a type argument that is not assignable
// to its parameter's constraint.
type ConstraintViolationError struct {
	Param      string
	Arg        Type
	Constraint Type
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("type argument %s for %s does not satisfy constraint %s", e.Arg, e.Param, e.Constraint)
}

func (e *ConstraintViolationError) Unwrap() error { return ErrConstraintViolation }

// UnresolvableRecursionError reports a conditional whose resolution re-entered
// the same (check, extends) pair.
type UnresolvableRecursionError struct {
	Check   Type
	Extends Type
}

func (e *UnresolvableRecursionError) Error() string {
	return fmt.Sprintf("unresolvable recursion: %s extends %s is already being resolved", e.Check, e.Extends)
}

func (e *UnresolvableRecursionError) Unwrap() error { return ErrUnresolvableRecursion }

// RecursionLimitExceededError reports that evaluation nested deeper than the
// configured limit.
type RecursionLimitExceededError struct {
	Limit int
	Type  Type
}

func (e *RecursionLimitExceededError) Error() string {
	return fmt.Sprintf("recursion limit %d exceeded while evaluating %s", e.Limit, e.Type)
}

func (e *RecursionLimitExceededError) Unwrap() error { return ErrRecursionLimitExceeded }

// IsUnresolvable reports whether err means "this type cannot be resolved in
// bounded steps", whichever guard tripped.
func IsUnresolvable(err error) bool {
	return errors.Is(err, ErrUnresolvableRecursion) || errors.Is(err, ErrRecursionLimitExceeded)
}
