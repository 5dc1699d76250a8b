// Package evalerr defines the error taxonomy shared by every layer of the
// evaluation core.
//
// All kinds are contract violations: a correctly planned query never produces
// one. They are not retried or masked; the enclosing query fails with the
// first error raised and returns no partial results.
//
// Matching:
//
//	if errors.Is(err, evalerr.ErrPropertyNotFound) { ... }
//
//	var ee *evalerr.Error
//	if errors.As(err, &ee) {
//		log.Printf("%s failed in %s", ee.Kind, ee.Expr)
//	}
package evalerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes evaluation errors.
type Kind string

const (
	// KindUnresolvedVariable: a name is not bound in the context or params.
	KindUnresolvedVariable Kind = "UNRESOLVED_VARIABLE"

	// KindPropertyNotFound: the element's schema lacks the referenced property.
	KindPropertyNotFound Kind = "PROPERTY_NOT_FOUND"

	// KindTypeMismatch: an operator or predicate received incompatible types.
	KindTypeMismatch Kind = "TYPE_MISMATCH"

	// KindInvalidCast: a cast between incompatible types or out of range.
	KindInvalidCast Kind = "INVALID_CAST"

	// KindArityOrContextMismatch: an entry point inconsistent with the
	// expression's VarType, a wrong argument count, or a row out of range.
	KindArityOrContextMismatch Kind = "ARITY_OR_CONTEXT_MISMATCH"

	// KindAllocationExhausted: the arena cannot grow. Fatal for the query.
	KindAllocationExhausted Kind = "ALLOCATION_EXHAUSTED"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrUnresolvedVariable     = errors.New("evalerr: unresolved variable")
	ErrPropertyNotFound       = errors.New("evalerr: property not found")
	ErrTypeMismatch           = errors.New("evalerr: type mismatch")
	ErrInvalidCast            = errors.New("evalerr: invalid cast")
	ErrArityOrContextMismatch = errors.New("evalerr: arity or context mismatch")
	ErrAllocationExhausted    = errors.New("evalerr: allocation exhausted")
)

var sentinels = map[Kind]error{
	KindUnresolvedVariable:     ErrUnresolvedVariable,
	KindPropertyNotFound:       ErrPropertyNotFound,
	KindTypeMismatch:           ErrTypeMismatch,
	KindInvalidCast:            ErrInvalidCast,
	KindArityOrContextMismatch: ErrArityOrContextMismatch,
	KindAllocationExhausted:    ErrAllocationExhausted,
}

// Error is a structured evaluation failure.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Msg is a human-readable description.
	Msg string

	// Expr is the textual form of the failing expression node, when known.
	Expr string

	// Property names the property involved, for PropertyNotFound.
	Property string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Property != "" {
		fmt.Fprintf(&b, " (property=%s)", e.Property)
	}
	if e.Expr != "" {
		fmt.Fprintf(&b, " in %s", e.Expr)
	}
	return b.String()
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Unresolved creates an UnresolvedVariable error for name.
func Unresolved(name string) *Error {
	return &Error{Kind: KindUnresolvedVariable, Msg: fmt.Sprintf("variable %q is not bound", name)}
}

// PropertyNotFound creates a PropertyNotFound error for an element.
func PropertyNotFound(element, property string) *Error {
	return &Error{
		Kind:     KindPropertyNotFound,
		Msg:      fmt.Sprintf("%s has no property %q", element, property),
		Property: property,
	}
}

// TypeMismatch creates a TypeMismatch error.
func TypeMismatch(format string, args ...any) *Error {
	return New(KindTypeMismatch, format, args...)
}

// InvalidCast creates an InvalidCast error.
func InvalidCast(format string, args ...any) *Error {
	return New(KindInvalidCast, format, args...)
}

// ContextMismatch creates an ArityOrContextMismatch error.
func ContextMismatch(format string, args ...any) *Error {
	return New(KindArityOrContextMismatch, format, args...)
}

// WithExpr annotates err with the failing expression if it is an *Error
// that has none yet. Other errors are returned unchanged.
func WithExpr(err error, expr string) error {
	var ee *Error
	if errors.As(err, &ee) && ee.Expr == "" {
		annotated := *ee
		annotated.Expr = expr
		return &annotated
	}
	return err
}

// KindOf returns the Kind of err, or "" when err is not an evaluation error.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsKind reports whether err is an evaluation error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
