package core

import "fmt"

// Kind classifies why a package operation failed.
type Kind string

const (
	// KindNotMsi means the file isn't a CFB container or lacks the
	// required metadata streams.
	KindNotMsi Kind = "not_msi"
	// KindMalformed means a structural invariant was violated: wrong
	// row-stream length, unknown column type bits, a dangling
	// StringRef, a duplicate primary key found on open.
	KindMalformed Kind = "malformed_package"
	// KindSchema means an illegal DDL operation was requested: duplicate
	// column, missing primary key, bad identifier syntax.
	KindSchema Kind = "schema"
	// KindQuery means a query failed to parse or resolve: parse error,
	// unresolved name, type mismatch, non-associative comparison.
	KindQuery Kind = "query"
	// KindConstraint means a row mutation violated a PK, FK, nullability,
	// value-set, or length constraint.
	KindConstraint Kind = "constraint"
	// KindIO is a passthrough from the underlying CfbStore.
	KindIO Kind = "io"
	// KindUnsupported marks a feature this library does not implement
	// (transforms, patches).
	KindUnsupported Kind = "unsupported"
)

// Error is the error type every package-level operation returns on
// failure. Entity/Name/Field identify what was being validated or
// operated on; Message is the human-readable detail.
type Error struct {
	Kind    Kind
	Entity  string
	Name    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s %q field %q: %s", e.Kind, e.Entity, e.Name, e.Field, e.Message)
	case e.Name != "":
		return fmt.Sprintf("%s: %s %q: %s", e.Kind, e.Entity, e.Name, e.Message)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, core.ErrKind(core.KindConstraint)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Entity == ""
}

// ErrKind builds a sentinel *Error usable with errors.Is to test only the
// Kind of a returned error.
func ErrKind(k Kind) *Error { return &Error{Kind: k} }

// NewError constructs an *Error of the given kind.
func NewError(kind Kind, entity, name, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Name: name, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping err.
func Wrap(kind Kind, entity, name string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Name: name, Message: err.Error(), Err: err}
}
