package ecs

import "fmt"

// ErrorCode identifies one of the error kinds the core raises (spec §7).
// Grounded on the teacher's errors.go, which used untyped string constants
// for the same purpose; this spec names a distinct variant per spec §7
// rather than the teacher's broader, game-oriented error-code set.
type ErrorCode string

const (
	ErrUnknownComponent     ErrorCode = "UNKNOWN_COMPONENT"
	ErrUnknownSystem        ErrorCode = "UNKNOWN_SYSTEM"
	ErrUnknownMessage       ErrorCode = "UNKNOWN_MESSAGE"
	ErrComponentMissing     ErrorCode = "COMPONENT_MISSING"
	ErrFamilyEmpty          ErrorCode = "FAMILY_EMPTY"
	ErrFamilyAmbiguous      ErrorCode = "FAMILY_AMBIGUOUS"
	ErrNoRecipient          ErrorCode = "NO_RECIPIENT"
	ErrAmbiguousRecipient   ErrorCode = "AMBIGUOUS_RECIPIENT"
	ErrSchemaConflict       ErrorCode = "SCHEMA_CONFLICT"
	ErrDanglingFamilyRef    ErrorCode = "DANGLING_FAMILY_REF"
	ErrRefreshDuringIterate ErrorCode = "REFRESH_DURING_ITERATION"
	ErrInvalidEntity        ErrorCode = "INVALID_ENTITY"
)

// Error is the concrete error type the core raises. It carries enough
// context (entity/component/system) for a host to log or branch on,
// mirroring the teacher's *ECSError shape (Code/Message/Entity/Component/
// System + With* chaining helpers).
type Error struct {
	Code      ErrorCode
	Message   string
	Entity    EntityID
	Component ComponentIndex
	System    string
}

func (e *Error) Error() string {
	switch {
	case e.Entity != InvalidEntityID && e.Component != 0:
		return fmt.Sprintf("[%s] %s (entity=%d component=%d)", e.Code, e.Message, e.Entity, e.Component)
	case e.Entity != InvalidEntityID:
		return fmt.Sprintf("[%s] %s (entity=%d)", e.Code, e.Message, e.Entity)
	case e.System != "":
		return fmt.Sprintf("[%s] %s (system=%s)", e.Code, e.Message, e.System)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Entity: InvalidEntityID}
}

// WithEntity attaches entity context and returns the same error for chaining.
func (e *Error) WithEntity(id EntityID) *Error {
	e.Entity = id
	return e
}

// WithComponent attaches component context and returns the same error.
func (e *Error) WithComponent(idx ComponentIndex) *Error {
	e.Component = idx
	return e
}

// WithSystem attaches system context and returns the same error.
func (e *Error) WithSystem(name string) *Error {
	e.System = name
	return e
}

// Is allows errors.Is(err, ecs.ErrComponentMissing) style matching against
// an ErrorCode wrapped as a sentinel.
func (e *Error) Is(target error) bool {
	code, ok := target.(codeSentinel)
	return ok && e.Code == ErrorCode(code)
}

// codeSentinel lets callers write errors.Is(err, ecs.Code(ErrComponentMissing)).
type codeSentinel ErrorCode

// Code wraps an ErrorCode as an error so it can be used as an errors.Is
// target against values returned by this package.
func Code(c ErrorCode) error { return codeSentinel(c) }

func (c codeSentinel) Error() string { return string(c) }
