// Package colonyerr defines the named failure conditions of the colony network.
//
// Every rejected operation returns an *Error whose Code identifies the condition
// and whose Class places it in one of four families. Callers match conditions with
// errors.Is against the exported sentinels; wrapping with additional detail keeps
// the match intact.
package colonyerr

import (
	"errors"
	"fmt"
	"strings"
)

// Class groups error codes by the kind of rule that was broken.
type Class string

const (
	// ClassValidation covers bad references and namespace violations.
	ClassValidation Class = "VALIDATION"
	// ClassAuthorization covers role and signature problems.
	ClassAuthorization Class = "AUTHORIZATION"
	// ClassInvariant covers operations that would break an accounting or membership invariant.
	ClassInvariant Class = "INVARIANT"
	// ClassState covers operations attempted in the wrong lifecycle phase.
	ClassState Class = "STATE"
)

// Error is a named failure condition.
type Error struct {
	Code   string `json:"code"`
	Class  Class  `json:"class"`
	Detail string `json:"detail,omitempty"`
	// Position is the 1-based signer position for signature failures, 0 otherwise.
	Position int   `json:"position,omitempty"`
	Cause    error `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Position > 0 {
		fmt.Fprintf(&b, " (signer %d)", e.Position)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func define(class Class, name string) *Error {
	return &Error{Code: "COLONY/" + string(class) + "/" + name, Class: class}
}

// Validation
var (
	ErrInvalidParent     = define(ClassValidation, "INVALID_PARENT")
	ErrNamespaceMismatch = define(ClassValidation, "NAMESPACE_MISMATCH")
	ErrNotRootParent     = define(ClassValidation, "NOT_ROOT_PARENT")
	ErrNotGlobalSkill    = define(ClassValidation, "NOT_GLOBAL_SKILL")
	ErrSkillNotFound     = define(ClassValidation, "SKILL_NOT_FOUND")
	ErrDomainNotFound    = define(ClassValidation, "DOMAIN_NOT_FOUND")
	ErrTaskNotFound      = define(ClassValidation, "TASK_NOT_FOUND")
	ErrPotNotFound       = define(ClassValidation, "POT_NOT_FOUND")
	ErrColonyNotFound    = define(ClassValidation, "COLONY_NOT_FOUND")
	ErrFeeCannotBeZero   = define(ClassValidation, "FEE_CANNOT_BE_ZERO")
	ErrInvalidAmount     = define(ClassValidation, "INVALID_AMOUNT")
	ErrInvalidArgument   = define(ClassValidation, "INVALID_ARGUMENT")
	ErrUnknownFunction   = define(ClassValidation, "UNKNOWN_FUNCTION")
)

// Authorization
var (
	ErrForbidden           = define(ClassAuthorization, "FORBIDDEN")
	ErrUnauthorized        = define(ClassAuthorization, "UNAUTHORIZED")
	ErrSignatureMismatch   = define(ClassAuthorization, "SIGNATURE_MISMATCH")
	ErrSignerCountMismatch = define(ClassAuthorization, "SIGNER_COUNT_MISMATCH")
	ErrInvalidSignature    = define(ClassAuthorization, "INVALID_SIGNATURE")
)

// Invariant
var (
	ErrInsufficientPool = define(ClassInvariant, "INSUFFICIENT_POOL")
	ErrNothingToSettle  = define(ClassInvariant, "NOTHING_TO_SETTLE")
	ErrLastAdmin        = define(ClassInvariant, "LAST_ADMIN")
	ErrAlreadyAdmin     = define(ClassInvariant, "ALREADY_ADMIN")
	ErrNotAdmin         = define(ClassInvariant, "NOT_ADMIN")
	ErrBalanceOverflow  = define(ClassInvariant, "BALANCE_OVERFLOW")
)

// State
var (
	ErrTaskNotActive               = define(ClassState, "TASK_NOT_ACTIVE")
	ErrTaskLocked                  = define(ClassState, "TASK_LOCKED")
	ErrDeliverableAlreadySubmitted = define(ClassState, "DELIVERABLE_ALREADY_SUBMITTED")
	ErrWorkerNotAssigned           = define(ClassState, "WORKER_NOT_ASSIGNED")
	ErrMetaColonyExists            = define(ClassState, "META_COLONY_EXISTS")
	ErrMiningAlreadyInitialised    = define(ClassState, "MINING_ALREADY_INITIALISED")
	ErrMiningNotInitialised        = define(ClassState, "MINING_NOT_INITIALISED")
)

// New returns a copy of base carrying a formatted detail message.
func New(base *Error, format string, args ...any) *Error {
	e := *base
	e.Detail = fmt.Sprintf(format, args...)
	return &e
}

// Wrap returns a copy of base with cause attached.
func Wrap(base *Error, cause error, format string, args ...any) *Error {
	e := New(base, format, args...)
	e.Cause = cause
	return e
}

// AtPosition returns a copy of base naming the 1-based signer position that failed.
func AtPosition(base *Error, position int, format string, args ...any) *Error {
	e := New(base, format, args...)
	e.Position = position
	return e
}

// ClassOf returns the class of the first *Error in err's chain, or "" if none.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// PositionOf returns the failing signer position carried by err, or 0.
func PositionOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Position
	}
	return 0
}
