package pivot

import (
	"fmt"
)

// Kind classifies engine problems. None of them are fatal unless the
// engine runs in strict mode.
type Kind string

const (
	KindInvalidFilterRule  Kind = "InvalidFilterRule"
	KindCoercionFallback   Kind = "CoercionFallback"
	KindUnknownDimension   Kind = "UnknownDimension"
	KindUnknownAggregation Kind = "UnknownAggregation"
	KindDuplicate          Kind = "Duplicate"
	KindNodeLimit          Kind = "NodeLimit"
)

// Error is the single error type returned by the engine.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

var (
	ErrInvalidFilterRule  = &Error{Kind: KindInvalidFilterRule}
	ErrCoercionFallback   = &Error{Kind: KindCoercionFallback}
	ErrUnknownDimension   = &Error{Kind: KindUnknownDimension}
	ErrUnknownAggregation = &Error{Kind: KindUnknownAggregation}
	ErrDuplicate          = &Error{Kind: KindDuplicate}
	ErrNodeLimit          = &Error{Kind: KindNodeLimit}
)

func newError(kind Kind, field, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Field: field, Msg: fmt.Sprintf(format, args...)}
}
