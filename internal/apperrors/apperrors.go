// Package apperrors defines the domain error taxonomy of the cash module.
// Every precondition failure carries a Kind that callers match with errors.Is
// against the exported sentinels, plus structured Details (counts, thresholds,
// current state) that the HTTP layer forwards to the client.
package apperrors

import "errors"

type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindValidation             Kind = "validation"
	KindRegisterAlreadyOpen    Kind = "register_already_open"
	KindPendingSalesExist      Kind = "pending_sales_exist"
	KindSessionNotWritable     Kind = "session_not_writable"
	KindSessionNotOpen         Kind = "session_not_open"
	KindSessionNotInCounting   Kind = "session_not_in_counting"
	KindMissingJustification   Kind = "missing_justification"
	KindVarianceUnauthorized   Kind = "variance_unauthorized"
	KindAuthServiceUnavailable Kind = "auth_service_unavailable"
	KindInvalidAmount          Kind = "invalid_amount"
	KindUnknownPaymentMethod   Kind = "unknown_payment_method"
	KindInvalidMovementType    Kind = "invalid_movement_type"
)

var (
	ErrNotFound               = New(KindNotFound, "resource not found")
	ErrValidation             = New(KindValidation, "invalid input")
	ErrRegisterAlreadyOpen    = New(KindRegisterAlreadyOpen, "register already has an active session")
	ErrPendingSalesExist      = New(KindPendingSalesExist, "session has unresolved pending sales")
	ErrSessionNotWritable     = New(KindSessionNotWritable, "session does not accept movements")
	ErrSessionNotOpen         = New(KindSessionNotOpen, "session is not open")
	ErrSessionNotInCounting   = New(KindSessionNotInCounting, "session is not in counting")
	ErrMissingJustification   = New(KindMissingJustification, "variance requires a justification")
	ErrVarianceUnauthorized   = New(KindVarianceUnauthorized, "variance requires supervisor authorization")
	ErrAuthServiceUnavailable = New(KindAuthServiceUnavailable, "supervisor validation unavailable")
	ErrInvalidAmount          = New(KindInvalidAmount, "invalid amount")
	ErrUnknownPaymentMethod   = New(KindUnknownPaymentMethod, "unknown payment method")
	ErrInvalidMovementType    = New(KindInvalidMovementType, "invalid movement type")
)

// Error is a domain error. Two errors are equal under errors.Is when their
// kinds match, so sentinels can be enriched with details without losing identity.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// With returns a copy of e carrying an extra detail entry. The receiver is
// never mutated, so it is safe to call on the package sentinels.
func (e *Error) With(key string, value any) *Error {
	out := e.clone()
	out.Details[key] = value
	return out
}

// Msg returns a copy of e with a more specific message.
func (e *Error) Msg(msg string) *Error {
	out := e.clone()
	out.Message = msg
	return out
}

// Wrap returns a copy of e with err as its cause.
func (e *Error) Wrap(err error) *Error {
	out := e.clone()
	out.Err = err
	return out
}

func (e *Error) clone() *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, Err: e.Err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
