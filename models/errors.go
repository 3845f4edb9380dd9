package models

import "errors"

// Error kinds surfaced by the services. Callers wrap them with fmt.Errorf("%w: ...")
// and the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation         = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("not authorized, no valid token")
	ErrForbidden          = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrConflict           = errors.New("data conflicts with existing data")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPersistence        = errors.New("storage failure")
)

var (
	// ErrPaymentRejected is a validation error: the gateway receipt does not match the order.
	ErrPaymentRejected = &kindError{kind: ErrValidation, msg: "payment rejected"}
	// ErrInvalidCredentials is reported for an unknown email or a wrong password alike.
	ErrInvalidCredentials = &kindError{kind: ErrUnauthenticated, msg: "invalid email or password"}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
