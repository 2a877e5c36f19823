package service

import "errors"

// Kind is a stable, machine-readable error category exposed to clients
type Kind string

const (
	KindUnauthorized            Kind = "unauthorized"
	KindForbidden               Kind = "forbidden"
	KindInvalidInput            Kind = "invalid_input"
	KindInvalidAmount           Kind = "invalid_amount"
	KindUnsupportedCurrency     Kind = "unsupported_currency"
	KindInvalidOrExpired        Kind = "invalid_or_expired"
	KindGatewayUnavailable      Kind = "gateway_unavailable"
	KindNotificationUnavailable Kind = "notification_unavailable"
	KindNotFound                Kind = "not_found"
	KindConflict                Kind = "conflict"
	KindTooManyRequests         Kind = "too_many_requests"
	KindInternal                Kind = "internal"
)

// Error is a service sentinel carrying its Kind
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUnauthorized            = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden               = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidInput            = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInvalidAmount           = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrUnsupportedCurrency     = &Error{Kind: KindUnsupportedCurrency, Message: "unsupported currency"}
	ErrInvalidOrExpired        = &Error{Kind: KindInvalidOrExpired, Message: "code is invalid or expired"}
	ErrGatewayUnavailable      = &Error{Kind: KindGatewayUnavailable, Message: "payment gateway unavailable"}
	ErrNotificationUnavailable = &Error{Kind: KindNotificationUnavailable, Message: "notification could not be delivered"}
	ErrNotFound                = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict                = &Error{Kind: KindConflict, Message: "conflict"}
	ErrTooManyRequests         = &Error{Kind: KindTooManyRequests, Message: "too many requests"}
)

// KindOf returns the Kind of the first service sentinel in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
