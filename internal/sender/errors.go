// Package sender delivers messages through WhatsApp Web and defines the
// structured error taxonomy for delivery outcomes.
package sender

import (
	"errors"
	"strings"
)

// Kind classifies a failed delivery.
type Kind string

const (
	KindNotOnNetwork  Kind = "not_on_network"
	KindInvalidNumber Kind = "invalid_number"
	KindGeneric       Kind = "generic"
)

// SendError is the error returned by senders for a failed delivery.
type SendError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *SendError) Error() string {
	var msg string
	switch e.Kind {
	case KindNotOnNetwork:
		msg = "phone number is not on WhatsApp"
	case KindInvalidNumber:
		msg = "invalid phone number"
	default:
		msg = "send failed"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SendError) Unwrap() error { return e.Err }

// NotOnNetwork reports a number that has no WhatsApp account.
func NotOnNetwork(detail string) *SendError {
	return &SendError{Kind: KindNotOnNetwork, Detail: detail}
}

// InvalidNumber reports a number the service rejected as malformed.
func InvalidNumber(detail string) *SendError {
	return &SendError{Kind: KindInvalidNumber, Detail: detail}
}

// Generic wraps any other delivery failure.
func Generic(err error) *SendError {
	return &SendError{Kind: KindGeneric, Err: err}
}

// Classify returns the Kind of err. Errors that are not a *SendError are
// classified by their message text, which is how older senders report
// outcomes.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not on whatsapp"):
		return KindNotOnNetwork
	case strings.Contains(msg, "invalid phone"):
		return KindInvalidNumber
	default:
		return KindGeneric
	}
}
