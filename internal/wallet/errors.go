package wallet

import (
	"errors"
	"fmt"
)

// Error is a domain error with a stable code that front ends can map to
// their own status values.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrInvalidAmount          = newError("INVALID_AMOUNT", "invalid amount")
	ErrInvalidName            = newError("INVALID_NAME", "display name is empty")
	ErrAccountNotFound        = newError("ACCOUNT_NOT_FOUND", "account not found")
	ErrSenderNotFound         = newError("SENDER_NOT_FOUND", "sender not found")
	ErrReceiverNotFound       = newError("RECEIVER_NOT_FOUND", "receiver not found")
	ErrSelfTransfer           = newError("SELF_TRANSFER", "cannot send money to self")
	ErrInsufficientFunds      = newError("INSUFFICIENT_FUNDS", "insufficient balance")
	ErrDuplicateTransactionID = newError("DUPLICATE_TRANSACTION_ID", "duplicate transaction id")
	ErrDuplicateHandle        = newError("DUPLICATE_HANDLE", "payment handle already taken")
	ErrDuplicateIdentity      = newError("DUPLICATE_IDENTITY", "account already exists for this owner")
	ErrTransactionNotFound    = newError("TRANSACTION_NOT_FOUND", "transaction not found")
	ErrSimulatedFailure       = newError("SIMULATED_FAILURE", "payment failed (simulated)")
	ErrEngineUnavailable      = newError("ENGINE_UNAVAILABLE", "wallet engine unavailable")
	ErrDuplicateRequest       = newError("DUPLICATE_REQUEST", "request already processed")
)

// SimulatedFailureError is returned when a transfer attempt was recorded as
// FAILED without moving money. It matches ErrSimulatedFailure.
type SimulatedFailureError struct {
	TransactionID string
}

func (e *SimulatedFailureError) Error() string {
	return fmt.Sprintf("%s: transaction %s", ErrSimulatedFailure.Message, e.TransactionID)
}

func (e *SimulatedFailureError) Unwrap() error {
	return ErrSimulatedFailure
}

// Recorded reports whether the attempt behind err left a ledger record.
func Recorded(err error) bool {
	var sf *SimulatedFailureError
	return errors.As(err, &sf)
}

// Code returns the domain code carried by err, or "INTERNAL" when err is not
// a domain error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}
