// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Authorization / compliance
	ErrUnauthorized = errors.New("caller is not authorized")
	ErrNonCompliant = errors.New("account identity is not approved")

	// Limit enforcement
	ErrSingleLimitExceeded = errors.New("amount exceeds single transaction limit")
	ErrDailyLimitExceeded  = errors.New("amount exceeds daily transaction limit")
	ErrUnknownTier         = errors.New("no policy entry for tier")

	// Currency ledger
	ErrUnsupportedCurrency = errors.New("currency is not registered")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")

	// Oracle
	ErrOracleUnavailable = errors.New("rate oracle unavailable")
	ErrOracleRate        = errors.New("rate oracle returned an invalid rate")

	// Records
	ErrIdentityNotFound = errors.New("identity record not found")
	ErrAccountNotFound  = errors.New("account not found")
)

// Source/target variants wrap ErrUnsupportedCurrency so callers can match the
// general kind with errors.Is while still seeing which side failed.
var (
	ErrUnsupportedSourceCurrency = fmt.Errorf("source %w", ErrUnsupportedCurrency)
	ErrUnsupportedTargetCurrency = fmt.Errorf("target %w", ErrUnsupportedCurrency)
)

// New returns an error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
