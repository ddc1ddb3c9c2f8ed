package raise

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound           = errors.New("raise: not found")
	ErrNotInitialized     = errors.New("raise: campaign not initialized")
	ErrAlreadyInitialized = errors.New("raise: campaign already initialized")
	ErrUnauthorized       = errors.New("raise: unauthorized")
	ErrReentrantCall      = errors.New("raise: reentrant call rejected")

	// Configuration errors
	ErrZeroGoal        = errors.New("raise: zero funding goal")
	ErrZeroRate        = errors.New("raise: zero exchange rate")
	ErrZeroScale       = errors.New("raise: zero rate scale")
	ErrInvalidWindow   = errors.New("raise: invalid time window")
	ErrInvalidSchedule = errors.New("raise: invalid vesting schedule")
	ErrInvalidAmount   = errors.New("raise: invalid amount")
	ErrUnknownChannel  = errors.New("raise: unknown channel")
	ErrUnknownToken    = errors.New("raise: unknown token")
	ErrChannelKind     = errors.New("raise: wrong channel kind")

	// Admission errors
	ErrSaleClosed      = errors.New("raise: outside sale window")
	ErrChannelPaused   = errors.New("raise: channel is paused")
	ErrNotWhitelisted  = errors.New("raise: not whitelisted")
	ErrBelowMinimum    = errors.New("raise: paid amount below channel minimum")
	ErrAboveMaximum    = errors.New("raise: paid amount above channel maximum")
	ErrGoalReached     = errors.New("raise: funding goal already reached")
	ErrGoalExceeded    = errors.New("raise: grant would exceed funding goal")
	ErrUserCapExceeded = errors.New("raise: per-user entitlement cap exceeded")

	// Transfer errors
	ErrTransferFailed = errors.New("raise: value transfer failed")

	// Vesting errors
	ErrNoAccount       = errors.New("raise: no vesting account")
	ErrNothingToClaim  = errors.New("raise: nothing claimable yet")
	ErrEmptyClaimBatch = errors.New("raise: empty claim batch")

	// Custody errors
	ErrInsufficientReserve = errors.New("raise: insufficient uncommitted reserve")
	ErrExtractLimit        = errors.New("raise: extraction would dip into owed reserve")

	// Store errors
	ErrPersistFailed = errors.New("raise: persist failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("raise: validation failed for %s: %s", e.Field, e.Message)
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool {
	var verr ValidationError
	return errors.Is(err, ErrZeroGoal) ||
		errors.Is(err, ErrZeroRate) ||
		errors.Is(err, ErrZeroScale) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrUnknownToken) ||
		errors.Is(err, ErrChannelKind) ||
		errors.As(err, &verr)
}

// IsAdmissionError returns true if the operation was rejected before any
// state change.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrSaleClosed) ||
		errors.Is(err, ErrChannelPaused) ||
		errors.Is(err, ErrNotWhitelisted) ||
		errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrAboveMaximum) ||
		errors.Is(err, ErrGoalReached) ||
		errors.Is(err, ErrGoalExceeded) ||
		errors.Is(err, ErrUserCapExceeded) ||
		errors.Is(err, ErrUnauthorized)
}

// IsTransferError returns true if a value transfer failed and the
// operation was rolled back.
func IsTransferError(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}

// IsVestingError returns true if the error relates to vesting state.
func IsVestingError(err error) bool {
	return errors.Is(err, ErrNoAccount) ||
		errors.Is(err, ErrNothingToClaim) ||
		errors.Is(err, ErrEmptyClaimBatch)
}

// IsCustodyError returns true if the error relates to reserve custody.
func IsCustodyError(err error) bool {
	return errors.Is(err, ErrInsufficientReserve) ||
		errors.Is(err, ErrExtractLimit)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoAccount) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrUnknownToken)
}
