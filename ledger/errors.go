/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is and unwrap structured errors for per-key
  detail.

ERROR CATEGORIES:
  1. Content outcomes - insufficient stock, unknown ingredient. These are
     normal results of validation, reported per key, never panics.
  2. Configuration errors - catalog invariant violations. Fatal at startup;
     the service must not accept requests with a broken catalog.
  3. Request errors - malformed or duplicate requests, rejected before any
     ledger lock is taken.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when a consumption delta would drive
	// an amount negative at commit time. A normal outcome, not exceptional.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownIngredient is returned when a key is not in the catalog.
	ErrUnknownIngredient = errors.New("unknown ingredient")

	// ErrInvalidCatalog is returned when catalog thresholds violate their
	// invariants. Fatal at startup.
	ErrInvalidCatalog = errors.New("invalid catalog configuration")

	// ErrMalformedRequest is returned for requests rejected before the
	// engine touches the ledger.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrDuplicateRequest marks a request id that was already processed.
	// Callers short-circuit to the cached outcome; this is not a failure.
	ErrDuplicateRequest = errors.New("duplicate request")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports a commit-time shortage for one key.
type InsufficientStockError struct {
	Key       IngredientKey
	Available Amount
	Requested Amount
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: need %s, have %s",
		e.Key, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Shortfall is the amount missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() Amount {
	return e.Requested.Sub(e.Available)
}

// UnknownIngredientError reports a key missing from the catalog.
type UnknownIngredientError struct {
	Key IngredientKey
}

func (e *UnknownIngredientError) Error() string {
	return fmt.Sprintf("unknown ingredient %s", e.Key)
}

func (e *UnknownIngredientError) Unwrap() error {
	return ErrUnknownIngredient
}

// CatalogError reports an invariant violation in one catalog definition.
type CatalogError struct {
	Key    IngredientKey
	Reason string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog entry %s: %s", e.Key, e.Reason)
}

func (e *CatalogError) Unwrap() error {
	return ErrInvalidCatalog
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsContentOutcome reports whether the error is a normal validation result
// rather than a service fault.
func IsContentOutcome(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrUnknownIngredient)
}

// IsFatal reports whether the error must prevent the service from starting.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidCatalog)
}
