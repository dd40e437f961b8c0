/*
Package validation implements the inventory validation engine.

PURPOSE:
  This package turns parsed requests from external callers (the order
  scheduler, the monitoring dashboard) into ledger operations and assembles
  the structured responses the transport layer forwards. The four core
  operations are pre_check, update_inventory, ingredient_status and
  refill_ingredient; a handful of dashboard summary queries ride alongside.

KEY CONCEPTS IN THIS FILE (request.go):
  - Request: the parsed envelope (request_id, client_type, function, payload)
  - Payload variants: a request may carry drink items, explicit ingredient
    deltas, or both. The variants are resolved ONCE at this boundary into a
    single canonical UpdateBatch so the engine core never branches on
    payload shape.
  - DrinkItem: transient recipe, alive only for one call

SEE ALSO:
  - engine.go: Operation implementations
  - policy.go: Role-based sign convention
  - response.go: Response assembly
*/
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/brewbot/validation-engine/ledger"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// ClientType identifies the caller role. The role decides the sign
// convention for inventory deltas; see policy.go.
type ClientType string

const (
	ClientScheduler ClientType = "scheduler"
	ClientDashboard ClientType = "dashboard"
)

func (c ClientType) Valid() bool {
	return c == ClientScheduler || c == ClientDashboard
}

// Function names the requested operation.
type Function string

const (
	FuncPreCheck         Function = "pre_check"
	FuncUpdateInventory  Function = "update_inventory"
	FuncIngredientStatus Function = "ingredient_status"
	FuncRefillIngredient Function = "refill_ingredient"
	FuncStockLevel       Function = "stock_level"
	FuncCategorySummary  Function = "category_summary"
	FuncCategoryCount    Function = "category_count"
	FuncHealth           Function = "health"
)

// Mutating reports whether the operation writes to the ledger. Only
// mutating operations pass through the deduplicator.
func (f Function) Mutating() bool {
	return f == FuncUpdateInventory || f == FuncRefillIngredient
}

// Request is the parsed request object handed to the engine by the
// transport shells. The payload stays raw until the operation decodes its
// own shape.
type Request struct {
	RequestID  string          `json:"request_id"`
	ClientType ClientType      `json:"client_type"`
	Function   Function        `json:"function_name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Validate rejects envelopes that must never reach an operation.
func (r Request) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("%w: missing request_id", ledger.ErrMalformedRequest)
	}
	if !r.ClientType.Valid() {
		return fmt.Errorf("%w: unknown client_type %q", ledger.ErrMalformedRequest, r.ClientType)
	}
	return nil
}

// =============================================================================
// PAYLOAD SHAPES
// =============================================================================

// IngredientDetail is one recipe ingredient: the subtype dispensed and the
// amount in request units (shots for espresso, milliliters for milk).
type IngredientDetail struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

// DrinkItem is one drink recipe inside a request. Transient; exists only
// for the duration of one pre-check or update call.
type DrinkItem struct {
	DrinkName   string                      `json:"drink_name"`
	Size        string                      `json:"size"`
	CupID       string                      `json:"cup_id"`
	Temperature string                      `json:"temperature"`
	Ingredients map[string]IngredientDetail `json:"ingredients"`
}

// PreCheckPayload carries the recipes to check.
type PreCheckPayload struct {
	Items []DrinkItem `json:"items"`
}

// UpdatePayload carries drink items and/or explicit ingredient deltas.
// Explicit entries arrive as single-key objects, e.g.
// {"espresso": {"type": "regular", "amount": 2}}.
type UpdatePayload struct {
	Items       []DrinkItem                   `json:"items,omitempty"`
	Ingredients []map[string]IngredientDetail `json:"ingredients,omitempty"`
}

// Empty reports whether the payload carries nothing to apply.
func (p UpdatePayload) Empty() bool {
	return len(p.Items) == 0 && len(p.Ingredients) == 0
}

// StatusPayload optionally narrows the status query.
type StatusPayload struct {
	IngredientType string `json:"ingredient_type,omitempty"`
	Subtype        string `json:"subtype,omitempty"`
}

// RefillTarget names one refill destination. Subtype may be empty to mean
// every subtype of the category.
type RefillTarget struct {
	IngredientType string `json:"ingredient_type"`
	Subtype        string `json:"subtype,omitempty"`
}

// RefillPayload carries refill targets either inline or as a list. An
// entirely empty payload refills the whole catalog.
type RefillPayload struct {
	IngredientType string         `json:"ingredient_type,omitempty"`
	Subtype        string         `json:"subtype,omitempty"`
	Ingredients    []RefillTarget `json:"ingredients,omitempty"`
}

// Targets flattens the two accepted shapes into one list.
func (p RefillPayload) Targets() []RefillTarget {
	targets := make([]RefillTarget, 0, len(p.Ingredients)+1)
	if p.IngredientType != "" {
		targets = append(targets, RefillTarget{IngredientType: p.IngredientType, Subtype: p.Subtype})
	}
	targets = append(targets, p.Ingredients...)
	return targets
}

// decodePayload unmarshals a raw payload into the operation's shape.
// A missing payload decodes as the zero value; operations that require
// content check for emptiness themselves.
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrMalformedRequest, err)
	}
	return nil
}
