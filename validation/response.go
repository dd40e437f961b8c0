/*
response.go - Response assembly

PURPOSE:
  Builds the structured result object consumed by the transport layer.
  Every response echoes request_id and client_type, carries the constant
  server_type, and is stamped at the point of construction. Mutating
  operations carry a top-level "passed" boolean; pure status queries omit
  it.

The assembler is the single place responses are shaped, so a deduplicated
replay can return the original object verbatim, timestamp included.

SEE ALSO:
  - engine.go: Produces the per-operation detail structures below
  - dedup.go: Caches assembled responses for retried request ids
*/
package validation

import "time"

// ServerType identifies this service in every response.
const ServerType = "validation"

// Response is the structured result handed back to the dispatcher for
// serialization and publication.
type Response struct {
	RequestID  string     `json:"request_id"`
	ClientType ClientType `json:"client_type,omitempty"`
	ServerType string     `json:"server_type"`
	Timestamp  string     `json:"timestamp"`
	Passed     *bool      `json:"passed,omitempty"`
	Error      string     `json:"error,omitempty"`
	Details    any        `json:"details,omitempty"`
}

// Assembler stamps and shapes responses.
type Assembler struct {
	now func() time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// NewAssemblerWithClock overrides the time source (tests).
func NewAssemblerWithClock(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

func (a *Assembler) stamp() string {
	return a.now().UTC().Format(time.RFC3339)
}

// Result assembles a response for an operation with a pass/fail outcome.
func (a *Assembler) Result(req Request, passed bool, details any) Response {
	return Response{
		RequestID:  req.RequestID,
		ClientType: req.ClientType,
		ServerType: ServerType,
		Timestamp:  a.stamp(),
		Passed:     &passed,
		Details:    details,
	}
}

// Report assembles a response for a pure query: no top-level passed field.
func (a *Assembler) Report(req Request, details any) Response {
	return Response{
		RequestID:  req.RequestID,
		ClientType: req.ClientType,
		ServerType: ServerType,
		Timestamp:  a.stamp(),
		Details:    details,
	}
}

// Failure assembles a structured failure without touching the ledger.
func (a *Assembler) Failure(req Request, message string) Response {
	passed := false
	return Response{
		RequestID:  req.RequestID,
		ClientType: req.ClientType,
		ServerType: ServerType,
		Timestamp:  a.stamp(),
		Passed:     &passed,
		Error:      message,
	}
}

// =============================================================================
// PER-OPERATION DETAIL STRUCTURES
// =============================================================================

// IngredientCheck is one ingredient's line in a pre-check report. Two
// distinct booleans, never conflated:
//   feasible : needed <= current (request-scoped availability)
//   status   : current stock classifies as full (threshold comparison of
//              CURRENT stock, independent of the requested amount)
type IngredientCheck struct {
	Ingredient string  `json:"ingredient"`
	Key        string  `json:"key"`
	Needed     float64 `json:"needed"`
	Current    float64 `json:"current"`
	Unit       string  `json:"unit,omitempty"`
	Feasible   bool    `json:"feasible"`
	Status     bool    `json:"status"`
	Level      string  `json:"level"`
	Error      string  `json:"error,omitempty"`
}

// DrinkCheck aggregates one recipe's ingredient checks.
type DrinkCheck struct {
	DrinkName   string            `json:"drink_name"`
	Status      bool              `json:"status"`
	Ingredients []IngredientCheck `json:"ingredients"`
}

// PreCheckReport is the advisory feasibility report. Passing a pre-check
// is NOT a guarantee that a later update will succeed; stock may be
// consumed by a concurrent caller between the two.
type PreCheckReport struct {
	Passed bool         `json:"passed"`
	Drinks []DrinkCheck `json:"drinks"`
}

// EntryReport is one key's outcome in an update report.
type EntryReport struct {
	Key       string  `json:"key"`
	Delta     float64 `json:"delta"`
	NewAmount float64 `json:"new_amount"`
	Unit      string  `json:"unit,omitempty"`
	Level     string  `json:"level,omitempty"`
	Applied   bool    `json:"applied"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// UpdateReport is the per-entry result of one update batch.
type UpdateReport struct {
	Committed bool          `json:"committed"`
	Entries   []EntryReport `json:"entries"`
}

// EntryStatus is one entry in an ingredient status snapshot.
type EntryStatus struct {
	Amount      float64 `json:"amount"`
	Unit        string  `json:"unit,omitempty"`
	Status      string  `json:"status"`
	Percentage  float64 `json:"percentage"`
	LastUpdated string  `json:"last_updated,omitempty"`
}

// StatusReport maps category -> subtype -> entry status.
type StatusReport map[string]map[string]EntryStatus

// RefillOutcome is one key's refill result.
type RefillOutcome struct {
	Key       string  `json:"key"`
	Refilled  bool    `json:"refilled"`
	NewAmount float64 `json:"new_amount,omitempty"`
	Level     string  `json:"level,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RefillReport collects per-key refill outcomes.
type RefillReport struct {
	Entries []RefillOutcome `json:"entries"`
}

// StockLevelReport counts ledger entries per status level.
type StockLevelReport struct {
	Full  int `json:"full"`
	Low   int `json:"low"`
	Empty int `json:"empty"`
}

// CategorySummaryEntry is the weakest entry of one category: the subtype
// closest to running out, with its level and fill percentage.
type CategorySummaryEntry struct {
	Subtype    string  `json:"subtype"`
	Level      string  `json:"level"`
	Percentage float64 `json:"percentage"`
}

// HealthReport answers liveness probes.
type HealthReport struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Capabilities []string `json:"capabilities"`
}
