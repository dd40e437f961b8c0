/*
status.go - Threshold classification

PURPOSE:
  Maps a current amount and its configured thresholds to one of three
  canonical levels. The classification is a pure function: no side effects,
  callable concurrently without synchronization.

LEVELS (canonical, used everywhere):
  full  : current >= warning_threshold
  low   : critical_threshold <= current < warning_threshold
  empty : current < critical_threshold

The level is monotonic non-decreasing in the current amount over the order
empty < low < full.

NOTE:
  Classification reflects the ledger's view of CURRENT stock. Whether a
  specific request can be satisfied is a separate, request-scoped question
  answered by the feasibility check during pre-check. The two are never
  conflated; see validation/engine.go.
*/
package ledger

// Status is the classified stock level of one ledger entry.
type Status string

const (
	StatusFull  Status = "full"
	StatusLow   Status = "low"
	StatusEmpty Status = "empty"
)

// Classify maps an amount to its status given the entry's thresholds.
// Pure function; thresholds satisfy warning >= critical >= 0 (validated at
// catalog load).
func Classify(current, warningThreshold, criticalThreshold Amount) Status {
	switch {
	case current.GreaterThanOrEqual(warningThreshold):
		return StatusFull
	case current.GreaterThanOrEqual(criticalThreshold):
		return StatusLow
	default:
		return StatusEmpty
	}
}

// Rank orders levels as empty(0) < low(1) < full(2).
func (s Status) Rank() int {
	switch s {
	case StatusFull:
		return 2
	case StatusLow:
		return 1
	default:
		return 0
	}
}

// NeedsAttention reports whether the level should produce an operator-facing
// message (low or empty).
func (s Status) NeedsAttention() bool {
	return s == StatusLow || s == StatusEmpty
}
