/*
Package ledger provides the core inventory ledger engine.

PURPOSE:
  This package contains the consistency-critical types and algorithms for
  tracking consumable resources on an automated beverage line: coffee
  grounds, milk, syrups, cups. Quantities are validated and mutated
  concurrently by multiple callers; the engine guarantees that a quantity
  never goes negative, that multi-ingredient batches commit atomically, and
  that status classification is deterministic.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity backed by decimal.Decimal (milliliters of milk are
    legitimately fractional; floats would drift)
  - Category / IngredientKey: Composite (category, subtype) identity,
    e.g. (coffee_beans, regular), (cups, H9)
  - Key ordering: the canonical lexicographic order used for lock
    acquisition when a batch touches multiple keys

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 arithmetic
  2. Type safety: Category and IngredientKey are distinct types, not strings
  3. Determinism: multi-key operations always lock in the same order

SEE ALSO:
  - catalog.go: Static ingredient definitions and thresholds
  - store.go: The locked slot arena holding current amounts
  - status.go: Pure threshold classification
*/
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity backed by decimal
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value)}
}

func NewAmountFromInt(value int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value))}
}

func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Value: d}, nil
}

func Zero() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s)} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg()} }
func (a Amount) Abs() Amount               { return Amount{Value: a.Value.Abs()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) GreaterThanOrEqual(b Amount) bool {
	return a.Value.GreaterThanOrEqual(b.Value)
}
func (a Amount) String() string  { return a.Value.String() }
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// PercentOf returns a/total * 100 rounded to two places, clamped to [0, 100].
// Used for dashboard fill gauges.
func (a Amount) PercentOf(total Amount) float64 {
	if total.IsZero() || total.IsNegative() {
		return 0
	}
	pct := a.Value.Div(total.Value).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.IsNegative() {
		return 0
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	f, _ := pct.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Category is the top-level ingredient grouping.
type Category string

const (
	CategoryCoffeeBeans Category = "coffee_beans"
	CategoryCups        Category = "cups"
	CategoryMilk        Category = "milk"
	CategorySyrup       Category = "syrup"
)

// IngredientKey is the composite identity of one ledger entry.
// Immutable once defined in the catalog.
type IngredientKey struct {
	Category Category
	Subtype  string
}

func NewKey(category Category, subtype string) IngredientKey {
	return IngredientKey{Category: category, Subtype: subtype}
}

// String returns the canonical "category:subtype" form. This form defines
// the lock-acquisition order for multi-key batches.
func (k IngredientKey) String() string {
	return string(k.Category) + ":" + k.Subtype
}

// ParseKey parses the canonical "category:subtype" form.
func ParseKey(s string) (IngredientKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return IngredientKey{}, fmt.Errorf("invalid ingredient key %q", s)
	}
	return IngredientKey{Category: Category(parts[0]), Subtype: parts[1]}, nil
}

// SortKeys orders keys lexicographically by their canonical form.
// Every multi-key operation acquires locks in this order; see store.go.
func SortKeys(keys []IngredientKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// =============================================================================
// SNAPSHOT - Labeled read-only copy of a ledger entry
// =============================================================================

// Snapshot is a point-in-time copy of one entry. Entries themselves are
// owned exclusively by the Store and never escape it.
type Snapshot struct {
	Key               IngredientKey
	Current           Amount
	WarningThreshold  Amount
	CriticalThreshold Amount
	MaxCapacity       Amount
	Unit              string
	Status            Status
	UpdatedAt         string // RFC3339; empty until first mutation
}

// Percentage returns the fill level relative to max capacity.
func (s Snapshot) Percentage() float64 {
	return s.Current.PercentOf(s.MaxCapacity)
}
