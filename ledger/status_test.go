package ledger_test

import (
	"testing"

	"github.com/brewbot/validation-engine/ledger"
)

func amt(v float64) ledger.Amount {
	return ledger.NewAmount(v)
}

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify_Levels(t *testing.T) {
	// GIVEN: warning=500, critical=100
	// WHEN: Classifying amounts across the full range
	// THEN: Levels follow full >= warning > low >= critical > empty

	warning := amt(500)
	critical := amt(100)

	cases := []struct {
		name    string
		current float64
		want    ledger.Status
	}{
		{"well above warning", 2000, ledger.StatusFull},
		{"exactly at warning", 500, ledger.StatusFull},
		{"just below warning", 499.99, ledger.StatusLow},
		{"between thresholds", 250, ledger.StatusLow},
		{"exactly at critical", 100, ledger.StatusLow},
		{"just below critical", 99.99, ledger.StatusEmpty},
		{"zero", 0, ledger.StatusEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.Classify(amt(tc.current), warning, critical)
			if got != tc.want {
				t.Errorf("Classify(%v) = %q, want %q", tc.current, got, tc.want)
			}
		})
	}
}

func TestClassify_EqualThresholds(t *testing.T) {
	// GIVEN: warning == critical (a legal degenerate configuration)
	// WHEN: Classifying at and below the shared threshold
	// THEN: The low band is empty; at threshold is full, below is empty

	threshold := amt(100)

	if got := ledger.Classify(amt(100), threshold, threshold); got != ledger.StatusFull {
		t.Errorf("at shared threshold: got %q, want full", got)
	}
	if got := ledger.Classify(amt(99), threshold, threshold); got != ledger.StatusEmpty {
		t.Errorf("below shared threshold: got %q, want empty", got)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	// GIVEN: Fixed thresholds
	// WHEN: Classifying strictly increasing amounts
	// THEN: Status rank never decreases

	warning := amt(500)
	critical := amt(100)

	prev := -1
	for _, v := range []float64{0, 50, 99, 100, 101, 250, 499, 500, 501, 5000} {
		rank := ledger.Classify(amt(v), warning, critical).Rank()
		if rank < prev {
			t.Fatalf("rank decreased at amount %v: %d -> %d", v, prev, rank)
		}
		prev = rank
	}
}

func TestStatus_NeedsAttention(t *testing.T) {
	if ledger.StatusFull.NeedsAttention() {
		t.Error("full should not need attention")
	}
	if !ledger.StatusLow.NeedsAttention() {
		t.Error("low should need attention")
	}
	if !ledger.StatusEmpty.NeedsAttention() {
		t.Error("empty should need attention")
	}
}

// =============================================================================
// AMOUNT TESTS
// =============================================================================

func TestAmount_PercentOf(t *testing.T) {
	cases := []struct {
		name    string
		current float64
		total   float64
		want    float64
	}{
		{"half", 500, 1000, 50},
		{"rounded", 1, 3, 33.33},
		{"over capacity clamps", 1500, 1000, 100},
		{"negative clamps", -10, 1000, 0},
		{"zero total", 500, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := amt(tc.current).PercentOf(amt(tc.total))
			if got != tc.want {
				t.Errorf("PercentOf(%v/%v) = %v, want %v", tc.current, tc.total, got, tc.want)
			}
		})
	}
}

func TestAmount_DecimalPrecision(t *testing.T) {
	// GIVEN: Amounts that drift under float64 arithmetic
	// WHEN: Summing 0.1 ten times
	// THEN: The result is exactly 1

	sum := ledger.Zero()
	for i := 0; i < 10; i++ {
		sum = sum.Add(amt(0.1))
	}
	if !sum.Equal(amt(1)) {
		t.Errorf("0.1 * 10 = %s, want exactly 1", sum)
	}
}

// =============================================================================
// KEY TESTS
// =============================================================================

func TestIngredientKey_StringAndParse(t *testing.T) {
	key := ledger.NewKey(ledger.CategoryCoffeeBeans, "regular")
	if key.String() != "coffee_beans:regular" {
		t.Errorf("String() = %q", key.String())
	}

	parsed, err := ledger.ParseKey("milk:oat")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if parsed != ledger.NewKey(ledger.CategoryMilk, "oat") {
		t.Errorf("ParseKey = %+v", parsed)
	}

	for _, bad := range []string{"", "milk", ":oat", "milk:"} {
		if _, err := ledger.ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestSortKeys_CanonicalOrder(t *testing.T) {
	// The sorted order is the lock-acquisition order; it must be total and
	// deterministic regardless of input order.
	keys := []ledger.IngredientKey{
		ledger.NewKey(ledger.CategorySyrup, "vanilla"),
		ledger.NewKey(ledger.CategoryCoffeeBeans, "regular"),
		ledger.NewKey(ledger.CategoryMilk, "whole"),
		ledger.NewKey(ledger.CategoryCoffeeBeans, "decaf"),
	}
	ledger.SortKeys(keys)

	want := []string{
		"coffee_beans:decaf",
		"coffee_beans:regular",
		"milk:whole",
		"syrup:vanilla",
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, k, want[i])
		}
	}
}
