package ledger_test

import (
	"errors"
	"testing"

	"github.com/brewbot/validation-engine/ledger"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func testDefs() []ledger.Definition {
	return []ledger.Definition{
		{
			Key:               ledger.NewKey(ledger.CategoryCoffeeBeans, "regular"),
			WarningThreshold:  amt(500),
			CriticalThreshold: amt(100),
			MaxCapacity:       amt(2000),
			InitialAmount:     amt(2000),
			Unit:              "g",
		},
		{
			Key:               ledger.NewKey(ledger.CategoryMilk, "whole"),
			WarningThreshold:  amt(1000),
			CriticalThreshold: amt(500),
			MaxCapacity:       amt(5000),
			InitialAmount:     amt(5000),
			Unit:              "ml",
		},
		{
			Key:               ledger.NewKey(ledger.CategoryCups, "medium"),
			WarningThreshold:  amt(30),
			CriticalThreshold: amt(10),
			MaxCapacity:       amt(150),
			InitialAmount:     amt(150),
			Unit:              "count",
		},
	}
}

func testShots() map[int]ledger.Amount {
	return map[int]ledger.Amount{1: amt(9), 2: amt(18), 3: amt(27)}
}

func newTestCatalog(t *testing.T) *ledger.Catalog {
	t.Helper()
	c, err := ledger.NewCatalog(testDefs(), testShots())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

// =============================================================================
// INVARIANT VALIDATION TESTS
// =============================================================================

func TestNewCatalog_InvalidThresholds_Rejected(t *testing.T) {
	cases := []struct {
		name string
		def  ledger.Definition
	}{
		{
			name: "negative critical",
			def: ledger.Definition{
				Key:               ledger.NewKey(ledger.CategoryMilk, "bad"),
				WarningThreshold:  amt(10),
				CriticalThreshold: amt(-1),
				MaxCapacity:       amt(100),
			},
		},
		{
			name: "warning below critical",
			def: ledger.Definition{
				Key:               ledger.NewKey(ledger.CategoryMilk, "bad"),
				WarningThreshold:  amt(50),
				CriticalThreshold: amt(100),
				MaxCapacity:       amt(500),
			},
		},
		{
			name: "capacity below warning",
			def: ledger.Definition{
				Key:               ledger.NewKey(ledger.CategoryMilk, "bad"),
				WarningThreshold:  amt(500),
				CriticalThreshold: amt(100),
				MaxCapacity:       amt(400),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// One invalid entry poisons the whole catalog; there is no
			// partial acceptance.
			_, err := ledger.NewCatalog([]ledger.Definition{tc.def}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ledger.ErrInvalidCatalog) {
				t.Errorf("error %v should wrap ErrInvalidCatalog", err)
			}
			var catErr *ledger.CatalogError
			if !errors.As(err, &catErr) {
				t.Errorf("error %v should be a *CatalogError", err)
			}
		})
	}
}

func TestNewCatalog_DuplicateKey_Rejected(t *testing.T) {
	defs := testDefs()
	defs = append(defs, defs[0])
	if _, err := ledger.NewCatalog(defs, nil); err == nil {
		t.Fatal("duplicate key should be rejected")
	}
}

func TestCatalog_KeysSorted(t *testing.T) {
	c := newTestCatalog(t)
	keys := c.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1].String() >= keys[i].String() {
			t.Errorf("keys not in canonical order: %s >= %s", keys[i-1], keys[i])
		}
	}
}

// =============================================================================
// INGREDIENT RESOLUTION TESTS
// =============================================================================

func TestResolveIngredient_EspressoShotsToGrams(t *testing.T) {
	// GIVEN: A recipe naming "espresso" in shots
	// WHEN: Resolving through the catalog
	// THEN: The key is coffee_beans and the amount is grams from the table

	c := newTestCatalog(t)

	key, grams := c.ResolveIngredient("espresso", "regular", amt(2))
	if key != ledger.NewKey(ledger.CategoryCoffeeBeans, "regular") {
		t.Errorf("key = %s", key)
	}
	if !grams.Equal(amt(18)) {
		t.Errorf("2 shots = %s g, want 18", grams)
	}
}

func TestResolveIngredient_ShotFallback(t *testing.T) {
	// GIVEN: A shot count outside the configured table
	// WHEN: Resolving espresso
	// THEN: Grams fall back to shots * 9

	c := newTestCatalog(t)

	_, grams := c.ResolveIngredient("espresso", "regular", amt(5))
	if !grams.Equal(amt(45)) {
		t.Errorf("5 shots = %s g, want 45 (fallback)", grams)
	}

	// Fractional shots never hit the integer table.
	_, grams = c.ResolveIngredient("espresso", "regular", amt(1.5))
	if !grams.Equal(amt(13.5)) {
		t.Errorf("1.5 shots = %s g, want 13.5 (fallback)", grams)
	}
}

func TestResolveIngredient_Aliases(t *testing.T) {
	c := newTestCatalog(t)

	cases := []struct {
		name string
		want ledger.Category
	}{
		{"espresso", ledger.CategoryCoffeeBeans},
		{"coffee", ledger.CategoryCoffeeBeans},
		{"cup", ledger.CategoryCups},
		{"cups", ledger.CategoryCups},
		{"milk", ledger.CategoryMilk},
		{"syrup", ledger.CategorySyrup},
	}
	for _, tc := range cases {
		key, _ := c.ResolveIngredient(tc.name, "x", amt(1))
		if key.Category != tc.want {
			t.Errorf("alias %q resolved to %s, want %s", tc.name, key.Category, tc.want)
		}
	}
}

func TestResolveIngredient_NonEspressoPassesAmountThrough(t *testing.T) {
	// Only espresso converts units; plain coffee grams stay grams.
	c := newTestCatalog(t)

	_, amount := c.ResolveIngredient("milk", "whole", amt(200))
	if !amount.Equal(amt(200)) {
		t.Errorf("milk amount changed: %s", amount)
	}
	_, amount = c.ResolveIngredient("coffee", "regular", amt(2))
	if !amount.Equal(amt(2)) {
		t.Errorf("coffee (not espresso) amount changed: %s", amount)
	}
}

// =============================================================================
// RULES FILE TESTS
// =============================================================================

func TestParseRules_FullFile(t *testing.T) {
	data := []byte(`{
		"coffee_beans": {
			"shot_to_grams": {"1": 9, "2": 18},
			"subtypes": {
				"regular": {
					"warning_threshold": 500,
					"critical_threshold": 100,
					"max_capacity": 2000,
					"initial_amount": 1500,
					"unit": "g"
				}
			}
		},
		"milk": {
			"subtypes": {
				"whole": {
					"warning_threshold": 1000,
					"critical_threshold": 500,
					"max_capacity": 5000,
					"initial_amount": 5000,
					"unit": "ml"
				}
			}
		}
	}`)

	c, err := ledger.ParseRules(data)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}

	if len(c.Keys()) != 2 {
		t.Fatalf("got %d keys, want 2", len(c.Keys()))
	}
	def, ok := c.Lookup(ledger.NewKey(ledger.CategoryCoffeeBeans, "regular"))
	if !ok {
		t.Fatal("coffee_beans:regular missing")
	}
	if !def.InitialAmount.Equal(amt(1500)) {
		t.Errorf("initial amount = %s", def.InitialAmount)
	}
	if def.Unit != "g" {
		t.Errorf("unit = %q", def.Unit)
	}

	_, grams := c.ResolveIngredient("espresso", "regular", amt(2))
	if !grams.Equal(amt(18)) {
		t.Errorf("shot table not loaded: 2 shots = %s", grams)
	}
}

func TestParseRules_InvalidJSON_Rejected(t *testing.T) {
	if _, err := ledger.ParseRules([]byte(`{not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseRules_InvariantViolation_Rejected(t *testing.T) {
	data := []byte(`{
		"milk": {
			"subtypes": {
				"whole": {
					"warning_threshold": 100,
					"critical_threshold": 500,
					"max_capacity": 5000,
					"initial_amount": 5000,
					"unit": "ml"
				}
			}
		}
	}`)
	_, err := ledger.ParseRules(data)
	if !errors.Is(err, ledger.ErrInvalidCatalog) {
		t.Fatalf("got %v, want ErrInvalidCatalog", err)
	}
}
