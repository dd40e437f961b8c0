/*
catalog.go - Static ingredient definitions

PURPOSE:
  The Catalog is the configured universe of (category, subtype) resources:
  thresholds, capacities, units, and the measurement conversions applied when
  a drink recipe names an ingredient in request units (espresso shots)
  rather than stock units (grams of beans).

CONFIGURATION FORMAT (JSON, loaded at startup):

  {
    "coffee_beans": {
      "shot_to_grams": {"1": 9, "2": 18, "3": 27},
      "subtypes": {
        "regular": {
          "warning_threshold": 500,
          "critical_threshold": 200,
          "max_capacity": 3000,
          "initial_amount": 2500,
          "unit": "g"
        }
      }
    },
    ...
  }

INVARIANTS (validated at load; violation is a fatal startup error):
  warning_threshold >= critical_threshold >= 0
  max_capacity >= warning_threshold

REQUEST-NAME ALIASES:
  Drink recipes name ingredients by what the machine dispenses, not by what
  the ledger stocks: "espresso" draws down coffee_beans (converted from
  shots to grams), "cup" draws down cups. The alias table lives here so the
  validation engine never special-cases ingredient names.

SEE ALSO:
  - store.go: Holds the mutable amounts for every catalog entry
  - validation/engine.go: Resolves recipes through the catalog
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEFINITION - One configured catalog entry
// =============================================================================

// Definition describes one (category, subtype) resource.
type Definition struct {
	Key               IngredientKey
	WarningThreshold  Amount
	CriticalThreshold Amount
	MaxCapacity       Amount
	InitialAmount     Amount
	Unit              string
}

// Validate checks the threshold invariants for this definition.
func (d Definition) Validate() error {
	if d.CriticalThreshold.IsNegative() {
		return &CatalogError{Key: d.Key, Reason: "critical_threshold must be >= 0"}
	}
	if d.WarningThreshold.LessThan(d.CriticalThreshold) {
		return &CatalogError{Key: d.Key, Reason: "warning_threshold must be >= critical_threshold"}
	}
	if d.MaxCapacity.LessThan(d.WarningThreshold) {
		return &CatalogError{Key: d.Key, Reason: "max_capacity must be >= warning_threshold"}
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the immutable set of ingredient definitions plus measurement
// conversions. Safe for concurrent reads.
type Catalog struct {
	defs        map[IngredientKey]Definition
	keys        []IngredientKey // sorted canonical order
	shotToGrams map[int]Amount
	aliases     map[string]Category
}

// defaultAliases maps recipe ingredient names to stock categories.
var defaultAliases = map[string]Category{
	"espresso":    CategoryCoffeeBeans,
	"coffee":      CategoryCoffeeBeans,
	"cup":         CategoryCups,
	"coffee_beans": CategoryCoffeeBeans,
	"cups":        CategoryCups,
	"milk":        CategoryMilk,
	"syrup":       CategorySyrup,
}

// shotGramsFallback is grams per shot when the conversion table has no
// entry for the requested shot count.
var shotGramsFallback = decimal.NewFromInt(9)

// NewCatalog builds a catalog from definitions, validating every entry.
// Any invariant violation makes the whole catalog invalid: the service must
// refuse to start rather than fall back at runtime.
func NewCatalog(defs []Definition, shotToGrams map[int]Amount) (*Catalog, error) {
	c := &Catalog{
		defs:        make(map[IngredientKey]Definition, len(defs)),
		shotToGrams: shotToGrams,
		aliases:     defaultAliases,
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.Key]; dup {
			return nil, &CatalogError{Key: d.Key, Reason: "duplicate definition"}
		}
		c.defs[d.Key] = d
		c.keys = append(c.keys, d.Key)
	}
	SortKeys(c.keys)
	return c, nil
}

// Lookup returns the definition for a key.
func (c *Catalog) Lookup(key IngredientKey) (Definition, bool) {
	d, ok := c.defs[key]
	return d, ok
}

// Keys returns all catalog keys in canonical order. The returned slice is
// shared; callers must not modify it.
func (c *Catalog) Keys() []IngredientKey {
	return c.keys
}

// Categories returns the distinct categories in canonical order.
func (c *Catalog) Categories() []Category {
	var cats []Category
	seen := make(map[Category]bool)
	for _, k := range c.keys {
		if !seen[k.Category] {
			seen[k.Category] = true
			cats = append(cats, k.Category)
		}
	}
	return cats
}

// ResolveIngredient maps a recipe ingredient (name, subtype, amount in
// request units) to its ledger key and amount in stock units. Espresso
// shots convert to grams of beans through the configured table.
// The key is not guaranteed to exist in the catalog; existence is checked
// at commit time so unknown ingredients surface as per-key outcomes.
func (c *Catalog) ResolveIngredient(name, subtype string, amount Amount) (IngredientKey, Amount) {
	category, ok := c.aliases[name]
	if !ok {
		category = Category(name)
	}
	key := IngredientKey{Category: category, Subtype: subtype}

	if category == CategoryCoffeeBeans && name == "espresso" {
		return key, c.shotsToGrams(amount)
	}
	return key, amount
}

func (c *Catalog) shotsToGrams(shots Amount) Amount {
	if n := int(shots.Value.IntPart()); shots.Value.IsInteger() {
		if grams, ok := c.shotToGrams[n]; ok {
			return grams
		}
	}
	return shots.Mul(shotGramsFallback)
}

// =============================================================================
// RULES FILE LOADING
// =============================================================================

type rulesFile map[string]categoryRules

type categoryRules struct {
	ShotToGrams map[string]float64      `json:"shot_to_grams,omitempty"`
	Subtypes    map[string]subtypeRules `json:"subtypes"`
}

type subtypeRules struct {
	WarningThreshold  float64 `json:"warning_threshold"`
	CriticalThreshold float64 `json:"critical_threshold"`
	MaxCapacity       float64 `json:"max_capacity"`
	InitialAmount     float64 `json:"initial_amount"`
	Unit              string  `json:"unit"`
}

// LoadRules reads and validates a catalog rules file.
func LoadRules(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses catalog rules from JSON and validates every entry.
func ParseRules(data []byte) (*Catalog, error) {
	var rules rulesFile
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse catalog rules: %w", err)
	}

	var defs []Definition
	shotToGrams := make(map[int]Amount)

	for category, cr := range rules {
		for shots, grams := range cr.ShotToGrams {
			n, err := strconv.Atoi(shots)
			if err != nil {
				return nil, fmt.Errorf("parse catalog rules: shot_to_grams key %q: %w", shots, err)
			}
			shotToGrams[n] = NewAmount(grams)
		}
		for subtype, sr := range cr.Subtypes {
			defs = append(defs, Definition{
				Key:               IngredientKey{Category: Category(category), Subtype: subtype},
				WarningThreshold:  NewAmount(sr.WarningThreshold),
				CriticalThreshold: NewAmount(sr.CriticalThreshold),
				MaxCapacity:       NewAmount(sr.MaxCapacity),
				InitialAmount:     NewAmount(sr.InitialAmount),
				Unit:              sr.Unit,
			})
		}
	}

	return NewCatalog(defs, shotToGrams)
}
