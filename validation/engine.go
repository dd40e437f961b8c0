/*
engine.go - The validation engine

PURPOSE:
  Implements the operations external callers invoke through the transport
  shells:

  Core:
    pre_check          Advisory feasibility check (read-only)
    update_inventory   Atomic batch mutation with commit-time validation
    ingredient_status  Classified snapshot of the ledger
    refill_ingredient  Reset entries per the refill policy

  Dashboard summaries:
    stock_level        Entry counts per status level
    category_summary   Weakest subtype per category
    category_count     Subtype counts per category
    health             Liveness report

ADVISORY/COMMIT SPLIT:
  pre_check never mutates and its answer is advisory only. Two schedulers
  may both pass pre-check for the last of an ingredient; the commit-time
  check inside ApplyBatch decides who wins. Callers must NOT treat a
  passed pre-check as a promise that update_inventory will succeed.

DEDUPLICATION:
  Mutating operations consult the deduplicator before any ledger lock is
  acquired and cache the assembled response afterwards. A retried delivery
  of a committed update returns the original response, it never re-applies.

ERROR POLICY:
  Malformed payloads and unknown functions produce a structured failure
  without touching the ledger. Insufficient stock and unknown ingredients
  are content outcomes reported per key in the details, not top-level
  errors.
*/
package validation

import (
	"fmt"
	"sort"

	"github.com/brewbot/validation-engine/ledger"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine wires the ledger store, catalog, deduplicator and response
// assembler behind a single Handle entry point.
type Engine struct {
	store     *ledger.Store
	catalog   *ledger.Catalog
	dedup     *Deduplicator
	assembler *Assembler
	refill    ledger.RefillPolicy
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithRefillPolicy overrides the default reset-to-max refill rule.
func WithRefillPolicy(p ledger.RefillPolicy) EngineOption {
	return func(e *Engine) { e.refill = p }
}

// WithAssembler overrides the response assembler (tests pin the clock).
func WithAssembler(a *Assembler) EngineOption {
	return func(e *Engine) { e.assembler = a }
}

// WithDeduplicator overrides the default deduplicator.
func WithDeduplicator(d *Deduplicator) EngineOption {
	return func(e *Engine) { e.dedup = d }
}

// NewEngine creates an engine over a catalog and its store.
func NewEngine(catalog *ledger.Catalog, store *ledger.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		catalog:   catalog,
		dedup:     NewDeduplicator(DefaultDedupWindow),
		assembler: NewAssembler(),
		refill:    ledger.RefillToMax,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle validates the envelope, short-circuits duplicates, routes the
// operation and records mutating outcomes for replay.
func (e *Engine) Handle(req Request) Response {
	if err := req.Validate(); err != nil {
		return e.assembler.Failure(req, err.Error())
	}

	if req.Function.Mutating() {
		if cached, ok := e.dedup.Lookup(req.RequestID); ok {
			return cached
		}
	}

	var resp Response
	switch req.Function {
	case FuncPreCheck:
		resp = e.preCheck(req)
	case FuncUpdateInventory:
		resp = e.updateInventory(req)
	case FuncIngredientStatus:
		resp = e.ingredientStatus(req)
	case FuncRefillIngredient:
		resp = e.refillIngredient(req)
	case FuncStockLevel:
		resp = e.stockLevel(req)
	case FuncCategorySummary:
		resp = e.categorySummary(req)
	case FuncCategoryCount:
		resp = e.categoryCount(req)
	case FuncHealth:
		resp = e.health(req)
	default:
		return e.assembler.Failure(req, fmt.Sprintf("Unknown function: %s", req.Function))
	}

	if req.Function.Mutating() {
		e.dedup.Record(req.RequestID, resp)
	}
	return resp
}

// =============================================================================
// PRE-CHECK (read-only, advisory)
// =============================================================================

func (e *Engine) preCheck(req Request) Response {
	var payload PreCheckPayload
	if err := decodePayload(req.Payload, &payload); err != nil {
		return e.assembler.Failure(req, err.Error())
	}
	if len(payload.Items) == 0 {
		return e.assembler.Failure(req, "pre_check payload has no items")
	}

	report := PreCheckReport{Passed: true}
	for _, item := range payload.Items {
		drink := DrinkCheck{DrinkName: item.DrinkName, Status: true}

		for _, name := range sortedNames(item.Ingredients) {
			detail := item.Ingredients[name]
			key, needed := e.catalog.ResolveIngredient(name, detail.Type, ledger.NewAmount(detail.Amount))
			check := IngredientCheck{
				Ingredient: name,
				Key:        key.String(),
				Needed:     needed.Float64(),
			}

			snap, err := e.store.Read(key)
			if err != nil {
				check.Error = err.Error()
				drink.Status = false
			} else {
				check.Current = snap.Current.Float64()
				check.Unit = snap.Unit
				check.Feasible = snap.Current.GreaterThanOrEqual(needed)
				check.Level = string(snap.Status)
				// The per-ingredient status boolean reflects the threshold
				// classification of current stock, not the requested amount.
				check.Status = snap.Status == ledger.StatusFull
				if !check.Feasible || !check.Status {
					drink.Status = false
				}
			}
			drink.Ingredients = append(drink.Ingredients, check)
		}

		if !drink.Status {
			report.Passed = false
		}
		report.Drinks = append(report.Drinks, drink)
	}

	return e.assembler.Result(req, report.Passed, report)
}

// =============================================================================
// UPDATE INVENTORY (mutating)
// =============================================================================

func (e *Engine) updateInventory(req Request) Response {
	var payload UpdatePayload
	if err := decodePayload(req.Payload, &payload); err != nil {
		return e.assembler.Failure(req, err.Error())
	}
	if payload.Empty() {
		return e.assembler.Failure(req, "update_inventory payload has no items or ingredients")
	}

	batch := e.buildBatch(req.ClientType, payload)
	result := e.store.ApplyBatch(batch)

	report := UpdateReport{Committed: result.Committed}
	passed := result.Committed
	for _, o := range result.Outcomes {
		entry := EntryReport{
			Key:       o.Key.String(),
			Delta:     o.Delta.Float64(),
			NewAmount: o.NewAmount.Float64(),
			Applied:   o.Applied,
			Level:     string(o.Status),
		}
		if def, ok := e.catalog.Lookup(o.Key); ok {
			entry.Unit = def.Unit
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
			passed = false
		}
		if o.Applied && o.Status.NeedsAttention() {
			entry.Message = fmt.Sprintf("%s is %s: %s %s remaining",
				o.Key, o.Status, o.NewAmount, entry.Unit)
		}
		report.Entries = append(report.Entries, entry)
	}

	resp := e.assembler.Result(req, passed, report)
	if result.PersistErr != nil {
		resp.Error = fmt.Sprintf("snapshot persistence failed: %v", result.PersistErr)
	}
	return resp
}

// buildBatch resolves the payload variants (items, explicit ingredients,
// or both) into one canonical UpdateBatch with the role sign convention
// applied. The core never branches on payload shape again.
func (e *Engine) buildBatch(client ClientType, payload UpdatePayload) ledger.UpdateBatch {
	var batch ledger.UpdateBatch
	for _, item := range payload.Items {
		for _, name := range sortedNames(item.Ingredients) {
			detail := item.Ingredients[name]
			key, amount := e.catalog.ResolveIngredient(name, detail.Type, ledger.NewAmount(detail.Amount))
			batch.Add(key, SignedDelta(client, amount))
		}
	}
	for _, entry := range payload.Ingredients {
		for _, name := range sortedNames(entry) {
			detail := entry[name]
			key, amount := e.catalog.ResolveIngredient(name, detail.Type, ledger.NewAmount(detail.Amount))
			batch.Add(key, SignedDelta(client, amount))
		}
	}
	return batch
}

// =============================================================================
// INGREDIENT STATUS (read-only)
// =============================================================================

func (e *Engine) ingredientStatus(req Request) Response {
	var payload StatusPayload
	if err := decodePayload(req.Payload, &payload); err != nil {
		return e.assembler.Failure(req, err.Error())
	}

	report := make(StatusReport)
	for _, key := range e.store.Keys() {
		if payload.IngredientType != "" && string(key.Category) != payload.IngredientType {
			continue
		}
		if payload.Subtype != "" && key.Subtype != payload.Subtype {
			continue
		}
		snap, err := e.store.Read(key)
		if err != nil {
			continue
		}
		category := string(key.Category)
		if report[category] == nil {
			report[category] = make(map[string]EntryStatus)
		}
		report[category][key.Subtype] = EntryStatus{
			Amount:      snap.Current.Float64(),
			Unit:        snap.Unit,
			Status:      string(snap.Status),
			Percentage:  snap.Percentage(),
			LastUpdated: snap.UpdatedAt,
		}
	}

	return e.assembler.Report(req, report)
}

// =============================================================================
// REFILL (mutating)
// =============================================================================

func (e *Engine) refillIngredient(req Request) Response {
	var payload RefillPayload
	if err := decodePayload(req.Payload, &payload); err != nil {
		return e.assembler.Failure(req, err.Error())
	}

	keys := e.refillKeys(payload.Targets())
	outcomes, persistErr := e.store.Refill(keys, e.refill)

	report := RefillReport{}
	passed := true
	for _, o := range outcomes {
		entry := RefillOutcome{Key: o.Key.String()}
		if o.Err != nil {
			entry.Error = o.Err.Error()
			passed = false
		} else {
			entry.Refilled = true
			entry.NewAmount = o.NewAmount.Float64()
			entry.Level = string(o.Status)
		}
		report.Entries = append(report.Entries, entry)
	}

	resp := e.assembler.Result(req, passed, report)
	if persistErr != nil {
		resp.Error = fmt.Sprintf("snapshot persistence failed: %v", persistErr)
	}
	return resp
}

// refillKeys expands targets into concrete ledger keys. An empty target
// list means the whole catalog. A target without a subtype expands to
// every subtype of its category; a category with no catalog entries
// produces a deliberately unknown key so the miss surfaces per key.
func (e *Engine) refillKeys(targets []RefillTarget) []ledger.IngredientKey {
	if len(targets) == 0 {
		return nil
	}
	var keys []ledger.IngredientKey
	for _, t := range targets {
		if t.Subtype != "" {
			keys = append(keys, ledger.NewKey(ledger.Category(t.IngredientType), t.Subtype))
			continue
		}
		matched := false
		for _, key := range e.store.Keys() {
			if string(key.Category) == t.IngredientType {
				keys = append(keys, key)
				matched = true
			}
		}
		if !matched {
			keys = append(keys, ledger.NewKey(ledger.Category(t.IngredientType), "*"))
		}
	}
	return keys
}

// =============================================================================
// DASHBOARD SUMMARIES (read-only)
// =============================================================================

func (e *Engine) stockLevel(req Request) Response {
	var report StockLevelReport
	for _, snap := range e.store.SnapshotAll() {
		switch snap.Status {
		case ledger.StatusFull:
			report.Full++
		case ledger.StatusLow:
			report.Low++
		default:
			report.Empty++
		}
	}
	return e.assembler.Report(req, report)
}

func (e *Engine) categorySummary(req Request) Response {
	summary := make(map[string]CategorySummaryEntry)
	for _, snap := range e.store.SnapshotAll() {
		category := string(snap.Key.Category)
		entry := CategorySummaryEntry{
			Subtype:    snap.Key.Subtype,
			Level:      string(snap.Status),
			Percentage: snap.Percentage(),
		}
		existing, ok := summary[category]
		if !ok || weaker(entry, existing) {
			summary[category] = entry
		}
	}
	return e.assembler.Report(req, summary)
}

// weaker orders summary entries by status rank, then fill percentage.
func weaker(a, b CategorySummaryEntry) bool {
	ra, rb := ledger.Status(a.Level).Rank(), ledger.Status(b.Level).Rank()
	if ra != rb {
		return ra < rb
	}
	return a.Percentage < b.Percentage
}

func (e *Engine) categoryCount(req Request) Response {
	counts := make(map[string]int)
	for _, key := range e.store.Keys() {
		counts[string(key.Category)]++
	}
	return e.assembler.Report(req, counts)
}

func (e *Engine) health(req Request) Response {
	return e.assembler.Report(req, HealthReport{
		Status:  "healthy",
		Service: ServerType,
		Capabilities: []string{
			string(FuncPreCheck), string(FuncUpdateInventory),
			string(FuncIngredientStatus), string(FuncRefillIngredient),
			string(FuncStockLevel), string(FuncCategorySummary),
			string(FuncCategoryCount),
		},
	})
}

// sortedNames returns map keys in deterministic order for reports and
// batch construction.
func sortedNames(m map[string]IngredientDetail) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
