/*
store.go - The ledger store: per-key locked slot arena

PURPOSE:
  Holds the current amount for every catalog entry. This is the shared
  mutable state of the whole service, so the locking discipline here is the
  load-bearing part of the design.

LOCKING DISCIPLINE:
  - One sync.Mutex per slot, never one lock for the whole table. Operations
    on disjoint key sets run fully in parallel.
  - Multi-key operations (ApplyBatch, Refill) acquire every lock they need
    in canonical lexicographic key order before performing any check, and
    release them together after commit or abort. Fixed order means two
    batches touching overlapping key sets cannot deadlock.
  - Reads take the slot lock briefly per key. A reader never observes a
    half-applied batch.

COMMIT-TIME VALIDATION:
  Insufficiency is re-validated inside the same critical section that
  performs the write, against the state immediately prior to this commit.
  A pre-check is advisory only; two callers that both passed pre-check race
  here, and exactly one wins if stock covers only one of them.

PERSISTENCE:
  An optional Snapshotter receives the committed amounts while the slot
  locks are still held, so persisted writes for one key can never reorder.
  Persistence failure does not roll back the in-memory commit; the ledger
  instance is authoritative for the process lifetime.

SEE ALSO:
  - batch.go: UpdateBatch construction and merging
  - catalog.go: Definitions seeding the slots
  - store/sqlite: Snapshotter implementation
*/
package ledger

import (
	"sync"
	"time"
)

// =============================================================================
// REFILL POLICY
// =============================================================================

// RefillPolicy decides the amount a slot holds after a refill. The business
// rule for partial refills is deliberately a hook, not a hardcoded policy.
type RefillPolicy func(def Definition, current Amount) Amount

// RefillToMax resets the slot to its configured maximum capacity.
// This is the default policy.
func RefillToMax(def Definition, _ Amount) Amount {
	return def.MaxCapacity
}

// =============================================================================
// SNAPSHOTTER - Optional persistence hook
// =============================================================================

// SnapshotRecord is one committed amount handed to the Snapshotter.
type SnapshotRecord struct {
	Key       IngredientKey
	Amount    Amount
	UpdatedAt time.Time
}

// Snapshotter persists committed amounts. Called with slot locks held;
// implementations must not call back into the Store.
type Snapshotter interface {
	Persist(records []SnapshotRecord) error
}

// =============================================================================
// OUTCOMES
// =============================================================================

// KeyOutcome is the per-key result of a batch or refill.
type KeyOutcome struct {
	Key       IngredientKey
	Delta     Amount
	Applied   bool
	NewAmount Amount
	Status    Status
	Err       error // *InsufficientStockError or *UnknownIngredientError
}

// BatchResult is the outcome of one ApplyBatch call.
type BatchResult struct {
	// Committed is true when the known-key deltas were written. False means
	// no slot changed at all.
	Committed bool
	Outcomes  []KeyOutcome
	// PersistErr reports a snapshot persistence failure. The in-memory
	// commit stands regardless; shells decide whether to log or alert.
	PersistErr error
}

// Insufficient returns the outcomes that failed the commit-time check.
func (r BatchResult) Insufficient() []KeyOutcome {
	var out []KeyOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// =============================================================================
// STORE
// =============================================================================

type slot struct {
	mu        sync.Mutex
	def       Definition
	current   Amount
	updatedAt time.Time // zero until first mutation
}

// Store owns every ledger entry. All access goes through its methods.
type Store struct {
	slots map[IngredientKey]*slot
	keys  []IngredientKey // canonical order, from the catalog
	snap  Snapshotter
	now   func() time.Time
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithSnapshotter attaches a persistence hook.
func WithSnapshotter(s Snapshotter) StoreOption {
	return func(st *Store) { st.snap = s }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// WithAmounts overrides initial amounts for keys present in the map,
// typically restored from a snapshot store at startup. Keys not in the
// catalog are ignored.
func WithAmounts(amounts map[IngredientKey]Amount) StoreOption {
	return func(st *Store) {
		for key, amount := range amounts {
			if s, ok := st.slots[key]; ok {
				s.current = amount
			}
		}
	}
}

// NewStore builds a store with one slot per catalog entry, seeded with the
// configured initial amounts.
func NewStore(catalog *Catalog, opts ...StoreOption) *Store {
	st := &Store{
		slots: make(map[IngredientKey]*slot),
		keys:  catalog.Keys(),
		now:   time.Now,
	}
	for _, key := range catalog.Keys() {
		def, _ := catalog.Lookup(key)
		st.slots[key] = &slot{def: def, current: def.InitialAmount}
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Keys returns every key in canonical order.
func (st *Store) Keys() []IngredientKey {
	return st.keys
}

// =============================================================================
// READS
// =============================================================================

// Read returns a snapshot of one entry.
func (st *Store) Read(key IngredientKey) (Snapshot, error) {
	s, ok := st.slots[key]
	if !ok {
		return Snapshot{}, &UnknownIngredientError{Key: key}
	}
	s.mu.Lock()
	snap := st.snapshotLocked(s)
	s.mu.Unlock()
	return snap, nil
}

// SnapshotAll returns a snapshot of every entry (or the requested subset)
// in canonical order. Consistency is per key: each entry is internally
// consistent, but the set is not a single ledger-wide atomic view. The
// status query is advisory telemetry, not a commit path.
func (st *Store) SnapshotAll(keys ...IngredientKey) []Snapshot {
	if len(keys) == 0 {
		keys = st.keys
	}
	snaps := make([]Snapshot, 0, len(keys))
	for _, key := range keys {
		if snap, err := st.Read(key); err == nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

func (st *Store) snapshotLocked(s *slot) Snapshot {
	snap := Snapshot{
		Key:               s.def.Key,
		Current:           s.current,
		WarningThreshold:  s.def.WarningThreshold,
		CriticalThreshold: s.def.CriticalThreshold,
		MaxCapacity:       s.def.MaxCapacity,
		Unit:              s.def.Unit,
		Status:            Classify(s.current, s.def.WarningThreshold, s.def.CriticalThreshold),
	}
	if !s.updatedAt.IsZero() {
		snap.UpdatedAt = s.updatedAt.UTC().Format(time.RFC3339)
	}
	return snap
}

// =============================================================================
// APPLY BATCH - The unit of atomicity
// =============================================================================

// ApplyBatch applies every delta in the batch or none of them. For each
// consumption delta (negative) the resulting amount is validated against
// zero inside the critical section; any shortage aborts the whole batch
// with per-key detail. Keys missing from the catalog produce per-key
// failures without aborting the known siblings.
func (st *Store) ApplyBatch(batch UpdateBatch) BatchResult {
	keys, totals := batch.Merged()

	var known []IngredientKey
	var unknown []KeyOutcome
	for _, key := range keys {
		if _, ok := st.slots[key]; ok {
			known = append(known, key)
		} else {
			unknown = append(unknown, KeyOutcome{
				Key:   key,
				Delta: totals[key],
				Err:   &UnknownIngredientError{Key: key},
			})
		}
	}

	// Lock every known slot in canonical order before any check.
	locked := make([]*slot, 0, len(known))
	for _, key := range known {
		s := st.slots[key]
		s.mu.Lock()
		locked = append(locked, s)
	}
	defer func() {
		for _, s := range locked {
			s.mu.Unlock()
		}
	}()

	// Commit-time insufficiency check against the state right now, not the
	// state some earlier pre-check observed.
	shortage := false
	next := make([]Amount, len(known))
	for i, key := range known {
		s := st.slots[key]
		delta := totals[key]
		next[i] = s.current.Add(delta)
		if delta.IsNegative() && next[i].IsNegative() {
			shortage = true
		}
	}

	result := BatchResult{Outcomes: make([]KeyOutcome, 0, len(keys))}

	if shortage {
		// Abort: report every known key, no writes.
		for i, key := range known {
			s := st.slots[key]
			delta := totals[key]
			outcome := KeyOutcome{
				Key:       key,
				Delta:     delta,
				NewAmount: s.current,
				Status:    Classify(s.current, s.def.WarningThreshold, s.def.CriticalThreshold),
			}
			if delta.IsNegative() && next[i].IsNegative() {
				outcome.Err = &InsufficientStockError{
					Key:       key,
					Available: s.current,
					Requested: delta.Abs(),
				}
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
		result.Outcomes = append(result.Outcomes, unknown...)
		return result
	}

	// Commit: every delta, together.
	now := st.now()
	records := make([]SnapshotRecord, 0, len(known))
	for i, key := range known {
		s := st.slots[key]
		s.current = next[i]
		s.updatedAt = now
		result.Outcomes = append(result.Outcomes, KeyOutcome{
			Key:       key,
			Delta:     totals[key],
			Applied:   true,
			NewAmount: s.current,
			Status:    Classify(s.current, s.def.WarningThreshold, s.def.CriticalThreshold),
		})
		records = append(records, SnapshotRecord{Key: key, Amount: s.current, UpdatedAt: now})
	}
	result.Committed = len(known) > 0
	result.Outcomes = append(result.Outcomes, unknown...)

	if st.snap != nil && len(records) > 0 {
		result.PersistErr = st.snap.Persist(records)
	}
	return result
}

// =============================================================================
// REFILL
// =============================================================================

// Refill sets each requested key (or every key, if none given) to the
// amount chosen by the policy, under the same locking discipline as
// ApplyBatch. Unknown keys produce per-key failures, never a request-level
// error. The returned error reports snapshot persistence failure only; the
// in-memory refill stands regardless.
func (st *Store) Refill(keys []IngredientKey, policy RefillPolicy) ([]KeyOutcome, error) {
	if policy == nil {
		policy = RefillToMax
	}
	if len(keys) == 0 {
		keys = st.keys
	}

	// Dedupe and sort for the lock order.
	seen := make(map[IngredientKey]bool, len(keys))
	var distinct []IngredientKey
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, key)
		}
	}
	SortKeys(distinct)

	var known []IngredientKey
	outcomes := make([]KeyOutcome, 0, len(distinct))
	for _, key := range distinct {
		if _, ok := st.slots[key]; ok {
			known = append(known, key)
		} else {
			outcomes = append(outcomes, KeyOutcome{
				Key: key,
				Err: &UnknownIngredientError{Key: key},
			})
		}
	}

	locked := make([]*slot, 0, len(known))
	for _, key := range known {
		s := st.slots[key]
		s.mu.Lock()
		locked = append(locked, s)
	}
	defer func() {
		for _, s := range locked {
			s.mu.Unlock()
		}
	}()

	now := st.now()
	records := make([]SnapshotRecord, 0, len(known))
	for _, key := range known {
		s := st.slots[key]
		s.current = policy(s.def, s.current)
		s.updatedAt = now
		outcomes = append(outcomes, KeyOutcome{
			Key:       key,
			Applied:   true,
			NewAmount: s.current,
			Status:    Classify(s.current, s.def.WarningThreshold, s.def.CriticalThreshold),
		})
		records = append(records, SnapshotRecord{Key: key, Amount: s.current, UpdatedAt: now})
	}

	var persistErr error
	if st.snap != nil && len(records) > 0 {
		persistErr = st.snap.Persist(records)
	}
	return outcomes, persistErr
}
