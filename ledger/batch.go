/*
batch.go - Atomic multi-key update batches

PURPOSE:
  An UpdateBatch is the only way quantities change. It is built once per
  request (from drink recipes and/or explicit ingredient deltas) and applied
  as a single atomic unit by the Store: either every consumption delta
  survives the commit-time insufficiency check and all deltas are written,
  or none are.

SIGN CONVENTION:
  Deltas are signed: negative consumes, positive restocks. The role-based
  policy that decides the sign lives in validation/policy.go; by the time a
  batch reaches the Store the signs are final.

DUPLICATE KEYS:
  A request may name the same key twice (two espresso entries in one order).
  Deltas are merged per key before locking so each slot is locked exactly
  once and insufficiency is judged against the combined delta.
*/
package ledger

// Delta is one signed quantity change for one key.
type Delta struct {
	Key   IngredientKey
	Delta Amount
}

// UpdateBatch is an ordered set of deltas applied atomically.
type UpdateBatch struct {
	deltas []Delta
}

// Add appends a delta to the batch.
func (b *UpdateBatch) Add(key IngredientKey, delta Amount) {
	b.deltas = append(b.deltas, Delta{Key: key, Delta: delta})
}

// Len returns the number of deltas added (before merging).
func (b *UpdateBatch) Len() int {
	return len(b.deltas)
}

// Deltas returns the deltas in insertion order.
func (b *UpdateBatch) Deltas() []Delta {
	return b.deltas
}

// Merged combines duplicate keys and returns the distinct keys in canonical
// lock order together with the total delta per key.
func (b *UpdateBatch) Merged() ([]IngredientKey, map[IngredientKey]Amount) {
	totals := make(map[IngredientKey]Amount, len(b.deltas))
	var keys []IngredientKey
	for _, d := range b.deltas {
		if existing, ok := totals[d.Key]; ok {
			totals[d.Key] = existing.Add(d.Delta)
			continue
		}
		totals[d.Key] = d.Delta
		keys = append(keys, d.Key)
	}
	SortKeys(keys)
	return keys, totals
}
