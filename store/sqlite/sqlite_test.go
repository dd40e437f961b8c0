package sqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewbot/validation-engine/ledger"
	"github.com/brewbot/validation-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(category ledger.Category, subtype string, amount float64) ledger.SnapshotRecord {
	return ledger.SnapshotRecord{
		Key:       ledger.NewKey(category, subtype),
		Amount:    ledger.NewAmount(amount),
		UpdatedAt: time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC),
	}
}

func TestPersistAndLoad_RoundTrip(t *testing.T) {
	// GIVEN: Committed amounts for two keys
	// WHEN: Persisting and loading again
	// THEN: Every amount survives exactly, no decimal drift

	store := newTestStore(t)

	err := store.Persist([]ledger.SnapshotRecord{
		record(ledger.CategoryMilk, "whole", 4800.5),
		record(ledger.CategoryCoffeeBeans, "regular", 1982),
	})
	require.NoError(t, err)

	amounts, err := store.LoadAmounts()
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.True(t, amounts[ledger.NewKey(ledger.CategoryMilk, "whole")].Equal(ledger.NewAmount(4800.5)))
	assert.True(t, amounts[ledger.NewKey(ledger.CategoryCoffeeBeans, "regular")].Equal(ledger.NewAmount(1982)))
}

func TestPersist_UpsertsExistingKey(t *testing.T) {
	// Repeated persists of the same key keep only the latest amount.
	store := newTestStore(t)

	require.NoError(t, store.Persist([]ledger.SnapshotRecord{record(ledger.CategoryMilk, "whole", 5000)}))
	require.NoError(t, store.Persist([]ledger.SnapshotRecord{record(ledger.CategoryMilk, "whole", 4800)}))

	amounts, err := store.LoadAmounts()
	require.NoError(t, err)
	require.Len(t, amounts, 1)
	assert.True(t, amounts[ledger.NewKey(ledger.CategoryMilk, "whole")].Equal(ledger.NewAmount(4800)))
}

func TestLoadAmounts_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	amounts, err := store.LoadAmounts()
	require.NoError(t, err)
	assert.Empty(t, amounts)
}

func TestPersist_BatchIsOneTransaction(t *testing.T) {
	// A multi-key batch lands together; loading back sees all keys.
	store := newTestStore(t)

	records := []ledger.SnapshotRecord{
		record(ledger.CategoryMilk, "whole", 100),
		record(ledger.CategoryMilk, "oat", 200),
		record(ledger.CategoryCups, "medium", 42),
	}
	require.NoError(t, store.Persist(records))

	amounts, err := store.LoadAmounts()
	require.NoError(t, err)
	assert.Len(t, amounts, 3)
}

func TestStore_FeedsLedgerRestart(t *testing.T) {
	// GIVEN: A ledger connected to the snapshot store, with one committed
	//        consumption
	// WHEN: Building a new ledger from the persisted amounts
	// THEN: The new ledger resumes at the committed values

	store := newTestStore(t)
	catalog, err := ledger.ParseRules([]byte(`{
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
	}`))
	require.NoError(t, err)

	first := ledger.NewStore(catalog, ledger.WithSnapshotter(store))
	var batch ledger.UpdateBatch
	batch.Add(ledger.NewKey(ledger.CategoryMilk, "whole"), ledger.NewAmount(-4200))
	result := first.ApplyBatch(batch)
	require.True(t, result.Committed)
	require.NoError(t, result.PersistErr)

	amounts, err := store.LoadAmounts()
	require.NoError(t, err)

	second := ledger.NewStore(catalog, ledger.WithAmounts(amounts))
	snap, err := second.Read(ledger.NewKey(ledger.CategoryMilk, "whole"))
	require.NoError(t, err)
	assert.True(t, snap.Current.Equal(ledger.NewAmount(800)))
	assert.Equal(t, ledger.StatusLow, snap.Status)
}
