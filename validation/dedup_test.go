package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brewbot/validation-engine/validation"
)

func TestDeduplicator_ReplayWithinWindow(t *testing.T) {
	// GIVEN: A recorded response for req-1
	// WHEN: Looking up req-1 again inside the window
	// THEN: The cached response comes back verbatim

	d := validation.NewDeduplicator(10 * time.Minute)
	resp := validation.Response{RequestID: "req-1", Timestamp: "2026-08-29T12:00:00Z"}
	d.Record("req-1", resp)

	cached, ok := d.Lookup("req-1")
	assert.True(t, ok)
	assert.Equal(t, resp, cached, "replay must return the original response, timestamp included")

	_, ok = d.Lookup("req-2")
	assert.False(t, ok)
}

func TestDeduplicator_WindowExpiry(t *testing.T) {
	// GIVEN: A record and a clock advanced past the retention window
	// WHEN: Looking up the id
	// THEN: The record is gone and the id may be processed again

	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	d := validation.NewDeduplicator(10 * time.Minute)
	d.SetClock(func() time.Time { return now })

	d.Record("req-1", validation.Response{RequestID: "req-1"})

	now = now.Add(9 * time.Minute)
	_, ok := d.Lookup("req-1")
	assert.True(t, ok, "still inside the window")

	now = now.Add(2 * time.Minute)
	_, ok = d.Lookup("req-1")
	assert.False(t, ok, "expired after the window")
}

func TestDeduplicator_RecordPrunesExpired(t *testing.T) {
	// Memory stays bounded: recording new ids drops expired ones.
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	d := validation.NewDeduplicator(time.Minute)
	d.SetClock(func() time.Time { return now })

	d.Record("old-1", validation.Response{})
	d.Record("old-2", validation.Response{})
	assert.Equal(t, 2, d.Len())

	now = now.Add(5 * time.Minute)
	d.Record("fresh", validation.Response{})
	assert.Equal(t, 1, d.Len(), "expired records pruned on record")
}

func TestNewDeduplicator_NonPositiveWindowUsesDefault(t *testing.T) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	d := validation.NewDeduplicator(0)
	d.SetClock(func() time.Time { return now })

	d.Record("req-1", validation.Response{RequestID: "req-1"})

	now = now.Add(validation.DefaultDedupWindow - time.Second)
	_, ok := d.Lookup("req-1")
	assert.True(t, ok, "default window should apply")
}
