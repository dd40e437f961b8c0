/*
dedup.go - Request deduplicator

PURPOSE:
  The transport delivers messages at least once, so a retried delivery of a
  committed update must not apply the mutation a second time. The
  deduplicator caches the full assembled response for each processed
  request id within a bounded retention window; a repeat within the window
  is answered from cache verbatim, timestamp included.

PLACEMENT:
  The engine consults the deduplicator BEFORE a mutating operation acquires
  any ledger lock. Read-only operations skip it; re-reading is harmless.

RETENTION:
  Window sizing is a deployment parameter, not a core invariant. Expired
  records are pruned as new ones are recorded, so memory stays bounded by
  the request rate times the window.
*/
package validation

import (
	"sync"
	"time"
)

// DefaultDedupWindow is the retention window used when none is configured.
const DefaultDedupWindow = 10 * time.Minute

type dedupRecord struct {
	resp   Response
	seenAt time.Time
}

// Deduplicator tracks recently processed request ids.
type Deduplicator struct {
	mu      sync.Mutex
	window  time.Duration
	records map[string]dedupRecord
	now     func() time.Time
}

// NewDeduplicator creates a deduplicator with the given retention window.
// A non-positive window falls back to the default.
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Deduplicator{
		window:  window,
		records: make(map[string]dedupRecord),
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests).
func (d *Deduplicator) SetClock(now func() time.Time) {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
}

// Lookup returns the cached response for a request id seen within the
// window.
func (d *Deduplicator) Lookup(requestID string) (Response, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.records[requestID]
	if !ok {
		return Response{}, false
	}
	if d.now().Sub(rec.seenAt) > d.window {
		delete(d.records, requestID)
		return Response{}, false
	}
	return rec.resp, true
}

// Record caches the outcome of a processed request id and prunes expired
// records.
func (d *Deduplicator) Record(requestID string, resp Response) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, rec := range d.records {
		if now.Sub(rec.seenAt) > d.window {
			delete(d.records, id)
		}
	}
	d.records[requestID] = dedupRecord{resp: resp, seenAt: now}
}

// Len returns the number of retained records.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
