package agent

import (
	"sync"
	"time"
)

// DefaultActivityTTL is the sliding expiry for activity records.
const DefaultActivityTTL = 900 * time.Second

// ActivityStatus marks where a session stands within its live window.
type ActivityStatus string

const (
	StatusOngoing   ActivityStatus = "ongoing"
	StatusResponded ActivityStatus = "responded"
)

// ActivityRecord is the liveness signal for one (sender, collection)
// pair. It is purely observational: it never gates or throttles
// requests.
type ActivityRecord struct {
	SenderID        string
	CollectionName  string
	MessageCount    int
	LastInteraction time.Time
	Status          ActivityStatus
	ResponseDigest  string

	expiresAt time.Time
}

// ActivityTracker tracks per-(sender, collection) activity with sliding
// expiry. Records expire lazily: an expired record is simply absent on
// the next read and the next Touch recreates it fresh. There is no
// background sweeper.
type ActivityTracker struct {
	mu      sync.Mutex
	records map[activityKey]*ActivityRecord
	ttl     time.Duration
	now     func() time.Time
}

type activityKey struct {
	senderID       string
	collectionName string
}

// TrackerOption configures an ActivityTracker.
type TrackerOption func(*ActivityTracker)

// WithTTL overrides the sliding expiry window.
func WithTTL(ttl time.Duration) TrackerOption {
	return func(t *ActivityTracker) {
		t.ttl = ttl
	}
}

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *ActivityTracker) {
		t.now = now
	}
}

// NewActivityTracker creates an activity tracker.
func NewActivityTracker(opts ...TrackerOption) *ActivityTracker {
	t := &ActivityTracker{
		records: make(map[activityKey]*ActivityRecord),
		ttl:     DefaultActivityTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch records an inbound message: it increments the message count of
// the live record (or initializes it to 1 when absent or expired),
// updates the last interaction time and re-arms the TTL.
func (t *ActivityTracker) Touch(senderID, collectionName string) ActivityRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := activityKey{senderID: senderID, collectionName: collectionName}

	record, ok := t.records[key]
	if !ok || now.After(record.expiresAt) {
		record = &ActivityRecord{
			SenderID:       senderID,
			CollectionName: collectionName,
		}
		t.records[key] = record
	}

	record.MessageCount++
	record.LastInteraction = now
	record.Status = StatusOngoing
	record.expiresAt = now.Add(t.ttl)
	return *record
}

// MarkResponded records that the agent answered, stores a short digest
// of the response and re-arms the TTL. A no-op when the record has
// expired in the meantime.
func (t *ActivityTracker) MarkResponded(senderID, collectionName, digest string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := activityKey{senderID: senderID, collectionName: collectionName}
	record, ok := t.records[key]
	if !ok || now.After(record.expiresAt) {
		delete(t.records, key)
		return
	}

	record.Status = StatusResponded
	record.ResponseDigest = digest
	record.expiresAt = now.Add(t.ttl)
}

// Get returns the live record for the key, or false when absent or
// expired.
func (t *ActivityTracker) Get(senderID, collectionName string) (ActivityRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := activityKey{senderID: senderID, collectionName: collectionName}
	record, ok := t.records[key]
	if !ok {
		return ActivityRecord{}, false
	}
	if now.After(record.expiresAt) {
		delete(t.records, key)
		return ActivityRecord{}, false
	}
	return *record, true
}

// Snapshot returns all live records, dropping expired ones on the way.
func (t *ActivityTracker) Snapshot() []ActivityRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]ActivityRecord, 0, len(t.records))
	for key, record := range t.records {
		if now.After(record.expiresAt) {
			delete(t.records, key)
			continue
		}
		out = append(out, *record)
	}
	return out
}
