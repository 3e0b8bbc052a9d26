package store

import (
	"time"
)

// SyncOperation is the kind of remote write a queue item retries.
type SyncOperation string

const (
	OpSetLoved     SyncOperation = "set_loved"
	OpSetPlaycount SyncOperation = "set_playcount"
)

// SyncItem is one pending remote write. Items are durable until the write
// is acknowledged by the remote service.
type SyncItem struct {
	ID         int64
	UserID     string
	TrackID    string
	Operation  SyncOperation
	Payload    string
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
}

// IdempotencyKey identifies a queue item by what it does, not when it was
// enqueued, so a repeated failure replaces the pending item instead of
// stacking a duplicate.
func (s SyncItem) IdempotencyKey() string {
	return s.UserID + ":" + s.TrackID + ":" + string(s.Operation)
}

// EnqueueSync adds a pending remote write, replacing any pending item with
// the same idempotency key. The attempt counter restarts: the payload is
// new intent, not the old failure retried.
func (m *Manager) EnqueueSync(item SyncItem) error {
	_, err := m.db.Exec(`
		INSERT INTO sync_queue
		(idempotency_key, user_id, track_id, operation, payload, attempts, last_error, enqueued_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(idempotency_key) DO UPDATE SET
			payload = excluded.payload,
			attempts = 0,
			last_error = excluded.last_error,
			enqueued_at = excluded.enqueued_at
	`, item.IdempotencyKey(), item.UserID, item.TrackID, string(item.Operation),
		item.Payload, item.LastError, item.EnqueuedAt.Unix())
	return err
}

// ListSyncQueue returns a user's pending writes in enqueue order.
func (m *Manager) ListSyncQueue(userID string) ([]SyncItem, error) {
	rows, err := m.db.Query(`
		SELECT id, user_id, track_id, operation, payload, attempts, last_error, enqueued_at
		FROM sync_queue
		WHERE user_id = ?
		ORDER BY enqueued_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SyncItem
	for rows.Next() {
		var it SyncItem
		var op string
		var enqueuedAt int64
		err := rows.Scan(&it.ID, &it.UserID, &it.TrackID, &op, &it.Payload,
			&it.Attempts, &it.LastError, &enqueuedAt)
		if err != nil {
			return nil, err
		}
		it.Operation = SyncOperation(op)
		it.EnqueuedAt = time.Unix(enqueuedAt, 0).UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteSyncItem removes an acknowledged write.
func (m *Manager) DeleteSyncItem(id int64) error {
	_, err := m.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

// BumpSyncAttempt increments the attempt counter and records the error.
func (m *Manager) BumpSyncAttempt(id int64, errMsg string) error {
	_, err := m.db.Exec(`
		UPDATE sync_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, errMsg, id)
	return err
}

// PurgeSyncOlderThan removes pending writes enqueued before the cutoff.
func (m *Manager) PurgeSyncOlderThan(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := m.db.Exec(`DELETE FROM sync_queue WHERE enqueued_at < ?`, cutoff)
	return err
}
