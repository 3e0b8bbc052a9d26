package store

import (
	"database/sql"
	"time"
)

// MovementKind distinguishes an album already known to the user from a new
// discovery.
type MovementKind string

const (
	MovementKnown MovementKind = "known"
	MovementNew   MovementKind = "new"
)

// MovementEntry is one row of an album's per-user stage history.
type MovementEntry struct {
	ID        int64
	AlbumID   string
	UserID    string
	StageID   string
	Category  string
	Kind      MovementKind
	Priority  int
	AddedAt   time.Time
	RemovedAt *time.Time // nil while the entry is open
}

// Open reports whether the entry is the album's current stage occupancy.
func (e MovementEntry) Open() bool {
	return e.RemovedAt == nil
}

// AlbumUserRecord ties an album to a user with its full movement history.
type AlbumUserRecord struct {
	AlbumID   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Entries   []MovementEntry
}

// AlbumUserExists reports whether an album-user record exists.
func (m *Manager) AlbumUserExists(albumID, userID string) (bool, error) {
	var one int
	err := m.db.QueryRow(`
		SELECT 1 FROM album_user_records WHERE album_id = ? AND user_id = ?
	`, albumID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateAlbumUser creates the album-user record if it does not exist yet.
func (m *Manager) CreateAlbumUser(albumID, userID string, at time.Time) error {
	_, err := m.db.Exec(`
		INSERT INTO album_user_records (album_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(album_id, user_id) DO NOTHING
	`, albumID, userID, at.Unix(), at.Unix())
	return err
}

// ListMovements returns an album's full movement history for a user,
// ordered by addition time.
func (m *Manager) ListMovements(albumID, userID string) ([]MovementEntry, error) {
	rows, err := m.db.Query(`
		SELECT id, album_id, user_id, stage_id, category, kind, priority, added_at, removed_at
		FROM movement_entries
		WHERE album_id = ? AND user_id = ?
		ORDER BY added_at ASC, id ASC
	`, albumID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MovementEntry
	for rows.Next() {
		var e MovementEntry
		var kind string
		var addedAt int64
		var removedAt sql.NullInt64

		err := rows.Scan(&e.ID, &e.AlbumID, &e.UserID, &e.StageID,
			&e.Category, &kind, &e.Priority, &addedAt, &removedAt)
		if err != nil {
			return nil, err
		}
		e.Kind = MovementKind(kind)
		e.AddedAt = time.Unix(addedAt, 0).UTC()
		if ts := nullTimePtr(removedAt); ts != nil {
			t := time.Unix(*ts, 0).UTC()
			e.RemovedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OpenMovements returns only the entries with no removal timestamp. The
// movement log uses this to check the single-open-entry invariant.
func (m *Manager) OpenMovements(albumID, userID string) ([]MovementEntry, error) {
	entries, err := m.ListMovements(albumID, userID)
	if err != nil {
		return nil, err
	}
	open := entries[:0]
	for _, e := range entries {
		if e.Open() {
			open = append(open, e)
		}
	}
	return open, nil
}

// AdvanceMovement closes the open entry (if any) and appends a new one,
// atomically. closeID is zero on first insertion.
func (m *Manager) AdvanceMovement(closeID int64, next MovementEntry) error {
	return m.withTx(func(tx *sql.Tx) error {
		if closeID != 0 {
			_, err := tx.Exec(`
				UPDATE movement_entries SET removed_at = ? WHERE id = ?
			`, next.AddedAt.Unix(), closeID)
			if err != nil {
				return err
			}
		}
		_, err := tx.Exec(`
			INSERT INTO movement_entries
			(album_id, user_id, stage_id, category, kind, priority, added_at, removed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
		`, next.AlbumID, next.UserID, next.StageID, next.Category,
			string(next.Kind), next.Priority, next.AddedAt.Unix())
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			UPDATE album_user_records SET updated_at = ?
			WHERE album_id = ? AND user_id = ?
		`, next.AddedAt.Unix(), next.AlbumID, next.UserID)
		return err
	})
}
