package store

import (
	"database/sql"
	"time"
)

// SyncState is the reconciliation state of a track entry.
type SyncState string

const (
	// SyncClean means the local value matches the last confirmed remote write.
	SyncClean SyncState = "clean"
	// SyncDirty means a local optimistic write has not round-tripped yet.
	SyncDirty SyncState = "dirty"
	// SyncSyncing means a remote write for the entry is in flight.
	SyncSyncing SyncState = "syncing"
)

// TrackEntry is the locally cached set of facts about one track for one user.
type TrackEntry struct {
	TrackID               string
	UserID                string
	Name                  string
	Artist                string
	Loved                 bool
	Playcount             int
	State                 SyncState
	LastSyncedAt          *time.Time
	LastPlayedFromStageID string
}

// GetTrackEntry returns one track entry, or nil if it was never observed.
func (m *Manager) GetTrackEntry(trackID, userID string) (*TrackEntry, error) {
	row := m.db.QueryRow(`
		SELECT track_id, user_id, name, artist, loved, playcount, sync_state,
		       last_synced_at, last_played_from_stage_id
		FROM track_entries WHERE track_id = ? AND user_id = ?
	`, trackID, userID)
	e, err := scanTrackEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // nil entry means never observed, not an error
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListTrackEntries returns every cached entry for a user.
func (m *Manager) ListTrackEntries(userID string) ([]TrackEntry, error) {
	rows, err := m.db.Query(`
		SELECT track_id, user_id, name, artist, loved, playcount, sync_state,
		       last_synced_at, last_played_from_stage_id
		FROM track_entries WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TrackEntry
	for rows.Next() {
		e, err := scanTrackEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// FindTrackByNameArtist resolves a track by its name and artist. Used when
// the playback source reports an id the cache has never seen.
func (m *Manager) FindTrackByNameArtist(userID, name, artist string) (*TrackEntry, error) {
	row := m.db.QueryRow(`
		SELECT track_id, user_id, name, artist, loved, playcount, sync_state,
		       last_synced_at, last_played_from_stage_id
		FROM track_entries
		WHERE user_id = ? AND name = ? AND artist = ?
		LIMIT 1
	`, userID, name, artist)
	e, err := scanTrackEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // no match is a valid outcome
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertTrackEntry writes a track entry in full.
func (m *Manager) UpsertTrackEntry(e TrackEntry) error {
	var syncedAt any
	if e.LastSyncedAt != nil {
		syncedAt = e.LastSyncedAt.Unix()
	}
	_, err := m.db.Exec(`
		INSERT INTO track_entries
		(track_id, user_id, name, artist, loved, playcount, sync_state,
		 last_synced_at, last_played_from_stage_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id, user_id) DO UPDATE SET
			name = excluded.name,
			artist = excluded.artist,
			loved = excluded.loved,
			playcount = excluded.playcount,
			sync_state = excluded.sync_state,
			last_synced_at = excluded.last_synced_at,
			last_played_from_stage_id = excluded.last_played_from_stage_id
	`, e.TrackID, e.UserID, e.Name, e.Artist, e.Loved, e.Playcount,
		string(e.State), syncedAt, emptyToNull(e.LastPlayedFromStageID))
	return err
}

// ClearTrackEntries drops every cached entry for a user. Called on identity
// switch; the cache is rebuildable from the remote source of truth.
func (m *Manager) ClearTrackEntries(userID string) error {
	_, err := m.db.Exec(`DELETE FROM track_entries WHERE user_id = ?`, userID)
	return err
}

func scanTrackEntry(row rowScanner) (*TrackEntry, error) {
	var e TrackEntry
	var state string
	var syncedAt sql.NullInt64
	var lastStage sql.NullString

	err := row.Scan(&e.TrackID, &e.UserID, &e.Name, &e.Artist, &e.Loved,
		&e.Playcount, &state, &syncedAt, &lastStage)
	if err != nil {
		return nil, err
	}

	e.State = SyncState(state)
	if ts := nullTimePtr(syncedAt); ts != nil {
		t := time.Unix(*ts, 0).UTC()
		e.LastSyncedAt = &t
	}
	e.LastPlayedFromStageID = nullString(lastStage)
	return &e, nil
}
