package store

import (
	"database/sql"
)

const currentSchemaVersion = 3

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS stages (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			next_stage_id TEXT,
			termination_id TEXT,
			group_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			deleted_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_stages_group ON stages(group_id);

		CREATE TABLE IF NOT EXISTS album_user_records (
			album_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (album_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS movement_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			stage_id TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT 'known',
			priority INTEGER NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL,
			removed_at INTEGER,
			FOREIGN KEY (album_id, user_id)
				REFERENCES album_user_records(album_id, user_id)
				ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_movements_album_user
			ON movement_entries(album_id, user_id, added_at);
		CREATE INDEX IF NOT EXISTS idx_movements_open
			ON movement_entries(album_id, user_id)
			WHERE removed_at IS NULL;

		CREATE TABLE IF NOT EXISTS track_entries (
			track_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			loved INTEGER NOT NULL DEFAULT 0,
			playcount INTEGER NOT NULL DEFAULT 0,
			sync_state TEXT NOT NULL DEFAULT 'clean',
			last_synced_at INTEGER,
			last_played_from_stage_id TEXT,
			PRIMARY KEY (track_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_track_entries_user ON track_entries(user_id);
		CREATE INDEX IF NOT EXISTS idx_track_entries_name_artist
			ON track_entries(user_id, name, artist);

		CREATE TABLE IF NOT EXISTS sync_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			idempotency_key TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			enqueued_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sync_queue_user ON sync_queue(user_id, enqueued_at);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add name/artist columns if missing (pre-v2 databases)
	_, _ = db.Exec(`ALTER TABLE track_entries ADD COLUMN name TEXT NOT NULL DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE track_entries ADD COLUMN artist TEXT NOT NULL DEFAULT ''`)

	// Migration: add last_played_from_stage_id column if missing
	_, _ = db.Exec(`ALTER TABLE track_entries ADD COLUMN last_played_from_stage_id TEXT`)

	return nil
}
