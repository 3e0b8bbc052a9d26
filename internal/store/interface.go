package store

import (
	"database/sql"
	"time"

	"github.com/tmarcou/curator/internal/pipeline"
)

// Interface defines the store contract for dependency injection and testing.
// In-memory databases (OpenMemory) cover tests; the interface exists so the
// composition root can swap the persistence backend.
type Interface interface {
	DB() *sql.DB
	Close() error

	// Stages
	SaveStage(s pipeline.StageRecord) error
	GetStage(id string) (*pipeline.StageRecord, error)
	ListStages(groupID string) ([]pipeline.StageRecord, error)
	SetStagePointers(id, nextStageID, terminationID string) error
	SoftDeleteStage(id string, at time.Time) error

	// Movement log
	AlbumUserExists(albumID, userID string) (bool, error)
	CreateAlbumUser(albumID, userID string, at time.Time) error
	ListMovements(albumID, userID string) ([]MovementEntry, error)
	OpenMovements(albumID, userID string) ([]MovementEntry, error)
	AdvanceMovement(closeID int64, next MovementEntry) error

	// Track cache
	GetTrackEntry(trackID, userID string) (*TrackEntry, error)
	ListTrackEntries(userID string) ([]TrackEntry, error)
	FindTrackByNameArtist(userID, name, artist string) (*TrackEntry, error)
	UpsertTrackEntry(e TrackEntry) error
	ClearTrackEntries(userID string) error

	// Sync queue
	EnqueueSync(item SyncItem) error
	ListSyncQueue(userID string) ([]SyncItem, error)
	DeleteSyncItem(id int64) error
	BumpSyncAttempt(id int64, errMsg string) error
	PurgeSyncOlderThan(maxAge time.Duration) error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
