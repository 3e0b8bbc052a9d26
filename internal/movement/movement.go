// Package movement maintains the per-album, per-user stage occupancy
// history. The log is append-only: advancing an album closes the open
// entry and appends a new one, so "where is this album now" is always the
// single entry without a removal timestamp.
package movement

import (
	"errors"
	"fmt"
	"time"

	"github.com/tmarcou/curator/internal/store"
)

var (
	// ErrNotFound is returned when no album-user record exists.
	ErrNotFound = errors.New("album-user record not found")
	// ErrInvalidState is returned when more than one open entry exists.
	// This must never occur; it is detected, reported and never repaired
	// silently so the caller can decide whether to run a repair pass.
	ErrInvalidState = errors.New("movement log has multiple open entries")
)

// Store is the slice of the store the movement log needs.
type Store interface {
	AlbumUserExists(albumID, userID string) (bool, error)
	CreateAlbumUser(albumID, userID string, at time.Time) error
	ListMovements(albumID, userID string) ([]store.MovementEntry, error)
	OpenMovements(albumID, userID string) ([]store.MovementEntry, error)
	AdvanceMovement(closeID int64, next store.MovementEntry) error
}

// Log provides movement operations over a store.
type Log struct {
	store Store
}

// NewLog creates a movement log backed by the given store.
func NewLog(s Store) *Log {
	return &Log{store: s}
}

// Target describes where and how an album enters a stage.
type Target struct {
	StageID  string
	Category string
	Kind     store.MovementKind
	Priority int
}

// Open creates the album-user record (if needed) and inserts the first
// movement entry. occurredAt may predate the local write when the caller
// preserves an externally recorded timestamp.
func (l *Log) Open(albumID, userID string, target Target, occurredAt time.Time) error {
	if err := l.store.CreateAlbumUser(albumID, userID, occurredAt); err != nil {
		return fmt.Errorf("create album-user record: %w", err)
	}
	return l.Advance(albumID, userID, target, occurredAt)
}

// Advance closes the current open entry (if any) and appends a new one at
// the target stage. The album-user record must already exist.
//
// occurredAt is caller-supplied and written verbatim: the addition
// timestamp reflects when the movement happened, not when it was persisted.
func (l *Log) Advance(albumID, userID string, target Target, occurredAt time.Time) error {
	exists, err := l.store.AlbumUserExists(albumID, userID)
	if err != nil {
		return fmt.Errorf("check album-user record: %w", err)
	}
	if !exists {
		return fmt.Errorf("album %s user %s: %w", albumID, userID, ErrNotFound)
	}

	open, err := l.store.OpenMovements(albumID, userID)
	if err != nil {
		return fmt.Errorf("read open entries: %w", err)
	}
	if len(open) > 1 {
		return fmt.Errorf("album %s user %s has %d open entries: %w",
			albumID, userID, len(open), ErrInvalidState)
	}

	var closeID int64
	if len(open) == 1 {
		closeID = open[0].ID
	}

	kind := target.Kind
	if kind == "" {
		kind = store.MovementKnown
	}

	next := store.MovementEntry{
		AlbumID:  albumID,
		UserID:   userID,
		StageID:  target.StageID,
		Category: target.Category,
		Kind:     kind,
		Priority: target.Priority,
		AddedAt:  occurredAt,
	}
	if err := l.store.AdvanceMovement(closeID, next); err != nil {
		return fmt.Errorf("advance movement: %w", err)
	}
	return nil
}

// CurrentStage returns the id of the stage the album currently occupies,
// or empty when the album is archived (no open entry).
func (l *Log) CurrentStage(albumID, userID string) (string, error) {
	exists, err := l.store.AlbumUserExists(albumID, userID)
	if err != nil {
		return "", fmt.Errorf("check album-user record: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("album %s user %s: %w", albumID, userID, ErrNotFound)
	}

	open, err := l.store.OpenMovements(albumID, userID)
	if err != nil {
		return "", fmt.Errorf("read open entries: %w", err)
	}
	switch len(open) {
	case 0:
		return "", nil
	case 1:
		return open[0].StageID, nil
	default:
		return "", fmt.Errorf("album %s user %s has %d open entries: %w",
			albumID, userID, len(open), ErrInvalidState)
	}
}

// HasMoved reports whether the album no longer occupies the supplied
// baseline stage. An archived album (no open entry) counts as moved.
func (l *Log) HasMoved(albumID, userID, baselineStageID string) (bool, error) {
	current, err := l.CurrentStage(albumID, userID)
	if err != nil {
		return false, err
	}
	return current != baselineStageID, nil
}

// History returns the album's full movement history in addition order.
func (l *Log) History(albumID, userID string) ([]store.MovementEntry, error) {
	exists, err := l.store.AlbumUserExists(albumID, userID)
	if err != nil {
		return nil, fmt.Errorf("check album-user record: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("album %s user %s: %w", albumID, userID, ErrNotFound)
	}
	return l.store.ListMovements(albumID, userID)
}
