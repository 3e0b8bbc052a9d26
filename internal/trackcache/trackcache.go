// Package trackcache is the per-user local cache of track facts: loved
// flag, play count, last-played-from context. Reads are synchronous and
// never block; writes are optimistic and reconcile with the remote
// scrobble service asynchronously. A failed remote write lands in a
// durable queue and is retried by a sweep.
package trackcache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarcou/curator/internal/store"
)

// defaultMaxAttempts caps how often the sweep retries one queue item
// before skipping it.
const defaultMaxAttempts = 10

// Store is the slice of the store the cache needs.
type Store interface {
	GetTrackEntry(trackID, userID string) (*store.TrackEntry, error)
	ListTrackEntries(userID string) ([]store.TrackEntry, error)
	FindTrackByNameArtist(userID, name, artist string) (*store.TrackEntry, error)
	UpsertTrackEntry(e store.TrackEntry) error
	ClearTrackEntries(userID string) error

	EnqueueSync(item store.SyncItem) error
	ListSyncQueue(userID string) ([]store.SyncItem, error)
	DeleteSyncItem(id int64) error
	BumpSyncAttempt(id int64, errMsg string) error
	PurgeSyncOlderThan(maxAge time.Duration) error
}

// RemoteCall performs one remote write for the current operation.
type RemoteCall func(ctx context.Context) error

// Syncer replays queued writes against the remote scrobble service.
type Syncer interface {
	SyncLoved(ctx context.Context, name, artist string, loved bool) error
	SyncPlaycount(ctx context.Context, name, artist string, playcount int) error
}

// SweepResult summarizes one retry sweep over the sync queue.
type SweepResult struct {
	Retried   int
	Succeeded int
	Failed    int
	Skipped   int // attempt ceiling reached
}

// Cache is the unified track cache for a single authenticated identity.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]store.TrackEntry

	store       Store
	syncer      Syncer
	userID      string
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// New builds a cache for userID, hydrating the memory mirror from the
// store so reads are instant from the start.
func New(s Store, syncer Syncer, userID string, log zerolog.Logger) (*Cache, error) {
	rows, err := s.ListTrackEntries(userID)
	if err != nil {
		return nil, fmt.Errorf("hydrate track cache: %w", err)
	}
	entries := make(map[string]store.TrackEntry, len(rows))
	for _, e := range rows {
		entries[e.TrackID] = e
	}
	return &Cache{
		entries:     entries,
		store:       s,
		syncer:      syncer,
		userID:      userID,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		log:         log.With().Str("component", "trackcache").Str("user", userID).Logger(),
	}, nil
}

// SetMaxAttempts overrides the retry ceiling the sweep applies to queued
// items. Values below 1 keep the current ceiling.
func (c *Cache) SetMaxAttempts(n int) {
	if n < 1 {
		return
	}
	c.mu.Lock()
	c.maxAttempts = n
	c.mu.Unlock()
}

// UserID returns the identity this cache is scoped to.
func (c *Cache) UserID() string {
	return c.userID
}

// Read returns the cached entry for a track, or nil when the track was
// never observed. Synchronous; never touches the network.
func (c *Cache) Read(trackID string) *store.TrackEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[trackID]; ok {
		return &e
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Observe creates a clean entry on first observation of a track (scanning
// stage or album contents). Existing entries only gain missing name and
// artist metadata; their facts are left alone.
func (c *Cache) Observe(trackID, name, artist string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[trackID]
	if !ok {
		e = store.TrackEntry{
			TrackID: trackID,
			UserID:  c.userID,
			Name:    name,
			Artist:  artist,
			State:   store.SyncClean,
		}
	} else {
		if e.Name == "" {
			e.Name = name
		}
		if e.Artist == "" {
			e.Artist = artist
		}
	}
	return c.put(e)
}

// SetLoved optimistically sets the loved flag and pushes it to the remote
// service. The local value is written first and survives a remote failure:
// the user's intent wins over the last-known-remote value, and the failed
// write is queued for retry.
func (c *Cache) SetLoved(ctx context.Context, trackID string, loved bool, remote RemoteCall) error {
	c.mu.Lock()
	e, ok := c.entries[trackID]
	if !ok {
		e = store.TrackEntry{TrackID: trackID, UserID: c.userID}
	}
	e.Loved = loved
	e.State = store.SyncSyncing
	if err := c.put(e); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("write local entry: %w", err)
	}
	c.mu.Unlock()

	remoteErr := remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries[trackID]
	if !ok {
		// Identity switched mid-write; nothing left to settle.
		return remoteErr
	}

	if remoteErr == nil {
		// A newer local write may have superseded this one while the
		// remote call was in flight; the newer write settles itself.
		if cur.State == store.SyncSyncing && cur.Loved == loved {
			now := c.now().UTC()
			cur.State = store.SyncClean
			cur.LastSyncedAt = &now
			if err := c.put(cur); err != nil {
				return fmt.Errorf("settle local entry: %w", err)
			}
		}
		return nil
	}

	cur.State = store.SyncDirty
	if err := c.put(cur); err != nil {
		return fmt.Errorf("mark entry dirty: %w", err)
	}
	item := store.SyncItem{
		UserID:     c.userID,
		TrackID:    trackID,
		Operation:  store.OpSetLoved,
		Payload:    strconv.FormatBool(loved),
		LastError:  remoteErr.Error(),
		EnqueuedAt: c.now().UTC(),
	}
	if err := c.store.EnqueueSync(item); err != nil {
		return fmt.Errorf("enqueue failed write: %w", err)
	}
	c.log.Warn().Str("track", trackID).Err(remoteErr).Msg("loved write failed, queued for retry")
	return nil
}

// UpdatePlaycount records a new play count for a track and pushes it to
// the remote service through remote (which may be nil for local-only
// updates). When trackID is unknown the entry is resolved by name and
// artist, tolerating catalog-id drift between the playback source and the
// cache; with no match either, a fresh entry is created — a track observed
// only from playback is still worth remembering. Returns the resolved id.
func (c *Cache) UpdatePlaycount(ctx context.Context, trackID, name, artist string, newCount int, remote RemoteCall) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[trackID]
	if !ok {
		if match := c.findByNameArtistLocked(name, artist); match != nil {
			e = *match
		} else {
			e = store.TrackEntry{
				TrackID: trackID,
				UserID:  c.userID,
				Name:    name,
				Artist:  artist,
			}
		}
	}
	resolved := e.TrackID
	e.Playcount = newCount
	e.State = store.SyncSyncing
	if remote == nil {
		e.State = store.SyncDirty
	}
	if err := c.put(e); err != nil {
		c.mu.Unlock()
		return resolved, fmt.Errorf("write local entry: %w", err)
	}
	c.mu.Unlock()

	if remote == nil {
		return resolved, nil
	}

	remoteErr := remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries[resolved]
	if !ok {
		return resolved, remoteErr
	}

	if remoteErr == nil {
		if cur.State == store.SyncSyncing && cur.Playcount == newCount {
			now := c.now().UTC()
			cur.State = store.SyncClean
			cur.LastSyncedAt = &now
			if err := c.put(cur); err != nil {
				return resolved, fmt.Errorf("settle local entry: %w", err)
			}
		}
		return resolved, nil
	}

	cur.State = store.SyncDirty
	if err := c.put(cur); err != nil {
		return resolved, fmt.Errorf("mark entry dirty: %w", err)
	}
	item := store.SyncItem{
		UserID:     c.userID,
		TrackID:    resolved,
		Operation:  store.OpSetPlaycount,
		Payload:    strconv.Itoa(newCount),
		LastError:  remoteErr.Error(),
		EnqueuedAt: c.now().UTC(),
	}
	if err := c.store.EnqueueSync(item); err != nil {
		return resolved, fmt.Errorf("enqueue failed write: %w", err)
	}
	c.log.Warn().Str("track", resolved).Err(remoteErr).Msg("playcount write failed, queued for retry")
	return resolved, nil
}

// SetLastPlayedFrom records the stage a track was last played from.
func (c *Cache) SetLastPlayedFrom(trackID, stageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[trackID]
	if !ok {
		e = store.TrackEntry{TrackID: trackID, UserID: c.userID, State: store.SyncClean}
	}
	e.LastPlayedFromStageID = stageID
	return c.put(e)
}

// Invalidate drops every entry for this identity, memory and store both.
// Called on identity switch to prevent cross-account leakage.
func (c *Cache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]store.TrackEntry)
	return c.store.ClearTrackEntries(c.userID)
}

// put writes an entry to the memory mirror and the store. Callers hold the
// write lock.
func (c *Cache) put(e store.TrackEntry) error {
	if err := c.store.UpsertTrackEntry(e); err != nil {
		return err
	}
	c.entries[e.TrackID] = e
	return nil
}

func (c *Cache) findByNameArtistLocked(name, artist string) *store.TrackEntry {
	if name == "" || artist == "" {
		return nil
	}
	for _, e := range c.entries {
		if e.Name == name && e.Artist == artist {
			found := e
			return &found
		}
	}
	return nil
}
