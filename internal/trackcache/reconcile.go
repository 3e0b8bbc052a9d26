package trackcache

import (
	"fmt"

	"github.com/tmarcou/curator/internal/store"
)

// RemoteTrack is a track fact as reported by the scrobble service.
type RemoteTrack struct {
	TrackID string
	Name    string
	Artist  string
}

// ReconcileLoved merges a full authoritative loved-tracks listing into the
// cache. The listing is complete: a clean entry loved locally but absent
// remotely is un-loved. Entries with a pending local write (dirty or
// syncing) are skipped entirely — the optimistic local value wins until
// its write round-trips.
func (c *Cache) ReconcileLoved(remote []RemoteTrack) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lovedIDs := make(map[string]RemoteTrack, len(remote))
	for _, r := range remote {
		lovedIDs[r.TrackID] = r
	}

	// Remote tracks never observed locally become fresh clean entries.
	for id, r := range lovedIDs {
		if _, ok := c.entries[id]; ok {
			continue
		}
		e := store.TrackEntry{
			TrackID: id,
			UserID:  c.userID,
			Name:    r.Name,
			Artist:  r.Artist,
			Loved:   true,
			State:   store.SyncClean,
		}
		if err := c.put(e); err != nil {
			return fmt.Errorf("create entry from remote: %w", err)
		}
	}

	for id, e := range c.entries {
		if e.State != store.SyncClean {
			continue
		}
		_, remoteLoved := lovedIDs[id]
		if e.Loved == remoteLoved {
			continue
		}
		e.Loved = remoteLoved
		if err := c.put(e); err != nil {
			return fmt.Errorf("apply remote loved: %w", err)
		}
	}
	return nil
}

// ReconcilePlaycount applies an authoritative play count for one track,
// unless a local write is pending for it.
func (c *Cache) ReconcilePlaycount(trackID string, playcount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[trackID]
	if !ok || e.State != store.SyncClean {
		return nil
	}
	if e.Playcount == playcount {
		return nil
	}
	e.Playcount = playcount
	return c.put(e)
}
