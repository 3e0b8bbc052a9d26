package trackcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tmarcou/curator/internal/store"
)

// RetryFailedSyncs sweeps the durable queue and replays each pending write
// against the remote service. Succeeded items are removed; failures bump
// the attempt counter. Items past the attempt ceiling are skipped, never
// deleted — PurgeStale disposes of them eventually. Safe to call
// repeatedly; delivery downstream is at-least-once.
func (c *Cache) RetryFailedSyncs(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	c.mu.RLock()
	maxAttempts := c.maxAttempts
	c.mu.RUnlock()

	items, err := c.store.ListSyncQueue(c.userID)
	if err != nil {
		return result, fmt.Errorf("list sync queue: %w", err)
	}
	if len(items) == 0 {
		return result, nil
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if item.Attempts >= maxAttempts {
			result.Skipped++
			continue
		}
		result.Retried++

		if err := c.replay(ctx, item); err != nil {
			result.Failed++
			if berr := c.store.BumpSyncAttempt(item.ID, err.Error()); berr != nil {
				return result, fmt.Errorf("bump attempt: %w", berr)
			}
			continue
		}

		result.Succeeded++
		if err := c.store.DeleteSyncItem(item.ID); err != nil {
			return result, fmt.Errorf("delete acknowledged item: %w", err)
		}
		c.settleAfterReplay(item)
	}

	c.log.Info().
		Int("retried", result.Retried).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("sync queue sweep")
	return result, nil
}

// PurgeStale drops queue items older than maxAge.
func (c *Cache) PurgeStale(maxAge time.Duration) error {
	return c.store.PurgeSyncOlderThan(maxAge)
}

// replay performs the remote write a queue item describes.
func (c *Cache) replay(ctx context.Context, item store.SyncItem) error {
	name, artist := c.trackNameArtist(item.TrackID)

	switch item.Operation {
	case store.OpSetLoved:
		loved, err := strconv.ParseBool(item.Payload)
		if err != nil {
			return fmt.Errorf("bad payload %q: %w", item.Payload, err)
		}
		return c.syncer.SyncLoved(ctx, name, artist, loved)
	case store.OpSetPlaycount:
		count, err := strconv.Atoi(item.Payload)
		if err != nil {
			return fmt.Errorf("bad payload %q: %w", item.Payload, err)
		}
		return c.syncer.SyncPlaycount(ctx, name, artist, count)
	default:
		return fmt.Errorf("unknown sync operation %q", item.Operation)
	}
}

// settleAfterReplay marks the entry clean when the replayed write still
// matches the current local value. A newer local write stays dirty until
// its own round-trip completes.
func (c *Cache) settleAfterReplay(item store.SyncItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[item.TrackID]
	if !ok || e.State == store.SyncClean {
		return
	}

	matches := false
	switch item.Operation {
	case store.OpSetLoved:
		loved, err := strconv.ParseBool(item.Payload)
		matches = err == nil && e.Loved == loved
	case store.OpSetPlaycount:
		count, err := strconv.Atoi(item.Payload)
		matches = err == nil && e.Playcount == count
	}
	if !matches {
		return
	}

	now := c.now().UTC()
	e.State = store.SyncClean
	e.LastSyncedAt = &now
	if err := c.put(e); err != nil {
		c.log.Error().Err(err).Str("track", item.TrackID).Msg("settle after replay")
	}
}

func (c *Cache) trackNameArtist(trackID string) (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[trackID]; ok {
		return e.Name, e.Artist
	}
	return "", ""
}
