package trackcache

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tmarcou/curator/internal/store"
)

var errRemoteDown = errors.New("remote down")

// fakeSyncer records replayed writes and fails on demand.
type fakeSyncer struct {
	failLoved     bool
	failPlaycount bool
	lovedCalls    int
	playCalls     int
}

func (f *fakeSyncer) SyncLoved(_ context.Context, _, _ string, _ bool) error {
	f.lovedCalls++
	if f.failLoved {
		return errRemoteDown
	}
	return nil
}

func (f *fakeSyncer) SyncPlaycount(_ context.Context, _, _ string, _ int) error {
	f.playCalls++
	if f.failPlaycount {
		return errRemoteDown
	}
	return nil
}

func setupCache(t *testing.T) (*Cache, *store.Manager, *fakeSyncer) {
	t.Helper()

	m, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { m.Close() })

	syncer := &fakeSyncer{}
	c, err := New(m, syncer, "usr", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build cache: %v", err)
	}
	return c, m, syncer
}

func remoteOK(context.Context) error      { return nil }
func remoteFailing(context.Context) error { return errRemoteDown }

func TestRead_UnknownTrack(t *testing.T) {
	c, _, _ := setupCache(t)

	if got := c.Read("nope"); got != nil {
		t.Errorf("Read = %+v, want nil", got)
	}
}

func TestObserve_CreatesCleanEntry(t *testing.T) {
	c, _, _ := setupCache(t)

	if err := c.Observe("t1", "Pyramid Song", "Radiohead"); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	e := c.Read("t1")
	if e == nil {
		t.Fatal("entry not created")
	}
	if e.State != store.SyncClean || e.Loved || e.Playcount != 0 {
		t.Errorf("entry = %+v", e)
	}
}

func TestObserve_DoesNotClobberFacts(t *testing.T) {
	c, _, _ := setupCache(t)

	if err := c.SetLoved(context.Background(), "t1", true, remoteOK); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}
	if err := c.Observe("t1", "Name", "Artist"); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	e := c.Read("t1")
	if !e.Loved {
		t.Error("Observe clobbered the loved flag")
	}
	if e.Name != "Name" || e.Artist != "Artist" {
		t.Errorf("metadata not filled in: %+v", e)
	}
}

func TestSetLoved_Success(t *testing.T) {
	c, _, _ := setupCache(t)

	if err := c.SetLoved(context.Background(), "t1", true, remoteOK); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	e := c.Read("t1")
	if !e.Loved {
		t.Error("loved flag not set")
	}
	if e.State != store.SyncClean {
		t.Errorf("state = %s, want clean", e.State)
	}
	if e.LastSyncedAt == nil {
		t.Error("LastSyncedAt not set")
	}
}

// TestSetLoved_RemoteFailureKeepsOptimisticValue tests the consistency
// rule: the user's intent survives a failed remote write, and exactly one
// queue item is created.
func TestSetLoved_RemoteFailureKeepsOptimisticValue(t *testing.T) {
	c, m, _ := setupCache(t)

	if err := c.SetLoved(context.Background(), "t1", true, remoteFailing); err != nil {
		t.Fatalf("SetLoved returned error: %v", err)
	}

	e := c.Read("t1")
	if !e.Loved {
		t.Error("optimistic loved value lost")
	}
	if e.State != store.SyncDirty {
		t.Errorf("state = %s, want dirty", e.State)
	}

	items, err := m.ListSyncQueue("usr")
	if err != nil {
		t.Fatalf("ListSyncQueue failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue len = %d, want 1", len(items))
	}
	if items[0].Operation != store.OpSetLoved || items[0].Payload != "true" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestRetryFailedSyncs_ClearsQueueOnSuccess(t *testing.T) {
	c, m, syncer := setupCache(t)

	if err := c.SetLoved(context.Background(), "t1", true, remoteFailing); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	result, err := c.RetryFailedSyncs(context.Background())
	if err != nil {
		t.Fatalf("RetryFailedSyncs failed: %v", err)
	}
	if result.Retried != 1 || result.Succeeded != 1 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
	if syncer.lovedCalls != 1 {
		t.Errorf("syncer called %d times, want 1", syncer.lovedCalls)
	}

	items, _ := m.ListSyncQueue("usr")
	if len(items) != 0 {
		t.Errorf("queue not cleared: %+v", items)
	}
	if e := c.Read("t1"); e.State != store.SyncClean {
		t.Errorf("state = %s, want clean after replay", e.State)
	}
}

func TestRetryFailedSyncs_FailureBumpsAttempts(t *testing.T) {
	c, m, syncer := setupCache(t)
	syncer.failLoved = true

	if err := c.SetLoved(context.Background(), "t1", true, remoteFailing); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	result, err := c.RetryFailedSyncs(context.Background())
	if err != nil {
		t.Fatalf("RetryFailedSyncs failed: %v", err)
	}
	if result.Failed != 1 || result.Succeeded != 0 {
		t.Errorf("result = %+v", result)
	}

	items, _ := m.ListSyncQueue("usr")
	if len(items) != 1 || items[0].Attempts != 1 {
		t.Fatalf("items = %+v", items)
	}
	if e := c.Read("t1"); e.State != store.SyncDirty {
		t.Errorf("state = %s, want still dirty", e.State)
	}
}

func TestRetryFailedSyncs_AttemptCeiling(t *testing.T) {
	c, m, syncer := setupCache(t)
	syncer.failLoved = true

	if err := c.SetLoved(context.Background(), "t1", true, remoteFailing); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	for range c.maxAttempts {
		if _, err := c.RetryFailedSyncs(context.Background()); err != nil {
			t.Fatalf("RetryFailedSyncs failed: %v", err)
		}
	}

	// Ceiling reached: the item is skipped, not retried and not deleted.
	callsBefore := syncer.lovedCalls
	result, err := c.RetryFailedSyncs(context.Background())
	if err != nil {
		t.Fatalf("RetryFailedSyncs failed: %v", err)
	}
	if result.Skipped != 1 || result.Retried != 0 {
		t.Errorf("result = %+v", result)
	}
	if syncer.lovedCalls != callsBefore {
		t.Error("syncer called past the attempt ceiling")
	}
	items, _ := m.ListSyncQueue("usr")
	if len(items) != 1 {
		t.Errorf("item past ceiling must stay queued, got %+v", items)
	}
}

func TestUpdatePlaycount_KnownTrack(t *testing.T) {
	c, _, _ := setupCache(t)

	if err := c.Observe("t1", "Nude", "Radiohead"); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	id, err := c.UpdatePlaycount(context.Background(), "t1", "Nude", "Radiohead", 7, remoteOK)
	if err != nil {
		t.Fatalf("UpdatePlaycount failed: %v", err)
	}
	if id != "t1" {
		t.Errorf("resolved id = %q, want t1", id)
	}
	e := c.Read("t1")
	if e.Playcount != 7 || e.State != store.SyncClean {
		t.Errorf("entry = %+v", e)
	}
}

// TestUpdatePlaycount_ResolvesByNameArtist tests id-drift tolerance: the
// playback source reports an unknown id for a track the cache already
// knows under another id.
func TestUpdatePlaycount_ResolvesByNameArtist(t *testing.T) {
	c, _, _ := setupCache(t)

	if err := c.Observe("cache-id", "Reckoner", "Radiohead"); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	id, err := c.UpdatePlaycount(context.Background(), "player-id", "Reckoner", "Radiohead", 3, remoteOK)
	if err != nil {
		t.Fatalf("UpdatePlaycount failed: %v", err)
	}
	if id != "cache-id" {
		t.Errorf("resolved id = %q, want cache-id", id)
	}
	if c.Read("player-id") != nil {
		t.Error("no entry should exist under the drifted id")
	}
	if e := c.Read("cache-id"); e.Playcount != 3 {
		t.Errorf("playcount = %d, want 3", e.Playcount)
	}
}

// TestUpdatePlaycount_UnknownTrackCreatesEntry tests the ambiguity rule: a
// track observed only from playback is still worth remembering.
func TestUpdatePlaycount_UnknownTrackCreatesEntry(t *testing.T) {
	c, _, _ := setupCache(t)

	id, err := c.UpdatePlaycount(context.Background(), "new-id", "Videotape", "Radiohead", 1, nil)
	if err != nil {
		t.Fatalf("UpdatePlaycount failed: %v", err)
	}
	if id != "new-id" {
		t.Errorf("resolved id = %q, want new-id", id)
	}
	e := c.Read("new-id")
	if e == nil || e.Playcount != 1 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestReconcileLoved_SkipsDirtyEntries(t *testing.T) {
	c, _, _ := setupCache(t)

	// Dirty local love for t1, clean love for t2.
	if err := c.SetLoved(context.Background(), "t1", true, remoteFailing); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}
	if err := c.SetLoved(context.Background(), "t2", true, remoteOK); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	// Authoritative listing says neither is loved.
	if err := c.ReconcileLoved(nil); err != nil {
		t.Fatalf("ReconcileLoved failed: %v", err)
	}

	if e := c.Read("t1"); !e.Loved {
		t.Error("resync clobbered a dirty entry")
	}
	if e := c.Read("t2"); e.Loved {
		t.Error("clean entry should follow the authoritative listing")
	}
}

func TestReconcileLoved_AddsRemoteOnlyTracks(t *testing.T) {
	c, _, _ := setupCache(t)

	remote := []RemoteTrack{{TrackID: "r1", Name: "Daydreaming", Artist: "Radiohead"}}
	if err := c.ReconcileLoved(remote); err != nil {
		t.Fatalf("ReconcileLoved failed: %v", err)
	}

	e := c.Read("r1")
	if e == nil || !e.Loved || e.State != store.SyncClean {
		t.Fatalf("entry = %+v", e)
	}
}

func TestReconcilePlaycount_SkipsPendingEntry(t *testing.T) {
	c, _, _ := setupCache(t)

	if _, err := c.UpdatePlaycount(context.Background(), "t1", "Ful Stop", "Radiohead", 9, remoteFailing); err != nil {
		t.Fatalf("UpdatePlaycount failed: %v", err)
	}

	if err := c.ReconcilePlaycount("t1", 2); err != nil {
		t.Fatalf("ReconcilePlaycount failed: %v", err)
	}
	if e := c.Read("t1"); e.Playcount != 9 {
		t.Errorf("playcount = %d, want dirty local 9", e.Playcount)
	}
}

func TestInvalidate_ClearsEverything(t *testing.T) {
	c, m, _ := setupCache(t)

	if err := c.Observe("t1", "a", "b"); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := c.Invalidate(); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if c.Len() != 0 {
		t.Error("memory mirror not cleared")
	}
	rows, err := m.ListTrackEntries("usr")
	if err != nil {
		t.Fatalf("ListTrackEntries failed: %v", err)
	}
	if len(rows) != 0 {
		t.Error("store rows not cleared")
	}
}

// TestNew_HydratesFromStore tests that a new cache instance serves entries
// persisted by a previous one.
func TestNew_HydratesFromStore(t *testing.T) {
	c, m, syncer := setupCache(t)

	if err := c.SetLoved(context.Background(), "t1", true, remoteOK); err != nil {
		t.Fatalf("SetLoved failed: %v", err)
	}

	fresh, err := New(m, syncer, "usr", zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e := fresh.Read("t1"); e == nil || !e.Loved {
		t.Errorf("hydrated entry = %+v", e)
	}
}
