// Package curator assembles the curation client core: the pipeline stage
// graph, the per-album movement log, the per-user track cache with its
// durable retry queue, the playback threshold evaluator, and the remote
// clients everything reconciles against.
package curator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmarcou/curator/internal/config"
	"github.com/tmarcou/curator/internal/lastfm"
	"github.com/tmarcou/curator/internal/movement"
	"github.com/tmarcou/curator/internal/pipeline"
	"github.com/tmarcou/curator/internal/provider"
	"github.com/tmarcou/curator/internal/scrobble"
	"github.com/tmarcou/curator/internal/status"
	"github.com/tmarcou/curator/internal/store"
	"github.com/tmarcou/curator/internal/trackcache"
)

var (
	// ErrNoIdentity is returned by identity-scoped operations before
	// SetIdentity has been called.
	ErrNoIdentity = errors.New("no identity set")
	// ErrScrobbleNotConfigured is returned when a scrobble-service
	// operation runs without Last.fm credentials in the config.
	ErrScrobbleNotConfigured = errors.New("scrobble service not configured")
	// ErrUnknownTrack is returned when an operation references a track the
	// cache has never observed.
	ErrUnknownTrack = errors.New("unknown track")
)

// Service owns the identity-scoped singletons. One Service per process;
// switching users goes through SetIdentity rather than rebuilding.
type Service struct {
	store     *store.Manager
	scrobbler *lastfm.Client
	streaming *provider.Client
	movements *movement.Log
	health    *status.Cache[bool]
	evaluator *scrobble.Evaluator
	syncCfg   config.SyncConfig
	log       zerolog.Logger

	mu     sync.Mutex
	userID string
	tracks *trackcache.Cache
}

// New opens the state database and builds the service. The scrobble and
// streaming clients are only constructed when their credentials are
// configured; operations needing an absent client fail with a sentinel.
func New(cfg *config.Config, log zerolog.Logger) (*Service, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return newService(st, cfg, log), nil
}

func newService(st *store.Manager, cfg *config.Config, log zerolog.Logger) *Service {
	s := &Service{
		store:     st,
		movements: movement.NewLog(st),
		health:    status.New[bool](),
		syncCfg:   cfg.GetSyncConfig(),
		log:       log,
	}
	if cfg.HasLastfmConfig() {
		s.scrobbler = lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	}
	if cfg.HasProviderConfig() {
		s.streaming = provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.ClientID, cfg.Provider.ClientSecret, log)
	}
	s.evaluator = scrobble.NewEvaluator(&playRecorder{s: s}, log)
	return s
}

// Close releases the state database.
func (s *Service) Close() error {
	return s.store.Close()
}

// Scrobbler returns the Last.fm client, nil when not configured.
func (s *Service) Scrobbler() *lastfm.Client {
	return s.scrobbler
}

// Streaming returns the provider client, nil when not configured.
func (s *Service) Streaming() *provider.Client {
	return s.streaming
}

// Evaluator returns the playback threshold evaluator. Countable plays flow
// into the current identity's track cache.
func (s *Service) Evaluator() *scrobble.Evaluator {
	return s.evaluator
}

// Movements returns the album movement log.
func (s *Service) Movements() *movement.Log {
	return s.movements
}

// Tracks returns the current identity's track cache.
func (s *Service) Tracks() (*trackcache.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks == nil {
		return nil, ErrNoIdentity
	}
	return s.tracks, nil
}

// CreateStage persists a new stage with a fresh id.
func (s *Service) CreateStage(name string, role pipeline.Role, groupID string) (pipeline.StageRecord, error) {
	rec := pipeline.StageRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveStage(rec); err != nil {
		return pipeline.StageRecord{}, fmt.Errorf("save stage: %w", err)
	}
	return rec, nil
}

// ConnectStage rewires a stage's forward and termination pointers.
func (s *Service) ConnectStage(id, nextStageID, terminationID string) error {
	return s.store.SetStagePointers(id, nextStageID, terminationID)
}

// RemoveStage soft-deletes a stage. Movement history referencing it stays
// intact.
func (s *Service) RemoveStage(id string) error {
	return s.store.SoftDeleteStage(id, time.Now().UTC())
}

// PipelineOrder loads a group's stages and resolves their display order.
func (s *Service) PipelineOrder(groupID string) ([]pipeline.OrderedStage, error) {
	stages, err := s.store.ListStages(groupID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return pipeline.Resolve(stages), nil
}

// PipelineViolations reports structural problems in a group's stage graph.
func (s *Service) PipelineViolations(groupID string) ([]pipeline.Violation, error) {
	stages, err := s.store.ListStages(groupID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return pipeline.Validate(stages), nil
}

// AddAlbum enters an album into the pipeline for the current identity.
func (s *Service) AddAlbum(albumID string, target movement.Target, at time.Time) error {
	userID, err := s.requireIdentity()
	if err != nil {
		return err
	}
	return s.movements.Open(albumID, userID, target, at)
}

// MoveAlbum advances an album to a new stage for the current identity.
func (s *Service) MoveAlbum(albumID string, target movement.Target, at time.Time) error {
	userID, err := s.requireIdentity()
	if err != nil {
		return err
	}
	return s.movements.Advance(albumID, userID, target, at)
}

// AlbumStage returns the stage an album currently occupies, empty when
// archived.
func (s *Service) AlbumStage(albumID string) (string, error) {
	userID, err := s.requireIdentity()
	if err != nil {
		return "", err
	}
	return s.movements.CurrentStage(albumID, userID)
}

// AlbumHistory returns an album's full movement history.
func (s *Service) AlbumHistory(albumID string) ([]store.MovementEntry, error) {
	userID, err := s.requireIdentity()
	if err != nil {
		return nil, err
	}
	return s.movements.History(albumID, userID)
}

// LoveTrack sets the loved flag optimistically and pushes it to the
// scrobble service, queueing a retry when the push fails.
func (s *Service) LoveTrack(ctx context.Context, trackID string, loved bool) error {
	tracks, err := s.Tracks()
	if err != nil {
		return err
	}
	entry := tracks.Read(trackID)
	if entry == nil {
		return fmt.Errorf("track %s: %w", trackID, ErrUnknownTrack)
	}

	// With no usable session the remote call fails immediately and the
	// write parks in the sync queue; the sweep replays it after reconnect.
	artist, name := entry.Artist, entry.Name
	remote := func(ctx context.Context) error {
		if s.scrobbler == nil {
			return ErrScrobbleNotConfigured
		}
		if loved {
			return s.scrobbler.Love(ctx, artist, name)
		}
		return s.scrobbler.Unlove(ctx, artist, name)
	}
	return tracks.SetLoved(ctx, trackID, loved, remote)
}

// ResyncLoved pulls the full authoritative loved listing from the scrobble
// service and merges it into the track cache. Remote tracks are matched to
// local entries by name and artist so provider track ids keep working as
// cache keys.
func (s *Service) ResyncLoved(ctx context.Context) error {
	userID, err := s.requireIdentity()
	if err != nil {
		return err
	}
	tracks, err := s.Tracks()
	if err != nil {
		return err
	}
	if s.scrobbler == nil {
		return ErrScrobbleNotConfigured
	}

	loved, err := s.scrobbler.AllLovedTracks(ctx)
	if err != nil {
		return fmt.Errorf("fetch loved tracks: %w", err)
	}

	remote := make([]trackcache.RemoteTrack, 0, len(loved))
	for _, lt := range loved {
		id := lt.MBID
		if local, err := s.store.FindTrackByNameArtist(userID, lt.Name, lt.Artist); err == nil && local != nil {
			id = local.TrackID
		}
		if id == "" {
			id = lt.Artist + "|" + lt.Name
		}
		remote = append(remote, trackcache.RemoteTrack{TrackID: id, Name: lt.Name, Artist: lt.Artist})
	}
	return tracks.ReconcileLoved(remote)
}

func (s *Service) requireIdentity() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return "", ErrNoIdentity
	}
	return s.userID, nil
}
