package curator

import (
	"context"
	"time"

	"github.com/tmarcou/curator/internal/trackcache"
)

// SetIdentity switches the service to a new authenticated user. The track
// cache is rebuilt for the new user and every memoized status is dropped:
// nothing computed for the previous identity may leak into this one.
// An empty userID signs out.
func (s *Service) SetIdentity(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.InvalidateAll()

	if userID == "" {
		s.userID = ""
		s.tracks = nil
		return nil
	}

	cache, err := trackcache.New(s.store, &lastfmSyncer{client: s.scrobbler}, userID, s.log)
	if err != nil {
		return err
	}
	cache.SetMaxAttempts(s.syncCfg.MaxAttempts)
	s.userID = userID
	s.tracks = cache
	return nil
}

// Identity returns the current user id, empty when signed out.
func (s *Service) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// ConnectionHealthy reports whether the scrobble service is reachable with
// the current session. The probe result is memoized so UI polling does not
// hammer the remote; failures are never memoized and re-probe next call.
func (s *Service) ConnectionHealthy(ctx context.Context) bool {
	if s.scrobbler == nil || !s.scrobbler.IsAuthenticated() {
		return false
	}

	s.mu.Lock()
	key := "scrobbler:" + s.userID
	s.mu.Unlock()

	ttl := time.Duration(s.syncCfg.StatusTTLSeconds) * time.Second
	healthy, err := s.health.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (bool, error) {
		if err := s.scrobbler.Probe(ctx); err != nil {
			return false, err
		}
		return true, nil
	})
	return err == nil && healthy
}
