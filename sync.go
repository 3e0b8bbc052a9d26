package curator

import (
	"context"
	"time"

	"github.com/tmarcou/curator/internal/lastfm"
	"github.com/tmarcou/curator/internal/scrobble"
	"github.com/tmarcou/curator/internal/trackcache"
)

// proactiveRefreshWindow is how close to expiry the provider access token
// is refreshed ahead of need.
const proactiveRefreshWindow = 10 * time.Minute

// lastfmSyncer replays queued track-cache writes against Last.fm.
type lastfmSyncer struct {
	client *lastfm.Client
}

var _ trackcache.Syncer = (*lastfmSyncer)(nil)

func (l *lastfmSyncer) SyncLoved(ctx context.Context, name, artist string, loved bool) error {
	if l.client == nil {
		return ErrScrobbleNotConfigured
	}
	if loved {
		return l.client.Love(ctx, artist, name)
	}
	return l.client.Unlove(ctx, artist, name)
}

// SyncPlaycount replays a queued play as a scrobble; Last.fm has no
// set-playcount call, the count converges through scrobbles.
func (l *lastfmSyncer) SyncPlaycount(ctx context.Context, name, artist string, _ int) error {
	if l.client == nil {
		return ErrScrobbleNotConfigured
	}
	return l.client.Scrobble(ctx, artist, name, time.Now())
}

// playRecorder feeds countable plays from the evaluator into the track
// cache, scrobbling when a session is available.
type playRecorder struct {
	s *Service
}

var _ scrobble.Recorder = (*playRecorder)(nil)

func (r *playRecorder) RecordPlay(ctx context.Context, track scrobble.Track, fromStageID string) error {
	tracks, err := r.s.Tracks()
	if err != nil {
		return err
	}

	current := 0
	if e := tracks.Read(track.ID); e != nil {
		current = e.Playcount
	}

	var remote trackcache.RemoteCall
	if r.s.scrobbler != nil && r.s.scrobbler.IsAuthenticated() {
		playedAt := time.Now()
		remote = func(ctx context.Context) error {
			return r.s.scrobbler.Scrobble(ctx, track.Artist, track.Name, playedAt)
		}
	}

	id, err := tracks.UpdatePlaycount(ctx, track.ID, track.Name, track.Artist, current+1, remote)
	if err != nil {
		return err
	}
	if fromStageID != "" {
		return tracks.SetLastPlayedFrom(id, fromStageID)
	}
	return nil
}

// StartSweeper retries queued remote writes on a fixed cadence until ctx
// is canceled. It also purges parked queue items past their retention and
// refreshes the provider token when it is close to expiring.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Service) sweep(ctx context.Context) {
	if s.streaming != nil && s.streaming.IsAuthenticated() {
		if exp := s.streaming.TokenExpiry(); !exp.IsZero() && time.Until(exp) < proactiveRefreshWindow {
			if _, err := s.streaming.RefreshAccessToken(ctx); err != nil {
				s.log.Warn().Err(err).Msg("proactive token refresh failed")
			}
		}
	}

	tracks, err := s.Tracks()
	if err != nil {
		// Signed out: nothing to replay.
		return
	}

	if _, err := tracks.RetryFailedSyncs(ctx); err != nil {
		s.log.Warn().Err(err).Msg("retry sweep failed")
		return
	}

	retention := time.Duration(s.syncCfg.PurgeAfterDays) * 24 * time.Hour
	if err := tracks.PurgeStale(retention); err != nil {
		s.log.Warn().Err(err).Msg("purge stale sync items failed")
	}
}
