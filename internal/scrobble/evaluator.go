// Package scrobble decides whether a listening session counts as a play.
// The rule follows the classic scrobbling contract: a natural finish
// always counts; an early stop counts once the listener got through
// min(4 minutes, half the track). Each session yields at most one
// countable play no matter how callbacks re-enter.
package scrobble

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// finishTolerance is how close to the end a position must get to count
	// as a natural finish.
	finishTolerance = 500 * time.Millisecond
	// earlyStopCap bounds the early-stop threshold for long tracks.
	earlyStopCap = 4 * time.Minute
	// minTrackLength is the shortest track the early-stop rule applies to.
	// A natural finish counts regardless of length.
	minTrackLength = 30 * time.Second
)

// Track identifies what is being played.
type Track struct {
	ID       string
	Name     string
	Artist   string
	Duration time.Duration
}

// Sample is one playback progress observation.
type Sample struct {
	Position time.Duration
	Playing  bool
	At       time.Time
}

// Recorder receives the countable-play side effect. FromStageID is empty
// when playback did not start from a known stage context.
type Recorder interface {
	RecordPlay(ctx context.Context, track Track, fromStageID string) error
}

type session struct {
	track       Track
	startedAt   time.Time
	fromStageID string
	position    time.Duration
}

// Evaluator consumes playback samples for one player and emits at most one
// countable play per session. Safe for concurrent use; the counted-session
// set is process-wide so re-entrant callbacks cannot double count.
type Evaluator struct {
	mu      sync.Mutex
	current *session
	counted map[string]struct{}

	recorder Recorder
	log      zerolog.Logger
}

// NewEvaluator builds an evaluator feeding countable plays into recorder.
func NewEvaluator(recorder Recorder, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		counted:  make(map[string]struct{}),
		recorder: recorder,
		log:      log.With().Str("component", "scrobble").Logger(),
	}
}

// Start opens a listening session. An active session is finalized first,
// exactly as if the track had changed.
func (e *Evaluator) Start(ctx context.Context, track Track, startedAt time.Time, fromStageID string) {
	e.mu.Lock()
	prev := e.takeSessionLocked()
	e.current = &session{
		track:       track,
		startedAt:   startedAt,
		fromStageID: fromStageID,
	}
	e.mu.Unlock()

	if prev != nil {
		e.finalize(ctx, prev)
	}

	// Sessions before the previous one can never reach count again; drop
	// their keys so the set stays bounded over the process lifetime.
	keep := map[string]struct{}{sessionKey(track.ID, startedAt): {}}
	if prev != nil {
		keep[sessionKey(prev.track.ID, prev.startedAt)] = struct{}{}
	}
	e.mu.Lock()
	for k := range e.counted {
		if _, ok := keep[k]; !ok {
			delete(e.counted, k)
		}
	}
	e.mu.Unlock()
}

// Observe feeds a progress sample into the current session. A position
// within the finish tolerance of the duration counts immediately: a track
// left to run out is a play regardless of percentage thresholds.
func (e *Evaluator) Observe(ctx context.Context, s Sample) {
	e.mu.Lock()
	cur := e.current
	if cur == nil {
		e.mu.Unlock()
		return
	}
	if s.Position > cur.position {
		cur.position = s.Position
	}
	dur := cur.track.Duration
	finished := dur > 0 && cur.position >= dur-finishTolerance
	snapshot := *cur
	e.mu.Unlock()

	if finished {
		e.count(ctx, snapshot)
	}
}

// Stop finalizes the current session (track change or playback stop) and
// applies the early-stop rule.
func (e *Evaluator) Stop(ctx context.Context) {
	e.mu.Lock()
	prev := e.takeSessionLocked()
	e.mu.Unlock()

	if prev != nil {
		e.finalize(ctx, prev)
	}
}

func (e *Evaluator) takeSessionLocked() *session {
	prev := e.current
	e.current = nil
	return prev
}

// finalize applies the early-stop rule to a closed session.
func (e *Evaluator) finalize(ctx context.Context, s *session) {
	dur := s.track.Duration
	if dur < minTrackLength {
		return
	}
	threshold := dur / 2
	if earlyStopCap < threshold {
		threshold = earlyStopCap
	}
	if s.position >= threshold {
		e.count(ctx, *s)
	}
}

// count emits the play once per session key.
func (e *Evaluator) count(ctx context.Context, s session) {
	key := sessionKey(s.track.ID, s.startedAt)

	e.mu.Lock()
	if _, done := e.counted[key]; done {
		e.mu.Unlock()
		return
	}
	e.counted[key] = struct{}{}
	e.mu.Unlock()

	if err := e.recorder.RecordPlay(ctx, s.track, s.fromStageID); err != nil {
		e.log.Warn().Str("track", s.track.ID).Err(err).Msg("record play")
	}
}

func sessionKey(trackID string, startedAt time.Time) string {
	return trackID + "@" + strconv.FormatInt(startedAt.UnixNano(), 10)
}
