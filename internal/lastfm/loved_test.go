package lastfm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCollectLovedTracksFollowsPagination(t *testing.T) {
	var requested []int
	fetch := func(_ context.Context, page int) (*LovedPage, error) {
		requested = append(requested, page)
		return &LovedPage{
			Tracks: []LovedTrack{
				{Name: fmt.Sprintf("track-%d", page), Artist: "artist"},
			},
			Page:       page,
			TotalPages: 3,
		}, nil
	}

	tracks, err := collectLovedTracks(context.Background(), fetch)
	if err != nil {
		t.Fatalf("collectLovedTracks failed: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("got %d tracks, want 3", len(tracks))
	}
	if len(requested) != 3 || requested[0] != 1 || requested[2] != 3 {
		t.Errorf("requested pages %v, want [1 2 3]", requested)
	}
	if tracks[2].Name != "track-3" {
		t.Errorf("pages out of order, last track %q", tracks[2].Name)
	}
}

// A page count reported as zero or negative still yields exactly one fetch;
// the page-count floor in LovedTracks guarantees TotalPages >= 1.
func TestCollectLovedTracksSinglePage(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, page int) (*LovedPage, error) {
		calls++
		return &LovedPage{
			Tracks:     []LovedTrack{{Name: "only", Artist: "artist"}},
			Page:       page,
			TotalPages: 1,
		}, nil
	}

	tracks, err := collectLovedTracks(context.Background(), fetch)
	if err != nil {
		t.Fatalf("collectLovedTracks failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if len(tracks) != 1 {
		t.Errorf("got %d tracks, want 1", len(tracks))
	}
}

func TestCollectLovedTracksStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, page int) (*LovedPage, error) {
		if page == 2 {
			return nil, boom
		}
		return &LovedPage{Page: page, TotalPages: 5}, nil
	}

	_, err := collectLovedTracks(context.Background(), fetch)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
