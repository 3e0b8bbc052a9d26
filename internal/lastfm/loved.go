package lastfm

import (
	"context"
	"fmt"
)

// AllLovedTracks walks every page of the loved-tracks listing. Used for a
// full resync; honor the caller's context deadline, this can be many pages.
func (c *Client) AllLovedTracks(ctx context.Context) ([]LovedTrack, error) {
	return collectLovedTracks(ctx, c.LovedTracks)
}

func collectLovedTracks(ctx context.Context, fetch func(context.Context, int) (*LovedPage, error)) ([]LovedTrack, error) {
	var all []LovedTrack
	page := 1
	for {
		p, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, p.Tracks...)
		if page >= p.TotalPages {
			return all, nil
		}
		page++
	}
}
