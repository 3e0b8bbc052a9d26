package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// albumBatchSize is the provider's ceiling on ids per batch request.
	albumBatchSize = 20
	trackPageLimit = 50
	// tracksConcurrency bounds parallel per-album track fetches.
	tracksConcurrency = 4
)

// Album fetches a single album's metadata.
func (c *Client) Album(ctx context.Context, id string) (*Album, error) {
	var album Album
	if err := c.get(ctx, "/v1/albums/"+url.PathEscape(id), &album); err != nil {
		return nil, fmt.Errorf("fetch album %s: %w", id, err)
	}
	return &album, nil
}

// Albums fetches album metadata in provider-sized batches, pacing between
// batch requests. Results come back in input order; ids the provider does
// not know are dropped.
func (c *Client) Albums(ctx context.Context, ids []string) ([]Album, error) {
	albums := make([]Album, 0, len(ids))
	for start := 0; start < len(ids); start += albumBatchSize {
		end := start + albumBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if start > 0 {
			if err := c.waitForBatchPacing(ctx); err != nil {
				return nil, err
			}
		}

		var batch albumBatchResponse
		path := "/v1/albums?ids=" + url.QueryEscape(strings.Join(ids[start:end], ","))
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, fmt.Errorf("fetch albums batch: %w", err)
		}
		albums = append(albums, batch.Albums...)
	}
	return albums, nil
}

// AlbumTracks fetches one page of an album's tracks.
func (c *Client) AlbumTracks(ctx context.Context, albumID string, offset int) ([]Track, int, error) {
	var page trackPage
	path := fmt.Sprintf("/v1/albums/%s/tracks?offset=%d&limit=%d", url.PathEscape(albumID), offset, trackPageLimit)
	if err := c.get(ctx, path, &page); err != nil {
		return nil, 0, fmt.Errorf("fetch album %s tracks: %w", albumID, err)
	}
	return page.Items, page.Total, nil
}

// AllAlbumTracks fetches every track of an album, following pagination.
func (c *Client) AllAlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var tracks []Track
	offset := 0
	for {
		items, total, err := c.AlbumTracks(ctx, albumID, offset)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, items...)
		offset += len(items)
		if offset >= total || len(items) == 0 {
			return tracks, nil
		}
	}
}

// AlbumsTracks fetches the full track listings for several albums
// concurrently, keyed by album id.
func (c *Client) AlbumsTracks(ctx context.Context, albumIDs []string) (map[string][]Track, error) {
	results := make([][]Track, len(albumIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tracksConcurrency)
	for i, id := range albumIDs {
		g.Go(func() error {
			tracks, err := c.AllAlbumTracks(gctx, id)
			if err != nil {
				return err
			}
			results[i] = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byAlbum := make(map[string][]Track, len(albumIDs))
	for i, id := range albumIDs {
		byAlbum[id] = results[i]
	}
	return byAlbum, nil
}
