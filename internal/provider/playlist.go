package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type createPlaylistRequest struct {
	Name string `json:"name"`
}

type replaceTracksRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// CreatePlaylist creates an empty playlist owned by the linked account.
func (c *Client) CreatePlaylist(ctx context.Context, name string) (*Playlist, error) {
	var playlist Playlist
	if err := c.send(ctx, http.MethodPost, "/v1/playlists", createPlaylistRequest{Name: name}, &playlist); err != nil {
		return nil, fmt.Errorf("create playlist %q: %w", name, err)
	}
	return &playlist, nil
}

// ReplacePlaylistTracks replaces the playlist's contents with trackIDs, in
// order.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	path := "/v1/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := c.send(ctx, http.MethodPut, path, replaceTracksRequest{TrackIDs: trackIDs}, nil); err != nil {
		return fmt.Errorf("replace playlist %s tracks: %w", playlistID, err)
	}
	return nil
}

// RenamePlaylist changes the playlist's display name.
func (c *Client) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	path := "/v1/playlists/" + url.PathEscape(playlistID)
	if err := c.send(ctx, http.MethodPatch, path, createPlaylistRequest{Name: name}, nil); err != nil {
		return fmt.Errorf("rename playlist %s: %w", playlistID, err)
	}
	return nil
}

// DeletePlaylist removes the playlist from the linked account.
func (c *Client) DeletePlaylist(ctx context.Context, playlistID string) error {
	path := "/v1/playlists/" + url.PathEscape(playlistID)
	if err := c.send(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete playlist %s: %w", playlistID, err)
	}
	return nil
}

// Playlists lists the linked account's playlists.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	var out struct {
		Items []Playlist `json:"items"`
	}
	if err := c.get(ctx, "/v1/playlists", &out); err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return out.Items, nil
}
