// Package lastfm wraps the Last.fm API for the track facts this client
// cares about: loved tracks, play counts and love/unlove writes.
package lastfm

import (
	"context"
	"strconv"
	"time"

	lfm "github.com/shkh/lastfm-go/lastfm"
)

// Client wraps the Last.fm API authenticated by a session key.
type Client struct {
	api        *lfm.Api
	apiKey     string
	apiSecret  string
	sessionKey string
	username   string
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		api:       lfm.New(apiKey, apiSecret),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// SetSession sets the authenticated session.
func (c *Client) SetSession(username, sessionKey string) {
	c.username = username
	c.sessionKey = sessionKey
	c.api.SetSession(sessionKey)
}

// ClearSession drops the credential, e.g. after it turned out to be dead.
func (c *Client) ClearSession() {
	c.username = ""
	c.sessionKey = ""
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.sessionKey != ""
}

// Username returns the linked account name.
func (c *Client) Username() string {
	return c.username
}

// Probe checks that the session is alive with a cheap authenticated call.
// Fronted by the status cache; never call it in a tight loop.
func (c *Client) Probe(ctx context.Context) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.User.GetInfo(lfm.P{"user": c.username})
	return wrapRemote("probe session", err)
}

// LovedTrack is one entry of the authoritative loved-tracks listing.
type LovedTrack struct {
	Name   string
	Artist string
	MBID   string
}

// LovedPage is one page of the loved-tracks listing.
type LovedPage struct {
	Tracks     []LovedTrack
	Page       int
	TotalPages int
}

// LovedTracks fetches one page of the user's loved tracks. Pages start at 1.
func (c *Client) LovedTracks(ctx context.Context, page int) (*LovedPage, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.api.User.GetLovedTracks(lfm.P{
		"user": c.username,
		"page": page,
	})
	if err != nil {
		return nil, wrapRemote("get loved tracks", err)
	}

	tracks := make([]LovedTrack, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		tracks = append(tracks, LovedTrack{
			Name:   t.Name,
			Artist: t.Artist.Name,
			MBID:   t.Mbid,
		})
	}

	totalPages := result.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}
	return &LovedPage{
		Tracks:     tracks,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// TrackInfo carries the authoritative per-user facts for one track.
type TrackInfo struct {
	Name      string
	Artist    string
	Playcount int
	Loved     bool
}

// GetTrackInfo fetches the per-user play count and loved flag for a track.
func (c *Client) GetTrackInfo(ctx context.Context, artist, track string) (*TrackInfo, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.api.Track.GetInfo(lfm.P{
		"artist":   artist,
		"track":    track,
		"username": c.username,
	})
	if err != nil {
		return nil, wrapRemote("get track info", err)
	}

	playcount := 0
	if result.UserPlayCount != "" {
		playcount, _ = strconv.Atoi(result.UserPlayCount) //nolint:errcheck // parse failure means count stays 0
	}
	return &TrackInfo{
		Name:      result.Name,
		Artist:    result.Artist.Name,
		Playcount: playcount,
		Loved:     result.UserLoved == "1",
	}, nil
}

// Love marks a track loved for the authenticated user.
func (c *Client) Love(ctx context.Context, artist, track string) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapRemote("love track", c.api.Track.Love(lfm.P{
		"artist": artist,
		"track":  track,
	}))
}

// Unlove removes the loved mark for a track.
func (c *Client) Unlove(ctx context.Context, artist, track string) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapRemote("unlove track", c.api.Track.UnLove(lfm.P{
		"artist": artist,
		"track":  track,
	}))
}

// Scrobble submits one track play. The remote play count only moves by
// scrobbling; there is no direct set-playcount call.
func (c *Client) Scrobble(ctx context.Context, artist, track string, playedAt time.Time) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Track.Scrobble(lfm.P{
		"artist":    artist,
		"track":     track,
		"timestamp": playedAt.Unix(),
	})
	return wrapRemote("scrobble", err)
}
