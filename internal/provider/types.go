package provider

// Track is one track of an album or playlist as the provider reports it.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"duration_ms"`
}

// Album is the provider's album metadata.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	TrackCount  int    `json:"track_count"`
	ReleaseDate string `json:"release_date"`
}

// Playlist is a provider-side playlist.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

// trackPage is one page of a paginated track listing.
type trackPage struct {
	Items  []Track `json:"items"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

type albumBatchResponse struct {
	Albums []Album `json:"albums"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
