package domain

import "time"

// Playlist is one entry from the remote library's playlist listing.
type Playlist struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CanEdit      bool      `json:"canEdit"`
	LastModified time.Time `json:"lastModified"`
	ArtworkURL   string    `json:"artworkUrl,omitempty"`
}

// Track is one entry from a playlist's track list. A track may carry both a
// library identifier and a catalog identifier for the same logical song.
type Track struct {
	ID        string `json:"id"`
	CatalogID string `json:"catalogId,omitempty"`
	Name      string `json:"name,omitempty"`
}

// SongRef identifies the song being checked or edited, together with any
// alternate identifier forms the caller knows for it.
type SongRef struct {
	ID           string
	AlternateIDs []string
}

// CachedPlaylist is a cache table entry: the full set of track identifier
// forms believed to belong to one playlist, plus the write timestamp that
// drives expiration.
type CachedPlaylist struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Tracks       []string  `json:"tracks"`
	LastModified time.Time `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	ArtworkURL   string    `json:"artworkUrl,omitempty"`
}

// CacheSettings controls whether the cache answers reads at all and how old
// an entry may get before it stops counting as fresh.
type CacheSettings struct {
	Enabled           bool `json:"enabled"`
	ExpirationMinutes int  `json:"expirationMinutes"`
}

// Expiration returns the freshness window as a duration.
func (s CacheSettings) Expiration() time.Duration {
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	Enabled           *bool `json:"enabled,omitempty"`
	ExpirationMinutes *int  `json:"expirationMinutes,omitempty"`
}

// Membership is the tri-state answer a cache lookup can give.
type Membership int8

const (
	MembershipUnknown Membership = iota
	MembershipIn
	MembershipOut
)

// Verdict is the per-playlist result of a reconciliation pass.
type Verdict struct {
	PlaylistID   string
	Name         string
	Member       bool
	FromCache    bool
	LastModified time.Time
	ArtworkURL   string
}

// Change is one user-approved membership edit: add the song to the playlist
// when Add is true, remove it otherwise.
type Change struct {
	PlaylistID string
	Name       string
	Add        bool
}

// Outcome records one applied change. Outcomes are reported in apply order so
// a halted batch shows exactly which playlists were touched before the
// failure.
type Outcome struct {
	PlaylistID string
	Added      bool
}

// CacheStats summarizes the cache table for display.
type CacheStats struct {
	TotalPlaylists    int
	ExpiredPlaylists  int
	ModifiedPlaylists int
	ApproximateBytes  int
	OldestCachedAt    time.Time
}
