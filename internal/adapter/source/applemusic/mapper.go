package applemusic

import (
	"strings"
	"time"

	"github.com/jfallow/cuelist/internal/domain"
)

// artworkSize is substituted into the {w}x{h} artwork URL template.
const artworkSize = "300"

// MapPlaylists converts library-playlist resources to domain playlists
func MapPlaylists(resources []resource) []domain.Playlist {
	playlists := make([]domain.Playlist, 0, len(resources))
	for _, r := range resources {
		playlists = append(playlists, domain.Playlist{
			ID:           r.ID,
			Name:         r.Attributes.Name,
			CanEdit:      r.Attributes.CanEdit,
			LastModified: parseDate(r.Attributes.LastModifiedDate, r.Attributes.DateAdded),
			ArtworkURL:   artworkURL(r.Attributes.Artwork),
		})
	}
	return playlists
}

// MapTracks converts track resources to domain tracks
func MapTracks(resources []resource) []domain.Track {
	tracks := make([]domain.Track, 0, len(resources))
	for _, r := range resources {
		track := domain.Track{
			ID:        r.ID,
			CatalogID: r.Attributes.PlayParams.CatalogID,
			Name:      r.Attributes.Name,
		}
		if track.CatalogID == "" {
			track.CatalogID = r.Attributes.PlayParams.GlobalID
		}
		if track.ID == "" {
			track.ID = r.Attributes.PlayParams.ID
		}
		tracks = append(tracks, track)
	}
	return tracks
}

// parseDate takes the first parseable RFC3339 timestamp from candidates.
func parseDate(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, c); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// artworkURL expands the artwork URL template to a concrete size.
func artworkURL(a *artwork) string {
	if a == nil || a.URL == "" {
		return ""
	}
	url := strings.ReplaceAll(a.URL, "{w}", artworkSize)
	return strings.ReplaceAll(url, "{h}", artworkSize)
}

// refType returns the resource type for a track reference. Library-scoped
// identifiers address library-songs, everything else the global catalog.
func refType(id string) string {
	if domain.IsLibraryID(id) {
		return "library-songs"
	}
	return "songs"
}
