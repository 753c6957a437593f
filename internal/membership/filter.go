package membership

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jfallow/cuelist/internal/domain"
)

// FilterPlaylists narrows a listing to playlists whose names fuzzy-match the
// term, best matches first. An empty term returns the listing unchanged.
func FilterPlaylists(playlists []domain.Playlist, term string) []domain.Playlist {
	if term == "" {
		return playlists
	}

	names := make([]string, len(playlists))
	for i, p := range playlists {
		names[i] = p.Name
	}

	matches := fuzzy.RankFindFold(term, names)

	// Sort by score (lower is better)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	results := make([]domain.Playlist, 0, len(matches))
	for _, match := range matches {
		results = append(results, playlists[match.OriginalIndex])
	}
	return results
}
