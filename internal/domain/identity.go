package domain

import "strings"

// LibraryIDPrefix marks identifiers scoped to a user's library copy of a
// song, as opposed to catalog identifiers.
const LibraryIDPrefix = "i."

// IsLibraryID reports whether id is a library-scoped identifier.
func IsLibraryID(id string) bool {
	return strings.HasPrefix(id, LibraryIDPrefix)
}

// NormalizeID canonicalizes a raw identifier. Matching is exact on the
// normalized form; substring matching between numeric ids is deliberately
// not supported because one id can be a prefix of another.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// Forms returns the canonical set of identifier forms for the song: the
// primary id plus any alternates, normalized and deduplicated.
func (s SongRef) Forms() []string {
	return normalizeAll(append([]string{s.ID}, s.AlternateIDs...))
}

// Forms returns the canonical set of identifier forms for the track.
func (t Track) Forms() []string {
	return normalizeAll([]string{t.ID, t.CatalogID})
}

func normalizeAll(ids []string) []string {
	forms := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		forms = append(forms, id)
	}
	return forms
}

// FormsIntersect reports whether the two identifier-form sets share any
// member.
func FormsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
