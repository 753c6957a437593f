package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jfallow/cuelist/internal/cache"
	"github.com/jfallow/cuelist/internal/domain"
)

const (
	// interCallDelay spaces out remote writes once a batch is large enough
	// to look like a burst.
	interCallDelay = 200 * time.Millisecond
	// burstThreshold is the change count above which the delay kicks in,
	// keeping small edits fast.
	burstThreshold = 5
)

// Mutator applies a user-approved set of membership changes for one song.
// Writes run sequentially to respect remote rate limits. The first failure
// halts the batch; outcomes report exactly which playlists were changed
// before the halt.
type Mutator struct {
	repo     domain.LibraryRepository
	modified *cache.ModifiedSet
	logger   *slog.Logger

	pageSize  int
	trackCap  int
	callDelay time.Duration
	threshold int
}

func NewMutator(repo domain.LibraryRepository, modified *cache.ModifiedSet, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{
		repo:      repo,
		modified:  modified,
		logger:    logger,
		pageSize:  trackPageSize,
		trackCap:  trackFetchCap,
		callDelay: interCallDelay,
		threshold: burstThreshold,
	}
}

// Apply issues one add or remove per change. On any failure it stops and
// returns the outcomes accumulated so far alongside the error, so callers
// can distinguish partial success from full success.
func (m *Mutator) Apply(ctx context.Context, song domain.SongRef, changes []domain.Change) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, 0, len(changes))
	throttled := len(changes) > m.threshold

	for i, change := range changes {
		if i > 0 && throttled {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(m.callDelay):
			}
		}

		var err error
		if change.Add {
			err = m.repo.AddTrack(ctx, change.PlaylistID, song.ID)
		} else {
			err = m.remove(ctx, change.PlaylistID, song)
		}
		if err != nil {
			m.logger.Error("membership change failed, halting batch",
				"playlistID", change.PlaylistID, "add", change.Add,
				"applied", len(outcomes), "error", err)
			return outcomes, fmt.Errorf("change playlist %s: %w", change.PlaylistID, err)
		}

		// Mark immediately rather than batching at the end, so a crash
		// mid-batch still leaves applied playlists flagged stale.
		if err := m.modified.Mark(change.PlaylistID); err != nil {
			m.logger.Error("failed to mark playlist modified", "playlistID", change.PlaylistID, "error", err)
		}
		outcomes = append(outcomes, domain.Outcome{PlaylistID: change.PlaylistID, Added: change.Add})
		m.logger.Info("applied membership change", "playlistID", change.PlaylistID, "add", change.Add, "song", song.ID)
	}
	return outcomes, nil
}

// remove is a read-modify-write over the whole playlist: the remote API has
// no targeted delete, only a full-list replace. Concurrent external edits to
// the same playlist can therefore be lost; a single user driving one modal
// at a time makes that acceptable.
func (m *Mutator) remove(ctx context.Context, playlistID string, song domain.SongRef) error {
	tracks, err := m.fetchAllTracks(ctx, playlistID)
	if err != nil {
		return err
	}

	songForms := song.Forms()
	match := -1
	for i, t := range tracks {
		if domain.FormsIntersect(songForms, t.Forms()) {
			match = i
			break
		}
	}
	if match < 0 {
		m.logger.Warn("song not found in playlist, skipping replace",
			"playlistID", playlistID, "song", song.ID, "scanned", len(tracks))
		return nil
	}

	replacement := make([]domain.Track, 0, len(tracks)-1)
	replacement = append(replacement, tracks[:match]...)
	replacement = append(replacement, tracks[match+1:]...)
	return m.repo.ReplaceTracks(ctx, playlistID, replacement)
}

// fetchAllTracks paginates the playlist's full ordered track list under the
// same rules as reconciliation fetches: a page failure ends pagination, and
// the hard cap halts oversized lists with a warning (the match may then be
// missed — a documented limitation, not an error).
func (m *Mutator) fetchAllTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var tracks []domain.Track
	for offset := 0; ; offset += m.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offset >= m.trackCap {
			m.logger.Warn("track list exceeds fetch cap during remove, match may be missed",
				"playlistID", playlistID, "cap", m.trackCap)
			break
		}

		page, err := m.repo.GetPlaylistTracks(ctx, playlistID, offset, m.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Debug("track page fetch failed, treating as end of list",
				"playlistID", playlistID, "offset", offset, "error", err)
			break
		}
		tracks = append(tracks, page...)
		if len(page) < m.pageSize {
			break
		}
	}
	return tracks, nil
}
