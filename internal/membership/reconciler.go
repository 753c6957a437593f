package membership

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jfallow/cuelist/internal/cache"
	"github.com/jfallow/cuelist/internal/domain"
)

const (
	// fetchBatchSize bounds how many playlists are fetched concurrently.
	fetchBatchSize = 10
	// trackPageSize is the pagination window for playlist track lists.
	trackPageSize = 100
	// trackFetchCap is the hard ceiling on tracks collected per playlist.
	// Playlists past this size may report a wrong verdict; see the warning
	// logged when the cap is hit.
	trackFetchCap = 1000
	// interBatchDelay bounds the sustained request rate between batches.
	interBatchDelay = 100 * time.Millisecond
)

// Reconciler produces per-playlist membership verdicts for one song,
// answering from the cache table where it can and refetching the rest from
// the remote library in bounded concurrent batches.
type Reconciler struct {
	repo     domain.LibraryRepository
	table    *cache.Table
	modified *cache.ModifiedSet
	logger   *slog.Logger

	// generation tags each pass; a pass whose tag is stale by the time its
	// fetches land discards its cache writes instead of clobbering a newer
	// pass's results.
	generation atomic.Uint64

	batchSize  int
	pageSize   int
	trackCap   int
	batchDelay time.Duration
}

func NewReconciler(repo domain.LibraryRepository, table *cache.Table, modified *cache.ModifiedSet, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:       repo,
		table:      table,
		modified:   modified,
		logger:     logger,
		batchSize:  fetchBatchSize,
		pageSize:   trackPageSize,
		trackCap:   trackFetchCap,
		batchDelay: interBatchDelay,
	}
}

// Reconcile returns one verdict per playlist in the listing, members first,
// each group ordered by the playlist's own last-modified time descending.
//
// Cancellation is cooperative: the context is checked before every batch and
// every page fetch. A cancelled pass returns ctx.Err() and leaves no durable
// writes; callers treat that as a no-op, not a failure.
func (r *Reconciler) Reconcile(ctx context.Context, song domain.SongRef, listing []domain.Playlist) ([]domain.Verdict, error) {
	pass := r.generation.Add(1)
	songForms := song.Forms()

	// Snapshot the modified set up front; only these ids are cleared at the
	// end, so marks landing mid-pass are preserved.
	snapshot := r.modified.List()
	stale := make(map[string]struct{}, len(snapshot))
	for _, id := range snapshot {
		stale[id] = struct{}{}
	}

	verdicts := make([]domain.Verdict, 0, len(listing))
	var toFetch []domain.Playlist
	for _, p := range listing {
		if _, ok := stale[p.ID]; ok {
			toFetch = append(toFetch, p)
			continue
		}
		switch r.table.Membership(p.ID, songForms) {
		case domain.MembershipUnknown:
			toFetch = append(toFetch, p)
		case domain.MembershipIn:
			verdicts = append(verdicts, verdictFor(p, true, true))
		case domain.MembershipOut:
			verdicts = append(verdicts, verdictFor(p, false, true))
		}
	}

	r.logger.Debug("reconciliation pass",
		"song", song.ID,
		"playlists", len(listing),
		"cached", len(verdicts),
		"fetching", len(toFetch))

	snapshots := make([]domain.CachedPlaylist, 0, len(toFetch))
	for start := 0; start < len(toFetch); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.batchDelay):
			}
		}

		end := min(start+r.batchSize, len(toFetch))
		batch := toFetch[start:end]
		fetched := make([][]string, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, p := range batch {
			g.Go(func() error {
				forms, err := r.fetchTrackForms(gctx, p.ID)
				if err != nil {
					return err
				}
				fetched[i] = forms
				return nil
			})
		}
		// Only cancellation propagates; fetch failures already degraded to
		// end-of-pagination inside fetchTrackForms.
		if err := g.Wait(); err != nil {
			return nil, err
		}

		now := time.Now()
		for i, p := range batch {
			member := domain.FormsIntersect(songForms, fetched[i])
			verdicts = append(verdicts, verdictFor(p, member, false))
			snapshots = append(snapshots, domain.CachedPlaylist{
				ID:           p.ID,
				Name:         p.Name,
				Tracks:       fetched[i],
				LastModified: p.LastModified,
				CachedAt:     now, // restamped by the table on upsert
				ArtworkURL:   p.ArtworkURL,
			})
		}
	}

	if r.generation.Load() != pass {
		// A newer pass started while this one was fetching; its results are
		// the ones the cache should keep.
		r.logger.Debug("superseded reconciliation pass, discarding cache writes", "pass", pass)
	} else {
		if len(snapshots) > 0 {
			if err := r.table.UpsertMany(snapshots); err != nil {
				r.logger.Error("failed to write cache snapshots", "error", err)
			}
		}
		if err := r.modified.Clear(snapshot...); err != nil {
			r.logger.Error("failed to clear modified set", "error", err)
		}
	}

	sortVerdicts(verdicts)
	return verdicts, nil
}

// fetchTrackForms paginates a playlist's full track list and returns the
// collected identifier forms. A page fetch failure is treated as end of
// pagination (the common cause is paginating past the end), never as a pass
// failure. Only context cancellation returns an error.
func (r *Reconciler) fetchTrackForms(ctx context.Context, playlistID string) ([]string, error) {
	var forms []string
	seen := make(map[string]struct{})

	for offset := 0; ; offset += r.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offset >= r.trackCap {
			r.logger.Warn("track list exceeds fetch cap, membership may be incomplete",
				"playlistID", playlistID, "cap", r.trackCap)
			break
		}

		page, err := r.repo.GetPlaylistTracks(ctx, playlistID, offset, r.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Debug("track page fetch failed, treating as end of list",
				"playlistID", playlistID, "offset", offset, "error", err)
			break
		}

		for _, t := range page {
			for _, form := range t.Forms() {
				if _, ok := seen[form]; ok {
					continue
				}
				seen[form] = struct{}{}
				forms = append(forms, form)
			}
		}
		if len(page) < r.pageSize {
			break
		}
	}
	return forms, nil
}

func verdictFor(p domain.Playlist, member, fromCache bool) domain.Verdict {
	return domain.Verdict{
		PlaylistID:   p.ID,
		Name:         p.Name,
		Member:       member,
		FromCache:    fromCache,
		LastModified: p.LastModified,
		ArtworkURL:   p.ArtworkURL,
	}
}

// sortVerdicts orders members first, then by last-modified descending within
// each group.
func sortVerdicts(verdicts []domain.Verdict) {
	sort.SliceStable(verdicts, func(i, j int) bool {
		if verdicts[i].Member != verdicts[j].Member {
			return verdicts[i].Member
		}
		return verdicts[i].LastModified.After(verdicts[j].LastModified)
	})
}
