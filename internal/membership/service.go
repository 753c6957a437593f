package membership

import (
	"context"
	"log/slog"

	"github.com/jfallow/cuelist/internal/cache"
	"github.com/jfallow/cuelist/internal/domain"
)

// Service is the surface the UI layer talks to: reconciliation, change
// application, and cache administration, wired over one shared store.
type Service struct {
	repo       domain.LibraryRepository
	settings   *cache.Settings
	modified   *cache.ModifiedSet
	table      *cache.Table
	reconciler *Reconciler
	mutator    *Mutator
	logger     *slog.Logger
}

// NewService wires the cache components and pipelines over the given
// persistence backend.
func NewService(repo domain.LibraryRepository, kv domain.KV, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	settings := cache.NewSettings(kv)
	modified := cache.NewModifiedSet(kv)
	table := cache.NewTable(kv, settings, modified, logger)
	return &Service{
		repo:       repo,
		settings:   settings,
		modified:   modified,
		table:      table,
		reconciler: NewReconciler(repo, table, modified, logger),
		mutator:    NewMutator(repo, modified, logger),
		logger:     logger,
	}
}

// EditablePlaylists fetches the playlist listing and filters it to the
// playlists the user can actually modify.
func (s *Service) EditablePlaylists(ctx context.Context) ([]domain.Playlist, error) {
	playlists, err := s.repo.GetPlaylists(ctx)
	if err != nil {
		s.logger.Error("failed to fetch playlists", "error", err)
		return nil, err
	}
	editable := make([]domain.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if p.CanEdit {
			editable = append(editable, p)
		}
	}
	s.logger.Debug("fetched playlists", "total", len(playlists), "editable", len(editable))
	return editable, nil
}

// Reconcile produces per-playlist membership verdicts for the song.
func (s *Service) Reconcile(ctx context.Context, song domain.SongRef, listing []domain.Playlist) ([]domain.Verdict, error) {
	return s.reconciler.Reconcile(ctx, song, listing)
}

// Apply commits the approved membership changes for the song.
func (s *Service) Apply(ctx context.Context, song domain.SongRef, changes []domain.Change) ([]domain.Outcome, error) {
	return s.mutator.Apply(ctx, song, changes)
}

// Stats reports the current cache table summary.
func (s *Service) Stats() domain.CacheStats {
	return s.table.Stats()
}

// ClearCache drops the cache table and the modified set together.
func (s *Service) ClearCache() error {
	s.logger.Info("clearing playlist cache")
	return s.table.ClearAll()
}

// Settings returns the current cache settings with defaults filled in.
func (s *Service) Settings() domain.CacheSettings {
	return s.settings.Get()
}

// SaveSettings merges the patch over current settings and persists them.
func (s *Service) SaveSettings(patch domain.SettingsPatch) error {
	return s.settings.Set(patch)
}
