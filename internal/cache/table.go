package cache

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/store"
)

// Table is the playlist cache table: one durable CachedPlaylist record per
// playlist id. Expiration is lazy — an expired record reads as absent but
// stays in storage, so disabling and re-enabling the cache (or raising the
// expiration) can bring old entries back.
type Table struct {
	kv       domain.KV
	settings *Settings
	modified *ModifiedSet
	logger   *slog.Logger

	// now is swapped out by tests to pin the clock
	now func() time.Time
}

func NewTable(kv domain.KV, settings *Settings, modified *ModifiedSet, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		kv:       kv,
		settings: settings,
		modified: modified,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the entry only if caching is enabled and the entry is within
// the expiration window. The stored record is never deleted here.
func (t *Table) Get(id string) (domain.CachedPlaylist, bool) {
	settings := t.settings.Get()
	if !settings.Enabled {
		return domain.CachedPlaylist{}, false
	}

	var entry domain.CachedPlaylist
	if !t.kv.GetRecord(store.BucketPlaylists, id, &entry) {
		return domain.CachedPlaylist{}, false
	}
	if t.expired(entry, settings) {
		return domain.CachedPlaylist{}, false
	}
	return entry, true
}

// Membership answers whether any of the song's identifier forms appears in
// the playlist's cached track set. Unknown when no fresh entry exists.
func (t *Table) Membership(id string, songForms []string) domain.Membership {
	entry, ok := t.Get(id)
	if !ok {
		return domain.MembershipUnknown
	}
	if domain.FormsIntersect(songForms, entry.Tracks) {
		return domain.MembershipIn
	}
	return domain.MembershipOut
}

// UpsertMany replaces each entry's full record, stamping cachedAt to the
// write time. Last writer wins per id; prior track sets are never merged.
// No-op while caching is disabled.
func (t *Table) UpsertMany(entries []domain.CachedPlaylist) error {
	if !t.settings.Get().Enabled {
		t.logger.Debug("cache disabled, skipping upsert", "count", len(entries))
		return nil
	}

	now := t.now()
	for _, entry := range entries {
		entry.CachedAt = now
		if err := t.kv.PutRecord(store.BucketPlaylists, entry.ID, entry); err != nil {
			return err
		}
	}
	t.logger.Debug("upserted cache entries", "count", len(entries))
	return nil
}

// ClearAll drops the whole table together with the modified set. Users read
// "clear cache" as also resetting staleness tracking.
func (t *Table) ClearAll() error {
	if err := t.kv.ResetBuckets(store.BucketPlaylists); err != nil {
		return err
	}
	return t.modified.Reset()
}

// Stats scans the table. ExpiredPlaylists uses the same age formula as Get.
func (t *Table) Stats() domain.CacheStats {
	settings := t.settings.Get()
	modified := t.modified.List()

	stats := domain.CacheStats{ModifiedPlaylists: len(modified)}
	t.kv.ForEachRecord(store.BucketPlaylists, func(key string, data []byte) error {
		stats.TotalPlaylists++
		stats.ApproximateBytes += len(data)

		var entry domain.CachedPlaylist
		if err := json.Unmarshal(data, &entry); err != nil {
			t.logger.Warn("skipping corrupt cache entry", "playlistID", key)
			return nil
		}
		if t.expired(entry, settings) {
			stats.ExpiredPlaylists++
		}
		if stats.OldestCachedAt.IsZero() || entry.CachedAt.Before(stats.OldestCachedAt) {
			stats.OldestCachedAt = entry.CachedAt
		}
		return nil
	})
	return stats
}

func (t *Table) expired(entry domain.CachedPlaylist, settings domain.CacheSettings) bool {
	return t.now().Sub(entry.CachedAt) > settings.Expiration()
}
