package cache

import (
	"sync"

	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/store"
)

// Defaults applied when no settings record exists or the stored record is
// missing fields.
const (
	DefaultEnabled           = true
	DefaultExpirationMinutes = 5
)

const settingsKey = "settings"

// Settings persists the cache-wide configuration record. Reads merge the
// stored record (possibly partial) over defaults; a corrupt record silently
// falls back to defaults. Range validation of the expiration is a UI
// concern, not enforced here.
type Settings struct {
	kv domain.KV
	mu sync.Mutex // serializes read-modify-write in Set
}

func NewSettings(kv domain.KV) *Settings {
	return &Settings{kv: kv}
}

// Get returns the current settings with defaults filled in.
func (s *Settings) Get() domain.CacheSettings {
	settings := domain.CacheSettings{
		Enabled:           DefaultEnabled,
		ExpirationMinutes: DefaultExpirationMinutes,
	}
	// Unmarshal over the defaults struct: absent fields keep their defaults,
	// corrupt data leaves it untouched entirely.
	s.kv.GetRecord(store.BucketSettings, settingsKey, &settings)
	if settings.ExpirationMinutes <= 0 {
		settings.ExpirationMinutes = DefaultExpirationMinutes
	}
	return settings
}

// Set merges the patch over current settings and persists the full record.
func (s *Settings) Set(patch domain.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.Get()
	if patch.Enabled != nil {
		settings.Enabled = *patch.Enabled
	}
	if patch.ExpirationMinutes != nil {
		settings.ExpirationMinutes = *patch.ExpirationMinutes
	}
	return s.kv.PutRecord(store.BucketSettings, settingsKey, settings)
}
