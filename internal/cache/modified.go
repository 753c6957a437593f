package cache

import (
	"sort"
	"sync"

	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/store"
)

const modifiedKey = "ids"

// ModifiedSet tracks playlist ids whose membership was changed locally since
// their last fresh fetch. Membership here overrides expiration-based
// freshness: a marked playlist is always treated as stale.
type ModifiedSet struct {
	kv domain.KV
	mu sync.Mutex // serializes read-modify-write on the durable record
}

func NewModifiedSet(kv domain.KV) *ModifiedSet {
	return &ModifiedSet{kv: kv}
}

// Mark adds ids to the set. Idempotent union.
func (m *ModifiedSet) Mark(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load()
	changed := false
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return m.save(set)
}

// List returns the current members, sorted for stable output.
func (m *ModifiedSet) List() []string {
	m.mu.Lock()
	set := m.load()
	m.mu.Unlock()

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear removes only the given ids. Reconciliation clears the exact ids it
// snapshotted at pass start; ids marked concurrently during the pass survive.
func (m *ModifiedSet) Clear(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.load()
	changed := false
	for _, id := range ids {
		if _, ok := set[id]; ok {
			delete(set, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return m.save(set)
}

// Reset empties the set. Only the full cache clear uses this.
func (m *ModifiedSet) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv.DeleteRecord(store.BucketModified, modifiedKey)
	return nil
}

func (m *ModifiedSet) load() map[string]struct{} {
	var ids []string
	// Corrupt or missing record reads as an empty set.
	m.kv.GetRecord(store.BucketModified, modifiedKey, &ids)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (m *ModifiedSet) save(set map[string]struct{}) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return m.kv.PutRecord(store.BucketModified, modifiedKey, ids)
}
