package membership

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfallow/cuelist/internal/adapter"
	"github.com/jfallow/cuelist/internal/cache"
	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/store"
)

func newTestMutator(t *testing.T) (*Mutator, *fakeRepo, *cache.ModifiedSet) {
	t.Helper()
	kv, err := store.New("", "")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	repo := newFakeRepo()
	modified := cache.NewModifiedSet(kv)
	m := NewMutator(repo, modified, adapter.NullLogger())
	m.callDelay = 0 // keep tests fast
	return m, repo, modified
}

func TestApply_AddMarksModifiedImmediately(t *testing.T) {
	m, repo, modified := newTestMutator(t)

	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "gym", Add: true},
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.Outcome{PlaylistID: "gym", Added: true}, outcomes[0])
	assert.Equal(t, []string{"gym"}, repo.addCalls)
	assert.Equal(t, []string{"gym"}, modified.List())
}

func TestApply_HaltsOnFirstFailureWithPartialOutcomes(t *testing.T) {
	m, repo, modified := newTestMutator(t)
	repo.addErr["second"] = domain.ErrAuthFailed

	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "first", Add: true},
		{PlaylistID: "second", Add: true},
		{PlaylistID: "third", Add: true},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	require.Len(t, outcomes, 1, "only the change before the failure succeeded")
	assert.Equal(t, "first", outcomes[0].PlaylistID)
	assert.Equal(t, []string{"first"}, modified.List(), "untouched playlists not marked")
	assert.Equal(t, []string{"first"}, repo.addCalls, "no calls after the halt")
}

func TestApply_RemoveExcludesSingleMatchingEntry(t *testing.T) {
	m, repo, modified := newTestMutator(t)
	repo.tracks["gym"] = []domain.Track{
		{ID: "i.keep1"},
		{ID: "i.target", CatalogID: "200"},
		{ID: "i.keep2"},
		{ID: "i.dupe", CatalogID: "200"}, // same song under another library entry
	}

	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "gym", Add: false},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	replaced := repo.replaceCalls["gym"]
	require.Len(t, replaced, 3, "only the first match is excluded")
	assert.Equal(t, "i.keep1", replaced[0].ID)
	assert.Equal(t, "i.keep2", replaced[1].ID)
	assert.Equal(t, "i.dupe", replaced[2].ID)
	assert.Equal(t, []string{"gym"}, modified.List())
}

func TestApply_RemoveSpansPages(t *testing.T) {
	m, repo, _ := newTestMutator(t)
	tracks := make([]domain.Track, 150)
	for i := range tracks {
		tracks[i] = domain.Track{ID: fmt.Sprintf("i.t%d", i)}
	}
	repo.tracks["big"] = tracks

	_, err := m.Apply(context.Background(), song("i.t120"), []domain.Change{
		{PlaylistID: "big", Add: false},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.trackPageCalls["big"], "150 tracks need two pages")
	assert.Len(t, repo.replaceCalls["big"], 149)
}

func TestApply_RemoveMissingSongSkipsReplace(t *testing.T) {
	m, repo, modified := newTestMutator(t)
	repo.tracks["gym"] = []domain.Track{{ID: "i.other"}}

	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "gym", Add: false},
	})
	require.NoError(t, err)

	assert.Len(t, outcomes, 1)
	assert.NotContains(t, repo.replaceCalls, "gym", "no replace issued when nothing matches")
	assert.Equal(t, []string{"gym"}, modified.List())
}

func TestApply_RemoveFetchFailureYieldsNoReplace(t *testing.T) {
	m, repo, _ := newTestMutator(t)
	repo.trackErr["gym"] = errors.New("boom")

	// Pagination failure reads as an empty list, so there is nothing to
	// match and no replace to issue.
	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "gym", Add: false},
	})
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
	assert.NotContains(t, repo.replaceCalls, "gym")
}

func TestApply_MixedBatchAppliesInOrder(t *testing.T) {
	m, repo, modified := newTestMutator(t)
	repo.tracks["old"] = []domain.Track{{CatalogID: "200"}}

	outcomes, err := m.Apply(context.Background(), song("200"), []domain.Change{
		{PlaylistID: "new", Add: true},
		{PlaylistID: "old", Add: false},
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Added)
	assert.False(t, outcomes[1].Added)
	assert.Equal(t, []string{"new", "old"}, modified.List())
}

func TestApply_LargeBatchStillCompletes(t *testing.T) {
	m, repo, _ := newTestMutator(t)
	m.callDelay = 0 // threshold path without real sleeping

	var changes []domain.Change
	for i := 0; i < 7; i++ {
		changes = append(changes, domain.Change{PlaylistID: fmt.Sprintf("p%d", i), Add: true})
	}

	outcomes, err := m.Apply(context.Background(), song("200"), changes)
	require.NoError(t, err)
	assert.Len(t, outcomes, 7)
	assert.Len(t, repo.addCalls, 7)
}

func TestApply_CancelledContextStopsBetweenCalls(t *testing.T) {
	m, _, modified := newTestMutator(t)
	m.callDelay = time.Second // the throttle select must observe cancellation first

	ctx, cancel := context.WithCancel(context.Background())

	var changes []domain.Change
	for i := 0; i < 6; i++ {
		changes = append(changes, domain.Change{PlaylistID: fmt.Sprintf("p%d", i), Add: true})
	}
	cancel()

	outcomes, err := m.Apply(ctx, song("200"), changes)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, len(outcomes), len(changes))
	assert.Equal(t, len(outcomes), len(modified.List()))
}
