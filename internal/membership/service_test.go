package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfallow/cuelist/internal/adapter"
	"github.com/jfallow/cuelist/internal/domain"
	"github.com/jfallow/cuelist/internal/store"
)

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	kv, err := store.New("", "")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	repo := newFakeRepo()
	svc := NewService(repo, kv, adapter.NullLogger())
	svc.reconciler.batchDelay = 0
	svc.mutator.callDelay = 0
	return svc, repo
}

func TestService_EditablePlaylistsFiltersListing(t *testing.T) {
	svc, repo := newTestService(t)
	repo.playlists = []domain.Playlist{
		{ID: "mine", Name: "Mine", CanEdit: true},
		{ID: "curated", Name: "Editor's Picks", CanEdit: false},
	}

	listing, err := svc.EditablePlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "mine", listing[0].ID)
}

func TestService_ApplyThenReconcileSeesFreshState(t *testing.T) {
	svc, repo := newTestService(t)
	listing := []domain.Playlist{playlist("gym", "Gym", time.Now())}

	// Initial pass: song not in the playlist
	verdicts, err := svc.Reconcile(context.Background(), song("200"), listing)
	require.NoError(t, err)
	assert.False(t, verdicts[0].Member)

	// Commit an add; the remote now contains the song
	_, err = svc.Apply(context.Background(), song("200"), []domain.Change{{PlaylistID: "gym", Add: true}})
	require.NoError(t, err)
	repo.tracks["gym"] = []domain.Track{{ID: "i.a", CatalogID: "200"}}

	// The cached "not a member" entry is still fresh by age, but the
	// modified mark forces a refetch.
	verdicts, err = svc.Reconcile(context.Background(), song("200"), listing)
	require.NoError(t, err)
	assert.True(t, verdicts[0].Member)
}

func TestService_ClearCacheIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	repo.tracks["gym"] = []domain.Track{{CatalogID: "200"}}

	_, err := svc.Reconcile(context.Background(), song("200"),
		[]domain.Playlist{playlist("gym", "Gym", time.Now())})
	require.NoError(t, err)
	require.Equal(t, 1, svc.Stats().TotalPlaylists)

	require.NoError(t, svc.ClearCache())
	assert.Equal(t, 0, svc.Stats().TotalPlaylists)
	require.NoError(t, svc.ClearCache())
	assert.Equal(t, 0, svc.Stats().TotalPlaylists)
}

func TestService_SettingsRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	settings := svc.Settings()
	assert.True(t, settings.Enabled)
	assert.Equal(t, 5, settings.ExpirationMinutes)

	minutes := 60
	require.NoError(t, svc.SaveSettings(domain.SettingsPatch{ExpirationMinutes: &minutes}))
	assert.Equal(t, 60, svc.Settings().ExpirationMinutes)
}
