package membership

import (
	"context"
	"sync"

	"github.com/jfallow/cuelist/internal/domain"
)

// fakeRepo implements domain.LibraryRepository with scripted responses and
// call recording.
type fakeRepo struct {
	mu sync.Mutex

	playlists []domain.Playlist
	tracks    map[string][]domain.Track

	trackErr   map[string]error // fail every track-page fetch for the playlist
	addErr     map[string]error
	replaceErr map[string]error

	trackPageCalls map[string]int
	addCalls       []string
	replaceCalls   map[string][]domain.Track

	// onTrackFetch runs at the start of every track-page fetch
	onTrackFetch func(playlistID string)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tracks:         make(map[string][]domain.Track),
		trackErr:       make(map[string]error),
		addErr:         make(map[string]error),
		replaceErr:     make(map[string]error),
		trackPageCalls: make(map[string]int),
		replaceCalls:   make(map[string][]domain.Track),
	}
}

func (f *fakeRepo) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Playlist(nil), f.playlists...), nil
}

func (f *fakeRepo) GetPlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]domain.Track, error) {
	if f.onTrackFetch != nil {
		f.onTrackFetch(playlistID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackPageCalls[playlistID]++

	if err := f.trackErr[playlistID]; err != nil {
		return nil, err
	}

	all := f.tracks[playlistID]
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return append([]domain.Track(nil), all[offset:end]...), nil
}

func (f *fakeRepo) AddTrack(ctx context.Context, playlistID, songID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addErr[playlistID]; err != nil {
		return err
	}
	f.addCalls = append(f.addCalls, playlistID)
	return nil
}

func (f *fakeRepo) ReplaceTracks(ctx context.Context, playlistID string, tracks []domain.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.replaceErr[playlistID]; err != nil {
		return err
	}
	f.replaceCalls[playlistID] = append([]domain.Track(nil), tracks...)
	return nil
}

func (f *fakeRepo) totalTrackPageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.trackPageCalls {
		total += n
	}
	return total
}
