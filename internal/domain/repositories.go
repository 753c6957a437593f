package domain

import "context"

// LibraryRepository: network operations against the remote music library
// (implemented by source clients).
type LibraryRepository interface {
	// GetPlaylists returns the user's full playlist listing. Callers filter
	// to editable playlists themselves.
	GetPlaylists(ctx context.Context) ([]Playlist, error)

	// GetPlaylistTracks returns one page of a playlist's track list. A short
	// or empty page signals the end of the list.
	GetPlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]Track, error)

	// AddTrack appends a song to a playlist. The remote append is assumed to
	// reject duplicate membership on its own.
	AddTrack(ctx context.Context, playlistID, songID string) error

	// ReplaceTracks replaces a playlist's entire ordered track list.
	ReplaceTracks(ctx context.Context, playlistID string, tracks []Track) error
}

// KV handles durable local persistence (BoltDB + memory). Values are
// JSON-marshaled records keyed by bucket and string key.
type KV interface {
	// GetRecord reads a record into dest. Missing or corrupt records report
	// false; they never surface an error.
	GetRecord(bucket, key string, dest any) bool

	// PutRecord marshals and durably writes a record.
	PutRecord(bucket, key string, value any) error

	// DeleteRecord removes a record if present.
	DeleteRecord(bucket, key string)

	// ForEachRecord visits every record in a bucket with its raw bytes.
	ForEachRecord(bucket string, fn func(key string, data []byte) error) error

	// ResetBuckets drops all records in the named buckets.
	ResetBuckets(buckets ...string) error

	Close() error
}
