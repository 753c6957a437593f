package applemusic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jfallow/cuelist/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Cuelist/1.0"

	// listingPageSize paginates the playlist listing itself; track-list
	// pagination is driven by the caller.
	listingPageSize = 100
)

// Client implements domain.LibraryRepository against an Apple-Music-shaped
// library API.
type Client struct {
	baseURL        string
	developerToken string
	userToken      string
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient creates a new library API client
func NewClient(baseURL, developerToken, userToken string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        baseURL,
		developerToken: developerToken,
		userToken:      userToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs an authenticated request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.developerToken == "" || c.userToken == "" {
		return nil, domain.ErrAuthFailed
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.developerToken)
	req.Header.Set("Music-User-Token", c.userToken)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("library request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("library request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrPlaylistNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("library request error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return respBody, nil
}

// GetPlaylists returns the user's full library playlist listing, following
// pagination until a short page.
func (c *Client) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	var playlists []domain.Playlist
	for offset := 0; ; offset += listingPageSize {
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(listingPageSize))

		body, err := c.doRequest(ctx, http.MethodGet, "/v1/me/library/playlists", query, nil)
		if err != nil {
			return nil, err
		}

		var page pageResponse
		if err := json.Unmarshal(body, &page); err != nil {
			c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		playlists = append(playlists, MapPlaylists(page.Data)...)
		if len(page.Data) < listingPageSize {
			return playlists, nil
		}
	}
}

// GetPlaylistTracks returns one page of a playlist's track list.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string, offset, limit int) ([]domain.Track, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	path := fmt.Sprintf("/v1/me/library/playlists/%s/tracks", playlistID)
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var page pageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapTracks(page.Data), nil
}

// AddTrack appends a song to a playlist. The remote append rejects duplicate
// membership itself; no pre-check happens here.
func (c *Client) AddTrack(ctx context.Context, playlistID, songID string) error {
	path := fmt.Sprintf("/v1/me/library/playlists/%s/tracks", playlistID)
	payload := trackRefRequest{Data: []trackRef{{ID: songID, Type: refType(songID)}}}

	_, err := c.doRequest(ctx, http.MethodPost, path, nil, payload)
	return err
}

// ReplaceTracks replaces a playlist's entire ordered track list.
func (c *Client) ReplaceTracks(ctx context.Context, playlistID string, tracks []domain.Track) error {
	refs := make([]trackRef, 0, len(tracks))
	for _, t := range tracks {
		refs = append(refs, trackRef{ID: t.ID, Type: refType(t.ID)})
	}

	path := fmt.Sprintf("/v1/me/library/playlists/%s/tracks", playlistID)
	_, err := c.doRequest(ctx, http.MethodPut, path, nil, trackRefRequest{Data: refs})
	return err
}
