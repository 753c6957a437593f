package applemusic

// Wire types for the library playlist endpoints.

// pageResponse is the envelope every collection endpoint returns.
type pageResponse struct {
	Data []resource `json:"data"`
	Next string     `json:"next,omitempty"`
}

type resource struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	Name             string     `json:"name"`
	CanEdit          bool       `json:"canEdit"`
	LastModifiedDate string     `json:"lastModifiedDate,omitempty"`
	DateAdded        string     `json:"dateAdded,omitempty"`
	Artwork          *artwork   `json:"artwork,omitempty"`
	PlayParams       playParams `json:"playParams"`
}

type playParams struct {
	ID        string `json:"id"`
	CatalogID string `json:"catalogId,omitempty"`
	GlobalID  string `json:"globalId,omitempty"`
}

type artwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// trackRef is the request shape for add/replace track calls.
type trackRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type trackRefRequest struct {
	Data []trackRef `json:"data"`
}
