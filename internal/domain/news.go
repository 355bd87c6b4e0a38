package domain

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned by stores when a unique key already exists.
	ErrDuplicate = errors.New("duplicate record")
	ErrNotFound  = errors.New("record not found")
)

// NewsItem is a single article as delivered by the news API.
type NewsItem struct {
	ExternalID  string
	Title       string
	Description string
	Snippet     string
	Content     string
	Link        string
	SourceTitle string
	SourceLink  string
	ImageURL    string
	PublishedAt time.Time
	Language    string
	Categories  []string
}

// RawItem is one element of an API page, kept verbatim for the work queue.
type RawItem struct {
	ExternalID string
	Payload    json.RawMessage
}

type Page struct {
	Items      []RawItem
	NextCursor string
}

// Query holds the API filters. Empty filters are not sent.
type Query struct {
	Language   string
	Keywords   string
	Categories []string
	StartDate  string
	EndDate    string
	PerPage    int
}

// FetchStats holds statistics about a fetch run.
type FetchStats struct {
	Pages    int
	Fetched  int
	Existing int
	Enqueued int
	Invalid  int
	Duration time.Duration
}
