package newsapi

import "encoding/json"

// APIResponse is one page of the news API.
type APIResponse struct {
	Data       []json.RawMessage `json:"data"`
	NextCursor string            `json:"next_cursor"`
}

// Item is the wire form of a single article. The second group holds the
// older field names some API revisions still send; they are read only when
// the primary name is empty.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Snippet     string   `json:"snippet"`
	Content     string   `json:"content"`
	ArticleLink string   `json:"article_link"`
	SourceTitle string   `json:"source_title"`
	SourceLink  string   `json:"source_link"`
	MediaURL    string   `json:"media_url"`
	PubDate     string   `json:"pub_date"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`

	UUID        string   `json:"uuid"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	PublishedAt string   `json:"published_at"`
	Categories  []string `json:"categories"`
}
