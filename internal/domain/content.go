package domain

import "time"

const (
	BodyFormatBasicHTML = "basic_html"

	FieldTypeString          = "string"
	FieldTypeTextWithSummary = "text_with_summary"
	FieldTypeLanguage        = "language"
	FieldTypeLink            = "link"

	FieldLangcode = "langcode"
)

// ContentRecord is a materialized article.
type ContentRecord struct {
	ID          int64     `db:"id"`
	ExternalID  string    `db:"external_id"`
	Title       string    `db:"title"`
	Body        string    `db:"body"`
	BodyFormat  string    `db:"body_format"`
	Summary     string    `db:"summary"`
	SourceTitle string    `db:"source_title"`
	SourceLink  string    `db:"source_link"`
	Link        string    `db:"link"`
	Langcode    string    `db:"langcode"`
	ImageFileID *int64    `db:"image_file_id"`
	CreatedAt   time.Time `db:"created_at"`
	CategoryIDs []int64   `db:"-"`
}

// Field is one translatable value of a record.
type Field struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Summary string `json:"summary,omitempty"`
}

// Fields returns the record's translatable fields in storage order.
func (r *ContentRecord) Fields() []Field {
	return []Field{
		{Name: "title", Type: FieldTypeString, Value: r.Title},
		{Name: "body", Type: FieldTypeTextWithSummary, Value: r.Body, Summary: r.Summary},
		{Name: FieldLangcode, Type: FieldTypeLanguage, Value: r.Langcode},
		{Name: "source_title", Type: FieldTypeString, Value: r.SourceTitle},
		{Name: "link", Type: FieldTypeLink, Value: r.Link},
	}
}

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

const FileStatusPermanent = "permanent"

// File is a stored binary, such as a downloaded cover image.
type File struct {
	ID        int64     `db:"id"`
	URI       string    `db:"uri"`
	Filename  string    `db:"filename"`
	Mime      string    `db:"mime"`
	Size      int64     `db:"size"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// TranslationRecord holds a record's fields in a second language.
type TranslationRecord struct {
	ID       int64
	RecordID int64
	Langcode string
	Fields   []Field
}

// ContentCreated is dispatched after a record has been stored.
type ContentCreated struct {
	Record *ContentRecord
}
