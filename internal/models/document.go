package models

import (
	"time"

	"github.com/lib/pq"
)

// DocumentType distinguishes reading material from hands-on labs.
type DocumentType string

const (
	DocumentTypeDocument DocumentType = "document"
	DocumentTypeLab      DocumentType = "lab"
)

// Document is a piece of learning content within a track.
type Document struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Slug      string         `db:"slug" json:"slug"`
	Type      DocumentType   `db:"type" json:"type"`
	Track     string         `db:"track" json:"track"`
	Summary   string         `db:"summary" json:"summary"`
	Content   string         `db:"content" json:"content"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	Published bool           `db:"published" json:"published"`
	CreatedBy string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Type          *DocumentType
	Track         string
	Search        string
	Tags          []string
	PublishedOnly bool
	Page          int
	PageSize      int
}
