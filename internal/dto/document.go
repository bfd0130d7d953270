package dto

import (
	"time"

	"github.com/studiklab/portal-api/internal/models"
)

// DocumentSummary lists a document without its body.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Type      string    `json:"type"`
	Track     string    `json:"track"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDocumentSummary maps a document row to its listing shape.
func NewDocumentSummary(d models.Document) DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		Slug:      d.Slug,
		Type:      string(d.Type),
		Track:     d.Track,
		Summary:   d.Summary,
		Tags:      d.Tags,
		UpdatedAt: d.UpdatedAt,
	}
}

// UpsertDocumentRequest authors or edits a document.
type UpsertDocumentRequest struct {
	Title     string   `json:"title" binding:"required"`
	Slug      string   `json:"slug" binding:"required"`
	Type      string   `json:"type" binding:"required,oneof=document lab"`
	Track     string   `json:"track" binding:"required"`
	Summary   string   `json:"summary"`
	Content   string   `json:"content" binding:"required"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

// DocumentDetail is the full document body.
type DocumentDetail struct {
	DocumentSummary
	Content string `json:"content"`
}

// NewDocumentDetail maps a document row including its body.
func NewDocumentDetail(d models.Document) DocumentDetail {
	return DocumentDetail{DocumentSummary: NewDocumentSummary(d), Content: d.Content}
}
