package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type documentRepository interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	FindBySlug(ctx context.Context, slug string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
}

// DocumentService serves learning documents and labs.
type DocumentService struct {
	repo   documentRepository
	cfg    config.DocumentsConfig
	logger *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(repo documentRepository, cfg config.DocumentsConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{repo: repo, cfg: cfg, logger: logger}
}

// List returns published documents matching the filter. Students never see
// unpublished content; mentors and admins may request it.
func (s *DocumentService) List(ctx context.Context, role models.UserRole, filter models.DocumentFilter) ([]dto.DocumentSummary, models.Pagination, error) {
	if role == models.RoleStudent {
		filter.PublishedOnly = true
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.cfg.DefaultPageSize
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	documents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	items := make([]dto.DocumentSummary, 0, len(documents))
	for _, doc := range documents {
		items = append(items, dto.NewDocumentSummary(doc))
	}
	_, totalPages := clampPage(filter.Page, total, filter.PageSize)
	pagination := models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
	return items, pagination, nil
}

// Create authors a new document or lab. Slugs must be unique; a duplicate
// surfaces as a conflict.
func (s *DocumentService) Create(ctx context.Context, authorID string, req dto.UpsertDocumentRequest) (*dto.DocumentDetail, error) {
	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slug already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	doc := &models.Document{
		Title:     req.Title,
		Slug:      req.Slug,
		Type:      models.DocumentType(req.Type),
		Track:     req.Track,
		Summary:   req.Summary,
		Content:   req.Content,
		Tags:      req.Tags,
		Published: req.Published,
		CreatedBy: authorID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	detail := dto.NewDocumentDetail(*doc)
	return &detail, nil
}

// Update edits an existing document in place, keyed by slug.
func (s *DocumentService) Update(ctx context.Context, slug string, req dto.UpsertDocumentRequest) (*dto.DocumentDetail, error) {
	doc, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, err
	}

	doc.Title = req.Title
	doc.Type = models.DocumentType(req.Type)
	doc.Track = req.Track
	doc.Summary = req.Summary
	doc.Content = req.Content
	doc.Tags = req.Tags
	doc.Published = req.Published
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}
	detail := dto.NewDocumentDetail(*doc)
	return &detail, nil
}

// GetBySlug returns one document with its body.
func (s *DocumentService) GetBySlug(ctx context.Context, role models.UserRole, slug string) (*dto.DocumentDetail, error) {
	doc, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, err
	}
	if !doc.Published && role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	detail := dto.NewDocumentDetail(*doc)
	return &detail, nil
}
