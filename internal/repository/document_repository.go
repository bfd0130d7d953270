package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/studiklab/portal-api/internal/models"
)

// DocumentRepository persists learning documents and labs.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = "id, title, slug, type, track, summary, content, tags, published, created_by, created_at, updated_at"

// List returns documents matching the filter plus the total count.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.PublishedOnly {
		where = append(where, "published = TRUE")
	}
	if filter.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, string(*filter.Type))
	}
	if filter.Track != "" {
		where = append(where, fmt.Sprintf("track = $%d", len(args)+1))
		args = append(args, filter.Track)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(filter.Tags) > 0 {
		where = append(where, fmt.Sprintf("tags && $%d", len(args)+1))
		args = append(args, pq.StringArray(filter.Tags))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM documents WHERE %s ORDER BY title ASC LIMIT %d OFFSET %d",
		documentColumns, whereClause, size, offset)
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM documents WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return documents, total, nil
}

// FindBySlug fetches a document by its URL slug.
func (r *DocumentRepository) FindBySlug(ctx context.Context, slug string) (*models.Document, error) {
	var doc models.Document
	query := fmt.Sprintf("SELECT %s FROM documents WHERE slug = $1", documentColumns)
	if err := r.db.GetContext(ctx, &doc, query, slug); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `INSERT INTO documents (id, title, slug, type, track, summary, content, tags, published, created_by, created_at, updated_at)
VALUES (:id, :title, :slug, :type, :track, :summary, :content, :tags, :published, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Update persists mutable document fields.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := `UPDATE documents SET title = :title, summary = :summary, content = :content, tags = :tags, published = :published, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}
