package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// aboutPageID is the primary key of the only about_page row.
const aboutPageID = 1

// SQLMediaRepository stores the media library and the about page.
type SQLMediaRepository struct {
	db *sqlx.DB
}

// NewSQLMediaRepository creates a new SQLMediaRepository.
func NewSQLMediaRepository(db *sqlx.DB) *SQLMediaRepository {
	return &SQLMediaRepository{db: db}
}

// CreateMedia inserts a media item and sets its ID.
func (r *SQLMediaRepository) CreateMedia(ctx context.Context, item *MediaItem) error {
	query := `INSERT INTO media_items (file, title, uploaded_by_id, created_at)
		VALUES (:file, :title, :uploaded_by_id, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("failed to create media item: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read media item id: %w", err)
	}
	return nil
}

func (r *SQLMediaRepository) GetMediaByID(ctx context.Context, id int64) (*MediaItem, error) {
	var item MediaItem
	query := `SELECT id, file, title, uploaded_by_id, created_at FROM media_items WHERE id = ?`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media item %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get media item: %w", err)
	}
	return &item, nil
}

// ListMedia returns the library newest first.
func (r *SQLMediaRepository) ListMedia(ctx context.Context) ([]*MediaItem, error) {
	query := `SELECT id, file, title, uploaded_by_id, created_at FROM media_items ORDER BY created_at DESC, id DESC`
	items := []*MediaItem{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list media items: %w", err)
	}
	return items, nil
}

func (r *SQLMediaRepository) DeleteMedia(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media item: %w", err)
	}
	return expectRow(result, "media item", id)
}

// GetAbout returns the about page. A site that never saved one gets an empty page.
func (r *SQLMediaRepository) GetAbout(ctx context.Context) (*AboutPage, error) {
	var page AboutPage
	query := `SELECT id, content, image, updated_at FROM about_page WHERE id = ?`
	if err := r.db.GetContext(ctx, &page, query, aboutPageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &AboutPage{ID: aboutPageID}, nil
		}
		return nil, fmt.Errorf("failed to get about page: %w", err)
	}
	return &page, nil
}

// SaveAbout creates or replaces the about page.
func (r *SQLMediaRepository) SaveAbout(ctx context.Context, page *AboutPage) error {
	page.ID = aboutPageID
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = time.Now().UTC()
	}
	var query string
	if r.db.DriverName() == DriverMySQL {
		query = `INSERT INTO about_page (id, content, image, updated_at) VALUES (:id, :content, :image, :updated_at)
			ON DUPLICATE KEY UPDATE content = VALUES(content), image = VALUES(image), updated_at = VALUES(updated_at)`
	} else {
		query = `INSERT INTO about_page (id, content, image, updated_at) VALUES (:id, :content, :image, :updated_at)
			ON CONFLICT (id) DO UPDATE SET content = excluded.content, image = excluded.image, updated_at = excluded.updated_at`
	}
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("failed to save about page: %w", err)
	}
	return nil
}
