package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const diarySelect = `SELECT p.id, p.title, p.content, p.image, p.status, p.author_id, u.username AS author_name,
	p.created_at, p.updated_at
	FROM diary_pages p JOIN users u ON u.id = p.author_id`

// SQLDiaryRepository stores diary pages and their comments.
type SQLDiaryRepository struct {
	db *sqlx.DB
}

// NewSQLDiaryRepository creates a new SQLDiaryRepository.
func NewSQLDiaryRepository(db *sqlx.DB) *SQLDiaryRepository {
	return &SQLDiaryRepository{db: db}
}

func (r *SQLDiaryRepository) CreatePage(ctx context.Context, page *DiaryPage) error {
	query := `INSERT INTO diary_pages (title, content, image, status, author_id, created_at, updated_at)
		VALUES (:title, :content, :image, :status, :author_id, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		return fmt.Errorf("failed to create diary page: %w", err)
	}
	if page.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read diary page id: %w", err)
	}
	return nil
}

func (r *SQLDiaryRepository) GetPageByID(ctx context.Context, id int64) (*DiaryPage, error) {
	var page DiaryPage
	if err := r.db.GetContext(ctx, &page, diarySelect+` WHERE p.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("diary page %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get diary page: %w", err)
	}
	return &page, nil
}

// ListPages returns pages newest first. Drafts are included only when includeDrafts is set.
func (r *SQLDiaryRepository) ListPages(ctx context.Context, includeDrafts bool) ([]*DiaryPage, error) {
	query := diarySelect
	var args []interface{}
	if !includeDrafts {
		query += ` WHERE p.status = ?`
		args = append(args, DiaryPublic)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	pages := []*DiaryPage{}
	if err := r.db.SelectContext(ctx, &pages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list diary pages: %w", err)
	}
	return pages, nil
}

func (r *SQLDiaryRepository) UpdatePage(ctx context.Context, page *DiaryPage) error {
	query := `UPDATE diary_pages SET title = :title, content = :content, image = :image, status = :status,
		updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		return fmt.Errorf("failed to update diary page: %w", err)
	}
	return expectRow(result, "diary page", page.ID)
}

// DeletePage removes a page and its comments.
func (r *SQLDiaryRepository) DeletePage(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM diary_comments WHERE page_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete diary comments: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM diary_pages WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete diary page: %w", err)
		}
		return expectRow(result, "diary page", id)
	})
}

func (r *SQLDiaryRepository) CreateComment(ctx context.Context, c *DiaryComment) error {
	query := `INSERT INTO diary_comments (page_id, author_id, content, created_at)
		VALUES (:page_id, :author_id, :content, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create diary comment: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read diary comment id: %w", err)
	}
	return nil
}

func (r *SQLDiaryRepository) ListComments(ctx context.Context, pageID int64) ([]*DiaryComment, error) {
	query := `SELECT c.id, c.page_id, c.author_id, u.username AS author_name, c.content, c.created_at
		FROM diary_comments c JOIN users u ON u.id = c.author_id
		WHERE c.page_id = ? ORDER BY c.created_at ASC, c.id ASC`
	comments := []*DiaryComment{}
	if err := r.db.SelectContext(ctx, &comments, query, pageID); err != nil {
		return nil, fmt.Errorf("failed to list diary comments: %w", err)
	}
	return comments, nil
}
