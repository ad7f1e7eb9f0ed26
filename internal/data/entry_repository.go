package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const entrySelect = `SELECT e.id, e.title, e.content, e.image, e.author_id, u.username AS author_name,
	e.is_published, e.created_at, e.updated_at
	FROM journal_entries e JOIN users u ON u.id = e.author_id`

// EntryScope narrows an entry listing to what a viewer may see.
type EntryScope struct {
	All      bool   // every entry regardless of status
	ViewerID *int64 // published entries plus the viewer's own
}

// SQLEntryRepository is the sqlx implementation of journal entry storage.
type SQLEntryRepository struct {
	db *sqlx.DB
}

// NewSQLEntryRepository creates a new SQLEntryRepository.
func NewSQLEntryRepository(db *sqlx.DB) *SQLEntryRepository {
	return &SQLEntryRepository{db: db}
}

// CreateEntry inserts a new entry and sets its ID.
func (r *SQLEntryRepository) CreateEntry(ctx context.Context, entry *JournalEntry) error {
	query := `INSERT INTO journal_entries (title, content, image, author_id, is_published, created_at, updated_at)
		VALUES (:title, :content, :image, :author_id, :is_published, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to execute create entry query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetEntryByID retrieves a single entry by its ID.
func (r *SQLEntryRepository) GetEntryByID(ctx context.Context, id int64) (*JournalEntry, error) {
	var entry JournalEntry
	if err := r.db.GetContext(ctx, &entry, entrySelect+` WHERE e.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get entry by id: %w", err)
	}
	return &entry, nil
}

// ListEntries returns entries newest first, limited to the given scope.
func (r *SQLEntryRepository) ListEntries(ctx context.Context, scope EntryScope) ([]*JournalEntry, error) {
	query := entrySelect
	var args []interface{}
	switch {
	case scope.All:
	case scope.ViewerID != nil:
		query += ` WHERE e.is_published = ? OR e.author_id = ?`
		args = append(args, true, *scope.ViewerID)
	default:
		query += ` WHERE e.is_published = ?`
		args = append(args, true)
	}
	query += ` ORDER BY e.created_at DESC, e.id DESC`

	entries := []*JournalEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry updates an existing entry in place.
func (r *SQLEntryRepository) UpdateEntry(ctx context.Context, entry *JournalEntry) error {
	query := `UPDATE journal_entries SET title = :title, content = :content, image = :image,
		is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectRow(result, "entry", entry.ID)
}

// DeleteEntry removes an entry and its comments.
func (r *SQLEntryRepository) DeleteEntry(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete entry comments: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return expectRow(result, "entry", id)
	})
}

// CreateComment inserts a comment on an entry.
func (r *SQLEntryRepository) CreateComment(ctx context.Context, c *Comment) error {
	query := `INSERT INTO comments (entry_id, author_id, content, created_at, updated_at)
		VALUES (:entry_id, :author_id, :content, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read comment id: %w", err)
	}
	return nil
}

// ListComments returns an entry's comments oldest first.
func (r *SQLEntryRepository) ListComments(ctx context.Context, entryID int64) ([]*Comment, error) {
	query := `SELECT c.id, c.entry_id, c.author_id, u.username AS author_name, c.content, c.created_at, c.updated_at
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.entry_id = ? ORDER BY c.created_at ASC, c.id ASC`
	comments := []*Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, entryID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// expectRow turns a zero-row write into ErrNotFound.
func expectRow(result sql.Result, what string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
