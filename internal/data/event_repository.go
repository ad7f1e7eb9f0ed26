package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const eventColumns = `id, title, description, event_type, event_date, event_end_date, location, image,
	max_participants, is_published, created_by_id, created_at, updated_at`

// JoinOutcome is the result of asking the registration ledger for a seat.
type JoinOutcome int

const (
	Joined JoinOutcome = iota
	AlreadyRegistered
	EventFull
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case AlreadyRegistered:
		return "already_registered"
	case EventFull:
		return "event_full"
	default:
		return "unknown"
	}
}

// EventScope narrows an event listing.
type EventScope struct {
	IncludeUnpublished bool
	Search             string
}

// SQLEventRepository stores path events, their comments and registrations.
type SQLEventRepository struct {
	db *sqlx.DB
}

// NewSQLEventRepository creates a new SQLEventRepository.
func NewSQLEventRepository(db *sqlx.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

// CreateEvent inserts a new event and sets its ID.
func (r *SQLEventRepository) CreateEvent(ctx context.Context, event *PathEvent) error {
	query := `INSERT INTO path_events (title, description, event_type, event_date, event_end_date, location, image,
		max_participants, is_published, created_by_id, created_at, updated_at)
		VALUES (:title, :description, :event_type, :event_date, :event_end_date, :location, :image,
		:max_participants, :is_published, :created_by_id, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if event.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}
	return nil
}

// GetEventByID retrieves a single event.
func (r *SQLEventRepository) GetEventByID(ctx context.Context, id int64) (*PathEvent, error) {
	var event PathEvent
	if err := r.db.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM path_events WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// ListEvents returns events ordered by start time ascending.
func (r *SQLEventRepository) ListEvents(ctx context.Context, scope EventScope) ([]*PathEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM path_events WHERE 1 = 1`
	var args []interface{}
	if !scope.IncludeUnpublished {
		query += ` AND is_published = ?`
		args = append(args, true)
	}
	if scope.Search != "" {
		like := "%" + scope.Search + "%"
		query += ` AND (title LIKE ? OR description LIKE ? OR location LIKE ?)`
		args = append(args, like, like, like)
	}
	query += ` ORDER BY event_date ASC, id ASC`

	events := []*PathEvent{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// UpdateEvent updates an event in place.
func (r *SQLEventRepository) UpdateEvent(ctx context.Context, event *PathEvent) error {
	query := `UPDATE path_events SET title = :title, description = :description, event_type = :event_type,
		event_date = :event_date, event_end_date = :event_end_date, location = :location, image = :image,
		max_participants = :max_participants, is_published = :is_published, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return expectRow(result, "event", event.ID)
}

// DeleteEvent removes an event together with its registrations and comments.
func (r *SQLEventRepository) DeleteEvent(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM path_event_registrations WHERE event_id = ?`,
			`DELETE FROM path_event_comments WHERE event_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete event dependents: %w", err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM path_events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return expectRow(result, "event", id)
	})
}

// CreateEventComment inserts a comment on an event.
func (r *SQLEventRepository) CreateEventComment(ctx context.Context, c *PathEventComment) error {
	query := `INSERT INTO path_event_comments (event_id, author_id, content, created_at)
		VALUES (:event_id, :author_id, :content, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create event comment: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read event comment id: %w", err)
	}
	return nil
}

// ListEventComments returns an event's comments oldest first.
func (r *SQLEventRepository) ListEventComments(ctx context.Context, eventID int64) ([]*PathEventComment, error) {
	query := `SELECT c.id, c.event_id, c.author_id, u.username AS author_name, c.content, c.created_at
		FROM path_event_comments c JOIN users u ON u.id = c.author_id
		WHERE c.event_id = ? ORDER BY c.created_at ASC, c.id ASC`
	comments := []*PathEventComment{}
	if err := r.db.SelectContext(ctx, &comments, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list event comments: %w", err)
	}
	return comments, nil
}

// Register gives userID a seat on eventID.
//
// The event row is locked for the duration of the transaction, so the
// duplicate check, the capacity count and the insert are atomic with respect
// to other joins on the same event. The unique (event_id, user_id) index
// remains the last line: a violation is reported as AlreadyRegistered.
func (r *SQLEventRepository) Register(ctx context.Context, eventID, userID int64, at time.Time) (JoinOutcome, error) {
	outcome := Joined
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var maxParticipants sql.NullInt64
		err := tx.GetContext(ctx, &maxParticipants,
			`SELECT max_participants FROM path_events WHERE id = ?`+forUpdate(r.db), eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("event %d: %w", eventID, ErrNotFound)
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		var existing int
		if err := tx.GetContext(ctx, &existing,
			`SELECT COUNT(*) FROM path_event_registrations WHERE event_id = ? AND user_id = ?`, eventID, userID); err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if existing > 0 {
			outcome = AlreadyRegistered
			return nil
		}

		if maxParticipants.Valid {
			var count int64
			if err := tx.GetContext(ctx, &count,
				`SELECT COUNT(*) FROM path_event_registrations WHERE event_id = ?`, eventID); err != nil {
				return fmt.Errorf("failed to count registrations: %w", err)
			}
			if count >= maxParticipants.Int64 {
				outcome = EventFull
				return nil
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO path_event_registrations (event_id, user_id, joined_at) VALUES (?, ?, ?)`,
			eventID, userID, at.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				outcome = AlreadyRegistered
				return nil
			}
			return fmt.Errorf("failed to insert registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

// Unregister removes the user's registration if present.
func (r *SQLEventRepository) Unregister(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM path_event_registrations WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

// CountRegistrations counts the live registrations of an event.
func (r *SQLEventRepository) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM path_event_registrations WHERE event_id = ?`, eventID); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// IsRegistered reports whether the user holds a seat on the event.
func (r *SQLEventRepository) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM path_event_registrations WHERE event_id = ? AND user_id = ?`, eventID, userID); err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return count > 0, nil
}

// ListRegistrations returns an event's registrations in join order.
func (r *SQLEventRepository) ListRegistrations(ctx context.Context, eventID int64) ([]*PathEventRegistration, error) {
	query := `SELECT r.id, r.event_id, r.user_id, u.username, r.joined_at
		FROM path_event_registrations r JOIN users u ON u.id = r.user_id
		WHERE r.event_id = ? ORDER BY r.joined_at ASC, r.id ASC`
	regs := []*PathEventRegistration{}
	if err := r.db.SelectContext(ctx, &regs, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}
