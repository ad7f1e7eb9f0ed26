package service

import (
	"context"
	"fmt"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
)

// RegistrationRepository holds the event registrations.
type RegistrationRepository interface {
	GetEventByID(ctx context.Context, id int64) (*data.PathEvent, error)
	Register(ctx context.Context, eventID, userID int64, at time.Time) (data.JoinOutcome, error)
	Unregister(ctx context.Context, eventID, userID int64) error
	CountRegistrations(ctx context.Context, eventID int64) (int, error)
	IsRegistered(ctx context.Context, eventID, userID int64) (bool, error)
	ListRegistrations(ctx context.Context, eventID int64) ([]*data.PathEventRegistration, error)
}

// JoinObserver is told about every join attempt that reached the ledger.
type JoinObserver interface {
	ObserveJoin(outcome data.JoinOutcome)
}

// Ledger enforces one registration per user per event and the event's capacity.
type Ledger struct {
	repo     RegistrationRepository
	observer JoinObserver
	log      logger.Logger
	now      func() time.Time
}

// NewLedger creates a Ledger. observer may be nil.
func NewLedger(repo RegistrationRepository, observer JoinObserver, log logger.Logger) *Ledger {
	return &Ledger{repo: repo, observer: observer, log: log, now: time.Now}
}

// Join registers the actor for the event. AlreadyRegistered and EventFull are
// outcomes, not errors; errors are reserved for missing or hidden events,
// anonymous actors and storage failures.
func (l *Ledger) Join(ctx context.Context, actor policy.Actor, eventID int64) (data.JoinOutcome, error) {
	event, err := l.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return data.Joined, err
	}
	switch policy.CanJoin(actor, event) {
	case policy.NotFound:
		return data.Joined, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	case policy.Forbidden:
		return data.Joined, denied(actor)
	}

	outcome, err := l.repo.Register(ctx, eventID, actor.UserID, l.now().UTC())
	if err != nil {
		return outcome, err
	}
	if l.observer != nil {
		l.observer.ObserveJoin(outcome)
	}
	l.log.Info(fmt.Sprintf("Join event %d by user %d: %s", eventID, actor.UserID, outcome))
	return outcome, nil
}

// Leave drops the actor's registration. Leaving an event one never joined succeeds.
func (l *Ledger) Leave(ctx context.Context, actor policy.Actor, eventID int64) error {
	if !actor.Authenticated {
		return ErrUnauthenticated
	}
	return l.repo.Unregister(ctx, eventID, actor.UserID)
}

// ParticipantCount always counts the live registration rows.
func (l *Ledger) ParticipantCount(ctx context.Context, eventID int64) (int, error) {
	return l.repo.CountRegistrations(ctx, eventID)
}

// IsRegistered reports whether the actor holds a seat. Anonymous actors never do.
func (l *Ledger) IsRegistered(ctx context.Context, actor policy.Actor, eventID int64) (bool, error) {
	if !actor.Authenticated {
		return false, nil
	}
	return l.repo.IsRegistered(ctx, eventID, actor.UserID)
}

// Participants lists who joined, in join order.
func (l *Ledger) Participants(ctx context.Context, eventID int64) ([]*data.PathEventRegistration, error) {
	return l.repo.ListRegistrations(ctx, eventID)
}
