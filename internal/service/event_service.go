package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-journal-app/internal/calendar"
	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
)

// EventRepository defines the database operations on path events.
type EventRepository interface {
	RegistrationRepository
	CreateEvent(ctx context.Context, event *data.PathEvent) error
	ListEvents(ctx context.Context, scope data.EventScope) ([]*data.PathEvent, error)
	UpdateEvent(ctx context.Context, event *data.PathEvent) error
	DeleteEvent(ctx context.Context, id int64) error
	CreateEventComment(ctx context.Context, c *data.PathEventComment) error
	ListEventComments(ctx context.Context, eventID int64) ([]*data.PathEventComment, error)
}

// EventInput carries the editable fields of an event.
type EventInput struct {
	Title           string
	Description     string
	EventType       data.EventType
	StartsAt        time.Time
	EndsAt          *time.Time
	Location        string
	MaxParticipants *int64
	Published       bool
	Image           *string
}

// CalendarQuery is the raw calendar query string. Bad values are ignored.
type CalendarQuery struct {
	Search     string
	SearchDate string
	Year       string
	Month      string
}

// CalendarPage is everything the calendar screen shows.
type CalendarPage struct {
	*calendar.Month
	Search     string
	SearchDate string
	// Day is set when a valid search_date narrowed the listing.
	Day *time.Time
}

// EventDetail is an event with its comments and registration state.
type EventDetail struct {
	Event        *data.PathEvent
	Comments     []*data.PathEventComment
	Participants []*data.PathEventRegistration
	Count        int
	IsRegistered bool
	// SpotsLeft is nil for events without a cap.
	SpotsLeft *int64
}

// IsFull reports whether no seat is left.
func (d *EventDetail) IsFull() bool {
	return d.SpotsLeft != nil && *d.SpotsLeft <= 0
}

// EventServicer defines the calendar operations used by the handlers.
type EventServicer interface {
	Calendar(ctx context.Context, actor policy.Actor, q CalendarQuery) (*CalendarPage, error)
	Detail(ctx context.Context, actor policy.Actor, id int64) (*EventDetail, error)
	Get(ctx context.Context, actor policy.Actor, id int64) (*data.PathEvent, error)
	Create(ctx context.Context, actor policy.Actor, in EventInput) (*data.PathEvent, error)
	Update(ctx context.Context, actor policy.Actor, id int64, in EventInput) (*data.PathEvent, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
	AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.PathEventComment, error)
	Join(ctx context.Context, actor policy.Actor, id int64) (data.JoinOutcome, error)
	Leave(ctx context.Context, actor policy.Actor, id int64) error
	Published(ctx context.Context) ([]*data.PathEvent, error)
}

// EventService provides business logic for the events calendar.
type EventService struct {
	repo            EventRepository
	ledger          *Ledger
	renderer        *Renderer
	files           FileRemover
	log             logger.Logger
	loc             *time.Location
	recentPastLimit int
	now             func() time.Time
}

var _ EventServicer = (*EventService)(nil)

// NewEventService creates a new EventService. Dates are bucketed in loc.
func NewEventService(repo EventRepository, ledger *Ledger, renderer *Renderer, files FileRemover, loc *time.Location, recentPastLimit int, log logger.Logger) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{
		repo:            repo,
		ledger:          ledger,
		renderer:        renderer,
		files:           files,
		log:             log,
		loc:             loc,
		recentPastLimit: recentPastLimit,
		now:             time.Now,
	}
}

// Calendar builds the month view. A valid search_date narrows the grid to
// that day and, when no month was asked for, shows the month containing it.
// Upcoming and RecentPast always cover every visible event.
func (s *EventService) Calendar(ctx context.Context, actor policy.Actor, q CalendarQuery) (*CalendarPage, error) {
	search := strings.TrimSpace(q.Search)
	events, err := s.repo.ListEvents(ctx, policy.EventListScope(actor, search))
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	year, month := calendar.ParseYearMonth(q.Year, q.Month, now)
	page := &CalendarPage{Search: search}

	grid := events
	if day, ok := calendar.ParseDate(q.SearchDate, s.loc); ok {
		grid = calendar.OnDay(events, day, s.loc)
		page.Day = &day
		page.SearchDate = day.Format("2006-01-02")
		if strings.TrimSpace(q.Year) == "" && strings.TrimSpace(q.Month) == "" {
			year, month = day.Year(), day.Month()
		}
	}

	page.Month = calendar.Build(grid, year, month, now, s.loc, s.recentPastLimit)
	if page.Day != nil {
		// The day narrows the grid only.
		page.Upcoming, page.RecentPast = calendar.Split(events, now, s.recentPastLimit)
	}
	return page, nil
}

// Get loads an event visible to the actor, with its description rendered.
func (s *EventService) Get(ctx context.Context, actor policy.Actor, id int64) (*data.PathEvent, error) {
	event, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.ViewEvent(actor, event), "event", id); err != nil {
		return nil, err
	}
	event.HTMLDescription = s.renderer.Render(ctx, event.Description)
	return event, nil
}

// Detail gathers the event page. The participant list is staff only.
func (s *EventService) Detail(ctx context.Context, actor policy.Actor, id int64) (*EventDetail, error) {
	event, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := &EventDetail{Event: event}
	if d.Comments, err = s.repo.ListEventComments(ctx, id); err != nil {
		return nil, err
	}
	if d.Count, err = s.ledger.ParticipantCount(ctx, id); err != nil {
		return nil, err
	}
	if d.IsRegistered, err = s.ledger.IsRegistered(ctx, actor, id); err != nil {
		return nil, err
	}
	if actor.Staff {
		if d.Participants, err = s.ledger.Participants(ctx, id); err != nil {
			return nil, err
		}
	}
	if event.HasCapacityLimit() {
		left := *event.MaxParticipants - int64(d.Count)
		if left < 0 {
			left = 0
		}
		d.SpotsLeft = &left
	}
	return d, nil
}

// Create stores a new event. Staff only.
func (s *EventService) Create(ctx context.Context, actor policy.Actor, in EventInput) (*data.PathEvent, error) {
	if !policy.CanCreate(actor, policy.KindEvent) {
		return nil, denied(actor)
	}
	now := s.now().UTC()
	event := &data.PathEvent{CreatedByID: actor.UserID, CreatedAt: now}
	applyEventInput(event, in, now)
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Event %d created by user %d", event.ID, actor.UserID))
	return event, nil
}

// Update edits an event. Staff only.
func (s *EventService) Update(ctx context.Context, actor policy.Actor, id int64, in EventInput) (*data.PathEvent, error) {
	if !policy.CanEdit(actor, policy.KindEvent) {
		return nil, denied(actor)
	}
	event, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImage := event.Image
	applyEventInput(event, in, s.now().UTC())
	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return nil, err
	}
	removeUpload(ctx, s.files, s.log, staleImage(oldImage, in.Image))
	return event, nil
}

// Delete removes the event with its registrations and comments. Staff only.
func (s *EventService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanEdit(actor, policy.KindEvent) {
		return denied(actor)
	}
	event, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}
	removeUpload(ctx, s.files, s.log, event.Image)
	s.log.Info(fmt.Sprintf("Event %d deleted by user %d", id, actor.UserID))
	return nil
}

// AddComment posts a comment on a visible event.
func (s *EventService) AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.PathEventComment, error) {
	event, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := policy.ViewEvent(actor, event)
	if err := decisionErr(d, "event", id); err != nil {
		return nil, err
	}
	if !policy.CanComment(actor, d) {
		return nil, denied(actor)
	}
	c := &data.PathEventComment{EventID: id, AuthorID: actor.UserID, Content: body, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateEventComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Join delegates to the registration ledger.
func (s *EventService) Join(ctx context.Context, actor policy.Actor, id int64) (data.JoinOutcome, error) {
	return s.ledger.Join(ctx, actor, id)
}

// Leave delegates to the registration ledger.
func (s *EventService) Leave(ctx context.Context, actor policy.Actor, id int64) error {
	return s.ledger.Leave(ctx, actor, id)
}

// Published lists every published event, for the sitemap.
func (s *EventService) Published(ctx context.Context) ([]*data.PathEvent, error) {
	return s.repo.ListEvents(ctx, data.EventScope{})
}

func applyEventInput(event *data.PathEvent, in EventInput, now time.Time) {
	event.Title = in.Title
	event.Description = in.Description
	event.EventType = in.EventType
	if event.EventType == "" {
		event.EventType = data.EventAdventure
	}
	event.StartsAt = in.StartsAt.UTC()
	event.EndsAt = nil
	if in.EndsAt != nil {
		end := in.EndsAt.UTC()
		event.EndsAt = &end
	}
	event.Location = in.Location
	event.MaxParticipants = in.MaxParticipants
	event.IsPublished = in.Published
	if in.Image != nil {
		event.Image = in.Image
	}
	event.UpdatedAt = now
}
