package handler

import (
	"fmt"
	"net/http"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/middleware"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
)

// EventHandler serves the "Define Your Path" calendar and event pages.
type EventHandler struct {
	base
	events service.EventServicer
	loc    *time.Location
}

// NewEventHandler creates a new EventHandler. Form dates are read in loc.
func NewEventHandler(events service.EventServicer, loc *time.Location, b base) *EventHandler {
	return &EventHandler{base: b, events: events, loc: loc}
}

// calendarHandler renders the month grid. Bad query values fall back to defaults.
func (h *EventHandler) calendarHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	q := r.URL.Query()
	page, err := h.events.Calendar(r.Context(), actorOf(r), service.CalendarQuery{
		Search:     q.Get("search"),
		SearchDate: q.Get("search_date"),
		Year:       q.Get("year"),
		Month:      q.Get("month"),
	})
	if err != nil {
		return h.fail(w, r, err, "Calendar")
	}
	return h.render(w, r, "calendar.html", map[string]interface{}{
		"Calendar":   page,
		"Weekdays":   []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		"EventTypes": data.EventTypes,
	})
}

func (h *EventHandler) detailHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	return h.showEvent(w, r, id, commentForm{}, nil)
}

func (h *EventHandler) showEvent(w http.ResponseWriter, r *http.Request, id int64, form commentForm, errs formErrors) *middleware.AppError {
	detail, err := h.events.Detail(r.Context(), actorOf(r), id)
	if err != nil {
		return h.fail(w, r, err, "Event")
	}
	return h.render(w, r, "event_detail.html", map[string]interface{}{
		"Detail":        detail,
		"Event":         detail.Event,
		"CommentAction": eventURL(id),
		"Form":          form,
		"Errors":        errs,
	})
}

// actionHandler handles the detail page forms: comment, join and leave.
func (h *EventHandler) actionHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	a := actorOf(r)

	switch r.PostFormValue("action") {
	case "join":
		outcome, err := h.events.Join(r.Context(), a, id)
		if err != nil {
			return h.fail(w, r, err, "Event")
		}
		switch outcome {
		case data.Joined:
			h.flash(r, session.LevelSuccess, "You have joined this event!")
		case data.AlreadyRegistered:
			h.flash(r, session.LevelInfo, "You are already registered for this event.")
		case data.EventFull:
			h.flash(r, session.LevelWarning, "Sorry, this event is full.")
		}
	case "leave":
		if err := h.events.Leave(r.Context(), a, id); err != nil {
			return h.fail(w, r, err, "Event")
		}
		h.flash(r, session.LevelInfo, "You have left this event.")
	case "comment", "":
		form := parseCommentForm(r)
		if errs := check(form); errs.Any() {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return h.showEvent(w, r, id, form, errs)
		}
		if _, err := h.events.AddComment(r.Context(), a, id, form.Content); err != nil {
			return h.fail(w, r, err, "Event")
		}
		h.flash(r, session.LevelSuccess, "Your comment has been added.")
	default:
		return &middleware.AppError{Error: fmt.Errorf("unknown action %q", r.PostFormValue("action")), Message: "Unknown action", Code: http.StatusBadRequest}
	}
	return h.redirect(w, r, eventURL(id))
}

func (h *EventHandler) newHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindEvent) {
		return h.deny(w, r)
	}
	return h.renderForm(w, r, "New Event", nil, eventForm{EventType: string(data.EventAdventure), Published: true}, nil)
}

func (h *EventHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindEvent) {
		return h.deny(w, r)
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	a := actorOf(r)
	form := parseEventForm(r)
	errs := form.validate(h.loc)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", &data.PathEvent{CreatedByID: a.UserID}, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "New Event", nil, form, errs)
	}

	event, err := h.events.Create(r.Context(), a, form.input(image))
	if err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Event")
	}
	h.flash(r, session.LevelSuccess, "Event created.")
	return h.redirect(w, r, eventURL(event.ID))
}

func (h *EventHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	event, appErr := h.load(w, r)
	if event == nil {
		return appErr
	}
	return h.renderForm(w, r, "Edit Event", event, eventFormFrom(event, h.loc), nil)
}

func (h *EventHandler) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	event, appErr := h.load(w, r)
	if event == nil {
		return appErr
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := parseEventForm(r)
	errs := form.validate(h.loc)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", event, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "Edit Event", event, form, errs)
	}

	if _, err := h.events.Update(r.Context(), actorOf(r), event.ID, form.input(image)); err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Event")
	}
	h.flash(r, session.LevelSuccess, "Event updated.")
	return h.redirect(w, r, eventURL(event.ID))
}

func (h *EventHandler) confirmDeleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	event, appErr := h.load(w, r)
	if event == nil {
		return appErr
	}
	return h.render(w, r, "confirm_delete.html", map[string]interface{}{
		"Title":     event.Title,
		"Kind":      "event",
		"CancelURL": eventURL(event.ID),
	})
}

func (h *EventHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if err := h.events.Delete(r.Context(), actorOf(r), id); err != nil {
		return h.fail(w, r, err, "Event")
	}
	h.flash(r, session.LevelSuccess, "Event deleted.")
	return h.redirect(w, r, "/define-your-path/")
}

func (h *EventHandler) load(w http.ResponseWriter, r *http.Request) (*data.PathEvent, *middleware.AppError) {
	if !policy.CanEdit(actorOf(r), policy.KindEvent) {
		return nil, h.deny(w, r)
	}
	id, appErr := idParam(r)
	if appErr != nil {
		return nil, appErr
	}
	event, err := h.events.Get(r.Context(), actorOf(r), id)
	if err != nil {
		return nil, h.fail(w, r, err, "Event")
	}
	return event, nil
}

func (h *EventHandler) renderForm(w http.ResponseWriter, r *http.Request, title string, event *data.PathEvent, form eventForm, errs formErrors) *middleware.AppError {
	action := "/define-your-path/new/"
	if event != nil {
		action = fmt.Sprintf("/define-your-path/%d/edit/", event.ID)
	}
	return h.render(w, r, "event_form.html", map[string]interface{}{
		"Title":      title,
		"Action":     action,
		"Event":      event,
		"Form":       form,
		"Errors":     errs,
		"EventTypes": data.EventTypes,
	})
}

func (f eventForm) input(image *string) service.EventInput {
	return service.EventInput{
		Title:           f.Title,
		Description:     f.Description,
		EventType:       data.EventType(f.EventType),
		StartsAt:        f.start,
		EndsAt:          f.end,
		Location:        f.Location,
		MaxParticipants: f.max,
		Published:       f.Published,
		Image:           image,
	}
}

func eventURL(id int64) string {
	return fmt.Sprintf("/define-your-path/event/%d/", id)
}
