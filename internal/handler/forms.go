package handler

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go-journal-app/internal/data"

	"github.com/go-playground/validator/v10"
)

// formErrors maps a form field name to its message. The empty key holds
// errors that belong to the whole form.
type formErrors map[string]string

func (e formErrors) Any() bool { return len(e) > 0 }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so messages line up with the inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// check validates a form struct and returns the messages for failing fields.
func check(form interface{}) formErrors {
	errs := formErrors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs[""] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		errs[fe.Field()] = message(fe)
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return "Select a valid choice."
	default:
		return "Enter a valid value."
	}
}

type loginForm struct {
	Login    string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Login:    strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Next:     r.FormValue("next"),
	}
}

type commentForm struct {
	Content string `form:"content" validate:"required,max=5000"`
}

func parseCommentForm(r *http.Request) commentForm {
	return commentForm{Content: strings.TrimSpace(r.PostFormValue("content"))}
}

type entryForm struct {
	Title     string `form:"title" validate:"required,max=200"`
	Content   string `form:"content" validate:"required"`
	Published bool   `form:"is_published"`
}

func parseEntryForm(r *http.Request) entryForm {
	return entryForm{
		Title:     strings.TrimSpace(r.FormValue("title")),
		Content:   r.FormValue("content"),
		Published: checkbox(r, "is_published"),
	}
}

func entryFormFrom(e *data.JournalEntry) entryForm {
	return entryForm{Title: e.Title, Content: e.Content, Published: e.IsPublished}
}

type eventForm struct {
	Title           string `form:"title" validate:"required,max=200"`
	Description     string `form:"description" validate:"required"`
	EventType       string `form:"event_type" validate:"required,oneof=run hike adventure community wellness other"`
	StartsAt        string `form:"event_date" validate:"required"`
	EndsAt          string `form:"event_end_date"`
	Location        string `form:"location" validate:"max=200"`
	MaxParticipants string `form:"max_participants"`
	Published       bool   `form:"is_published"`

	start time.Time
	end   *time.Time
	max   *int64
}

func parseEventForm(r *http.Request) eventForm {
	return eventForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Description:     r.FormValue("description"),
		EventType:       r.FormValue("event_type"),
		StartsAt:        strings.TrimSpace(r.FormValue("event_date")),
		EndsAt:          strings.TrimSpace(r.FormValue("event_end_date")),
		Location:        strings.TrimSpace(r.FormValue("location")),
		MaxParticipants: strings.TrimSpace(r.FormValue("max_participants")),
		Published:       checkbox(r, "is_published"),
	}
}

func eventFormFrom(e *data.PathEvent, loc *time.Location) eventForm {
	f := eventForm{
		Title:       e.Title,
		Description: e.Description,
		EventType:   string(e.EventType),
		StartsAt:    e.StartsAt.In(loc).Format(inputLayout),
		Location:    e.Location,
		Published:   e.IsPublished,
	}
	if e.EndsAt != nil {
		f.EndsAt = e.EndsAt.In(loc).Format(inputLayout)
	}
	if e.MaxParticipants != nil {
		f.MaxParticipants = strconv.FormatInt(*e.MaxParticipants, 10)
	}
	return f
}

// validate runs the tag rules, then parses the dates in loc and the capacity.
func (f *eventForm) validate(loc *time.Location) formErrors {
	errs := check(f)
	if _, bad := errs["event_date"]; !bad {
		t, err := parseLocalTime(f.StartsAt, loc)
		if err != nil {
			errs["event_date"] = "Enter a valid date/time."
		}
		f.start = t
	}
	if f.EndsAt != "" {
		t, err := parseLocalTime(f.EndsAt, loc)
		switch {
		case err != nil:
			errs["event_end_date"] = "Enter a valid date/time."
		case !f.start.IsZero() && t.Before(f.start):
			errs["event_end_date"] = "The end must not be before the start."
		default:
			f.end = &t
		}
	}
	if f.MaxParticipants != "" {
		n, err := strconv.ParseInt(f.MaxParticipants, 10, 64)
		if err != nil || n < 1 {
			errs["max_participants"] = "Ensure this value is greater than or equal to 1."
		} else {
			f.max = &n
		}
	}
	return errs
}

type diaryForm struct {
	Title   string `form:"title" validate:"required,max=200"`
	Content string `form:"content" validate:"required"`
	Status  string `form:"status" validate:"required,oneof=draft public"`
}

func parseDiaryForm(r *http.Request) diaryForm {
	status := r.FormValue("status")
	if status == "" {
		status = string(data.DiaryDraft)
	}
	return diaryForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: r.FormValue("content"),
		Status:  status,
	}
}

func diaryFormFrom(p *data.DiaryPage) diaryForm {
	return diaryForm{Title: p.Title, Content: p.Content, Status: string(p.Status)}
}

type aboutForm struct {
	Content string `form:"content" validate:"max=20000"`
}

type mediaForm struct {
	Title string `form:"title" validate:"max=255"`
}

// inputLayout is the value format of <input type="datetime-local">.
const inputLayout = "2006-01-02T15:04"

func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{inputLayout, "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q", value)
}

func checkbox(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}
