package data

import (
	"html/template"
	"path"
	"strings"
	"time"
)

// User is an account that can sign in. Staff accounts manage the calendar, diary and media library.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsStaff      bool      `db:"is_staff"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// JournalEntry is a blog post owned by its author.
type JournalEntry struct {
	ID          int64         `db:"id"`
	Title       string        `db:"title"`
	Content     string        `db:"content"`
	Image       *string       `db:"image"`
	AuthorID    int64         `db:"author_id"`
	AuthorName  string        `db:"author_name"`
	IsPublished bool          `db:"is_published"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
	HTMLContent template.HTML `db:"-"`
}

// Comment is a reader comment on a journal entry.
type Comment struct {
	ID         int64     `db:"id"`
	EntryID    int64     `db:"entry_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// EventType classifies a path event.
type EventType string

const (
	EventRun       EventType = "run"
	EventHike      EventType = "hike"
	EventAdventure EventType = "adventure"
	EventCommunity EventType = "community"
	EventWellness  EventType = "wellness"
	EventOther     EventType = "other"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{EventRun, EventHike, EventAdventure, EventCommunity, EventWellness, EventOther}

// Label returns the human readable name of the event type.
func (t EventType) Label() string {
	switch t {
	case EventRun:
		return "Run"
	case EventHike:
		return "Hike"
	case EventAdventure:
		return "Adventure"
	case EventCommunity:
		return "Community Event"
	case EventWellness:
		return "Wellness"
	default:
		return "Other"
	}
}

// PathEvent is a dated calendar event people can register for.
type PathEvent struct {
	ID              int64         `db:"id"`
	Title           string        `db:"title"`
	Description     string        `db:"description"`
	EventType       EventType     `db:"event_type"`
	StartsAt        time.Time     `db:"event_date"`
	EndsAt          *time.Time    `db:"event_end_date"`
	Location        string        `db:"location"`
	Image           *string       `db:"image"`
	MaxParticipants *int64        `db:"max_participants"`
	IsPublished     bool          `db:"is_published"`
	CreatedByID     int64         `db:"created_by_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
	HTMLDescription template.HTML `db:"-"`
}

// HasCapacityLimit reports whether the event caps its registrations.
func (e *PathEvent) HasCapacityLimit() bool {
	return e.MaxParticipants != nil
}

// PathEventRegistration links one user to one event.
type PathEventRegistration struct {
	ID       int64     `db:"id"`
	EventID  int64     `db:"event_id"`
	UserID   int64     `db:"user_id"`
	Username string    `db:"username"`
	JoinedAt time.Time `db:"joined_at"`
}

// PathEventComment is a comment on a path event.
type PathEventComment struct {
	ID         int64     `db:"id"`
	EventID    int64     `db:"event_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// DiaryStatus is the publication state of a diary page.
type DiaryStatus string

const (
	DiaryDraft  DiaryStatus = "draft"
	DiaryPublic DiaryStatus = "public"
)

// DiaryPage is a staff-written diary page.
type DiaryPage struct {
	ID          int64         `db:"id"`
	Title       string        `db:"title"`
	Content     string        `db:"content"`
	Image       *string       `db:"image"`
	Status      DiaryStatus   `db:"status"`
	AuthorID    int64         `db:"author_id"`
	AuthorName  string        `db:"author_name"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
	HTMLContent template.HTML `db:"-"`
}

// IsPublic reports whether non-staff readers may see the page.
func (p *DiaryPage) IsPublic() bool {
	return p.Status == DiaryPublic
}

// DiaryComment is a comment on a diary page.
type DiaryComment struct {
	ID         int64     `db:"id"`
	PageID     int64     `db:"page_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// MediaKind is derived from a media item's file extension.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaOther MediaKind = "other"
)

// MediaItem is a file in the staff media library.
type MediaItem struct {
	ID           int64     `db:"id"`
	File         string    `db:"file"`
	Title        string    `db:"title"`
	UploadedByID int64     `db:"uploaded_by_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// DisplayName falls back to the stored file name when no title was given.
func (m *MediaItem) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	return path.Base(m.File)
}

// Kind classifies the file by extension.
func (m *MediaItem) Kind() MediaKind {
	return MediaKindOf(m.File)
}

// MediaKindOf classifies a file name by extension.
func MediaKindOf(name string) MediaKind {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return MediaImage
	case ".mp4", ".mov", ".webm", ".m4v", ".avi":
		return MediaVideo
	default:
		return MediaOther
	}
}

// AboutPage is the singleton about page.
type AboutPage struct {
	ID          int64         `db:"id"`
	Content     string        `db:"content"`
	Image       *string       `db:"image"`
	UpdatedAt   time.Time     `db:"updated_at"`
	HTMLContent template.HTML `db:"-"`
}

// Upload folders for owned entities. Values are part of the on-disk layout.
const (
	FolderJournalEntries = "journal_entries"
	FolderPathEvents     = "path_events"
	FolderDiaryPages     = "diary_pages"
	FolderMediaLibrary   = "media_library"
	FolderAbout          = "about"
)

// UploadFolder and OwnerID implement upload.HasOwner.

func (e *JournalEntry) UploadFolder() string { return FolderJournalEntries }
func (e *JournalEntry) OwnerID() *int64      { return optionalID(e.AuthorID) }

func (e *PathEvent) UploadFolder() string { return FolderPathEvents }
func (e *PathEvent) OwnerID() *int64      { return optionalID(e.CreatedByID) }

func (p *DiaryPage) UploadFolder() string { return FolderDiaryPages }
func (p *DiaryPage) OwnerID() *int64      { return optionalID(p.AuthorID) }

func (m *MediaItem) UploadFolder() string { return FolderMediaLibrary }
func (m *MediaItem) OwnerID() *int64      { return optionalID(m.UploadedByID) }

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
