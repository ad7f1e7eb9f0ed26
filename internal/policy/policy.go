// Package policy decides what an actor may see or change. Every function is
// pure: callers load the entity, ask, and act on the Decision.
package policy

import "go-journal-app/internal/data"

// Actor is whoever is making the request.
type Actor struct {
	UserID        int64
	Authenticated bool
	Staff         bool
}

// Anonymous is the actor for requests without a session.
var Anonymous = Actor{}

// User returns the actor for a signed-in account.
func User(id int64, staff bool) Actor {
	return Actor{UserID: id, Authenticated: true, Staff: staff}
}

func (a Actor) owns(ownerID int64) bool {
	return a.Authenticated && a.UserID != 0 && a.UserID == ownerID
}

// Decision is the outcome of a visibility check.
type Decision int

const (
	Visible Decision = iota
	Forbidden
	// NotFound is answered exactly like a missing row so hidden content does not leak.
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Visible:
		return "visible"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Kind names a mutable content type.
type Kind int

const (
	KindEntry Kind = iota
	KindEvent
	KindDiaryPage
	KindMedia
	KindAbout
)

// ViewEntry: published entries are public, drafts are visible to their author and staff.
func ViewEntry(a Actor, e *data.JournalEntry) Decision {
	if a.Staff || e.IsPublished || a.owns(e.AuthorID) {
		return Visible
	}
	return NotFound
}

// ViewEvent: ownership does not reveal an unpublished event, only staff does.
func ViewEvent(a Actor, e *data.PathEvent) Decision {
	if a.Staff || e.IsPublished {
		return Visible
	}
	return NotFound
}

// ViewDiaryPage: draft pages are refused outright to everyone but staff.
func ViewDiaryPage(a Actor, p *data.DiaryPage) Decision {
	if a.Staff || p.IsPublic() {
		return Visible
	}
	return Forbidden
}

// ViewMediaLibrary guards every media library screen.
func ViewMediaLibrary(a Actor) Decision {
	if a.Staff {
		return Visible
	}
	return Forbidden
}

// ViewAbout always allows reading the about page.
func ViewAbout(Actor) Decision {
	return Visible
}

// EditAbout guards the about page editor.
func EditAbout(a Actor) Decision {
	if a.Staff {
		return Visible
	}
	return Forbidden
}

// CanCreate reports whether the actor may create content of the given kind.
// Any signed-in user may write a journal entry; everything else is staff work.
func CanCreate(a Actor, k Kind) bool {
	if !a.Authenticated {
		return false
	}
	if k == KindEntry {
		return true
	}
	return a.Staff
}

// CanEditEntry covers edit, delete and publish toggling of a journal entry.
func CanEditEntry(a Actor, e *data.JournalEntry) bool {
	return a.Staff || a.owns(e.AuthorID)
}

// CanEdit covers edit and delete of staff-managed kinds. Entries need CanEditEntry.
func CanEdit(a Actor, k Kind) bool {
	if k == KindEntry {
		return false
	}
	return a.Authenticated && a.Staff
}

// CanComment reports whether the actor may comment on content it can see.
func CanComment(a Actor, d Decision) bool {
	return a.Authenticated && d == Visible
}

// CanCommentDiary gates diary comments on the page's own visibility.
func CanCommentDiary(a Actor, p *data.DiaryPage) bool {
	return CanComment(a, ViewDiaryPage(a, p))
}

// CanJoin applies the registration precondition: the event must be visible to the
// joining user.
func CanJoin(a Actor, e *data.PathEvent) Decision {
	d := ViewEvent(a, e)
	if d != Visible {
		return d
	}
	if !a.Authenticated {
		return Forbidden
	}
	return Visible
}

// EntryListScope limits the entry listing: staff see all, users see published
// entries plus their own, anonymous readers see published entries.
func EntryListScope(a Actor) data.EntryScope {
	switch {
	case a.Staff:
		return data.EntryScope{All: true}
	case a.Authenticated && a.UserID != 0:
		id := a.UserID
		return data.EntryScope{ViewerID: &id}
	default:
		return data.EntryScope{}
	}
}

// EventListScope limits calendar listings to what ViewEvent would allow.
func EventListScope(a Actor, search string) data.EventScope {
	return data.EventScope{IncludeUnpublished: a.Staff, Search: search}
}

// IncludeDiaryDrafts reports whether diary listings include drafts.
func IncludeDiaryDrafts(a Actor) bool {
	return a.Staff
}
