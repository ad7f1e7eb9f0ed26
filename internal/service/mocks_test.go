//go:build unit

package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/upload"
)

// mockEntryRepository keeps entries in memory.
type mockEntryRepository struct {
	entries  map[int64]*data.JournalEntry
	comments []*data.Comment
	nextID   int64
	err      error

	lastScope data.EntryScope
	deleted   []int64
}

var _ EntryRepository = (*mockEntryRepository)(nil)

func newMockEntryRepository(entries ...*data.JournalEntry) *mockEntryRepository {
	m := &mockEntryRepository{entries: map[int64]*data.JournalEntry{}, nextID: 100}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *mockEntryRepository) CreateEntry(ctx context.Context, entry *data.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	entry.ID = m.nextID
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockEntryRepository) GetEntryByID(ctx context.Context, id int64) (*data.JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %d: %w", id, data.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntryRepository) ListEntries(ctx context.Context, scope data.EntryScope) ([]*data.JournalEntry, error) {
	m.lastScope = scope
	var out []*data.JournalEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, m.err
}

func (m *mockEntryRepository) UpdateEntry(ctx context.Context, entry *data.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockEntryRepository) DeleteEntry(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.entries, id)
	return m.err
}

func (m *mockEntryRepository) CreateComment(ctx context.Context, c *data.Comment) error {
	m.comments = append(m.comments, c)
	return m.err
}

func (m *mockEntryRepository) ListComments(ctx context.Context, entryID int64) ([]*data.Comment, error) {
	return m.comments, m.err
}

// mockEventRepository keeps events and registrations in memory. Register is
// guarded by a mutex, standing in for the database transaction.
type mockEventRepository struct {
	mu       sync.Mutex
	events   map[int64]*data.PathEvent
	regs     map[int64]map[int64]time.Time
	comments []*data.PathEventComment
	nextID   int64
	err      error

	lastScope data.EventScope
}

var _ EventRepository = (*mockEventRepository)(nil)

func newMockEventRepository(events ...*data.PathEvent) *mockEventRepository {
	m := &mockEventRepository{events: map[int64]*data.PathEvent{}, regs: map[int64]map[int64]time.Time{}, nextID: 100}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *mockEventRepository) GetEventByID(ctx context.Context, id int64) (*data.PathEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %d: %w", id, data.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *mockEventRepository) Register(ctx context.Context, eventID, userID int64, at time.Time) (data.JoinOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return data.Joined, m.err
	}
	e, ok := m.events[eventID]
	if !ok {
		return data.Joined, data.ErrNotFound
	}
	seats := m.regs[eventID]
	if seats == nil {
		seats = map[int64]time.Time{}
		m.regs[eventID] = seats
	}
	if _, ok := seats[userID]; ok {
		return data.AlreadyRegistered, nil
	}
	if e.MaxParticipants != nil && int64(len(seats)) >= *e.MaxParticipants {
		return data.EventFull, nil
	}
	seats[userID] = at
	return data.Joined, nil
}

func (m *mockEventRepository) Unregister(ctx context.Context, eventID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regs[eventID], userID)
	return m.err
}

func (m *mockEventRepository) CountRegistrations(ctx context.Context, eventID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs[eventID]), m.err
}

func (m *mockEventRepository) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.regs[eventID][userID]
	return ok, m.err
}

func (m *mockEventRepository) ListRegistrations(ctx context.Context, eventID int64) ([]*data.PathEventRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*data.PathEventRegistration
	for userID, at := range m.regs[eventID] {
		out = append(out, &data.PathEventRegistration{EventID: eventID, UserID: userID, JoinedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, m.err
}

func (m *mockEventRepository) CreateEvent(ctx context.Context, event *data.PathEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	event.ID = m.nextID
	m.events[event.ID] = event
	return m.err
}

func (m *mockEventRepository) ListEvents(ctx context.Context, scope data.EventScope) ([]*data.PathEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastScope = scope
	var out []*data.PathEvent
	for _, e := range m.events {
		if e.IsPublished || scope.IncludeUnpublished {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, m.err
}

func (m *mockEventRepository) UpdateEvent(ctx context.Context, event *data.PathEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return m.err
}

func (m *mockEventRepository) DeleteEvent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	delete(m.regs, id)
	return m.err
}

func (m *mockEventRepository) CreateEventComment(ctx context.Context, c *data.PathEventComment) error {
	m.comments = append(m.comments, c)
	return m.err
}

func (m *mockEventRepository) ListEventComments(ctx context.Context, eventID int64) ([]*data.PathEventComment, error) {
	return m.comments, m.err
}

// mockDiaryRepository keeps diary pages in memory.
type mockDiaryRepository struct {
	pages        map[int64]*data.DiaryPage
	comments     []*data.DiaryComment
	nextID       int64
	lastIncludes bool
}

var _ DiaryRepository = (*mockDiaryRepository)(nil)

func newMockDiaryRepository(pages ...*data.DiaryPage) *mockDiaryRepository {
	m := &mockDiaryRepository{pages: map[int64]*data.DiaryPage{}, nextID: 100}
	for _, p := range pages {
		m.pages[p.ID] = p
	}
	return m
}

func (m *mockDiaryRepository) CreatePage(ctx context.Context, page *data.DiaryPage) error {
	m.nextID++
	page.ID = m.nextID
	m.pages[page.ID] = page
	return nil
}

func (m *mockDiaryRepository) GetPageByID(ctx context.Context, id int64) (*data.DiaryPage, error) {
	p, ok := m.pages[id]
	if !ok {
		return nil, fmt.Errorf("diary page %d: %w", id, data.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockDiaryRepository) ListPages(ctx context.Context, includeDrafts bool) ([]*data.DiaryPage, error) {
	m.lastIncludes = includeDrafts
	var out []*data.DiaryPage
	for _, p := range m.pages {
		if includeDrafts || p.IsPublic() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockDiaryRepository) UpdatePage(ctx context.Context, page *data.DiaryPage) error {
	m.pages[page.ID] = page
	return nil
}

func (m *mockDiaryRepository) DeletePage(ctx context.Context, id int64) error {
	delete(m.pages, id)
	return nil
}

func (m *mockDiaryRepository) CreateComment(ctx context.Context, c *data.DiaryComment) error {
	m.comments = append(m.comments, c)
	return nil
}

func (m *mockDiaryRepository) ListComments(ctx context.Context, pageID int64) ([]*data.DiaryComment, error) {
	return m.comments, nil
}

// mockMediaRepository keeps media items and the about page in memory.
type mockMediaRepository struct {
	items  map[int64]*data.MediaItem
	about  *data.AboutPage
	nextID int64
	err    error
}

var _ MediaRepository = (*mockMediaRepository)(nil)

func newMockMediaRepository() *mockMediaRepository {
	return &mockMediaRepository{items: map[int64]*data.MediaItem{}, about: &data.AboutPage{ID: 1}}
}

func (m *mockMediaRepository) CreateMedia(ctx context.Context, item *data.MediaItem) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return nil
}

func (m *mockMediaRepository) GetMediaByID(ctx context.Context, id int64) (*data.MediaItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("media item %d: %w", id, data.ErrNotFound)
	}
	return item, nil
}

func (m *mockMediaRepository) ListMedia(ctx context.Context) ([]*data.MediaItem, error) {
	var out []*data.MediaItem
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *mockMediaRepository) DeleteMedia(ctx context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *mockMediaRepository) GetAbout(ctx context.Context) (*data.AboutPage, error) {
	cp := *m.about
	return &cp, nil
}

func (m *mockMediaRepository) SaveAbout(ctx context.Context, page *data.AboutPage) error {
	m.about = page
	return nil
}

// mockFileStore records stored and removed keys.
type mockFileStore struct {
	stored  []string
	removed []string
}

var _ FileStore = (*mockFileStore)(nil)

func (m *mockFileStore) Store(ctx context.Context, owner upload.HasOwner, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := upload.Path(owner, filename)
	m.stored = append(m.stored, key)
	return key, nil
}

func (m *mockFileStore) StoreAbout(ctx context.Context, filename string, r io.Reader) (string, error) {
	key := upload.AboutPath(filename)
	m.stored = append(m.stored, key)
	return key, nil
}

func (m *mockFileStore) Remove(ctx context.Context, key string) error {
	m.removed = append(m.removed, key)
	return nil
}

func (m *mockFileStore) URL(key string) string {
	return "/uploads/" + key
}

// mockUserRepository keeps users in memory.
type mockUserRepository struct {
	users  []*data.User
	nextID int64
}

var _ UserRepository = (*mockUserRepository)(nil)

func (m *mockUserRepository) CreateUser(ctx context.Context, user *data.User) error {
	m.nextID++
	user.ID = m.nextID
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepository) find(match func(*data.User) bool, what string) (*data.User, error) {
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", what, data.ErrNotFound)
}

func (m *mockUserRepository) GetUserByID(ctx context.Context, id int64) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.ID == id }, fmt.Sprint(id))
}

func (m *mockUserRepository) GetUserByUsername(ctx context.Context, username string) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.Username == username }, username)
}

func (m *mockUserRepository) GetUserByEmail(ctx context.Context, email string) (*data.User, error) {
	return m.find(func(u *data.User) bool { return u.Email == email }, email)
}

// recordingObserver counts join outcomes.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[data.JoinOutcome]int
}

func (r *recordingObserver) ObserveJoin(outcome data.JoinOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[data.JoinOutcome]int{}
	}
	r.outcomes[outcome]++
}
