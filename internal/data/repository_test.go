//go:build integration

package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-journal-app/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB migrates a fresh file-backed SQLite database. A file is used
// instead of :memory: so that every pooled connection sees the same schema.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, ApplyMigrations(DriverSQLite, dsn, "../../migrations"))

	db, err := NewDB(config.DBConfig{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlx.DB, name string, staff bool) *User {
	t.Helper()
	u := &User{Username: name, Email: name + "@example.com", IsStaff: staff, IsActive: true}
	require.NoError(t, NewSQLUserRepository(db).CreateUser(context.Background(), u))
	return u
}

func createEvent(t *testing.T, db *sqlx.DB, owner *User, max *int64) *PathEvent {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	e := &PathEvent{
		Title:           "Sunrise hike",
		Description:     "Bring water.",
		EventType:       EventHike,
		StartsAt:        now.Add(48 * time.Hour),
		Location:        "Ridge trail",
		MaxParticipants: max,
		IsPublished:     true,
		CreatedByID:     owner.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, NewSQLEventRepository(db).CreateEvent(context.Background(), e))
	return e
}

func TestUserRepository_Lookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "deanna", true)

	byName, err := repo.GetUserByUsername(ctx, "deanna")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.True(t, byName.IsStaff)

	byEmail, err := repo.GetUserByEmail(ctx, "deanna@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryRepository_ListScopes(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEntryRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice", false)
	bob := createUser(t, db, "bob", false)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []*JournalEntry{
		{Title: "public alice", Content: "a", AuthorID: alice.ID, IsPublished: true, CreatedAt: base, UpdatedAt: base},
		{Title: "draft alice", Content: "b", AuthorID: alice.ID, CreatedAt: base.Add(time.Hour), UpdatedAt: base},
		{Title: "draft bob", Content: "c", AuthorID: bob.ID, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.CreateEntry(ctx, e))
	}

	titles := func(list []*JournalEntry) []string {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, e.Title)
		}
		return out
	}

	anon, err := repo.ListEntries(ctx, EntryScope{})
	require.NoError(t, err)
	assert.Equal(t, []string{"public alice"}, titles(anon))

	asBob, err := repo.ListEntries(ctx, EntryScope{ViewerID: &bob.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft bob", "public alice"}, titles(asBob))

	all, err := repo.ListEntries(ctx, EntryScope{All: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft bob", "draft alice", "public alice"}, titles(all))
	assert.Equal(t, "bob", all[0].AuthorName)
}

func TestEntryRepository_UpdateDeleteAndComments(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEntryRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice", false)
	now := time.Now().UTC().Truncate(time.Second)

	entry := &JournalEntry{Title: "first", Content: "body", AuthorID: alice.ID, IsPublished: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateEntry(ctx, entry))

	entry.Title = "renamed"
	entry.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.UpdateEntry(ctx, entry))
	got, err := repo.GetEntryByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	for i := 0; i < 2; i++ {
		c := &Comment{EntryID: entry.ID, AuthorID: alice.ID, Content: fmt.Sprintf("c%d", i), CreatedAt: now.Add(time.Duration(i) * time.Second), UpdatedAt: now}
		require.NoError(t, repo.CreateComment(ctx, c))
	}
	comments, err := repo.ListComments(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c0", comments[0].Content)
	assert.Equal(t, "alice", comments[0].AuthorName)

	require.NoError(t, repo.DeleteEntry(ctx, entry.ID))
	_, err = repo.GetEntryByID(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int
	require.NoError(t, db.Get(&orphans, `SELECT COUNT(*) FROM comments WHERE entry_id = ?`, entry.ID))
	assert.Zero(t, orphans)

	assert.ErrorIs(t, repo.DeleteEntry(ctx, entry.ID), ErrNotFound)
}

func TestEventRepository_RegisterTwiceIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)
	runner := createUser(t, db, "runner", false)
	event := createEvent(t, db, staff, nil)

	outcome, err := repo.Register(ctx, event.ID, runner.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, Joined, outcome)

	outcome, err = repo.Register(ctx, event.ID, runner.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, AlreadyRegistered, outcome)

	count, err := repo.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ok, err := repo.IsRegistered(ctx, event.ID, runner.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEventRepository_RegisterRespectsCapacity(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)
	max := int64(2)
	event := createEvent(t, db, staff, &max)

	var outcomes []JoinOutcome
	for i := 0; i < 3; i++ {
		u := createUser(t, db, fmt.Sprintf("user%d", i), false)
		outcome, err := repo.Register(ctx, event.ID, u.ID, time.Now())
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}
	assert.Equal(t, []JoinOutcome{Joined, Joined, EventFull}, outcomes)

	regs, err := repo.ListRegistrations(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "user0", regs[0].Username)
}

func TestEventRepository_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)
	max := int64(3)
	event := createEvent(t, db, staff, &max)

	const joiners = 12
	users := make([]*User, joiners)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("joiner%d", i), false)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[JoinOutcome]int{}
		errs    []error
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			outcome, err := repo.Register(ctx, event.ID, userID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			results[outcome]++
		}(u.ID)
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 3, results[Joined])
	assert.Equal(t, joiners-3, results[EventFull])

	count, err := repo.CountRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEventRepository_ConcurrentDuplicateJoinsCollapse(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)
	runner := createUser(t, db, "runner", false)
	event := createEvent(t, db, staff, nil)

	var wg sync.WaitGroup
	outcomes := make([]JoinOutcome, 5)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := repo.Register(ctx, event.ID, runner.ID, time.Now())
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, o := range outcomes {
		if o == Joined {
			joined++
		} else {
			assert.Equal(t, AlreadyRegistered, o)
		}
	}
	assert.Equal(t, 1, joined)
}

func TestEventRepository_UnregisterAbsentIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	staff := createUser(t, db, "staff", true)
	event := createEvent(t, db, staff, nil)

	assert.NoError(t, repo.Unregister(context.Background(), event.ID, staff.ID))
}

func TestEventRepository_RegisterUnknownEvent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	u := createUser(t, db, "runner", false)

	_, err := repo.Register(context.Background(), 404, u.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)
	runner := createUser(t, db, "runner", false)
	event := createEvent(t, db, staff, nil)

	_, err := repo.Register(ctx, event.ID, runner.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateEventComment(ctx, &PathEventComment{
		EventID: event.ID, AuthorID: runner.ID, Content: "see you there", CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, repo.DeleteEvent(ctx, event.ID))

	for _, table := range []string{"path_event_registrations", "path_event_comments"} {
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM `+table+` WHERE event_id = ?`, event.ID))
		assert.Zero(t, n, table)
	}
	_, err = repo.GetEventByID(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepository_ListEventsFiltersAndSearches(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLEventRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)

	trail := createEvent(t, db, staff, nil)
	hidden := createEvent(t, db, staff, nil)
	hidden.Title = "Staff planning"
	hidden.Location = "Office"
	hidden.IsPublished = false
	require.NoError(t, repo.UpdateEvent(ctx, hidden))

	public, err := repo.ListEvents(ctx, EventScope{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, trail.ID, public[0].ID)

	all, err := repo.ListEvents(ctx, EventScope{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byLocation, err := repo.ListEvents(ctx, EventScope{IncludeUnpublished: true, Search: "ridge"})
	require.NoError(t, err)
	require.Len(t, byLocation, 1)
	assert.Equal(t, trail.ID, byLocation[0].ID)
}

func TestDiaryRepository_DraftsAndComments(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLDiaryRepository(db)
	ctx := context.Background()
	deanna := createUser(t, db, "deanna", true)
	now := time.Now().UTC().Truncate(time.Second)

	draft := &DiaryPage{Title: "draft", Content: "x", Status: DiaryDraft, AuthorID: deanna.ID, CreatedAt: now, UpdatedAt: now}
	public := &DiaryPage{Title: "public", Content: "y", Status: DiaryPublic, AuthorID: deanna.ID, CreatedAt: now.Add(time.Minute), UpdatedAt: now}
	require.NoError(t, repo.CreatePage(ctx, draft))
	require.NoError(t, repo.CreatePage(ctx, public))

	visible, err := repo.ListPages(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public", visible[0].Title)

	all, err := repo.ListPages(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.CreateComment(ctx, &DiaryComment{PageID: public.ID, AuthorID: deanna.ID, Content: "hi", CreatedAt: now}))
	require.NoError(t, repo.DeletePage(ctx, public.ID))
	comments, err := repo.ListComments(ctx, public.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMediaRepository_AboutIsSingleton(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLMediaRepository(db)
	ctx := context.Background()

	empty, err := repo.GetAbout(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Content)

	require.NoError(t, repo.SaveAbout(ctx, &AboutPage{Content: "first"}))
	require.NoError(t, repo.SaveAbout(ctx, &AboutPage{Content: "second"}))

	var rows int
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM about_page`))
	assert.Equal(t, 1, rows)

	page, err := repo.GetAbout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", page.Content)
}

func TestMediaRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLMediaRepository(db)
	ctx := context.Background()
	staff := createUser(t, db, "staff", true)

	item := &MediaItem{File: "media_library/1/trail.jpg", UploadedByID: staff.ID, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateMedia(ctx, item))

	items, err := repo.ListMedia(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "trail.jpg", items[0].DisplayName())
	assert.Equal(t, MediaImage, items[0].Kind())

	require.NoError(t, repo.DeleteMedia(ctx, item.ID))
	_, err = repo.GetMediaByID(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
