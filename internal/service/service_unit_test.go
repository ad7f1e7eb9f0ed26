//go:build unit

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-journal-app/internal/cache"
	"go-journal-app/internal/config"
	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRenderer returns a renderer backed by an in-memory cache.
func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	c, err := cache.New(config.CacheConfig{FilePath: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewRenderer(c, logger.Nop())
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

var (
	anon    = policy.Anonymous
	alice   = policy.User(1, false)
	bob     = policy.User(2, false)
	staffer = policy.User(9, true)
)

func TestRenderer(t *testing.T) {
	r := newTestRenderer(t)
	ctx := context.Background()

	t.Run("markdown is converted", func(t *testing.T) {
		out := string(r.Render(ctx, "# Trail notes\n\n**muddy**"))
		assert.Contains(t, out, "<h1")
		assert.Contains(t, out, "<strong>muddy</strong>")
	})

	t.Run("scripts are stripped", func(t *testing.T) {
		out := string(r.Render(ctx, "hello <script>alert(1)</script>"))
		assert.NotContains(t, out, "<script")
		assert.Contains(t, out, "hello")
	})

	t.Run("second render comes from the cache", func(t *testing.T) {
		first := r.Render(ctx, "same body")
		second := r.Render(ctx, "same body")
		assert.Equal(t, first, second)
	})

	t.Run("empty source renders empty", func(t *testing.T) {
		assert.Empty(t, r.Render(ctx, ""))
	})
}

func TestEntryService(t *testing.T) {
	ctx := context.Background()

	newService := func() (*EntryService, *mockEntryRepository, *mockFileStore) {
		repo := newMockEntryRepository(
			&data.JournalEntry{ID: 1, Title: "Public", AuthorID: 1, IsPublished: true},
			&data.JournalEntry{ID: 2, Title: "Draft", AuthorID: 1, Image: strPtr("journal_entries/1/a.jpg")},
		)
		files := &mockFileStore{}
		return NewEntryService(repo, newTestRenderer(t), files, logger.Nop()), repo, files
	}

	t.Run("drafts are hidden from other users", func(t *testing.T) {
		s, _, _ := newService()
		_, err := s.Get(ctx, bob, 2)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, anon, 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("author and staff see drafts", func(t *testing.T) {
		s, _, _ := newService()
		e, err := s.Get(ctx, alice, 2)
		require.NoError(t, err)
		assert.Equal(t, "Draft", e.Title)
		_, err = s.Get(ctx, staffer, 2)
		assert.NoError(t, err)
	})

	t.Run("list scope follows the actor", func(t *testing.T) {
		s, repo, _ := newService()
		_, err := s.List(ctx, alice)
		require.NoError(t, err)
		require.NotNil(t, repo.lastScope.ViewerID)
		assert.Equal(t, int64(1), *repo.lastScope.ViewerID)

		_, err = s.List(ctx, staffer)
		require.NoError(t, err)
		assert.True(t, repo.lastScope.All)

		_, err = s.List(ctx, anon)
		require.NoError(t, err)
		assert.Equal(t, data.EntryScope{}, repo.lastScope)
	})

	t.Run("anonymous cannot create", func(t *testing.T) {
		s, _, _ := newService()
		_, err := s.Create(ctx, anon, EntryInput{Title: "x"})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("create sets the author", func(t *testing.T) {
		s, _, _ := newService()
		e, err := s.Create(ctx, bob, EntryInput{Title: "Bob's day", Content: "walked", Published: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), e.AuthorID)
		assert.True(t, e.IsPublished)
		assert.NotZero(t, e.ID)
	})

	t.Run("other users cannot edit a published entry", func(t *testing.T) {
		s, _, _ := newService()
		_, err := s.Update(ctx, bob, 1, EntryInput{Title: "hijack"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("toggle publish flips the flag", func(t *testing.T) {
		s, repo, _ := newService()
		e, err := s.TogglePublish(ctx, alice, 2)
		require.NoError(t, err)
		assert.True(t, e.IsPublished)
		assert.True(t, repo.entries[2].IsPublished)
	})

	t.Run("replacing the image removes the old file", func(t *testing.T) {
		s, _, files := newService()
		_, err := s.Update(ctx, alice, 2, EntryInput{Title: "Draft", Image: strPtr("journal_entries/1/b.jpg")})
		require.NoError(t, err)
		assert.Equal(t, []string{"journal_entries/1/a.jpg"}, files.removed)
	})

	t.Run("keeping the image removes nothing", func(t *testing.T) {
		s, _, files := newService()
		_, err := s.Update(ctx, alice, 2, EntryInput{Title: "Draft"})
		require.NoError(t, err)
		assert.Empty(t, files.removed)
	})

	t.Run("delete removes the image", func(t *testing.T) {
		s, repo, files := newService()
		require.NoError(t, s.Delete(ctx, staffer, 2))
		assert.Equal(t, []int64{2}, repo.deleted)
		assert.Equal(t, []string{"journal_entries/1/a.jpg"}, files.removed)
	})

	t.Run("comments need a visible entry and a user", func(t *testing.T) {
		s, repo, _ := newService()
		_, err := s.AddComment(ctx, anon, 1, "hi")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = s.AddComment(ctx, bob, 2, "hi")
		assert.ErrorIs(t, err, ErrNotFound)
		c, err := s.AddComment(ctx, bob, 1, "nice")
		require.NoError(t, err)
		assert.Equal(t, int64(2), c.AuthorID)
		assert.Len(t, repo.comments, 1)
	})
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	capped := &data.PathEvent{ID: 1, Title: "Sunrise run", IsPublished: true, MaxParticipants: int64Ptr(2)}
	hidden := &data.PathEvent{ID: 2, Title: "Planning", IsPublished: false}

	newLedger := func() (*Ledger, *mockEventRepository, *recordingObserver) {
		repo := newMockEventRepository(capped, hidden)
		obs := &recordingObserver{}
		return NewLedger(repo, obs, logger.Nop()), repo, obs
	}

	t.Run("anonymous actors cannot join", func(t *testing.T) {
		l, _, obs := newLedger()
		_, err := l.Join(ctx, anon, 1)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Empty(t, obs.outcomes)
	})

	t.Run("unpublished events look missing", func(t *testing.T) {
		l, _, _ := newLedger()
		_, err := l.Join(ctx, alice, 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown event", func(t *testing.T) {
		l, _, _ := newLedger()
		_, err := l.Join(ctx, alice, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("join is idempotent and capped", func(t *testing.T) {
		l, _, obs := newLedger()
		out, err := l.Join(ctx, alice, 1)
		require.NoError(t, err)
		assert.Equal(t, data.Joined, out)

		out, err = l.Join(ctx, alice, 1)
		require.NoError(t, err)
		assert.Equal(t, data.AlreadyRegistered, out)

		out, err = l.Join(ctx, bob, 1)
		require.NoError(t, err)
		assert.Equal(t, data.Joined, out)

		out, err = l.Join(ctx, policy.User(3, false), 1)
		require.NoError(t, err)
		assert.Equal(t, data.EventFull, out)

		count, err := l.ParticipantCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 2, obs.outcomes[data.Joined])
		assert.Equal(t, 1, obs.outcomes[data.AlreadyRegistered])
		assert.Equal(t, 1, obs.outcomes[data.EventFull])
	})

	t.Run("staff may join unpublished events", func(t *testing.T) {
		l, _, _ := newLedger()
		out, err := l.Join(ctx, staffer, 2)
		require.NoError(t, err)
		assert.Equal(t, data.Joined, out)
	})

	t.Run("leave frees the seat and tolerates repeats", func(t *testing.T) {
		l, _, _ := newLedger()
		_, err := l.Join(ctx, alice, 1)
		require.NoError(t, err)
		require.NoError(t, l.Leave(ctx, alice, 1))
		require.NoError(t, l.Leave(ctx, alice, 1))
		registered, err := l.IsRegistered(ctx, alice, 1)
		require.NoError(t, err)
		assert.False(t, registered)
	})

	t.Run("anonymous leave is rejected", func(t *testing.T) {
		l, _, _ := newLedger()
		assert.ErrorIs(t, l.Leave(ctx, anon, 1), ErrUnauthenticated)
		registered, err := l.IsRegistered(ctx, anon, 1)
		require.NoError(t, err)
		assert.False(t, registered)
	})

	t.Run("storage failures are returned", func(t *testing.T) {
		l, repo, obs := newLedger()
		repo.err = errors.New("disk on fire")
		_, err := l.Join(ctx, alice, 1)
		assert.Error(t, err)
		assert.Empty(t, obs.outcomes)
	})

	t.Run("concurrent joins never exceed capacity", func(t *testing.T) {
		l, _, obs := newLedger()
		var wg sync.WaitGroup
		for i := int64(10); i < 30; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, _ = l.Join(ctx, policy.User(id, false), 1)
			}(i)
		}
		wg.Wait()
		count, err := l.ParticipantCount(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 2, obs.outcomes[data.Joined])
		assert.Equal(t, 18, obs.outcomes[data.EventFull])
	})
}

func TestEventService(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, loc)

	events := []*data.PathEvent{
		{ID: 1, Title: "Early hike", IsPublished: true, StartsAt: time.Date(2024, time.March, 5, 9, 0, 0, 0, loc).UTC()},
		{ID: 2, Title: "Late run", IsPublished: true, StartsAt: time.Date(2024, time.March, 5, 23, 59, 0, 0, loc).UTC()},
		{ID: 3, Title: "Spring social", IsPublished: true, StartsAt: time.Date(2024, time.April, 2, 18, 0, 0, 0, loc).UTC(), MaxParticipants: int64Ptr(1)},
		{ID: 4, Title: "Draft plan", IsPublished: false, StartsAt: time.Date(2024, time.March, 20, 9, 0, 0, 0, loc).UTC()},
	}

	newService := func() (*EventService, *mockEventRepository) {
		repo := newMockEventRepository(events...)
		ledger := NewLedger(repo, nil, logger.Nop())
		s := NewEventService(repo, ledger, newTestRenderer(t), &mockFileStore{}, loc, 5, logger.Nop())
		s.now = func() time.Time { return now }
		return s, repo
	}

	t.Run("defaults to the current month", func(t *testing.T) {
		s, repo := newService()
		page, err := s.Calendar(ctx, anon, CalendarQuery{})
		require.NoError(t, err)
		assert.Equal(t, 2024, page.Year)
		assert.Equal(t, time.March, page.Month.Month)
		assert.False(t, repo.lastScope.IncludeUnpublished)
		assert.Nil(t, page.Day)
		require.Len(t, page.Upcoming, 1)
		assert.Equal(t, int64(3), page.Upcoming[0].ID)
	})

	t.Run("staff calendars include drafts", func(t *testing.T) {
		s, repo := newService()
		_, err := s.Calendar(ctx, staffer, CalendarQuery{Search: "  plan "})
		require.NoError(t, err)
		assert.True(t, repo.lastScope.IncludeUnpublished)
		assert.Equal(t, "plan", repo.lastScope.Search)
	})

	t.Run("search date narrows to that day and month", func(t *testing.T) {
		s, _ := newService()
		page, err := s.Calendar(ctx, anon, CalendarQuery{SearchDate: "2024-04-02"})
		require.NoError(t, err)
		require.NotNil(t, page.Day)
		assert.Equal(t, "2024-04-02", page.SearchDate)
		assert.Equal(t, time.April, page.Month.Month)
		require.Len(t, page.Events, 1)
		assert.Equal(t, int64(3), page.Events[0].ID)
	})

	t.Run("search date leaves upcoming and recent past whole", func(t *testing.T) {
		s, _ := newService()
		page, err := s.Calendar(ctx, anon, CalendarQuery{SearchDate: "2024-03-05"})
		require.NoError(t, err)
		require.Len(t, page.Events, 2)
		require.Len(t, page.Upcoming, 1)
		assert.Equal(t, int64(3), page.Upcoming[0].ID)

		page, err = s.Calendar(ctx, anon, CalendarQuery{SearchDate: "2024-04-02"})
		require.NoError(t, err)
		require.Len(t, page.RecentPast, 2)
		assert.Equal(t, int64(2), page.RecentPast[0].ID)
		assert.Equal(t, int64(1), page.RecentPast[1].ID)
	})

	t.Run("explicit month wins over search date", func(t *testing.T) {
		s, _ := newService()
		page, err := s.Calendar(ctx, anon, CalendarQuery{SearchDate: "2024-04-02", Year: "2024", Month: "3"})
		require.NoError(t, err)
		assert.Equal(t, time.March, page.Month.Month)
		assert.Empty(t, page.Events)
	})

	t.Run("bad search date is ignored", func(t *testing.T) {
		s, _ := newService()
		page, err := s.Calendar(ctx, anon, CalendarQuery{SearchDate: "tomorrow"})
		require.NoError(t, err)
		assert.Nil(t, page.Day)
		assert.Empty(t, page.SearchDate)
		assert.Len(t, page.Events, 2)
	})

	t.Run("detail reports capacity and hides participants", func(t *testing.T) {
		s, _ := newService()
		_, err := s.Join(ctx, alice, 3)
		require.NoError(t, err)

		d, err := s.Detail(ctx, bob, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, d.Count)
		assert.False(t, d.IsRegistered)
		assert.True(t, d.IsFull())
		assert.Nil(t, d.Participants)

		d, err = s.Detail(ctx, staffer, 3)
		require.NoError(t, err)
		assert.Len(t, d.Participants, 1)

		d, err = s.Detail(ctx, alice, 3)
		require.NoError(t, err)
		assert.True(t, d.IsRegistered)
	})

	t.Run("unpublished detail is missing for users", func(t *testing.T) {
		s, _ := newService()
		_, err := s.Detail(ctx, alice, 4)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("only staff create events", func(t *testing.T) {
		s, _ := newService()
		_, err := s.Create(ctx, alice, EventInput{Title: "Mine"})
		assert.ErrorIs(t, err, ErrForbidden)

		e, err := s.Create(ctx, staffer, EventInput{Title: "Group walk", StartsAt: now})
		require.NoError(t, err)
		assert.Equal(t, data.EventAdventure, e.EventType)
		assert.Equal(t, int64(9), e.CreatedByID)
		assert.Equal(t, time.UTC, e.StartsAt.Location())
	})

	t.Run("comments on visible events only", func(t *testing.T) {
		s, _ := newService()
		_, err := s.AddComment(ctx, alice, 4, "hi")
		assert.ErrorIs(t, err, ErrNotFound)
		c, err := s.AddComment(ctx, alice, 1, "see you there")
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.EventID)
	})

	t.Run("delete is staff only", func(t *testing.T) {
		s, repo := newService()
		assert.ErrorIs(t, s.Delete(ctx, alice, 1), ErrForbidden)
		require.NoError(t, s.Delete(ctx, staffer, 1))
		_, ok := repo.events[1]
		assert.False(t, ok)
	})
}

func TestDiaryService(t *testing.T) {
	ctx := context.Background()
	newService := func() (*DiaryService, *mockDiaryRepository) {
		repo := newMockDiaryRepository(
			&data.DiaryPage{ID: 1, Title: "Open", Status: data.DiaryPublic},
			&data.DiaryPage{ID: 2, Title: "Secret", Status: data.DiaryDraft},
		)
		return NewDiaryService(repo, newTestRenderer(t), &mockFileStore{}, logger.Nop()), repo
	}

	t.Run("drafts are forbidden to readers", func(t *testing.T) {
		s, _ := newService()
		_, err := s.Get(ctx, alice, 2)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = s.Get(ctx, staffer, 2)
		assert.NoError(t, err)
	})

	t.Run("list hides drafts from readers", func(t *testing.T) {
		s, repo := newService()
		pages, err := s.List(ctx, anon)
		require.NoError(t, err)
		assert.Len(t, pages, 1)
		assert.False(t, repo.lastIncludes)

		pages, err = s.List(ctx, staffer)
		require.NoError(t, err)
		assert.Len(t, pages, 2)
	})

	t.Run("comment gating", func(t *testing.T) {
		s, repo := newService()
		_, err := s.AddComment(ctx, alice, 2, "peek")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = s.AddComment(ctx, anon, 1, "hello")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, err = s.AddComment(ctx, alice, 1, "lovely")
		require.NoError(t, err)
		assert.Len(t, repo.comments, 1)
	})

	t.Run("unknown status becomes draft", func(t *testing.T) {
		s, _ := newService()
		p, err := s.Create(ctx, staffer, DiaryInput{Title: "New", Status: "archived"})
		require.NoError(t, err)
		assert.Equal(t, data.DiaryDraft, p.Status)
	})

	t.Run("readers cannot write", func(t *testing.T) {
		s, _ := newService()
		_, err := s.Create(ctx, alice, DiaryInput{Title: "Nope"})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.ErrorIs(t, s.Delete(ctx, alice, 1), ErrForbidden)
	})
}

func TestMediaService(t *testing.T) {
	ctx := context.Background()
	newService := func() (*MediaService, *mockMediaRepository, *mockFileStore) {
		repo := newMockMediaRepository()
		files := &mockFileStore{}
		return NewMediaService(repo, files, newTestRenderer(t), logger.Nop()), repo, files
	}

	t.Run("library is staff only", func(t *testing.T) {
		s, _, _ := newService()
		_, err := s.List(ctx, alice)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = s.Upload(ctx, alice, "x", "x.png", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("upload stores under the uploader", func(t *testing.T) {
		s, repo, files := newService()
		item, err := s.Upload(ctx, staffer, "Map", "map.pdf", strings.NewReader("pdf"))
		require.NoError(t, err)
		assert.Equal(t, "media_library/9/map.pdf", item.File)
		assert.Equal(t, []string{"media_library/9/map.pdf"}, files.stored)
		assert.Len(t, repo.items, 1)
	})

	t.Run("failed insert removes the stored file", func(t *testing.T) {
		s, repo, files := newService()
		repo.err = errors.New("insert failed")
		_, err := s.Upload(ctx, staffer, "", "a.txt", strings.NewReader("a"))
		assert.Error(t, err)
		assert.Equal(t, files.stored, files.removed)
	})

	t.Run("delete removes the file", func(t *testing.T) {
		s, _, files := newService()
		item, err := s.Upload(ctx, staffer, "", "a.txt", strings.NewReader("a"))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, staffer, item.ID))
		assert.Equal(t, []string{item.File}, files.removed)
	})

	t.Run("about page is public and staff edited", func(t *testing.T) {
		s, _, files := newService()
		page, err := s.About(ctx)
		require.NoError(t, err)
		assert.Empty(t, page.HTMLContent)

		_, err = s.UpdateAbout(ctx, alice, "hi", nil)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = s.UpdateAbout(ctx, staffer, "I *walk*", strPtr("about/one.jpg"))
		require.NoError(t, err)
		_, err = s.UpdateAbout(ctx, staffer, "I *run*", strPtr("about/two.jpg"))
		require.NoError(t, err)
		assert.Equal(t, []string{"about/one.jpg"}, files.removed)

		page, err = s.About(ctx)
		require.NoError(t, err)
		assert.Contains(t, string(page.HTMLContent), "<em>run</em>")
		require.NotNil(t, page.Image)
		assert.Equal(t, "about/two.jpg", *page.Image)
	})
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	newService := func(t *testing.T) (*UserService, *mockUserRepository) {
		repo := &mockUserRepository{}
		s := NewUserService(repo, logger.Nop())
		created, err := s.CreateSuperuser(ctx, "admin", "admin@example.com", "s3cret")
		require.NoError(t, err)
		require.True(t, created)
		return s, repo
	}

	t.Run("username or email login", func(t *testing.T) {
		s, _ := newService(t)
		u, err := s.Authenticate(ctx, "admin", "s3cret")
		require.NoError(t, err)
		assert.True(t, u.IsStaff)

		u, err = s.Authenticate(ctx, " admin@example.com ", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "admin", u.Username)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		s, _ := newService(t)
		_, err := s.Authenticate(ctx, "admin", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = s.Authenticate(ctx, "ghost", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = s.Authenticate(ctx, "", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive accounts cannot sign in", func(t *testing.T) {
		s, repo := newService(t)
		repo.users[0].IsActive = false
		_, err := s.Authenticate(ctx, "admin", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = s.ByVerifiedEmail(ctx, "admin@example.com")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff login rejects regular users", func(t *testing.T) {
		s, repo := newService(t)
		repo.users[0].IsStaff = false
		_, err := s.AuthenticateStaff(ctx, "admin", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("superuser creation skips taken names", func(t *testing.T) {
		s, repo := newService(t)
		created, err := s.CreateSuperuser(ctx, "admin", "other@example.com", "pw")
		require.NoError(t, err)
		assert.False(t, created)
		created, err = s.CreateSuperuser(ctx, "other", "admin@example.com", "pw")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Len(t, repo.users, 1)

		_, err = s.CreateSuperuser(ctx, "", "x@example.com", "pw")
		assert.Error(t, err)
	})
}
