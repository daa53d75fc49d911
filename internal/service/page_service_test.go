package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pagedrop/internal/config"
	"github.com/pagedrop/internal/db"
	"github.com/pagedrop/internal/slug"
	"gorm.io/gorm/logger"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func setupPageServiceTestDB(t *testing.T) *db.PageStore {
	t.Helper()

	clock := &stepClock{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	dsn := fmt.Sprintf("file:page-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", Path: dsn},
		db.WithNowFunc(clock.Now),
		db.WithLogLevel(logger.Silent),
	)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	return db.NewPageStore(gdb)
}

// sequenceSlugs hands out the given slugs in order, then falls back to random ones.
func sequenceSlugs(slugs ...string) (slug.Func, *int) {
	calls := 0
	return func() (string, error) {
		calls++
		if calls <= len(slugs) {
			return slugs[calls-1], nil
		}
		return slug.Generate()
	}, &calls
}

func TestCreatePageDefaultsAndResolve(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, CreatePageInput{Content: "<h1>hi</h1>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	if page.Title != DefaultTitle {
		t.Fatalf("expected default title %q, got %q", DefaultTitle, page.Title)
	}
	if !page.IsPublished {
		t.Fatal("expected new page to be published")
	}
	if !slug.Valid(page.Slug) {
		t.Fatalf("unexpected slug %q", page.Slug)
	}

	content, err := svc.Resolve(ctx, page.Slug)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if content != "<h1>hi</h1>" {
		t.Fatalf("expected verbatim content, got %q", content)
	}
}

func TestCreatePageKeepsContentVerbatim(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	raw := "  <script>alert(1)</script>\n<p>spacing kept</p>\n"
	page, err := svc.CreatePage(ctx, CreatePageInput{Title: "  Trimmed  ", Content: raw})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if page.Title != "Trimmed" {
		t.Fatalf("expected trimmed title, got %q", page.Title)
	}

	content, err := svc.Resolve(ctx, page.Slug)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if content != raw {
		t.Fatalf("expected %q, got %q", raw, content)
	}
}

func TestCreatePageRequiresContent(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))

	for _, content := range []string{"", " \n\t"} {
		if _, err := svc.CreatePage(context.Background(), CreatePageInput{Title: "x", Content: content}); !errors.Is(err, ErrPageContentMissing) {
			t.Fatalf("content %q: expected ErrPageContentMissing, got %v", content, err)
		}
	}
}

func TestCreatePageRejectsLongTitle(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))

	_, err := svc.CreatePage(context.Background(), CreatePageInput{Title: strings.Repeat("t", 256), Content: "<p></p>"})
	if !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}
}

func TestCreatePageRetriesOnSlugCollision(t *testing.T) {
	store := setupPageServiceTestDB(t)
	ctx := context.Background()

	seed := NewPageService(store, WithSlugFunc(func() (string, error) { return "takenslug0", nil }))
	if _, err := seed.CreatePage(ctx, CreatePageInput{Content: "<p>first</p>"}); err != nil {
		t.Fatalf("failed to seed page: %v", err)
	}

	gen, calls := sequenceSlugs("takenslug0", "takenslug0", "freshslug0")
	svc := NewPageService(store, WithSlugFunc(gen))

	page, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p>second</p>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if page.Slug != "freshslug0" {
		t.Fatalf("expected retried slug, got %q", page.Slug)
	}
	if *calls != 3 {
		t.Fatalf("expected 3 slug generations, got %d", *calls)
	}
}

func TestCreatePageFailsAfterBoundedRetries(t *testing.T) {
	store := setupPageServiceTestDB(t)
	ctx := context.Background()

	calls := 0
	always := func() (string, error) {
		calls++
		return "stuckslug0", nil
	}
	svc := NewPageService(store, WithSlugFunc(always), WithMaxSlugAttempts(3))

	if _, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p>first</p>"}); err != nil {
		t.Fatalf("first CreatePage returned error: %v", err)
	}
	calls = 0

	_, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p>second</p>"})
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("expected ErrCreationFailed, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestCreatePageSurfacesGeneratorError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	svc := NewPageService(setupPageServiceTestDB(t), WithSlugFunc(func() (string, error) { return "", boom }))

	if _, err := svc.CreatePage(context.Background(), CreatePageInput{Content: "<p></p>"}); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestTogglePublishHidesPageLikeMissingSlug(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, CreatePageInput{Title: "Draft", Content: "<p>secret</p>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	updated, err := svc.TogglePublish(ctx, page.ID, false)
	if err != nil {
		t.Fatalf("TogglePublish returned error: %v", err)
	}
	if updated.IsPublished {
		t.Fatal("expected page to be unpublished")
	}

	_, hiddenErr := svc.Resolve(ctx, page.Slug)
	_, missingErr := svc.Resolve(ctx, "neverMade0")
	if !errors.Is(hiddenErr, ErrPageUnavailable) || !errors.Is(missingErr, ErrPageUnavailable) {
		t.Fatalf("expected ErrPageUnavailable for both, got %v and %v", hiddenErr, missingErr)
	}
	if hiddenErr.Error() != missingErr.Error() {
		t.Fatalf("unpublished and missing slugs must be indistinguishable: %q vs %q", hiddenErr, missingErr)
	}

	if _, err := svc.TogglePublish(ctx, page.ID, true); err != nil {
		t.Fatalf("TogglePublish returned error: %v", err)
	}
	if _, err := svc.Resolve(ctx, page.Slug); err != nil {
		t.Fatalf("expected republished page to resolve, got %v", err)
	}
}

func TestResolveRejectsMalformedSlug(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))

	for _, s := range []string{"", "short", "../../etc/pa", "has space!"} {
		if _, err := svc.Resolve(context.Background(), s); !errors.Is(err, ErrPageUnavailable) {
			t.Fatalf("slug %q: expected ErrPageUnavailable, got %v", s, err)
		}
	}
}

func TestUpdatePageChangesOnlyTitle(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, CreatePageInput{Title: "Old", Content: "<p>body</p>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	updated, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Title: Some("New")})
	if err != nil {
		t.Fatalf("UpdatePage returned error: %v", err)
	}

	if updated.Title != "New" {
		t.Fatalf("expected title New, got %q", updated.Title)
	}
	if updated.Content != page.Content || updated.Slug != page.Slug || updated.IsPublished != page.IsPublished {
		t.Fatalf("unexpected field changes: before %+v after %+v", page, updated)
	}
	if !updated.CreatedAt.Equal(page.CreatedAt) {
		t.Fatal("createdAt must not change")
	}
	if !updated.UpdatedAt.After(page.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance: %v -> %v", page.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdatePageFieldRules(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, CreatePageInput{Title: "Keep", Content: "<p>body</p>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	if _, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Content: Optional[string]{Set: true, Null: true}}); !errors.Is(err, ErrPageContentMissing) {
		t.Fatalf("null content: expected ErrPageContentMissing, got %v", err)
	}
	if _, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Content: Some("   ")}); !errors.Is(err, ErrPageContentMissing) {
		t.Fatalf("blank content: expected ErrPageContentMissing, got %v", err)
	}
	if _, err := svc.UpdatePage(ctx, page.ID, PageUpdate{IsPublished: Optional[bool]{Set: true, Null: true}}); !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("null isPublished: expected ErrInvalidUpdate, got %v", err)
	}

	reset, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Title: Optional[string]{Set: true, Null: true}})
	if err != nil {
		t.Fatalf("UpdatePage returned error: %v", err)
	}
	if reset.Title != DefaultTitle {
		t.Fatalf("expected null title to reset to default, got %q", reset.Title)
	}

	both, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Content: Some("<p>new</p>"), IsPublished: Some(false)})
	if err != nil {
		t.Fatalf("UpdatePage returned error: %v", err)
	}
	if both.Content != "<p>new</p>" || both.IsPublished || both.Title != DefaultTitle {
		t.Fatalf("unexpected page after update: %+v", both)
	}
}

func TestDeletedPageIsGoneEverywhere(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	page, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p>bye</p>"})
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if err := svc.DeletePage(ctx, page.ID); err != nil {
		t.Fatalf("DeletePage returned error: %v", err)
	}

	if _, err := svc.UpdatePage(ctx, page.ID, PageUpdate{Title: Some("x")}); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("UpdatePage: expected ErrPageNotFound, got %v", err)
	}
	if err := svc.DeletePage(ctx, page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("DeletePage: expected ErrPageNotFound, got %v", err)
	}
	if _, err := svc.GetPage(ctx, page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("GetPage: expected ErrPageNotFound, got %v", err)
	}
	if _, err := svc.Resolve(ctx, page.Slug); !errors.Is(err, ErrPageUnavailable) {
		t.Fatalf("Resolve: expected ErrPageUnavailable, got %v", err)
	}
}

func TestListPagesPagination(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.CreatePage(ctx, CreatePageInput{Title: fmt.Sprintf("Page %d", i), Content: "<p>x</p>"}); err != nil {
			t.Fatalf("CreatePage %d returned error: %v", i, err)
		}
	}

	first, err := svc.ListPages(ctx, ListQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if first.Total != 25 || first.TotalPages != 3 || len(first.Items) != 10 {
		t.Fatalf("unexpected first page: total=%d totalPages=%d items=%d", first.Total, first.TotalPages, len(first.Items))
	}
	if first.Items[0].Title != "Page 24" {
		t.Fatalf("expected newest page first, got %q", first.Items[0].Title)
	}

	third, err := svc.ListPages(ctx, ListQuery{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if len(third.Items) != 5 || third.CurrentPage != 3 {
		t.Fatalf("expected 5 items on page 3, got %d", len(third.Items))
	}
	if third.Items[4].Title != "Page 0" {
		t.Fatalf("expected oldest page last, got %q", third.Items[4].Title)
	}

	fourth, err := svc.ListPages(ctx, ListQuery{Page: 4, Limit: 10})
	if err != nil {
		t.Fatalf("ListPages beyond last page returned error: %v", err)
	}
	if len(fourth.Items) != 0 || fourth.CurrentPage != 4 || fourth.TotalPages != 3 {
		t.Fatalf("unexpected page 4: %+v", fourth)
	}
}

func TestListPagesNormalisesQuery(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	empty, err := svc.ListPages(ctx, ListQuery{Page: -2, Limit: 0})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if empty.CurrentPage != 1 || empty.Limit != DefaultListLimit || empty.TotalPages != 0 || empty.Items == nil {
		t.Fatalf("unexpected normalised result: %+v", empty)
	}

	capped, err := svc.ListPages(ctx, ListQuery{Page: 1, Limit: 1000})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if capped.Limit != MaxListLimit {
		t.Fatalf("expected limit capped at %d, got %d", MaxListLimit, capped.Limit)
	}
}

func TestListPagesHugePageNumberIsPastTheEnd(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p>x</p>"}); err != nil {
			t.Fatalf("CreatePage %d returned error: %v", i, err)
		}
	}

	for _, page := range []int{math.MaxInt, math.MaxInt/10 + 2, math.MaxInt/2 + 1} {
		list, err := svc.ListPages(ctx, ListQuery{Page: page, Limit: 10})
		if err != nil {
			t.Fatalf("ListPages(page=%d) returned error: %v", page, err)
		}
		if len(list.Items) != 0 || list.Items == nil {
			t.Fatalf("page=%d: expected empty items, got %d", page, len(list.Items))
		}
		if list.Total != 3 || list.TotalPages != 1 || list.CurrentPage != page {
			t.Fatalf("page=%d: unexpected counters %+v", page, list)
		}
	}
}

func TestListPagesIncludesExcerpt(t *testing.T) {
	svc := NewPageService(setupPageServiceTestDB(t))
	ctx := context.Background()

	if _, err := svc.CreatePage(ctx, CreatePageInput{Content: "<html><head><style>p{}</style></head><body><h1>Hello</h1><p>Tom &amp; Jerry</p></body></html>"}); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	list, err := svc.ListPages(ctx, ListQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if got := list.Items[0].Excerpt; got != "Hello Tom & Jerry" {
		t.Fatalf("unexpected excerpt %q", got)
	}
}

type failingStore struct {
	PageRepository
	err error
}

func (f failingStore) GetBySlug(context.Context, string) (*db.Page, error) {
	return nil, f.err
}

func (f failingStore) ListByCreatedDesc(context.Context, int, int) ([]db.Page, int64, error) {
	return nil, 0, f.err
}

func (f failingStore) Count(context.Context) (int64, error) {
	return 0, f.err
}

func (f failingStore) Insert(context.Context, *db.Page) error {
	return f.err
}

func TestStorageFailuresAreNotDisguised(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewPageService(failingStore{err: boom})
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, "abcdefghij"); !errors.Is(err, boom) || errors.Is(err, ErrPageUnavailable) {
		t.Fatalf("Resolve: expected storage error, got %v", err)
	}
	if _, err := svc.ListPages(ctx, ListQuery{}); !errors.Is(err, boom) {
		t.Fatalf("ListPages: expected storage error, got %v", err)
	}
	if _, err := svc.CreatePage(ctx, CreatePageInput{Content: "<p></p>"}); !errors.Is(err, boom) {
		t.Fatalf("CreatePage: expected storage error, got %v", err)
	}
}
