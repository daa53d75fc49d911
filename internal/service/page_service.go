package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pagedrop/internal/db"
	"github.com/pagedrop/internal/logger"
	"github.com/pagedrop/internal/metrics"
	"github.com/pagedrop/internal/slug"
)

const (
	// DefaultTitle is stored when a page is created without a title.
	DefaultTitle = "Untitled"
	// DefaultMaxSlugAttempts bounds slug regeneration after unique violations.
	DefaultMaxSlugAttempts = 5

	DefaultListLimit = 10
	MaxListLimit     = 100

	maxTitleLength = 255
)

var (
	ErrPageNotFound       = errors.New("page not found")
	ErrPageUnavailable    = errors.New("page not found or unpublished")
	ErrPageContentMissing = errors.New("page content is required")
	ErrTitleTooLong       = errors.New("page title is too long")
	ErrInvalidUpdate      = errors.New("invalid page update")
	ErrCreationFailed     = errors.New("page creation failed")
)

// PageRepository is the storage the page service runs against.
type PageRepository interface {
	Insert(ctx context.Context, page *db.Page) error
	GetByID(ctx context.Context, id uint) (*db.Page, error)
	GetBySlug(ctx context.Context, slug string) (*db.Page, error)
	Update(ctx context.Context, id uint, changes db.PageChanges) (*db.Page, error)
	Delete(ctx context.Context, id uint) error
	ListByCreatedDesc(ctx context.Context, offset, limit int) ([]db.Page, int64, error)
	Count(ctx context.Context) (int64, error)
}

// PageService manages the page lifecycle, public resolution and admin listing.
// Callers are responsible for authorizing mutating and listing calls.
type PageService struct {
	store       PageRepository
	newSlug     slug.Func
	maxAttempts int
}

// PageServiceOption customises a PageService.
type PageServiceOption func(*PageService)

// WithSlugFunc replaces the slug generator.
func WithSlugFunc(fn slug.Func) PageServiceOption {
	return func(s *PageService) {
		if fn != nil {
			s.newSlug = fn
		}
	}
}

// WithMaxSlugAttempts sets how many slugs CreatePage tries before giving up.
func WithMaxSlugAttempts(n int) PageServiceOption {
	return func(s *PageService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewPageService returns a new PageService instance.
func NewPageService(store PageRepository, opts ...PageServiceOption) *PageService {
	s := &PageService{
		store:       store,
		newSlug:     slug.Generate,
		maxAttempts: DefaultMaxSlugAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePageInput holds the fields accepted when creating a page.
type CreatePageInput struct {
	Title   string
	Content string
}

// PageUpdate lists the fields of a partial update; absent fields are left as stored.
type PageUpdate struct {
	Title       Optional[string]
	Content     Optional[string]
	IsPublished Optional[bool]
}

// ListQuery selects one page of the admin listing. Page is 1-based.
type ListQuery struct {
	Page  int
	Limit int
}

// PageListItem is a listed page with a plain-text preview.
type PageListItem struct {
	db.Page
	Excerpt string `json:"excerpt"`
}

// PageList aggregates paginated list data and counters.
type PageList struct {
	Items       []PageListItem
	Total       int64
	TotalPages  int
	CurrentPage int
	Limit       int
}

// CreatePage stores a new published page under a freshly minted slug.
// Slug collisions are retried with a new slug up to the configured attempt count.
func (s *PageService) CreatePage(ctx context.Context, input CreatePageInput) (*db.Page, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrPageContentMissing
	}
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageSlug, err := s.newSlug()
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}

		page := &db.Page{
			Slug:        pageSlug,
			Title:       title,
			Content:     input.Content,
			IsPublished: true,
		}
		err = s.store.Insert(ctx, page)
		if err == nil {
			metrics.PagesCreated.Inc()
			logger.Info("page created",
				slog.Uint64("page_id", uint64(page.ID)),
				slog.String("slug", page.Slug),
				slog.Int("attempt", attempt))
			return page, nil
		}
		if !errors.Is(err, db.ErrUniqueViolation) {
			return nil, err
		}

		metrics.SlugCollisions.Inc()
		logger.Warn("slug collision, retrying",
			slog.String("slug", pageSlug),
			slog.Int("attempt", attempt))
	}

	return nil, fmt.Errorf("%w: no unique slug after %d attempts", ErrCreationFailed, s.maxAttempts)
}

// GetPage fetches a page by id.
func (s *PageService) GetPage(ctx context.Context, id uint) (*db.Page, error) {
	page, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return page, nil
}

// UpdatePage applies the supplied fields. Slug, id and createdAt never change;
// updatedAt is refreshed.
func (s *PageService) UpdatePage(ctx context.Context, id uint, update PageUpdate) (*db.Page, error) {
	changes, err := update.changes()
	if err != nil {
		return nil, err
	}

	page, err := s.store.Update(ctx, id, changes)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return page, nil
}

// TogglePublish sets only the publish flag.
func (s *PageService) TogglePublish(ctx context.Context, id uint, published bool) (*db.Page, error) {
	return s.UpdatePage(ctx, id, PageUpdate{IsPublished: Some(published)})
}

// DeletePage removes a page permanently.
func (s *PageService) DeletePage(ctx context.Context, id uint) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	logger.Info("page deleted", slog.Uint64("page_id", uint64(id)))
	return nil
}

// Resolve returns the stored HTML of a published page. Unknown, malformed and
// unpublished slugs all yield ErrPageUnavailable.
func (s *PageService) Resolve(ctx context.Context, pageSlug string) (string, error) {
	if !slug.Valid(pageSlug) {
		metrics.PageResolutions.WithLabelValues("unavailable").Inc()
		return "", ErrPageUnavailable
	}

	page, err := s.store.GetBySlug(ctx, pageSlug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			metrics.PageResolutions.WithLabelValues("unavailable").Inc()
			return "", ErrPageUnavailable
		}
		metrics.PageResolutions.WithLabelValues("error").Inc()
		return "", err
	}
	if !page.IsPublished {
		metrics.PageResolutions.WithLabelValues("unavailable").Inc()
		return "", ErrPageUnavailable
	}

	metrics.PageResolutions.WithLabelValues("served").Inc()
	return page.Content, nil
}

// ListPages returns pages newest first. A page number past the end yields no
// items rather than an error.
func (s *PageService) ListPages(ctx context.Context, query ListQuery) (*PageList, error) {
	result := &PageList{CurrentPage: query.Page, Limit: query.Limit}
	if result.CurrentPage <= 0 {
		result.CurrentPage = 1
	}
	if result.Limit <= 0 {
		result.Limit = DefaultListLimit
	}
	if result.Limit > MaxListLimit {
		result.Limit = MaxListLimit
	}

	var (
		pages []db.Page
		total int64
		err   error
	)
	if result.CurrentPage-1 > math.MaxInt/result.Limit {
		// the offset would overflow; no table holds that many rows
		total, err = s.store.Count(ctx)
	} else {
		pages, total, err = s.store.ListByCreatedDesc(ctx, (result.CurrentPage-1)*result.Limit, result.Limit)
	}
	if err != nil {
		return nil, err
	}

	result.Total = total
	result.TotalPages = int((total + int64(result.Limit) - 1) / int64(result.Limit))
	result.Items = make([]PageListItem, 0, len(pages))
	for _, page := range pages {
		result.Items = append(result.Items, PageListItem{Page: page, Excerpt: excerptOf(page.Content)})
	}
	return result, nil
}

func (u PageUpdate) changes() (db.PageChanges, error) {
	var changes db.PageChanges

	if u.Title.Set {
		raw := ""
		if !u.Title.Null {
			raw = u.Title.Value
		}
		title, err := normalizeTitle(raw)
		if err != nil {
			return changes, err
		}
		changes.Title = &title
	}

	if u.Content.Set {
		if u.Content.Null || strings.TrimSpace(u.Content.Value) == "" {
			return changes, ErrPageContentMissing
		}
		content := u.Content.Value
		changes.Content = &content
	}

	if u.IsPublished.Set {
		if u.IsPublished.Null {
			return changes, fmt.Errorf("%w: isPublished cannot be null", ErrInvalidUpdate)
		}
		published := u.IsPublished.Value
		changes.IsPublished = &published
	}

	return changes, nil
}

func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return DefaultTitle, nil
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrPageNotFound
	}
	return err
}
