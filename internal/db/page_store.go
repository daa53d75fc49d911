package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violated")
)

// PageStore is the gorm-backed persistence for pages.
type PageStore struct {
	db *gorm.DB
}

// NewPageStore wraps an opened database.
func NewPageStore(gdb *gorm.DB) *PageStore {
	return &PageStore{db: gdb}
}

// Insert persists a new page. A duplicate slug yields ErrUniqueViolation.
func (s *PageStore) Insert(ctx context.Context, page *Page) error {
	if err := s.db.WithContext(ctx).Create(page).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slug %q", ErrUniqueViolation, page.Slug)
		}
		return err
	}
	return nil
}

// GetByID fetches a page by primary key.
func (s *PageStore) GetByID(ctx context.Context, id uint) (*Page, error) {
	var page Page
	if err := s.db.WithContext(ctx).First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// GetBySlug fetches a page by its public slug.
func (s *PageStore) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	var page Page
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// Update writes only the supplied columns plus updated_at and returns the fresh row.
func (s *PageStore) Update(ctx context.Context, id uint, changes PageChanges) (*Page, error) {
	var page Page
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := changes.columns()
		values["updated_at"] = tx.NowFunc()

		result := tx.Model(&Page{}).Where("id = ?", id).Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&page, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// Delete removes a page permanently.
func (s *PageStore) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Page{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCreatedDesc returns one window of pages, newest first, and the total row count.
// Rows sharing a created_at are ordered by id so the sequence is total.
func (s *PageStore) ListByCreatedDesc(ctx context.Context, offset, limit int) ([]Page, int64, error) {
	var (
		pages []Page
		total int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Page{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("created_at desc").Order("id desc").
			Offset(offset).
			Limit(limit).
			Find(&pages).Error
	})
	if err != nil {
		return nil, 0, err
	}
	if pages == nil {
		pages = []Page{}
	}
	return pages, total, nil
}

// Count returns the number of stored pages.
func (s *PageStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Page{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Ping checks the connection pool.
func (s *PageStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
