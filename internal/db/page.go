package db

import "time"

// Page is a stored HTML document served publicly under its slug.
type Page struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:32;uniqueIndex;not null" json:"slug"`
	Title       string    `gorm:"size:255" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsPublished bool      `gorm:"not null" json:"isPublished"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PageChanges lists the columns an update writes. Nil fields are left untouched.
type PageChanges struct {
	Title       *string
	Content     *string
	IsPublished *bool
}

// Empty reports whether no column was supplied.
func (c PageChanges) Empty() bool {
	return c.Title == nil && c.Content == nil && c.IsPublished == nil
}

func (c PageChanges) columns() map[string]interface{} {
	values := make(map[string]interface{}, 4)
	if c.Title != nil {
		values["title"] = *c.Title
	}
	if c.Content != nil {
		values["content"] = *c.Content
	}
	if c.IsPublished != nil {
		values["is_published"] = *c.IsPublished
	}
	return values
}
