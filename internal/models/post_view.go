package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostView records that a user has seen a post in their feed.
// Unlike click tracking, a view is recorded at most once per (post, user)
// pair: the composite unique index makes the batched upsert idempotent.
type PostView struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_post_views_post_user;index:idx_post_views_post_viewed" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_post_views_post_user;index:idx_post_views_user_viewed" json:"user_id"`

	// Optional context
	Source    string `gorm:"index" json:"source,omitempty"`     // "feed", "detail", "profile"
	SessionID string `gorm:"index" json:"session_id,omitempty"` // Session identifier for grouping

	ViewedAt time.Time `gorm:"not null;index:idx_post_views_post_viewed;index:idx_post_views_user_viewed" json:"viewed_at"`

	// GORM fields
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (PostView) TableName() string {
	return "post_views"
}

// BeforeCreate generates a UUID when the database doesn't (sqlite in tests)
func (pv *PostView) BeforeCreate(tx *gorm.DB) error {
	if pv.ID == "" {
		pv.ID = uuid.New().String()
	}
	if pv.ViewedAt.IsZero() {
		pv.ViewedAt = time.Now().UTC()
	}
	return nil
}
