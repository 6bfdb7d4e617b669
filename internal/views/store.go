package views

import (
	"context"
	"time"

	"github.com/chirpfeed/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence boundary for confirmed views.
type Store interface {
	// RecentlyViewed returns post IDs the user viewed since the given time,
	// newest first, capped at limit. Used to seed a recorder's viewed-set.
	RecentlyViewed(ctx context.Context, userID string, since time.Time, limit int) ([]string, error)

	// RecordViews persists a batch of views for the user in a single
	// idempotent write: (post, user) pairs that already exist are ignored.
	RecordViews(ctx context.Context, userID string, postIDs []string) error
}

// GormStore persists views through GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// RecentlyViewed implements Store
func (s *GormStore) RecentlyViewed(ctx context.Context, userID string, since time.Time, limit int) ([]string, error) {
	var postIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.PostView{}).
		Where("user_id = ? AND viewed_at >= ?", userID, since).
		Order("viewed_at DESC").
		Limit(limit).
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, err
	}
	return postIDs, nil
}

// RecordViews implements Store. The whole batch goes out as one insert with
// ON CONFLICT (post_id, user_id) DO NOTHING, so replays and races between
// recorder sessions never error.
func (s *GormStore) RecordViews(ctx context.Context, userID string, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	views := make([]models.PostView, 0, len(postIDs))
	for _, postID := range postIDs {
		views = append(views, models.PostView{
			PostID:   postID,
			UserID:   userID,
			Source:   "feed",
			ViewedAt: now,
		})
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&views).Error
}
