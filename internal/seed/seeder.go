package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev fills the development database with realistic view history:
// a population of users each having seen a random slice of a shared post
// pool, spread over the last few days so seed-window queries have both
// fresh and stale rows to chew on.
func (s *Seeder) SeedDev(userCount, postCount, viewsPerUser int) error {
	if userCount <= 0 {
		userCount = 50
	}
	if postCount <= 0 {
		postCount = 500
	}
	if viewsPerUser <= 0 {
		viewsPerUser = 40
	}
	if viewsPerUser > postCount {
		viewsPerUser = postCount
	}

	posts := make([]string, postCount)
	for i := range posts {
		posts[i] = gofakeit.UUID()
	}

	sources := []string{"feed", "detail", "profile"}
	now := time.Now().UTC()
	total := 0

	for i := 0; i < userCount; i++ {
		userID := gofakeit.UUID()
		sessionID := gofakeit.UUID()

		views := make([]models.PostView, 0, viewsPerUser)
		for _, idx := range rand.Perm(postCount)[:viewsPerUser] {
			views = append(views, models.PostView{
				PostID:    posts[idx],
				UserID:    userID,
				Source:    sources[rand.Intn(len(sources))],
				SessionID: sessionID,
				ViewedAt:  now.Add(-time.Duration(rand.Intn(72)) * time.Hour),
			})
		}

		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).CreateInBatches(&views, 100).Error
		if err != nil {
			return fmt.Errorf("failed to seed views for user %d: %w", i, err)
		}
		total += len(views)
	}

	logger.Log.Info("✅ Development data seeded",
		zap.Int("users", userCount),
		zap.Int("posts", postCount),
		zap.Int("views", total),
	)
	return nil
}
