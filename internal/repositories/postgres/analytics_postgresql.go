package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classforge/assessment-service/internal/cache"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
)

type AnalyticsPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAnalyticsPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AnalyticsRepository {
	return &AnalyticsPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AnalyticsPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Upsert stores the snapshot, replacing any previous one for the same assessment
func (a *AnalyticsPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, analytics *models.AssessmentAnalytics) error {
	db := a.getDB(tx)

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}},
			UpdateAll: true,
		}).
		Create(analytics).Error
	if err != nil {
		return fmt.Errorf("failed to upsert analytics: %w", err)
	}

	cache.InvalidateAnalyticsCache(ctx, a.cacheManager, analytics.AssessmentID)

	return nil
}

func (a *AnalyticsPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (*models.AssessmentAnalytics, error) {
	db := a.getDB(tx)

	var analytics models.AssessmentAnalytics
	err := db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		First(&analytics).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}

	return &analytics, nil
}
