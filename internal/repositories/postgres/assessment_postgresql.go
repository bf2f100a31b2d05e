package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/cache"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AssessmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create inserts a new assessment and invalidates list caches
func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, fmt.Sprintf("creator:%s:*", assessment.CreatedBy))
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, "list:*")

	return nil
}

// GetByID retrieves an assessment by ID with caching
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assessment, error) {
	db := a.getDB(tx)
	cacheKey := fmt.Sprintf("id:%s", id)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		err := db.WithContext(ctx).
			Where("id = ?", id).
			First(&dbAssessment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.ErrNotFound
			}
			return nil, fmt.Errorf("failed to get assessment: %w", err)
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

// Update persists the assessment guarded by its version counter.
// The write only lands when the stored version still equals
// expectedVersion; a concurrent writer that got there first makes
// this call return ErrVersionConflict.
func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment, expectedVersion int) error {
	db := a.getDB(tx)

	result := db.WithContext(ctx).Model(&models.Assessment{}).
		Where("id = ? AND version = ?", assessment.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":         assessment.Title,
			"description":   assessment.Description,
			"subject":       assessment.Subject,
			"grade_level":   assessment.GradeLevel,
			"status":        assessment.Status,
			"questions":     assessment.Questions,
			"time_limit":    assessment.TimeLimit,
			"passing_score": assessment.PassingScore,
			"shared_with":   assessment.SharedWith,
			"updated_at":    assessment.UpdatedAt,
			"version":       expectedVersion + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update assessment: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Assessment{}).
			Where("id = ?", assessment.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check assessment existence: %w", err)
		}
		if count == 0 {
			return repositories.ErrNotFound
		}
		return repositories.ErrVersionConflict
	}

	assessment.Version = expectedVersion + 1
	cache.InvalidateAssessmentCache(ctx, a.cacheManager, assessment.ID, assessment.CreatedBy)

	return nil
}

// Delete hard deletes an assessment
func (a *AssessmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := a.getDB(tx)

	var assessment models.Assessment
	if err := db.WithContext(ctx).Select("id, created_by").Where("id = ?", id).First(&assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.ErrNotFound
		}
		return fmt.Errorf("failed to get assessment before delete: %w", err)
	}

	if err := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Assessment{}).Error; err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id, assessment.CreatedBy)

	return nil
}

// List retrieves assessments with filters and pagination
func (a *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	db := a.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Assessment{})

	query = a.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}

	return assessments, total, nil
}

// GetByCreator retrieves assessments created by a specific educator
func (a *AssessmentPostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	filters.CreatedBy = &creatorID
	return a.List(ctx, tx, filters)
}

// GetSharedWith retrieves assessments shared with a specific educator.
// The shared_with column is a JSONB array of educator IDs, so the
// lookup uses containment rather than equality.
func (a *AssessmentPostgreSQL) GetSharedWith(ctx context.Context, tx *gorm.DB, educatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	db := a.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Assessment{}).
		Where("shared_with @> ?::jsonb", fmt.Sprintf(`[%q]`, educatorID))

	query = a.helpers.ApplyAssessmentFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count shared assessments: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list shared assessments: %w", err)
	}

	return assessments, total, nil
}

// IsOwner checks whether the user created the assessment
func (a *AssessmentPostgreSQL) IsOwner(ctx context.Context, tx *gorm.DB, assessmentID string, userID string) (bool, error) {
	db := a.getDB(tx)

	var count int64
	err := db.WithContext(ctx).Model(&models.Assessment{}).
		Where("id = ? AND created_by = ?", assessmentID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check assessment ownership: %w", err)
	}

	return count > 0, nil
}
