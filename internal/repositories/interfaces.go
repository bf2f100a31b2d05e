package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/models"
)

// ===== ENTITY REPOSITORIES =====

type AssessmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assessment, error)

	// Update persists the assessment guarded by its version counter:
	// the write succeeds only when the stored version still matches
	// expectedVersion, and bumps it by one.
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment, expectedVersion int) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetSharedWith(ctx context.Context, tx *gorm.DB, educatorID string, filters AssessmentFilters) ([]*models.Assessment, int64, error)

	IsOwner(ctx context.Context, tx *gorm.DB, assessmentID string, userID string) (bool, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// GetOpenAttempt returns the student's in-progress attempt on the
	// assessment, or a not-found error.
	GetOpenAttempt(ctx context.Context, tx *gorm.DB, assessmentID, studentID string) (*models.Attempt, error)
}

type AnalyticsRepository interface {
	// Upsert stores the snapshot, replacing any previous one for the
	// same assessment.
	Upsert(ctx context.Context, tx *gorm.DB, analytics *models.AssessmentAnalytics) error
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (*models.AssessmentAnalytics, error)
}

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	Status    *models.AssessmentStatus `json:"status"`
	CreatedBy *string                  `json:"created_by"`
	Subject   *string                  `json:"subject"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "created_at", "title", "updated_at"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}
