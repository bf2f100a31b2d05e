package services

import (
	"context"

	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
	"github.com/classforge/assessment-service/internal/validator"
)

// ===== ASSESSMENT RELATED DTOs =====

// Use business validator types
type CreateAssessmentRequest = validator.AssessmentCreateRequest
type UpdateAssessmentRequest = validator.AssessmentUpdateRequest
type ShareAssessmentRequest = validator.AssessmentShareRequest

type AssessmentResponse struct {
	*models.Assessment
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanTake   bool `json:"can_take"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest = validator.AttemptStartRequest
type SubmitResponseRequest = validator.ResponseSubmitRequest
type GradeResponseRequest = validator.ResponseGradeRequest

type AttemptResponse struct {
	*models.Attempt
	CanSubmit      bool `json:"can_submit"`
	IsPendingGrade bool `json:"is_pending_grade"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error)
	GetByID(ctx context.Context, id string, userID string) (*AssessmentResponse, error)
	Update(ctx context.Context, id string, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error)
	Delete(ctx context.Context, id string, userID string) error

	// List operations
	ListByCreator(ctx context.Context, creatorID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error)
	ListSharedWith(ctx context.Context, educatorID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error)

	// Sharing and status management
	Share(ctx context.Context, id string, req *ShareAssessmentRequest, userID string) (*AssessmentResponse, error)
	Publish(ctx context.Context, id string, userID string) error
	Archive(ctx context.Context, id string, userID string) error

	// Permission checks
	CanAccess(ctx context.Context, assessmentID string, userID string) (bool, error)
	CanEdit(ctx context.Context, assessmentID string, userID string) (bool, error)
}

type AttemptService interface {
	// Lifecycle
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	SubmitResponse(ctx context.Context, attemptID string, req *SubmitResponseRequest, studentID string) (*AttemptResponse, error)
	Complete(ctx context.Context, attemptID string, studentID string) (*AttemptResponse, error)
	Abandon(ctx context.Context, attemptID string, studentID string) error

	// Manual grading
	GradeResponse(ctx context.Context, attemptID string, req *GradeResponseRequest, graderID string) (*AttemptResponse, error)

	// Queries
	GetByID(ctx context.Context, attemptID string, userID string) (*AttemptResponse, error)
	ListByAssessment(ctx context.Context, assessmentID string, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

type AnalyticsService interface {
	// Get returns the cached snapshot when fresh, regenerating it from
	// attempts otherwise.
	Get(ctx context.Context, assessmentID string, userID string) (*models.AssessmentAnalytics, error)

	// Refresh recomputes and persists the snapshot unconditionally.
	Refresh(ctx context.Context, assessmentID string, userID string) (*models.AssessmentAnalytics, error)
}

type ExportService interface {
	// ExportResults renders attempts and analytics for the assessment
	// into an xlsx workbook.
	ExportResults(ctx context.Context, assessmentID string, userID string) ([]byte, string, error)
}

type ServiceManager interface {
	Assessment() AssessmentService
	Attempt() AttemptService
	Analytics() AnalyticsService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
