package services

import (
	"context"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
)

// mockRepository is an in-memory repositories.Repository for service
// tests.
type mockRepository struct {
	mu          sync.Mutex
	assessments map[string]*models.Assessment
	attempts    map[string]*models.Attempt
	analytics   map[string]*models.AssessmentAnalytics
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		assessments: make(map[string]*models.Assessment),
		attempts:    make(map[string]*models.Attempt),
		analytics:   make(map[string]*models.AssessmentAnalytics),
	}
}

func (m *mockRepository) Assessment() repositories.AssessmentRepository { return &mockAssessments{m} }
func (m *mockRepository) Attempt() repositories.AttemptRepository       { return &mockAttempts{m} }
func (m *mockRepository) Analytics() repositories.AnalyticsRepository   { return &mockAnalytics{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== ASSESSMENT REPOSITORY =====

type mockAssessments struct{ repo *mockRepository }

func (r *mockAssessments) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	copied := *assessment
	r.repo.assessments[assessment.ID] = &copied
	return nil
}

func (r *mockAssessments) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Assessment, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	assessment, ok := r.repo.assessments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *assessment
	return &copied, nil
}

func (r *mockAssessments) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment, expectedVersion int) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	existing, ok := r.repo.assessments[assessment.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return repositories.ErrVersionConflict
	}
	copied := *assessment
	copied.Version = expectedVersion + 1
	r.repo.assessments[assessment.ID] = &copied
	assessment.Version = copied.Version
	return nil
}

func (r *mockAssessments) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	if _, ok := r.repo.assessments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.repo.assessments, id)
	return nil
}

func (r *mockAssessments) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	var out []*models.Assessment
	for _, a := range r.repo.assessments {
		if filters.CreatedBy != nil && a.CreatedBy != *filters.CreatedBy {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *mockAssessments) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	filters.CreatedBy = &creatorID
	return r.List(ctx, tx, filters)
}

func (r *mockAssessments) GetSharedWith(ctx context.Context, tx *gorm.DB, educatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	var out []*models.Assessment
	for _, a := range r.repo.assessments {
		if a.IsSharedWith(educatorID) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *mockAssessments) IsOwner(ctx context.Context, tx *gorm.DB, assessmentID string, userID string) (bool, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	assessment, ok := r.repo.assessments[assessmentID]
	if !ok {
		return false, nil
	}
	return assessment.CreatedBy == userID, nil
}

// ===== ATTEMPT REPOSITORY =====

type mockAttempts struct{ repo *mockRepository }

func (r *mockAttempts) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	copied := *attempt
	r.repo.attempts[attempt.ID] = &copied
	return nil
}

func (r *mockAttempts) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	attempt, ok := r.repo.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *mockAttempts) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	if _, ok := r.repo.attempts[attempt.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *attempt
	r.repo.attempts[attempt.ID] = &copied
	return nil
}

func (r *mockAttempts) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	var out []*models.Attempt
	for _, a := range r.repo.attempts {
		if a.AssessmentID != assessmentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.StudentID != nil && a.StudentID != *filters.StudentID {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *mockAttempts) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	var out []*models.Attempt
	for _, a := range r.repo.attempts {
		if a.StudentID != studentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (r *mockAttempts) GetOpenAttempt(ctx context.Context, tx *gorm.DB, assessmentID, studentID string) (*models.Attempt, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	for _, a := range r.repo.attempts {
		if a.AssessmentID == assessmentID && a.StudentID == studentID && a.Status == models.AttemptInProgress {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// ===== ANALYTICS REPOSITORY =====

type mockAnalytics struct{ repo *mockRepository }

func (r *mockAnalytics) Upsert(ctx context.Context, tx *gorm.DB, analytics *models.AssessmentAnalytics) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	copied := *analytics
	r.repo.analytics[analytics.AssessmentID] = &copied
	return nil
}

func (r *mockAnalytics) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID string) (*models.AssessmentAnalytics, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	analytics, ok := r.repo.analytics[assessmentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *analytics
	return &copied, nil
}

// testLogger discards output so test runs stay quiet
func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
