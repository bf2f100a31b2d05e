package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/events"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
	"github.com/classforge/assessment-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error) {
	s.logger.Info("Creating assessment", "creator_id", creatorID, "title", req.Title)

	// Validate request with business rules
	if errs := s.validator.GetBusinessValidator().ValidateAssessmentCreate(req); len(errs) > 0 {
		return nil, errs
	}

	now := time.Now()
	assessment := &models.Assessment{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Subject:      req.Subject,
		GradeLevel:   req.GradeLevel,
		Status:       models.StatusDraft,
		Questions:    buildQuestions(req.Questions),
		TimeLimit:    req.TimeLimit,
		PassingScore: req.PassingScore,
		SharedWith:   datatypes.NewJSONSlice([]string{}),
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	if err := s.repo.Assessment().Create(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Info("Assessment created successfully", "assessment_id", assessment.ID)

	s.publishEvent(ctx, events.TopicAssessmentCreated, events.AssessmentCreatedEvent{
		AssessmentID: assessment.ID,
		Title:        assessment.Title,
		Subject:      assessment.Subject,
		CreatedBy:    creatorID,
	})

	return s.buildResponse(assessment, creatorID), nil
}

func (s *assessmentService) GetByID(ctx context.Context, id string, userID string) (*AssessmentResponse, error) {
	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.hasAccess(assessment, userID) {
		return nil, NewPermissionError(userID, id, "assessment", "read", "not owner or insufficient permissions")
	}

	return s.buildResponse(assessment, userID), nil
}

func (s *assessmentService) Update(ctx context.Context, id string, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Updating assessment", "assessment_id", id, "user_id", userID)

	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	if assessment.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "assessment", "update", "not owner")
	}

	if errs := s.validator.GetBusinessValidator().ValidateAssessmentUpdate(req, assessment); len(errs) > 0 {
		return nil, errs
	}

	applyUpdate(assessment, req)
	assessment.UpdatedAt = time.Now()

	if err := s.repo.Assessment().Update(ctx, nil, assessment, assessment.Version); err != nil {
		return nil, s.mapUpdateError(err)
	}

	s.logger.Info("Assessment updated successfully", "assessment_id", id, "version", assessment.Version)

	return s.buildResponse(assessment, userID), nil
}

func (s *assessmentService) Delete(ctx context.Context, id string, userID string) error {
	s.logger.Info("Deleting assessment", "assessment_id", id, "user_id", userID)

	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return err
	}

	if assessment.CreatedBy != userID {
		return NewPermissionError(userID, id, "assessment", "delete", "not owner")
	}

	if err := s.repo.Assessment().Delete(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	return nil
}

// ===== LIST OPERATIONS =====

func (s *assessmentService) ListByCreator(ctx context.Context, creatorID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	assessments, total, err := s.repo.Assessment().GetByCreator(ctx, nil, creatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	return s.buildListResponse(assessments, total, filters, creatorID), nil
}

func (s *assessmentService) ListSharedWith(ctx context.Context, educatorID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	assessments, total, err := s.repo.Assessment().GetSharedWith(ctx, nil, educatorID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared assessments: %w", err)
	}

	return s.buildListResponse(assessments, total, filters, educatorID), nil
}

// ===== SHARING AND STATUS MANAGEMENT =====

// Share adds educators to the shared set. Sharing with an educator who
// already has access is a no-op, so retries are safe.
func (s *assessmentService) Share(ctx context.Context, id string, req *ShareAssessmentRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Sharing assessment", "assessment_id", id, "user_id", userID, "educator_count", len(req.EducatorIDs))

	if errs := s.validator.GetBusinessValidator().ValidateShareRequest(req); len(errs) > 0 {
		return nil, errs
	}

	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	if assessment.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "assessment", "share", "not owner")
	}

	existing := make(map[string]bool, len(assessment.SharedWith))
	for _, eid := range assessment.SharedWith {
		existing[eid] = true
	}

	added := 0
	for _, eid := range req.EducatorIDs {
		// The owner already has full access
		if eid == assessment.CreatedBy || existing[eid] {
			continue
		}
		assessment.SharedWith = append(assessment.SharedWith, eid)
		existing[eid] = true
		added++
	}

	if added == 0 {
		return s.buildResponse(assessment, userID), nil
	}

	assessment.UpdatedAt = time.Now()
	if err := s.repo.Assessment().Update(ctx, nil, assessment, assessment.Version); err != nil {
		return nil, s.mapUpdateError(err)
	}

	s.logger.Info("Assessment shared successfully", "assessment_id", id, "added", added)

	return s.buildResponse(assessment, userID), nil
}

func (s *assessmentService) Publish(ctx context.Context, id string, userID string) error {
	s.logger.Info("Publishing assessment", "assessment_id", id, "user_id", userID)

	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return err
	}

	if assessment.CreatedBy != userID {
		return NewPermissionError(userID, id, "assessment", "publish", "not owner")
	}

	if assessment.Status != models.StatusDraft {
		return ErrAssessmentNotDraft
	}
	if len(assessment.Questions) == 0 {
		return ErrAssessmentNoQuestions
	}

	assessment.Status = models.StatusPublished
	assessment.UpdatedAt = time.Now()

	if err := s.repo.Assessment().Update(ctx, nil, assessment, assessment.Version); err != nil {
		return s.mapUpdateError(err)
	}

	s.publishEvent(ctx, events.TopicAssessmentPublished, events.AssessmentPublishedEvent{
		AssessmentID:  assessment.ID,
		Title:         assessment.Title,
		CreatedBy:     assessment.CreatedBy,
		QuestionCount: len(assessment.Questions),
		MaxScore:      assessment.MaxScore(),
	})

	s.logger.Info("Assessment published", "assessment_id", id)

	return nil
}

func (s *assessmentService) Archive(ctx context.Context, id string, userID string) error {
	s.logger.Info("Archiving assessment", "assessment_id", id, "user_id", userID)

	assessment, err := s.getAssessment(ctx, id)
	if err != nil {
		return err
	}

	if assessment.CreatedBy != userID {
		return NewPermissionError(userID, id, "assessment", "archive", "not owner")
	}

	if assessment.Status == models.StatusArchived {
		return nil
	}

	assessment.Status = models.StatusArchived
	assessment.UpdatedAt = time.Now()

	if err := s.repo.Assessment().Update(ctx, nil, assessment, assessment.Version); err != nil {
		return s.mapUpdateError(err)
	}

	return nil
}

// ===== PERMISSION CHECKS =====

func (s *assessmentService) CanAccess(ctx context.Context, assessmentID string, userID string) (bool, error) {
	assessment, err := s.getAssessment(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, ErrAssessmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.hasAccess(assessment, userID), nil
}

func (s *assessmentService) CanEdit(ctx context.Context, assessmentID string, userID string) (bool, error) {
	return s.repo.Assessment().IsOwner(ctx, nil, assessmentID, userID)
}

// ===== HELPERS =====

func (s *assessmentService) getAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// hasAccess allows the owner, any shared educator, and anyone once the
// assessment is published.
func (s *assessmentService) hasAccess(assessment *models.Assessment, userID string) bool {
	if assessment.CreatedBy == userID {
		return true
	}
	if assessment.IsSharedWith(userID) {
		return true
	}
	return assessment.Status == models.StatusPublished
}

func (s *assessmentService) mapUpdateError(err error) error {
	if errors.Is(err, repositories.ErrVersionConflict) {
		return ErrVersionConflict
	}
	if repositories.IsNotFoundError(err) {
		return ErrAssessmentNotFound
	}
	return fmt.Errorf("failed to update assessment: %w", err)
}

func (s *assessmentService) buildResponse(assessment *models.Assessment, userID string) *AssessmentResponse {
	isOwner := assessment.CreatedBy == userID
	return &AssessmentResponse{
		Assessment: assessment,
		CanEdit:    isOwner,
		CanDelete:  isOwner,
		CanTake:    assessment.Status == models.StatusPublished,
	}
}

func (s *assessmentService) buildListResponse(assessments []*models.Assessment, total int64, filters repositories.AssessmentFilters, userID string) *AssessmentListResponse {
	responses := make([]*AssessmentResponse, 0, len(assessments))
	for _, a := range assessments {
		responses = append(responses, s.buildResponse(a, userID))
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &AssessmentListResponse{
		Assessments: responses,
		Total:       total,
		Page:        page,
		Size:        len(responses),
	}
}

func (s *assessmentService) publishEvent(ctx context.Context, eventType string, data interface{}) {
	// Event delivery is best effort, a broker outage must not fail the
	// request.
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Data: data}); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}

// buildQuestions maps request questions onto the stored form, assigning
// IDs and default points where omitted.
func buildQuestions(reqs []validator.QuestionRequest) datatypes.JSONSlice[models.Question] {
	questions := make([]models.Question, 0, len(reqs))
	for _, q := range reqs {
		points := q.Points
		if points == 0 {
			points = models.DefaultQuestionPoints
		}
		questions = append(questions, models.Question{
			ID:                  uuid.NewString(),
			Type:                q.Type,
			Text:                q.Text,
			Options:             q.Options,
			CorrectAnswer:       q.CorrectAnswer,
			Points:              points,
			Difficulty:          q.Difficulty,
			Tags:                q.Tags,
			LearningObjectiveID: q.LearningObjectiveID,
		})
	}
	return datatypes.NewJSONSlice(questions)
}

// applyUpdate copies the non-nil request fields onto the assessment
func applyUpdate(assessment *models.Assessment, req *UpdateAssessmentRequest) {
	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = *req.Description
	}
	if req.Subject != nil {
		assessment.Subject = *req.Subject
	}
	if req.GradeLevel != nil {
		assessment.GradeLevel = *req.GradeLevel
	}
	if req.Status != nil {
		assessment.Status = *req.Status
	}
	if req.Questions != nil {
		assessment.Questions = buildQuestions(req.Questions)
	}
	if req.TimeLimit != nil {
		assessment.TimeLimit = *req.TimeLimit
	}
	if req.PassingScore != nil {
		assessment.PassingScore = *req.PassingScore
	}
}
