package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/events"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
	"github.com/classforge/assessment-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", req.AssessmentID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.getAssessment(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.Status != models.StatusPublished {
		return nil, ErrAssessmentNotPublished
	}

	// Resume an open attempt instead of creating a second one
	open, err := s.repo.Attempt().GetOpenAttempt(ctx, nil, req.AssessmentID, studentID)
	if err == nil {
		s.logger.Info("Resuming existing attempt", "attempt_id", open.ID)
		return s.buildResponse(open, assessment), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check open attempts: %w", err)
	}

	now := time.Now()
	attempt := &models.Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessment.ID,
		StudentID:    studentID,
		Status:       models.AttemptInProgress,
		StartedAt:    now,
		// Snapshot so later edits to the assessment cannot change how
		// this attempt is graded.
		MaxScore:  assessment.MaxScore(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Assessment attempt started successfully",
		"attempt_id", attempt.ID,
		"assessment_id", assessment.ID,
		"student_id", studentID)

	return s.buildResponse(attempt, assessment), nil
}

func (s *attemptService) SubmitResponse(ctx context.Context, attemptID string, req *SubmitResponseRequest, studentID string) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "submit_response", "not owned by student")
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getAssessment(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.QuestionByID(req.QuestionID) == nil {
		return nil, ErrQuestionNotFound
	}

	// Replace a previous answer to the same question
	response := models.StudentResponse{
		QuestionID:       req.QuestionID,
		Answer:           req.Answer,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}

	replaced := false
	for i := range attempt.Responses {
		if attempt.Responses[i].QuestionID == req.QuestionID {
			attempt.Responses[i] = response
			replaced = true
			break
		}
	}
	if !replaced {
		attempt.Responses = append(attempt.Responses, response)
	}

	attempt.UpdatedAt = time.Now()
	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	return s.buildResponse(attempt, assessment), nil
}

// Complete closes the attempt and auto-grades everything that has an
// answer key. Essay responses stay ungraded until an educator scores
// them.
func (s *attemptService) Complete(ctx context.Context, attemptID string, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Completing assessment attempt", "attempt_id", attemptID, "student_id", studentID)

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "complete", "not owned by student")
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getAssessment(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	s.gradeAttempt(attempt, assessment)

	now := time.Now()
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.UpdatedAt = now

	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}

	s.publishEvent(ctx, events.TopicAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:       attempt.ID,
		AssessmentID:    attempt.AssessmentID,
		StudentID:       attempt.StudentID,
		TotalScore:      attempt.TotalScore,
		MaxScore:        attempt.MaxScore,
		PercentageScore: attempt.PercentageScore,
		Passed:          attempt.Passed,
	})

	s.logger.Info("Attempt completed",
		"attempt_id", attempt.ID,
		"total_score", attempt.TotalScore,
		"percentage", attempt.PercentageScore,
		"passed", attempt.Passed)

	return s.buildResponse(attempt, assessment), nil
}

func (s *attemptService) Abandon(ctx context.Context, attemptID string, studentID string) error {
	s.logger.Info("Abandoning assessment attempt", "attempt_id", attemptID, "student_id", studentID)

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return err
	}

	if attempt.StudentID != studentID {
		return NewPermissionError(studentID, attemptID, "attempt", "abandon", "not owned by student")
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	attempt.Status = models.AttemptAbandoned
	attempt.UpdatedAt = time.Now()

	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return fmt.Errorf("failed to abandon attempt: %w", err)
	}

	return nil
}

// ===== MANUAL GRADING =====

func (s *attemptService) GradeResponse(ctx context.Context, attemptID string, req *GradeResponseRequest, graderID string) (*AttemptResponse, error) {
	s.logger.Info("Grading response", "attempt_id", attemptID, "question_id", req.QuestionID, "grader_id", graderID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	if attempt.Status != models.AttemptCompleted {
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getAssessment(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	// Only the owner and shared educators may grade
	if assessment.CreatedBy != graderID && !assessment.IsSharedWith(graderID) {
		return nil, NewPermissionError(graderID, attemptID, "attempt", "grade", "not owner or shared educator")
	}

	question := assessment.QuestionByID(req.QuestionID)
	if question == nil {
		return nil, ErrQuestionNotFound
	}

	if req.Score > question.Points {
		return nil, validator.ValidationErrors{{
			Field:   "score",
			Message: fmt.Sprintf("score cannot exceed question points (%.1f)", question.Points),
			Value:   req.Score,
			Rule:    "max",
		}}
	}

	response := attempt.ResponseByQuestion(req.QuestionID)
	if response == nil {
		// The student never answered, record an empty response to grade
		attempt.Responses = append(attempt.Responses, models.StudentResponse{
			QuestionID: req.QuestionID,
		})
		response = &attempt.Responses[len(attempt.Responses)-1]
	}

	score := req.Score
	correct := score == question.Points
	response.Score = &score
	response.IsCorrect = &correct
	if req.Feedback != "" {
		response.Feedback = req.Feedback
	}

	s.recomputeTotals(attempt, assessment)

	now := time.Now()
	attempt.GradedBy = graderID
	attempt.GradedAt = &now
	attempt.UpdatedAt = now

	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	return s.buildResponse(attempt, assessment), nil
}

// ===== QUERIES =====

func (s *attemptService) GetByID(ctx context.Context, attemptID string, userID string) (*AttemptResponse, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.getAssessment(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.StudentID != userID && assessment.CreatedBy != userID && !assessment.IsSharedWith(userID) {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "not student, owner or shared educator")
	}

	return s.buildResponse(attempt, assessment), nil
}

func (s *attemptService) ListByAssessment(ctx context.Context, assessmentID string, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	assessment, err := s.getAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if assessment.CreatedBy != userID && !assessment.IsSharedWith(userID) {
		return nil, NewPermissionError(userID, assessmentID, "attempt", "list", "not owner or shared educator")
	}

	attempts, total, err := s.repo.Attempt().GetByAssessment(ctx, nil, assessmentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildListResponse(attempts, assessment, total, filters), nil
}

func (s *attemptService) ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return s.buildListResponse(attempts, nil, total, filters), nil
}

// ===== HELPERS =====

// gradeAttempt scores every auto-gradable question and totals the
// attempt. Unanswered auto-gradable questions score zero.
func (s *attemptService) gradeAttempt(attempt *models.Attempt, assessment *models.Assessment) {
	for _, question := range assessment.Questions {
		if !question.Type.AutoGradeable() {
			continue
		}

		response := attempt.ResponseByQuestion(question.ID)
		if response == nil {
			zero := 0.0
			incorrect := false
			attempt.Responses = append(attempt.Responses, models.StudentResponse{
				QuestionID: question.ID,
				Score:      &zero,
				IsCorrect:  &incorrect,
			})
			continue
		}

		ratio, correct, err := scoreResponse(&question, response.Answer)
		if err != nil {
			s.logger.Error("Failed to score response",
				"question_id", question.ID,
				"attempt_id", attempt.ID,
				"error", err)
			ratio, correct = 0.0, false
		}

		score := ratio * question.Points
		response.Score = &score
		response.IsCorrect = &correct
		response.Feedback = generateFeedback(question.Type, correct)
	}

	s.recomputeTotals(attempt, assessment)
}

// recomputeTotals sums graded response scores into the attempt totals
func (s *attemptService) recomputeTotals(attempt *models.Attempt, assessment *models.Assessment) {
	total := 0.0
	for i := range attempt.Responses {
		if attempt.Responses[i].Score != nil {
			total += *attempt.Responses[i].Score
		}
	}

	attempt.TotalScore = total
	if attempt.MaxScore > 0 {
		attempt.PercentageScore = total / attempt.MaxScore * 100
	} else {
		attempt.PercentageScore = 0
	}
	attempt.Passed = attempt.PercentageScore >= assessment.PassingScore
}

func (s *attemptService) getAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) getAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *attemptService) buildResponse(attempt *models.Attempt, assessment *models.Assessment) *AttemptResponse {
	return &AttemptResponse{
		Attempt:        attempt,
		CanSubmit:      attempt.Status == models.AttemptInProgress,
		IsPendingGrade: s.isPendingGrade(attempt),
	}
}

// isPendingGrade reports whether any answered question still lacks a
// score on a completed attempt.
func (s *attemptService) isPendingGrade(attempt *models.Attempt) bool {
	if attempt.Status != models.AttemptCompleted {
		return false
	}
	for i := range attempt.Responses {
		if attempt.Responses[i].Score == nil {
			return true
		}
	}
	return false
}

func (s *attemptService) buildListResponse(attempts []*models.Attempt, assessment *models.Assessment, total int64, filters repositories.AttemptFilters) *AttemptListResponse {
	responses := make([]*AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		responses = append(responses, s.buildResponse(a, assessment))
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     page,
		Size:     len(responses),
	}
}

func (s *attemptService) publishEvent(ctx context.Context, eventType string, data interface{}) {
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Data: data}); err != nil {
		s.logger.Error("Failed to publish event", "event_type", eventType, "error", err)
	}
}
