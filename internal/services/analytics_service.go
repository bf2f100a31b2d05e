package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/cache"
	"github.com/classforge/assessment-service/internal/events"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
)

type analyticsService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	cacheManager *cache.CacheManager
	publisher    events.EventPublisher
}

func NewAnalyticsService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager, publisher events.EventPublisher) AnalyticsService {
	return &analyticsService{
		repo:         repo,
		db:           db,
		logger:       logger,
		cacheManager: cacheManager,
		publisher:    publisher,
	}
}

// Get serves the snapshot cache-first. A miss regenerates from the
// attempts table and persists the result.
func (s *analyticsService) Get(ctx context.Context, assessmentID string, userID string) (*models.AssessmentAnalytics, error) {
	assessment, err := s.authorize(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("assessment:%s", assessmentID)
	var analytics models.AssessmentAnalytics

	err = s.cacheManager.Analytics.CacheOrExecute(ctx, cacheKey, &analytics, cache.AnalyticsCacheConfig.TTL, func() (interface{}, error) {
		return s.generate(ctx, assessment)
	})
	if err != nil {
		return nil, err
	}

	return &analytics, nil
}

// Refresh recomputes the snapshot and drops the cached copy
func (s *analyticsService) Refresh(ctx context.Context, assessmentID string, userID string) (*models.AssessmentAnalytics, error) {
	s.logger.Info("Refreshing analytics", "assessment_id", assessmentID, "user_id", userID)

	assessment, err := s.authorize(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}

	analytics, err := s.generate(ctx, assessment)
	if err != nil {
		return nil, err
	}

	cache.InvalidateAnalyticsCache(ctx, s.cacheManager, assessmentID)

	return analytics, nil
}

// generate aggregates all attempts and persists the snapshot
func (s *analyticsService) generate(ctx context.Context, assessment *models.Assessment) (*models.AssessmentAnalytics, error) {
	attempts, _, err := s.repo.Attempt().GetByAssessment(ctx, nil, assessment.ID, repositories.AttemptFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}

	analytics := GenerateAnalytics(assessment, attempts)

	if err := s.repo.Analytics().Upsert(ctx, nil, analytics); err != nil {
		return nil, fmt.Errorf("failed to persist analytics: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type: events.TopicAnalyticsGenerated,
		Data: events.AnalyticsGeneratedEvent{
			AssessmentID:  assessment.ID,
			TotalAttempts: analytics.TotalAttempts,
			AverageScore:  analytics.AverageScore,
		},
	}); err != nil {
		s.logger.Error("Failed to publish event", "event_type", events.TopicAnalyticsGenerated, "error", err)
	}

	s.logger.Info("Analytics generated",
		"assessment_id", assessment.ID,
		"total_attempts", analytics.TotalAttempts,
		"average_score", analytics.AverageScore)

	return analytics, nil
}

// authorize restricts analytics to the owner and shared educators
func (s *analyticsService) authorize(ctx context.Context, assessmentID, userID string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy != userID && !assessment.IsSharedWith(userID) {
		return nil, NewPermissionError(userID, assessmentID, "analytics", "read", "not owner or shared educator")
	}

	return assessment, nil
}
