package events

import (
	"context"
	"time"
)

// Event topics published by this service.
const (
	TopicAssessmentCreated   = "assessment.created"
	TopicAssessmentPublished = "assessment.published"
	TopicAttemptCompleted    = "attempt.completed"
	TopicAnalyticsGenerated  = "analytics.generated"
)

// Event is the envelope for every message this service publishes.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventPublisher publishes domain events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AssessmentCreatedEvent is emitted when an educator creates an assessment
type AssessmentCreatedEvent struct {
	AssessmentID string `json:"assessment_id"`
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	CreatedBy    string `json:"created_by"`
}

// AssessmentPublishedEvent is emitted when an assessment becomes available to students
type AssessmentPublishedEvent struct {
	AssessmentID  string  `json:"assessment_id"`
	Title         string  `json:"title"`
	CreatedBy     string  `json:"created_by"`
	QuestionCount int     `json:"question_count"`
	MaxScore      float64 `json:"max_score"`
}

// AttemptCompletedEvent is emitted when a student submits an attempt
type AttemptCompletedEvent struct {
	AttemptID       string  `json:"attempt_id"`
	AssessmentID    string  `json:"assessment_id"`
	StudentID       string  `json:"student_id"`
	TotalScore      float64 `json:"total_score"`
	MaxScore        float64 `json:"max_score"`
	PercentageScore float64 `json:"percentage_score"`
	Passed          bool    `json:"passed"`
}

// AnalyticsGeneratedEvent is emitted when an analytics snapshot is refreshed
type AnalyticsGeneratedEvent struct {
	AssessmentID  string  `json:"assessment_id"`
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
}
