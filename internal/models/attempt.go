package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

type Attempt struct {
	ID           string        `json:"id" gorm:"primaryKey;size:36"`
	AssessmentID string        `json:"assessment_id" gorm:"not null;index;size:36"`
	StudentID    string        `json:"student_id" gorm:"not null;index;size:255"`
	Status       AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Responses are embedded as a JSONB column, one entry per answered
	// question.
	Responses datatypes.JSONSlice[StudentResponse] `json:"responses" gorm:"type:jsonb"`

	// Timing
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Scoring. MaxScore is snapshotted at start so later edits to the
	// assessment do not change how this attempt is graded.
	TotalScore      float64 `json:"total_score"`
	MaxScore        float64 `json:"max_score"`
	PercentageScore float64 `json:"percentage_score"`
	Passed          bool    `json:"passed"`

	// Grading metadata
	GradedBy string     `json:"graded_by,omitempty" gorm:"size:255"`
	GradedAt *time.Time `json:"graded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

type StudentResponse struct {
	QuestionID string `json:"question_id"`

	// Answer is the raw submitted payload, shape depends on the
	// question type.
	Answer datatypes.JSON `json:"answer"`

	Score            *float64 `json:"score,omitempty"`
	IsCorrect        *bool    `json:"is_correct,omitempty"` // nil until graded
	Feedback         string   `json:"feedback,omitempty"`
	TimeSpentSeconds int      `json:"time_spent_seconds,omitempty"`
}

// ResponseByQuestion returns the response for the given question, or nil
// when the student has not answered it.
func (a *Attempt) ResponseByQuestion(questionID string) *StudentResponse {
	for i := range a.Responses {
		if a.Responses[i].QuestionID == questionID {
			return &a.Responses[i]
		}
	}
	return nil
}

// Duration returns the time between start and completion, zero while the
// attempt is open.
func (a *Attempt) Duration() time.Duration {
	if a.CompletedAt == nil {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt)
}
