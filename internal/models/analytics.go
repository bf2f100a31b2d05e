package models

import (
	"time"

	"gorm.io/datatypes"
)

// AssessmentAnalytics is a computed snapshot of attempt statistics for
// one assessment. Score statistics cover completed attempts only; the
// counters cover every status.
type AssessmentAnalytics struct {
	AssessmentID string `json:"assessment_id" gorm:"primaryKey;size:36"`

	TotalAttempts      int `json:"total_attempts"`
	CompletedAttempts  int `json:"completed_attempts"`
	InProgressAttempts int `json:"in_progress_attempts"`
	AbandonedAttempts  int `json:"abandoned_attempts"`

	// Statistics over the percentage scores of completed attempts.
	AverageScore      float64 `json:"average_score"`
	MedianScore       float64 `json:"median_score"`
	HighestScore      float64 `json:"highest_score"`
	LowestScore       float64 `json:"lowest_score"`
	StandardDeviation float64 `json:"standard_deviation"`

	CompletionRate float64 `json:"completion_rate"` // completed / total, 0 with no attempts
	PassRate       float64 `json:"pass_rate"`

	AverageDurationSeconds float64 `json:"average_duration_seconds"`

	QuestionStats datatypes.JSONSlice[QuestionStat] `json:"question_stats" gorm:"type:jsonb"`

	GeneratedAt time.Time `json:"generated_at"`
}

func (AssessmentAnalytics) TableName() string {
	return "assessment_analytics"
}

// QuestionStat aggregates responses to a single question across
// completed attempts.
type QuestionStat struct {
	QuestionID       string       `json:"question_id"`
	Type             QuestionType `json:"type"`
	TotalResponses   int          `json:"total_responses"`
	CorrectResponses int          `json:"correct_responses"`

	// AverageScoreRatio is mean earned-points / question-points over
	// graded responses, in [0,1].
	AverageScoreRatio float64 `json:"average_score_ratio"`

	// AnswerDistribution counts raw answers per canonical JSON
	// rendering, for option-level reporting.
	AnswerDistribution map[string]int `json:"answer_distribution,omitempty"`
}
