package models

import (
	"time"

	"gorm.io/datatypes"
)

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusPublished AssessmentStatus = "published"
	StatusArchived  AssessmentStatus = "archived"
)

type Assessment struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	Title       string           `json:"title" gorm:"not null;size:255;index" validate:"required,min=1,max=255"`
	Description string           `json:"description" gorm:"type:text"`
	Subject     string           `json:"subject" gorm:"size:100;index"`
	GradeLevel  string           `json:"grade_level" gorm:"size:50"`
	Status      AssessmentStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published archived"`

	// Questions are embedded in the assessment row as a JSONB column,
	// in presentation order.
	Questions datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`

	TimeLimit    int     `json:"time_limit"` // minutes, 0 means untimed
	PassingScore float64 `json:"passing_score" validate:"min=0,max=100"`

	// SharedWith holds educator IDs this assessment was shared with,
	// duplicate-free.
	SharedWith datatypes.JSONSlice[string] `json:"shared_with" gorm:"type:jsonb"`

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version control (guards concurrent updates)
	Version int `json:"version" gorm:"default:1"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// MaxScore returns the sum of points across all questions.
func (a *Assessment) MaxScore() float64 {
	total := 0.0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// IsSharedWith reports whether the assessment has been shared with the
// given educator.
func (a *Assessment) IsSharedWith(educatorID string) bool {
	for _, id := range a.SharedWith {
		if id == educatorID {
			return true
		}
	}
	return false
}

// QuestionByID returns the embedded question with the given ID, or nil.
func (a *Assessment) QuestionByID(questionID string) *Question {
	for i := range a.Questions {
		if a.Questions[i].ID == questionID {
			return &a.Questions[i]
		}
	}
	return nil
}
