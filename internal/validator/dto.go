package validator

import (
	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/models"
)

// AssessmentCreateRequest represents the request structure for creating assessments
type AssessmentCreateRequest struct {
	Title        string            `json:"title" validate:"required,assessment_title"`
	Description  string            `json:"description" validate:"omitempty,assessment_description"`
	Subject      string            `json:"subject" validate:"omitempty,max=100"`
	GradeLevel   string            `json:"grade_level" validate:"omitempty,max=50"`
	Questions    []QuestionRequest `json:"questions" validate:"omitempty,dive"`
	TimeLimit    int               `json:"time_limit" validate:"omitempty,min=0,max=600"`
	PassingScore float64           `json:"passing_score" validate:"omitempty,passing_score"`
}

// AssessmentUpdateRequest represents a partial update: nil fields are
// left unchanged.
type AssessmentUpdateRequest struct {
	Title        *string                  `json:"title" validate:"omitempty,assessment_title"`
	Description  *string                  `json:"description" validate:"omitempty,assessment_description"`
	Subject      *string                  `json:"subject" validate:"omitempty,max=100"`
	GradeLevel   *string                  `json:"grade_level" validate:"omitempty,max=50"`
	Status       *models.AssessmentStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	Questions    []QuestionRequest        `json:"questions" validate:"omitempty,dive"`
	TimeLimit    *int                     `json:"time_limit" validate:"omitempty,min=0,max=600"`
	PassingScore *float64                 `json:"passing_score" validate:"omitempty,passing_score"`
}

// QuestionRequest carries one question of a create or update payload.
type QuestionRequest struct {
	Type                models.QuestionType    `json:"type" validate:"required,question_type"`
	Text                string                 `json:"text" validate:"required,min=1,max=2000"`
	Options             []string               `json:"options" validate:"omitempty,max=20,dive,max=500"`
	CorrectAnswer       datatypes.JSON         `json:"correct_answer"`
	Points              float64                `json:"points" validate:"omitempty,points_range"`
	Difficulty          models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Tags                []string               `json:"tags" validate:"omitempty,max=10,dive,max=50"`
	LearningObjectiveID string                 `json:"learning_objective_id" validate:"omitempty,max=255"`
}

// AssessmentShareRequest lists educators to add to the shared set.
type AssessmentShareRequest struct {
	EducatorIDs []string `json:"educator_ids" validate:"required,min=1,dive,required,max=255"`
}

// AttemptStartRequest starts an attempt on a published assessment.
type AttemptStartRequest struct {
	AssessmentID string `json:"assessment_id" validate:"required,max=36"`
}

// ResponseSubmitRequest records an answer to one question of an open
// attempt.
type ResponseSubmitRequest struct {
	QuestionID       string         `json:"question_id" validate:"required,max=36"`
	Answer           datatypes.JSON `json:"answer" validate:"required"`
	TimeSpentSeconds int            `json:"time_spent_seconds" validate:"omitempty,min=0"`
}

// ResponseGradeRequest carries a manual grade for one response.
type ResponseGradeRequest struct {
	QuestionID string  `json:"question_id" validate:"required,max=36"`
	Score      float64 `json:"score" validate:"min=0"`
	Feedback   string  `json:"feedback" validate:"omitempty,max=2000"`
}
