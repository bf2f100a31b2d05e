package models

import (
	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Matching       QuestionType = "matching"
	Ordering       QuestionType = "ordering"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Question is embedded in the assessment JSON column. Type tags which
// answer-key schema CorrectAnswer decodes into; essay questions carry
// no key and are graded manually.
type Question struct {
	ID   string       `json:"id"`
	Type QuestionType `json:"type" validate:"required,question_type"`
	Text string       `json:"text" validate:"required,min=1,max=2000"`

	// Options for choice-bearing types (multiple_choice, ordering).
	Options []string `json:"options,omitempty"`

	// CorrectAnswer holds the answer key, shape depends on Type.
	CorrectAnswer datatypes.JSON `json:"correct_answer,omitempty"`

	Points     float64         `json:"points" validate:"min=0"` // defaults to 1 when omitted
	Difficulty DifficultyLevel `json:"difficulty,omitempty" validate:"omitempty,difficulty_level"`
	Tags       []string        `json:"tags,omitempty" validate:"omitempty,max=10,dive,max=50"`

	LearningObjectiveID string `json:"learning_objective_id,omitempty"`
}

const DefaultQuestionPoints = 1.0

// ===== ANSWER KEY SCHEMAS =====

type MultipleChoiceAnswer struct {
	CorrectOptions []string `json:"correct_options" validate:"min=1"`
	PartialCredit  bool     `json:"partial_credit"`
}

type TrueFalseAnswer struct {
	Value bool `json:"value"`
}

type ShortAnswerKey struct {
	AcceptedAnswers []string `json:"accepted_answers" validate:"min=1"`
	CaseSensitive   bool     `json:"case_sensitive"`
	FuzzyMatching   bool     `json:"fuzzy_matching"`
}

type MatchingAnswer struct {
	Pairs []MatchPair `json:"pairs" validate:"min=1"`
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type OrderingAnswer struct {
	CorrectOrder []string `json:"correct_order" validate:"min=2"`
}

// AutoGradeable reports whether responses to this question type can be
// scored without an educator.
func (t QuestionType) AutoGradeable() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Matching, Ordering:
		return true
	default:
		return false
	}
}

// ValidQuestionTypes lists every supported question type tag.
var ValidQuestionTypes = []QuestionType{
	MultipleChoice, TrueFalse, ShortAnswer, Essay, Matching, Ordering,
}
