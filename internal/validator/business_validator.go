package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/classforge/assessment-service/internal/models"
)

// ValidationError represents a single field-level validation failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates a struct against business rules
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	var errors ValidationErrors

	err := bv.validate.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Message: bv.getErrorMessage(err),
				Value:   err.Value(),
				Rule:    err.Tag(),
			})
		}
	}

	return errors
}

// ValidateAssessmentCreate validates assessment creation business rules
func (bv *BusinessValidator) ValidateAssessmentCreate(req *AssessmentCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Per-question answer key validation
	errors = append(errors, bv.validateQuestions(req.Questions)...)

	return errors
}

// ValidateAssessmentUpdate validates assessment update business rules
func (bv *BusinessValidator) ValidateAssessmentUpdate(req *AssessmentUpdateRequest, existing *models.Assessment) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	if req.Questions != nil {
		errors = append(errors, bv.validateQuestions(req.Questions)...)
	}

	return errors
}

// ValidateShareRequest validates a share request.
func (bv *BusinessValidator) ValidateShareRequest(req *AssessmentShareRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	for i, id := range req.EducatorIDs {
		if strings.TrimSpace(id) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("educator_ids[%d]", i),
				Message: "educator id cannot be empty",
				Value:   id,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// validateQuestions checks each question's answer key against its type.
func (bv *BusinessValidator) validateQuestions(questions []QuestionRequest) ValidationErrors {
	var errors ValidationErrors

	for i, q := range questions {
		if errs := bv.validateAnswerKey(q); len(errs) > 0 {
			for _, e := range errs {
				e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
				errors = append(errors, e)
			}
		}
	}

	return errors
}

// validateAnswerKey decodes the answer key into the schema the question
// type dictates and checks its shape.
func (bv *BusinessValidator) validateAnswerKey(q QuestionRequest) ValidationErrors {
	var errors ValidationErrors

	keyError := func(msg string) ValidationError {
		return ValidationError{
			Field:   "correct_answer",
			Message: msg,
			Rule:    "answer_key",
		}
	}

	switch q.Type {
	case models.Essay:
		// Essays are graded manually; no key expected.
		return nil

	case models.MultipleChoice:
		var key models.MultipleChoiceAnswer
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil || len(key.CorrectOptions) == 0 {
			errors = append(errors, keyError("must list at least one correct option"))
			break
		}
		optionSet := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			optionSet[opt] = true
		}
		for _, correct := range key.CorrectOptions {
			if !optionSet[correct] {
				errors = append(errors, keyError(fmt.Sprintf("correct option %q is not in options", correct)))
			}
		}

	case models.TrueFalse:
		var key models.TrueFalseAnswer
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
			errors = append(errors, keyError("must be a true/false value"))
		}

	case models.ShortAnswer:
		var key models.ShortAnswerKey
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil || len(key.AcceptedAnswers) == 0 {
			errors = append(errors, keyError("must list at least one accepted answer"))
		}

	case models.Matching:
		var key models.MatchingAnswer
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil || len(key.Pairs) == 0 {
			errors = append(errors, keyError("must list at least one pair"))
			break
		}
		seen := make(map[string]bool, len(key.Pairs))
		for _, pair := range key.Pairs {
			if pair.Left == "" || pair.Right == "" {
				errors = append(errors, keyError("pairs must have left and right items"))
			}
			if seen[pair.Left] {
				errors = append(errors, keyError(fmt.Sprintf("left item %q is paired twice", pair.Left)))
			}
			seen[pair.Left] = true
		}

	case models.Ordering:
		var key models.OrderingAnswer
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil || len(key.CorrectOrder) < 2 {
			errors = append(errors, keyError("must list the correct order of at least two items"))
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Passing score validation (0-100)
	bv.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Float()
		return score >= 0 && score <= 100
	})

	// Title validation (1-255 characters)
	bv.validate.RegisterValidation("assessment_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 255
	})

	// Description validation (max 2000 characters)
	bv.validate.RegisterValidation("assessment_description", func(fl validator.FieldLevel) bool {
		desc := fl.Field().String()
		return len(desc) <= 2000
	})

	// Points range validation (0 allowed in payloads, defaulted later)
	bv.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Float()
		return points >= 0 && points <= 1000
	})

	// question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := fl.Field().String()
		for _, vt := range models.ValidQuestionTypes {
			if models.QuestionType(qType) == vt {
				return true
			}
		}
		return false
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		validLevels := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
		for _, vl := range validLevels {
			if models.DifficultyLevel(level) == vl {
				return true
			}
		}
		return false
	})
}

// getErrorMessage returns user-friendly error messages
func (bv *BusinessValidator) getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "passing_score":
		return "must be between 0 and 100"
	case "assessment_title":
		return "must be between 1 and 255 characters"
	case "assessment_description":
		return "must not exceed 2000 characters"
	case "points_range":
		return "must be between 0 and 1000"
	case "question_type":
		return "must be a valid question type"
	case "difficulty_level":
		return "must be easy, medium, or hard"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
