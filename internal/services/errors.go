package services

import (
	"errors"
	"fmt"
)

// ===== SERVICE ERRORS =====

var (
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrAttemptNotFound        = errors.New("attempt not found")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrAssessmentNotPublished = errors.New("assessment is not published")
	ErrAssessmentNotDraft     = errors.New("assessment is not in draft status")
	ErrAssessmentNoQuestions  = errors.New("assessment has no questions")
	ErrAttemptNotActive       = errors.New("attempt is not in progress")
	ErrAttemptAlreadyOpen     = errors.New("an attempt is already in progress")
	ErrManualGradingRequired  = errors.New("question requires manual grading")
	ErrVersionConflict        = errors.New("assessment was modified concurrently")
)

// PermissionError carries who tried to do what to which resource
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
