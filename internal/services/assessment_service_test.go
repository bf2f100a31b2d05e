package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/events"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/validator"
)

func newTestAssessmentService(repo *mockRepository, publisher events.EventPublisher) AssessmentService {
	if publisher == nil {
		publisher = events.NewNopEventPublisher()
	}
	return NewAssessmentService(repo, nil, testLogger(), validator.New(), publisher)
}

func validCreateRequest() *CreateAssessmentRequest {
	return &CreateAssessmentRequest{
		Title:        "Algebra Quiz",
		Description:  "Linear equations",
		Subject:      "Math",
		GradeLevel:   "8",
		PassingScore: 60,
		TimeLimit:    30,
		Questions: []validator.QuestionRequest{
			{
				Type:          models.TrueFalse,
				Text:          "x + 1 = 2 has solution x = 1",
				CorrectAnswer: datatypes.JSON(`{"value": true}`),
				Points:        2,
			},
		},
	}
}

func TestAssessmentService_Create(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestAssessmentService(repo, publisher)
	ctx := context.Background()

	t.Run("creates draft with defaults", func(t *testing.T) {
		resp, err := svc.Create(ctx, validCreateRequest(), "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.ID == "" {
			t.Error("expected generated ID")
		}
		if resp.Status != models.StatusDraft {
			t.Errorf("status = %q, want draft", resp.Status)
		}
		if resp.Version != 1 {
			t.Errorf("version = %d, want 1", resp.Version)
		}
		if resp.CreatedAt != resp.UpdatedAt {
			t.Error("CreatedAt and UpdatedAt differ on a fresh assessment")
		}
		if !resp.CanEdit || !resp.CanDelete {
			t.Error("creator should be able to edit and delete")
		}
		if len(resp.Questions) != 1 || resp.Questions[0].ID == "" {
			t.Error("questions not assigned IDs")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.TopicAssessmentCreated {
			t.Errorf("published events = %+v, want one assessment.created", published)
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		req := validCreateRequest()
		req.Title = ""
		_, err := svc.Create(ctx, req, "educator-1")
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			t.Fatalf("err = %v, want ValidationErrors", err)
		}
	})

	t.Run("defaults question points", func(t *testing.T) {
		req := validCreateRequest()
		req.Questions[0].Points = 0
		resp, err := svc.Create(ctx, req, "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Questions[0].Points != models.DefaultQuestionPoints {
			t.Errorf("points = %v, want %v", resp.Questions[0].Points, models.DefaultQuestionPoints)
		}
	})
}

func TestAssessmentService_GetByID(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAssessmentService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("owner reads draft", func(t *testing.T) {
		resp, err := svc.GetByID(ctx, created.ID, "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.ID != created.ID {
			t.Errorf("ID = %q, want %q", resp.ID, created.ID)
		}
	})

	t.Run("stranger denied on draft", func(t *testing.T) {
		_, err := svc.GetByID(ctx, created.ID, "stranger")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Fatalf("err = %v, want PermissionError", err)
		}
	})

	t.Run("anyone reads published", func(t *testing.T) {
		if err := svc.Publish(ctx, created.ID, "educator-1"); err != nil {
			t.Fatalf("publish: %v", err)
		}
		resp, err := svc.GetByID(ctx, created.ID, "student-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.CanEdit {
			t.Error("non-owner should not be able to edit")
		}
		if !resp.CanTake {
			t.Error("published assessment should be takeable")
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "missing", "educator-1")
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("err = %v, want ErrAssessmentNotFound", err)
		}
	})
}

func TestAssessmentService_Update(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAssessmentService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("partial update bumps version", func(t *testing.T) {
		newTitle := "Algebra Quiz v2"
		resp, err := svc.Update(ctx, created.ID, &UpdateAssessmentRequest{Title: &newTitle}, "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Title != newTitle {
			t.Errorf("title = %q, want %q", resp.Title, newTitle)
		}
		if resp.Subject != "Math" {
			t.Errorf("subject changed unexpectedly: %q", resp.Subject)
		}
		if resp.Version != 2 {
			t.Errorf("version = %d, want 2", resp.Version)
		}
	})

	t.Run("non-owner denied", func(t *testing.T) {
		newTitle := "hijacked"
		_, err := svc.Update(ctx, created.ID, &UpdateAssessmentRequest{Title: &newTitle}, "stranger")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Fatalf("err = %v, want PermissionError", err)
		}
	})
}

func TestAssessmentService_Share(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAssessmentService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("adds new educators", func(t *testing.T) {
		resp, err := svc.Share(ctx, created.ID, &ShareAssessmentRequest{
			EducatorIDs: []string{"educator-2", "educator-3"},
		}, "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.SharedWith) != 2 {
			t.Errorf("shared with %d educators, want 2", len(resp.SharedWith))
		}
	})

	t.Run("idempotent and skips owner", func(t *testing.T) {
		resp, err := svc.Share(ctx, created.ID, &ShareAssessmentRequest{
			EducatorIDs: []string{"educator-2", "educator-1"},
		}, "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.SharedWith) != 2 {
			t.Errorf("shared with %d educators after repeat share, want 2", len(resp.SharedWith))
		}
	})

	t.Run("shared educator gains read access", func(t *testing.T) {
		if _, err := svc.GetByID(ctx, created.ID, "educator-2"); err != nil {
			t.Errorf("shared educator denied: %v", err)
		}
	})
}

func TestAssessmentService_Publish(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestAssessmentService(repo, publisher)
	ctx := context.Background()

	t.Run("requires questions", func(t *testing.T) {
		req := validCreateRequest()
		req.Questions = nil
		created, err := svc.Create(ctx, req, "educator-1")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Publish(ctx, created.ID, "educator-1"); !errors.Is(err, ErrAssessmentNoQuestions) {
			t.Errorf("err = %v, want ErrAssessmentNoQuestions", err)
		}
	})

	t.Run("publishes draft and emits event", func(t *testing.T) {
		created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		publisher.ClearEvents()

		if err := svc.Publish(ctx, created.ID, "educator-1"); err != nil {
			t.Fatalf("publish: %v", err)
		}

		resp, err := svc.GetByID(ctx, created.ID, "educator-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if resp.Status != models.StatusPublished {
			t.Errorf("status = %q, want published", resp.Status)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.TopicAssessmentPublished {
			t.Errorf("published events = %+v, want one assessment.published", published)
		}

		// Publishing twice is not allowed
		if err := svc.Publish(ctx, created.ID, "educator-1"); !errors.Is(err, ErrAssessmentNotDraft) {
			t.Errorf("err = %v, want ErrAssessmentNotDraft", err)
		}
	})
}

func TestAssessmentService_Archive(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAssessmentService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Publish(ctx, created.ID, "educator-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := svc.Archive(ctx, created.ID, "educator-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	resp, err := svc.GetByID(ctx, created.ID, "educator-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Status != models.StatusArchived {
		t.Errorf("status = %q, want archived", resp.Status)
	}

	// Archive is idempotent
	if err := svc.Archive(ctx, created.ID, "educator-1"); err != nil {
		t.Errorf("second archive: %v", err)
	}
}

func TestAssessmentService_Delete(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAssessmentService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest(), "educator-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID, "stranger"); err == nil {
		t.Error("expected permission error for non-owner delete")
	}
	if err := svc.Delete(ctx, created.ID, "educator-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID, "educator-1"); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("err = %v, want ErrAssessmentNotFound after delete", err)
	}
}
