package services

import (
	"context"
	"errors"
	"testing"

	"github.com/classforge/assessment-service/internal/cache"
	"github.com/classforge/assessment-service/internal/events"
)

func newTestAnalyticsService(repo *mockRepository, publisher events.EventPublisher) AnalyticsService {
	if publisher == nil {
		publisher = events.NewNopEventPublisher()
	}
	return NewAnalyticsService(repo, nil, testLogger(), cache.NewCacheManager(nil), publisher)
}

// seedCompletedAttempts pushes two students through full attempts so
// the analytics pipeline has real data: student-1 scores 60% and
// passes, student-2 scores 0% and fails.
func seedCompletedAttempts(t *testing.T, repo *mockRepository) {
	t.Helper()
	svc := newTestAttemptService(repo, nil)
	ctx := context.Background()

	answers := map[string][]*SubmitResponseRequest{
		"student-1": {
			{QuestionID: "q-mc", Answer: []byte(`["nucleus", "ribosome"]`)},
			{QuestionID: "q-tf", Answer: []byte(`false`)},
		},
		"student-2": {
			{QuestionID: "q-tf", Answer: []byte(`true`)},
		},
	}
	for student, submissions := range answers {
		started, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: "assess-1"}, student)
		if err != nil {
			t.Fatalf("start %s: %v", student, err)
		}
		for _, sub := range submissions {
			if _, err := svc.SubmitResponse(ctx, started.ID, sub, student); err != nil {
				t.Fatalf("submit %s %s: %v", student, sub.QuestionID, err)
			}
		}
		if _, err := svc.Complete(ctx, started.ID, student); err != nil {
			t.Fatalf("complete %s: %v", student, err)
		}
	}
}

func TestAnalyticsService_Get(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestAnalyticsService(repo, publisher)
	ctx := context.Background()
	seedAssessment(t, repo)
	seedCompletedAttempts(t, repo)

	t.Run("owner reads analytics", func(t *testing.T) {
		analytics, err := svc.Get(ctx, "assess-1", "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if analytics.TotalAttempts != 2 || analytics.CompletedAttempts != 2 {
			t.Errorf("attempts = %d/%d, want 2/2", analytics.TotalAttempts, analytics.CompletedAttempts)
		}
		if analytics.CompletionRate != 1.0 {
			t.Errorf("completion rate = %v, want 1.0", analytics.CompletionRate)
		}

		// The snapshot is persisted as a side effect
		stored, err := repo.Analytics().GetByAssessment(ctx, nil, "assess-1")
		if err != nil {
			t.Fatalf("snapshot not persisted: %v", err)
		}
		if stored.TotalAttempts != 2 {
			t.Errorf("stored attempts = %d, want 2", stored.TotalAttempts)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.TopicAnalyticsGenerated {
			t.Errorf("published events = %+v, want one analytics.generated", published)
		}
	})

	t.Run("shared educator reads analytics", func(t *testing.T) {
		if _, err := svc.Get(ctx, "assess-1", "educator-2"); err != nil {
			t.Errorf("shared educator denied: %v", err)
		}
	})

	t.Run("student denied", func(t *testing.T) {
		_, err := svc.Get(ctx, "assess-1", "student-1")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("err = %v, want PermissionError", err)
		}
	})

	t.Run("unknown assessment", func(t *testing.T) {
		_, err := svc.Get(ctx, "missing", "educator-1")
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("err = %v, want ErrAssessmentNotFound", err)
		}
	})
}

func TestAnalyticsService_Refresh(t *testing.T) {
	repo := newMockRepository()
	svc := newTestAnalyticsService(repo, nil)
	ctx := context.Background()
	seedAssessment(t, repo)

	first, err := svc.Refresh(ctx, "assess-1", "educator-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if first.TotalAttempts != 0 {
		t.Errorf("attempts = %d, want 0 before any attempt", first.TotalAttempts)
	}

	seedCompletedAttempts(t, repo)

	second, err := svc.Refresh(ctx, "assess-1", "educator-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.TotalAttempts != 2 {
		t.Errorf("attempts = %d, want 2 after completions", second.TotalAttempts)
	}
	// One of two students answered correctly
	if !almostEqual(second.PassRate, 0.5) {
		t.Errorf("pass rate = %v, want 0.5", second.PassRate)
	}
}

func TestExportService_ExportResults(t *testing.T) {
	repo := newMockRepository()
	svc := NewExportService(repo, nil, testLogger())
	ctx := context.Background()
	seedAssessment(t, repo)
	seedCompletedAttempts(t, repo)

	t.Run("owner exports workbook", func(t *testing.T) {
		data, filename, err := svc.ExportResults(ctx, "assess-1", "educator-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) == 0 {
			t.Fatal("empty workbook")
		}
		// xlsx files are zip archives
		if data[0] != 'P' || data[1] != 'K' {
			t.Error("payload is not a zip archive")
		}
		if filename == "" {
			t.Error("empty filename")
		}
	})

	t.Run("student denied", func(t *testing.T) {
		_, _, err := svc.ExportResults(ctx, "assess-1", "student-1")
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("err = %v, want PermissionError", err)
		}
	})

	t.Run("unknown assessment", func(t *testing.T) {
		_, _, err := svc.ExportResults(ctx, "missing", "educator-1")
		if !errors.Is(err, ErrAssessmentNotFound) {
			t.Errorf("err = %v, want ErrAssessmentNotFound", err)
		}
	})
}
