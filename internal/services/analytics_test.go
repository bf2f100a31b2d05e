package services

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func testAssessment() *models.Assessment {
	return &models.Assessment{
		ID:           "assess-1",
		Title:        "Chemistry Basics",
		Status:       models.StatusPublished,
		PassingScore: 60,
		CreatedBy:    "educator-1",
		Questions: datatypes.NewJSONSlice([]models.Question{
			{ID: "q1", Type: models.MultipleChoice, Text: "Pick one", Points: 2},
			{ID: "q2", Type: models.TrueFalse, Text: "True or false", Points: 5},
			{ID: "q3", Type: models.Essay, Text: "Explain", Points: 4},
		}),
	}
}

func completedAttempt(id, studentID string, pct float64, passed bool, startedAt time.Time, dur time.Duration) *models.Attempt {
	completedAt := startedAt.Add(dur)
	return &models.Attempt{
		ID:              id,
		AssessmentID:    "assess-1",
		StudentID:       studentID,
		Status:          models.AttemptCompleted,
		StartedAt:       startedAt,
		CompletedAt:     &completedAt,
		MaxScore:        11,
		TotalScore:      pct / 100 * 11,
		PercentageScore: pct,
		Passed:          passed,
	}
}

func TestGenerateAnalytics_NoAttempts(t *testing.T) {
	analytics := GenerateAnalytics(testAssessment(), nil)

	if analytics.AssessmentID != "assess-1" {
		t.Errorf("assessment ID = %q, want assess-1", analytics.AssessmentID)
	}
	if analytics.TotalAttempts != 0 || analytics.CompletedAttempts != 0 {
		t.Errorf("counters not zero: %+v", analytics)
	}
	if analytics.CompletionRate != 0 || analytics.AverageScore != 0 {
		t.Errorf("rates not zero: %+v", analytics)
	}
	if len(analytics.QuestionStats) != 3 {
		t.Errorf("question stats = %d, want 3", len(analytics.QuestionStats))
	}
	if analytics.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestGenerateAnalytics_MixedStatuses(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	attempts := []*models.Attempt{
		completedAttempt("att-1", "s1", 90, true, start, 10*time.Minute),
		completedAttempt("att-2", "s2", 50, false, start, 20*time.Minute),
		{ID: "att-3", AssessmentID: "assess-1", StudentID: "s3", Status: models.AttemptInProgress, StartedAt: start},
		{ID: "att-4", AssessmentID: "assess-1", StudentID: "s4", Status: models.AttemptAbandoned, StartedAt: start},
		// Different assessment, must be skipped
		{ID: "att-5", AssessmentID: "other", StudentID: "s5", Status: models.AttemptCompleted, StartedAt: start},
	}

	analytics := GenerateAnalytics(testAssessment(), attempts)

	if analytics.TotalAttempts != 4 {
		t.Errorf("total = %d, want 4", analytics.TotalAttempts)
	}
	if analytics.CompletedAttempts != 2 || analytics.InProgressAttempts != 1 || analytics.AbandonedAttempts != 1 {
		t.Errorf("status counters wrong: %+v", analytics)
	}
	if !almostEqual(analytics.CompletionRate, 0.5) {
		t.Errorf("completion rate = %v, want 0.5", analytics.CompletionRate)
	}
	if !almostEqual(analytics.AverageScore, 70) {
		t.Errorf("average = %v, want 70", analytics.AverageScore)
	}
	if !almostEqual(analytics.MedianScore, 70) {
		t.Errorf("median = %v, want 70", analytics.MedianScore)
	}
	if analytics.HighestScore != 90 || analytics.LowestScore != 50 {
		t.Errorf("min/max = %v/%v, want 50/90", analytics.LowestScore, analytics.HighestScore)
	}
	if !almostEqual(analytics.StandardDeviation, 20) {
		t.Errorf("stddev = %v, want 20", analytics.StandardDeviation)
	}
	if !almostEqual(analytics.PassRate, 0.5) {
		t.Errorf("pass rate = %v, want 0.5", analytics.PassRate)
	}
	if !almostEqual(analytics.AverageDurationSeconds, 15*60) {
		t.Errorf("avg duration = %v, want 900", analytics.AverageDurationSeconds)
	}
}

func TestGenerateAnalytics_DurationSkipsUntimedAttempts(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	timed := completedAttempt("att-1", "s1", 80, true, start, 15*time.Minute)
	// Completed but never stamped, must not drag the average down
	untimed := completedAttempt("att-2", "s2", 60, true, start, 5*time.Minute)
	untimed.CompletedAt = nil
	// Zero start time would inflate the average by the full epoch offset
	unstarted := completedAttempt("att-3", "s3", 70, true, time.Time{}, 10*time.Minute)

	analytics := GenerateAnalytics(testAssessment(), []*models.Attempt{timed, untimed, unstarted})

	if analytics.CompletedAttempts != 3 {
		t.Errorf("completed = %d, want 3", analytics.CompletedAttempts)
	}
	if !almostEqual(analytics.AverageScore, 70) {
		t.Errorf("average = %v, want 70", analytics.AverageScore)
	}
	if !almostEqual(analytics.AverageDurationSeconds, 15*60) {
		t.Errorf("avg duration = %v, want 900", analytics.AverageDurationSeconds)
	}

	// No fully timestamped attempt at all leaves the average at zero
	analytics = GenerateAnalytics(testAssessment(), []*models.Attempt{untimed, unstarted})
	if analytics.AverageDurationSeconds != 0 {
		t.Errorf("avg duration = %v, want 0", analytics.AverageDurationSeconds)
	}
}

func TestGenerateAnalytics_QuestionStats(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	a1 := completedAttempt("att-1", "s1", 100, true, start, 5*time.Minute)
	a1.Responses = datatypes.NewJSONSlice([]models.StudentResponse{
		{QuestionID: "q1", Answer: datatypes.JSON(`"B"`), Score: floatPtr(2), IsCorrect: boolPtr(true)},
		{QuestionID: "q2", Answer: datatypes.JSON(`true`), Score: floatPtr(5), IsCorrect: boolPtr(true)},
	})

	a2 := completedAttempt("att-2", "s2", 40, false, start, 5*time.Minute)
	a2.Responses = datatypes.NewJSONSlice([]models.StudentResponse{
		{QuestionID: "q1", Answer: datatypes.JSON(`"C"`), Score: floatPtr(0), IsCorrect: boolPtr(false)},
		// Ungraded essay response, counted but excluded from ratio
		{QuestionID: "q3", Answer: datatypes.JSON(`"my essay"`)},
	})

	analytics := GenerateAnalytics(testAssessment(), []*models.Attempt{a1, a2})

	stats := analytics.QuestionStats
	if len(stats) != 3 {
		t.Fatalf("question stats = %d, want 3", len(stats))
	}

	q1 := stats[0]
	if q1.TotalResponses != 2 || q1.CorrectResponses != 1 {
		t.Errorf("q1 responses = %d/%d, want 2 total 1 correct", q1.TotalResponses, q1.CorrectResponses)
	}
	if !almostEqual(q1.AverageScoreRatio, 0.5) {
		t.Errorf("q1 ratio = %v, want 0.5", q1.AverageScoreRatio)
	}
	if q1.AnswerDistribution["B"] != 1 || q1.AnswerDistribution["C"] != 1 {
		t.Errorf("q1 distribution = %v", q1.AnswerDistribution)
	}

	q3 := stats[2]
	if q3.TotalResponses != 1 {
		t.Errorf("q3 responses = %d, want 1", q3.TotalResponses)
	}
	if q3.AverageScoreRatio != 0 {
		t.Errorf("q3 ratio = %v, want 0 while ungraded", q3.AverageScoreRatio)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{42}, want: 42},
		{name: "odd count", values: []float64{30, 10, 20}, want: 20},
		{name: "even count", values: []float64{40, 10, 20, 30}, want: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); !almostEqual(got, tt.want) {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
