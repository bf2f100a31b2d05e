package services

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/models"
)

// GenerateAnalytics aggregates attempts into a snapshot for the
// assessment. Only completed attempts contribute to score statistics;
// in-progress and abandoned attempts are counted but otherwise ignored.
// Attempts belonging to other assessments are skipped.
func GenerateAnalytics(assessment *models.Assessment, attempts []*models.Attempt) *models.AssessmentAnalytics {
	analytics := &models.AssessmentAnalytics{
		AssessmentID: assessment.ID,
		GeneratedAt:  time.Now(),
	}

	var completed []*models.Attempt
	for _, attempt := range attempts {
		if attempt == nil || attempt.AssessmentID != assessment.ID {
			continue
		}

		analytics.TotalAttempts++
		switch attempt.Status {
		case models.AttemptCompleted:
			analytics.CompletedAttempts++
			completed = append(completed, attempt)
		case models.AttemptInProgress:
			analytics.InProgressAttempts++
		case models.AttemptAbandoned:
			analytics.AbandonedAttempts++
		}
	}

	if analytics.TotalAttempts > 0 {
		analytics.CompletionRate = float64(analytics.CompletedAttempts) / float64(analytics.TotalAttempts)
	}

	analytics.QuestionStats = buildQuestionStats(assessment, completed)

	if len(completed) == 0 {
		return analytics
	}

	scores := make([]float64, 0, len(completed))
	passed := 0
	var durationTotal time.Duration
	timed := 0
	for _, attempt := range completed {
		scores = append(scores, attempt.PercentageScore)
		if attempt.Passed {
			passed++
		}
		// Attempts missing either timestamp would skew the average, so
		// only fully timestamped ones count toward it.
		if attempt.CompletedAt != nil && !attempt.StartedAt.IsZero() {
			durationTotal += attempt.Duration()
			timed++
		}
	}

	analytics.AverageScore = mean(scores)
	analytics.MedianScore = median(scores)
	analytics.HighestScore = maxOf(scores)
	analytics.LowestScore = minOf(scores)
	analytics.StandardDeviation = stddev(scores, analytics.AverageScore)
	analytics.PassRate = float64(passed) / float64(len(completed))
	if timed > 0 {
		analytics.AverageDurationSeconds = durationTotal.Seconds() / float64(timed)
	}

	return analytics
}

// buildQuestionStats computes per-question accuracy and answer
// distribution across completed attempts.
func buildQuestionStats(assessment *models.Assessment, completed []*models.Attempt) datatypes.JSONSlice[models.QuestionStat] {
	stats := make([]models.QuestionStat, 0, len(assessment.Questions))

	for _, question := range assessment.Questions {
		stat := models.QuestionStat{
			QuestionID:         question.ID,
			Type:               question.Type,
			AnswerDistribution: map[string]int{},
		}

		ratioTotal := 0.0
		graded := 0
		for _, attempt := range completed {
			response := attempt.ResponseByQuestion(question.ID)
			if response == nil {
				continue
			}
			stat.TotalResponses++

			if key := distributionKey(response.Answer); key != "" {
				stat.AnswerDistribution[key]++
			}

			if response.Score == nil {
				continue
			}
			graded++
			if question.Points > 0 {
				ratioTotal += *response.Score / question.Points
			}
			if response.IsCorrect != nil && *response.IsCorrect {
				stat.CorrectResponses++
			}
		}

		if graded > 0 {
			stat.AverageScoreRatio = ratioTotal / float64(graded)
		}

		stats = append(stats, stat)
	}

	return datatypes.NewJSONSlice(stats)
}

// distributionKey flattens a raw answer into a histogram bucket
func distributionKey(answer datatypes.JSON) string {
	if len(answer) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(answer, &single); err == nil {
		return single
	}

	var many []string
	if err := json.Unmarshal(answer, &many); err == nil {
		sorted := make([]string, len(many))
		copy(sorted, many)
		sort.Strings(sorted)
		out, _ := json.Marshal(sorted)
		return string(out)
	}

	// Booleans, objects and lists all bucket by their compact JSON form
	return string(answer)
}

// ===== STATISTICS HELPERS =====

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(values []float64, avg float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
