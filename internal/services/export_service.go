package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ExportResults renders the assessment, its questions and all attempts
// into an xlsx workbook with Summary, Questions and Attempts sheets.
func (s *exportService) ExportResults(ctx context.Context, assessmentID string, userID string) ([]byte, string, error) {
	s.logger.Info("Exporting assessment results", "assessment_id", assessmentID, "user_id", userID)

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrAssessmentNotFound
		}
		return nil, "", fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy != userID && !assessment.IsSharedWith(userID) {
		return nil, "", NewPermissionError(userID, assessmentID, "assessment", "export", "not owner or shared educator")
	}

	attempts, _, err := s.repo.Attempt().GetByAssessment(ctx, nil, assessmentID, repositories.AttemptFilters{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to load attempts: %w", err)
	}

	analytics := GenerateAnalytics(assessment, attempts)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := s.writeSummarySheet(f, assessment, analytics); err != nil {
		return nil, "", err
	}
	if err := s.writeQuestionsSheet(f, assessment, analytics); err != nil {
		return nil, "", err
	}
	if err := s.writeAttemptsSheet(f, attempts); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize workbook: %w", err)
	}

	filename := fmt.Sprintf("assessment_%s_results_%s.xlsx", assessment.ID, time.Now().Format("20060102"))

	s.logger.Info("Export completed", "assessment_id", assessmentID, "attempts", len(attempts), "bytes", buf.Len())

	return buf.Bytes(), filename, nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, assessment *models.Assessment, analytics *models.AssessmentAnalytics) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Title", assessment.Title},
		{"Subject", assessment.Subject},
		{"Grade Level", assessment.GradeLevel},
		{"Status", string(assessment.Status)},
		{"Questions", len(assessment.Questions)},
		{"Max Score", assessment.MaxScore()},
		{"Passing Score (%)", assessment.PassingScore},
		{"Total Attempts", analytics.TotalAttempts},
		{"Completed Attempts", analytics.CompletedAttempts},
		{"Average Score (%)", analytics.AverageScore},
		{"Median Score (%)", analytics.MedianScore},
		{"Highest Score (%)", analytics.HighestScore},
		{"Lowest Score (%)", analytics.LowestScore},
		{"Std Deviation", analytics.StandardDeviation},
		{"Completion Rate", analytics.CompletionRate},
		{"Pass Rate", analytics.PassRate},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	return nil
}

func (s *exportService) writeQuestionsSheet(f *excelize.File, assessment *models.Assessment, analytics *models.AssessmentAnalytics) error {
	const sheet = "Questions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := []interface{}{"Question ID", "Type", "Text", "Points", "Responses", "Correct", "Avg Score Ratio"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	statsByID := make(map[string]models.QuestionStat, len(analytics.QuestionStats))
	for _, stat := range analytics.QuestionStats {
		statsByID[stat.QuestionID] = stat
	}

	for i, question := range assessment.Questions {
		stat := statsByID[question.ID]
		row := []interface{}{
			question.ID,
			string(question.Type),
			question.Text,
			question.Points,
			stat.TotalResponses,
			stat.CorrectResponses,
			stat.AverageScoreRatio,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write question row: %w", err)
		}
	}

	return nil
}

func (s *exportService) writeAttemptsSheet(f *excelize.File, attempts []*models.Attempt) error {
	const sheet = "Attempts"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := []interface{}{"Attempt ID", "Student ID", "Status", "Started At", "Completed At", "Score", "Max Score", "Percentage", "Passed"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, attempt := range attempts {
		completedAt := ""
		if attempt.CompletedAt != nil {
			completedAt = attempt.CompletedAt.Format(time.RFC3339)
		}
		row := []interface{}{
			attempt.ID,
			attempt.StudentID,
			string(attempt.Status),
			attempt.StartedAt.Format(time.RFC3339),
			completedAt,
			attempt.TotalScore,
			attempt.MaxScore,
			attempt.PercentageScore,
			attempt.Passed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write attempt row: %w", err)
		}
	}

	return nil
}
