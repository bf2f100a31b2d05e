package services

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/models"
)

// fuzzyMatchThreshold is the minimum similarity for a fuzzy short
// answer to earn credit.
const fuzzyMatchThreshold = 0.8

// scoreResponse grades a single response against the question's answer
// key. It returns the earned ratio in [0,1] and whether the answer is
// fully correct. Essay questions return ErrManualGradingRequired.
func scoreResponse(question *models.Question, answer datatypes.JSON) (float64, bool, error) {
	if answer == nil {
		return 0.0, false, nil // No answer provided
	}

	switch question.Type {
	case models.MultipleChoice:
		return gradeMultipleChoice(question.CorrectAnswer, answer)
	case models.TrueFalse:
		return gradeTrueFalse(question.CorrectAnswer, answer)
	case models.ShortAnswer:
		return gradeShortAnswer(question.CorrectAnswer, answer)
	case models.Matching:
		return gradeMatching(question.CorrectAnswer, answer)
	case models.Ordering:
		return gradeOrdering(question.CorrectAnswer, answer)
	case models.Essay:
		return 0.0, false, ErrManualGradingRequired
	default:
		return 0.0, false, fmt.Errorf("unsupported question type: %s", question.Type)
	}
}

func gradeMultipleChoice(answerKey datatypes.JSON, studentAnswer datatypes.JSON) (float64, bool, error) {
	var key models.MultipleChoiceAnswer
	if err := json.Unmarshal(answerKey, &key); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var answer []string
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		var singleAnswer string
		if err = json.Unmarshal(studentAnswer, &singleAnswer); err != nil {
			return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
		}
		answer = []string{singleAnswer}
	}

	correctOptions := key.CorrectOptions

	// Perfect match scoring
	if reflect.DeepEqual(sortStrings(answer), sortStrings(correctOptions)) {
		return 1.0, true, nil
	}

	// Partial credit scoring for multi-select questions
	if key.PartialCredit && len(correctOptions) > 1 {
		correct := 0
		incorrect := 0

		answerSet := make(map[string]bool)
		for _, a := range answer {
			answerSet[a] = true
		}

		correctSet := make(map[string]bool)
		for _, c := range correctOptions {
			correctSet[c] = true
		}

		// Count correct selections
		for _, a := range answer {
			if correctSet[a] {
				correct++
			} else {
				incorrect++
			}
		}

		// Count missed correct answers
		for _, c := range correctOptions {
			if !answerSet[c] {
				incorrect++
			}
		}

		score := float64(correct-incorrect) / float64(len(correctOptions))
		return math.Max(0.0, score), false, nil
	}

	return 0.0, false, nil
}

func gradeTrueFalse(answerKey datatypes.JSON, studentAnswer datatypes.JSON) (float64, bool, error) {
	var key models.TrueFalseAnswer
	if err := json.Unmarshal(answerKey, &key); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var answer bool
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	if answer == key.Value {
		return 1.0, true, nil
	}

	return 0.0, false, nil
}

func gradeShortAnswer(answerKey datatypes.JSON, studentAnswer datatypes.JSON) (float64, bool, error) {
	var key models.ShortAnswerKey
	if err := json.Unmarshal(answerKey, &key); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var answer string
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	// Check against accepted answers
	for _, accepted := range key.AcceptedAnswers {
		if compareStrings(answer, accepted, key.CaseSensitive) {
			return 1.0, true, nil
		}
	}

	// Fuzzy matching for partial credit
	if key.FuzzyMatching {
		bestMatch := 0.0
		for _, accepted := range key.AcceptedAnswers {
			similarity := calculateStringSimilarity(answer, accepted)
			if similarity > bestMatch {
				bestMatch = similarity
			}
		}

		if bestMatch >= fuzzyMatchThreshold {
			return bestMatch, false, nil
		}
	}

	return 0.0, false, nil
}

func gradeMatching(answerKey datatypes.JSON, studentAnswer datatypes.JSON) (float64, bool, error) {
	var key models.MatchingAnswer
	if err := json.Unmarshal(answerKey, &key); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var answers map[string]string // left -> right mappings
	if err := json.Unmarshal(studentAnswer, &answers); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	correct := 0
	total := len(key.Pairs)

	for _, pair := range key.Pairs {
		if studentRight, exists := answers[pair.Left]; exists && studentRight == pair.Right {
			correct++
		}
	}

	if total == 0 {
		return 0.0, false, nil
	}

	score := float64(correct) / float64(total)
	return score, correct == total, nil
}

func gradeOrdering(answerKey datatypes.JSON, studentAnswer datatypes.JSON) (float64, bool, error) {
	var key models.OrderingAnswer
	if err := json.Unmarshal(answerKey, &key); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var answer []string // ordered list of item IDs
	if err := json.Unmarshal(studentAnswer, &answer); err != nil {
		return 0.0, false, fmt.Errorf("failed to unmarshal student answer: %w", err)
	}

	expectedOrder := key.CorrectOrder

	// Perfect match
	if reflect.DeepEqual(answer, expectedOrder) {
		return 1.0, true, nil
	}

	if len(expectedOrder) == 0 {
		return 0.0, false, nil
	}

	// Partial credit based on position accuracy
	correct := 0
	for i, itemID := range answer {
		if i < len(expectedOrder) && itemID == expectedOrder[i] {
			correct++
		}
	}

	score := float64(correct) / float64(len(expectedOrder))
	return score, false, nil
}

// ===== FEEDBACK GENERATION =====

func generateFeedback(questionType models.QuestionType, isCorrect bool) string {
	if isCorrect {
		switch questionType {
		case models.Matching:
			return "All items matched correctly!"
		case models.Ordering:
			return "Perfect sequence!"
		default:
			return "Correct answer!"
		}
	}

	switch questionType {
	case models.ShortAnswer:
		return "Your answer doesn't match the expected response. Please review the question."
	case models.Matching:
		return "Some matches are incorrect. Please review your pairings."
	case models.Ordering:
		return "The order is not completely correct. Please review the sequence."
	case models.Essay:
		return "Essay questions require manual grading."
	default:
		return "Incorrect answer."
	}
}

// ===== UTILITY FUNCTIONS =====

func compareStrings(s1, s2 string, caseSensitive bool) bool {
	if !caseSensitive {
		s1 = strings.ToLower(strings.TrimSpace(s1))
		s2 = strings.ToLower(strings.TrimSpace(s2))
	} else {
		s1 = strings.TrimSpace(s1)
		s2 = strings.TrimSpace(s2)
	}
	return s1 == s2
}

func calculateStringSimilarity(s1, s2 string) float64 {
	// Similarity via Levenshtein distance over the longer string
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))

	if s1 == s2 {
		return 1.0
	}

	maxLen := math.Max(float64(len(s1)), float64(len(s2)))
	if maxLen == 0 {
		return 1.0
	}

	distance := float64(levenshteinDistance(s1, s2))
	return 1.0 - (distance / maxLen)
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

func sortStrings(arr []string) []string {
	sorted := make([]string, len(arr))
	copy(sorted, arr)
	sort.Strings(sorted)
	return sorted
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
