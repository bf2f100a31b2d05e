package services

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"gorm.io/datatypes"

	"github.com/classforge/assessment-service/internal/models"
)

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(data)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreResponse_MultipleChoice(t *testing.T) {
	tests := []struct {
		name        string
		key         models.MultipleChoiceAnswer
		answer      interface{}
		wantRatio   float64
		wantCorrect bool
	}{
		{
			name:        "exact match single option",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A"}},
			answer:      "A",
			wantRatio:   1.0,
			wantCorrect: true,
		},
		{
			name:        "exact match multi select unordered",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "C"}},
			answer:      []string{"C", "A"},
			wantRatio:   1.0,
			wantCorrect: true,
		},
		{
			name:        "wrong option no partial credit",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "C"}},
			answer:      []string{"A", "B"},
			wantRatio:   0.0,
			wantCorrect: false,
		},
		{
			name:        "partial credit one of two with one wrong",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "C"}, PartialCredit: true},
			answer:      []string{"A", "B"},
			wantRatio:   0.0, // (1 correct - 1 incorrect) / 2
			wantCorrect: false,
		},
		{
			name:        "partial credit counts missed option against",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "C"}, PartialCredit: true},
			answer:      []string{"A"},
			wantRatio:   0.0, // (1 correct - 1 missed) / 2
			wantCorrect: false,
		},
		{
			name:        "partial credit rewards majority of options",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "B", "C"}, PartialCredit: true},
			answer:      []string{"A", "B"},
			wantRatio:   1.0 / 3.0, // (2 correct - 1 missed) / 3
			wantCorrect: false,
		},
		{
			name:        "partial credit never negative",
			key:         models.MultipleChoiceAnswer{CorrectOptions: []string{"A", "C"}, PartialCredit: true},
			answer:      []string{"B", "D", "E"},
			wantRatio:   0.0,
			wantCorrect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question := &models.Question{
				ID:            "q1",
				Type:          models.MultipleChoice,
				CorrectAnswer: mustJSON(t, tt.key),
				Points:        2,
			}
			ratio, correct, err := scoreResponse(question, mustJSON(t, tt.answer))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(ratio, tt.wantRatio) {
				t.Errorf("ratio = %v, want %v", ratio, tt.wantRatio)
			}
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}

func TestScoreResponse_TrueFalse(t *testing.T) {
	question := &models.Question{
		ID:            "q1",
		Type:          models.TrueFalse,
		CorrectAnswer: mustJSON(t, models.TrueFalseAnswer{Value: true}),
		Points:        1,
	}

	t.Run("correct", func(t *testing.T) {
		ratio, correct, err := scoreResponse(question, mustJSON(t, true))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ratio != 1.0 || !correct {
			t.Errorf("got ratio=%v correct=%v, want 1.0 true", ratio, correct)
		}
	})

	t.Run("incorrect", func(t *testing.T) {
		ratio, correct, err := scoreResponse(question, mustJSON(t, false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ratio != 0.0 || correct {
			t.Errorf("got ratio=%v correct=%v, want 0.0 false", ratio, correct)
		}
	})
}

func TestScoreResponse_ShortAnswer(t *testing.T) {
	tests := []struct {
		name        string
		key         models.ShortAnswerKey
		answer      string
		wantCorrect bool
		wantRatio   float64
	}{
		{
			name:        "exact match case insensitive",
			key:         models.ShortAnswerKey{AcceptedAnswers: []string{"Paris"}},
			answer:      "  paris ",
			wantCorrect: true,
			wantRatio:   1.0,
		},
		{
			name:        "case sensitive mismatch",
			key:         models.ShortAnswerKey{AcceptedAnswers: []string{"Paris"}, CaseSensitive: true},
			answer:      "paris",
			wantCorrect: false,
			wantRatio:   0.0,
		},
		{
			// Fuzzy matches earn the similarity ratio but stay flagged
			// incorrect so educators can review them.
			name:        "fuzzy earns similarity without correct flag",
			key:         models.ShortAnswerKey{AcceptedAnswers: []string{"mitochondria"}, FuzzyMatching: true},
			answer:      "mitochondira",
			wantCorrect: false,
			wantRatio:   5.0 / 6.0, // edit distance 2 over 12 characters
		},
		{
			name:        "fuzzy rejects distant answer",
			key:         models.ShortAnswerKey{AcceptedAnswers: []string{"mitochondria"}, FuzzyMatching: true},
			answer:      "ribosome",
			wantCorrect: false,
			wantRatio:   0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question := &models.Question{
				ID:            "q1",
				Type:          models.ShortAnswer,
				CorrectAnswer: mustJSON(t, tt.key),
				Points:        1,
			}
			ratio, correct, err := scoreResponse(question, mustJSON(t, tt.answer))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
			if tt.wantCorrect && ratio < fuzzyMatchThreshold {
				t.Errorf("ratio = %v, want >= %v", ratio, fuzzyMatchThreshold)
			}
			if !tt.wantCorrect && !almostEqual(ratio, tt.wantRatio) {
				t.Errorf("ratio = %v, want %v", ratio, tt.wantRatio)
			}
		})
	}
}

func TestScoreResponse_Matching(t *testing.T) {
	key := models.MatchingAnswer{Pairs: []models.MatchPair{
		{Left: "H2O", Right: "water"},
		{Left: "NaCl", Right: "salt"},
		{Left: "CO2", Right: "carbon dioxide"},
	}}
	question := &models.Question{
		ID:            "q1",
		Type:          models.Matching,
		CorrectAnswer: mustJSON(t, key),
		Points:        3,
	}

	t.Run("all pairs correct", func(t *testing.T) {
		answer := map[string]string{"H2O": "water", "NaCl": "salt", "CO2": "carbon dioxide"}
		ratio, correct, err := scoreResponse(question, mustJSON(t, answer))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ratio != 1.0 || !correct {
			t.Errorf("got ratio=%v correct=%v, want 1.0 true", ratio, correct)
		}
	})

	t.Run("two of three pairs", func(t *testing.T) {
		answer := map[string]string{"H2O": "water", "NaCl": "salt", "CO2": "water"}
		ratio, correct, err := scoreResponse(question, mustJSON(t, answer))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(ratio, 2.0/3.0) {
			t.Errorf("ratio = %v, want 2/3", ratio)
		}
		if correct {
			t.Error("partially matched response reported as fully correct")
		}
	})
}

func TestScoreResponse_Ordering(t *testing.T) {
	key := models.OrderingAnswer{CorrectOrder: []string{"a", "b", "c", "d"}}
	question := &models.Question{
		ID:            "q1",
		Type:          models.Ordering,
		CorrectAnswer: mustJSON(t, key),
		Points:        4,
	}

	t.Run("correct order", func(t *testing.T) {
		ratio, correct, err := scoreResponse(question, mustJSON(t, []string{"a", "b", "c", "d"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ratio != 1.0 || !correct {
			t.Errorf("got ratio=%v correct=%v, want 1.0 true", ratio, correct)
		}
	})

	t.Run("half in position", func(t *testing.T) {
		ratio, correct, err := scoreResponse(question, mustJSON(t, []string{"a", "c", "b", "d"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(ratio, 0.5) {
			t.Errorf("ratio = %v, want 0.5", ratio)
		}
		if correct {
			t.Error("partial ordering reported as fully correct")
		}
	})
}

func TestScoreResponse_Essay(t *testing.T) {
	question := &models.Question{
		ID:     "q1",
		Type:   models.Essay,
		Points: 10,
	}
	_, _, err := scoreResponse(question, mustJSON(t, "my essay text"))
	if !errors.Is(err, ErrManualGradingRequired) {
		t.Errorf("err = %v, want ErrManualGradingRequired", err)
	}
}

func TestScoreResponse_NilAnswer(t *testing.T) {
	question := &models.Question{
		ID:            "q1",
		Type:          models.TrueFalse,
		CorrectAnswer: mustJSON(t, models.TrueFalseAnswer{Value: true}),
		Points:        1,
	}
	ratio, correct, err := scoreResponse(question, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ratio != 0.0 || correct {
		t.Errorf("got ratio=%v correct=%v, want 0.0 false", ratio, correct)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}
