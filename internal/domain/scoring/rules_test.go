package scoring

import (
	"errors"
	"strings"
	"testing"
)

func goals(v int) *int {
	return &v
}

func TestCompute(t *testing.T) {
	rules := Rules{
		CorrectHomeGoalsPoints: 1,
		CorrectAwayGoalsPoints: 1,
		ExactScorePoints:       3,
		CorrectWinnerPoints:    3,
	}

	tests := []struct {
		name                                     string
		predictedHome, predictedAway, home, away *int
		want                                     int
	}{
		{name: "exact score", predictedHome: goals(2), predictedAway: goals(1), home: goals(2), away: goals(1), want: 6},
		{name: "home goals and winner", predictedHome: goals(2), predictedAway: goals(0), home: goals(2), away: goals(1), want: 4},
		{name: "wrong winner", predictedHome: goals(0), predictedAway: goals(2), home: goals(2), away: goals(1), want: 0},
		{name: "any draw matches draw", predictedHome: goals(0), predictedAway: goals(0), home: goals(1), away: goals(1), want: 3},
		{name: "away goals only", predictedHome: goals(3), predictedAway: goals(1), home: goals(0), away: goals(1), want: 1},
		{name: "exact draw", predictedHome: goals(1), predictedAway: goals(1), home: goals(1), away: goals(1), want: 6},
		{name: "missing actual", predictedHome: goals(1), predictedAway: goals(1), home: nil, away: goals(1), want: 0},
		{name: "missing forecast", predictedHome: goals(1), predictedAway: nil, home: goals(1), away: goals(1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.predictedHome, tt.predictedAway, tt.home, tt.away, rules)
			if got != tt.want {
				t.Fatalf("Compute()=%d want=%d", got, tt.want)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	rules := DefaultRules()
	first := Compute(goals(3), goals(2), goals(2), goals(1), rules)
	for i := 0; i < 100; i++ {
		if got := Compute(goals(3), goals(2), goals(2), goals(1), rules); got != first {
			t.Fatalf("iteration %d returned %d, want %d", i, got, first)
		}
	}
}

func TestCompute_ZeroRules(t *testing.T) {
	if got := Compute(goals(2), goals(1), goals(2), goals(1), Rules{}); got != 0 {
		t.Fatalf("expected zero points with zero rules, got %d", got)
	}
}

func TestRulesValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules should be valid: %v", err)
	}

	rules := DefaultRules()
	rules.ExactScorePoints = -1
	if err := rules.Validate(); !errors.Is(err, ErrNegativePoints) {
		t.Fatalf("expected ErrNegativePoints, got %v", err)
	}
}

func TestRulesValidate_ReportsFirstNegativeField(t *testing.T) {
	rules := Rules{
		CorrectHomeGoalsPoints: 1,
		CorrectAwayGoalsPoints: -2,
		ExactScorePoints:       -3,
		CorrectWinnerPoints:    -4,
	}

	for i := 0; i < 20; i++ {
		err := rules.Validate()
		if err == nil || !strings.Contains(err.Error(), "correct_away_goals=-2") {
			t.Fatalf("run %d: expected correct_away_goals to be reported, got %v", i, err)
		}
	}
}
