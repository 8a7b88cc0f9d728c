package scoring

import (
	"errors"
	"fmt"
)

var ErrNegativePoints = errors.New("scoring points must be non-negative")

// Rules stores the points awarded for each kind of correct forecast.
type Rules struct {
	CorrectHomeGoalsPoints int
	CorrectAwayGoalsPoints int
	ExactScorePoints       int
	CorrectWinnerPoints    int
}

func DefaultRules() Rules {
	return Rules{
		CorrectHomeGoalsPoints: 1,
		CorrectAwayGoalsPoints: 1,
		ExactScorePoints:       3,
		CorrectWinnerPoints:    3,
	}
}

// Validate reports the first negative field in declaration order.
func (r Rules) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"correct_home_goals", r.CorrectHomeGoalsPoints},
		{"correct_away_goals", r.CorrectAwayGoalsPoints},
		{"exact_score", r.ExactScorePoints},
		{"correct_winner", r.CorrectWinnerPoints},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativePoints, f.name, f.value)
		}
	}
	return nil
}

// Compute returns the points a forecast earns against an official result.
// Any absent goal count yields zero. An exact hit earns the exact-score
// bonus plus the winner points; otherwise each component is awarded on its own.
func Compute(predictedHome, predictedAway, actualHome, actualAway *int, rules Rules) int {
	if predictedHome == nil || predictedAway == nil || actualHome == nil || actualAway == nil {
		return 0
	}

	ph, pa := *predictedHome, *predictedAway
	ah, aa := *actualHome, *actualAway

	if ph == ah && pa == aa {
		return rules.ExactScorePoints + rules.CorrectWinnerPoints
	}

	points := 0
	if ph == ah {
		points += rules.CorrectHomeGoalsPoints
	}
	if pa == aa {
		points += rules.CorrectAwayGoalsPoints
	}
	if outcome(ph, pa) == outcome(ah, aa) {
		points += rules.CorrectWinnerPoints
	}

	return points
}

// outcome is -1 for an away win, 0 for a draw and 1 for a home win.
func outcome(home, away int) int {
	switch {
	case home > away:
		return 1
	case home < away:
		return -1
	default:
		return 0
	}
}
