package forecast

import (
	"context"
	"time"
)

// Forecast is a participant's predicted score for one match.
type Forecast struct {
	ID            string
	PoolID        string
	MatchID       string
	ParticipantID string
	HomeGoals     int
	AwayGoals     int
	// Points mirrors the definitive score for older readers. MatchScore is authoritative.
	Points      *int
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ListByMatch(ctx context.Context, matchID string) ([]Forecast, error)
	ListByPool(ctx context.Context, poolID string) ([]Forecast, error)
	// Upsert stores the forecast keyed by match and participant.
	Upsert(ctx context.Context, item Forecast) (Forecast, error)
	SetLegacyPoints(ctx context.Context, matchID, participantID string, points int) error
}
