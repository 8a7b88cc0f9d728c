package matchscore

import (
	"context"
	"time"
)

// MatchScore is the persisted points of one participant for one match.
type MatchScore struct {
	MatchID       string
	PoolID        string
	ParticipantID string
	Points        int
	Definitive    bool
	CalculatedAt  time.Time
}

type Repository interface {
	// Upsert writes the score keyed by match and participant.
	Upsert(ctx context.Context, item MatchScore) error
	ListByPool(ctx context.Context, poolID string) ([]MatchScore, error)
}
