package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/polla/internal/domain/matchscore"
)

type MatchScoreRepository struct {
	mu     sync.RWMutex
	scores map[string]matchscore.MatchScore
}

func NewMatchScoreRepository() *MatchScoreRepository {
	return &MatchScoreRepository{scores: make(map[string]matchscore.MatchScore)}
}

func (r *MatchScoreRepository) Upsert(_ context.Context, item matchscore.MatchScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scores[forecastKey(item.MatchID, item.ParticipantID)] = item
	return nil
}

func (r *MatchScoreRepository) ListByPool(_ context.Context, poolID string) ([]matchscore.MatchScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]matchscore.MatchScore, 0)
	for _, item := range r.scores {
		if item.PoolID == poolID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out, nil
}

// Count is used by tests to assert idempotent writes.
func (r *MatchScoreRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scores)
}
