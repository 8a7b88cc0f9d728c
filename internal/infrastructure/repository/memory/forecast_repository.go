package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/polla/internal/domain/forecast"
)

type ForecastRepository struct {
	mu    sync.RWMutex
	items map[string]forecast.Forecast
}

func NewForecastRepository(items []forecast.Forecast) *ForecastRepository {
	byKey := make(map[string]forecast.Forecast, len(items))
	for _, item := range items {
		byKey[forecastKey(item.MatchID, item.ParticipantID)] = item
	}

	return &ForecastRepository{items: byKey}
}

func (r *ForecastRepository) ListByMatch(_ context.Context, matchID string) ([]forecast.Forecast, error) {
	return r.filter(func(item forecast.Forecast) bool { return item.MatchID == matchID }), nil
}

func (r *ForecastRepository) ListByPool(_ context.Context, poolID string) ([]forecast.Forecast, error) {
	return r.filter(func(item forecast.Forecast) bool { return item.PoolID == poolID }), nil
}

func (r *ForecastRepository) Upsert(_ context.Context, item forecast.Forecast) (forecast.Forecast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := forecastKey(item.MatchID, item.ParticipantID)
	if existing, ok := r.items[key]; ok {
		item.ID = existing.ID
		item.SubmittedAt = existing.SubmittedAt
		item.Points = existing.Points
	}
	r.items[key] = item
	return item, nil
}

func (r *ForecastRepository) SetLegacyPoints(_ context.Context, matchID, participantID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := forecastKey(matchID, participantID)
	item, ok := r.items[key]
	if !ok {
		return nil
	}
	value := points
	item.Points = &value
	r.items[key] = item
	return nil
}

func (r *ForecastRepository) filter(keep func(forecast.Forecast) bool) []forecast.Forecast {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]forecast.Forecast, 0)
	for _, item := range r.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

func forecastKey(matchID, participantID string) string {
	return matchID + "|" + participantID
}
