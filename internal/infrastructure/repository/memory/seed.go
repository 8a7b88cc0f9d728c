package memory

import (
	"time"

	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/shopspring/decimal"
)

const (
	DemoPoolID    = "pool-world-cup-2026"
	DemoCreatorID = "demo-creator"
)

var DemoParticipantIDs = []string{"demo-participant-1", "demo-participant-2"}

func SeedPools(now time.Time) []pool.Pool {
	return []pool.Pool{
		{
			ID:        DemoPoolID,
			Name:      "World Cup 2026 office pool",
			CreatorID: DemoCreatorID,
			StartsAt:  now.Add(24 * time.Hour).UTC(),
			EntryFee:  decimal.RequireFromString("10.00"),
			State:     pool.StateOpen,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		},
	}
}

func SeedMatches(now time.Time) []match.Match {
	return []match.Match{
		{
			ID:          "match-opening",
			PoolID:      DemoPoolID,
			ExternalID:  "1489369",
			HomeTeam:    "Mexico",
			AwayTeam:    "South Africa",
			ScheduledAt: now.Add(24 * time.Hour).UTC(),
			StatusShort: match.StatusNotStarted,
			StatusLong:  "Not Started",
		},
		{
			ID:          "match-second",
			PoolID:      DemoPoolID,
			ExternalID:  "1489370",
			HomeTeam:    "South Korea",
			AwayTeam:    "Czechia",
			ScheduledAt: now.Add(30 * time.Hour).UTC(),
			StatusShort: match.StatusNotStarted,
			StatusLong:  "Not Started",
		},
	}
}

func SeedForecasts(now time.Time) []forecast.Forecast {
	return []forecast.Forecast{
		{ID: "fc-1", PoolID: DemoPoolID, MatchID: "match-opening", ParticipantID: DemoParticipantIDs[0], HomeGoals: 2, AwayGoals: 0, SubmittedAt: now.UTC(), UpdatedAt: now.UTC()},
		{ID: "fc-2", PoolID: DemoPoolID, MatchID: "match-opening", ParticipantID: DemoParticipantIDs[1], HomeGoals: 1, AwayGoals: 1, SubmittedAt: now.UTC(), UpdatedAt: now.UTC()},
	}
}

func SeedAcceptedParticipants() map[string][]string {
	return map[string][]string{
		DemoPoolID: append([]string(nil), DemoParticipantIDs...),
	}
}
