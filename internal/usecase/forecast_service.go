package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/platform/id"
	"github.com/riskibarqy/polla/internal/platform/logging"
)

const maxForecastGoals = 99

type SubmitForecastInput struct {
	PoolID        string
	MatchID       string
	ParticipantID string
	HomeGoals     int
	AwayGoals     int
}

type ForecastService struct {
	access    poolAccess
	matches   match.Repository
	forecasts forecast.Repository
	idGen     id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewForecastService(
	pools pool.Repository,
	access pool.AccessRepository,
	matches match.Repository,
	forecasts forecast.Repository,
	idGen id.Generator,
	logger *logging.Logger,
) *ForecastService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ForecastService{
		access:    poolAccess{pools: pools, access: access},
		matches:   matches,
		forecasts: forecasts,
		idGen:     idGen,
		logger:    logger.Named("forecast"),
		now:       time.Now,
	}
}

// SubmitForecast creates or replaces the participant's forecast for a match.
// Forecasts close five minutes before kickoff.
func (s *ForecastService) SubmitForecast(ctx context.Context, input SubmitForecastInput) (forecast.Forecast, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ForecastService.SubmitForecast")
	defer span.End()

	if input.HomeGoals < 0 || input.AwayGoals < 0 || input.HomeGoals > maxForecastGoals || input.AwayGoals > maxForecastGoals {
		return forecast.Forecast{}, fmt.Errorf("%w: goals must be between 0 and %d", ErrInvalidInput, maxForecastGoals)
	}

	p, err := s.access.authorize(ctx, input.PoolID, input.ParticipantID)
	if err != nil {
		return forecast.Forecast{}, err
	}
	if !p.AcceptsForecasts() {
		return forecast.Forecast{}, fmt.Errorf("%w: pool=%s is %s", ErrForecastClosed, p.ID, p.State)
	}

	matchID := strings.TrimSpace(input.MatchID)
	m, ok, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("get match: %w", err)
	}
	if !ok || m.PoolID != p.ID {
		return forecast.Forecast{}, fmt.Errorf("%w: match=%s pool=%s", ErrNotFound, matchID, p.ID)
	}

	now := s.now()
	if !m.AcceptsForecasts(now) {
		return forecast.Forecast{}, fmt.Errorf("%w: deadline was %s", ErrForecastClosed, m.ForecastDeadline().UTC().Format(time.RFC3339))
	}

	forecastID, err := s.idGen.NewID()
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("generate forecast id: %w", err)
	}

	saved, err := s.forecasts.Upsert(ctx, forecast.Forecast{
		ID:            forecastID,
		PoolID:        p.ID,
		MatchID:       m.ID,
		ParticipantID: strings.TrimSpace(input.ParticipantID),
		HomeGoals:     input.HomeGoals,
		AwayGoals:     input.AwayGoals,
		SubmittedAt:   now.UTC(),
		UpdatedAt:     now.UTC(),
	})
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("upsert forecast: %w", err)
	}

	s.logger.InfoContext(ctx, "forecast submitted",
		"pool_id", p.ID,
		"match_id", m.ID,
		"participant_id", saved.ParticipantID,
	)
	return saved, nil
}
