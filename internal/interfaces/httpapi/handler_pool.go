package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/usecase"
)

func (h *Handler) GetMatchScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchScore")
	defer span.End()

	participantID, err := requireParticipant(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	matchID := strings.TrimSpace(r.PathValue("matchID"))
	view, err := h.syncService.GetScore(ctx, poolID, matchID, participantID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match score failed", "pool_id", poolID, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toMatchScoreDTO(view))
}

func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRanking")
	defer span.End()

	participantID, err := requireParticipant(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	ranking, err := h.rankingService.GetRanking(ctx, poolID, participantID)
	if err != nil {
		h.logger.WarnContext(ctx, "get ranking failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toRankingDTO(ranking))
}

func (h *Handler) SubmitForecast(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitForecast")
	defer span.End()

	participantID, err := requireParticipant(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req submitForecastRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err))
		return
	}

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	matchID := strings.TrimSpace(r.PathValue("matchID"))
	item, err := h.forecastService.SubmitForecast(ctx, usecase.SubmitForecastInput{
		PoolID:        poolID,
		MatchID:       matchID,
		ParticipantID: participantID,
		HomeGoals:     *req.HomeGoals,
		AwayGoals:     *req.AwayGoals,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit forecast failed", "pool_id", poolID, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toForecastDTO(item))
}

func (h *Handler) TransitionPoolState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TransitionPoolState")
	defer span.End()

	actorID, err := requireParticipant(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req transitionPoolRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON body: %v", usecase.ErrInvalidInput, err))
		return
	}
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	if err := h.validator.StructCtx(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err))
		return
	}
	target, err := pool.ParseState(req.State)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	updated, err := h.stateService.Transition(ctx, poolID, actorID, target)
	if err != nil {
		h.logger.WarnContext(ctx, "transition pool failed", "pool_id", poolID, "target", target, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toPoolDTO(updated))
}

// FinalizePool runs a synchronous completeness check. Used by the scheduler.
func (h *Handler) FinalizePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FinalizePool")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	result, err := h.finalizer.FinalizeIfComplete(ctx, poolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "finalize pool failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toFinalizeResultDTO(result))
}

// SweepPool is the QStash callback that keeps a pool moving toward FINALIZED.
func (h *Handler) SweepPool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SweepPool")
	defer span.End()

	poolID := strings.TrimSpace(r.PathValue("poolID"))
	result, err := h.sweepService.RunSweep(ctx, poolID)
	if err != nil {
		h.logger.ErrorContext(ctx, "sweep pool failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toSweepResultDTO(result))
}
