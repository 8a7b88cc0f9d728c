package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"github.com/riskibarqy/polla/internal/usecase"
)

type Handler struct {
	syncService     *usecase.MatchSyncService
	rankingService  *usecase.RankingService
	forecastService *usecase.ForecastService
	stateService    *usecase.PoolStateService
	finalizer       *usecase.PoolFinalizer
	sweepService    *usecase.PoolSweepService
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	syncService *usecase.MatchSyncService,
	rankingService *usecase.RankingService,
	forecastService *usecase.ForecastService,
	stateService *usecase.PoolStateService,
	finalizer *usecase.PoolFinalizer,
	sweepService *usecase.PoolSweepService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		syncService:     syncService,
		rankingService:  rankingService,
		forecastService: forecastService,
		stateService:    stateService,
		finalizer:       finalizer,
		sweepService:    sweepService,
		logger:          logger.Named("httpapi"),
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireParticipant(r *http.Request) (string, error) {
	principal, ok := principalFromContext(r.Context())
	if !ok || principal.UserID == "" {
		return "", fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized)
	}
	return principal.UserID, nil
}
