package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics == nil {
		return
	}

	mux.Handle("GET /metrics", metrics)
}

func registerPoolRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/pools/{poolID}/matches/{matchID}/score", RequireAuth(verifier, http.HandlerFunc(handler.GetMatchScore)))
	mux.Handle("GET /v1/pools/{poolID}/ranking", RequireAuth(verifier, http.HandlerFunc(handler.GetRanking)))
	mux.Handle("PUT /v1/pools/{poolID}/matches/{matchID}/forecast", RequireAuth(verifier, http.HandlerFunc(handler.SubmitForecast)))
	mux.Handle("POST /v1/pools/{poolID}/state", RequireAuth(verifier, http.HandlerFunc(handler.TransitionPoolState)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/pools/{poolID}/finalize", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.FinalizePool)))
	mux.Handle("POST /v1/internal/pools/{poolID}/sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.SweepPool)))
}
