package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/middleware"
)

// App is the handler container: it holds the orchestrator and shared
// response helpers.
type App struct {
	Jobs   *jobs.Service
	Logger zerolog.Logger
}

// NewApp creates the handler container.
func NewApp(jobService *jobs.Service, logger zerolog.Logger) *App {
	return &App{Jobs: jobService, Logger: logger}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// writeError maps every domain error kind onto exactly one status/kind
// pair. The mapping is total: known kinds never fall through to a generic
// 500.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		a.error(w, http.StatusBadRequest, "validation_failed", verr.Error())
		return
	}
	var ierr *domain.InsufficientCreditsError
	if errors.As(err, &ierr) {
		a.json(w, http.StatusPaymentRequired, map[string]any{
			"error":    "insufficient_credits",
			"message":  ierr.Error(),
			"balance":  ierr.Balance,
			"required": ierr.Required,
		})
		return
	}
	var uerr *domain.UpstreamError
	if errors.As(err, &uerr) {
		a.json(w, http.StatusBadGateway, map[string]any{
			"error":           "upstream_failed",
			"message":         uerr.Error(),
			"provider":        uerr.Provider,
			"provider_status": uerr.StatusCode,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
