package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// JobStatus returns the job record for its owner.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetJob(r.Context(), jobID, userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":               job.ID,
		"job_id":           job.JobID,
		"provider_job_id":  job.ProviderJobID,
		"kind":             job.Kind,
		"status":           job.Status,
		"model_slug":       job.ModelSlug,
		"version_tag":      job.VersionTag,
		"preset_id":        job.PresetID,
		"result_url":       job.ResultURL,
		"error_message":    job.ErrorMessage,
		"duration_seconds": job.DurationSeconds,
		"created_at":       job.CreatedAt,
		"updated_at":       job.UpdatedAt,
	})
}
