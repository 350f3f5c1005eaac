package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/jobs"
	"server/internal/middleware"
)

type generateRequest struct {
	Model    string          `json:"model"`
	Version  string          `json:"version"`
	PresetID string          `json:"preset_id"`
	Params   domain.ParamDoc `json:"params"`
}

// ImagesGenerate creates an image generation job.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.JobKindImage)
}

// VideosGenerate creates a video generation job.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.JobKindVideo)
}

func (a *App) generate(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	summary, err := a.Jobs.CreateJob(r.Context(), jobs.CreateJobRequest{
		Kind:       kind,
		ModelSlug:  req.Model,
		VersionTag: req.Version,
		PresetID:   req.PresetID,
		Params:     req.Params,
		Locale:     middleware.LocaleFromContext(r.Context()),
	}, userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, summary)
}
