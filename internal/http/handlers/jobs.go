package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shaggydog/internal/breed"
	"shaggydog/internal/domain"
	"shaggydog/internal/imaging"
)

type jobDTO struct {
	JobID        string  `json:"job_id"`
	BatchID      string  `json:"batch_id,omitempty"`
	Pipeline     string  `json:"pipeline"`
	Breed        string  `json:"breed,omitempty"`
	BreedDisplay string  `json:"breed_display,omitempty"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

type uploadResponse struct {
	BatchID string   `json:"batch_id,omitempty"`
	Jobs    []jobDTO `json:"jobs"`
}

// JobsCreate accepts a multipart headshot upload plus a pipeline selector and
// queues one or two transformation jobs. Validation happens before any job
// record exists; a rejected upload leaves no trace.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()
	if !imaging.AllowedFilename(header.Filename) {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported file type")
		return
	}

	selector := r.FormValue("pipeline")
	if selector == "" {
		selector = string(domain.PipelineGPTOnly)
	}
	if selector != "both" && !domain.ValidVariant(selector) {
		a.error(w, http.StatusBadRequest, "bad_request", "pipeline must be dalle_gpt, gpt_only, or both")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	normalized, err := imaging.Normalize(raw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file is not a decodable image")
		return
	}

	variants := []domain.PipelineVariant{domain.PipelineVariant(selector)}
	batchID := ""
	if selector == "both" {
		batchID = uuid.NewString()
		variants = []domain.PipelineVariant{domain.PipelineDalleGPT, domain.PipelineGPTOnly}
	}

	resp := uploadResponse{BatchID: batchID}
	for _, variant := range variants {
		job := &domain.Job{
			ID:       uuid.NewString(),
			UserID:   userID,
			BatchID:  batchID,
			Pipeline: variant,
			Status:   domain.StatusUploaded,
			Original: normalized,
		}
		if err := a.Jobs.Create(r.Context(), job); err != nil {
			a.Logger.Error().Err(err).Msg("create job failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
			return
		}
		if err := a.Dispatcher.Dispatch(job.ID); err != nil {
			a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("dispatch failed")
			if setErr := a.Jobs.SetError(r.Context(), job.ID, "server busy, please retry"); setErr != nil {
				a.Logger.Error().Err(setErr).Str("job_id", job.ID).Msg("mark dispatch failure failed")
			}
			a.error(w, http.StatusServiceUnavailable, "busy", "server busy, please retry")
			return
		}
		resp.Jobs = append(resp.Jobs, jobDTO{
			JobID:    job.ID,
			BatchID:  batchID,
			Pipeline: string(variant),
			Status:   string(job.Status),
			Progress: job.Status.ProgressPercent(),
		})
	}
	a.json(w, http.StatusAccepted, resp)
}

type listingDTO struct {
	jobDTO
	DisplayIndex int       `json:"display_index"`
	CreatedAt    time.Time `json:"created_at"`
	HasOriginal  bool      `json:"has_original"`
	HasStage1    bool      `json:"has_stage1"`
	HasStage2    bool      `json:"has_stage2"`
	HasFinal     bool      `json:"has_final"`
}

// JobsList returns the caller's jobs, newest first, as dashboard projections.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	listings, err := a.Jobs.ListForUser(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]listingDTO, 0, len(listings))
	for _, l := range listings {
		items = append(items, listingDTO{
			jobDTO: jobDTO{
				JobID:        l.ID,
				BatchID:      l.BatchID,
				Pipeline:     string(l.Pipeline),
				Breed:        l.Breed,
				BreedDisplay: breed.Breed(l.Breed).DisplayName(),
				Status:       string(l.Status),
				Progress:     l.Status.ProgressPercent(),
				ErrorMessage: l.ErrorMessage,
			},
			DisplayIndex: l.DisplayIndex,
			CreatedAt:    l.CreatedAt,
			HasOriginal:  l.HasOriginal,
			HasStage1:    l.HasStage1,
			HasStage2:    l.HasStage2,
			HasFinal:     l.HasFinal,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// JobStatus returns one job's progress for polling. Foreign jobs read as
// missing.
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
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("load job failed")
		}
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"job_id":        job.ID,
		"batch_id":      job.BatchID,
		"pipeline":      string(job.Pipeline),
		"breed":         job.Breed,
		"breed_display": breed.Breed(job.Breed).DisplayName(),
		"status":        string(job.Status),
		"progress":      job.Status.ProgressPercent(),
		"error_message": job.ErrorMessage,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
		"has_original":  len(job.Original) > 0,
		"has_stage1":    len(job.Stage1) > 0,
		"has_stage2":    len(job.Stage2) > 0,
		"has_final":     len(job.Final) > 0,
	})
}
