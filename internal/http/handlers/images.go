package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shaggydog/internal/domain"
)

// ImageSlot streams one stored image slot as PNG. Missing jobs, foreign
// jobs, and slots whose producing stage has not finished all answer 404.
func (a *App) ImageSlot(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	slotName := chi.URLParam(r, "slot")
	if jobID == "" || !domain.ValidSlot(slotName) {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}

	data, err := a.Jobs.SlotData(r.Context(), jobID, userID, domain.Slot(slotName))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Err(err).Str("job_id", jobID).Str("slot", slotName).Msg("load image failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load image")
			return
		}
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
