package handlers

import (
	"encoding/json"
	"net/http"

	"shaggydog/internal/domain"
	"shaggydog/internal/infra"
	"shaggydog/internal/middleware"
)

// Dispatcher hands an accepted job to the background pipeline.
type Dispatcher interface {
	Dispatch(jobID string) error
}

type App struct {
	Users          domain.UserRepository
	Jobs           domain.JobRepository
	Dispatcher     Dispatcher
	Logger         infra.Logger
	JWTSecret      string
	MaxUploadBytes int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
