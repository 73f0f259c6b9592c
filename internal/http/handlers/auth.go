package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shaggydog/internal/domain"
	"shaggydog/internal/middleware"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

const (
	minUsernameLen = 3
	minPasswordLen = 8
	tokenLifetime  = 24 * time.Hour
)

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < minUsernameLen {
		a.error(w, http.StatusBadRequest, "bad_request", "username must be at least 3 characters")
		return
	}
	if len(req.Password) < minPasswordLen {
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("hash password failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		return
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
	}
	if err := a.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			a.error(w, http.StatusConflict, "conflict", "username already taken")
			return
		}
		a.Logger.Error().Err(err).Msg("create user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		return
	}

	token, err := a.signToken(user)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusCreated, authResponse{
		Token: token,
		User:  userDTO{ID: user.ID, Username: user.Username},
	})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	user, err := a.Users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
			return
		}
		a.Logger.Error().Err(err).Msg("load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	token, err := a.signToken(user)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{
		Token: token,
		User:  userDTO{ID: user.ID, Username: user.Username},
	})
}

func (a *App) signToken(user *domain.User) (string, error) {
	return middleware.SignJWT(a.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Username: user.Username,
		Exp:      time.Now().Add(tokenLifetime).Unix(),
		Issuer:   "shaggydog",
		Audience: "shaggydog-web",
	})
}
