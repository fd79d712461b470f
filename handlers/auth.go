package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/CrowderSoup/kanban/services"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session *services.Session `json:"session"`
}

// SignUp registers a new user and returns its first session.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	session, err := h.authService.SignUp(req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("sign up failed")
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	log.Info().Str("user", session.User.ID).Msg("user signed up")
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session})
}

// SignIn exchanges email and password for a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	session, err := h.authService.SignIn(req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("sign in failed")
		writeError(w, http.StatusInternalServerError, "authentication error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// SignOut revokes the token the request was made with.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	h.authService.Revoke(claims)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the session of the presented token.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: h.authService.SessionFor(tokenFrom(r), claims)})
}
