package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/platform/logger"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

type authResponse struct {
	Token string               `json:"token"`
	User  domain.PublicProfile `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		DisplayName string `json:"display_name"`
		Handle      string `json:"handle"`
		Password    string `json:"password"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - register - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Register(r.Context(), req.DisplayName, req.Handle, req.Password, req.AvatarURL)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - register failed", "handle", req.Handle, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "handle", req.Handle, "err", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	h.setSessionCookie(w, token)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{Token: token, User: user.Profile()})
	log.InfoContext(r.Context(), "auth handler - register success", "handle", req.Handle)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - login - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		log.ErrorContext(r.Context(), "auth handler - login failed", "handle", req.Handle, "err", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.ID.String())
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "handle", req.Handle, "err", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	h.setSessionCookie(w, token)
	json.NewEncoder(w).Encode(authResponse{Token: token, User: user.Profile()})
	log.InfoContext(r.Context(), "auth handler - login success", "handle", req.Handle)
}

// setSessionCookie stores the token under the same cookie the WebSocket
// handshake reads.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
