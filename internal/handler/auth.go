package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/venus-savings/venus/internal/ctxkeys"
	"github.com/venus-savings/venus/internal/model"
	"github.com/venus-savings/venus/internal/service"
)

type authHandler struct {
	authService  *service.AuthService
	emailService *service.EmailService
}

func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService) *authHandler {
	return &authHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "please enter an email and password.")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}

	if h.emailService != nil {
		err = h.emailService.SendWelcomeEmail(r.Context(), user.Email)
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
		}
	}

	writeJSON(w, http.StatusCreated, envelope{"message": "account created.", "user": user})
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "please enter an email and password.")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}

	writeJSON(w, http.StatusOK, envelope{"message": "logged in.", "user": user})
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	writeMessage(w, http.StatusOK, "logged out.")
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"user": ctxkeys.User(r.Context())})
}

func (h *authHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	token, expiry, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, err)
		return false
	}

	h.authService.SetJWTCookie(w, token, expiry)
	return true
}
