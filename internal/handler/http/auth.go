package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/identity/internal/service"
	"github.com/utafrali/identity/pkg/httputil"
	"github.com/utafrali/identity/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for signup.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=40,maxbytes=72"`
	FullName string `json:"full_name" validate:"max=255"`
}

// ActivationEmailRequest is the JSON request body for resending activation.
type ActivationEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ActivateRequest is the JSON request body for account activation.
type ActivateRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginForm is the OAuth2 password grant form. The username is the email.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// ResetPasswordRequest is the JSON request body for password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=40,maxbytes=72"`
}

// --- Handlers ---

// Register handles POST /api/v1/signup
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	input := service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}
	if err := h.service.Register(r.Context(), input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "Account created successfully")
}

// SendActivationEmail handles POST /api/v1/activation-email
func (h *AuthHandler) SendActivationEmail(w http.ResponseWriter, r *http.Request) {
	var req ActivationEmailRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.SendActivationEmail(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Email sent successfully")
}

// Activate handles POST /api/v1/activate
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.Activate(r.Context(), req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Account activated successfully")
}

// Login handles POST /api/v1/access-token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	form := LoginForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	token, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, token)
}

// RequestPasswordReset handles POST /api/v1/password-recovery/{email}
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Password recovery email sent")
}

// ResetPassword handles POST /api/v1/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Password updated successfully")
}
