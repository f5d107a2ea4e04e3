package handler

import (
	"net/http"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles account registration, verification, login, password
// reset and the profile of the authenticated user
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler instance
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register an account
// @Description Creates an unverified account and emails a verification link
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "Account details"
// @Success 201 {object} domain.OKResponse
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Email already in use"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.authService.Register(r.Context(), &req); err != nil {
		handleServiceError(w, h.logger, err, "register account")
		return
	}

	respondJSON(w, http.StatusCreated, domain.OKResponse{OK: true})
}

// VerifyEmail godoc
// @Summary Verify an email address
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.VerifyEmailRequest true "Token from the verification email"
// @Success 200 {object} domain.OKResponse
// @Failure 400 {object} domain.APIError "Invalid or expired token"
// @Router /auth/verify [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), &req); err != nil {
		handleServiceError(w, h.logger, err, "verify email")
		return
	}

	respondJSON(w, http.StatusOK, domain.OKResponse{OK: true})
}

// Login godoc
// @Summary Log in
// @Description Exchanges email and password for a bearer access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError "Invalid credentials or email not verified"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// RequestPasswordReset godoc
// @Summary Request a password reset email
// @Description Always succeeds so account existence is not revealed
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.PasswordResetRequestRequest true "Account email"
// @Success 200 {object} domain.OKResponse
// @Failure 400 {object} domain.APIError
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), &req); err != nil {
		handleServiceError(w, h.logger, err, "request password reset")
		return
	}

	respondJSON(w, http.StatusOK, domain.OKResponse{OK: true})
}

// ResetPassword godoc
// @Summary Reset a password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.PasswordResetRequest true "Token from the reset email and the new password"
// @Success 200 {object} domain.OKResponse
// @Failure 400 {object} domain.APIError "Invalid or expired token"
// @Router /auth/password-reset [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.logger, err, "reset password")
		return
	}

	respondJSON(w, http.StatusOK, domain.OKResponse{OK: true})
}

// GetProfile godoc
// @Summary Get the current user's profile
// @Tags Profile
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /profile [get]
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.GetProfile(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /profile [put]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.authService.UpdateProfile(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
