package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/response"
	"github.com/roadworthy/inspection-platform/services/auth/internal/domain"
)

// Register handles public self-registration. Privileged roles are rejected
// here and the service layer forces customer regardless, so the public path
// cannot mint a technician or admin account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if req.Role == auth.RoleTechnician || req.Role == auth.RoleAdmin {
		response.Forbidden(w, "Cannot register as technician or admin. Please contact an administrator.")
		return
	}

	account, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, "Registration failed")
		return
	}

	response.WriteJSON(w, http.StatusCreated, account.ToInfo())
}

// Login authenticates credentials and returns a signed token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, "Login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, res)
}

// ValidateToken lets other parties check a bearer token. Services do not call
// this per request; they verify locally with the shared secret.
func (h *Handlers) ValidateToken(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		response.Unauthorized(w, "missing authorization header")
		return
	}

	claims, err := h.authority.Verify(auth.FromHeader(header))
	if err != nil {
		response.Unauthorized(w, "invalid or expired token")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  true,
		"claims": claims,
	})
}

// VerifyEmail marks an account's email as verified.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		response.BadRequest(w, "Email is required")
		return
	}

	if err := h.authService.MarkVerified(r.Context(), req.Email); err != nil {
		writeDomainError(w, r, err, "Verification failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully",
	})
}

// writeDomainError maps service errors to the HTTP taxonomy. Unexpected
// errors are logged with their cause and surfaced as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, generic string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		response.Conflict(w, "Email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid credentials")
	case errors.Is(err, domain.ErrAccountNotFound):
		response.NotFound(w, "Account not found")
	default:
		logger.ErrorContext(r.Context(), generic, "error", err)
		response.InternalError(w, generic)
	}
}
