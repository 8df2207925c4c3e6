package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/authz"
	"github.com/roadworthy/inspection-platform/pkg/response"
	"github.com/roadworthy/inspection-platform/services/auth/internal/domain"
)

// ListAccounts returns all accounts (admin only).
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	accounts, err := h.authService.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err, "Failed to list accounts")
		return
	}

	infos := make([]*domain.AccountInfo, len(accounts))
	for i := range accounts {
		infos[i] = accounts[i].ToInfo()
	}

	response.WriteJSON(w, http.StatusOK, infos)
}

// CreateTechnician creates a technician account (admin only).
func (h *Handlers) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	account, err := h.authService.CreateTechnician(r.Context(), authz.ClaimsFrom(r.Context()), &req)
	if err != nil {
		writeDomainError(w, r, err, "Failed to create technician")
		return
	}

	response.WriteJSON(w, http.StatusCreated, account.ToInfo())
}

// UpdateRole changes an account's role (admin only). The change takes effect
// on the target's next login; outstanding tokens keep the old role until
// expiry.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	var req domain.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	account, err := h.authService.UpdateRole(r.Context(), authz.ClaimsFrom(r.Context()), id, req.Role)
	if err != nil {
		writeDomainError(w, r, err, "Failed to update role")
		return
	}

	response.WriteJSON(w, http.StatusOK, account.ToInfo())
}
