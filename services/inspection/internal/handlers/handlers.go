package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/authz"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/response"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/domain"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/service"
)

type Handlers struct {
	inspectionService service.InspectionService
}

func New(inspectionService service.InspectionService) *Handlers {
	return &Handlers{inspectionService: inspectionService}
}

// VehiclesForInspection serves the merged appointment+inspection view to
// technicians and admins. A degraded upstream still yields a 200 with the
// error annotated in the body.
func (h *Handlers) VehiclesForInspection(w http.ResponseWriter, r *http.Request) {
	claims := authz.ClaimsFrom(r.Context())

	listing, err := h.inspectionService.VehiclesForInspection(r.Context(), claims, r.Header.Get("Authorization"))
	if err != nil {
		writeDomainError(w, r, err, "Failed to retrieve vehicles")
		return
	}

	response.WriteJSON(w, http.StatusOK, listing)
}

// Submit records an inspection (technician only).
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	claims := authz.ClaimsFrom(r.Context())
	inspection, err := h.inspectionService.Submit(r.Context(), claims, r.Header.Get("Authorization"), &req)
	if err != nil {
		writeDomainError(w, r, err, "Failed to submit inspection")
		return
	}

	response.WriteJSON(w, http.StatusCreated, inspection)
}

// AssignedInspections lists a technician's own completed inspections.
func (h *Handlers) AssignedInspections(w http.ResponseWriter, r *http.Request) {
	technicianID, err := uuid.Parse(chi.URLParam(r, "technicianID"))
	if err != nil {
		response.BadRequest(w, "Invalid technician ID")
		return
	}

	// Technicians see their own list only.
	claims := authz.ClaimsFrom(r.Context())
	if err := authz.RequireOwner(claims, technicianID); err != nil {
		response.Forbidden(w, "Can only view your own inspections")
		return
	}

	inspections, err := h.inspectionService.AssignedInspections(r.Context(), technicianID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to retrieve assigned inspections")
		return
	}
	if inspections == nil {
		inspections = []domain.Inspection{}
	}

	response.WriteJSON(w, http.StatusOK, inspections)
}

// ByAppointment returns the inspection correlated with one appointment, for
// report generation.
func (h *Handlers) ByAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	inspection, err := h.inspectionService.ByAppointment(r.Context(), appointmentID)
	if err != nil {
		writeDomainError(w, r, err, "Failed to retrieve inspection")
		return
	}

	response.WriteJSON(w, http.StatusOK, inspection)
}

// ListInspections returns all inspections with an optional status filter
// (admin only, read-only).
func (h *Handlers) ListInspections(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := r.URL.Query().Get("status")

	inspections, err := h.inspectionService.ListAll(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, r, err, "Failed to retrieve inspections")
		return
	}
	if inspections == nil {
		inspections = []domain.Inspection{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"inspections": inspections,
		"total":       len(inspections),
	})
}

// Stats returns per-status inspection counts (admin only).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inspectionService.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "Failed to retrieve statistics")
		return
	}

	response.WriteJSON(w, http.StatusOK, stats)
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error, generic string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrInspectionNotFound):
		response.NotFound(w, "Inspection not found")
	default:
		logger.ErrorContext(r.Context(), generic, "error", err)
		response.InternalError(w, generic)
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 100
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
