package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/events"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/notifier"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/domain"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/repository"
)

const serviceName = "InspectionService"

// AppointmentsClient is the slice of the appointment service this service
// depends on.
type AppointmentsClient interface {
	ListConfirmed(ctx context.Context, authorization string) ([]domain.Appointment, error)
	PushInspectionStatus(ctx context.Context, authorization string, appointmentID uuid.UUID, status string) error
}

type InspectionService interface {
	// VehiclesForInspection merges remote confirmed appointments with local
	// inspection records. It degrades instead of failing: when the upstream
	// fetch errors out, the listing comes back empty with the error annotated.
	VehiclesForInspection(ctx context.Context, claims *auth.Claims, authorization string) (*domain.VehicleListing, error)
	// Submit persists the inspection locally, then pushes the derived status
	// to the appointment service in the background. The local write is
	// authoritative; push failure never surfaces to the caller.
	Submit(ctx context.Context, claims *auth.Claims, authorization string, req *domain.SubmitRequest) (*domain.Inspection, error)
	AssignedInspections(ctx context.Context, technicianID uuid.UUID) ([]domain.Inspection, error)
	ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Inspection, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]domain.Inspection, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type inspectionService struct {
	inspections  repository.InspectionRepository
	appointments AppointmentsClient
	eventBus     events.Publisher
	audit        *notifier.Notifier
	pushTimeout  time.Duration
}

func NewInspectionService(
	inspections repository.InspectionRepository,
	appointments AppointmentsClient,
	eventBus events.Publisher,
	audit *notifier.Notifier,
	pushTimeout time.Duration,
) InspectionService {
	if pushTimeout <= 0 {
		pushTimeout = 5 * time.Second
	}
	return &inspectionService{
		inspections:  inspections,
		appointments: appointments,
		eventBus:     eventBus,
		audit:        audit,
		pushTimeout:  pushTimeout,
	}
}

func (s *inspectionService) VehiclesForInspection(ctx context.Context, claims *auth.Claims, authorization string) (*domain.VehicleListing, error) {
	s.audit.Emit(ctx, serviceName, "user.view_vehicles", notifier.LevelInfo,
		fmt.Sprintf("user %s (role %s) viewed vehicle list", claims.Email, claims.Role))

	listing := &domain.VehicleListing{Vehicles: []domain.VehicleSummary{}}

	appointments, err := s.appointments.ListConfirmed(ctx, authorization)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch confirmed appointments", "error", err)
		listing.Error = err.Error()
		return listing, nil
	}

	ids := make([]uuid.UUID, len(appointments))
	for i := range appointments {
		ids[i] = appointments[i].ID
	}

	local, err := s.inspections.GetByAppointments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load inspections: %w", err)
	}

	for _, apt := range appointments {
		summary := domain.VehicleSummary{
			AppointmentID:   apt.ID,
			VehicleInfo:     apt.VehicleInfo,
			AppointmentDate: apt.AppointmentDate,
			AppointmentTime: formatAppointmentTime(apt.AppointmentDate),
			UserID:          apt.UserID,
			Status:          domain.StatusNotChecked,
		}

		if inspection, ok := local[apt.ID]; ok {
			summary.InspectionID = &inspection.ID
			summary.Status = inspection.FinalStatus
			summary.CanContinue = inspection.FinalStatus == domain.StatusInProgress
			results := inspection.Results
			summary.Results = &results
			summary.Notes = inspection.Notes
			inspectedAt := inspection.CreatedAt
			summary.InspectedAt = &inspectedAt
		} else {
			summary.CanStart = true
		}
		summary.StatusDisplay = domain.StatusDisplay(summary.Status)

		listing.Vehicles = append(listing.Vehicles, summary)
		listing.ByStatus.Add(summary.Status)
	}

	sort.Slice(listing.Vehicles, func(i, j int) bool {
		return listing.Vehicles[i].AppointmentDate < listing.Vehicles[j].AppointmentDate
	})
	listing.TotalCount = len(listing.Vehicles)

	return listing, nil
}

func (s *inspectionService) Submit(ctx context.Context, claims *auth.Claims, authorization string, req *domain.SubmitRequest) (*domain.Inspection, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inspection, err := s.inspections.Upsert(ctx, req.AppointmentID, claims.Sub,
		req.Results, req.FinalStatus, req.Notes)
	if err != nil {
		return nil, err
	}

	event := events.InspectionSubmittedEvent{
		InspectionID:  inspection.ID,
		AppointmentID: inspection.AppointmentID,
		TechnicianID:  inspection.TechnicianID,
		FinalStatus:   inspection.FinalStatus,
		SubmittedAt:   inspection.UpdatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.InspectionSubmitted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish inspection submitted event", "error", err, "inspection_id", inspection.ID)
	}

	s.audit.Emit(ctx, serviceName, "inspection.submitted", notifier.LevelInfo,
		fmt.Sprintf("technician %s submitted inspection for appointment %s with status %s",
			claims.Email, inspection.AppointmentID, inspection.FinalStatus))

	// The local record is committed; mirror the status onto the owning
	// service without blocking the response. The request context ends with
	// the response, so the push gets its own bounded one.
	go s.pushStatus(authorization, inspection.ID, inspection.AppointmentID, inspection.FinalStatus)

	return inspection, nil
}

func (s *inspectionService) pushStatus(authorization string, inspectionID, appointmentID uuid.UUID, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
	defer cancel()

	if err := s.appointments.PushInspectionStatus(ctx, authorization, appointmentID, status); err != nil {
		logger.Error("Failed to push inspection status to appointment service",
			"error", err, "appointment_id", appointmentID, "status", status)

		event := events.StatusPushFailedEvent{
			InspectionID:  inspectionID,
			AppointmentID: appointmentID,
			FinalStatus:   status,
			Reason:        err.Error(),
			FailedAt:      time.Now(),
		}
		if pubErr := s.eventBus.Publish(ctx, events.StatusPushFailed, event); pubErr != nil {
			logger.Error("Failed to publish status push failure", "error", pubErr)
		}

		s.audit.Emit(ctx, serviceName, "inspection.status_push_failed", notifier.LevelError,
			fmt.Sprintf("status push for appointment %s failed: %v", appointmentID, err))
	}
}

func (s *inspectionService) AssignedInspections(ctx context.Context, technicianID uuid.UUID) ([]domain.Inspection, error) {
	inspections, err := s.inspections.ListByTechnician(ctx, technicianID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned inspections: %w", err)
	}
	return inspections, nil
}

func (s *inspectionService) ByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Inspection, error) {
	inspection, err := s.inspections.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if inspection == nil {
		return nil, domain.ErrInspectionNotFound
	}
	return inspection, nil
}

func (s *inspectionService) ListAll(ctx context.Context, status string, limit, offset int) ([]domain.Inspection, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid status filter %q", domain.ErrInvalidInput, status)
	}
	inspections, err := s.inspections.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return inspections, nil
}

func (s *inspectionService) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.inspections.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// formatAppointmentTime renders the remote ISO timestamp for display; the raw
// value is kept alongside for clients that want to parse it themselves.
func formatAppointmentTime(raw string) string {
	if raw == "" {
		return "Not scheduled"
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return raw
}
