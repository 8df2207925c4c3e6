package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/domain"
	"github.com/roadworthy/inspection-platform/services/inspection/internal/service"
)

// ---------- Stubs ----------

type stubInspectionRepo struct {
	mu            sync.Mutex
	byAppointment map[uuid.UUID]*domain.Inspection
}

func newStubInspectionRepo() *stubInspectionRepo {
	return &stubInspectionRepo{byAppointment: make(map[uuid.UUID]*domain.Inspection)}
}

func (r *stubInspectionRepo) Upsert(_ context.Context, appointmentID, technicianID uuid.UUID, results domain.CheckResults, finalStatus string, notes *string) (*domain.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.byAppointment[appointmentID]; ok {
		existing.TechnicianID = technicianID
		existing.Results = results
		existing.FinalStatus = finalStatus
		existing.Notes = notes
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}

	i := &domain.Inspection{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		TechnicianID:  technicianID,
		Results:       results,
		FinalStatus:   finalStatus,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.byAppointment[appointmentID] = i
	cp := *i
	return &cp, nil
}

func (r *stubInspectionRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*domain.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byAppointment[appointmentID]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (r *stubInspectionRepo) GetByAppointments(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]*domain.Inspection)
	for _, id := range ids {
		if i, ok := r.byAppointment[id]; ok {
			cp := *i
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *stubInspectionRepo) ListByTechnician(_ context.Context, technicianID uuid.UUID, _ int) ([]domain.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Inspection
	for _, i := range r.byAppointment {
		if i.TechnicianID == technicianID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *stubInspectionRepo) List(_ context.Context, status string, _, _ int) ([]domain.Inspection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Inspection
	for _, i := range r.byAppointment {
		if status == "" || i.FinalStatus == status {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *stubInspectionRepo) CountByStatus(_ context.Context) (*domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats domain.Stats
	for _, i := range r.byAppointment {
		stats.TotalInspections++
		stats.ByStatus.Add(i.FinalStatus)
	}
	return &stats, nil
}

type stubAppointments struct {
	appointments []domain.Appointment
	listErr      error
	pushErr      error
	pushed       chan pushCall
}

type pushCall struct {
	appointmentID uuid.UUID
	status        string
}

func (c *stubAppointments) ListConfirmed(_ context.Context, _ string) ([]domain.Appointment, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.appointments, nil
}

func (c *stubAppointments) PushInspectionStatus(_ context.Context, _ string, appointmentID uuid.UUID, status string) error {
	if c.pushed != nil {
		c.pushed <- pushCall{appointmentID: appointmentID, status: status}
	}
	return c.pushErr
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) seen(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func allPass() domain.CheckResults {
	return domain.CheckResults{
		Brakes: "PASS", Lights: "PASS", Tires: "PASS", Emissions: "PASS",
		Windscreen: "PASS", Seatbelts: "PASS", Horn: "PASS", Wipers: "PASS",
	}
}

func technicianClaims() *auth.Claims {
	return &auth.Claims{Sub: uuid.New(), Email: "tech@example.com", Role: auth.RoleTechnician}
}

// ---------- Tests ----------

func TestVehiclesForInspection_MergedView(t *testing.T) {
	repo := newStubInspectionRepo()
	inspected := domain.Appointment{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		VehicleInfo:     domain.VehicleInfo{Registration: "AA-111-AA"},
		AppointmentDate: "2026-09-01T09:00:00",
	}
	fresh := domain.Appointment{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		VehicleInfo:     domain.VehicleInfo{Registration: "BB-222-BB"},
		AppointmentDate: "2026-09-02T09:00:00",
	}

	claims := technicianClaims()
	if _, err := repo.Upsert(context.Background(), inspected.ID, claims.Sub, allPass(), domain.StatusPassed, nil); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}

	upstream := &stubAppointments{appointments: []domain.Appointment{fresh, inspected}}
	svc := service.NewInspectionService(repo, upstream, &recordingPublisher{}, nil, time.Second)

	listing, err := svc.VehiclesForInspection(context.Background(), claims, "Bearer t")
	if err != nil {
		t.Fatalf("VehiclesForInspection returned error: %v", err)
	}

	if listing.TotalCount != 2 || len(listing.Vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %+v", listing)
	}
	// Sorted by appointment date.
	if listing.Vehicles[0].AppointmentID != inspected.ID {
		t.Fatalf("expected inspected appointment first, got %+v", listing.Vehicles[0])
	}

	first, second := listing.Vehicles[0], listing.Vehicles[1]
	if first.Status != domain.StatusPassed || first.InspectionID == nil || first.CanStart {
		t.Fatalf("unexpected inspected row: %+v", first)
	}
	if second.Status != domain.StatusNotChecked || second.InspectionID != nil || !second.CanStart {
		t.Fatalf("unexpected fresh row: %+v", second)
	}
	if listing.ByStatus.Passed != 1 || listing.ByStatus.NotChecked != 1 {
		t.Fatalf("unexpected counts: %+v", listing.ByStatus)
	}
	if listing.Error != "" {
		t.Fatalf("unexpected error annotation: %q", listing.Error)
	}
}

func TestVehiclesForInspection_DegradesOnUpstreamFailure(t *testing.T) {
	repo := newStubInspectionRepo()
	upstream := &stubAppointments{listErr: errors.New("appointment service returned status 503")}
	svc := service.NewInspectionService(repo, upstream, &recordingPublisher{}, nil, time.Second)

	listing, err := svc.VehiclesForInspection(context.Background(), technicianClaims(), "Bearer t")
	if err != nil {
		t.Fatalf("degraded view must not fail the request: %v", err)
	}
	if len(listing.Vehicles) != 0 || listing.TotalCount != 0 {
		t.Fatalf("expected empty view, got %+v", listing)
	}
	if listing.Error == "" {
		t.Fatal("expected error annotation on degraded view")
	}
	if listing.ByStatus != (domain.StatusCounts{}) {
		t.Fatalf("expected zero counts, got %+v", listing.ByStatus)
	}
}

func TestSubmit_PersistsThenPushes(t *testing.T) {
	repo := newStubInspectionRepo()
	upstream := &stubAppointments{pushed: make(chan pushCall, 1)}
	bus := &recordingPublisher{}
	svc := service.NewInspectionService(repo, upstream, bus, nil, time.Second)

	claims := technicianClaims()
	appointmentID := uuid.New()

	inspection, err := svc.Submit(context.Background(), claims, "Bearer t", &domain.SubmitRequest{
		AppointmentID: appointmentID,
		Results:       allPass(),
		FinalStatus:   domain.StatusPassed,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if inspection.TechnicianID != claims.Sub || inspection.FinalStatus != domain.StatusPassed {
		t.Fatalf("unexpected inspection: %+v", inspection)
	}

	select {
	case call := <-upstream.pushed:
		if call.appointmentID != appointmentID || call.status != domain.StatusPassed {
			t.Fatalf("unexpected push: %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("status push never attempted")
	}
}

func TestSubmit_PushFailureDoesNotSurface(t *testing.T) {
	repo := newStubInspectionRepo()
	upstream := &stubAppointments{
		pushed:  make(chan pushCall, 1),
		pushErr: errors.New("appointment service unreachable"),
	}
	bus := &recordingPublisher{}
	svc := service.NewInspectionService(repo, upstream, bus, nil, time.Second)

	appointmentID := uuid.New()
	inspection, err := svc.Submit(context.Background(), technicianClaims(), "Bearer t", &domain.SubmitRequest{
		AppointmentID: appointmentID,
		Results:       allPass(),
		FinalStatus:   domain.StatusPassed,
	})
	if err != nil {
		t.Fatalf("Submit must succeed despite push failure: %v", err)
	}

	<-upstream.pushed

	// The local record survives the downstream outage.
	stored, err := repo.GetByAppointment(context.Background(), appointmentID)
	if err != nil || stored == nil {
		t.Fatalf("local record missing after push failure: %v", err)
	}
	if stored.ID != inspection.ID || stored.FinalStatus != domain.StatusPassed {
		t.Fatalf("unexpected stored record: %+v", stored)
	}

	// Failure is reported on the event bus, eventually.
	deadline := time.After(2 * time.Second)
	for !bus.seen("inspection.status_push_failed") {
		select {
		case <-deadline:
			t.Fatal("status push failure never published")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmit_Idempotent(t *testing.T) {
	repo := newStubInspectionRepo()
	upstream := &stubAppointments{}
	svc := service.NewInspectionService(repo, upstream, &recordingPublisher{}, nil, time.Second)

	claims := technicianClaims()
	appointmentID := uuid.New()

	first, err := svc.Submit(context.Background(), claims, "Bearer t", &domain.SubmitRequest{
		AppointmentID: appointmentID,
		Results:       allPass(),
		FinalStatus:   domain.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	second, err := svc.Submit(context.Background(), claims, "Bearer t", &domain.SubmitRequest{
		AppointmentID: appointmentID,
		Results:       allPass(),
		FinalStatus:   domain.StatusPassed,
	})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("re-submission created a second record: %s vs %s", first.ID, second.ID)
	}
	if second.FinalStatus != domain.StatusPassed {
		t.Fatalf("re-submission did not converge: %+v", second)
	}
	if len(repo.byAppointment) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.byAppointment))
	}
}

func TestSubmit_InvalidInput(t *testing.T) {
	svc := service.NewInspectionService(newStubInspectionRepo(), &stubAppointments{}, &recordingPublisher{}, nil, time.Second)

	_, err := svc.Submit(context.Background(), technicianClaims(), "Bearer t", &domain.SubmitRequest{
		AppointmentID: uuid.New(),
		Results:       allPass(),
		FinalStatus:   "approved",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestByAppointment_NotFound(t *testing.T) {
	svc := service.NewInspectionService(newStubInspectionRepo(), &stubAppointments{}, &recordingPublisher{}, nil, time.Second)

	_, err := svc.ByAppointment(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrInspectionNotFound) {
		t.Fatalf("expected ErrInspectionNotFound, got %v", err)
	}
}

func TestListAll_RejectsUnknownStatusFilter(t *testing.T) {
	svc := service.NewInspectionService(newStubInspectionRepo(), &stubAppointments{}, &recordingPublisher{}, nil, time.Second)

	if _, err := svc.ListAll(context.Background(), "bogus", 10, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStats(t *testing.T) {
	repo := newStubInspectionRepo()
	claims := technicianClaims()
	ctx := context.Background()

	for _, status := range []string{domain.StatusPassed, domain.StatusPassed, domain.StatusFailed} {
		if _, err := repo.Upsert(ctx, uuid.New(), claims.Sub, allPass(), status, nil); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	svc := service.NewInspectionService(repo, &stubAppointments{}, &recordingPublisher{}, nil, time.Second)
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalInspections != 3 || stats.ByStatus.Passed != 2 || stats.ByStatus.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
