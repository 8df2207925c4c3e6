package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadworthy/inspection-platform/services/inspection/internal/domain"
)

type InspectionRepository interface {
	// Upsert persists an inspection keyed by appointment id. A re-submission
	// for the same appointment replaces the previous results instead of
	// creating a second record.
	Upsert(ctx context.Context, appointmentID, technicianID uuid.UUID, results domain.CheckResults, finalStatus string, notes *string) (*domain.Inspection, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Inspection, error)
	GetByAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*domain.Inspection, error)
	ListByTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]domain.Inspection, error)
	List(ctx context.Context, status string, limit, offset int) ([]domain.Inspection, error)
	CountByStatus(ctx context.Context) (*domain.Stats, error)
}

type inspectionRepository struct {
	pool *pgxpool.Pool
}

func NewInspectionRepository(pool *pgxpool.Pool) InspectionRepository {
	return &inspectionRepository{pool: pool}
}

const inspectionCols = "id, appointment_id, technician_id, results, final_status, notes, created_at, updated_at"

func scanInspection(row pgx.Row) (*domain.Inspection, error) {
	var i domain.Inspection
	var rawResults []byte

	err := row.Scan(&i.ID, &i.AppointmentID, &i.TechnicianID, &rawResults,
		&i.FinalStatus, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawResults, &i.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &i, nil
}

func (r *inspectionRepository) Upsert(ctx context.Context, appointmentID, technicianID uuid.UUID, results domain.CheckResults, finalStatus string, notes *string) (*domain.Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rawResults, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO inspections (appointment_id, technician_id, results, final_status, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (appointment_id) DO UPDATE SET
			technician_id = EXCLUDED.technician_id,
			results = EXCLUDED.results,
			final_status = EXCLUDED.final_status,
			notes = EXCLUDED.notes,
			updated_at = now()
		RETURNING ` + inspectionCols

	inspection, err := scanInspection(r.pool.QueryRow(ctx, query,
		appointmentID, technicianID, rawResults, finalStatus, notes))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert inspection: %w", err)
	}
	return inspection, nil
}

func (r *inspectionRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `SELECT ` + inspectionCols + ` FROM inspections WHERE appointment_id = $1`

	inspection, err := scanInspection(r.pool.QueryRow(ctx, query, appointmentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return inspection, nil
}

// GetByAppointments loads the local records for a set of remote appointment
// ids in one query, for the merged listing.
func (r *inspectionRepository) GetByAppointments(ctx context.Context, appointmentIDs []uuid.UUID) (map[uuid.UUID]*domain.Inspection, error) {
	byAppointment := make(map[uuid.UUID]*domain.Inspection, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return byAppointment, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	query := `SELECT ` + inspectionCols + ` FROM inspections WHERE appointment_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, appointmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		byAppointment[inspection.AppointmentID] = inspection
	}
	return byAppointment, rows.Err()
}

func (r *inspectionRepository) ListByTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]domain.Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `SELECT ` + inspectionCols + ` FROM inspections
		WHERE technician_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, technicianID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	return collectInspections(rows)
}

func (r *inspectionRepository) List(ctx context.Context, status string, limit, offset int) ([]domain.Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var rows pgx.Rows
	var err error
	if status != "" {
		query := `SELECT ` + inspectionCols + ` FROM inspections
			WHERE final_status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.pool.Query(ctx, query, status, limit, offset)
	} else {
		query := `SELECT ` + inspectionCols + ` FROM inspections
			ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.pool.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	return collectInspections(rows)
}

func (r *inspectionRepository) CountByStatus(ctx context.Context) (*domain.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT final_status, COUNT(*) FROM inspections GROUP BY final_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count inspections: %w", err)
	}
	defer rows.Close()

	var stats domain.Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		stats.TotalInspections += count
		switch status {
		case domain.StatusNotChecked:
			stats.ByStatus.NotChecked = count
		case domain.StatusInProgress:
			stats.ByStatus.InProgress = count
		case domain.StatusPassed:
			stats.ByStatus.Passed = count
		case domain.StatusFailed:
			stats.ByStatus.Failed = count
		case domain.StatusPassedWithMinorIssues:
			stats.ByStatus.PassedWithMinorIssues = count
		}
	}
	return &stats, rows.Err()
}

func collectInspections(rows pgx.Rows) ([]domain.Inspection, error) {
	var inspections []domain.Inspection
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, *inspection)
	}
	return inspections, rows.Err()
}
