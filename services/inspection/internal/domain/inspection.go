package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Final status of an inspection record.
const (
	StatusNotChecked            = "not_checked"
	StatusInProgress            = "in_progress"
	StatusPassed                = "passed"
	StatusFailed                = "failed"
	StatusPassedWithMinorIssues = "passed_with_minor_issues"
)

// Per-check outcomes.
const (
	CheckPass = "PASS"
	CheckFail = "FAIL"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInspectionNotFound = errors.New("inspection not found")
)

func ValidStatus(s string) bool {
	switch s {
	case StatusNotChecked, StatusInProgress, StatusPassed, StatusFailed, StatusPassedWithMinorIssues:
		return true
	}
	return false
}

// StatusDisplay maps a status to its human-readable label.
func StatusDisplay(status string) string {
	switch status {
	case StatusNotChecked:
		return "Not Checked Yet"
	case StatusInProgress:
		return "In Progress"
	case StatusPassed:
		return "Passed"
	case StatusFailed:
		return "Failed"
	case StatusPassedWithMinorIssues:
		return "Passed with Minor Issues"
	}
	return status
}

// CheckResults holds the named checks of one inspection. Every field is
// either PASS or FAIL.
type CheckResults struct {
	Brakes     string `json:"brakes"`
	Lights     string `json:"lights"`
	Tires      string `json:"tires"`
	Emissions  string `json:"emissions"`
	Windscreen string `json:"windscreen"`
	Seatbelts  string `json:"seatbelts"`
	Horn       string `json:"horn"`
	Wipers     string `json:"wipers"`
}

func (c *CheckResults) Validate() error {
	checks := map[string]string{
		"brakes":     c.Brakes,
		"lights":     c.Lights,
		"tires":      c.Tires,
		"emissions":  c.Emissions,
		"windscreen": c.Windscreen,
		"seatbelts":  c.Seatbelts,
		"horn":       c.Horn,
		"wipers":     c.Wipers,
	}
	for name, v := range checks {
		if v != CheckPass && v != CheckFail {
			return fmt.Errorf("%w: check %s must be PASS or FAIL", ErrInvalidInput, name)
		}
	}
	return nil
}

// Inspection is the locally-owned record. AppointmentID references state owned
// by the appointment service; at most one inspection exists per appointment.
type Inspection struct {
	ID            uuid.UUID    `json:"id"`
	AppointmentID uuid.UUID    `json:"appointment_id"`
	TechnicianID  uuid.UUID    `json:"technician_id"`
	Results       CheckResults `json:"results"`
	FinalStatus   string       `json:"final_status"`
	Notes         *string      `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type SubmitRequest struct {
	AppointmentID uuid.UUID    `json:"appointment_id"`
	Results       CheckResults `json:"results"`
	FinalStatus   string       `json:"final_status"`
	Notes         *string      `json:"notes,omitempty"`
}

func (r *SubmitRequest) Validate() error {
	if r.AppointmentID == uuid.Nil {
		return fmt.Errorf("%w: appointment_id is required", ErrInvalidInput)
	}
	if err := r.Results.Validate(); err != nil {
		return err
	}
	if !ValidStatus(r.FinalStatus) {
		return fmt.Errorf("%w: invalid final_status %q", ErrInvalidInput, r.FinalStatus)
	}
	return nil
}

// VehicleInfo is the subset of remote appointment data shown in listings.
type VehicleInfo struct {
	Type         string `json:"type"`
	Registration string `json:"registration"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
}

// Appointment is the remote record as served by the appointment service.
type Appointment struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	VehicleInfo     VehicleInfo `json:"vehicle_info"`
	AppointmentDate string      `json:"appointment_date"`
}

// VehicleSummary is one row of the merged appointment+inspection view.
type VehicleSummary struct {
	AppointmentID   uuid.UUID     `json:"appointment_id"`
	VehicleInfo     VehicleInfo   `json:"vehicle_info"`
	AppointmentDate string        `json:"appointment_date"`
	AppointmentTime string        `json:"appointment_time"`
	UserID          uuid.UUID     `json:"user_id"`
	InspectionID    *uuid.UUID    `json:"inspection_id"`
	Status          string        `json:"status"`
	StatusDisplay   string        `json:"status_display"`
	CanStart        bool          `json:"can_start"`
	CanContinue     bool          `json:"can_continue"`
	Results         *CheckResults `json:"results"`
	Notes           *string       `json:"notes"`
	InspectedAt     *time.Time    `json:"inspected_at,omitempty"`
}

// StatusCounts aggregates the view per final status.
type StatusCounts struct {
	NotChecked            int `json:"not_checked"`
	InProgress            int `json:"in_progress"`
	Passed                int `json:"passed"`
	Failed                int `json:"failed"`
	PassedWithMinorIssues int `json:"passed_with_minor_issues"`
}

func (c *StatusCounts) Add(status string) {
	switch status {
	case StatusNotChecked:
		c.NotChecked++
	case StatusInProgress:
		c.InProgress++
	case StatusPassed:
		c.Passed++
	case StatusFailed:
		c.Failed++
	case StatusPassedWithMinorIssues:
		c.PassedWithMinorIssues++
	}
}

// VehicleListing is the full merged view. Error is set when the upstream
// fetch failed and the listing degraded to empty.
type VehicleListing struct {
	Vehicles   []VehicleSummary `json:"vehicles"`
	TotalCount int              `json:"total_count"`
	ByStatus   StatusCounts     `json:"by_status"`
	Error      string           `json:"error,omitempty"`
}

// Stats is the admin-facing aggregate over local inspection records.
type Stats struct {
	TotalInspections int          `json:"total_inspections"`
	ByStatus         StatusCounts `json:"by_status"`
}
