package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func allPass() CheckResults {
	return CheckResults{
		Brakes:     CheckPass,
		Lights:     CheckPass,
		Tires:      CheckPass,
		Emissions:  CheckPass,
		Windscreen: CheckPass,
		Seatbelts:  CheckPass,
		Horn:       CheckPass,
		Wipers:     CheckPass,
	}
}

func TestSubmitRequest_Validate(t *testing.T) {
	failedBrakes := allPass()
	failedBrakes.Brakes = CheckFail

	badCheck := allPass()
	badCheck.Horn = "MAYBE"

	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr bool
	}{
		{
			name: "all pass",
			req:  SubmitRequest{AppointmentID: uuid.New(), Results: allPass(), FinalStatus: StatusPassed},
		},
		{
			name: "failed check with failed status",
			req:  SubmitRequest{AppointmentID: uuid.New(), Results: failedBrakes, FinalStatus: StatusFailed},
		},
		{
			name:    "missing appointment id",
			req:     SubmitRequest{Results: allPass(), FinalStatus: StatusPassed},
			wantErr: true,
		},
		{
			name:    "invalid check value",
			req:     SubmitRequest{AppointmentID: uuid.New(), Results: badCheck, FinalStatus: StatusPassed},
			wantErr: true,
		},
		{
			name:    "empty checks",
			req:     SubmitRequest{AppointmentID: uuid.New(), FinalStatus: StatusPassed},
			wantErr: true,
		},
		{
			name:    "unknown final status",
			req:     SubmitRequest{AppointmentID: uuid.New(), Results: allPass(), FinalStatus: "approved"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusNotChecked, StatusInProgress, StatusPassed, StatusFailed, StatusPassedWithMinorIssues} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "PASSED", "done", "pass"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}

func TestStatusCounts_Add(t *testing.T) {
	var c StatusCounts
	c.Add(StatusPassed)
	c.Add(StatusPassed)
	c.Add(StatusFailed)
	c.Add(StatusNotChecked)
	c.Add("bogus")

	if c.Passed != 2 || c.Failed != 1 || c.NotChecked != 1 || c.InProgress != 0 || c.PassedWithMinorIssues != 0 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestStatusDisplay(t *testing.T) {
	if got := StatusDisplay(StatusPassedWithMinorIssues); got != "Passed with Minor Issues" {
		t.Fatalf("unexpected display: %q", got)
	}
	// Unknown statuses pass through untouched.
	if got := StatusDisplay("weird"); got != "weird" {
		t.Fatalf("unexpected display: %q", got)
	}
}
