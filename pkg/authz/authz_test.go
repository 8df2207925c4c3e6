package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/authz"
)

func claimsWithRole(role string) *auth.Claims {
	return &auth.Claims{Sub: uuid.New(), Email: role + "@example.com", Role: role}
}

func TestRequireRole_Matrix(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		wantErr bool
	}{
		{"customer denied admin gate", auth.RoleCustomer, []string{auth.RoleAdmin}, true},
		{"customer denied technician gate", auth.RoleCustomer, []string{auth.RoleTechnician}, true},
		{"customer denied combined gate", auth.RoleCustomer, []string{auth.RoleTechnician, auth.RoleAdmin}, true},
		{"technician passes technician gate", auth.RoleTechnician, []string{auth.RoleTechnician}, false},
		{"technician denied admin gate", auth.RoleTechnician, []string{auth.RoleAdmin}, true},
		{"admin passes admin gate", auth.RoleAdmin, []string{auth.RoleAdmin}, false},
		{"admin passes combined gate", auth.RoleAdmin, []string{auth.RoleTechnician, auth.RoleAdmin}, false},
		{"admin denied technician-only gate", auth.RoleAdmin, []string{auth.RoleTechnician}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.RequireRole(claimsWithRole(tt.role), tt.allowed...)
			if tt.wantErr && err != authz.ErrForbidden {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected nil, got %v", err)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	owner := uuid.New()
	claims := &auth.Claims{Sub: owner, Role: auth.RoleTechnician}

	if err := authz.RequireOwner(claims, owner); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}
	if err := authz.RequireOwner(claims, uuid.New()); err != authz.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequire_Middleware(t *testing.T) {
	authority := auth.NewAuthority("test-secret", time.Hour)

	var seen *auth.Claims
	handler := authz.Require(authority, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authz.ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	sub := uuid.New()
	adminToken, _ := authority.Issue(sub, "admin@example.com", auth.RoleAdmin)
	customerToken, _ := authority.Issue(uuid.New(), "cust@example.com", auth.RoleCustomer)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"malformed token", "Bearer nonsense", http.StatusUnauthorized},
		{"wrong role", "Bearer " + customerToken, http.StatusForbidden},
		{"admin passes", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/admin/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.Sub != sub {
					t.Fatalf("expected claims in context, got %+v", seen)
				}
			} else if seen != nil {
				t.Fatal("handler ran despite failed authorization")
			}
		})
	}
}

func TestRequire_ExpiredToken(t *testing.T) {
	expired := auth.NewAuthority("test-secret", -time.Minute)
	authority := auth.NewAuthority("test-secret", time.Hour)

	token, _ := expired.Issue(uuid.New(), "late@example.com", auth.RoleAdmin)

	handler := authz.Require(authority, auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an expired token")
	}))

	req := httptest.NewRequest("GET", "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
