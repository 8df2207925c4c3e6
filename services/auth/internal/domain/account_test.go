package domain

import (
	"errors"
	"testing"

	"github.com/roadworthy/inspection-platform/pkg/auth"
)

func TestRegisterRequest_Normalize(t *testing.T) {
	req := RegisterRequest{Email: "  Alice@Example.COM ", Password: "password123"}
	req.Normalize()

	if req.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", req.Email)
	}
	if req.Role != auth.RoleCustomer {
		t.Fatalf("expected default role customer, got %q", req.Role)
	}
}

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"valid customer", RegisterRequest{Email: "a@b.com", Password: "password123", Role: auth.RoleCustomer}, false},
		{"valid technician", RegisterRequest{Email: "a@b.com", Password: "password123", Role: auth.RoleTechnician}, false},
		{"missing email", RegisterRequest{Password: "password123", Role: auth.RoleCustomer}, true},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: "password123", Role: auth.RoleCustomer}, true},
		{"short password", RegisterRequest{Email: "a@b.com", Password: "short", Role: auth.RoleCustomer}, true},
		{"unknown role", RegisterRequest{Email: "a@b.com", Password: "password123", Role: "superuser"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("expected nil, got %v", err)
			}
		})
	}
}
