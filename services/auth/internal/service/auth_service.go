package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/events"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/notifier"
	"github.com/roadworthy/inspection-platform/services/auth/internal/domain"
	"github.com/roadworthy/inspection-platform/services/auth/internal/repository"
)

const serviceName = "AuthService"

type AuthService interface {
	// Register creates a customer account from the public path. The requested
	// role is ignored by construction: escalation at creation time is not a
	// validation concern but a structural one.
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	CreateTechnician(ctx context.Context, actor *auth.Claims, req *domain.RegisterRequest) (*domain.Account, error)
	UpdateRole(ctx context.Context, actor *auth.Claims, id uuid.UUID, role string) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	MarkVerified(ctx context.Context, email string) error
}

type authService struct {
	accounts  repository.AccountRepository
	authority *auth.Authority
	eventBus  events.Publisher
	audit     *notifier.Notifier
}

func NewAuthService(
	accounts repository.AccountRepository,
	authority *auth.Authority,
	eventBus events.Publisher,
	audit *notifier.Notifier,
) AuthService {
	return &authService{
		accounts:  accounts,
		authority: authority,
		eventBus:  eventBus,
		audit:     audit,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Account, error) {
	account, err := s.create(ctx, req, auth.RoleCustomer)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, serviceName, "user.registered", notifier.LevelInfo,
		fmt.Sprintf("account %s registered as customer", account.Email))

	return account, nil
}

func (s *authService) CreateTechnician(ctx context.Context, actor *auth.Claims, req *domain.RegisterRequest) (*domain.Account, error) {
	account, err := s.create(ctx, req, auth.RoleTechnician)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, serviceName, "admin.create_technician", notifier.LevelInfo,
		fmt.Sprintf("admin %s created technician account %s", actor.Email, account.Email))

	return account, nil
}

// create is the single account creation path; the role is decided by the
// caller inside this package, never by request payloads.
func (s *authService) create(ctx context.Context, req *domain.RegisterRequest, role string) (*domain.Account, error) {
	req.Normalize()
	req.Role = role
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accounts.Create(ctx, req.Email, hash, role)
	if err != nil {
		return nil, err
	}

	event := events.AccountRegisteredEvent{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: account.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.AccountRegistered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish account registered event", "error", err, "account_id", account.ID)
	}

	return account, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		// Same error as a wrong password so callers cannot enumerate emails.
		s.audit.Emit(ctx, serviceName, "login.failed", notifier.LevelWarning,
			fmt.Sprintf("login attempt for unknown account %s", req.Email))
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.audit.Emit(ctx, serviceName, "login.failed", notifier.LevelWarning,
			fmt.Sprintf("failed password for account %s", req.Email))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.authority.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.audit.Emit(ctx, serviceName, "login.success", notifier.LevelInfo,
		fmt.Sprintf("account %s (role %s) logged in", account.Email, account.Role))

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        account.ToInfo(),
	}, nil
}

func (s *authService) UpdateRole(ctx context.Context, actor *auth.Claims, id uuid.UUID, role string) (*domain.Account, error) {
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrInvalidInput)
	}

	existing, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing == nil {
		return nil, domain.ErrAccountNotFound
	}

	oldRole := existing.Role
	updated, err := s.accounts.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrAccountNotFound
	}

	event := events.AccountRoleChangedEvent{
		AccountID: updated.ID,
		Email:     updated.Email,
		OldRole:   oldRole,
		NewRole:   updated.Role,
		ChangedBy: actor.Sub,
		ChangedAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.AccountRoleChanged, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish role changed event", "error", err, "account_id", updated.ID)
	}

	s.audit.Emit(ctx, serviceName, "admin.change_role", notifier.LevelInfo,
		fmt.Sprintf("admin %s changed %s role from %s to %s", actor.Email, updated.Email, oldRole, updated.Role))

	return updated, nil
}

func (s *authService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *authService) MarkVerified(ctx context.Context, email string) error {
	if err := s.accounts.MarkVerified(ctx, email); err != nil {
		return err
	}

	s.audit.Emit(ctx, serviceName, "email.verified", notifier.LevelInfo,
		fmt.Sprintf("email verified for %s", email))

	return nil
}
