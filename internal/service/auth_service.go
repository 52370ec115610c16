package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-queue/internal/auth"
	"github.com/spec-kit/service-queue/internal/config"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/repository"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// AuthService coordinates registration, login and password flows for every
// principal role.
type AuthService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	mailer     email.Mailer
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	CompanyRepo       repository.CompanyRepository
	PasswordResetRepo repository.PasswordResetRepository
	Mailer            email.Mailer
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		companies:  deps.CompanyRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		mailer:     deps.Mailer,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterCustomer creates a customer account attached to a company,
// identified by its code.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, emailAddr, password, companyCode string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if name == "" || emailAddr == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	company, err := s.companies.GetByCode(ctx, companyCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown company code", map[string]any{"field": "company_code"})
		}
		return nil, apperrors.MapError(err)
	}
	if !company.Active {
		return nil, apperrors.NewValidationError("company is inactive", map[string]any{"field": "company_code"})
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CompanyID:    &company.ID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	return s.issueToken(user)
}

// Login authenticates any role by email and password.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password is required", map[string]any{"field": "new_password"})
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RequestPasswordReset creates a reset token and mails it. An unknown email
// is reported as success so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}

	if s.mailer != nil {
		userType := email.UserTypeCustomer
		if user.Role.IsAgentSide() {
			userType = email.UserTypeAgent
		}
		s.mailer.Enqueue(email.Message{
			To:       user.Email,
			Template: email.TemplatePasswordReset,
			Data: email.TemplateData{
				RecipientName: user.Name,
				UserType:      userType,
				ResetToken:    token.Token,
			},
		})
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and stores the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewValidationError("new password is required", map[string]any{"field": "new_password"})
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("invalid reset token", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
