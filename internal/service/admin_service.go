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
	"github.com/spec-kit/service-queue/internal/events"
	"github.com/spec-kit/service-queue/internal/repository"
	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

// AdminService manages user accounts and tenant companies. Administrative
// changes flow through the same fan-out as request events.
type AdminService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	dispatcher events.Dispatcher
	bcryptCost int
	now        func() time.Time
}

// AdminDependencies encapsulates collaborators for administration.
type AdminDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, deps AdminDependencies) *AdminService {
	svc := &AdminService{
		users:      deps.UserRepo,
		companies:  deps.CompanyRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        deps.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// UserCreateInput describes an administratively created account.
type UserCreateInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	CompanyCode *string
}

func requireSuperAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewForbidden("super admin role required")
	}
	return nil
}

// CreateUser provisions an account with any role. Customer roles require a
// company; agency roles must not carry one.
func (s *AdminService) CreateUser(ctx context.Context, actor domain.Actor, input UserCreateInput) (*domain.User, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	emailAddr := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || emailAddr == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role", "value": input.Role})
	}

	var companyID *string
	if role.IsAgentSide() {
		if input.CompanyCode != nil {
			return nil, apperrors.NewValidationError("agency roles are not company-scoped", map[string]any{"field": "company_code"})
		}
	} else {
		if input.CompanyCode == nil {
			return nil, apperrors.NewValidationError("customer roles require a company", map[string]any{"field": "company_code"})
		}
		company, err := s.companies.GetByCode(ctx, *input.CompanyCode)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("unknown company code", map[string]any{"field": "company_code"})
			}
			return nil, apperrors.MapError(err)
		}
		companyID = &company.ID
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    companyID,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishUserChange(ctx, actor, user, "created")
	return user, nil
}

// UpdateUser renames an account or moves it between companies.
func (s *AdminService) UpdateUser(ctx context.Context, actor domain.Actor, userID string, name *string, active *bool) (*domain.User, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	action := "updated"
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		user.Name = trimmed
	}
	if active != nil {
		user.Active = *active
		if !*active {
			action = "deactivated"
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishUserChange(ctx, actor, user, action)
	return user, nil
}

// CreateCompany provisions a tenant.
func (s *AdminService) CreateCompany(ctx context.Context, actor domain.Actor, name, code string) (*domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, apperrors.NewValidationError("name and code are required", nil)
	}
	if _, err := s.companies.GetByCode(ctx, code); err == nil {
		return nil, apperrors.NewConflict("company code already in use", map[string]any{"field": "code"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	company := &domain.Company{Name: name, Code: code, Active: true}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishCompanyChange(ctx, actor, company.ID, "created")
	return company, nil
}

// UpdateCompany renames or toggles a tenant.
func (s *AdminService) UpdateCompany(ctx context.Context, actor domain.Actor, companyID string, name *string, active *bool) (*domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	action := "updated"
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		company.Name = trimmed
	}
	if active != nil {
		company.Active = *active
		if !*active {
			action = "deactivated"
		}
	}

	if err := s.companies.Update(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishCompanyChange(ctx, actor, company.ID, action)
	return company, nil
}

// ListCompanies pages through tenants.
func (s *AdminService) ListCompanies(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	result, err := s.companies.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListAssignableAgents returns every active agent and agent manager, used to
// populate assignment pickers.
func (s *AdminService) ListAssignableAgents(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !actor.Role.IsAgentSide() {
		return nil, apperrors.NewForbidden("agency role required")
	}
	result, err := s.users.ListByRoles(ctx, domain.RoleAgent, domain.RoleAgentManager)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *AdminService) publishUserChange(ctx context.Context, actor domain.Actor, user *domain.User, action string) {
	s.publish(ctx, events.Event{
		Type:  events.EventUserChanged,
		Actor: actor,
		Payload: events.UserChangedPayload{
			TargetUserID: user.ID,
			Action:       action,
			Role:         user.Role,
		},
	})
}

func (s *AdminService) publishCompanyChange(ctx context.Context, actor domain.Actor, companyID, action string) {
	s.publish(ctx, events.Event{
		Type:  events.EventCompanyChanged,
		Actor: actor,
		Payload: events.CompanyChangedPayload{
			CompanyID: companyID,
			Action:    action,
		},
	})
}

func (s *AdminService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
