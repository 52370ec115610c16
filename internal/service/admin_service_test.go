package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/events"
)

type adminFixture struct {
	svc        *AdminService
	users      *mockUserRepo
	companies  *mockCompanyRepo
	dispatcher *recordingDispatcher
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:      &mockUserRepo{},
		companies:  &mockCompanyRepo{},
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewAdminService(testConfig(), AdminDependencies{
		UserRepo:    f.users,
		CompanyRepo: f.companies,
		Dispatcher:  f.dispatcher,
		Now:         fixedClock,
	})
	return f
}

func superAdminActor(userID string) domain.Actor {
	return domain.Actor{UserID: userID, Role: domain.RoleSuperAdmin}
}

func TestAdminCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("agency roles must not carry a company", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.CreateUser(ctx, superAdminActor("S1"), UserCreateInput{
			Name: "Alex", Email: "a@agency.test", Password: "pass1234",
			Role: "agent", CompanyCode: strPtr("ACME"),
		})
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("customer roles require a company", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.CreateUser(ctx, superAdminActor("S1"), UserCreateInput{
			Name: "Pat", Email: "p@acme.test", Password: "pass1234", Role: "customer",
		})
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("creates an agent and publishes the change", func(t *testing.T) {
		f := newAdminFixture()
		user, err := f.svc.CreateUser(ctx, superAdminActor("S1"), UserCreateInput{
			Name: "Alex", Email: "A@Agency.Test", Password: "pass1234", Role: "agent",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAgent, user.Role)
		assert.Equal(t, "a@agency.test", user.Email)
		assert.Nil(t, user.CompanyID)
		assert.True(t, user.Active)

		published := f.dispatcher.byType(events.EventUserChanged)
		require.Len(t, published, 1)
		payload := published[0].Payload.(events.UserChangedPayload)
		assert.Equal(t, "created", payload.Action)
	})

	t.Run("creates a customer resolved by company code", func(t *testing.T) {
		f := newAdminFixture()
		f.companies.GetByCodeFn = func(_ context.Context, code string) (*domain.Company, error) {
			assert.Equal(t, "ACME", code)
			return &domain.Company{ID: "C1", Code: "ACME", Active: true}, nil
		}
		user, err := f.svc.CreateUser(ctx, superAdminActor("S1"), UserCreateInput{
			Name: "Pat", Email: "p@acme.test", Password: "pass1234",
			Role: "customer_admin", CompanyCode: strPtr("ACME"),
		})
		require.NoError(t, err)
		require.NotNil(t, user.CompanyID)
		assert.Equal(t, "C1", *user.CompanyID)
	})

	t.Run("only super admins may provision accounts", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.CreateUser(ctx, managerActor("M1"), UserCreateInput{
			Name: "Alex", Email: "a@agency.test", Password: "pass1234", Role: "agent",
		})
		assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)
	})
}

func TestAdminUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivation is reported as such", func(t *testing.T) {
		f := newAdminFixture()
		f.users.GetByIDFn = userDirectory(&domain.User{ID: "U1", Name: "Pat", Role: domain.RoleCustomer, Active: true})

		inactive := false
		user, err := f.svc.UpdateUser(ctx, superAdminActor("S1"), "U1", nil, &inactive)
		require.NoError(t, err)
		assert.False(t, user.Active)

		published := f.dispatcher.byType(events.EventUserChanged)
		require.Len(t, published, 1)
		assert.Equal(t, "deactivated", published[0].Payload.(events.UserChangedPayload).Action)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		f := newAdminFixture()
		f.users.GetByIDFn = userDirectory(&domain.User{ID: "U1", Name: "Pat", Active: true})
		blank := "  "
		_, err := f.svc.UpdateUser(ctx, superAdminActor("S1"), "U1", &blank, nil)
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
		assert.Empty(t, f.users.updated)
	})
}

func TestAdminCompanies(t *testing.T) {
	ctx := context.Background()

	t.Run("code is uppercased and must be unique", func(t *testing.T) {
		f := newAdminFixture()
		company, err := f.svc.CreateCompany(ctx, superAdminActor("S1"), "Acme Insurance", "acme")
		require.NoError(t, err)
		assert.Equal(t, "ACME", company.Code)
		assert.True(t, company.Active)
		require.Len(t, f.dispatcher.byType(events.EventCompanyChanged), 1)

		f.companies.GetByCodeFn = func(context.Context, string) (*domain.Company, error) {
			return &domain.Company{ID: "C1", Code: "ACME"}, nil
		}
		_, err = f.svc.CreateCompany(ctx, superAdminActor("S1"), "Other", "ACME")
		assert.Equal(t, "CONFLICT", domainErr(t, err).Code)
	})

	t.Run("deactivating a company publishes the change", func(t *testing.T) {
		f := newAdminFixture()
		f.companies.GetByIDFn = func(context.Context, string) (*domain.Company, error) {
			return &domain.Company{ID: "C1", Name: "Acme", Code: "ACME", Active: true}, nil
		}
		inactive := false
		company, err := f.svc.UpdateCompany(ctx, superAdminActor("S1"), "C1", nil, &inactive)
		require.NoError(t, err)
		assert.False(t, company.Active)

		published := f.dispatcher.byType(events.EventCompanyChanged)
		require.Len(t, published, 1)
		assert.Equal(t, "deactivated", published[0].Payload.(events.CompanyChangedPayload).Action)
	})
}

func TestListAssignableAgents(t *testing.T) {
	ctx := context.Background()
	f := newAdminFixture()
	f.users.ListByRolesFn = func(_ context.Context, roles ...domain.Role) ([]domain.User, error) {
		assert.ElementsMatch(t, []domain.Role{domain.RoleAgent, domain.RoleAgentManager}, roles)
		return []domain.User{{ID: "A1", Role: domain.RoleAgent}}, nil
	}

	agents, err := f.svc.ListAssignableAgents(ctx, agentActor("A1"))
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	_, err = f.svc.ListAssignableAgents(ctx, customerActor("U1", "C1"))
	assert.Equal(t, "FORBIDDEN", domainErr(t, err).Code)
}
