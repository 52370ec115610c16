package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-queue/internal/auth"
	"github.com/spec-kit/service-queue/internal/config"
	"github.com/spec-kit/service-queue/internal/domain"
	"github.com/spec-kit/service-queue/internal/email"
	"github.com/spec-kit/service-queue/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4, // minimal cost keeps the suite fast
		},
	}
}

type authFixture struct {
	svc       *AuthService
	users     *mockUserRepo
	companies *mockCompanyRepo
	resets    *mockResetRepo
	mailer    *recordingMailer
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:     &mockUserRepo{},
		companies: &mockCompanyRepo{},
		resets:    &mockResetRepo{},
		mailer:    &recordingMailer{},
	}
	f.svc = NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          f.users,
		CompanyRepo:       f.companies,
		PasswordResetRepo: f.resets,
		Mailer:            f.mailer,
	})
	return f
}

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	return hash
}

func TestRegisterCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a customer bound to the company code", func(t *testing.T) {
		f := newAuthFixture()
		f.companies.GetByCodeFn = func(_ context.Context, code string) (*domain.Company, error) {
			assert.Equal(t, "ACME", code)
			return &domain.Company{ID: "C1", Name: "Acme", Code: "ACME", Active: true}, nil
		}

		result, err := f.svc.RegisterCustomer(ctx, "Pat", "Pat@Acme.Test", "hunter2pass", "ACME")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.True(t, result.ExpiresAt.After(time.Now()))
		assert.Equal(t, domain.RoleCustomer, result.User.Role)
		assert.Equal(t, "pat@acme.test", result.User.Email)
		require.NotNil(t, result.User.CompanyID)
		assert.Equal(t, "C1", *result.User.CompanyID)
		assert.True(t, result.User.Active)
		assert.NotEqual(t, "hunter2pass", result.User.PasswordHash)
	})

	t.Run("unknown company code is a validation error", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.RegisterCustomer(ctx, "Pat", "pat@acme.test", "hunter2pass", "NOPE")
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("inactive company is rejected", func(t *testing.T) {
		f := newAuthFixture()
		f.companies.GetByCodeFn = func(context.Context, string) (*domain.Company, error) {
			return &domain.Company{ID: "C1", Code: "ACME", Active: false}, nil
		}
		_, err := f.svc.RegisterCustomer(ctx, "Pat", "pat@acme.test", "hunter2pass", "ACME")
		assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f := newAuthFixture()
		f.companies.GetByCodeFn = func(context.Context, string) (*domain.Company, error) {
			return &domain.Company{ID: "C1", Code: "ACME", Active: true}, nil
		}
		f.users.GetByEmailFn = func(context.Context, string) (*domain.User, error) {
			return &domain.User{ID: "U1"}, nil
		}
		_, err := f.svc.RegisterCustomer(ctx, "Pat", "pat@acme.test", "hunter2pass", "ACME")
		assert.Equal(t, "CONFLICT", domainErr(t, err).Code)
		assert.Empty(t, f.users.created)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	account := func(t *testing.T) *domain.User {
		return &domain.User{
			ID:           "U1",
			Name:         "Pat",
			Email:        "pat@acme.test",
			PasswordHash: hashedPassword(t, "hunter2pass"),
			Role:         domain.RoleCustomer,
			Active:       true,
		}
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		f := newAuthFixture()
		user := account(t)
		f.users.GetByEmailFn = func(_ context.Context, email string) (*domain.User, error) {
			assert.Equal(t, "pat@acme.test", email)
			return user, nil
		}

		result, err := f.svc.Login(ctx, "  PAT@acme.test ", "hunter2pass")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)

		claims, err := f.svc.TokenManager().ParseToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "U1", claims.UserID)
		assert.Equal(t, domain.RoleCustomer, claims.Role)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		f := newAuthFixture()
		user := account(t)
		f.users.GetByEmailFn = func(context.Context, string) (*domain.User, error) { return user, nil }
		_, err := f.svc.Login(ctx, "pat@acme.test", "wrong")
		assert.Equal(t, "UNAUTHORIZED", domainErr(t, err).Code)
	})

	t.Run("unknown account is unauthorized, not not-found", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.Login(ctx, "nobody@acme.test", "hunter2pass")
		assert.Equal(t, "UNAUTHORIZED", domainErr(t, err).Code)
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		f := newAuthFixture()
		user := account(t)
		user.Active = false
		f.users.GetByEmailFn = func(context.Context, string) (*domain.User, error) { return user, nil }
		_, err := f.svc.Login(ctx, "pat@acme.test", "hunter2pass")
		de := domainErr(t, err)
		assert.Equal(t, "UNAUTHORIZED", de.Code)
		assert.Equal(t, "account deactivated", de.Message)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("requires the current password", func(t *testing.T) {
		f := newAuthFixture()
		user := &domain.User{ID: "U1", PasswordHash: hashedPassword(t, "oldpass"), Active: true}
		f.users.GetByIDFn = userDirectory(user)

		err := f.svc.ChangePassword(ctx, customerActor("U1", "C1"), "wrong", "newpass")
		assert.Equal(t, "UNAUTHORIZED", domainErr(t, err).Code)
		assert.Empty(t, f.users.updated)

		require.NoError(t, f.svc.ChangePassword(ctx, customerActor("U1", "C1"), "oldpass", "newpass"))
		require.Len(t, f.users.updated, 1)
		assert.NoError(t, auth.ComparePassword(f.users.updated[0].PasswordHash, "newpass"))
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		f := newAuthFixture()
		require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@acme.test"))
		assert.Empty(t, f.resets.created)
		assert.Empty(t, f.mailer.sent())
	})

	t.Run("known email gets a mailed token", func(t *testing.T) {
		f := newAuthFixture()
		f.users.GetByEmailFn = func(context.Context, string) (*domain.User, error) {
			return &domain.User{ID: "U1", Name: "Pat", Email: "pat@acme.test", Role: domain.RoleCustomer, Active: true}, nil
		}

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "pat@acme.test"))
		require.Len(t, f.resets.created, 1)
		token := f.resets.created[0]
		assert.NotEmpty(t, token.Token)
		assert.True(t, token.ExpiresAt.After(time.Now()))

		messages := f.mailer.sent()
		require.Len(t, messages, 1)
		assert.Equal(t, email.TemplatePasswordReset, messages[0].Template)
		assert.Equal(t, token.Token, messages[0].Data.ResetToken)
	})

	t.Run("confirm consumes the token once", func(t *testing.T) {
		f := newAuthFixture()
		user := &domain.User{ID: "U1", PasswordHash: hashedPassword(t, "oldpass"), Active: true}
		f.users.GetByIDFn = userDirectory(user)
		token := &repository.PasswordResetToken{
			ID:        "T1",
			UserID:    "U1",
			Token:     "reset-token",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		f.resets.GetByTokenFn = func(context.Context, string) (*repository.PasswordResetToken, error) { return token, nil }

		require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "reset-token", "newpass"))
		require.Len(t, f.users.updated, 1)
		assert.NoError(t, auth.ComparePassword(f.users.updated[0].PasswordHash, "newpass"))
		assert.Equal(t, []string{"T1"}, f.resets.used)
	})

	t.Run("expired or used tokens are rejected", func(t *testing.T) {
		f := newAuthFixture()
		used := time.Now().Add(-time.Minute)
		for _, token := range []*repository.PasswordResetToken{
			{ID: "T1", UserID: "U1", Token: "t", ExpiresAt: time.Now().Add(-time.Hour)},
			{ID: "T2", UserID: "U1", Token: "t", ExpiresAt: time.Now().Add(time.Hour), UsedAt: &used},
		} {
			tok := token
			f.resets.GetByTokenFn = func(context.Context, string) (*repository.PasswordResetToken, error) { return tok, nil }
			err := f.svc.ConfirmPasswordReset(ctx, "t", "newpass")
			assert.Equal(t, "VALIDATION_FAILED", domainErr(t, err).Code)
		}
		assert.Empty(t, f.users.updated)
	})
}
