package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-queue/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	companyID := "C1"
	user := &domain.User{ID: "U1", Role: domain.RoleCustomer, CompanyID: &companyID}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.UserID)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, "C1", *claims.CompanyID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken(&domain.User{ID: "U1", Role: domain.RoleAgent})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2pass", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2pass", hash)

	assert.NoError(t, ComparePassword(hash, "hunter2pass"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}
