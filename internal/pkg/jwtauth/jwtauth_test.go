package jwtauth_test

import (
	"testing"
	"time"

	"github.com/mealbook/recipes_api/internal/pkg/jwtauth"
	"github.com/mealbook/recipes_api/internal/recipes/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	u := models.User{ID: 42, Email: "user@example.com", IsStaff: true} //nolint:exhaustruct

	token, err := jwtauth.GetToken(u, time.Hour, "secret")
	require.NoError(t, err)

	claims, err := jwtauth.ValidateToken(token, "secret")
	require.NoError(t, err)

	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.True(t, claims.IsStaff)
}

func TestTokenWrongSecret(t *testing.T) {
	u := models.User{ID: 1} //nolint:exhaustruct

	token, err := jwtauth.GetToken(u, time.Hour, "secret")
	require.NoError(t, err)

	_, err = jwtauth.ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	u := models.User{ID: 1} //nolint:exhaustruct

	token, err := jwtauth.GetToken(u, -time.Minute, "secret")
	require.NoError(t, err)

	_, err = jwtauth.ValidateToken(token, "secret")
	assert.Error(t, err)
}
