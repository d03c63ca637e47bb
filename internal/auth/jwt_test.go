package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(42, models.RoleAdmin, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)

	p := PrincipalFromClaims(claims)
	assert.True(t, p.IsAdmin())
}

func TestValidateJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT(7, models.RoleClient, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(7, models.RoleClient, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, "secret")
	assert.Error(t, err)

	anonymous, err := GenerateJWT(0, models.RoleClient, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(anonymous, "secret")
	assert.Error(t, err)

	var nobody *Principal
	assert.False(t, nobody.IsAdmin())
	assert.False(t, (&Principal{UserID: 7, Role: models.RoleClient}).IsAdmin())
}
