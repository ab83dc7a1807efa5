package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
)

func TestTokenManager_AccessTokenRoundTrip(t *testing.T) {
	tokens := testTokenManager()
	user := &models.User{ID: uuid.New(), Email: "vendor@example.com", Role: models.RoleVendor}

	pair, _, _, err := tokens.GeneratePair(user)
	require.NoError(t, err)

	userID, role, err := tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleVendor, role)
}

func TestTokenManager_RefreshNotValidAsAccess(t *testing.T) {
	tokens := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleClient}

	pair, _, _, err := tokens.GeneratePair(user)
	require.NoError(t, err)

	_, _, err = tokens.ParseAccess(pair.RefreshToken)
	assert.Error(t, err)
}

func TestTokenManager_ExpiredAccessRejected(t *testing.T) {
	tokens := NewTokenManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleClient}

	pair, _, _, err := tokens.GeneratePair(user)
	require.NoError(t, err)

	_, _, err = tokens.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}
