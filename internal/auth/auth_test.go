package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop-backend/internal/config"
	"teleshop-backend/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "teleshop-backend"
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())

	token, err := m.GenerateToken(&models.Staff{ID: 7, Username: "zainab", IsAdmin: true})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.StaffID)
	assert.Equal(t, "zainab", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "teleshop-backend", claims.Issuer)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager(testConfig())
	token, err := m.GenerateToken(&models.Staff{ID: 1, Username: "ali"})
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "different"
	_, err = NewJWTManager(other).ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestTOTPSetupAndVerify(t *testing.T) {
	setup, err := GenerateTOTP("zainab")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")

	// An arbitrary code almost never matches a fresh secret
	assert.False(t, VerifyTOTP("000000", setup.Secret))
}
