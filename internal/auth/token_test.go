package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/auth"
)

func testConfig() auth.Config {
	return auth.Config{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.stackpilot.dev",
		Audience:   "stackpilot-api",
	}
}

func TestService_IssueAndValidateAccessToken(t *testing.T) {
	svc := auth.NewService(testConfig())

	token, expiresAt, err := svc.IssueAccessToken("usr_test123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr_test123", claims.UserID)
	assert.Equal(t, "usr_test123", claims.Subject)
	assert.Equal(t, "https://api.stackpilot.dev", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestService_InvalidToken(t *testing.T) {
	svc := auth.NewService(testConfig())

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestService_WrongSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.SigningKey = "key-one"
	svc1 := auth.NewService(cfg)

	token, _, err := svc1.IssueAccessToken("usr_test123")
	require.NoError(t, err)

	cfg.SigningKey = "key-two"
	svc2 := auth.NewService(cfg)

	_, err = svc2.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestService_WrongIssuer(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "issuer-one"
	svc1 := auth.NewService(cfg)

	token, _, err := svc1.IssueAccessToken("usr_test123")
	require.NoError(t, err)

	cfg.Issuer = "issuer-two"
	svc2 := auth.NewService(cfg)

	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestService_WrongAudience(t *testing.T) {
	cfg := testConfig()
	cfg.Audience = "audience-one"
	svc1 := auth.NewService(cfg)

	token, _, err := svc1.IssueAccessToken("usr_test123")
	require.NoError(t, err)

	cfg.Audience = "audience-two"
	svc2 := auth.NewService(cfg)

	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestService_TokenIDsAreUnique(t *testing.T) {
	svc := auth.NewService(testConfig())

	token1, _, err := svc.IssueAccessToken("usr_test123")
	require.NoError(t, err)
	token2, _, err := svc.IssueAccessToken("usr_test123")
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)
}
