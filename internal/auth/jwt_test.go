package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "storeit")

	token, err := m.GenerateSessionToken("user-1", "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "storeit", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestVerifySessionTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", "storeit")
	verifier := NewJWTManager("secret-b", "storeit")

	token, err := issuer.GenerateSessionToken("user-1", "ada@example.com")
	require.NoError(t, err)

	_, err = verifier.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestVerifySessionTokenRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", "storeit")

	_, err := m.VerifySessionToken("not-a-token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractTokenFromHeader("abc.def.ghi")
	assert.Error(t, err)

	_, err = ExtractTokenFromHeader("")
	assert.Error(t, err)
}
