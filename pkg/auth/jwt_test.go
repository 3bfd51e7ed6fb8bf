package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/rbac"
)

const secret = "test-secret"

func TestRoundTrip(t *testing.T) {
	token, err := GenerateJWT("s1", rbac.RoleStudent, "t1", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, rbac.RoleStudent, claims.Role)
	assert.Equal(t, "t1", claims.TeamID)
}

func TestParseJWT_Rejects(t *testing.T) {
	expired, err := GenerateJWT("s1", rbac.RoleStudent, "t1", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	good, err := GenerateJWT("p1", rbac.RoleTeacher, "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(good, "other-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	unknownRole, err := GenerateJWT("x", "janitor", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(unknownRole, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidClaims)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractToken(r))
}
