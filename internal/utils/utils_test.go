package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParseJWT(t *testing.T) {
	token, exp, err := SignJWT("secret", "user-1", "client", 60)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "client", claims.Role)

	_, err = ParseJWT("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	claims := Claims{
		UserID: "user-1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseJWT("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "ahmed@example.com", NormalizeEmail("  Ahmed@Example.COM "))
	assert.Equal(t, "+252634000000", NormalizePhone(" +252 63-400 0000"))
	assert.Equal(t, []string{"plumber", "electrician"}, NormalizeSkills([]string{"Plumber", " plumber", "", "Electrician"}))
}
