package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/srishtayal/nalum-sub003/services"
)

func TestVerifyToken(t *testing.T) {
	svc := services.NewTokenService("test-secret")

	t.Run("Roundtrip", func(t *testing.T) {
		token, err := svc.Sign("alice", "alumni", time.Hour)
		assert.NoError(t, err)

		claims, err := svc.Verify(token)
		assert.NoError(t, err)
		assert.Equal(t, "alice", claims.UserID)
		assert.Equal(t, "alumni", claims.Role)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := services.NewTokenService("different-secret")
		token, err := other.Sign("alice", "alumni", time.Hour)
		assert.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := svc.Sign("alice", "alumni", -time.Minute)
		assert.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("MissingUserID", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"role": "alumni",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		token, err := raw.SignedString([]byte("test-secret"))
		assert.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("RejectsUnsignedToken", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"user_id": "alice",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		token, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
		assert.NoError(t, err)

		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Verify("not.a.token")
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})
}
