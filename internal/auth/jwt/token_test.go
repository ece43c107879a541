package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewManager(TokenConfig{Secret: []byte("test-secret")})
	user := User{ID: uuid.New(), DisplayName: "pat", IsTeacher: true}

	token, err := manager.GenerateToken(user)
	assert.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "pat", claims.DisplayName)
	assert.True(t, claims.IsTeacher)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	manager := NewManager(TokenConfig{Secret: []byte("test-secret")})
	token, err := manager.GenerateToken(User{ID: uuid.New()})
	assert.NoError(t, err)

	other := NewManager(TokenConfig{Secret: []byte("different")})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	manager := NewManager(TokenConfig{Secret: []byte("test-secret"), TTL: -time.Minute})
	token, err := manager.GenerateToken(User{ID: uuid.New()})
	assert.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewManager(TokenConfig{Secret: []byte("test-secret")})
	_, err := manager.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
