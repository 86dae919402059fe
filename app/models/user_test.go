package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Anna", "anna@example.com", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_INACTIVE, user.Status, "new accounts start inactive until activation")
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("Anna", "not-an-email", "secret123")
	assert.Error(t, err)

	_, err = CreateUser("An", "anna@example.com", "secret123")
	assert.Error(t, err, "name below minimum length")

	_, err = CreateUser("Anna", "anna@example.com", "short")
	assert.Error(t, err, "password below minimum length")
}

func TestGenerateActivationToken(t *testing.T) {
	u := &User{}
	assert.NoError(t, u.GenerateActivationToken())
	assert.Len(t, u.ActivationToken, 32)
	assert.NotNil(t, u.ActivationSentAt)
}
