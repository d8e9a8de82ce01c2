package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_LengthBounds(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"below minimum", strings.Repeat("x", MinPasswordLength-1), ErrPasswordTooShort},
		{"at minimum", strings.Repeat("x", MinPasswordLength), nil},
		{"at maximum", strings.Repeat("x", MaxPasswordLength), nil},
		{"above maximum", strings.Repeat("x", MaxPasswordLength+1), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, bcrypt.MinCost)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
		})
	}
}

func TestHashPassword_DefaultCost(t *testing.T) {
	hash, err := HashPassword(testPassword, 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(testPassword, hash))
	assert.ErrorIs(t, CheckPassword("wrong-horse-battery", hash), ErrInvalidPassword)
	assert.ErrorIs(t, CheckPassword("", hash), ErrInvalidPassword)

	// A corrupt hash is a real error, not a mismatch
	err = CheckPassword(testPassword, "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPassword)
}

func TestGenerateAPIToken(t *testing.T) {
	plaintext, hash, err := GenerateAPIToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(plaintext), hash)
	assert.NotEqual(t, plaintext, hash)

	other, _, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other)
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)

	other, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}
