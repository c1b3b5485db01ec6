package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	original := readPassword
	readPassword = func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	t.Cleanup(func() { readPassword = original })
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))

	_, err = hashPassword("short")
	assert.ErrorContains(t, err, "at least 8 characters")
}

func TestHashPasswordCommandRejectsMismatch(t *testing.T) {
	stubPasswords(t, "correct horse", "battery staple")
	err := adminHashPasswordCmd.RunE(adminHashPasswordCmd, nil)
	assert.EqualError(t, err, "passwords do not match")
}

func TestHashPasswordCommandPropagatesReadErrors(t *testing.T) {
	stubPasswords(t, "correct horse")
	err := adminHashPasswordCmd.RunE(adminHashPasswordCmd, nil)
	assert.ErrorContains(t, err, "no more input")
}

func TestHashPasswordCommandAccepts(t *testing.T) {
	stubPasswords(t, "correct horse", "correct horse")
	assert.NoError(t, adminHashPasswordCmd.RunE(adminHashPasswordCmd, nil))
}
