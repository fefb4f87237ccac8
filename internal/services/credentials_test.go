package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptScheme(t *testing.T) {
	scheme, err := NewCredentialScheme(SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, SchemeBcrypt, scheme.Name())

	stored, err := scheme.Derive("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", stored)
	assert.True(t, scheme.Verify(stored, "hunter2"))
	assert.False(t, scheme.Verify(stored, "hunter3"))
	assert.False(t, scheme.Verify("not-a-hash", "hunter2"))
}

func TestBcryptSchemeLongPasswords(t *testing.T) {
	scheme, err := NewCredentialScheme(SchemeBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	long := strings.Repeat("p", 80)
	stored, err := scheme.Derive(long)
	require.NoError(t, err)
	assert.True(t, scheme.Verify(stored, long))

	// passwords sharing the first 72 bytes stay distinct
	assert.False(t, scheme.Verify(stored, long[:72]))
	assert.False(t, scheme.Verify(stored, long+"q"))
}

func TestBcryptSchemeDefaults(t *testing.T) {
	scheme, err := NewCredentialScheme("", 0)
	require.NoError(t, err)
	assert.Equal(t, SchemeBcrypt, scheme.Name())

	_, err = NewCredentialScheme(SchemeBcrypt, bcrypt.MaxCost+1)
	assert.Error(t, err)
}

func TestTokenScheme(t *testing.T) {
	scheme, err := NewCredentialScheme(SchemeToken, 0)
	require.NoError(t, err)

	first, err := scheme.Derive("hunter2")
	require.NoError(t, err)
	second, err := scheme.Derive("hunter2")
	require.NoError(t, err)

	assert.Len(t, first, 2*tokenBytes)
	assert.NotEqual(t, first, second)
	assert.False(t, scheme.Verify(first, "hunter2"))
	assert.True(t, scheme.Verify(first, first))
}

func TestUnknownScheme(t *testing.T) {
	_, err := NewCredentialScheme("rot13", 0)
	assert.Error(t, err)
}
