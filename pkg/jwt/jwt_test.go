package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/NotSleepp/possbien-sub001/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

var identity = pkgjwt.Identity{UserID: "u-1", CompanyID: "c-1", Role: "supervisor"}

func TestGenerateAndParse(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, identity, "possbien-test", 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	got, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, identity, "possbien-test", -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, identity, "possbien-test", 60)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", identity, "x", 1)
	assert.Error(t, err)
	_, err = pkgjwt.Parse("", "abc")
	assert.Error(t, err)
}
