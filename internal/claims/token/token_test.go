package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolesync/internal/claims"
)

var issuer = NewIssuer("test-signing-key", "test-issuer")

func Test_IssueAndParse(t *testing.T) {
	tok, err := issuer.Issue("abc123", claims.ClaimSet{"role": "admin", "tier": "gold"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	sub, custom, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc123", sub)
	assert.Equal(t, claims.ClaimSet{"role": "admin", "tier": "gold"}, custom)
}

func Test_Issue_RejectsReservedClaims(t *testing.T) {
	_, err := issuer.Issue("abc123", claims.ClaimSet{"sub": "someone-else"}, time.Hour)
	require.ErrorIs(t, err, claims.ErrInvalidClaims)
}

func Test_Issue_RequiresSubject(t *testing.T) {
	_, err := issuer.Issue("", claims.ClaimSet{"role": "guest"}, time.Hour)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func Test_Parse_ExpiredToken(t *testing.T) {
	tok, err := issuer.Issue("abc123", claims.ClaimSet{"role": "guest"}, -time.Hour)
	require.NoError(t, err)

	_, _, err = issuer.Parse(tok)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func Test_Parse_WrongKeyOrIssuer(t *testing.T) {
	tok, err := issuer.Issue("abc123", claims.ClaimSet{"role": "guest"}, time.Hour)
	require.NoError(t, err)

	_, _, err = NewIssuer("other-key", "test-issuer").Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = NewIssuer("test-signing-key", "other-issuer").Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = issuer.Parse("invalid-token-string")
	require.ErrorIs(t, err, ErrInvalidToken)
}
