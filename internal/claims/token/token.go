// Package token mints and verifies HS256 tokens carrying a user's custom claim
// set, the way the authentication service embeds them at sign-in.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rolesync/internal/claims"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// registered claim names are owned by the issuer and stripped from parsed sets.
var registered = []string{"sub", "iss", "iat", "exp", "nbf", "jti", "aud"}

// Issuer handles token creation and validation.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey, issuer string) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs a token for userID carrying custom. Custom claims that collide
// with registered names are rejected.
func (i *Issuer) Issue(userID string, custom claims.ClaimSet, expiresIn time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if err := claims.Validate(custom); err != nil {
		return "", err
	}

	now := time.Now()
	mc := jwt.MapClaims{}
	for k, v := range custom {
		mc[k] = v
	}
	mc["sub"] = userID
	mc["iss"] = i.issuer
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(expiresIn))
	mc["jti"] = uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns its subject and custom claims.
func (i *Issuer) Parse(tokenString string) (string, claims.ClaimSet, error) {
	mc := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, mc, func(*jwt.Token) (any, error) {
		return i.signingKey, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", nil, ErrExpiredToken
		}
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", nil, ErrInvalidToken
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return "", nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	custom := claims.ClaimSet{}
	for k, v := range mc {
		custom[k] = v
	}
	for _, k := range registered {
		delete(custom, k)
	}
	return sub, custom, nil
}
