package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "kind" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

const issuer = "cornerstone"

// ErrWrongKind is returned when a refresh token is presented as an access token or vice versa.
var ErrWrongKind = errors.New("jwt: unexpected token kind")

// Claims defines the JWT payload. SessionID ties the token to a revocable session row.
type Claims struct {
	UserID    string `json:"user_id"`
	TeamID    string `json:"team_id,omitempty"`
	SessionID string `json:"sid"`
	Kind      string `json:"kind"`
	jwtlib.RegisteredClaims
}

// Subject describes who a token is issued to.
type Subject struct {
	UserID    string
	TeamID    string
	SessionID string
}

// GenerateToken issues a signed HS256 token of the given kind.
func GenerateToken(sub Subject, kind, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    sub.UserID,
		TeamID:    sub.TeamID,
		SessionID: sub.SessionID,
		Kind:      kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates a token and checks that it is of the expected kind.
func Parse(token, secret, kind string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if kind != "" && claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}
