package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessAudience = audiencePrefix + "access"

// ErrInvalidAccessToken is returned by Validate for any rejected bearer token.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessClaims carry only the user id and the standard time claims.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// AccessTokenIssuer mints bearer tokens with a lifetime fixed at construction.
type AccessTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAccessTokenIssuer(secret string, ttl time.Duration) *AccessTokenIssuer {
	return &AccessTokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the configured access token lifetime.
func (i *AccessTokenIssuer) TTL() time.Duration { return i.ttl }

// Issue signs an access token whose subject is userID.
func (i *AccessTokenIssuer) Issue(userID string) (string, error) {
	now := i.now().UTC()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Validate parses a bearer token and returns its claims.
func (i *AccessTokenIssuer) Validate(token string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(accessAudience),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
