package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/identity/internal/domain"
)

const (
	issuer         = "identity"
	audiencePrefix = "identity:"
)

// ActionClaims are the claims of a single-purpose action token. The subject
// is the email address the action is authorized for.
type ActionClaims struct {
	Purpose domain.TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

// ActionTokenCodec issues and verifies activation and password reset tokens.
// Tokens are self-contained; nothing is stored when one is issued.
type ActionTokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewActionTokenCodec(secret string) *ActionTokenCodec {
	return &ActionTokenCodec{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject, scoped to purpose, expiring after ttl.
func (c *ActionTokenCodec) Issue(subject string, purpose domain.TokenPurpose, ttl time.Duration) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("issue action token: unknown purpose %q", purpose)
	}

	now := c.now().UTC()
	claims := &ActionClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audiencePrefix + string(purpose)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign action token: %w", err)
	}
	return signed, nil
}

// Verify returns the subject of a valid token issued for purpose.
func (c *ActionTokenCodec) Verify(token string, purpose domain.TokenPurpose) (string, error) {
	claims, err := c.Parse(token, purpose)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse validates token and returns its claims. Every failure, whether a bad
// signature, malformed input, expiry or a purpose mismatch, is reported as
// domain.ErrInvalidToken.
func (c *ActionTokenCodec) Parse(token string, purpose domain.TokenPurpose) (*ActionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ActionClaims{}, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audiencePrefix+string(purpose)),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*ActionClaims)
	if !ok || !parsed.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func (c *ActionTokenCodec) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return c.secret, nil
}
