package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/identity/internal/domain"
)

func TestAccessTokenIssuer_IssueAndValidate(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	i := NewAccessTokenIssuer(testSecret, 192*time.Hour)
	i.now = fixedClock(issuedAt)

	token, err := i.Issue("8d3f8c1e-0000-4000-8000-000000000001")
	require.NoError(t, err)

	claims, err := i.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "8d3f8c1e-0000-4000-8000-000000000001", claims.Subject)
	assert.Equal(t, issuedAt.Add(192*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 192*time.Hour, i.TTL())
}

func TestAccessTokenIssuer_Expired(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	i := NewAccessTokenIssuer(testSecret, time.Hour)
	i.now = fixedClock(issuedAt)

	token, err := i.Issue("user-id")
	require.NoError(t, err)

	i.now = fixedClock(issuedAt.Add(time.Hour + time.Second))
	_, err = i.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestAccessTokenIssuer_RejectsActionToken(t *testing.T) {
	action, err := NewActionTokenCodec(testSecret).Issue("a@x.com", domain.PurposeActivation, time.Hour)
	require.NoError(t, err)

	_, err = NewAccessTokenIssuer(testSecret, time.Hour).Validate(action)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestAccessTokenIssuer_RejectsWrongKey(t *testing.T) {
	token, err := NewAccessTokenIssuer("another-secret-key-for-testing-32b", time.Hour).Issue("user-id")
	require.NoError(t, err)

	_, err = NewAccessTokenIssuer(testSecret, time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}
