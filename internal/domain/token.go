package domain

// TokenPurpose scopes an action token to the flow that issued it.
type TokenPurpose string

const (
	PurposeActivation    TokenPurpose = "activation"
	PurposePasswordReset TokenPurpose = "password_reset"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeActivation || p == PurposePasswordReset
}

// AccessToken is the body returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NewBearerToken wraps token as an OAuth2 bearer token.
func NewBearerToken(token string) AccessToken {
	return AccessToken{AccessToken: token, TokenType: "bearer"}
}
