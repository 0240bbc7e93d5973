package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func secondsToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// AccessClaims is the JWT payload carried by access tokens.
type AccessClaims struct {
	Sub string `json:"sub"`
	Iss string `json:"iss"`
	Aud string `json:"aud"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
	Jti string `json:"jti"`
	Sid string `json:"sid"`
}

// GetExpirationTime, GetIssuedAt, GetNotBefore, GetIssuer, GetSubject,
// GetAudience implement jwt.ClaimsValidator's dependency, jwt.Claims, so
// AccessClaims can be parsed directly by golang-jwt without an intermediate
// map[string]any representation.
func (c AccessClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(secondsToTime(c.Exp)), nil
}

func (c AccessClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(secondsToTime(c.Iat)), nil
}

func (c AccessClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c AccessClaims) GetIssuer() (string, error) {
	return c.Iss, nil
}

func (c AccessClaims) GetSubject() (string, error) {
	return c.Sub, nil
}

func (c AccessClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Aud}, nil
}

// IssuedTokens is the triple returned by session issuance and rotation.
type IssuedTokens struct {
	UserID            string
	SessionID         string
	AccessToken       string
	RefreshTokenPlain string
}
