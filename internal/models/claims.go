package models

import "time"

const (
	ClaimSubject   = "sub"
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimEmail     = "email"
)

// Claims is the decoded payload of an access token.
type Claims map[string]any

func (c Claims) Subject() string {
	sub, _ := c[ClaimSubject].(string)
	return sub
}

// ExpiresAt returns the exp claim. Numeric claims decode from JSON as float64.
func (c Claims) ExpiresAt() time.Time {
	return numericTime(c[ClaimExpiresAt])
}

func (c Claims) IssuedAt() time.Time {
	return numericTime(c[ClaimIssuedAt])
}

func numericTime(v any) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0).UTC()
	case int64:
		return time.Unix(n, 0).UTC()
	case int:
		return time.Unix(int64(n), 0).UTC()
	}
	return time.Time{}
}
