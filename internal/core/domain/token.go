package domain

import "time"

// TokenCategory discriminates the purpose of a signed token.
type TokenCategory string

const (
	TokenCategoryAccess  TokenCategory = "access"
	TokenCategoryRefresh TokenCategory = "refresh"
)

// Claims are the identity claims carried by every issued token.
type Claims struct {
	ID        string
	Category  TokenCategory
	Method    AuthMethod
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the claims are past their expiry at the given instant.
func (c Claims) ExpiredAt(at time.Time) bool {
	return !c.ExpiresAt.After(at)
}

// TokenPair groups the access and refresh tokens issued together.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
