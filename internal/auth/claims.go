package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is shared by access tokens and self-describing refresh tokens;
// TokenType tells them apart.
type Claims struct {
	Email     string   `json:"email"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}
