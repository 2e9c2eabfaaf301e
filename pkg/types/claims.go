package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the access token payload stored in the gin context under "claims".
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh token payload. It only identifies the user;
// the token itself must also match the one stored for that user.
type RefreshClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}
