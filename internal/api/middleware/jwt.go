package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/pkg/response"
	"github.com/linskybing/zeera/pkg/types"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

var (
	jwtKey     []byte
	refreshKey []byte
)

// Init sets the signing keys.
func Init() {
	jwtKey = []byte(config.JwtSecret)
	refreshKey = []byte(config.RefreshTokenSecret)
}

// GenerateToken issues a signed access token for u.
var GenerateToken = func(u user.User, expireDuration time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID:  u.UID,
		Email:   u.Email,
		Name:    u.Name,
		IsAdmin: u.IsAdmin(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expireDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtKey)
}

// GenerateRefreshToken issues a refresh token. The jti makes every token distinct
// so rotation always invalidates the previous one.
var GenerateRefreshToken = func(userID uint, expireDuration time.Duration) (string, error) {
	now := time.Now()
	claims := &types.RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newRequestID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expireDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    config.Issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(refreshKey)
}

// ParseToken validates and extracts access token claims.
func ParseToken(tokenStr string) (*types.Claims, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(jwtKey))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func ParseRefreshToken(tokenStr string) (*types.RefreshClaims, error) {
	claims := &types.RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(refreshKey))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func keyFunc(key []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		Error:      msg,
	})
}

// JWTAuthMiddleware validates a Bearer token from the Authorization header or
// the access token cookie, and rejects deactivated accounts.
func JWTAuthMiddleware(users repository.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(c, "authorization header format must be Bearer {token}")
				return
			}
			tokenStr = parts[1]
		} else if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
			tokenStr = cookie
		} else {
			unauthorized(c, "access token required")
			return
		}

		claims, err := ParseToken(tokenStr)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		u, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil || !u.IsActive {
			unauthorized(c, "user not found or deactivated")
			return
		}
		claims.IsAdmin = u.IsAdmin()

		c.Set("claims", claims)
		c.Next()
	}
}
