package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const claimsKey = "user"

func unauthorized(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, models.APIError{Code: models.CodeUnauthorized, Message: message})
}

// JWTAuthMiddleware checks for a valid JWT and stores its claims on the context.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized("Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorized("Invalid Authorization header format")
			}

			claims, err := ParseToken(secret, parts[1])
			if err != nil {
				return unauthorized("Invalid token")
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ParseToken verifies an HS256 token signed with secret.
func ParseToken(secret, tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignToken issues a token for user that expires after ttl.
func SignToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// CurrentUser returns the claims stored by JWTAuthMiddleware, or nil.
func CurrentUser(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(claimsKey).(*models.JwtCustomClaims)
	return claims
}

// UserID returns the authenticated user's id, or 0 for anonymous requests.
func UserID(c echo.Context) uint {
	if claims := CurrentUser(c); claims != nil {
		return claims.UserID
	}
	return 0
}

// OptionalJWTAuthMiddleware stores claims when a valid bearer token is present
// and otherwise continues anonymously.
func OptionalJWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			parts := strings.Split(c.Request().Header.Get("Authorization"), " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				if claims, err := ParseToken(secret, parts[1]); err == nil {
					c.Set(claimsKey, claims)
				}
			}
			return next(c)
		}
	}
}
