package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// Middleware rejects the request with 429 once the caller exhausts rule for
// action. userID extracts the authenticated caller; anonymous requests pass.
func Middleware(l *Limiter, action string, rule Rule, userID func(echo.Context) uint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := userID(c)
			if id == 0 {
				return next(c)
			}

			d := l.Allow(c.Request().Context(), id, action, rule)
			if d.Allowed {
				return next(c)
			}

			seconds := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
			return echo.NewHTTPError(http.StatusTooManyRequests, models.APIError{
				Code:       models.CodeRateLimited,
				Message:    "Too many requests, please try again later",
				RetryAfter: seconds,
			})
		}
	}
}
