package handlers

import (
	"context"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// Guards are the per-route middlewares shared by every handler.
// OptionalAuth attaches the caller when a valid token is sent and lets
// anonymous requests through.
type Guards struct {
	Auth         echo.MiddlewareFunc
	OptionalAuth echo.MiddlewareFunc
	Limiter      *ratelimit.Limiter
}

func (g Guards) limit(action string, rule ratelimit.Rule) echo.MiddlewareFunc {
	return ratelimit.Middleware(g.Limiter, action, rule, middleware.UserID)
}

// userCompacts loads the public projection of every id, keyed by id. Missing
// users are simply absent.
func userCompacts(ctx context.Context, users repositories.UserRepository, ids []uint) (map[uint]models.UserCompact, error) {
	out := make(map[uint]models.UserCompact, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.GetUsersByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for i := range found {
		out[found[i].ID] = found[i].ToCompact()
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
