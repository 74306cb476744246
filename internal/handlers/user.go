package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group, guards Guards) {
	g.GET("/profile", h.GetProfile, guards.Auth)
	g.PATCH("/profile", h.UpdateProfile, guards.Auth)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/discover/users", h.DiscoverUsers, guards.OptionalAuth)
	g.GET("/users/:username", h.GetUser)
}

// GetUser returns a public profile by username, case-insensitively.
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return lookupError(err, "User")
	}
	return c.JSON(http.StatusOK, publicProfile(user))
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return lookupError(err, "User")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the mutable profile fields. Username is immutable.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, middleware.UserID(c))
	if err != nil {
		return lookupError(err, "User")
	}

	if req.Description != nil {
		user.Description = strings.TrimSpace(*req.Description)
	}
	if req.ProfilePic != nil {
		user.ProfilePic = *req.ProfilePic
	}
	if req.OpenProfile != nil {
		user.OpenProfile = *req.OpenProfile
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// SearchUsers matches usernames containing q, for mention autocompletion.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	q := strings.TrimPrefix(strings.TrimSpace(c.QueryParam("q")), "@")
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"users": []models.UserCompact{}})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 20 {
		limit = 10
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), q, limit)
	if err != nil {
		return internalError(err)
	}
	out := make([]models.UserCompact, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// DiscoverUsers suggests a random sample of accounts other than the caller.
func (h *UserHandler) DiscoverUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 20 {
		limit = 10
	}

	users, err := h.userRepository.DiscoverUsers(c.Request().Context(), middleware.UserID(c), limit)
	if err != nil {
		return internalError(err)
	}
	out := make([]echo.Map, 0, len(users))
	for i := range users {
		out = append(out, publicProfile(&users[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

func publicProfile(u *models.User) echo.Map {
	return echo.Map{
		"id":          u.ID,
		"username":    u.Username,
		"profilePic":  u.ProfilePic,
		"description": u.Description,
		"openProfile": u.OpenProfile,
		"verified":    u.Verified,
		"createdAt":   u.CreatedAt,
	}
}
