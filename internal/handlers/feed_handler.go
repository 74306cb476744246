package handlers

import (
	"net/http"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler lists posts: the global feed and individual walls.
type FeedHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	likeRepository repositories.LikeRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, likeRepo repositories.LikeRepository) *FeedHandler {
	return &FeedHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		likeRepository: likeRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, guards Guards) {
	g.GET("/posts", h.GetFeed, guards.OptionalAuth)
	g.GET("/users/:username/posts", h.GetWall, guards.OptionalAuth)
	g.GET("/users/:username/likes", h.GetLikedPosts, guards.OptionalAuth)
}

// GetFeed returns every post, newest first.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	page, limit := pagination(c, 10, 50)
	skip := int64((page - 1) * limit)

	// One extra row tells whether another page exists.
	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), skip, int64(limit+1))
	if err != nil {
		return internalError(err)
	}
	return h.respond(c, posts, page, limit)
}

// GetWall returns the posts on one user's wall, newest first.
func (h *FeedHandler) GetWall(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "User")
	}

	page, limit := pagination(c, 10, 50)
	skip := int64((page - 1) * limit)
	posts, err := h.postRepository.GetPostsByWallOwner(ctx, owner.ID, skip, int64(limit+1))
	if err != nil {
		return internalError(err)
	}
	return h.respond(c, posts, page, limit)
}

// GetLikedPosts returns the posts a user liked, most recently liked first.
func (h *FeedHandler) GetLikedPosts(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "User")
	}

	page, limit := pagination(c, 10, 50)
	ids, err := h.likeRepository.GetLikedPostIDs(ctx, user.ID, (page-1)*limit, limit+1)
	if err != nil {
		return internalError(err)
	}
	found, err := h.postRepository.GetPostsByIDs(ctx, ids)
	if err != nil {
		return internalError(err)
	}

	byID := make(map[string]models.Post, len(found))
	for _, p := range found {
		byID[p.ID.Hex()] = p
	}
	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return h.respond(c, posts, page, limit)
}

func (h *FeedHandler) respond(c echo.Context, posts []models.Post, page, limit int) error {
	ctx := c.Request().Context()

	hasNext := len(posts) > limit
	if hasNext {
		posts = posts[:limit]
	}

	views, err := postViews(ctx, h.userRepository, posts)
	if err != nil {
		return internalError(err)
	}
	if uid := middleware.UserID(c); uid != 0 {
		for i := range views {
			if views[i].IsLiked, err = h.likeRepository.HasUserLikedPost(ctx, views[i].ID.Hex(), uid); err != nil {
				return internalError(err)
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": views,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"itemsPerPage":    limit,
			"hasNextPage":     hasNext,
			"hasPreviousPage": page > 1,
		},
	})
}
