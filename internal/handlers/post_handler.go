package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/notifications"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// EmbedResolver derives preview metadata from a post message.
type EmbedResolver interface {
	Resolve(ctx context.Context, message string) *models.Embed
}

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	commentRepository      repositories.CommentRepository
	likeRepository         repositories.LikeRepository
	notificationRepository repositories.NotificationRepository
	dispatcher             *notifications.Dispatcher
	runner                 *notifications.Runner
	previews               EmbedResolver
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	likeRepo repositories.LikeRepository,
	notificationRepo repositories.NotificationRepository,
	dispatcher *notifications.Dispatcher,
	runner *notifications.Runner,
	previews EmbedResolver,
) *PostHandler {
	return &PostHandler{
		postRepository:         postRepo,
		userRepository:         userRepo,
		commentRepository:      commentRepo,
		likeRepository:         likeRepo,
		notificationRepository: notificationRepo,
		dispatcher:             dispatcher,
		runner:                 runner,
		previews:               previews,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, guards Guards) {
	g.POST("/users/:username/posts", h.CreatePost, guards.Auth, guards.limit("post:create", ratelimit.PostCreate))
	g.GET("/posts/:id", h.GetPost, guards.OptionalAuth)
	g.PATCH("/posts/:id", h.UpdatePost, guards.Auth, guards.limit("post:edit", ratelimit.PostEdit))
	g.DELETE("/posts/:id", h.DeletePost, guards.Auth)
}

// CreatePost writes a post on the wall of :username. Posting on someone
// else's wall requires their profile to be open.
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	claims := middleware.CurrentUser(c)

	wallOwner, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "User")
	}
	if wallOwner.ID != claims.UserID && !wallOwner.OpenProfile {
		return forbidden("This user does not accept posts on their wall")
	}

	message := strings.TrimSpace(req.Message)
	post := &models.Post{
		AuthorID:    claims.UserID,
		WallOwnerID: wallOwner.ID,
		Message:     message,
		Embed:       h.resolveEmbed(ctx, message),
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return internalError(err)
	}

	sender := notifications.Actor{ID: claims.UserID, Username: claims.Username}
	postID := post.ID.Hex()
	h.runner.Go("mention_post", logrus.Fields{"sender_id": sender.ID, "post_id": postID}, func(ctx context.Context) (int, error) {
		return h.dispatcher.MentionsInPost(ctx, sender, message, postID)
	})

	views, err := postViews(ctx, h.userRepository, []models.Post{*post})
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusCreated, views[0])
}

// GetPost returns a post with its comments arranged as threads.
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}

	views, err := postViews(ctx, h.userRepository, []models.Post{*post})
	if err != nil {
		return internalError(err)
	}
	if uid := middleware.UserID(c); uid != 0 {
		if views[0].IsLiked, err = h.likeRepository.HasUserLikedPost(ctx, post.ID.Hex(), uid); err != nil {
			return internalError(err)
		}
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, post.ID.Hex())
	if err != nil {
		return internalError(err)
	}
	thread, err := threadViews(ctx, h.userRepository, comments)
	if err != nil {
		return internalError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"post": views[0], "comments": thread})
}

// UpdatePost changes the message of a post. Only the author may edit.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}
	if post.AuthorID != middleware.UserID(c) {
		return forbidden("You are not authorized to update this post")
	}

	post.Message = strings.TrimSpace(req.Message)
	post.Embed = h.resolveEmbed(ctx, post.Message)
	if err := h.postRepository.UpdatePost(ctx, post); err != nil {
		return lookupError(err, "Post")
	}

	views, err := postViews(ctx, h.userRepository, []models.Post{*post})
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, views[0])
}

// DeletePost removes a post together with its comments, likes and
// notifications.
func (h *PostHandler) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}
	if post.AuthorID != middleware.UserID(c) {
		return forbidden("You are not authorized to delete this post")
	}

	postID := post.ID.Hex()
	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return lookupError(err, "Post")
	}

	if _, err := h.commentRepository.DeleteCommentsByPostID(ctx, postID); err != nil {
		return internalError(err)
	}
	if _, err := h.likeRepository.DeleteLikesByPostID(ctx, postID); err != nil {
		return internalError(err)
	}
	if _, err := h.notificationRepository.DeleteNotifications(ctx, repositories.NotificationCriteria{PostID: &postID}); err != nil {
		return internalError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PostHandler) resolveEmbed(ctx context.Context, message string) *models.Embed {
	if h.previews == nil {
		return nil
	}
	return h.previews.Resolve(ctx, message)
}
