package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/notifications"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LikeHandler handles likes on posts and comments
type LikeHandler struct {
	likeRepository        repositories.LikeRepository
	commentLikeRepository repositories.CommentLikeRepository
	postRepository        repositories.PostRepository
	commentRepository     repositories.CommentRepository
	dispatcher            *notifications.Dispatcher
	runner                *notifications.Runner
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(
	likeRepo repositories.LikeRepository,
	commentLikeRepo repositories.CommentLikeRepository,
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	dispatcher *notifications.Dispatcher,
	runner *notifications.Runner,
) *LikeHandler {
	return &LikeHandler{
		likeRepository:        likeRepo,
		commentLikeRepository: commentLikeRepo,
		postRepository:        postRepo,
		commentRepository:     commentRepo,
		dispatcher:            dispatcher,
		runner:                runner,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, guards Guards) {
	postLimit := guards.limit("post:like", ratelimit.PostLike)
	commentLimit := guards.limit("comment:like", ratelimit.CommentLike)

	g.POST("/posts/:id/like", h.LikePost, guards.Auth, postLimit)
	g.POST("/posts/:id/unlike", h.UnlikePost, guards.Auth, postLimit)
	g.GET("/posts/:id/likes/status", h.GetUserLikeStatusForPost, guards.Auth)
	g.POST("/comments/:id/like", h.LikeComment, guards.Auth, commentLimit)
	g.POST("/comments/:id/unlike", h.UnlikeComment, guards.Auth, commentLimit)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	ctx := c.Request().Context()
	claims := middleware.CurrentUser(c)

	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}
	postID := post.ID.Hex()

	hasLiked, err := h.likeRepository.HasUserLikedPost(ctx, postID, claims.UserID)
	if err != nil {
		return internalError(err)
	}
	if hasLiked {
		return conflict("Post already liked")
	}

	if err := h.likeRepository.CreateLike(ctx, &models.Like{PostID: postID, UserID: claims.UserID}); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return conflict("Post already liked")
		}
		return internalError(err)
	}

	count, err := h.syncPostLikes(ctx, postID)
	if err != nil {
		return internalError(err)
	}

	sender := notifications.Actor{ID: claims.UserID, Username: claims.Username}
	h.runner.Go("post_like", logrus.Fields{"sender_id": sender.ID, "recipient_id": post.AuthorID, "post_id": postID},
		func(ctx context.Context) (int, error) {
			return h.dispatcher.PostLiked(ctx, sender, post.AuthorID, postID)
		})

	return c.JSON(http.StatusOK, echo.Map{"postId": postID, "likes": count, "isLiked": true})
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}
	postID := post.ID.Hex()

	if err := h.likeRepository.DeleteLike(ctx, postID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return conflict("Post not liked yet")
		}
		return internalError(err)
	}

	count, err := h.syncPostLikes(ctx, postID)
	if err != nil {
		return internalError(err)
	}

	h.runner.Go("post_unlike", logrus.Fields{"sender_id": userID, "recipient_id": post.AuthorID, "post_id": postID},
		func(ctx context.Context) (int, error) {
			return h.dispatcher.PostUnliked(ctx, userID, post.AuthorID, postID)
		})

	return c.JSON(http.StatusOK, echo.Map{"postId": postID, "likes": count, "isLiked": false})
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a specific post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(ctx, post.ID.Hex(), middleware.UserID(c))
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"postId": post.ID.Hex(), "likes": post.Likes, "isLiked": hasLiked})
}

// syncPostLikes recomputes the materialised like count from the like rows.
func (h *LikeHandler) syncPostLikes(ctx context.Context, postID string) (int64, error) {
	count, err := h.likeRepository.GetLikesCountByPostID(ctx, postID)
	if err != nil {
		return 0, err
	}
	return count, h.postRepository.SetLikesCount(ctx, postID, count)
}

// LikeComment handles liking a comment
func (h *LikeHandler) LikeComment(c echo.Context) error {
	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	claims := middleware.CurrentUser(c)

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}

	hasLiked, err := h.commentLikeRepository.HasUserLikedComment(ctx, commentID, claims.UserID)
	if err != nil {
		return internalError(err)
	}
	if hasLiked {
		return conflict("Comment already liked")
	}

	if err := h.commentLikeRepository.CreateCommentLike(ctx, &models.CommentLike{CommentID: commentID, UserID: claims.UserID}); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return conflict("Comment already liked")
		}
		return internalError(err)
	}

	count, err := h.syncCommentLikes(ctx, commentID)
	if err != nil {
		return internalError(err)
	}

	sender := notifications.Actor{ID: claims.UserID, Username: claims.Username}
	h.runner.Go("comment_like", logrus.Fields{"sender_id": sender.ID, "recipient_id": comment.AuthorID, "comment_id": commentID},
		func(ctx context.Context) (int, error) {
			return h.dispatcher.CommentLiked(ctx, sender, comment.AuthorID, comment.PostID, commentID)
		})

	return c.JSON(http.StatusOK, echo.Map{"commentId": commentID, "likes": count, "isLiked": true})
}

// UnlikeComment handles unliking a comment
func (h *LikeHandler) UnlikeComment(c echo.Context) error {
	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}

	if err := h.commentLikeRepository.DeleteCommentLike(ctx, commentID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return conflict("Comment not liked yet")
		}
		return internalError(err)
	}

	count, err := h.syncCommentLikes(ctx, commentID)
	if err != nil {
		return internalError(err)
	}

	h.runner.Go("comment_unlike", logrus.Fields{"sender_id": userID, "recipient_id": comment.AuthorID, "comment_id": commentID},
		func(ctx context.Context) (int, error) {
			return h.dispatcher.CommentUnliked(ctx, userID, comment.AuthorID, commentID)
		})

	return c.JSON(http.StatusOK, echo.Map{"commentId": commentID, "likes": count, "isLiked": false})
}

func (h *LikeHandler) syncCommentLikes(ctx context.Context, commentID uint) (int64, error) {
	count, err := h.commentLikeRepository.GetLikesCount(ctx, commentID)
	if err != nil {
		return 0, err
	}
	return count, h.commentRepository.SetLikesCount(ctx, commentID, count)
}
