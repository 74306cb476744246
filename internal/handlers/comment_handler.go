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

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository      repositories.CommentRepository
	postRepository         repositories.PostRepository // To update comment counts in posts
	userRepository         repositories.UserRepository // To resolve comment authors
	notificationRepository repositories.NotificationRepository
	dispatcher             *notifications.Dispatcher
	runner                 *notifications.Runner
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	dispatcher *notifications.Dispatcher,
	runner *notifications.Runner,
) *CommentHandler {
	return &CommentHandler{
		commentRepository:      commentRepo,
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notificationRepo,
		dispatcher:             dispatcher,
		runner:                 runner,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, guards Guards) {
	g.POST("/comments", h.CreateComment, guards.Auth, guards.limit("comment:create", ratelimit.CommentCreate))
	g.GET("/comments/:id", h.GetComment)
	g.PATCH("/comments/:id", h.UpdateComment, guards.Auth, guards.limit("comment:edit", ratelimit.CommentEdit))
	g.DELETE("/comments/:id", h.DeleteComment, guards.Auth)
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
}

// CreateComment adds a comment to a post. A parentCommentId makes it a reply,
// and the parent must belong to the same post.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	claims := middleware.CurrentUser(c)

	post, err := h.postRepository.GetPostByID(ctx, req.PostID)
	if err != nil {
		return lookupError(err, "Post")
	}
	// Comments, likes and notifications all key on the canonical lowercase hex.
	postID := post.ID.Hex()

	var parent *models.Comment
	if req.ParentCommentID != nil {
		parent, err = h.commentRepository.GetCommentByID(ctx, *req.ParentCommentID)
		if err != nil {
			return lookupError(err, "Parent comment")
		}
		if parent.PostID != postID {
			return badRequest("Parent comment must belong to the same post")
		}
	}

	comment := &models.Comment{
		PostID:          postID,
		AuthorID:        claims.UserID,
		Message:         strings.TrimSpace(req.Message),
		ParentCommentID: req.ParentCommentID,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return lookupError(err, "Parent comment")
	}
	if err := h.postRepository.AdjustCommentsCount(ctx, postID, 1); err != nil {
		return internalError(err)
	}

	h.fanOut(claims, post, parent, comment)

	author, err := h.userRepository.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return internalError(err)
	}
	resp := echo.Map{"comment": commentView(*comment, author.ToCompact())}
	if parent != nil {
		resp["parentComment"] = echo.Map{"id": parent.ID, "message": parent.Message, "authorId": parent.AuthorID}
	}
	return c.JSON(http.StatusCreated, resp)
}

// fanOut sends the notifications for a new comment in the background.
func (h *CommentHandler) fanOut(claims *models.JwtCustomClaims, post *models.Post, parent *models.Comment, comment *models.Comment) {
	sender := notifications.Actor{ID: claims.UserID, Username: claims.Username}
	postID := comment.PostID
	fields := logrus.Fields{"sender_id": sender.ID, "post_id": postID, "comment_id": comment.ID}

	h.runner.Go("mention_comment", fields, func(ctx context.Context) (int, error) {
		return h.dispatcher.MentionsInComment(ctx, sender, comment.Message, postID, comment.ID)
	})
	h.runner.Go("comment_on_post", fields, func(ctx context.Context) (int, error) {
		return h.dispatcher.CommentOnPost(ctx, sender, post.AuthorID, postID, comment.ID)
	})
	if parent != nil {
		h.runner.Go("comment_reply", fields, func(ctx context.Context) (int, error) {
			return h.dispatcher.ReplyToComment(ctx, sender, parent.AuthorID, postID, comment.ID)
		})
	}
}

// GetComment returns a single comment with its author.
func (h *CommentHandler) GetComment(c echo.Context) error {
	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}
	authors, err := userCompacts(ctx, h.userRepository, []uint{comment.AuthorID})
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, commentView(*comment, authors[comment.AuthorID]))
}

// GetCommentsByPostID returns a post's comments arranged as threads.
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return lookupError(err, "Post")
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, post.ID.Hex())
	if err != nil {
		return internalError(err)
	}
	views, err := threadViews(ctx, h.userRepository, comments)
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": views, "total": len(comments)})
}

// UpdateComment updates an existing comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}

	// Ensure the user updating the comment is the owner
	if comment.AuthorID != middleware.UserID(c) {
		return forbidden("You are not authorized to update this comment")
	}

	comment.Message = strings.TrimSpace(req.Message)
	if err := h.commentRepository.UpdateComment(ctx, comment); err != nil {
		return lookupError(err, "Comment")
	}

	authors, err := userCompacts(ctx, h.userRepository, []uint{comment.AuthorID})
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, commentView(*comment, authors[comment.AuthorID]))
}

// DeleteComment deletes a comment together with every reply below it.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}

	// Ensure the user deleting the comment is the owner
	if comment.AuthorID != middleware.UserID(c) {
		return forbidden("You are not authorized to delete this comment")
	}

	removed, err := h.commentRepository.DeleteCommentTree(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment")
	}

	if err := h.postRepository.AdjustCommentsCount(ctx, comment.PostID, -len(removed)); err != nil {
		return internalError(err)
	}
	for _, id := range removed {
		id := id
		if _, err := h.notificationRepository.DeleteNotifications(ctx, repositories.NotificationCriteria{CommentID: &id}); err != nil {
			return internalError(err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"deletedIds": removed, "deleted": len(removed)})
}
