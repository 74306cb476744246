package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	postRepository         repositories.PostRepository
	commentRepository      repositories.CommentRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	notifRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
		postRepository:         postRepo,
		commentRepository:      commentRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, guards Guards) {
	n := g.Group("/notifications", guards.Auth)
	n.GET("", h.GetNotifications)
	n.GET("/unread-count", h.GetUnreadCount)
	n.PATCH("/mark-all-read", h.MarkAllAsRead)
	n.PATCH("/:id/read", h.MarkAsRead)
	n.DELETE("/:id", h.DeleteNotification)
	n.DELETE("", h.DeleteAllNotifications)
}

// toViews resolves senders and related posts and comments in three batched
// lookups. Related entities that no longer exist are left out.
func (h *NotificationHandler) toViews(ctx context.Context, notifications []models.Notification) ([]models.NotificationView, error) {
	senderIDs := make([]uint, 0, len(notifications))
	var postIDs []string
	var commentIDs []uint
	for _, n := range notifications {
		senderIDs = append(senderIDs, n.SenderID)
		if n.PostID != nil {
			postIDs = append(postIDs, *n.PostID)
		}
		if n.CommentID != nil {
			commentIDs = append(commentIDs, *n.CommentID)
		}
	}

	senders, err := userCompacts(ctx, h.userRepository, senderIDs)
	if err != nil {
		return nil, err
	}

	posts := map[string]models.RelatedPostRef{}
	if len(postIDs) > 0 {
		found, err := h.postRepository.GetPostsByIDs(ctx, postIDs)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			posts[p.ID.Hex()] = models.RelatedPostRef{ID: p.ID.Hex(), Message: p.Message}
		}
	}

	comments := map[uint]models.RelatedCommentRef{}
	if len(commentIDs) > 0 {
		found, err := h.commentRepository.GetCommentsByIDs(ctx, uniqueIDs(commentIDs))
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			comments[c.ID] = models.RelatedCommentRef{ID: c.ID, Message: c.Message}
		}
	}

	views := make([]models.NotificationView, len(notifications))
	for i, n := range notifications {
		v := models.NotificationView{
			ID:        n.ID,
			Type:      n.Type,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
			Sender:    senders[n.SenderID],
			PostID:    n.PostID,
			CommentID: n.CommentID,
		}
		if v.Sender.ID == 0 {
			v.Sender.ID = n.SenderID
		}
		if n.PostID != nil {
			if p, ok := posts[*n.PostID]; ok {
				v.RelatedPost = &p
			}
		}
		if n.CommentID != nil {
			if c, ok := comments[*n.CommentID]; ok {
				v.RelatedComment = &c
			}
		}
		views[i] = v
	}
	return views, nil
}

// GetNotifications returns paginated notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	ctx := c.Request().Context()
	page, limit := pagination(c, 20, 50)

	notifications, total, err := h.notificationRepository.GetByRecipientID(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return internalError(err)
	}
	views, err := h.toViews(ctx, notifications)
	if err != nil {
		return internalError(err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": views,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	notifID, err := parseUintParam(c, "id", "notification")
	if err != nil {
		return err
	}

	notification, err := h.notificationRepository.MarkAsRead(c.Request().Context(), notifID, middleware.UserID(c))
	if err != nil {
		return lookupError(err, "Notification")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": notification})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	updated, err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// DeleteNotification removes one of the caller's notifications
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	notifID, err := parseUintParam(c, "id", "notification")
	if err != nil {
		return err
	}

	deleted, err := h.notificationRepository.DeleteNotifications(c.Request().Context(), repositories.NotificationCriteria{
		ID:          notifID,
		RecipientID: middleware.UserID(c),
	})
	if err != nil {
		return internalError(err)
	}
	if deleted == 0 {
		return notFound("Notification not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"deleted": deleted}})
}

// DeleteAllNotifications clears the caller's notifications
func (h *NotificationHandler) DeleteAllNotifications(c echo.Context) error {
	deleted, err := h.notificationRepository.DeleteNotifications(c.Request().Context(), repositories.NotificationCriteria{
		RecipientID: middleware.UserID(c),
	})
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"deleted": deleted}})
}
