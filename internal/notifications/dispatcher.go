// Package notifications fans triggering events out into notification rows.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/socialfeed/backend/internal/mentions"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
)

// UserFinder resolves mentioned usernames.
type UserFinder interface {
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
}

// Store is the part of the notification repository the dispatcher writes to.
type Store interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	CreateNotificationIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
	BulkCreateNotifications(ctx context.Context, notifications []models.Notification) error
	FindNotification(ctx context.Context, criteria repositories.NotificationCriteria) (*models.Notification, error)
	DeleteNotifications(ctx context.Context, criteria repositories.NotificationCriteria) (int64, error)
}

// Actor is the user whose action triggers a notification.
type Actor struct {
	ID       uint
	Username string
}

func (a Actor) name() string {
	if a.Username == "" {
		return "Someone"
	}
	return a.Username
}

// Dispatcher creates and removes notifications. Every method returns the
// number of rows it wrote or removed; a self-targeted event returns 0.
type Dispatcher struct {
	users UserFinder
	store Store
}

func NewDispatcher(users UserFinder, store Store) *Dispatcher {
	return &Dispatcher{users: users, store: store}
}

// MentionsInPost notifies every existing user mentioned in a post message.
func (d *Dispatcher) MentionsInPost(ctx context.Context, sender Actor, text, postID string) (int, error) {
	return d.mentions(ctx, models.NotificationMentionPost, sender, text, postID, nil)
}

// MentionsInComment notifies every existing user mentioned in a comment.
func (d *Dispatcher) MentionsInComment(ctx context.Context, sender Actor, text, postID string, commentID uint) (int, error) {
	return d.mentions(ctx, models.NotificationMentionComment, sender, text, postID, &commentID)
}

func (d *Dispatcher) mentions(ctx context.Context, typ models.NotificationType, sender Actor, text, postID string, commentID *uint) (int, error) {
	usernames := mentions.Extract(text)
	if len(usernames) == 0 {
		return 0, nil
	}

	users, err := d.users.GetUsersByUsernames(ctx, usernames)
	if err != nil {
		return 0, fmt.Errorf("resolve mentions: %w", err)
	}

	where := "post"
	if typ == models.NotificationMentionComment {
		where = "comment"
	}
	message := fmt.Sprintf("%s mentioned you in a %s", sender.name(), where)

	batch := make([]models.Notification, 0, len(users))
	for _, u := range users {
		if u.ID == sender.ID {
			continue
		}
		batch = append(batch, models.Notification{
			Type:        typ,
			Message:     message,
			RecipientID: u.ID,
			SenderID:    sender.ID,
			PostID:      stringPtr(postID),
			CommentID:   commentID,
		})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	if err := d.store.BulkCreateNotifications(ctx, batch); err != nil {
		return 0, fmt.Errorf("create mention notifications: %w", err)
	}
	return len(batch), nil
}

// CommentOnPost tells the post owner about a new comment, replies included.
func (d *Dispatcher) CommentOnPost(ctx context.Context, sender Actor, postOwnerID uint, postID string, commentID uint) (int, error) {
	if postOwnerID == sender.ID {
		return 0, nil
	}
	return d.createOne(ctx, &models.Notification{
		Type:        models.NotificationCommentOnPost,
		Message:     sender.name() + " commented on your post",
		RecipientID: postOwnerID,
		SenderID:    sender.ID,
		PostID:      stringPtr(postID),
		CommentID:   &commentID,
	})
}

// ReplyToComment tells the parent comment's author about a reply.
func (d *Dispatcher) ReplyToComment(ctx context.Context, sender Actor, parentAuthorID uint, postID string, replyID uint) (int, error) {
	if parentAuthorID == sender.ID {
		return 0, nil
	}
	return d.createOne(ctx, &models.Notification{
		Type:        models.NotificationCommentReply,
		Message:     sender.name() + " replied to your comment",
		RecipientID: parentAuthorID,
		SenderID:    sender.ID,
		PostID:      stringPtr(postID),
		CommentID:   &replyID,
	})
}

func (d *Dispatcher) createOne(ctx context.Context, n *models.Notification) (int, error) {
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return 0, fmt.Errorf("create %s notification: %w", n.Type, err)
	}
	return 1, nil
}

// PostLiked creates at most one post_like notification per (owner, liker, post).
func (d *Dispatcher) PostLiked(ctx context.Context, sender Actor, postOwnerID uint, postID string) (int, error) {
	if postOwnerID == sender.ID {
		return 0, nil
	}
	return d.createLike(ctx, &models.Notification{
		Type:        models.NotificationPostLike,
		Message:     sender.name() + " liked your post",
		RecipientID: postOwnerID,
		SenderID:    sender.ID,
		PostID:      stringPtr(postID),
	}, postID)
}

// CommentLiked creates at most one comment_like notification per
// (owner, liker, comment).
func (d *Dispatcher) CommentLiked(ctx context.Context, sender Actor, commentOwnerID uint, postID string, commentID uint) (int, error) {
	if commentOwnerID == sender.ID {
		return 0, nil
	}
	return d.createLike(ctx, &models.Notification{
		Type:        models.NotificationCommentLike,
		Message:     sender.name() + " liked your comment",
		RecipientID: commentOwnerID,
		SenderID:    sender.ID,
		PostID:      stringPtr(postID),
		CommentID:   &commentID,
	}, fmt.Sprint(commentID))
}

// createLike skips the insert when a matching row is already there. Two
// concurrent likes can both miss the lookup; the unique dedupe key then lets
// only one of them write.
func (d *Dispatcher) createLike(ctx context.Context, n *models.Notification, target string) (int, error) {
	_, err := d.store.FindNotification(ctx, likeCriteria(n))
	switch {
	case err == nil:
		return 0, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return 0, fmt.Errorf("find %s notification: %w", n.Type, err)
	}

	key := DedupeKey(n.Type, n.RecipientID, n.SenderID, target)
	n.DedupeKey = &key
	created, err := d.store.CreateNotificationIfAbsent(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("create %s notification: %w", n.Type, err)
	}
	if !created {
		return 0, nil
	}
	return 1, nil
}

// PostUnliked removes the post_like notification left by sender, if any.
func (d *Dispatcher) PostUnliked(ctx context.Context, senderID, postOwnerID uint, postID string) (int, error) {
	if postOwnerID == senderID {
		return 0, nil
	}
	return d.remove(ctx, repositories.NotificationCriteria{
		Type:        models.NotificationPostLike,
		RecipientID: postOwnerID,
		SenderID:    senderID,
		PostID:      stringPtr(postID),
	})
}

// CommentUnliked removes the comment_like notification left by sender, if any.
func (d *Dispatcher) CommentUnliked(ctx context.Context, senderID, commentOwnerID, commentID uint) (int, error) {
	if commentOwnerID == senderID {
		return 0, nil
	}
	return d.remove(ctx, repositories.NotificationCriteria{
		Type:        models.NotificationCommentLike,
		RecipientID: commentOwnerID,
		SenderID:    senderID,
		CommentID:   &commentID,
	})
}

func (d *Dispatcher) remove(ctx context.Context, criteria repositories.NotificationCriteria) (int, error) {
	n, err := d.store.DeleteNotifications(ctx, criteria)
	if err != nil {
		return 0, fmt.Errorf("delete %s notification: %w", criteria.Type, err)
	}
	return int(n), nil
}

// DedupeKey identifies a like notification: type, recipient, sender, target.
func DedupeKey(typ models.NotificationType, recipientID, senderID uint, target string) string {
	return fmt.Sprintf("%s:%d:%d:%s", typ, recipientID, senderID, target)
}

func likeCriteria(n *models.Notification) repositories.NotificationCriteria {
	c := repositories.NotificationCriteria{
		Type:        n.Type,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
	}
	if n.Type == models.NotificationCommentLike {
		c.CommentID = n.CommentID
	} else {
		c.PostID = n.PostID
	}
	return c
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
