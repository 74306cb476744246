package repositories

import (
	"context"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationCriteria selects notifications. Zero-valued fields do not constrain.
type NotificationCriteria struct {
	ID          uint
	Type        models.NotificationType
	RecipientID uint
	SenderID    uint
	PostID      *string
	CommentID   *uint
}

// Matches reports whether n satisfies the criteria.
func (c NotificationCriteria) Matches(n *models.Notification) bool {
	if c.ID != 0 && n.ID != c.ID {
		return false
	}
	if c.Type != "" && n.Type != c.Type {
		return false
	}
	if c.RecipientID != 0 && n.RecipientID != c.RecipientID {
		return false
	}
	if c.SenderID != 0 && n.SenderID != c.SenderID {
		return false
	}
	if c.PostID != nil && (n.PostID == nil || *n.PostID != *c.PostID) {
		return false
	}
	if c.CommentID != nil && (n.CommentID == nil || *n.CommentID != *c.CommentID) {
		return false
	}
	return true
}

func (c NotificationCriteria) apply(db *gorm.DB) *gorm.DB {
	if c.ID != 0 {
		db = db.Where("id = ?", c.ID)
	}
	if c.Type != "" {
		db = db.Where("type = ?", c.Type)
	}
	if c.RecipientID != 0 {
		db = db.Where("recipient_id = ?", c.RecipientID)
	}
	if c.SenderID != 0 {
		db = db.Where("sender_id = ?", c.SenderID)
	}
	if c.PostID != nil {
		db = db.Where("post_id = ?", *c.PostID)
	}
	if c.CommentID != nil {
		db = db.Where("comment_id = ?", *c.CommentID)
	}
	return db
}

func (c NotificationCriteria) empty() bool {
	return c.ID == 0 && c.Type == "" && c.RecipientID == 0 && c.SenderID == 0 && c.PostID == nil && c.CommentID == nil
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	CreateNotificationIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
	BulkCreateNotifications(ctx context.Context, notifications []models.Notification) error
	FindNotification(ctx context.Context, criteria NotificationCriteria) (*models.Notification, error)
	DeleteNotifications(ctx context.Context, criteria NotificationCriteria) (int64, error)
	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, recipientID uint) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(notification).Error)
}

// CreateNotificationIfAbsent inserts the notification unless a row with the same
// dedupe key already exists. It reports whether a row was written.
func (r *postgresNotificationRepository) CreateNotificationIfAbsent(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresNotificationRepository) BulkCreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *postgresNotificationRepository) FindNotification(ctx context.Context, criteria NotificationCriteria) (*models.Notification, error) {
	var notification models.Notification
	err := criteria.apply(r.db.WithContext(ctx)).Order("id ASC").First(&notification).Error
	if err != nil {
		return nil, translate(err)
	}
	return &notification, nil
}

// DeleteNotifications removes every matching row. An empty criteria is refused
// rather than truncating the table.
func (r *postgresNotificationRepository) DeleteNotifications(ctx context.Context, criteria NotificationCriteria) (int64, error) {
	if criteria.empty() {
		return 0, nil
	}
	res := criteria.apply(r.db.WithContext(ctx)).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	notifications := []models.Notification{}
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = false", recipientID).Count(&count).Error
	return count, err
}

// MarkAsRead flips isRead on one of the recipient's notifications.
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, notificationID, recipientID uint) (*models.Notification, error) {
	var notification models.Notification
	db := r.db.WithContext(ctx)
	if err := db.Where("id = ? AND recipient_id = ?", notificationID, recipientID).First(&notification).Error; err != nil {
		return nil, translate(err)
	}
	if !notification.IsRead {
		if err := db.Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, err
		}
		notification.IsRead = true
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND is_read = false", recipientID).Update("is_read", true)
	return res.RowsAffected, res.Error
}
