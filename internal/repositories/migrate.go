package repositories

import (
	"fmt"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every PostgreSQL table owned by the service.
// Posts live in MongoDB and need no migration.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Like{},
		&models.CommentLike{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
