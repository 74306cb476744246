package repositories

import (
	"context"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentsByIDs(ctx context.Context, ids []uint) ([]models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteCommentTree(ctx context.Context, id uint) ([]uint, error)
	DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error)
	SetLikesCount(ctx context.Context, commentID uint, count int64) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Create(comment).Error)
}

// GetCommentByID retrieves a comment by ID from PostgreSQL
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) GetCommentsByIDs(ctx context.Context, ids []uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// GetCommentsByPostID returns the flat comment list of a post, oldest first.
func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment updates an existing comment in PostgreSQL
func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Model(comment).Update("message", comment.Message).Error)
}

const deleteCommentTreeSQL = `
WITH RECURSIVE tree AS (
	SELECT id FROM comments WHERE id = ?
	UNION
	SELECT c.id FROM comments c JOIN tree t ON c.parent_comment_id = t.id
)
DELETE FROM comments WHERE id IN (SELECT id FROM tree)
RETURNING id`

// DeleteCommentTree deletes a comment and every reply below it, returning the
// ids removed. The foreign key cascades as well; walking the tree here lets the
// caller learn how many rows went away.
func (r *PostgresCommentRepository) DeleteCommentTree(ctx context.Context, id uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Raw(deleteCommentTreeSQL, id).Scan(&ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return ids, nil
}

// DeleteCommentsByPostID removes every comment of a deleted post.
func (r *PostgresCommentRepository) DeleteCommentsByPostID(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

func (r *PostgresCommentRepository) SetLikesCount(ctx context.Context, commentID uint, count int64) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", commentID).Update("likes", count).Error
}
