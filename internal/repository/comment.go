package repository

import (
	"context"

	"socialnet/internal/models"
	"socialnet/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	ListTopLevel(ctx context.Context, postID uint, page models.PageRequest, viewerID uint) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint, viewerID uint) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, commentID uint) error
	Unlike(ctx context.Context, userID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	const selectQuery = "comments.*, " +
		"(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) AS likes_count"

	db = db.Model(&models.Comment{}).Preload("User")
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("insert", "comments")()
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()
	var comment models.Comment
	if err := r.withDetails(r.db.WithContext(ctx), viewerID).First(&comment, "comments.id = ?", id).Error; err != nil {
		return nil, lookupError(err, "Comment", id)
	}
	return &comment, nil
}

// ListTopLevel pages the comments of a post that are not replies, oldest first.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint, page models.PageRequest, viewerID uint) ([]models.Comment, int64, error) {
	defer observability.TrackQuery("select", "comments")()

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []models.Comment
	if err := paginate(r.withDetails(r.db.WithContext(ctx), viewerID), page).
		Where("comments.post_id = ? AND comments.parent_comment_id IS NULL", postID).
		Order("comments.created_at ASC, comments.id ASC").
		Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, viewerID uint) ([]models.Comment, error) {
	defer observability.TrackQuery("select", "comments")()
	var comments []models.Comment
	if err := r.withDetails(r.db.WithContext(ctx), viewerID).
		Where("comments.parent_comment_id = ?", parentID).
		Order("comments.created_at ASC, comments.id ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("update", "comments")()
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{ID: comment.ID}).
		Select("content", "updated_at").
		Updates(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the comment together with its replies and all their likes.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "comments")()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		frontier := []uint{id}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).
				Where("parent_comment_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return models.NewInternalError(err)
			}
			ids = append(ids, children...)
			frontier = children
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		// Deepest replies first so the parent foreign key never dangles.
		for i := len(ids) - 1; i >= 0; i-- {
			if err := tx.Delete(&models.Comment{}, ids[i]).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
}

func (r *commentRepository) Like(ctx context.Context, userID, commentID uint) error {
	defer observability.TrackQuery("insert", "comment_likes")()
	if err := r.db.WithContext(ctx).Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return models.NewInternalError(err)
		}
	}
	return nil
}

func (r *commentRepository) Unlike(ctx context.Context, userID, commentID uint) error {
	defer observability.TrackQuery("delete", "comment_likes")()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CommentLike{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
