package repository

import (
	"context"

	"socialnet/internal/cache"
	"socialnet/internal/models"
	"socialnet/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, page models.PageRequest, viewerID uint) ([]models.Post, int64, error)
	ListByUser(ctx context.Context, userID uint, viewerID uint) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewPostRepository creates a new post repository. c may be nil.
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	return &postRepository{db: db, cache: c}
}

// withDetails selects the like count and the viewer's like flag in the same query.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	const selectQuery = "posts.*, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS likes_count"

	db = db.Model(&models.Post{}).Preload("User")
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", false AS liked")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID serves the viewer-independent part from cache and resolves the viewer's
// like flag separately.
func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		defer observability.TrackQuery("select", "posts")()
		if err := r.withDetails(r.db.WithContext(ctx), 0).First(&post, "posts.id = ?", id).Error; err != nil {
			return lookupError(err, "Post", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	post.Liked = false
	if viewerID != 0 {
		liked, err := r.IsLiked(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		post.Liked = liked
	}
	return &post, nil
}

// List pages the feed newest first.
func (r *postRepository) List(ctx context.Context, page models.PageRequest, viewerID uint) ([]models.Post, int64, error) {
	defer observability.TrackQuery("select", "posts")()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if err := paginate(r.withDetails(r.db.WithContext(ctx), viewerID), page).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, viewerID uint) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var posts []models.Post
	if err := r.withDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	if err := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("content", "updated_at").
		Updates(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Like is idempotent; a concurrent duplicate is absorbed by the unique pair index.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	defer observability.TrackQuery("insert", "post_likes")()
	if err := r.db.WithContext(ctx).Create(&models.PostLike{UserID: userID, PostID: postID}).Error; err != nil {
		if !isUniqueConstraintError(err) {
			return models.NewInternalError(err)
		}
	}
	r.cache.InvalidatePost(ctx, postID)
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	defer observability.TrackQuery("delete", "post_likes")()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostLike{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.cache.InvalidatePost(ctx, postID)
	return nil
}
