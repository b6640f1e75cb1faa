package service

import (
	"context"
	"log/slog"
	"strings"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/notifications"
	"socialnet/internal/observability"
	"socialnet/internal/repository"
	"socialnet/internal/validation"
)

// MaxFeedPageSize caps the page size of the post feed.
const MaxFeedPageSize = 5

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	publisher EventPublisher
	logger    *slog.Logger
}

type CreatePostInput struct {
	UserID uint
	Text   string
}

type UpdatePostInput struct {
	PostID uint
	Actor  *middleware.Identity
	Text   string
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		publisher: publisher,
		logger:    observability.ServiceLogger(middleware.OrDefault(logger), "post_service"),
	}
}

// List returns the feed, newest first. The page size is capped at MaxFeedPageSize.
func (s *PostService) List(ctx context.Context, viewerID uint, page models.PageRequest) (models.PagedView[models.PostView], error) {
	if page.Size <= 0 || page.Size > MaxFeedPageSize {
		page.Size = MaxFeedPageSize
	}
	posts, total, err := s.postRepo.List(ctx, page, viewerID)
	if err != nil {
		return models.PagedView[models.PostView]{}, err
	}
	return models.NewPagedView(models.NewPostViews(posts), page, total), nil
}

func (s *PostService) Get(ctx context.Context, id, viewerID uint) (models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return models.PostView{}, err
	}
	return models.NewPostView(post), nil
}

func (s *PostService) ListByUser(ctx context.Context, userID, viewerID uint) ([]models.PostView, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByUser(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}
	return models.NewPostViews(posts), nil
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (models.PostView, error) {
	text := strings.TrimSpace(in.Text)
	if err := validation.ValidatePostText(text); err != nil {
		return models.PostView{}, models.NewValidationError(err.Error())
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return models.PostView{}, err
	}

	post := &models.Post{Text: text, UserID: in.UserID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return models.PostView{}, err
	}
	return s.Get(ctx, post.ID, in.UserID)
}

// Update changes the text of a post. Only the author or an admin may edit.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (models.PostView, error) {
	post, err := s.authorize(ctx, in.PostID, in.Actor)
	if err != nil {
		return models.PostView{}, err
	}
	text := strings.TrimSpace(in.Text)
	if err := validation.ValidatePostText(text); err != nil {
		return models.PostView{}, models.NewValidationError(err.Error())
	}
	post.Text = text
	if err := s.postRepo.Update(ctx, post); err != nil {
		return models.PostView{}, err
	}
	return s.Get(ctx, post.ID, in.Actor.UserID)
}

// Delete removes a post. Only the author or an admin may delete.
func (s *PostService) Delete(ctx context.Context, postID uint, actor *middleware.Identity) error {
	if _, err := s.authorize(ctx, postID, actor); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

// ToggleLike likes the post for userID, or removes the like if present, and
// reports whether the post is liked afterwards.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return false, err
	}
	if post.Liked {
		return false, s.postRepo.Unlike(ctx, userID, postID)
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return false, err
	}

	if post.UserID != userID && s.publisher != nil {
		payload := map[string]any{"postId": post.ID, "userId": userID}
		if err := s.publisher.PublishUser(ctx, post.UserID, notifications.EventPostLiked, payload); err != nil {
			observability.LogAsyncOperationError(ctx, s.logger, "publish_post_liked", err, slog.Uint64("post_id", uint64(post.ID)))
		}
	}
	return true, nil
}

func (s *PostService) authorize(ctx context.Context, postID uint, actor *middleware.Identity) (*models.Post, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	post, err := s.postRepo.GetByID(ctx, postID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("you can only modify your own posts")
	}
	return post, nil
}
