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

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   EventPublisher
	logger      *slog.Logger
}

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	Content         string
	ParentCommentID *uint
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
		logger:      observability.ServiceLogger(middleware.OrDefault(logger), "comment_service"),
	}
}

// Create adds a comment to a post, or a reply when ParentCommentID is set. The
// parent must belong to the same post.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (models.CommentView, error) {
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateCommentContent(content); err != nil {
		return models.CommentView{}, models.NewValidationError(err.Error())
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return models.CommentView{}, err
	}

	var parent *models.Comment
	if in.ParentCommentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *in.ParentCommentID, 0)
		if err != nil {
			return models.CommentView{}, err
		}
		if parent.PostID != in.PostID {
			return models.CommentView{}, models.NewValidationError("parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Content:         content,
		UserID:          in.UserID,
		PostID:          in.PostID,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return models.CommentView{}, err
	}
	created, err := s.commentRepo.GetByID(ctx, comment.ID, in.UserID)
	if err != nil {
		return models.CommentView{}, err
	}
	view := models.NewCommentView(created)

	recipients := map[uint]struct{}{post.UserID: {}}
	if parent != nil {
		recipients[parent.UserID] = struct{}{}
	}
	delete(recipients, in.UserID)
	for userID := range recipients {
		s.publish(ctx, userID, view)
	}
	return view, nil
}

// ListTopLevel pages the comments of a post that are not replies, oldest first.
func (s *CommentService) ListTopLevel(ctx context.Context, postID, viewerID uint, page models.PageRequest) (models.PagedView[models.CommentView], error) {
	comments, total, err := s.commentRepo.ListTopLevel(ctx, postID, page, viewerID)
	if err != nil {
		return models.PagedView[models.CommentView]{}, err
	}
	return models.NewPagedView(models.NewCommentViews(comments), page, total), nil
}

// ListReplies returns the direct replies to a comment, oldest first.
func (s *CommentService) ListReplies(ctx context.Context, commentID, viewerID uint) ([]models.CommentView, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID, 0); err != nil {
		return nil, err
	}
	replies, err := s.commentRepo.ListReplies(ctx, commentID, viewerID)
	if err != nil {
		return nil, err
	}
	return models.NewCommentViews(replies), nil
}

// Update edits a comment. Only its author may edit.
func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (models.CommentView, error) {
	comment, err := s.owned(ctx, in.CommentID, in.UserID)
	if err != nil {
		return models.CommentView{}, err
	}
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateCommentContent(content); err != nil {
		return models.CommentView{}, models.NewValidationError(err.Error())
	}
	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return models.CommentView{}, err
	}
	return models.NewCommentView(comment), nil
}

// Delete removes a comment and its replies. Only its author may delete.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint) error {
	if _, err := s.owned(ctx, commentID, userID); err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// ToggleLike likes the comment for userID, or removes the like if present.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID uint) (bool, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		return false, err
	}
	if comment.Liked {
		return false, s.commentRepo.Unlike(ctx, userID, commentID)
	}
	return true, s.commentRepo.Like(ctx, userID, commentID)
}

func (s *CommentService) owned(ctx context.Context, commentID, userID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError("you can only modify your own comments")
	}
	return comment, nil
}

func (s *CommentService) publish(ctx context.Context, userID uint, view models.CommentView) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, userID, notifications.EventCommentCreated, view); err != nil {
		observability.LogAsyncOperationError(ctx, s.logger, "publish_comment_created", err,
			slog.Uint64("comment_id", uint64(view.ID)))
	}
}
