package repository

import (
	"context"
	"errors"

	"socialnet/internal/database"
	"socialnet/internal/models"
	"socialnet/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTransitionRaced is returned by Transition when the row left PENDING between
// the locked read and the write.
var ErrTransitionRaced = errors.New("friendship status changed concurrently")

// FriendshipRepository defines persistence operations for friendships.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id uint) (*models.Friendship, error)
	ExistsFrom(ctx context.Context, requesterID, receiverID uint) (bool, error)
	FindBetween(ctx context.Context, userA, userB uint) (*models.Friendship, error)
	Transition(ctx context.Context, id uint, check func(*models.Friendship) error, apply func(*models.Friendship)) (*models.Friendship, error)
	ListAcceptedAsRequester(ctx context.Context, userID uint) ([]models.Friendship, error)
	ListAcceptedAsReceiver(ctx context.Context, userID uint) ([]models.Friendship, error)
	ListPendingIncoming(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error)
	ListPendingOutgoing(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error)
	ListAllForUser(ctx context.Context, userID uint) ([]models.Friendship, error)
}

type friendshipRepository struct {
	db *gorm.DB
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) withParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Requester").Preload("Receiver")
}

// Create inserts a friendship. A pair unique index violation is a Conflict.
func (r *friendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	defer observability.TrackQuery("insert", "friendships")()
	if err := r.db.WithContext(ctx).Create(friendship).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("a friend request already exists between these users")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendshipRepository) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	defer observability.TrackQuery("select", "friendships")()
	var friendship models.Friendship
	if err := r.withParties(r.db.WithContext(ctx)).First(&friendship, id).Error; err != nil {
		return nil, lookupError(err, "Friendship", id)
	}
	return &friendship, nil
}

// ExistsFrom reports whether a row exists with exactly this requester and receiver.
func (r *friendshipRepository) ExistsFrom(ctx context.Context, requesterID, receiverID uint) (bool, error) {
	defer observability.TrackQuery("select", "friendships")()
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("requester_id = ? AND receiver_id = ?", requesterID, receiverID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FindBetween returns the row for the pair in either direction, or nil when none exists.
func (r *friendshipRepository) FindBetween(ctx context.Context, userA, userB uint) (*models.Friendship, error) {
	defer observability.TrackQuery("select", "friendships")()
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("id ASC").
		First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

// Transition loads the row under a write lock, runs check against it and, when check
// passes, applies the mutation and persists status and updated_at. The update is
// conditional on the row still being PENDING.
func (r *friendshipRepository) Transition(
	ctx context.Context,
	id uint,
	check func(*models.Friendship) error,
	apply func(*models.Friendship),
) (*models.Friendship, error) {
	defer observability.TrackQuery("transition", "friendships")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Friendship
		q := tx
		if database.IsPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&current, id).Error; err != nil {
			return lookupError(err, "Friendship", id)
		}

		if err := check(&current); err != nil {
			return err
		}
		apply(&current)

		res := tx.Model(&models.Friendship{}).
			Where("id = ? AND status = ?", id, models.FriendshipStatusPending).
			Updates(map[string]interface{}{
				"status":     current.Status,
				"updated_at": current.UpdatedAt,
			})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTransitionRaced
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransitionRaced) {
			return nil, models.NewInvalidStateError("friend request is no longer pending")
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}

	return r.GetByID(ctx, id)
}

func (r *friendshipRepository) ListAcceptedAsRequester(ctx context.Context, userID uint) ([]models.Friendship, error) {
	defer observability.TrackQuery("select", "friendships")()
	var friendships []models.Friendship
	if err := r.db.WithContext(ctx).
		Preload("Receiver").
		Where("requester_id = ? AND status = ?", userID, models.FriendshipStatusAccepted).
		Order("created_at ASC, id ASC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

func (r *friendshipRepository) ListAcceptedAsReceiver(ctx context.Context, userID uint) ([]models.Friendship, error) {
	defer observability.TrackQuery("select", "friendships")()
	var friendships []models.Friendship
	if err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("receiver_id = ? AND status = ?", userID, models.FriendshipStatusAccepted).
		Order("created_at ASC, id ASC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

func (r *friendshipRepository) ListPendingIncoming(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error) {
	return r.listPending(ctx, "receiver_id", userID, page)
}

func (r *friendshipRepository) ListPendingOutgoing(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error) {
	return r.listPending(ctx, "requester_id", userID, page)
}

// listPending pages PENDING rows where column equals userID, newest first.
// column is one of the two fixed party columns, never caller input.
func (r *friendshipRepository) listPending(ctx context.Context, column string, userID uint, page models.PageRequest) ([]models.Friendship, int64, error) {
	defer observability.TrackQuery("select", "friendships")()

	base := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where(column+" = ? AND status = ?", userID, models.FriendshipStatusPending)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var friendships []models.Friendship
	if err := paginate(r.withParties(base.Session(&gorm.Session{})), page).
		Order("created_at DESC, id DESC").
		Find(&friendships).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return friendships, total, nil
}

func (r *friendshipRepository) ListAllForUser(ctx context.Context, userID uint) ([]models.Friendship, error) {
	defer observability.TrackQuery("select", "friendships")()
	var friendships []models.Friendship
	if err := r.withParties(r.db.WithContext(ctx)).
		Where("requester_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}
