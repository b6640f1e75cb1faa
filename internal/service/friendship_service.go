package service

import (
	"context"
	"log/slog"
	"time"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/notifications"
	"socialnet/internal/observability"
	"socialnet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultFriendsPageSize is used when a friends listing is requested without a size.
const DefaultFriendsPageSize = 5

// EventPublisher delivers realtime events to users.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, eventType string, payload any) error
}

// FriendshipService manages friend requests and the views derived from them.
type FriendshipService struct {
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewFriendshipService returns a new FriendshipService. publisher may be nil.
func NewFriendshipService(
	friendRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *FriendshipService {
	return &FriendshipService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		publisher:  publisher,
		logger:     observability.ServiceLogger(middleware.OrDefault(logger), "friendship_service"),
	}
}

// SendFriendRequest creates a PENDING friendship from requesterID to receiverID.
func (s *FriendshipService) SendFriendRequest(ctx context.Context, requesterID, receiverID uint) (view models.FriendshipView, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "FriendshipService", "SendFriendRequest",
		attribute.Int64("requester.id", int64(requesterID)),
		attribute.Int64("receiver.id", int64(receiverID)))
	defer func() {
		finish(err)
		observability.RecordFriendshipOperation("send", err)
	}()

	if _, err = s.userRepo.GetByID(ctx, requesterID); err != nil {
		return view, err
	}
	if _, err = s.userRepo.GetByID(ctx, receiverID); err != nil {
		return view, err
	}
	if requesterID == receiverID {
		return view, models.NewValidationError("cannot send a friend request to yourself")
	}

	for _, pair := range [][2]uint{{requesterID, receiverID}, {receiverID, requesterID}} {
		exists, existsErr := s.friendRepo.ExistsFrom(ctx, pair[0], pair[1])
		if existsErr != nil {
			return view, existsErr
		}
		if exists {
			return view, models.NewConflictError("a friend request already exists between these users")
		}
	}

	friendship := &models.Friendship{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.FriendshipStatusPending,
		CreatedAt:   time.Now(),
	}
	if err = s.friendRepo.Create(ctx, friendship); err != nil {
		return view, err
	}

	created, err := s.friendRepo.GetByID(ctx, friendship.ID)
	if err != nil {
		return view, err
	}
	view = models.NewFriendshipView(created)

	s.publish(ctx, receiverID, notifications.EventFriendRequestReceived, view)
	s.publish(ctx, requesterID, notifications.EventFriendRequestSent, view)
	return view, nil
}

// AcceptFriendRequest moves a PENDING friendship to ACCEPTED on behalf of its receiver.
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, friendshipID, actingUserID uint) (models.FriendshipView, error) {
	return s.respond(ctx, "accept", friendshipID, actingUserID, models.FriendshipStatusAccepted, notifications.EventFriendRequestAccepted)
}

// RejectFriendRequest moves a PENDING friendship to REJECTED on behalf of its receiver.
// A rejected pair can never be requested again.
func (s *FriendshipService) RejectFriendRequest(ctx context.Context, friendshipID, actingUserID uint) (models.FriendshipView, error) {
	return s.respond(ctx, "reject", friendshipID, actingUserID, models.FriendshipStatusRejected, notifications.EventFriendRequestRejected)
}

func (s *FriendshipService) respond(
	ctx context.Context,
	verb string,
	friendshipID, actingUserID uint,
	target models.FriendshipStatus,
	eventType string,
) (view models.FriendshipView, err error) {
	ctx, finish := observability.StartServiceSpan(ctx, "FriendshipService", verb,
		attribute.Int64("friendship.id", int64(friendshipID)),
		attribute.Int64("actor.id", int64(actingUserID)))
	defer func() {
		finish(err)
		observability.RecordFriendshipOperation(verb, err)
	}()

	check := func(f *models.Friendship) error {
		if f.Status != models.FriendshipStatusPending {
			return models.NewInvalidStateError("friend request is not pending")
		}
		if f.ReceiverID != actingUserID {
			return models.NewForbiddenError("only the receiver can " + verb + " this friend request")
		}
		return nil
	}
	apply := func(f *models.Friendship) {
		now := time.Now()
		f.Status = target
		f.UpdatedAt = &now
	}

	updated, err := s.friendRepo.Transition(ctx, friendshipID, check, apply)
	if err != nil {
		return view, err
	}
	view = models.NewFriendshipView(updated)

	s.publish(ctx, updated.RequesterID, eventType, view)
	return view, nil
}

// GetStatus reports the friendship between two users in either direction.
func (s *FriendshipService) GetStatus(ctx context.Context, userA, userB uint) (models.StatusView, error) {
	f, err := s.friendRepo.FindBetween(ctx, userA, userB)
	if err != nil {
		return models.StatusView{}, err
	}
	if f == nil {
		return models.NoneStatus(), nil
	}
	return models.NewStatusView(f), nil
}

// GetFriends lists the users with an ACCEPTED friendship with userID. Friends
// from requests userID sent come first, then friends from requests userID received.
func (s *FriendshipService) GetFriends(ctx context.Context, userID uint, page models.PageRequest) (models.PagedView[models.UserView], error) {
	if page.Size <= 0 {
		page.Size = DefaultFriendsPageSize
	}
	if page.Page < 0 {
		page.Page = 0
	}

	sent, err := s.friendRepo.ListAcceptedAsRequester(ctx, userID)
	if err != nil {
		return models.PagedView[models.UserView]{}, err
	}
	received, err := s.friendRepo.ListAcceptedAsReceiver(ctx, userID)
	if err != nil {
		return models.PagedView[models.UserView]{}, err
	}

	seen := make(map[uint]struct{}, len(sent)+len(received))
	friends := make([]models.UserView, 0, len(sent)+len(received))
	for _, f := range append(sent, received...) {
		other := f.OtherParty(userID)
		if _, dup := seen[other.ID]; dup {
			continue
		}
		seen[other.ID] = struct{}{}
		friends = append(friends, models.NewUserView(&other))
	}

	total := len(friends)
	start := page.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if page.Size < total-start {
		end = start + page.Size
	}
	return models.NewPagedView(friends[start:end], page, int64(total)), nil
}

// GetIncomingFriendRequests pages the PENDING requests userID received, newest first.
func (s *FriendshipService) GetIncomingFriendRequests(ctx context.Context, userID uint, page models.PageRequest) (models.PagedView[models.FriendshipView], error) {
	items, total, err := s.friendRepo.ListPendingIncoming(ctx, userID, page)
	if err != nil {
		return models.PagedView[models.FriendshipView]{}, err
	}
	return models.NewPagedView(models.NewFriendshipViews(items), page, total), nil
}

// GetOutgoingFriendRequests pages the PENDING requests userID sent, newest first.
func (s *FriendshipService) GetOutgoingFriendRequests(ctx context.Context, userID uint, page models.PageRequest) (models.PagedView[models.FriendshipView], error) {
	items, total, err := s.friendRepo.ListPendingOutgoing(ctx, userID, page)
	if err != nil {
		return models.PagedView[models.FriendshipView]{}, err
	}
	return models.NewPagedView(models.NewFriendshipViews(items), page, total), nil
}

// GetFriendshipsAllRelations returns every friendship of any status involving userID.
func (s *FriendshipService) GetFriendshipsAllRelations(ctx context.Context, userID uint) ([]models.FriendshipView, error) {
	items, err := s.friendRepo.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.NewFriendshipViews(items), nil
}

func (s *FriendshipService) publish(ctx context.Context, userID uint, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, userID, eventType, payload); err != nil {
		observability.LogAsyncOperationError(ctx, s.logger, "publish_"+eventType, err,
			slog.Uint64("user_id", uint64(userID)))
	}
}
