package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"socialnet/internal/models"
)

var errUnexpectedCall = errors.New("unexpected call")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type friendshipRepoStub struct {
	createFn                  func(context.Context, *models.Friendship) error
	getByIDFn                 func(context.Context, uint) (*models.Friendship, error)
	existsFromFn              func(context.Context, uint, uint) (bool, error)
	findBetweenFn             func(context.Context, uint, uint) (*models.Friendship, error)
	transitionFn              func(context.Context, uint, func(*models.Friendship) error, func(*models.Friendship)) (*models.Friendship, error)
	listAcceptedAsRequesterFn func(context.Context, uint) ([]models.Friendship, error)
	listAcceptedAsReceiverFn  func(context.Context, uint) ([]models.Friendship, error)
	listPendingIncomingFn     func(context.Context, uint, models.PageRequest) ([]models.Friendship, int64, error)
	listPendingOutgoingFn     func(context.Context, uint, models.PageRequest) ([]models.Friendship, int64, error)
	listAllForUserFn          func(context.Context, uint) ([]models.Friendship, error)
}

func (s *friendshipRepoStub) Create(ctx context.Context, f *models.Friendship) error {
	return s.createFn(ctx, f)
}
func (s *friendshipRepoStub) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	return s.getByIDFn(ctx, id)
}
func (s *friendshipRepoStub) ExistsFrom(ctx context.Context, requesterID, receiverID uint) (bool, error) {
	return s.existsFromFn(ctx, requesterID, receiverID)
}
func (s *friendshipRepoStub) FindBetween(ctx context.Context, a, b uint) (*models.Friendship, error) {
	return s.findBetweenFn(ctx, a, b)
}
func (s *friendshipRepoStub) Transition(ctx context.Context, id uint, check func(*models.Friendship) error, apply func(*models.Friendship)) (*models.Friendship, error) {
	return s.transitionFn(ctx, id, check, apply)
}
func (s *friendshipRepoStub) ListAcceptedAsRequester(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.listAcceptedAsRequesterFn(ctx, userID)
}
func (s *friendshipRepoStub) ListAcceptedAsReceiver(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.listAcceptedAsReceiverFn(ctx, userID)
}
func (s *friendshipRepoStub) ListPendingIncoming(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error) {
	return s.listPendingIncomingFn(ctx, userID, page)
}
func (s *friendshipRepoStub) ListPendingOutgoing(ctx context.Context, userID uint, page models.PageRequest) ([]models.Friendship, int64, error) {
	return s.listPendingOutgoingFn(ctx, userID, page)
}
func (s *friendshipRepoStub) ListAllForUser(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.listAllForUserFn(ctx, userID)
}

func noopFriendshipRepo() *friendshipRepoStub {
	return &friendshipRepoStub{
		createFn:      func(context.Context, *models.Friendship) error { return errUnexpectedCall },
		getByIDFn:     func(context.Context, uint) (*models.Friendship, error) { return nil, errUnexpectedCall },
		existsFromFn:  func(context.Context, uint, uint) (bool, error) { return false, nil },
		findBetweenFn: func(context.Context, uint, uint) (*models.Friendship, error) { return nil, nil },
		transitionFn: func(context.Context, uint, func(*models.Friendship) error, func(*models.Friendship)) (*models.Friendship, error) {
			return nil, errUnexpectedCall
		},
		listAcceptedAsRequesterFn: func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
		listAcceptedAsReceiverFn:  func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
		listPendingIncomingFn: func(context.Context, uint, models.PageRequest) ([]models.Friendship, int64, error) {
			return nil, 0, nil
		},
		listPendingOutgoingFn: func(context.Context, uint, models.PageRequest) ([]models.Friendship, int64, error) {
			return nil, 0, nil
		},
		listAllForUserFn: func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
	}
}

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, models.PageRequest) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, page models.PageRequest) ([]models.User, int64, error) {
	return s.listFn(ctx, page)
}

// usersRepo resolves every id in users and reports NotFound for the rest.
func usersRepo(users ...models.User) *userRepoStub {
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			u, ok := byID[id]
			if !ok {
				return nil, models.NewNotFoundError("User", id)
			}
			return &u, nil
		},
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return errUnexpectedCall },
		updateFn:        func(context.Context, *models.User) error { return errUnexpectedCall },
		deleteFn:        func(context.Context, uint) error { return errUnexpectedCall },
		listFn: func(context.Context, models.PageRequest) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

type publishedEvent struct {
	UserID  uint
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Type: eventType, Payload: payload})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
