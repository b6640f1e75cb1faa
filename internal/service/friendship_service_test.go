package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/notifications"
	"socialnet/internal/repository"
	"socialnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFriendshipServiceSendSelfIsValidation(t *testing.T) {
	svc := NewFriendshipService(noopFriendshipRepo(), usersRepo(models.User{ID: 1}), nil, discardLogger())

	_, err := svc.SendFriendRequest(context.Background(), 1, 1)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestFriendshipServiceSendUnknownUserIsNotFound(t *testing.T) {
	svc := NewFriendshipService(noopFriendshipRepo(), usersRepo(models.User{ID: 1}), nil, discardLogger())

	_, err := svc.SendFriendRequest(context.Background(), 1, 99)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	// Lookups run before the self check.
	_, err = svc.SendFriendRequest(context.Background(), 99, 99)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFriendshipServiceSendChecksBothDirections(t *testing.T) {
	for _, existing := range [][2]uint{{1, 2}, {2, 1}} {
		repo := noopFriendshipRepo()
		repo.existsFromFn = func(_ context.Context, requester, receiver uint) (bool, error) {
			return requester == existing[0] && receiver == existing[1], nil
		}
		svc := NewFriendshipService(repo, usersRepo(models.User{ID: 1}, models.User{ID: 2}), nil, discardLogger())

		_, err := svc.SendFriendRequest(context.Background(), 1, 2)
		assert.True(t, models.HasCode(err, models.CodeConflict), "existing %v", existing)
	}
}

func TestFriendshipServiceSendSurvivesPublishFailure(t *testing.T) {
	anna := models.User{ID: 1, Username: "anna"}
	bob := models.User{ID: 2, Username: "bob"}

	var stored models.Friendship
	repo := noopFriendshipRepo()
	repo.createFn = func(_ context.Context, f *models.Friendship) error {
		f.ID = 10
		stored = *f
		return nil
	}
	repo.getByIDFn = func(context.Context, uint) (*models.Friendship, error) {
		f := stored
		f.Requester, f.Receiver = anna, bob
		return &f, nil
	}
	publisher := &recordingPublisher{err: errors.New("redis down")}
	svc := NewFriendshipService(repo, usersRepo(anna, bob), publisher, discardLogger())

	view, err := svc.SendFriendRequest(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(10), view.ID)
	assert.Equal(t, models.FriendshipStatusPending, view.Status)
	assert.Equal(t, "bob", view.Receiver.Username)
	assert.Nil(t, view.UpdatedAt)
	assert.Equal(t, []string{notifications.EventFriendRequestReceived, notifications.EventFriendRequestSent}, publisher.types())
	assert.Equal(t, uint(2), publisher.events[0].UserID)
}

func TestFriendshipServiceAcceptCheckOrder(t *testing.T) {
	tests := []struct {
		name   string
		status models.FriendshipStatus
		actor  uint
		code   string
	}{
		{"receiver accepts pending", models.FriendshipStatusPending, 2, ""},
		{"requester is forbidden", models.FriendshipStatusPending, 1, models.CodeForbidden},
		{"stranger is forbidden", models.FriendshipStatusPending, 3, models.CodeForbidden},
		{"accepted is invalid state even for stranger", models.FriendshipStatusAccepted, 3, models.CodeInvalidState},
		{"rejected is invalid state for receiver", models.FriendshipStatusRejected, 2, models.CodeInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopFriendshipRepo()
			repo.transitionFn = func(_ context.Context, id uint, check func(*models.Friendship) error, apply func(*models.Friendship)) (*models.Friendship, error) {
				f := &models.Friendship{ID: id, RequesterID: 1, ReceiverID: 2, Status: tt.status, CreatedAt: time.Now().Add(-time.Minute)}
				if err := check(f); err != nil {
					return nil, err
				}
				apply(f)
				return f, nil
			}
			svc := NewFriendshipService(repo, usersRepo(), nil, discardLogger())

			view, err := svc.AcceptFriendRequest(context.Background(), 10, tt.actor)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, models.FriendshipStatusAccepted, view.Status)
				require.NotNil(t, view.UpdatedAt)
				assert.True(t, view.UpdatedAt.After(view.CreatedAt))
				return
			}
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestFriendshipServiceGetFriendsDedupesAndPages(t *testing.T) {
	me := models.User{ID: 1, Username: "me"}
	a := models.User{ID: 2, Username: "alpha"}
	b := models.User{ID: 3, Username: "bravo"}
	c := models.User{ID: 4, Username: "charlie"}

	repo := noopFriendshipRepo()
	repo.listAcceptedAsRequesterFn = func(context.Context, uint) ([]models.Friendship, error) {
		return []models.Friendship{
			{RequesterID: 1, ReceiverID: 3, Requester: me, Receiver: b},
			{RequesterID: 1, ReceiverID: 2, Requester: me, Receiver: a},
		}, nil
	}
	repo.listAcceptedAsReceiverFn = func(context.Context, uint) ([]models.Friendship, error) {
		return []models.Friendship{
			{RequesterID: 4, ReceiverID: 1, Requester: c, Receiver: me},
			{RequesterID: 3, ReceiverID: 1, Requester: b, Receiver: me},
		}, nil
	}
	svc := NewFriendshipService(repo, usersRepo(), nil, discardLogger())
	ctx := context.Background()

	all, err := svc.GetFriends(ctx, 1, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	names := make([]string, 0, len(all.Items))
	for _, u := range all.Items {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"bravo", "alpha", "charlie"}, names)

	second, err := svc.GetFriends(ctx, 1, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "charlie", second.Items[0].Username)
	assert.Equal(t, 2, second.TotalPages)

	beyond, err := svc.GetFriends(ctx, 1, models.PageRequest{Page: 7, Size: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.NotNil(t, beyond.Items)
	assert.EqualValues(t, 3, beyond.Total)

	for _, page := range []models.PageRequest{
		{Page: math.MaxInt/5 + 1, Size: 5},
		{Page: math.MaxInt, Size: 3},
	} {
		huge, err := svc.GetFriends(ctx, 1, page)
		require.NoError(t, err)
		assert.Empty(t, huge.Items)
		assert.EqualValues(t, 3, huge.Total)
	}

	defaulted, err := svc.GetFriends(ctx, 1, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFriendsPageSize, defaulted.Size)
}

func TestFriendshipServiceStorageErrorsSurface(t *testing.T) {
	repo := noopFriendshipRepo()
	boom := models.NewInternalError(errors.New("connection reset"))
	repo.findBetweenFn = func(context.Context, uint, uint) (*models.Friendship, error) { return nil, boom }
	repo.listAcceptedAsReceiverFn = func(context.Context, uint) ([]models.Friendship, error) { return nil, boom }
	svc := NewFriendshipService(repo, usersRepo(), nil, discardLogger())

	_, err := svc.GetStatus(context.Background(), 1, 2)
	assert.True(t, models.HasCode(err, models.CodeInternal))
	_, err = svc.GetFriends(context.Background(), 1, models.PageRequest{Size: 5})
	assert.True(t, models.HasCode(err, models.CodeInternal))
}

// The remaining tests run against SQLite through the real repositories.

type friendshipFixture struct {
	db        *gorm.DB
	svc       *FriendshipService
	publisher *recordingPublisher
	a, b, c   *models.User
}

func newFriendshipFixture(t *testing.T) *friendshipFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	publisher := &recordingPublisher{}
	svc := NewFriendshipService(
		repository.NewFriendshipRepository(db),
		repository.NewUserRepository(db, nil),
		publisher,
		discardLogger(),
	)
	return &friendshipFixture{
		db:        db,
		svc:       svc,
		publisher: publisher,
		a:         testutil.CreateUser(t, db, "anna"),
		b:         testutil.CreateUser(t, db, "bob"),
		c:         testutil.CreateUser(t, db, "carl"),
	}
}

func TestFriendshipFlow_RequestAcceptListBothSides(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	sent, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusPending, sent.Status)
	assert.Equal(t, fx.a.ID, sent.Requester.ID)
	assert.Equal(t, fx.b.ID, sent.Receiver.ID)
	assert.Nil(t, sent.UpdatedAt)

	incoming, err := fx.svc.GetIncomingFriendRequests(ctx, fx.b.ID, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, incoming.Items, 1)
	outgoing, err := fx.svc.GetOutgoingFriendRequests(ctx, fx.a.ID, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, outgoing.Items, 1)

	friends, err := fx.svc.GetFriends(ctx, fx.a.ID, models.PageRequest{Page: 0, Size: 5})
	require.NoError(t, err)
	assert.Empty(t, friends.Items, "pending requests are not friendships")

	time.Sleep(2 * time.Millisecond)
	accepted, err := fx.svc.AcceptFriendRequest(ctx, sent.ID, fx.b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.UpdatedAt)
	assert.True(t, accepted.UpdatedAt.After(accepted.CreatedAt))

	aFriends, err := fx.svc.GetFriends(ctx, fx.a.ID, models.PageRequest{Page: 0, Size: 5})
	require.NoError(t, err)
	require.Len(t, aFriends.Items, 1)
	assert.Equal(t, "bob", aFriends.Items[0].Username)

	bFriends, err := fx.svc.GetFriends(ctx, fx.b.ID, models.PageRequest{Page: 0, Size: 5})
	require.NoError(t, err)
	require.Len(t, bFriends.Items, 1)
	assert.Equal(t, "anna", bFriends.Items[0].Username)

	incoming, err = fx.svc.GetIncomingFriendRequests(ctx, fx.b.ID, models.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, incoming.Items)

	assert.Equal(t, []string{
		notifications.EventFriendRequestReceived,
		notifications.EventFriendRequestSent,
		notifications.EventFriendRequestAccepted,
	}, fx.publisher.types())
}

func TestFriendshipFlow_NonReceiverCannotRespond(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	sent, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)

	_, err = fx.svc.AcceptFriendRequest(ctx, sent.ID, fx.c.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	_, err = fx.svc.AcceptFriendRequest(ctx, sent.ID, fx.a.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden), "the requester is not the receiver")
	_, err = fx.svc.RejectFriendRequest(ctx, sent.ID, fx.c.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	status, err := fx.svc.GetStatus(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusPending, status.Status)

	_, err = fx.svc.AcceptFriendRequest(ctx, 9999, fx.b.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFriendshipFlow_DuplicatesConflict(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	_, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)

	_, err = fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	_, err = fx.svc.SendFriendRequest(ctx, fx.b.ID, fx.a.ID)
	assert.True(t, models.HasCode(err, models.CodeConflict))
}

func TestFriendshipFlow_RejectionBlocksPermanently(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	sent, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	rejected, err := fx.svc.RejectFriendRequest(ctx, sent.ID, fx.b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusRejected, rejected.Status)
	require.NotNil(t, rejected.UpdatedAt)

	_, err = fx.svc.AcceptFriendRequest(ctx, sent.ID, fx.b.ID)
	assert.True(t, models.HasCode(err, models.CodeInvalidState))

	for _, pair := range [][2]uint{{fx.a.ID, fx.b.ID}, {fx.b.ID, fx.a.ID}} {
		_, err = fx.svc.SendFriendRequest(ctx, pair[0], pair[1])
		assert.True(t, models.HasCode(err, models.CodeConflict))
	}

	friends, err := fx.svc.GetFriends(ctx, fx.b.ID, models.PageRequest{Page: 0, Size: 5})
	require.NoError(t, err)
	assert.Empty(t, friends.Items)
}

func TestFriendshipFlow_StatusIsSymmetric(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	none, err := fx.svc.GetStatus(ctx, fx.a.ID, fx.c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NoneStatus(), none)
	assert.Nil(t, none.FriendshipID)
	assert.Nil(t, none.RequesterID)
	assert.Nil(t, none.ReceiverID)

	sent, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)

	ab, err := fx.svc.GetStatus(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	ba, err := fx.svc.GetStatus(ctx, fx.b.ID, fx.a.ID)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	require.NotNil(t, ab.FriendshipID)
	assert.Equal(t, sent.ID, *ab.FriendshipID)
	assert.Equal(t, fx.a.ID, *ab.RequesterID)
	assert.Equal(t, fx.b.ID, *ab.ReceiverID)
}

func TestFriendshipFlow_AllRelations(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	empty, err := fx.svc.GetFriendshipsAllRelations(ctx, fx.a.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	ab, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	_, err = fx.svc.RejectFriendRequest(ctx, ab.ID, fx.b.ID)
	require.NoError(t, err)
	_, err = fx.svc.SendFriendRequest(ctx, fx.c.ID, fx.a.ID)
	require.NoError(t, err)

	all, err := fx.svc.GetFriendshipsAllRelations(ctx, fx.a.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	statuses := map[models.FriendshipStatus]int{}
	for _, f := range all {
		statuses[f.Status]++
	}
	assert.Equal(t, 1, statuses[models.FriendshipStatusRejected])
	assert.Equal(t, 1, statuses[models.FriendshipStatusPending])
}

// The test database has a single connection, so the transactions queue up;
// every call after the first must see the terminal status.
func TestFriendshipFlow_CompetingTransitionsSucceedOnce(t *testing.T) {
	fx := newFriendshipFixture(t)
	ctx := context.Background()

	sent, err := fx.svc.SendFriendRequest(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = fx.svc.AcceptFriendRequest(ctx, sent.ID, fx.b.ID)
			} else {
				_, errs[i] = fx.svc.RejectFriendRequest(ctx, sent.ID, fx.b.ID)
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, models.HasCode(err, models.CodeInvalidState), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	status, err := fx.svc.GetStatus(ctx, fx.a.ID, fx.b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, models.FriendshipStatusPending, status.Status)
}
