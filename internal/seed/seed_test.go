package seed

import (
	"context"
	"testing"

	"socialnet/internal/models"
	"socialnet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_CreatesConsistentGraph(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Options{NumUsers: 8, PostsPerUser: 2, FriendsPerUser: 3, FastHash: true, RandSeed: 7, MaxDays: 10}

	summary, err := NewSeeder(db, opts, nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Users)
	assert.Equal(t, 16, summary.Posts)
	assert.Positive(t, summary.Friendships)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 8)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte(DemoPassword)))

	var friendships []models.Friendship
	require.NoError(t, db.Find(&friendships).Error)
	assert.Len(t, friendships, summary.Friendships)
	pairs := map[[2]uint]bool{}
	for _, f := range friendships {
		assert.NotEqual(t, f.RequesterID, f.ReceiverID)
		low, high := models.NormalizePair(f.RequesterID, f.ReceiverID)
		key := [2]uint{low, high}
		assert.False(t, pairs[key], "pair %v seeded twice", key)
		pairs[key] = true
		if f.Status == models.FriendshipStatusPending {
			assert.Nil(t, f.UpdatedAt)
		} else {
			require.NotNil(t, f.UpdatedAt)
			assert.True(t, f.UpdatedAt.After(f.CreatedAt))
		}
	}

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(summary.Comments), comments)

	var selfLikes int64
	require.NoError(t, db.Model(&models.PostLike{}).
		Joins("JOIN posts ON posts.id = post_likes.post_id").
		Where("posts.user_id = post_likes.user_id").
		Count(&selfLikes).Error)
	assert.Zero(t, selfLikes)
}

func TestSeedIfEmpty_SkipsPopulatedDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "existing")

	summary, err := NewSeeder(db, Options{NumUsers: 3, FastHash: true}, nil).SeedIfEmpty(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Users)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "stale")

	_, err := NewSeeder(db, Options{NumUsers: 2, PostsPerUser: 1, Clean: true, FastHash: true, RandSeed: 3}, nil).Seed(context.Background())
	require.NoError(t, err)

	var stale int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "stale").Count(&stale).Error)
	assert.Zero(t, stale)
}

func TestFactory_DeterministicAndValid(t *testing.T) {
	a := NewFactory(nil, 42, "hash", 0).BuildUser()
	b := NewFactory(nil, 42, "hash", 0).BuildUser()
	assert.Equal(t, a.Username, b.Username)
	assert.Regexp(t, `^[a-z0-9.]{3,50}$`, a.Username)
	assert.Equal(t, a.Username+"@example.com", a.Email)
	assert.Equal(t, models.RoleUser, a.Role)

	post := NewFactory(nil, 1, "", 5).BuildPost(&models.User{ID: 9})
	assert.Equal(t, uint(9), post.UserID)
	assert.LessOrEqual(t, len(post.Text), maxPostText)
	assert.GreaterOrEqual(t, len(post.Text), 3)
}

func TestLoadAndApplyFixture(t *testing.T) {
	fx, err := LoadFixture("testdata/demo.yml")
	require.NoError(t, err)
	require.Len(t, fx.Users, 3)
	assert.Equal(t, models.RoleUser, fx.Users[1].Role)
	assert.Equal(t, models.FriendshipStatusPending, fx.Friendships[1].Status)

	db := testutil.NewTestDB(t)
	users, err := NewSeeder(db, Options{FastHash: true}, nil).ApplyFixture(context.Background(), fx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.Equal(t, models.RoleAdmin, users["alice"].Role)
	assert.Equal(t, "Alice Admin", users["alice"].DisplayName)
	assert.Equal(t, "bob@example.com", users["bob"].Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users["bob"].Password), []byte("hunter22")))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users["carol"].Password), []byte(DemoPassword)))

	var accepted models.Friendship
	require.NoError(t, db.Where("requester_id = ? AND receiver_id = ?", users["alice"].ID, users["bob"].ID).First(&accepted).Error)
	assert.Equal(t, models.FriendshipStatusAccepted, accepted.Status)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, users["bob"].ID, posts[0].UserID)
}

func TestParseFixture_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown friend", "users: [{username: a}]\nfriendships: [{requester: a, receiver: ghost}]"},
		{"self friendship", "users: [{username: a}]\nfriendships: [{requester: a, receiver: a}]"},
		{"duplicate pair", "users: [{username: a}, {username: b}]\nfriendships: [{requester: a, receiver: b}, {requester: b, receiver: a}]"},
		{"bad status", "users: [{username: a}, {username: b}]\nfriendships: [{requester: a, receiver: b, status: MAYBE}]"},
		{"bad role", "users: [{username: a, role: OWNER}]"},
		{"duplicate user", "users: [{username: a}, {username: a}]"},
		{"unknown author", "users: [{username: a}]\nposts: [{author: b, text: hello}]"},
		{"malformed", "users: {"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
