// Package seed creates demo and test data: random users, posts, comments,
// likes and friendships, or a fixed graph loaded from a YAML fixture.
package seed

import (
	"fmt"
	"strings"
	"time"

	"socialnet/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

const maxPostText = 200

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	maxDays int
	// password is the bcrypt hash given to every generated user.
	password string
}

// NewFactory returns a Factory writing to db. The same seed produces the same data.
func NewFactory(db *gorm.DB, seed int64, passwordHash string, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		db:       db,
		faker:    gofakeit.New(seed),
		maxDays:  maxDays,
		password: passwordHash,
	}
}

// BuildUser constructs a USER without saving it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, f.faker.Number(10, 9999)))
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, username)

	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    f.password,
		Role:        models.RoleUser,
		DisplayName: first + " " + last,
		Bio:         truncate(f.faker.Sentence(12), 500),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post by user with a creation time spread over the last maxDays.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Text:      truncate(f.faker.Sentence(f.faker.Number(4, 20)), maxPostText),
		UserID:    user.ID,
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in one statement.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a comment by user on post, as a reply when parent is set.
func (f *Factory) CreateComment(user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		Content: f.faker.Sentence(f.faker.Number(3, 15)),
		UserID:  user.ID,
		PostID:  post.ID,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreatePostLike persists a like from user on post.
func (f *Factory) CreatePostLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.PostLike{UserID: user.ID, PostID: post.ID}).Error
}

// CreateCommentLike persists a like from user on comment.
func (f *Factory) CreateCommentLike(user *models.User, comment *models.Comment) error {
	return f.db.Create(&models.CommentLike{UserID: user.ID, CommentID: comment.ID}).Error
}

// CreateFriendship persists a friendship in the given status. Answered
// requests get an update time after their creation time.
func (f *Factory) CreateFriendship(requester, receiver *models.User, status models.FriendshipStatus) (*models.Friendship, error) {
	created := f.pastTime()
	friendship := &models.Friendship{
		RequesterID: requester.ID,
		ReceiverID:  receiver.ID,
		Status:      status,
		CreatedAt:   created,
	}
	if status != models.FriendshipStatusPending {
		answered := created.Add(time.Duration(f.faker.Number(1, 72)) * time.Hour)
		friendship.UpdatedAt = &answered
	}
	if err := f.db.Create(friendship).Error; err != nil {
		return nil, err
	}
	return friendship, nil
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
