package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"socialnet/internal/middleware"
	"socialnet/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "password123"

// Options configures a random seeding run.
type Options struct {
	NumUsers     int
	PostsPerUser int
	// FriendsPerUser is how many other users each user sends a request to.
	FriendsPerUser int
	Clean          bool
	// FastHash uses the minimum bcrypt cost, for tests and large runs.
	FastHash bool
	RandSeed int64
	MaxDays  int
}

// DefaultOptions is what SEED_ON_START and cmd/seed use without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:       20,
		PostsPerUser:   3,
		FriendsPerUser: 4,
		RandSeed:       1,
		MaxDays:        90,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users       int
	Posts       int
	Comments    int
	Likes       int
	Friendships int
}

// Seeder populates a database with demo data.
type Seeder struct {
	db     *gorm.DB
	opts   Options
	logger *slog.Logger
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, opts: opts, logger: middleware.OrDefault(logger).With("component", "seed")}
}

func (s *Seeder) passwordHash() (string, error) {
	cost := bcrypt.DefaultCost
	if s.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash demo password: %w", err)
	}
	return string(hash), nil
}

// SeedIfEmpty runs Seed only when no users exist yet.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (Summary, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return Summary{}, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "database already has users, skipping seed", slog.Int64("users", count))
		return Summary{}, nil
	}
	return s.Seed(ctx)
}

// Seed creates random users, posts, threaded comments, likes and friendships
// in one transaction. Every friendship pair is created at most once.
func (s *Seeder) Seed(ctx context.Context) (Summary, error) {
	var summary Summary
	hash, err := s.passwordHash()
	if err != nil {
		return summary, err
	}
	// #nosec G404: weak random is fine for demo data
	rng := rand.New(rand.NewSource(s.opts.RandSeed))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.opts.Clean {
			if err := Clean(tx); err != nil {
				return err
			}
		}
		f := NewFactory(tx, s.opts.RandSeed, hash, s.opts.MaxDays)

		users, err := createUniqueUsers(f, s.opts.NumUsers)
		if err != nil {
			return fmt.Errorf("create users: %w", err)
		}
		summary.Users = len(users)

		posts := make([]*models.Post, 0, len(users)*s.opts.PostsPerUser)
		for _, u := range users {
			for i := 0; i < s.opts.PostsPerUser; i++ {
				posts = append(posts, f.BuildPost(u))
			}
		}
		if err := f.CreatePostsBatch(posts); err != nil {
			return fmt.Errorf("create posts: %w", err)
		}
		summary.Posts = len(posts)

		if len(users) < 2 {
			return nil
		}
		for _, post := range posts {
			n, likes, err := s.seedDiscussion(f, rng, users, post)
			if err != nil {
				return err
			}
			summary.Comments += n
			summary.Likes += likes
		}

		n, err := s.seedFriendships(f, rng, users)
		if err != nil {
			return err
		}
		summary.Friendships = n
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	s.logger.InfoContext(ctx, "seed complete",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("likes", summary.Likes),
		slog.Int("friendships", summary.Friendships))
	return summary, nil
}

func createUniqueUsers(f *Factory, n int) ([]*models.User, error) {
	seen := make(map[string]struct{}, n)
	users := make([]*models.User, 0, n)
	for len(users) < n {
		u := f.BuildUser()
		if _, dup := seen[u.Username]; dup {
			continue
		}
		seen[u.Username] = struct{}{}
		if err := f.db.Create(u).Error; err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// seedDiscussion adds up to three top level comments to post, each with an
// optional reply, and likes from random other users.
func (s *Seeder) seedDiscussion(f *Factory, rng *rand.Rand, users []*models.User, post *models.Post) (comments, likes int, err error) {
	for i := rng.Intn(4); i > 0; i-- {
		author := users[rng.Intn(len(users))]
		top, err := f.CreateComment(author, post, nil)
		if err != nil {
			return 0, 0, fmt.Errorf("create comment: %w", err)
		}
		comments++
		if rng.Intn(2) == 0 {
			replier := users[rng.Intn(len(users))]
			if _, err := f.CreateComment(replier, post, top); err != nil {
				return 0, 0, fmt.Errorf("create reply: %w", err)
			}
			comments++
		}
		if liker := users[rng.Intn(len(users))]; liker.ID != author.ID {
			if err := f.CreateCommentLike(liker, top); err != nil {
				return 0, 0, fmt.Errorf("create comment like: %w", err)
			}
			likes++
		}
	}

	for _, idx := range rng.Perm(len(users))[:rng.Intn(len(users))] {
		liker := users[idx]
		if liker.ID == post.UserID {
			continue
		}
		if err := f.CreatePostLike(liker, post); err != nil {
			return 0, 0, fmt.Errorf("create post like: %w", err)
		}
		likes++
	}
	return comments, likes, nil
}

// seedFriendships sends up to FriendsPerUser requests from each user, mostly accepted.
func (s *Seeder) seedFriendships(f *Factory, rng *rand.Rand, users []*models.User) (int, error) {
	type pair struct{ low, high uint }
	taken := make(map[pair]struct{})
	created := 0
	for _, requester := range users {
		sent := 0
		for _, idx := range rng.Perm(len(users)) {
			if sent >= s.opts.FriendsPerUser {
				break
			}
			receiver := users[idx]
			if receiver.ID == requester.ID {
				continue
			}
			low, high := models.NormalizePair(requester.ID, receiver.ID)
			if _, ok := taken[pair{low, high}]; ok {
				continue
			}
			taken[pair{low, high}] = struct{}{}

			status := models.FriendshipStatusAccepted
			switch roll := rng.Intn(10); {
			case roll >= 8:
				status = models.FriendshipStatusPending
			case roll == 7:
				status = models.FriendshipStatusRejected
			}
			if _, err := f.CreateFriendship(requester, receiver, status); err != nil {
				return created, fmt.Errorf("create friendship: %w", err)
			}
			sent++
			created++
		}
	}
	return created, nil
}

// Clean deletes every row the seeder writes, children first.
func Clean(db *gorm.DB) error {
	tx := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{
		&models.CommentLike{},
		&models.PostLike{},
		&models.Comment{},
		&models.Post{},
		&models.Friendship{},
		&models.User{},
	} {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clean %T: %w", m, err)
		}
	}
	return nil
}
