package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"socialnet/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a fixed social graph, usually loaded from YAML:
//
//	users:
//	  - username: alice
//	    password: secret123
//	    role: ADMIN
//	friendships:
//	  - requester: alice
//	    receiver: bob
//	    status: ACCEPTED
//	posts:
//	  - author: alice
//	    text: hello world
type Fixture struct {
	Users       []FixtureUser       `yaml:"users"`
	Friendships []FixtureFriendship `yaml:"friendships"`
	Posts       []FixturePost       `yaml:"posts"`
}

// FixtureUser describes one account. Email defaults to username@example.com,
// password to DemoPassword and role to USER.
type FixtureUser struct {
	Username    string      `yaml:"username"`
	Email       string      `yaml:"email"`
	Password    string      `yaml:"password"`
	Role        models.Role `yaml:"role"`
	DisplayName string      `yaml:"display_name"`
	Bio         string      `yaml:"bio"`
}

// FixtureFriendship references users by username. Status defaults to PENDING.
type FixtureFriendship struct {
	Requester string                  `yaml:"requester"`
	Receiver  string                  `yaml:"receiver"`
	Status    models.FriendshipStatus `yaml:"status"`
}

// FixturePost is a post by a fixture user.
type FixturePost struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and checks a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) validate() error {
	known := make(map[string]struct{}, len(fx.Users))
	for i := range fx.Users {
		u := &fx.Users[i]
		if u.Username == "" {
			return fmt.Errorf("fixture user %d has no username", i)
		}
		if _, dup := known[u.Username]; dup {
			return fmt.Errorf("fixture user %q listed twice", u.Username)
		}
		known[u.Username] = struct{}{}
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if !u.Role.Valid() {
			return fmt.Errorf("fixture user %q has unknown role %q", u.Username, u.Role)
		}
	}

	type pair struct{ a, b string }
	pairs := make(map[pair]struct{}, len(fx.Friendships))
	for i := range fx.Friendships {
		fr := &fx.Friendships[i]
		for _, name := range []string{fr.Requester, fr.Receiver} {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("fixture friendship %d references unknown user %q", i, name)
			}
		}
		if fr.Requester == fr.Receiver {
			return fmt.Errorf("fixture friendship %d pairs %q with itself", i, fr.Requester)
		}
		a, b := fr.Requester, fr.Receiver
		if a > b {
			a, b = b, a
		}
		if _, dup := pairs[pair{a, b}]; dup {
			return fmt.Errorf("fixture lists %q and %q as friends twice", a, b)
		}
		pairs[pair{a, b}] = struct{}{}

		switch fr.Status {
		case "":
			fr.Status = models.FriendshipStatusPending
		case models.FriendshipStatusPending, models.FriendshipStatusAccepted, models.FriendshipStatusRejected:
		default:
			return fmt.Errorf("fixture friendship %d has unknown status %q", i, fr.Status)
		}
	}

	for i, p := range fx.Posts {
		if _, ok := known[p.Author]; !ok {
			return fmt.Errorf("fixture post %d references unknown user %q", i, p.Author)
		}
	}
	return nil
}

// ApplyFixture writes fx in one transaction and returns the created users by username.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(fx.Users))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.opts.Clean {
			if err := Clean(tx); err != nil {
				return err
			}
		}
		cost := bcrypt.DefaultCost
		if s.opts.FastHash {
			cost = bcrypt.MinCost
		}
		f := NewFactory(tx, s.opts.RandSeed, "", s.opts.MaxDays)

		for _, fu := range fx.Users {
			password := fu.Password
			if password == "" {
				password = DemoPassword
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return fmt.Errorf("hash password for %q: %w", fu.Username, err)
			}
			user, err := f.CreateUser(func(u *models.User) {
				u.Username = fu.Username
				u.Email = strings.ToLower(fu.Email)
				if u.Email == "" {
					u.Email = fu.Username + "@example.com"
				}
				u.Password = string(hash)
				u.Role = fu.Role
				u.DisplayName = fu.DisplayName
				if u.DisplayName == "" {
					u.DisplayName = fu.Username
				}
				u.Bio = fu.Bio
			})
			if err != nil {
				return fmt.Errorf("create user %q: %w", fu.Username, err)
			}
			users[fu.Username] = user
		}

		for _, fr := range fx.Friendships {
			if _, err := f.CreateFriendship(users[fr.Requester], users[fr.Receiver], fr.Status); err != nil {
				return fmt.Errorf("create friendship %s -> %s: %w", fr.Requester, fr.Receiver, err)
			}
		}

		for _, fp := range fx.Posts {
			post := &models.Post{Text: fp.Text, UserID: users[fp.Author].ID}
			if err := tx.Create(post).Error; err != nil {
				return fmt.Errorf("create post by %q: %w", fp.Author, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "fixture applied",
		"users", len(fx.Users), "friendships", len(fx.Friendships), "posts", len(fx.Posts))
	return users, nil
}
