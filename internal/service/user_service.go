package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/observability"
	"socialnet/internal/repository"
	"socialnet/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts and profiles.
type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	logger   *slog.Logger
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// CreateUserInput is used by administrators to create accounts with a role.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	Role        models.Role
	DisplayName string
	Bio         string
}

// UpdateUserInput holds optional changes; nil fields are left unchanged.
type UpdateUserInput struct {
	Email       *string
	Password    *string
	Role        *models.Role
	DisplayName *string
	Bio         *string
}

// UpdateProfileInput changes the free-text profile of a user.
type UpdateProfileInput struct {
	UserID           uint
	DisplayName      string
	Bio              string
	ProfileImagePath string
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		postRepo: postRepo,
		logger:   observability.ServiceLogger(middleware.OrDefault(logger), "user_service"),
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func validateCredentials(username, email, password string) error {
	if err := validation.ValidateUsername(username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// Register creates a USER account whose display name defaults to the username.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.UserView, error) {
	return s.Create(ctx, CreateUserInput{
		Username:    in.Username,
		Email:       in.Email,
		Password:    in.Password,
		Role:        models.RoleUser,
		DisplayName: strings.TrimSpace(in.Username),
	})
}

// Create validates and stores a new account.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (models.UserView, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateCredentials(in.Username, in.Email, in.Password); err != nil {
		return models.UserView{}, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return models.UserView{}, models.NewValidationError("role must be USER or ADMIN")
	}
	if err := validation.ValidateProfile(in.DisplayName, in.Bio); err != nil {
		return models.UserView{}, models.NewValidationError(err.Error())
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return models.UserView{}, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.UserView{}, err
	}
	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hash,
		Role:        in.Role,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return models.UserView{}, err
	}
	s.logger.InfoContext(ctx, "user created", slog.Uint64("user_id", uint64(user.ID)), slog.String("role", string(user.Role)))
	return models.NewUserView(user), nil
}

func (s *UserService) ensureAvailable(ctx context.Context, username, email string) error {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing == nil {
		existing, err = s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
	}
	if existing != nil {
		return models.NewConflictError("username or email already taken")
	}
	return nil
}

// Authenticate checks username and password and returns the account.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Compare against a fixed hash so unknown users cost the same as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, models.NewUnauthorizedError("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.WarnContext(ctx, "stored password hash unusable", slog.Uint64("user_id", uint64(user.ID)))
		}
		return nil, models.NewUnauthorizedError("invalid username or password")
	}
	return user, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), bcrypt.DefaultCost)

func (s *UserService) GetByID(ctx context.Context, id uint) (models.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return models.UserView{}, err
	}
	return models.NewUserView(user), nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// List pages every account. Admin only at the HTTP layer.
func (s *UserService) List(ctx context.Context, page models.PageRequest) (models.PagedView[models.UserView], error) {
	users, total, err := s.userRepo.List(ctx, page)
	if err != nil {
		return models.PagedView[models.UserView]{}, err
	}
	return models.NewPagedView(models.NewUserViews(users), page, total), nil
}

// Update applies in to user id. Only the user or an admin may update, and only
// an admin may change roles.
func (s *UserService) Update(ctx context.Context, id uint, actor *middleware.Identity, in UpdateUserInput) (models.UserView, error) {
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return models.UserView{}, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return models.UserView{}, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return models.UserView{}, models.NewValidationError(err.Error())
		}
		if email != user.Email {
			taken, err := s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return models.UserView{}, err
			}
			if taken != nil {
				return models.UserView{}, models.NewConflictError("username or email already taken")
			}
		}
		user.Email = email
	}
	if in.Role != nil && *in.Role != user.Role {
		if actor.Role != models.RoleAdmin {
			return models.UserView{}, models.NewForbiddenError("only an admin can change roles")
		}
		if !in.Role.Valid() {
			return models.UserView{}, models.NewValidationError("role must be USER or ADMIN")
		}
		user.Role = *in.Role
	}
	if in.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if err := validation.ValidateProfile(user.DisplayName, user.Bio); err != nil {
		return models.UserView{}, models.NewValidationError(err.Error())
	}
	if in.Password != nil && *in.Password != "" {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return models.UserView{}, models.NewValidationError(err.Error())
		}
		if user.Password, err = HashPassword(*in.Password); err != nil {
			return models.UserView{}, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return models.UserView{}, err
	}
	return models.NewUserView(user), nil
}

// Delete removes user id. Only the user or an admin may delete.
func (s *UserService) Delete(ctx context.Context, id uint, actor *middleware.Identity) error {
	if err := authorizeSelfOrAdmin(actor, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", slog.Uint64("user_id", uint64(id)), slog.Uint64("actor_id", uint64(actor.UserID)))
	return nil
}

// UpdateProfile replaces the display name and bio, and the image path when given.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (models.UserView, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return models.UserView{}, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if err := validation.ValidateProfile(displayName, in.Bio); err != nil {
		return models.UserView{}, models.NewValidationError(err.Error())
	}
	user.DisplayName = displayName
	user.Bio = in.Bio
	if in.ProfileImagePath != "" {
		user.ProfileImagePath = in.ProfileImagePath
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return models.UserView{}, err
	}
	return models.NewUserView(user), nil
}

// GetWithPosts returns the user together with their posts, newest first.
func (s *UserService) GetWithPosts(ctx context.Context, id, viewerID uint) (models.UserWithPostsView, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return models.UserWithPostsView{}, err
	}
	posts, err := s.postRepo.ListByUser(ctx, id, viewerID)
	if err != nil {
		return models.UserWithPostsView{}, err
	}
	return models.UserWithPostsView{
		User:  models.NewUserView(user),
		Posts: models.NewPostViews(posts),
	}, nil
}

func authorizeSelfOrAdmin(actor *middleware.Identity, userID uint) error {
	if actor == nil {
		return models.NewUnauthorizedError("authentication required")
	}
	if actor.UserID != userID && actor.Role != models.RoleAdmin {
		return models.NewForbiddenError("you can only modify your own account")
	}
	return nil
}
