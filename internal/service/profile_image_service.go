package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"socialnet/internal/config"
	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/observability"
	"socialnet/internal/repository"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	profileImageMaxSide = 512
	profileImageQuality = 82
)

// ProfileImageService stores one WebP profile picture per user on disk.
type ProfileImageService struct {
	userRepo repository.UserRepository
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

type UploadProfileImageInput struct {
	UserID  uint
	Content []byte
}

func NewProfileImageService(userRepo repository.UserRepository, cfg *config.Config, logger *slog.Logger) *ProfileImageService {
	return &ProfileImageService{
		userRepo: userRepo,
		dir:      cfg.ImageUploadDir,
		maxBytes: int64(cfg.ImageMaxUploadSizeMB) * 1024 * 1024,
		logger:   observability.ServiceLogger(middleware.OrDefault(logger), "profile_image_service"),
	}
}

// ProfileImageURL is the public path a user's picture is served from.
func ProfileImageURL(username string) string {
	return "/users/" + username + "/profile-image"
}

// Upload validates, downsizes and stores the picture, then records its URL on the user.
func (s *ProfileImageService) Upload(ctx context.Context, in UploadProfileImageInput) (models.UserView, error) {
	if len(in.Content) == 0 {
		return models.UserView{}, models.NewValidationError("image file is required")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return models.UserView{}, models.NewValidationError("image exceeds the maximum upload size")
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return models.UserView{}, models.NewValidationError("image must be JPEG, PNG or WebP")
	}

	src, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return models.UserView{}, models.NewValidationError("image could not be decoded")
	}
	encoded, err := encodeWebP(resizeToFit(src, profileImageMaxSide, profileImageMaxSide), profileImageQuality)
	if err != nil {
		return models.UserView{}, models.NewInternalError(err)
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return models.UserView{}, err
	}
	if err := writeBytesToFile(s.pathFor(user.Username), encoded); err != nil {
		return models.UserView{}, models.NewInternalError(err)
	}

	user.ProfileImagePath = ProfileImageURL(user.Username)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return models.UserView{}, err
	}
	s.logger.InfoContext(ctx, "profile image stored",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.Int("bytes", len(encoded)))
	return models.NewUserView(user), nil
}

// Path returns the file holding username's picture.
func (s *ProfileImageService) Path(ctx context.Context, username string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewNotFoundError("User", username)
	}
	path := s.pathFor(user.Username)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", models.NewNotFoundError("Profile image", username)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}

func (s *ProfileImageService) pathFor(username string) string {
	return filepath.Join(s.dir, filepath.Base(username)+".webp")
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
