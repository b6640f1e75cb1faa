package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"socialnet/internal/config"
	"socialnet/internal/models"
	"socialnet/internal/repository"
	"socialnet/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileImageFixture(t *testing.T, maxMB int) (*ProfileImageService, repository.UserRepository, *models.User, string) {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db, nil)
	dir := filepath.Join(t.TempDir(), "profiles")
	cfg := &config.Config{ImageUploadDir: dir, ImageMaxUploadSizeMB: maxMB}
	return NewProfileImageService(users, cfg, discardLogger()), users, testutil.CreateUser(t, db, "pictured"), dir
}

func TestProfileImageUploadResizesToWebP(t *testing.T) {
	svc, users, user, dir := newProfileImageFixture(t, 10)
	ctx := context.Background()

	view, err := svc.Upload(ctx, UploadProfileImageInput{UserID: user.ID, Content: testutil.NoisyPNG(t, 1024, 768)})
	require.NoError(t, err)
	assert.Equal(t, "/users/pictured/profile-image", view.ProfileImagePath)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ProfileImagePath, stored.ProfileImagePath)

	path, err := svc.Path(ctx, "pictured")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pictured.webp"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 384, cfg.Height)
}

func TestProfileImageSmallImageKeepsSize(t *testing.T) {
	svc, _, user, _ := newProfileImageFixture(t, 10)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadProfileImageInput{UserID: user.ID, Content: testutil.SolidJPEG(t, 40, 30)})
	require.NoError(t, err)

	path, err := svc.Path(ctx, "pictured")
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestProfileImageUploadRejects(t *testing.T) {
	svc, _, user, _ := newProfileImageFixture(t, 1)
	ctx := context.Background()

	cases := map[string][]byte{
		"empty":     nil,
		"not image": []byte("just some text, definitely not a picture"),
		"truncated": testutil.NoisyPNG(t, 16, 16)[:40],
		"too large": append(testutil.SolidJPEG(t, 8, 8), make([]byte, 1<<20)...),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upload(ctx, UploadProfileImageInput{UserID: user.ID, Content: content})
			assert.True(t, models.HasCode(err, models.CodeValidation))
		})
	}

	_, err := svc.Upload(ctx, UploadProfileImageInput{UserID: 9999, Content: testutil.SolidJPEG(t, 8, 8)})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestProfileImagePathNotFound(t *testing.T) {
	svc, _, _, _ := newProfileImageFixture(t, 1)
	ctx := context.Background()

	_, err := svc.Path(ctx, "pictured")
	assert.True(t, models.HasCode(err, models.CodeNotFound), "user without a picture")
	_, err = svc.Path(ctx, "nobody")
	assert.True(t, models.HasCode(err, models.CodeNotFound), "unknown user")
}

func TestResizeToFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 1200))
	out := resizeToFit(src, 512, 512)
	assert.Equal(t, 128, out.Bounds().Dx())
	assert.Equal(t, 512, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, small, resizeToFit(small, 512, 512))
}
