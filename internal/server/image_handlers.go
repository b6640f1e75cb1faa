package server

import (
	"io"

	"socialnet/internal/models"
	"socialnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadProfileImage handles POST /users/profile-image
// @Summary Upload the caller's profile picture
// @Description JPEG, PNG or WebP. Stored as WebP, at most 512 pixels per side.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image"
// @Success 200 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Router /users/profile-image [post]
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return nil
	}
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	view, err := s.profileImages.Upload(c.UserContext(), service.UploadProfileImageInput{
		UserID:  caller.UserID,
		Content: content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetProfileImage handles GET /users/:username/profile-image
// @Summary A user's profile picture
// @Tags users
// @Produce image/webp
// @Param username path string true "Username"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/profile-image [get]
func (s *Server) GetProfileImage(c *fiber.Ctx) error {
	path, err := s.profileImages.Path(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/webp")
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.SendFile(path)
}
