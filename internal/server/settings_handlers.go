package server

import (
	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// settingsResponse exposes the private fields the public user JSON omits.
type settingsResponse struct {
	*models.User
	Email string `json:"email"`
}

// GetSettings handles GET /api/settings
// @Summary Get account settings
// @Tags settings
// @Produce json
// @Success 200 {object} settingsResponse
// @Router /settings [get]
func (s *Server) GetSettings(c *fiber.Ctx) error {
	user, err := s.userService.Settings(c.UserContext(), middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(settingsResponse{User: user, Email: user.Email})
}

// UpdateSettings handles PUT /api/settings
// @Summary Update profile fields
// @Description Omitted fields are unchanged; an empty string clears a field
// @Tags settings
// @Accept json
// @Produce json
// @Param request body object{name=string,bio=string,location=string,website=string,avatar_url=string,cover_url=string} true "Profile"
// @Success 200 {object} settingsResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /settings [put]
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), middleware.ViewerID(c), req.input())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(settingsResponse{User: user, Email: user.Email})
}

// DeleteAccount handles DELETE /api/settings
// @Summary Delete the account
// @Description Removes the user with their posts, likes and follow edges
// @Tags settings
// @Success 204
// @Router /settings [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.userService.DeleteAccount(c.UserContext(), middleware.ViewerID(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
