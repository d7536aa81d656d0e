package server

import (
	"chirp/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetHomeFeed handles GET /api/feed?limit=
// @Summary Home feed
// @Description Top-level posts by the viewer and the users they follow, newest activity first
// @Tags feed
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {array} models.PostView
// @Failure 401 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetHomeFeed(c *fiber.Ctx) error {
	views, err := s.feedService.HomeFeed(c.UserContext(), middleware.ViewerID(c), parseLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(views)
}

// GetLatestPosts handles GET /api/explore/posts?limit=
// @Summary Latest posts
// @Tags explore
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {array} models.PostView
// @Router /explore/posts [get]
func (s *Server) GetLatestPosts(c *fiber.Ctx) error {
	views, err := s.feedService.LatestPosts(c.UserContext(), middleware.ViewerID(c), parseLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(views)
}

// GetLatestUsers handles GET /api/explore/users?limit=
// @Summary Newest users
// @Tags explore
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {array} models.UserView
// @Router /explore/users [get]
func (s *Server) GetLatestUsers(c *fiber.Ctx) error {
	limit := parseLimit(c)
	if limit == 0 {
		limit = s.config.FeedPageSize
	}
	users, err := s.graphService.LatestUsers(c.UserContext(), middleware.ViewerID(c), limit)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}
