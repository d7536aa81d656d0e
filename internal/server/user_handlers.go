package server

import (
	"context"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:username
// @Summary Get user profile
// @Description Profile header with counts and the viewer's relationship
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.graphService.Profile(c.UserContext(), c.Params("username"), middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}

// GetUserPosts handles GET /api/users/:username/posts
// @Summary Profile posts tab
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param limit query int false "Page size"
// @Success 200 {array} models.PostView
// @Router /users/{username}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	return s.profileTab(c, s.feedService.ProfilePosts)
}

// GetUserPostsAndReplies handles GET /api/users/:username/replies
// @Summary Profile posts and replies tab
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param limit query int false "Page size"
// @Success 200 {array} models.PostView
// @Router /users/{username}/replies [get]
func (s *Server) GetUserPostsAndReplies(c *fiber.Ctx) error {
	return s.profileTab(c, s.feedService.ProfilePostsAndReplies)
}

// GetUserLikes handles GET /api/users/:username/likes
// @Summary Profile likes tab
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param limit query int false "Page size"
// @Success 200 {array} models.PostView
// @Router /users/{username}/likes [get]
func (s *Server) GetUserLikes(c *fiber.Ctx) error {
	return s.profileTab(c, s.feedService.ProfileLikes)
}

type profileTabFunc func(ctx context.Context, username string, viewerID uint, limit int) ([]models.PostView, error)

func (s *Server) profileTab(c *fiber.Ctx, load profileTabFunc) error {
	views, err := load(c.UserContext(), c.Params("username"), middleware.ViewerID(c), parseLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(views)
}

// GetFollowers handles GET /api/users/:username/followers
// @Summary List followers
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} models.UserView
// @Router /users/{username}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	users, err := s.graphService.Followers(c.UserContext(), c.Params("username"), middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:username/following
// @Summary List followed users
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} models.UserView
// @Router /users/{username}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	users, err := s.graphService.Following(c.UserContext(), c.Params("username"), middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// FollowUser handles POST /api/users/:username/follow
// @Summary Follow a user
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileView
// @Failure 409 {object} models.ErrorResponse
// @Router /users/{username}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	viewerID := middleware.ViewerID(c)
	target, err := s.engagementService.Follow(c.UserContext(), viewerID, c.Params("username"))
	if err != nil {
		return respond(c, err)
	}
	return s.respondProfile(c, target.Username, viewerID)
}

// UnfollowUser handles DELETE /api/users/:username/follow
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	viewerID := middleware.ViewerID(c)
	target, err := s.engagementService.Unfollow(c.UserContext(), viewerID, c.Params("username"))
	if err != nil {
		return respond(c, err)
	}
	return s.respondProfile(c, target.Username, viewerID)
}

func (s *Server) respondProfile(c *fiber.Ctx, username string, viewerID uint) error {
	profile, err := s.graphService.Profile(c.UserContext(), username, viewerID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(profile)
}
