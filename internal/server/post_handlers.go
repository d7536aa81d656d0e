package server

import (
	"chirp/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{body=string} true "Post"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	viewerID := middleware.ViewerID(c)
	post, err := s.engagementService.CreatePost(c.UserContext(), viewerID, req.Body)
	if err != nil {
		return respond(c, err)
	}
	return s.respondPost(c, fiber.StatusCreated, post.ID, viewerID)
}

// CreateReply handles POST /api/posts/:id/replies
// @Summary Reply to a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{body=string} true "Reply"
// @Success 201 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/replies [post]
func (s *Server) CreateReply(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	viewerID := middleware.ViewerID(c)
	reply, err := s.engagementService.Reply(c.UserContext(), viewerID, postID, req.Body)
	if err != nil {
		return respond(c, err)
	}
	return s.respondPost(c, fiber.StatusCreated, reply.ID, viewerID)
}

// GetThread handles GET /api/posts/:id
// @Summary Get a post with its replies
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Thread
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.feedService.Thread(c.UserContext(), postID, middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(thread)
}

// GetPostLikers handles GET /api/posts/:id/likes
// @Summary List users who liked a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.UserView
// @Router /posts/{id}/likes [get]
func (s *Server) GetPostLikers(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.feedService.Likers(c.UserContext(), postID, middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetPostReposters handles GET /api/posts/:id/reposts
// @Summary List users who reposted a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.UserView
// @Router /posts/{id}/reposts [get]
func (s *Server) GetPostReposters(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.feedService.Reposters(c.UserContext(), postID, middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostView
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID := middleware.ViewerID(c)
	if err := s.engagementService.Like(c.UserContext(), viewerID, postID); err != nil {
		return respond(c, err)
	}
	return s.respondPost(c, fiber.StatusOK, postID, viewerID)
}

// UnlikePost handles DELETE /api/posts/:id/like
// @Summary Unlike a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID := middleware.ViewerID(c)
	if err := s.engagementService.Unlike(c.UserContext(), viewerID, postID); err != nil {
		return respond(c, err)
	}
	return s.respondPost(c, fiber.StatusOK, postID, viewerID)
}

// RepostPost handles POST /api/posts/:id/repost
// @Summary Repost a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 201 {object} models.PostView
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/repost [post]
func (s *Server) RepostPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID := middleware.ViewerID(c)
	wrapper, err := s.engagementService.Repost(c.UserContext(), viewerID, postID)
	if err != nil {
		return respond(c, err)
	}
	return s.respondPost(c, fiber.StatusCreated, wrapper.ID, viewerID)
}

// UnrepostPost handles DELETE /api/posts/:id/repost
// @Summary Undo a repost
// @Description Accepts the original post or one of the viewer's repost wrappers
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{removed=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/repost [delete]
func (s *Server) UnrepostPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	removed, err := s.engagementService.Unpost(c.UserContext(), middleware.ViewerID(c), postID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.DeletePost(c.UserContext(), middleware.ViewerID(c), postID); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) respondPost(c *fiber.Ctx, status int, postID, viewerID uint) error {
	view, err := s.feedService.View(c.UserContext(), postID, viewerID)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(status).JSON(view)
}
