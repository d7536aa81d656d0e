package server

import (
	"chirp/internal/featureflags"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a pending account and send a confirmation code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respond(c, err)
	}

	// Pending accounts cannot sign in until confirmed.
	if s.flags.Enabled(featureflags.RequireConfirmation, user.ID) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
	}

	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// ConfirmEmail handles POST /api/auth/confirm
// @Summary Confirm email
// @Description Activate a pending account with the code from the confirmation email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,code=string} true "Confirmation"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/confirm [post]
func (s *Server) ConfirmEmail(c *fiber.Ctx) error {
	var req confirmRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.ConfirmEmail(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}

	token, err := s.auth.IssueToken(user.ID)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetMe handles GET /api/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetByID(c.UserContext(), middleware.ViewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetFeatureFlags handles GET /api/flags
// @Summary Feature flags evaluated for the caller
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.flags.For(middleware.ViewerID(c)))
}
