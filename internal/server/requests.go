package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// requestValidate checks the shape of request bodies. Domain rules such as
// username format and uniqueness live in the service layer.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New(validator.WithRequiredStructEnabled())
	requestValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type signupRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Username string `json:"username" validate:"max=64"`
	// bcrypt ignores input past 72 bytes
	Password string `json:"password" validate:"max=72"`
}

type confirmRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	Code  string `json:"code" validate:"required,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type postRequest struct {
	Body string `json:"body"`
}

type settingsRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=50"`
	Bio       *string `json:"bio"`
	Location  *string `json:"location" validate:"omitempty,max=30"`
	Website   *string `json:"website" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	CoverURL  *string `json:"cover_url" validate:"omitempty,url,max=2048"`
}

func (r settingsRequest) input() service.ProfileInput {
	return service.ProfileInput{
		Name:      r.Name,
		Bio:       r.Bio,
		Location:  r.Location,
		Website:   r.Website,
		AvatarURL: r.AvatarURL,
		CoverURL:  r.CoverURL,
	}
}

// parseBody decodes the JSON body into req and validates it. On failure it
// writes a 400 response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	if err := requestValidate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			_ = respond(c, err)
			return errResponseWritten
		}
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewFieldErrors(fieldMessages(verrs)))
		return errResponseWritten
	}
	return nil
}

func fieldMessages(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "This field is required"
		case "max":
			fields[fe.Field()] = fmt.Sprintf("Must be at most %s characters", fe.Param())
		case "url":
			fields[fe.Field()] = "Must be a valid URL"
		default:
			fields[fe.Field()] = "Invalid value"
		}
	}
	return fields
}
