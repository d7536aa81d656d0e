package service

import (
	"context"
	"log/slog"
	"net/url"

	"chirp/internal/middleware"
	"chirp/internal/models"
)

// Mailer delivers the account confirmation code to a new user.
type Mailer interface {
	SendConfirmation(ctx context.Context, user *models.User, code string) error
}

// LogMailer writes the confirmation link to the application log instead of sending mail.
type LogMailer struct {
	BaseURL string
}

func (m LogMailer) SendConfirmation(ctx context.Context, user *models.User, code string) error {
	link := m.BaseURL + "/verify-email?" + url.Values{"email": {user.Email}, "code": {code}}.Encode()
	middleware.Logger.InfoContext(ctx, "confirmation email",
		slog.String("to", user.Email),
		slog.String("link", link),
	)
	return nil
}
