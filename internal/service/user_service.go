package service

import (
	"context"
	"log/slog"
	"strings"

	"chirp/internal/cache"
	"chirp/internal/featureflags"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users   repository.UserRepository
	cache   *cache.Store
	mailer  Mailer
	flags   *featureflags.Set
	newCode func() string
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// ProfileInput carries a settings update. A nil field is left unchanged and
// an empty string clears it.
type ProfileInput struct {
	Name      *string
	Bio       *string
	Location  *string
	Website   *string
	AvatarURL *string
	CoverURL  *string
}

// NewUserService manages accounts. A nil mailer logs confirmation codes
// instead of sending them.
func NewUserService(users repository.UserRepository, store *cache.Store, mailer Mailer, flags *featureflags.Set) *UserService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &UserService{
		users:   users,
		cache:   store,
		mailer:  mailer,
		flags:   flags,
		newCode: ConfirmationCode,
	}
}

// ConfirmationCode returns a word code such as "brave-quiet-otter".
func ConfirmationCode() string {
	words := []string{gofakeit.Adjective(), gofakeit.Adjective(), gofakeit.Noun()}
	for i, w := range words {
		words[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(w)), " ", "-")
	}
	return strings.Join(words, "-")
}

// Register creates a pending account and hands the confirmation code to the mailer.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email, username, fields := validation.Registration(in.Email, in.Username, in.Password)
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		fields["email"] = "A user already exists with this email"
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		fields["username"] = "A user already exists with this username"
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	code := s.newCode()
	user := &models.User{
		Email:            email,
		Username:         username,
		Status:           models.UserStatusPending,
		ConfirmationCode: &code,
	}
	if err := s.users.Create(ctx, user, string(hash)); err != nil {
		return nil, err
	}

	if err := s.mailer.SendConfirmation(ctx, user, code); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to send confirmation",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
	return user, nil
}

// ConfirmEmail activates a pending account when code matches.
func (s *UserService) ConfirmEmail(ctx context.Context, email, code string) (*models.User, error) {
	email, err := validation.ValidateEmail(email)
	if err != nil {
		return nil, models.NewFieldErrors(map[string]string{"email": err.Error()})
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, models.NewFieldErrors(map[string]string{"code": "Please enter a confirmation code"})
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewFieldErrors(map[string]string{"form": "Invalid email or code"})
		}
		return nil, err
	}
	if user.Status != models.UserStatusPending {
		return user, nil
	}
	if user.ConfirmationCode == nil || *user.ConfirmationCode != code {
		return nil, models.NewFieldErrors(map[string]string{"form": "Invalid email or code"})
	}

	user.Status = models.UserStatusActive
	user.ConfirmationCode = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.cache.InvalidateUser(ctx, user.ID)
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("Invalid email or password")

	email, err := validation.ValidateEmail(email)
	if err != nil {
		return nil, invalid
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	hash, err := s.users.GetPasswordHash(ctx, user.ID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, invalid
	}
	if user.Status == models.UserStatusPending && s.flags.Enabled(featureflags.RequireConfirmation, user.ID) {
		return nil, models.NewForbiddenError("Confirm your email address before signing in")
	}
	return user, nil
}

// GetByID returns the public fields of a user, cached in Redis.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether id names a live account. It reads through the user
// cache, which DeleteAccount invalidates.
func (s *UserService) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := s.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case models.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Settings returns the full account record, including the email address.
func (s *UserService) Settings(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a settings update.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		bio, err := validation.ValidateBio(*in.Bio)
		if err != nil {
			return nil, models.NewFieldErrors(map[string]string{"bio": err.Error()})
		}
		user.Bio = optional(bio)
	}
	if in.Website != nil {
		user.Website = optional(validation.NormalizeWebsite(*in.Website))
	}
	if in.Name != nil {
		user.Name = optional(strings.TrimSpace(*in.Name))
	}
	if in.Location != nil {
		user.Location = optional(strings.TrimSpace(*in.Location))
	}
	if in.AvatarURL != nil {
		user.AvatarURL = optional(strings.TrimSpace(*in.AvatarURL))
	}
	if in.CoverURL != nil {
		user.CoverURL = optional(strings.TrimSpace(*in.CoverURL))
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.cache.InvalidateUser(ctx, user.ID)
	return user, nil
}

// DeleteAccount removes the user with their posts, likes and follow edges.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	middleware.Logger.InfoContext(ctx, "account deleted", slog.Uint64("user_id", uint64(userID)))
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
