package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errMissingHeader = errors.New("Authorization header required")
	errHeaderFormat  = errors.New("Invalid authorization header format")
	errInvalidToken  = errors.New("Invalid or expired token")
	errTokenSubject  = errors.New("Invalid token subject")
	errUnknownUser   = errors.New("Account no longer exists")
)

// UserLookup reports whether the account a token was issued to still exists.
type UserLookup func(ctx context.Context, userID uint) (bool, error)

// Auth resolves the requesting identity from a Bearer JWT signed with an HMAC secret.
type Auth struct {
	secret []byte
	expiry time.Duration
	lookup UserLookup
}

// NewAuth creates an Auth that signs and verifies tokens with secret.
func NewAuth(secret string, expiry time.Duration) *Auth {
	return &Auth{secret: []byte(secret), expiry: expiry}
}

// WithUserLookup makes Required and Optional reject tokens whose account has
// been deleted since they were issued.
func (a *Auth) WithUserLookup(lookup UserLookup) *Auth {
	a.lookup = lookup
	return a
}

// IssueToken returns a signed token whose subject is userID.
func (a *Auth) IssueToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Required is a middleware that enforces authentication for protected routes.
func (a *Auth) Required(c *fiber.Ctx) error {
	userID, err := a.userFromHeader(c.Get("Authorization"))
	if err == nil {
		err = a.exists(c.UserContext(), userID)
	}
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
	}
	a.setViewer(c, userID)
	return c.Next()
}

// Optional resolves the viewer when a valid token is present and lets anonymous
// requests through. An invalid token is treated as anonymous.
func (a *Auth) Optional(c *fiber.Ctx) error {
	if header := c.Get("Authorization"); header != "" {
		if userID, err := a.userFromHeader(header); err == nil && a.exists(c.UserContext(), userID) == nil {
			a.setViewer(c, userID)
		}
	}
	return c.Next()
}

// exists returns errUnknownUser for deleted accounts and an internal error when
// the lookup itself fails.
func (a *Auth) exists(ctx context.Context, userID uint) error {
	if a.lookup == nil {
		return nil
	}
	ok, err := a.lookup(ctx, userID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !ok {
		return errUnknownUser
	}
	return nil
}

func (a *Auth) setViewer(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

func (a *Auth) userFromHeader(authHeader string) (uint, error) {
	if authHeader == "" {
		return 0, errMissingHeader
	}

	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || raw == "" || strings.Contains(raw, " ") {
		return 0, errHeaderFormat
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errTokenSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errTokenSubject
	}
	return uint(userID), nil
}

// ViewerID returns the authenticated user ID, or 0 for anonymous requests.
func ViewerID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}
