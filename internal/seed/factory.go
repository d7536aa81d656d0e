// Package seed provides helpers to create demo data for development and tests.
package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account signs in with.
const DefaultPassword = "password123"

var usernameStrip = regexp.MustCompile(`[^a-z0-9_.]`)

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	faker   *gofakeit.Faker
	users   repository.UserRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
	hash    string
	taken   map[string]struct{}
}

// NewFactory creates a Factory bound to db. The same seed yields the same data.
func NewFactory(db *gorm.DB, seed int64) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	return &Factory{
		faker:   gofakeit.New(seed),
		users:   repository.NewUserRepository(db),
		posts:   repository.NewPostRepository(db),
		follows: repository.NewFollowRepository(db),
		hash:    string(hash),
		taken:   map[string]struct{}{},
	}, nil
}

// Faker exposes the factory's random source.
func (f *Factory) Faker() *gofakeit.Faker {
	return f.faker
}

// CreateUser persists an active user with a generated profile.
// Overrides may modify the user before it is saved.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	username := f.username()
	name := f.faker.Name()
	bio := truncate(f.faker.Sentence(10), validation.MaxBioLength)
	location := f.faker.City()
	avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Name:      &name,
		Bio:       &bio,
		Location:  &location,
		AvatarURL: &avatar,
		Status:    models.UserStatusActive,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.users.Create(ctx, user, f.hash); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists an original post by author at createdAt.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, createdAt time.Time) (*models.Post, error) {
	body := f.body()
	return f.create(ctx, &models.Post{AuthorID: author.ID, Body: &body}, createdAt)
}

// CreateReply persists a reply by author to parent at createdAt.
func (f *Factory) CreateReply(ctx context.Context, author *models.User, parent *models.Post, createdAt time.Time) (*models.Post, error) {
	body := f.body()
	return f.create(ctx, &models.Post{AuthorID: author.ID, Body: &body, ReplyToID: &parent.ID}, createdAt)
}

// CreateRepost persists a repost wrapper by author of target at createdAt.
func (f *Factory) CreateRepost(ctx context.Context, author *models.User, target *models.Post, createdAt time.Time) (*models.Post, error) {
	return f.create(ctx, &models.Post{AuthorID: author.ID, RepostID: &target.ID}, createdAt)
}

// Like records user liking post.
func (f *Factory) Like(ctx context.Context, user *models.User, post *models.Post) error {
	return f.posts.Like(ctx, user.ID, post.ID)
}

// Follow records follower following followed.
func (f *Factory) Follow(ctx context.Context, follower, followed *models.User) error {
	return f.follows.Create(ctx, follower.ID, followed.ID)
}

func (f *Factory) create(ctx context.Context, post *models.Post, createdAt time.Time) (*models.Post, error) {
	post.CreatedAt = createdAt
	post.UpdatedAt = createdAt
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) body() string {
	return truncate(f.faker.Sentence(f.faker.Number(4, 24)), validation.MaxBodyLength)
}

// username returns a unique handle that satisfies the signup rules.
func (f *Factory) username() string {
	base := usernameStrip.ReplaceAllString(strings.ToLower(f.faker.Username()), "")
	if len(base) < validation.MinUsernameLength {
		base += "user"
	}
	if len(base) > validation.MaxUsernameLength-4 {
		base = base[:validation.MaxUsernameLength-4]
	}
	name := base
	for i := 1; ; i++ {
		if _, ok := f.taken[name]; !ok {
			break
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
	f.taken[name] = struct{}{}
	return name
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
