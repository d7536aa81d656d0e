package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data Seed generates.
type Options struct {
	Users int
	Posts int
	// FollowsPerUser is the upper bound of accounts each user follows.
	FollowsPerUser int
	// LikesPerPost is the upper bound of likes each post receives.
	LikesPerPost int
	// ReplyPercent and RepostPercent are the share of generated posts that
	// are replies and reposts; the rest are originals.
	ReplyPercent  int
	RepostPercent int
	// Days spreads post timestamps over this many days before Now.
	Days int
	Now  time.Time
}

// DefaultOptions returns a small, varied data set.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		Posts:          150,
		FollowsPerUser: 8,
		LikesPerPost:   5,
		ReplyPercent:   25,
		RepostPercent:  15,
		Days:           30,
	}
}

// Summary counts what Seed created.
type Summary struct {
	Users    int
	Posts    int
	Replies  int
	Reposts  int
	Follows  int
	Likes    int
	Duration time.Duration
}

// Seeder populates a database through a Factory.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a seeder whose random choices are derived from seed.
func NewSeeder(db *gorm.DB, seed int64) (*Seeder, error) {
	factory, err := NewFactory(db, seed)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory}, nil
}

// ClearAll removes every row the application owns.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Post{}, &models.Password{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "database cleared")
	return nil
}

// Seed creates users, a follow graph, posts with replies and reposts, and likes.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	if opts.Now.IsZero() {
		opts.Now = start
	}
	if opts.Days <= 0 {
		opts.Days = 1
	}
	faker := s.factory.Faker()
	summary := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	for _, follower := range users {
		for _, j := range sample(faker, len(users), opts.FollowsPerUser) {
			followed := users[j]
			if followed.ID == follower.ID {
				continue
			}
			if err := s.factory.Follow(ctx, follower, followed); err != nil {
				return nil, fmt.Errorf("follow: %w", err)
			}
			summary.Follows++
		}
	}

	// Timestamps increase with creation order so replies and reposts always
	// follow the post they reference.
	step := time.Duration(opts.Days) * 24 * time.Hour / time.Duration(max(opts.Posts, 1))
	at := opts.Now.Add(-time.Duration(opts.Days) * 24 * time.Hour)

	var content []*models.Post
	reposted := map[[2]uint]struct{}{}
	for i := 0; i < opts.Posts; i++ {
		at = at.Add(step)
		author := users[faker.Number(0, len(users)-1)]
		roll := faker.Number(1, 100)

		var (
			post *models.Post
			err  error
		)
		switch {
		case len(content) > 0 && roll <= opts.ReplyPercent:
			parent := content[faker.Number(0, len(content)-1)]
			post, err = s.factory.CreateReply(ctx, author, parent, at)
			summary.Replies++
		case len(content) > 0 && roll <= opts.ReplyPercent+opts.RepostPercent:
			target := content[faker.Number(0, len(content)-1)]
			key := [2]uint{author.ID, target.ID}
			if _, dup := reposted[key]; dup || target.AuthorID == author.ID {
				post, err = s.factory.CreatePost(ctx, author, at)
				break
			}
			reposted[key] = struct{}{}
			if _, err = s.factory.CreateRepost(ctx, author, target, at); err != nil {
				return nil, fmt.Errorf("create repost: %w", err)
			}
			summary.Reposts++
			continue
		default:
			post, err = s.factory.CreatePost(ctx, author, at)
		}
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		content = append(content, post)
	}
	summary.Posts = len(content) + summary.Reposts

	for _, post := range content {
		for _, j := range sample(faker, len(users), faker.Number(0, max(opts.LikesPerPost, 0))) {
			if err := s.factory.Like(ctx, users[j], post); err != nil {
				return nil, fmt.Errorf("like: %w", err)
			}
			summary.Likes++
		}
	}

	summary.Duration = time.Since(start)
	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("replies", summary.Replies),
		slog.Int("reposts", summary.Reposts),
		slog.Int("follows", summary.Follows),
		slog.Int("likes", summary.Likes),
		slog.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// sample returns k distinct indexes below n, fewer when k exceeds n.
func sample(faker *gofakeit.Faker, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleInts(idx)
	return idx[:max(min(k, n), 0)]
}
