package service

import (
	"context"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// GraphService resolves follow sets and viewer relationships.
type GraphService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	cache   *cache.Store
}

// NewGraphService answers follow-graph queries, caching follow sets in store
// when it is non-nil.
func NewGraphService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	store *cache.Store,
) *GraphService {
	return &GraphService{
		users:   users,
		follows: follows,
		posts:   posts,
		cache:   store,
	}
}

// FollowSet returns the IDs of the users viewerID follows plus viewerID itself.
func (s *GraphService) FollowSet(ctx context.Context, viewerID uint) ([]uint, error) {
	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to see your feed")
	}

	var ids []uint
	err := s.cache.Aside(ctx, cache.FollowSetKey(viewerID), &ids, cache.FollowSetTTL, func() error {
		following, err := s.follows.FollowingIDs(ctx, viewerID)
		if err != nil {
			return err
		}
		ids = append(following, viewerID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Relationship reports how viewerID relates to the user named username.
// Without a viewer both booleans are absent.
func (s *GraphService) Relationship(ctx context.Context, username string, viewerID uint) (*models.Relationship, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	rel, err := s.relationshipTo(ctx, target.ID, viewerID)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *GraphService) relationshipTo(ctx context.Context, targetID, viewerID uint) (models.Relationship, error) {
	if viewerID == 0 {
		return models.Relationship{}, nil
	}
	if viewerID == targetID {
		return models.Relationship{Following: boolPtr(false), FollowsYou: boolPtr(false), Self: true}, nil
	}

	following, err := s.follows.Exists(ctx, viewerID, targetID)
	if err != nil {
		return models.Relationship{}, err
	}
	followsYou, err := s.follows.Exists(ctx, targetID, viewerID)
	if err != nil {
		return models.Relationship{}, err
	}
	return models.Relationship{Following: &following, FollowsYou: &followsYou}, nil
}

// Profile returns the header for username's profile page.
func (s *GraphService) Profile(ctx context.Context, username string, viewerID uint) (_ *models.ProfileView, err error) {
	ctx, span := observability.StartSpan(ctx, "graph", "Profile", attribute.String("username", username))
	defer func() { span.End(err) }()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &models.ProfileView{
		UserSummary: user.Summary(),
		Bio:         user.Bio,
		Location:    user.Location,
		Website:     user.Website,
		CoverURL:    user.CoverURL,
		CreatedAt:   user.CreatedAt,
	}
	if profile.PostsCount, err = s.posts.CountByAuthor(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.FollowersCount, err = s.follows.CountFollowers(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.follows.CountFollowing(ctx, user.ID); err != nil {
		return nil, err
	}
	if profile.Relationship, err = s.relationshipTo(ctx, user.ID, viewerID); err != nil {
		return nil, err
	}
	return profile, nil
}

// Followers lists the users following username.
func (s *GraphService) Followers(ctx context.Context, username string, viewerID uint) ([]models.UserView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.Followers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.AnnotateUsers(ctx, users, viewerID)
}

// Following lists the users username follows.
func (s *GraphService) Following(ctx context.Context, username string, viewerID uint) ([]models.UserView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.Following(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.AnnotateUsers(ctx, users, viewerID)
}

// LatestUsers lists the newest accounts.
func (s *GraphService) LatestUsers(ctx context.Context, viewerID uint, limit int) ([]models.UserView, error) {
	users, err := s.users.Latest(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.AnnotateUsers(ctx, users, viewerID)
}

// AnnotateUsers attaches the viewer's relationship to each user using two
// set queries for the whole batch.
func (s *GraphService) AnnotateUsers(ctx context.Context, users []models.User, viewerID uint) ([]models.UserView, error) {
	views := make([]models.UserView, len(users))
	for i := range users {
		views[i] = models.UserView{UserSummary: users[i].Summary(), Bio: users[i].Bio}
	}
	if viewerID == 0 || len(users) == 0 {
		return views, nil
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	followed, err := s.follows.FollowedAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.FollowersAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	followedSet, followerSet := idSet(followed), idSet(followers)

	for i := range views {
		id := views[i].ID
		_, following := followedSet[id]
		_, followsYou := followerSet[id]
		views[i].Relationship = models.Relationship{
			Following:  &following,
			FollowsYou: &followsYou,
			Self:       id == viewerID,
		}
	}
	return views, nil
}

func boolPtr(b bool) *bool {
	return &b
}
