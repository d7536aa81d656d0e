package service

import (
	"errors"
	"testing"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	redis   *miniredis.Miniredis
	store   *cache.Store
	posts   repository.PostRepository
	users   repository.UserRepository
	follows repository.FollowRepository
	graph   *GraphService
	feed    *FeedService
	engage  *EngagementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.New(client)

	env := &testEnv{
		db:      db,
		redis:   mr,
		store:   store,
		posts:   repository.NewPostRepository(db),
		users:   repository.NewUserRepository(db),
		follows: repository.NewFollowRepository(db),
	}
	env.graph = NewGraphService(env.users, env.follows, env.posts, store)
	env.feed = NewFeedService(env.posts, env.users, env.graph, 10)
	env.engage = NewEngagementService(env.posts, env.users, env.follows, store)
	return env
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
}

func viewIDs(views []models.PostView) []uint {
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func findView(t *testing.T, views []models.PostView, id uint) models.PostView {
	t.Helper()
	for _, v := range views {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("post %d not in view %v", id, viewIDs(views))
	return models.PostView{}
}
