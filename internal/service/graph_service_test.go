package service

import (
	"context"
	"testing"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphService_FollowSetIncludesViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	c := testutil.CreateUser(t, env.db, "carol")
	testutil.Follow(t, env.db, a, b)
	testutil.Follow(t, env.db, c, a)

	set, err := env.graph.FollowSet(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, set)

	cached, err := env.graph.FollowSet(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, set, cached)
	assert.True(t, env.redis.Exists(cache.FollowSetKey(a.ID)))

	_, err = env.graph.FollowSet(ctx, 0)
	assertAppCode(t, err, models.CodeUnauthorized)
}

func TestGraphService_FollowSetWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	testutil.Follow(t, env.db, a, b)

	graph := NewGraphService(env.users, env.follows, env.posts, nil)
	set, err := graph.FollowSet(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, set)
}

func TestGraphService_Relationship(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	testutil.CreateUser(t, env.db, "carol")
	testutil.Follow(t, env.db, b, a)

	tests := []struct {
		name       string
		target     string
		viewer     uint
		following  *bool
		followsYou *bool
		self       bool
	}{
		{"anonymous", "bob", 0, nil, nil, false},
		{"follows you", "bob", a.ID, boolPtr(false), boolPtr(true), false},
		{"following", "alice", b.ID, boolPtr(true), boolPtr(false), false},
		{"strangers", "carol", a.ID, boolPtr(false), boolPtr(false), false},
		{"self", "alice", a.ID, boolPtr(false), boolPtr(false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := env.graph.Relationship(ctx, tt.target, tt.viewer)
			require.NoError(t, err)
			assert.Equal(t, tt.following, rel.Following)
			assert.Equal(t, tt.followsYou, rel.FollowsYou)
			assert.Equal(t, tt.self, rel.Self)
		})
	}

	_, err := env.graph.Relationship(ctx, "nobody", a.ID)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestGraphService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	c := testutil.CreateUser(t, env.db, "carol")
	testutil.Follow(t, env.db, b, a)
	testutil.Follow(t, env.db, c, a)
	testutil.Follow(t, env.db, a, b)
	x := testutil.CreatePost(t, env.db, a, "one")
	testutil.CreateReply(t, env.db, a, x.ID, "two")

	profile, err := env.graph.Profile(ctx, "alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, int64(2), profile.PostsCount)
	assert.Equal(t, int64(2), profile.FollowersCount)
	assert.Equal(t, int64(1), profile.FollowingCount)
	require.NotNil(t, profile.Relationship.Following)
	assert.True(t, *profile.Relationship.Following)
	assert.True(t, *profile.Relationship.FollowsYou)

	_, err = env.graph.Profile(ctx, "nobody", 0)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestGraphService_FollowersAndFollowing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	c := testutil.CreateUser(t, env.db, "carol")
	testutil.Follow(t, env.db, b, a)
	testutil.Follow(t, env.db, c, a)
	testutil.Follow(t, env.db, a, c)

	followers, err := env.graph.Followers(ctx, "alice", a.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "carol", followers[0].Username)
	assert.True(t, *followers[0].Relationship.Following)
	assert.Equal(t, "bob", followers[1].Username)
	assert.False(t, *followers[1].Relationship.Following)
	assert.True(t, *followers[1].Relationship.FollowsYou)

	following, err := env.graph.Following(ctx, "carol", 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "alice", following[0].Username)
	assert.Nil(t, following[0].Relationship.Following)

	self, err := env.graph.Following(ctx, "carol", a.ID)
	require.NoError(t, err)
	assert.True(t, self[0].Relationship.Self)

	_, err = env.graph.Followers(ctx, "nobody", 0)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestGraphService_LatestUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.db, "alice")
	testutil.CreateUser(t, env.db, "bob")
	testutil.CreateUser(t, env.db, "carol")

	users, err := env.graph.LatestUsers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "carol", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}
