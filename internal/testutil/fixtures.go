package testutil

import (
	"testing"
	"time"

	"chirp/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateUser inserts an active user with the given username.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Status:   models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts an original post by author. Successive calls get strictly
// increasing timestamps so ordering assertions are deterministic.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, body string) *models.Post {
	t.Helper()
	return insertPost(t, db, &models.Post{AuthorID: author.ID, Body: &body})
}

// CreateReply inserts a reply by author to parentID.
func CreateReply(t *testing.T, db *gorm.DB, author *models.User, parentID uint, body string) *models.Post {
	t.Helper()
	return insertPost(t, db, &models.Post{AuthorID: author.ID, Body: &body, ReplyToID: &parentID})
}

// CreateRepost inserts a repost wrapper by author of targetID.
func CreateRepost(t *testing.T, db *gorm.DB, author *models.User, targetID uint) *models.Post {
	t.Helper()
	return insertPost(t, db, &models.Post{AuthorID: author.ID, RepostID: &targetID})
}

// Follow inserts the edge follower -> followed.
func Follow(t *testing.T, db *gorm.DB, follower, followed *models.User) {
	t.Helper()
	require.NoError(t, db.Omit("Follower", "Followed").Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error)
}

// Like inserts the edge user -> post.
func Like(t *testing.T, db *gorm.DB, user *models.User, post *models.Post) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Post").Create(&models.Like{UserID: user.ID, PostID: post.ID, CreatedAt: nextTick()}).Error)
}

var clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func nextTick() time.Time {
	clock = clock.Add(time.Second)
	return clock
}

func insertPost(t *testing.T, db *gorm.DB, post *models.Post) *models.Post {
	ts := nextTick()
	post.CreatedAt = ts
	post.UpdatedAt = ts
	require.NoError(t, db.Omit("Author").Create(post).Error)
	return post
}
