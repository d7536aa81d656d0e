package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	FollowSetKeyPrefix = "user:%d:follow_set"
)

const (
	UserTTL      = 5 * time.Minute
	FollowSetTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func FollowSetKey(userID uint) string {
	return fmt.Sprintf(FollowSetKeyPrefix, userID)
}

// InvalidateUser drops every cached entry derived from userID.
func (s *Store) InvalidateUser(ctx context.Context, userID uint) {
	s.Invalidate(ctx, UserKey(userID), FollowSetKey(userID))
}

// InvalidateFollowSet drops the cached follow set of followerID.
func (s *Store) InvalidateFollowSet(ctx context.Context, followerID uint) {
	s.Invalidate(ctx, FollowSetKey(followerID))
}
