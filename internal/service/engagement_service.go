package service

import (
	"context"
	"log/slog"

	"chirp/internal/cache"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"
)

// EngagementService applies the write-side state transitions. Each operation
// is a single statement or a single transaction; counts are never stored.
type EngagementService struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	follows repository.FollowRepository
	cache   *cache.Store
}

// NewEngagementService wires post, like, repost and follow writes. A nil
// store skips cache invalidation.
func NewEngagementService(
	posts repository.PostRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	store *cache.Store,
) *EngagementService {
	return &EngagementService{
		posts:   posts,
		users:   users,
		follows: follows,
		cache:   store,
	}
}

// CreatePost publishes an original post.
func (s *EngagementService) CreatePost(ctx context.Context, actorID uint, body string) (_ *models.Post, err error) {
	defer func() { observability.RecordEngagement("post", err) }()

	if actorID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to post")
	}
	text, err := validation.ValidateBody(body)
	if err != nil {
		return nil, models.NewFieldErrors(map[string]string{"body": err.Error()})
	}

	post := &models.Post{AuthorID: actorID, Body: &text}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, post.ID)
}

// Reply publishes a reply to targetID. A repost wrapper is answered on its target.
func (s *EngagementService) Reply(ctx context.Context, actorID, targetID uint, body string) (_ *models.Post, err error) {
	defer func() { observability.RecordEngagement("reply", err) }()

	if actorID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to reply")
	}
	text, err := validation.ValidateBody(body)
	if err != nil {
		return nil, models.NewFieldErrors(map[string]string{"body": err.Error()})
	}
	target, err := resolveContent(ctx, s.posts, targetID)
	if err != nil {
		return nil, err
	}

	reply := &models.Post{AuthorID: actorID, Body: &text, ReplyToID: &target.ID}
	if err := s.posts.Create(ctx, reply); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, reply.ID)
}

// Like records that actorID likes postID. Liking twice is a CONFLICT.
func (s *EngagementService) Like(ctx context.Context, actorID, postID uint) (err error) {
	defer func() { observability.RecordEngagement("like", err) }()

	if actorID == 0 {
		return models.NewUnauthorizedError("Sign in to like posts")
	}
	target, err := resolveContent(ctx, s.posts, postID)
	if err != nil {
		return err
	}
	return s.posts.Like(ctx, actorID, target.ID)
}

// Unlike removes the like edge. A missing edge is NOT_FOUND.
func (s *EngagementService) Unlike(ctx context.Context, actorID, postID uint) (err error) {
	defer func() { observability.RecordEngagement("unlike", err) }()

	if actorID == 0 {
		return models.NewUnauthorizedError("Sign in to like posts")
	}
	target, err := resolveContent(ctx, s.posts, postID)
	if err != nil {
		return err
	}
	return s.posts.Unlike(ctx, actorID, target.ID)
}

// Repost creates a body-less wrapper of postID owned by actorID.
// A second repost of the same target is a CONFLICT.
func (s *EngagementService) Repost(ctx context.Context, actorID, postID uint) (_ *models.Post, err error) {
	defer func() { observability.RecordEngagement("repost", err) }()

	if actorID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to repost")
	}
	target, err := resolveContent(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	wrapper := &models.Post{AuthorID: actorID, RepostID: &target.ID}
	if err := s.posts.Create(ctx, wrapper); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, wrapper.ID)
}

// Unpost deletes every wrapper of postID owned by actorID and returns how many
// were removed. The target may already be gone. Nothing to remove is NOT_FOUND.
func (s *EngagementService) Unpost(ctx context.Context, actorID, postID uint) (_ int64, err error) {
	defer func() { observability.RecordEngagement("unpost", err) }()

	if actorID == 0 {
		return 0, models.NewUnauthorizedError("Sign in to repost")
	}

	targetID := postID
	post, err := s.posts.GetByID(ctx, postID)
	switch {
	case err == nil && post.IsRepost():
		targetID = *post.RepostID
	case err != nil && !models.IsNotFound(err):
		return 0, err
	}

	removed, err := s.posts.DeleteReposts(ctx, actorID, targetID)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, models.NewNotFoundError("Repost", postID)
	}
	return removed, nil
}

// DeletePost removes postID and the likes on it. Only the author may delete.
// Replies and reposts that reference it are kept and render as dangling.
func (s *EngagementService) DeletePost(ctx context.Context, actorID, postID uint) (err error) {
	defer func() { observability.RecordEngagement("delete", err) }()

	if actorID == 0 {
		return models.NewUnauthorizedError("Sign in to delete posts")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.Uint64("post_id", uint64(postID)),
		slog.Uint64("author_id", uint64(actorID)),
	)
	return nil
}

// Follow creates the edge actorID -> username.
func (s *EngagementService) Follow(ctx context.Context, actorID uint, username string) (_ *models.User, err error) {
	defer func() { observability.RecordEngagement("follow", err) }()

	if actorID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to follow users")
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actorID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if err := s.follows.Create(ctx, actorID, target.ID); err != nil {
		return nil, err
	}
	s.cache.InvalidateFollowSet(ctx, actorID)
	return target, nil
}

// Unfollow deletes the edge actorID -> username. A missing edge is NOT_FOUND.
func (s *EngagementService) Unfollow(ctx context.Context, actorID uint, username string) (_ *models.User, err error) {
	defer func() { observability.RecordEngagement("unfollow", err) }()

	if actorID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to follow users")
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Delete(ctx, actorID, target.ID); err != nil {
		return nil, err
	}
	s.cache.InvalidateFollowSet(ctx, actorID)
	return target, nil
}
