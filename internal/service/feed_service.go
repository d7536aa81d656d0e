package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxPageSize caps every bounded listing.
const MaxPageSize = 100

// FeedService composes the read views: home feed, profile tabs, threads and explore.
type FeedService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	graph    *GraphService
	pageSize int
}

// NewFeedService builds timelines pageSize posts at a time, falling back to
// 10 when pageSize is out of range.
func NewFeedService(
	posts repository.PostRepository,
	users repository.UserRepository,
	graph *GraphService,
	pageSize int,
) *FeedService {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = 10
	}
	return &FeedService{
		posts:    posts,
		users:    users,
		graph:    graph,
		pageSize: pageSize,
	}
}

func (s *FeedService) limit(n int) int {
	if n <= 0 {
		return s.pageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// HomeFeed returns top-level posts by the viewer and everyone they follow,
// newest activity first. Reposts whose target is gone are left out.
func (s *FeedService) HomeFeed(ctx context.Context, viewerID uint, limit int) (views []models.PostView, err error) {
	ctx, span := observability.StartSpan(ctx, "feed", "HomeFeed", attribute.Int64("viewer_id", int64(viewerID)))
	defer func() { span.End(err) }()
	done := observability.TrackFeed("home")

	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to see your feed")
	}
	authors, err := s.graph.FollowSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.posts.List(ctx, repository.PostFilter{
		AuthorIDs:              authors,
		ExcludeReplies:         true,
		ExcludeDanglingReposts: true,
		Order:                  repository.OrderByActivity,
		Limit:                  s.limit(limit),
	})
	if err != nil {
		return nil, err
	}

	views, err = s.compose(ctx, rows, viewerID)
	done(len(views))
	return views, err
}

// ProfilePosts returns username's top-level posts and reposts, newest first.
func (s *FeedService) ProfilePosts(ctx context.Context, username string, viewerID uint, limit int) ([]models.PostView, error) {
	return s.profileTab(ctx, "profile_posts", username, viewerID, func(authorID uint) ([]models.Post, error) {
		return s.posts.List(ctx, repository.PostFilter{
			AuthorIDs:      []uint{authorID},
			ExcludeReplies: true,
			Order:          repository.OrderByNewest,
			Limit:          s.limit(limit),
		})
	})
}

// ProfilePostsAndReplies returns everything username wrote, without repost wrappers, newest first.
func (s *FeedService) ProfilePostsAndReplies(ctx context.Context, username string, viewerID uint, limit int) ([]models.PostView, error) {
	return s.profileTab(ctx, "profile_replies", username, viewerID, func(authorID uint) ([]models.Post, error) {
		return s.posts.List(ctx, repository.PostFilter{
			AuthorIDs:      []uint{authorID},
			ExcludeReposts: true,
			Order:          repository.OrderByNewest,
			Limit:          s.limit(limit),
		})
	})
}

// ProfileLikes returns the posts username liked, most recent like first.
func (s *FeedService) ProfileLikes(ctx context.Context, username string, viewerID uint, limit int) ([]models.PostView, error) {
	return s.profileTab(ctx, "profile_likes", username, viewerID, func(userID uint) ([]models.Post, error) {
		return s.posts.LikedBy(ctx, userID, s.limit(limit))
	})
}

func (s *FeedService) profileTab(
	ctx context.Context,
	view, username string,
	viewerID uint,
	load func(userID uint) ([]models.Post, error),
) (views []models.PostView, err error) {
	ctx, span := observability.StartSpan(ctx, "feed", view, attribute.String("username", username))
	defer func() { span.End(err) }()
	done := observability.TrackFeed(view)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	rows, err := load(user.ID)
	if err != nil {
		return nil, err
	}

	views, err = s.compose(ctx, rows, viewerID)
	done(len(views))
	return views, err
}

// Thread returns the page for a single post. A repost wrapper resolves to its
// target; when the target is gone the thread is a deleted placeholder that the
// wrapper's author may still delete.
func (s *FeedService) Thread(ctx context.Context, postID, viewerID uint) (_ *models.Thread, err error) {
	ctx, span := observability.StartSpan(ctx, "feed", "Thread", attribute.Int64("post_id", int64(postID)))
	defer func() { span.End(err) }()
	done := observability.TrackFeed("thread")

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	head := []models.Post{*post}
	refs := NewPostRefs(head)
	if err := s.loadRefs(ctx, refs, head); err != nil {
		return nil, err
	}

	thread := &models.Thread{
		Deleted:   models.ResolveKind(post, refs.Has) == models.PostKindRepostOfDeleted,
		CanDelete: viewerID != 0 && post.AuthorID == viewerID,
		Replies:   []models.PostView{},
	}

	viewerIDs := contentIDs(head, refs)
	var replies []models.Post
	var parent *models.Post
	if !thread.Deleted {
		focus := post
		if post.IsRepost() {
			focus = refs[*post.RepostID]
		}

		replies, err = s.posts.List(ctx, repository.PostFilter{
			ReplyToID: focus.ID,
			Order:     repository.OrderByOldest,
		})
		if err != nil {
			return nil, err
		}
		refs.Add(replies)
		for i := range replies {
			viewerIDs = append(viewerIDs, replies[i].ID)
		}

		if focus.IsReply() && refs.Has(*focus.ReplyToID) {
			parent = refs[*focus.ReplyToID]
			if err := s.loadRefs(ctx, refs, []models.Post{*parent}); err != nil {
				return nil, err
			}
			viewerIDs = append(viewerIDs, parent.ID)
		}
	}

	viewer, err := s.loadViewer(ctx, viewerID, viewerIDs)
	if err != nil {
		return nil, err
	}

	thread.Post = Annotate(head, refs, viewer)[0]
	if !thread.Deleted {
		focus := *thread.Post.Content()
		thread.Focus = &focus
		thread.Replies = Annotate(replies, refs, viewer)
	}
	if parent != nil {
		p := Annotate([]models.Post{*parent}, refs, viewer)[0]
		thread.Parent = &p
	}

	done(len(thread.Replies) + 1)
	return thread, nil
}

// Reposters lists the users who reposted postID, annotated with the viewer's relationship.
func (s *FeedService) Reposters(ctx context.Context, postID, viewerID uint) ([]models.UserView, error) {
	post, err := resolveContent(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	users, err := s.posts.Reposters(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return s.graph.AnnotateUsers(ctx, users, viewerID)
}

// Likers lists the users who liked postID, annotated with the viewer's relationship.
func (s *FeedService) Likers(ctx context.Context, postID, viewerID uint) ([]models.UserView, error) {
	post, err := resolveContent(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	users, err := s.posts.Likers(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return s.graph.AnnotateUsers(ctx, users, viewerID)
}

// LatestPosts is the explore timeline: every author, replies included, newest first.
func (s *FeedService) LatestPosts(ctx context.Context, viewerID uint, limit int) (views []models.PostView, err error) {
	ctx, span := observability.StartSpan(ctx, "feed", "LatestPosts")
	defer func() { span.End(err) }()
	done := observability.TrackFeed("explore")

	rows, err := s.posts.List(ctx, repository.PostFilter{
		ExcludeDanglingReposts: true,
		Order:                  repository.OrderByNewest,
		Limit:                  s.limit(limit),
	})
	if err != nil {
		return nil, err
	}

	views, err = s.compose(ctx, rows, viewerID)
	done(len(views))
	return views, err
}

// View annotates a single post for viewerID.
func (s *FeedService) View(ctx context.Context, postID, viewerID uint) (*models.PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.compose(ctx, []models.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// compose runs the shared pipeline: load referenced posts, load the viewer's
// edges, annotate.
func (s *FeedService) compose(ctx context.Context, rows []models.Post, viewerID uint) ([]models.PostView, error) {
	refs := NewPostRefs(rows)
	if err := s.loadRefs(ctx, refs, rows); err != nil {
		return nil, err
	}
	viewer, err := s.loadViewer(ctx, viewerID, contentIDs(rows, refs))
	if err != nil {
		return nil, err
	}
	return Annotate(rows, refs, viewer), nil
}

// loadRefs fetches the posts rows reference, then the parents of those, so
// embedded repost targets resolve their own kind. IDs that stay missing are deleted posts.
func (s *FeedService) loadRefs(ctx context.Context, refs PostRefs, rows []models.Post) error {
	for round := 0; round < 2 && len(rows) > 0; round++ {
		ids := referencedIDs(rows, refs)
		if len(ids) == 0 {
			return nil
		}
		loaded, err := s.posts.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		refs.Add(loaded)
		rows = loaded
	}
	return nil
}

// loadViewer returns nil for anonymous requests.
func (s *FeedService) loadViewer(ctx context.Context, viewerID uint, postIDs []uint) (*models.ViewerState, error) {
	if viewerID == 0 {
		return nil, nil
	}
	liked, err := s.posts.GetLikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	reposted, err := s.posts.GetRepostedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	return &models.ViewerState{
		UserID:   viewerID,
		Liked:    idSet(liked),
		Reposted: idSet(reposted),
	}, nil
}

// resolveContent loads postID, following a repost wrapper to its target.
// A wrapper whose target is gone is NOT_FOUND.
func resolveContent(ctx context.Context, posts repository.PostRepository, postID uint) (*models.Post, error) {
	post, err := posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsRepost() {
		return post, nil
	}
	return posts.GetByID(ctx, *post.RepostID)
}
