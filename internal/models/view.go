package models

import "time"

// PostKind is the display identity of a post, resolved once when the post is loaded.
type PostKind string

const (
	PostKindOriginal        PostKind = "original"
	PostKindReply           PostKind = "reply"
	PostKindReplyToDeleted  PostKind = "reply_to_deleted"
	PostKindRepost          PostKind = "repost"
	PostKindRepostOfDeleted PostKind = "repost_of_deleted"
)

// Dangling reports whether the kind refers to a post that no longer exists.
func (k PostKind) Dangling() bool {
	return k == PostKindReplyToDeleted || k == PostKindRepostOfDeleted
}

// ResolveKind classifies p given whether the row it references still exists.
// exists is consulted only for replies and reposts.
func ResolveKind(p *Post, exists func(id uint) bool) PostKind {
	switch {
	case p.IsRepost():
		if exists(*p.RepostID) {
			return PostKindRepost
		}
		return PostKindRepostOfDeleted
	case p.IsReply():
		if exists(*p.ReplyToID) {
			return PostKindReply
		}
		return PostKindReplyToDeleted
	default:
		return PostKindOriginal
	}
}

// UserSummary is the public card embedded in posts and user lists.
type UserSummary struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Name      *string    `json:"name,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	Status    UserStatus `json:"status"`
}

// Relationship describes how the viewer and a target user are connected.
// Both fields are nil when there is no viewer.
type Relationship struct {
	Following  *bool `json:"following,omitempty"`
	FollowsYou *bool `json:"follows_you,omitempty"`
	Self       bool  `json:"self,omitempty"`
}

// UserView is a user list entry annotated with the viewer's relationship.
type UserView struct {
	UserSummary
	Bio          *string      `json:"bio,omitempty"`
	Relationship Relationship `json:"relationship"`
}

// ProfileView is the profile header for a user.
type ProfileView struct {
	UserSummary
	Bio            *string      `json:"bio,omitempty"`
	Location       *string      `json:"location,omitempty"`
	Website        *string      `json:"website,omitempty"`
	CoverURL       *string      `json:"cover_url,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	PostsCount     int64        `json:"posts_count"`
	FollowersCount int64        `json:"followers_count"`
	FollowingCount int64        `json:"following_count"`
	Relationship   Relationship `json:"relationship"`
}

// PostView is a post as delivered to a reader. Counts are always present;
// Liked and Reposted are set only when the query had a viewer.
type PostView struct {
	ID        uint        `json:"id"`
	Kind      PostKind    `json:"kind"`
	Body      *string     `json:"body"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	ReplyToID *uint `json:"reply_to_id,omitempty"`
	RepostID  *uint `json:"repost_id,omitempty"`
	// ReplyingTo is the parent's author when Kind is reply.
	ReplyingTo *UserSummary `json:"replying_to,omitempty"`
	// Repost is the annotated target when Kind is repost.
	Repost *PostView `json:"repost,omitempty"`

	LikesCount   int   `json:"likes_count"`
	RepostsCount int   `json:"reposts_count"`
	RepliesCount int   `json:"replies_count"`
	Liked        *bool `json:"liked,omitempty"`
	Reposted     *bool `json:"reposted,omitempty"`
}

// Content returns the view whose body and counts should be displayed:
// the target for a live repost, the post itself otherwise.
func (v *PostView) Content() *PostView {
	if v.Kind == PostKindRepost && v.Repost != nil {
		return v.Repost
	}
	return v
}

// Thread is the single-post page. Post is the requested row; Focus is the
// content it resolves to, nil when a repost's target has been deleted.
type Thread struct {
	Post      PostView   `json:"post"`
	Focus     *PostView  `json:"focus"`
	Deleted   bool       `json:"deleted"`
	CanDelete bool       `json:"can_delete"`
	Parent    *PostView  `json:"parent,omitempty"`
	Replies   []PostView `json:"replies"`
}

// ViewerState holds the edges of one viewer needed to annotate a batch of posts.
type ViewerState struct {
	UserID   uint
	Liked    map[uint]struct{}
	Reposted map[uint]struct{}
}

// HasLiked reports whether the viewer has liked postID.
func (v *ViewerState) HasLiked(postID uint) bool {
	_, ok := v.Liked[postID]
	return ok
}

// HasReposted reports whether the viewer has reposted postID.
func (v *ViewerState) HasReposted(postID uint) bool {
	_, ok := v.Reposted[postID]
	return ok
}
