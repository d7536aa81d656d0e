package models

import (
	"time"
)

// Post is a row in the posts table. A post is an original, a reply (ReplyToID set)
// or a repost wrapper (RepostID set, Body nil). Either reference may point at a
// row that has since been deleted.
type Post struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Body      *string `gorm:"type:text" json:"body"`
	AuthorID  uint    `gorm:"not null;index;uniqueIndex:idx_posts_author_repost" json:"author_id"`
	Author    User    `gorm:"foreignKey:AuthorID" json:"author"`
	ReplyToID *uint   `gorm:"index" json:"reply_to_id,omitempty"`
	RepostID  *uint   `gorm:"index;uniqueIndex:idx_posts_author_repost" json:"repost_id,omitempty"`
	// Aggregates are not persisted; computed at query time
	LikesCount   int       `gorm:"->;-:migration" json:"likes_count"`
	RepostsCount int       `gorm:"->;-:migration" json:"reposts_count"`
	RepliesCount int       `gorm:"->;-:migration" json:"replies_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

// IsReply reports whether the post references a parent post.
func (p *Post) IsReply() bool {
	return p.ReplyToID != nil
}

// IsRepost reports whether the post is a repost wrapper.
func (p *Post) IsRepost() bool {
	return p.RepostID != nil
}

// Like represents a user's like on a post.
// The combination of UserID and PostID is the primary key.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}
