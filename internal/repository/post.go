package repository

import (
	"context"

	"chirp/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostOrder selects the sort applied to a post listing.
type PostOrder int

const (
	// OrderByActivity sorts by last modification, newest first.
	OrderByActivity PostOrder = iota
	// OrderByNewest sorts by creation time, newest first.
	OrderByNewest
	// OrderByOldest sorts by creation time, oldest first.
	OrderByOldest
)

// PostFilter describes a post listing. Zero values leave a dimension unfiltered.
type PostFilter struct {
	AuthorIDs              []uint
	ReplyToID              uint
	ExcludeReplies         bool
	ExcludeReposts         bool
	ExcludeDanglingReposts bool
	Order                  PostOrder
	Limit                  int
}

// PostRepository defines the interface for post and like data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, error)
	LikedBy(ctx context.Context, userID uint, limit int) ([]models.Post, error)
	Delete(ctx context.Context, id uint) error
	DeleteReposts(ctx context.Context, authorID, targetID uint) (int64, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	GetRepostedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	Likers(ctx context.Context, postID uint) ([]models.User, error)
	Reposters(ctx context.Context, postID uint) ([]models.User, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post. A second repost of the same target by the same author is a CONFLICT.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		switch {
		case isUniqueConstraintError(err):
			return models.NewConflictError("Post already reposted")
		case isForeignKeyError(err):
			return errActorGone
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// GetByIDs loads the posts that still exist among ids, in no particular order.
func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []models.Post
	if err := applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Where("posts.id IN ?", ids).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	q := applyPostDetails(r.db.WithContext(ctx)).Preload("Author")

	if len(filter.AuthorIDs) > 0 {
		q = q.Where("posts.author_id IN ?", filter.AuthorIDs)
	}
	if filter.ReplyToID != 0 {
		q = q.Where("posts.reply_to_id = ?", filter.ReplyToID)
	}
	if filter.ExcludeReplies {
		q = q.Where("posts.reply_to_id IS NULL")
	}
	if filter.ExcludeReposts {
		q = q.Where("posts.repost_id IS NULL")
	}
	if filter.ExcludeDanglingReposts {
		q = q.Where("(posts.repost_id IS NULL OR EXISTS (SELECT 1 FROM posts AS targets WHERE targets.id = posts.repost_id))")
	}
	q = applyOrder(q, filter.Order)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// LikedBy lists posts liked by userID ordered by when the like was made.
// Likes are removed with their post, so the join never yields orphans.
func (r *postRepository) LikedBy(ctx context.Context, userID uint, limit int) ([]models.Post, error) {
	q := applyPostDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Joins("JOIN likes AS liked ON liked.post_id = posts.id AND liked.user_id = ?", userID).
		Order("liked.created_at DESC, posts.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Delete removes the post and the likes on it in one transaction.
// Replies and reposts that reference the post are left in place.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		if models.IsNotFound(err) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteReposts removes every repost wrapper of targetID by authorID, with the likes on them.
func (r *postRepository) DeleteReposts(ctx context.Context, authorID, targetID uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wrapperIDs []uint
		if err := tx.Model(&models.Post{}).
			Where("author_id = ? AND repost_id = ?", authorID, targetID).
			Pluck("id", &wrapperIDs).Error; err != nil {
			return err
		}
		if len(wrapperIDs) == 0 {
			return nil
		}
		if err := tx.Where("post_id IN ?", wrapperIDs).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", wrapperIDs).Delete(&models.Post{})
		removed = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return removed, nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Like inserts the (user, post) edge. An existing edge is a CONFLICT; a
// dangling user is UNAUTHORIZED since callers resolve the post first.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&models.Like{UserID: userID, PostID: postID}).Error; err != nil {
		switch {
		case isUniqueConstraintError(err):
			return models.NewConflictError("Post already liked")
		case isForeignKeyError(err):
			return errActorGone
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Unlike deletes the (user, post) edge. A missing edge is NOT_FOUND.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Like", postID)
	}
	return nil
}

func (r *postRepository) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

// GetRepostedPostIDs returns the subset of postIDs that userID has a repost wrapper for.
func (r *postRepository) GetRepostedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var reposted []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_id = ? AND repost_id IN ?", userID, postIDs).
		Distinct().
		Pluck("repost_id", &reposted).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reposted, nil
}

// Likers lists users who liked postID, most recent first.
func (r *postRepository) Likers(ctx context.Context, postID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN likes ON likes.user_id = users.id").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC, users.id DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Reposters lists users with a repost wrapper of postID, most recent first.
func (r *postRepository) Reposters(ctx context.Context, postID uint) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN posts AS wrappers ON wrappers.author_id = users.id").
		Where("wrappers.repost_id = ?", postID).
		Order("wrappers.created_at DESC, users.id DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// applyPostDetails adds subqueries computing the aggregate counts in the same query.
func applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, " +
		"(SELECT COUNT(*) FROM posts AS reposts WHERE reposts.repost_id = posts.id) AS reposts_count, " +
		"(SELECT COUNT(*) FROM posts AS replies WHERE replies.reply_to_id = posts.id) AS replies_count")
}

func applyOrder(db *gorm.DB, order PostOrder) *gorm.DB {
	switch order {
	case OrderByNewest:
		return db.Order("posts.created_at DESC, posts.id DESC")
	case OrderByOldest:
		return db.Order("posts.created_at ASC, posts.id ASC")
	default:
		return db.Order("posts.updated_at DESC, posts.id DESC")
	}
}
