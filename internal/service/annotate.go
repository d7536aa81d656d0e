// Package service implements the social graph, feed composition, engagement and account logic.
package service

import (
	"chirp/internal/models"
)

// PostRefs indexes loaded posts by ID. A referenced ID that is absent is a deleted post.
type PostRefs map[uint]*models.Post

// NewPostRefs indexes posts by ID.
func NewPostRefs(posts ...[]models.Post) PostRefs {
	refs := PostRefs{}
	for _, batch := range posts {
		refs.Add(batch)
	}
	return refs
}

// Add indexes posts, keeping entries already present.
func (r PostRefs) Add(posts []models.Post) {
	for i := range posts {
		if _, ok := r[posts[i].ID]; !ok {
			r[posts[i].ID] = &posts[i]
		}
	}
}

// Has reports whether id was loaded.
func (r PostRefs) Has(id uint) bool {
	_, ok := r[id]
	return ok
}

// Annotate converts rows into views. Every view carries aggregate counts; the
// Liked and Reposted flags are set if and only if viewer is non-nil. refs must
// contain every row and every post the rows reference that still exists.
func Annotate(rows []models.Post, refs PostRefs, viewer *models.ViewerState) []models.PostView {
	views := make([]models.PostView, len(rows))
	for i := range rows {
		views[i] = annotatePost(&rows[i], refs, viewer, true)
	}
	return views
}

func annotatePost(p *models.Post, refs PostRefs, viewer *models.ViewerState, embed bool) models.PostView {
	v := models.PostView{
		ID:           p.ID,
		Kind:         models.ResolveKind(p, refs.Has),
		Body:         p.Body,
		Author:       p.Author.Summary(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		ReplyToID:    p.ReplyToID,
		RepostID:     p.RepostID,
		LikesCount:   p.LikesCount,
		RepostsCount: p.RepostsCount,
		RepliesCount: p.RepliesCount,
	}

	if viewer != nil {
		liked := viewer.HasLiked(p.ID)
		reposted := viewer.HasReposted(p.ID)
		v.Liked = &liked
		v.Reposted = &reposted
	}

	switch v.Kind {
	case models.PostKindRepost:
		if embed {
			target := annotatePost(refs[*p.RepostID], refs, viewer, false)
			v.Repost = &target
		}
	case models.PostKindReply:
		parent := refs[*p.ReplyToID].Author.Summary()
		v.ReplyingTo = &parent
	}

	return v
}

// referencedIDs returns the repost targets and reply parents of rows that are not already in refs.
func referencedIDs(rows []models.Post, refs PostRefs) []uint {
	seen := map[uint]struct{}{}
	var ids []uint
	add := func(id *uint) {
		if id == nil || refs.Has(*id) {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for i := range rows {
		add(rows[i].RepostID)
		add(rows[i].ReplyToID)
	}
	return ids
}

// contentIDs returns the IDs whose viewer flags may be rendered: the rows and their live repost targets.
func contentIDs(rows []models.Post, refs PostRefs) []uint {
	ids := make([]uint, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
		if rows[i].RepostID != nil && refs.Has(*rows[i].RepostID) {
			ids = append(ids, *rows[i].RepostID)
		}
	}
	return ids
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
