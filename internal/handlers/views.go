package handlers

import (
	"context"

	"github.com/anonto42/socialfeed/backend/internal/mentions"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/internal/threads"
)

// PostView is a post with its author and wall owner resolved.
type PostView struct {
	models.Post
	MessageHTML string             `json:"messageHtml"`
	Author      models.UserCompact `json:"author"`
	WallOwner   models.UserCompact `json:"wallOwner"`
	IsLiked     bool               `json:"isLiked"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	models.Comment
	MessageHTML string             `json:"messageHtml"`
	Author      models.UserCompact `json:"author"`
}

func commentView(c models.Comment, author models.UserCompact) CommentView {
	return CommentView{Comment: c, MessageHTML: mentions.Linkify(c.Message), Author: author}
}

// ThreadView is a top-level comment and its flattened replies.
type ThreadView struct {
	CommentView
	Replies []CommentView `json:"replies"`
}

func postViews(ctx context.Context, users repositories.UserRepository, posts []models.Post) ([]PostView, error) {
	ids := make([]uint, 0, len(posts)*2)
	for _, p := range posts {
		ids = append(ids, p.AuthorID, p.WallOwnerID)
	}
	compacts, err := userCompacts(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{
			Post:        p,
			MessageHTML: mentions.Linkify(p.Message),
			Author:      compacts[p.AuthorID],
			WallOwner:   compacts[p.WallOwnerID],
		}
	}
	return views, nil
}

// threadViews builds the two level comment view for a post.
func threadViews(ctx context.Context, users repositories.UserRepository, comments []models.Comment) ([]ThreadView, error) {
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.AuthorID
	}
	compacts, err := userCompacts(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	built := threads.Build(comments)
	views := make([]ThreadView, len(built))
	for i, t := range built {
		replies := make([]CommentView, len(t.Replies))
		for j, r := range t.Replies {
			replies[j] = commentView(r, compacts[r.AuthorID])
		}
		views[i] = ThreadView{
			CommentView: commentView(t.Comment, compacts[t.AuthorID]),
			Replies:     replies,
		}
	}
	return views, nil
}
