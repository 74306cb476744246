// Package threads turns the flat comment list of a post into a two level view:
// top-level comments, each carrying every descendant reply.
package threads

import (
	"sort"

	"github.com/anonto42/socialfeed/backend/internal/models"
)

// Thread is a top-level comment with all of its descendants flattened into
// Replies, oldest first.
type Thread struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// Build groups comments under their top-level ancestor. Replies whose chain
// ends at a parent missing from comments are left out of the result.
func Build(comments []models.Comment) []Thread {
	byID := make(map[uint]models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	var topLevel []models.Comment
	repliesByRoot := make(map[uint][]models.Comment)
	for _, c := range comments {
		if c.ParentCommentID == nil {
			topLevel = append(topLevel, c)
			continue
		}
		root := findRoot(c, byID)
		repliesByRoot[root] = append(repliesByRoot[root], c)
	}

	sortChronologically(topLevel)

	threads := make([]Thread, 0, len(topLevel))
	for _, c := range topLevel {
		replies := repliesByRoot[c.ID]
		if replies == nil {
			replies = []models.Comment{}
		}
		sortChronologically(replies)
		threads = append(threads, Thread{Comment: c, Replies: replies})
	}
	return threads
}

// findRoot walks parent links until it reaches a top-level comment. A parent
// id absent from byID becomes the root key itself. The walk visits each
// comment at most once, so a malformed cycle also terminates.
func findRoot(c models.Comment, byID map[uint]models.Comment) uint {
	seen := map[uint]bool{c.ID: true}
	current := c
	for current.ParentCommentID != nil {
		parentID := *current.ParentCommentID
		parent, ok := byID[parentID]
		if !ok || seen[parentID] {
			return parentID
		}
		seen[parentID] = true
		current = parent
	}
	return current.ID
}

func sortChronologically(comments []models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
