// Package inmem provides map-backed implementations of the repository
// interfaces. They mirror the PostgreSQL and MongoDB behaviour closely enough
// for handler and dispatcher tests: unique keys, cascades and ordering.
package inmem

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every table. Each repository view shares the same lock so
// cascades across tables stay consistent.
type Store struct {
	mu sync.Mutex

	users         map[uint]models.User
	posts         map[string]models.Post
	comments      map[uint]models.Comment
	likes         map[string]map[uint]uint64 // post -> user -> insertion sequence
	commentLikes  map[uint]map[uint]bool
	notifications map[uint]models.Notification

	nextUserID         uint
	nextCommentID      uint
	nextNotificationID uint
	nextLikeSeq        uint64

	// Now stamps created rows; tests may replace it for deterministic ordering.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         map[uint]models.User{},
		posts:         map[string]models.Post{},
		comments:      map[uint]models.Comment{},
		likes:         map[string]map[uint]uint64{},
		commentLikes:  map[uint]map[uint]bool{},
		notifications: map[uint]models.Notification{},
		Now:           time.Now,
	}
}

func (s *Store) Users() repositories.UserRepository                 { return userRepo{s} }
func (s *Store) Posts() repositories.PostRepository                 { return postRepo{s} }
func (s *Store) Comments() repositories.CommentRepository           { return commentRepo{s} }
func (s *Store) Likes() repositories.LikeRepository                 { return likeRepo{s} }
func (s *Store) CommentLikes() repositories.CommentLikeRepository   { return commentLikeRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

// AllNotifications returns every stored notification ordered by id.
func (s *Store) AllNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Username = strings.ToLower(user.Username)
	for _, u := range r.s.users {
		if u.Username == user.Username || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return repositories.ErrAlreadyExists
		}
		if user.FirebaseUID != nil && u.FirebaseUID != nil && *u.FirebaseUID == *user.FirebaseUID {
			return repositories.ErrAlreadyExists
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = r.s.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r userRepo) find(match func(models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	name := strings.ToLower(username)
	return r.find(func(u models.User) bool { return u.Username == name })
}

func (r userRepo) GetUsersByUsernames(_ context.Context, usernames []string) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := map[string]bool{}
	for _, name := range usernames {
		wanted[strings.ToLower(name)] = true
	}
	users := []models.User{}
	for _, u := range r.s.users {
		if wanted[u.Username] {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email != "" && strings.EqualFold(u.Email, email) })
}

func (r userRepo) GetUserByFirebaseUID(_ context.Context, firebaseUID string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID })
}

func (r userRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	user.UpdatedAt = r.s.Now()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) DiscoverUsers(_ context.Context, excludeID uint, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []models.User{}
	for _, u := range r.s.users {
		if u.ID != excludeID {
			users = append(users, u)
		}
	}
	rand.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r userRepo) SearchUsers(_ context.Context, query string, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := strings.ToLower(query)
	users := []models.User{}
	for _, u := range r.s.users {
		if strings.Contains(u.Username, q) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// --- posts ---

type postRepo struct{ s *Store }

func (r postRepo) CreatePost(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = r.s.Now()
	post.UpdatedAt = post.CreatedAt
	r.s.posts[post.ID.Hex()] = *post
	return nil
}

// postKey mirrors primitive.ObjectIDFromHex, which accepts either hex case.
func postKey(id string) string {
	return strings.ToLower(id)
}

func (r postRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, repositories.ErrInvalidID
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postKey(id)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r postRepo) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	posts := []models.Post{}
	for _, id := range ids {
		if p, ok := r.s.posts[postKey(id)]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r postRepo) list(match func(models.Post) bool, skip, limit int64) []models.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	posts := []models.Post{}
	for _, p := range r.s.posts {
		if match(p) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if skip >= int64(len(posts)) {
		return []models.Post{}
	}
	posts = posts[skip:]
	if limit > 0 && int64(len(posts)) > limit {
		posts = posts[:limit]
	}
	return posts
}

func (r postRepo) GetPostsByWallOwner(_ context.Context, wallOwnerID uint, skip, limit int64) ([]models.Post, error) {
	return r.list(func(p models.Post) bool { return p.WallOwnerID == wallOwnerID }, skip, limit), nil
}

func (r postRepo) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	return r.list(func(models.Post) bool { return true }, skip, limit), nil
}

func (r postRepo) UpdatePost(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.posts[post.ID.Hex()]
	if !ok {
		return repositories.ErrNotFound
	}
	post.UpdatedAt = r.s.Now()
	stored.Message = post.Message
	stored.Embed = post.Embed
	stored.UpdatedAt = post.UpdatedAt
	r.s.posts[post.ID.Hex()] = stored
	return nil
}

func (r postRepo) DeletePost(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postKey(id)]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.posts, postKey(id))
	return nil
}

func (r postRepo) SetLikesCount(_ context.Context, postID string, count int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.posts[postKey(postID)]; ok {
		p.Likes = int(count)
		r.s.posts[postKey(postID)] = p
	}
	return nil
}

func (r postRepo) AdjustCommentsCount(_ context.Context, postID string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.posts[postKey(postID)]; ok {
		p.CommentsCount += delta
		r.s.posts[postKey(postID)] = p
	}
	return nil
}

// --- comments ---

type commentRepo struct{ s *Store }

func (r commentRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if comment.ParentCommentID != nil {
		if _, ok := r.s.comments[*comment.ParentCommentID]; !ok {
			return repositories.ErrNotFound
		}
	}
	r.s.nextCommentID++
	comment.ID = r.s.nextCommentID
	comment.CreatedAt = r.s.Now()
	comment.UpdatedAt = comment.CreatedAt
	r.s.comments[comment.ID] = *comment
	return nil
}

func (r commentRepo) GetCommentByID(_ context.Context, id uint) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r commentRepo) GetCommentsByIDs(_ context.Context, ids []uint) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comments := []models.Comment{}
	for _, id := range ids {
		if c, ok := r.s.comments[id]; ok {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (r commentRepo) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comments := []models.Comment{}
	for _, c := range r.s.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (r commentRepo) UpdateComment(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.comments[comment.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Message = comment.Message
	stored.UpdatedAt = r.s.Now()
	r.s.comments[comment.ID] = stored
	return nil
}

// DeleteCommentTree mimics ON DELETE CASCADE on parent_comment_id.
func (r commentRepo) DeleteCommentTree(_ context.Context, id uint) ([]uint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return nil, repositories.ErrNotFound
	}
	removed := []uint{id}
	for i := 0; i < len(removed); i++ {
		for _, c := range r.s.comments {
			if c.ParentCommentID != nil && *c.ParentCommentID == removed[i] {
				removed = append(removed, c.ID)
			}
		}
	}
	for _, cid := range removed {
		delete(r.s.comments, cid)
		delete(r.s.commentLikes, cid)
	}
	return removed, nil
}

func (r commentRepo) DeleteCommentsByPostID(_ context.Context, postID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if c.PostID == postID {
			delete(r.s.comments, id)
			delete(r.s.commentLikes, id)
			n++
		}
	}
	return n, nil
}

func (r commentRepo) SetLikesCount(_ context.Context, commentID uint, count int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.comments[commentID]; ok {
		c.Likes = int(count)
		r.s.comments[commentID] = c
	}
	return nil
}

// --- likes ---

type likeRepo struct{ s *Store }

func (r likeRepo) CreateLike(_ context.Context, like *models.Like) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.likes[like.PostID]
	if set == nil {
		set = map[uint]uint64{}
		r.s.likes[like.PostID] = set
	}
	if _, ok := set[like.UserID]; ok {
		return repositories.ErrAlreadyExists
	}
	r.s.nextLikeSeq++
	set[like.UserID] = r.s.nextLikeSeq
	like.CreatedAt = r.s.Now()
	return nil
}

func (r likeRepo) DeleteLike(_ context.Context, postID string, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.likes[postID][userID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.likes[postID], userID)
	return nil
}

func (r likeRepo) HasUserLikedPost(_ context.Context, postID string, userID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.likes[postID][userID]
	return ok, nil
}

func (r likeRepo) GetLikesCountByPostID(_ context.Context, postID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.likes[postID])), nil
}

func (r likeRepo) GetLikedPostIDs(_ context.Context, userID uint, skip, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type liked struct {
		postID string
		seq    uint64
	}
	var all []liked
	for postID, set := range r.s.likes {
		if seq, ok := set[userID]; ok {
			all = append(all, liked{postID, seq})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })

	ids := []string{}
	for i := skip; i < len(all) && (limit <= 0 || len(ids) < limit); i++ {
		ids = append(ids, all[i].postID)
	}
	return ids, nil
}

func (r likeRepo) DeleteLikesByPostID(_ context.Context, postID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.likes[postID]))
	delete(r.s.likes, postID)
	return n, nil
}

type commentLikeRepo struct{ s *Store }

func (r commentLikeRepo) CreateCommentLike(_ context.Context, like *models.CommentLike) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.commentLikes[like.CommentID]
	if set == nil {
		set = map[uint]bool{}
		r.s.commentLikes[like.CommentID] = set
	}
	if set[like.UserID] {
		return repositories.ErrAlreadyExists
	}
	set[like.UserID] = true
	like.CreatedAt = r.s.Now()
	return nil
}

func (r commentLikeRepo) DeleteCommentLike(_ context.Context, commentID, userID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.commentLikes[commentID][userID] {
		return repositories.ErrNotFound
	}
	delete(r.s.commentLikes[commentID], userID)
	return nil
}

func (r commentLikeRepo) HasUserLikedComment(_ context.Context, commentID, userID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.commentLikes[commentID][userID], nil
}

func (r commentLikeRepo) GetLikesCount(_ context.Context, commentID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.commentLikes[commentID])), nil
}

// --- notifications ---

type notificationRepo struct{ s *Store }

func (r notificationRepo) insert(n *models.Notification) {
	r.s.nextNotificationID++
	n.ID = r.s.nextNotificationID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.Now()
	}
	r.s.notifications[n.ID] = *n
}

func (r notificationRepo) dedupeTaken(key *string) bool {
	if key == nil {
		return false
	}
	for _, n := range r.s.notifications {
		if n.DedupeKey != nil && *n.DedupeKey == *key {
			return true
		}
	}
	return false
}

func (r notificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.dedupeTaken(n.DedupeKey) {
		return repositories.ErrAlreadyExists
	}
	r.insert(n)
	return nil
}

func (r notificationRepo) CreateNotificationIfAbsent(_ context.Context, n *models.Notification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.dedupeTaken(n.DedupeKey) {
		return false, nil
	}
	r.insert(n)
	return true, nil
}

func (r notificationRepo) BulkCreateNotifications(_ context.Context, notifications []models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range notifications {
		if r.dedupeTaken(notifications[i].DedupeKey) {
			return repositories.ErrAlreadyExists
		}
	}
	for i := range notifications {
		r.insert(&notifications[i])
	}
	return nil
}

func (r notificationRepo) FindNotification(_ context.Context, criteria repositories.NotificationCriteria) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *models.Notification
	for _, n := range r.s.notifications {
		n := n
		if criteria.Matches(&n) && (found == nil || n.ID < found.ID) {
			found = &n
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (r notificationRepo) DeleteNotifications(_ context.Context, criteria repositories.NotificationCriteria) (int64, error) {
	if criteria == (repositories.NotificationCriteria{}) {
		return 0, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, notification := range r.s.notifications {
		if criteria.Matches(&notification) {
			delete(r.s.notifications, id)
			n++
		}
	}
	return n, nil
}

func (r notificationRepo) GetByRecipientID(_ context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []models.Notification{}
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return []models.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r notificationRepo) GetUnreadCount(_ context.Context, recipientID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkAsRead(_ context.Context, notificationID, recipientID uint) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok || n.RecipientID != recipientID {
		return nil, repositories.ErrNotFound
	}
	n.IsRead = true
	r.s.notifications[notificationID] = n
	return &n, nil
}

func (r notificationRepo) MarkAllAsRead(_ context.Context, recipientID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for id, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			r.s.notifications[id] = n
			count++
		}
	}
	return count, nil
}
