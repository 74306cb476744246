package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/middleware"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/notifications"
	"github.com/anonto42/socialfeed/backend/internal/ratelimit"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/internal/repositories/inmem"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	t      *testing.T
	e      *echo.Echo
	store  *inmem.Store
	runner *notifications.Runner
	tokens map[string]string
	users  map[string]models.User
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithSlots(t, 8)
}

// newTestEnvWithSlots bounds the notification runner to slots concurrent tasks.
// Each option may swap collaborators before the router is built.
func newTestEnvWithSlots(t *testing.T, slots int, opts ...func(*Deps)) *testEnv {
	t.Helper()

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := inmem.NewStore()
	runner := notifications.NewRunner(slots, time.Second, log)

	deps := Deps{
		Users:         store.Users(),
		Posts:         store.Posts(),
		Comments:      store.Comments(),
		Likes:         store.Likes(),
		CommentLikes:  store.CommentLikes(),
		Notifications: store.Notifications(),
		Limiter:       ratelimit.NewLimiter(ratelimit.NewMemoryStore(), log).WithClock(func() time.Time { return now }),
		Runner:        runner,
		JWTSecret:     testSecret,
		TokenTTL:      time.Hour,
		Log:           log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	e := New(deps)

	return &testEnv{
		t:      t,
		e:      e,
		store:  store,
		runner: runner,
		tokens: map[string]string{},
		users:  map[string]models.User{},
	}
}

func (env *testEnv) addUser(username string, openProfile bool) models.User {
	env.t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", OpenProfile: openProfile}
	require.NoError(env.t, env.store.Users().CreateUser(context.Background(), &u))

	token, err := middleware.SignToken(testSecret, &u, time.Hour)
	require.NoError(env.t, err)
	env.tokens[username] = token
	env.users[username] = u
	return u
}

// do sends a JSON request as username; an empty username is anonymous.
func (env *testEnv) do(method, path, username string, body interface{}) *httptest.ResponseRecorder {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if username != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.tokens[username])
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func (env *testEnv) createPost(author, wall, message string) string {
	env.t.Helper()
	rec := env.do(http.MethodPost, "/api/v1/users/"+wall+"/posts", author, echo.Map{"message": message})
	require.Equal(env.t, http.StatusCreated, rec.Code, rec.Body.String())

	var post struct {
		ID string `json:"id"`
	}
	decode(env.t, rec, &post)
	require.Len(env.t, post.ID, 24)
	return post.ID
}

func (env *testEnv) createComment(author, postID string, parent *uint, message string) uint {
	env.t.Helper()
	rec := env.do(http.MethodPost, "/api/v1/comments", author, echo.Map{
		"postId":          postID,
		"parentCommentId": parent,
		"message":         message,
	})
	require.Equal(env.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Comment struct {
			ID uint `json:"id"`
		} `json:"comment"`
	}
	decode(env.t, rec, &resp)
	require.NotZero(env.t, resp.Comment.ID)
	return resp.Comment.ID
}

func (env *testEnv) notificationsFor(username string) []models.Notification {
	env.runner.Wait()
	var out []models.Notification
	for _, n := range env.store.AllNotifications() {
		if n.RecipientID == env.users[username].ID {
			out = append(out, n)
		}
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.APIError
	decode(t, rec, &body)
	return body.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLikePostIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("alice", "alice", "hello world")

	rec := env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var like struct {
		Likes   int  `json:"likes"`
		IsLiked bool `json:"isLiked"`
	}
	decode(t, rec, &like)
	assert.Equal(t, 1, like.Likes)
	assert.True(t, like.IsLiked)

	rec = env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.CodeConflict, errorCode(t, rec))

	notes := env.notificationsFor("alice")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationPostLike, notes[0].Type)
	assert.Equal(t, "bob liked your post", notes[0].Message)

	rec = env.do(http.MethodPost, "/api/v1/posts/"+postID+"/unlike", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &like)
	assert.Equal(t, 0, like.Likes)
	assert.False(t, like.IsLiked)
	assert.Empty(t, env.notificationsFor("alice"))

	rec = env.do(http.MethodPost, "/api/v1/posts/"+postID+"/unlike", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Like again after unlike notifies again.
	rec = env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.notificationsFor("alice"), 1)
}

func TestSelfLikeDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	postID := env.createPost("alice", "alice", "my own post")

	rec := env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.notificationsFor("alice"))

	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID+"/likes/status", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Likes   int  `json:"likes"`
		IsLiked bool `json:"isLiked"`
	}
	decode(t, rec, &status)
	assert.Equal(t, 1, status.Likes)
	assert.True(t, status.IsLiked)
}

func TestLikeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	postID := env.createPost("alice", "alice", "hello")

	rec := env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCommentLikeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("alice", "alice", "hello")
	commentID := env.createComment("alice", postID, nil, "first")

	path := fmt.Sprintf("/api/v1/comments/%d/", commentID)
	rec := env.do(http.MethodPost, path+"like", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(http.MethodPost, path+"like", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	notes := env.notificationsFor("alice")
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationCommentLike, notes[0].Type)
	require.NotNil(t, notes[0].CommentID)
	assert.Equal(t, commentID, *notes[0].CommentID)

	rec = env.do(http.MethodPost, path+"unlike", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.notificationsFor("alice"))

	rec = env.do(http.MethodPost, "/api/v1/comments/abc/like", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeInvalidID, errorCode(t, rec))
}

func TestCommentThreadsAndCascadeDelete(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	env.addUser("carol", true)
	postID := env.createPost("alice", "alice", "thread me")

	top := env.createComment("bob", postID, nil, "top level")
	reply := env.createComment("carol", postID, &top, "reply to bob")
	nested := env.createComment("alice", postID, &reply, "reply to carol")
	other := env.createComment("carol", postID, nil, "second thread")

	rec := env.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Total    int `json:"total"`
		Comments []struct {
			ID      uint `json:"id"`
			Author  models.UserCompact `json:"author"`
			Replies []struct {
				ID uint `json:"id"`
			} `json:"replies"`
		} `json:"comments"`
	}
	decode(t, rec, &listed)
	assert.Equal(t, 4, listed.Total)
	require.Len(t, listed.Comments, 2)
	assert.Equal(t, top, listed.Comments[0].ID)
	assert.Equal(t, "bob", listed.Comments[0].Author.Username)
	require.Len(t, listed.Comments[0].Replies, 2)
	assert.Equal(t, reply, listed.Comments[0].Replies[0].ID)
	assert.Equal(t, nested, listed.Comments[0].Replies[1].ID)
	assert.Equal(t, other, listed.Comments[1].ID)
	assert.Empty(t, listed.Comments[1].Replies)

	// alice: comment_on_post from bob, carol, carol. bob: reply from carol.
	// carol: reply from alice.
	assert.Len(t, env.notificationsFor("alice"), 3)
	assert.Len(t, env.notificationsFor("bob"), 1)
	assert.Len(t, env.notificationsFor("carol"), 1)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", top), "carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", top), "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deleted struct {
		DeletedIDs []uint `json:"deletedIds"`
		Deleted    int    `json:"deleted"`
	}
	decode(t, rec, &deleted)
	assert.Equal(t, 3, deleted.Deleted)
	assert.ElementsMatch(t, []uint{top, reply, nested}, deleted.DeletedIDs)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/comments/%d", nested), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Only the comment_on_post for the surviving thread is left.
	remaining := env.notificationsFor("alice")
	require.Len(t, remaining, 1)
	assert.Equal(t, other, *remaining[0].CommentID)
	assert.Empty(t, env.notificationsFor("bob"))
	assert.Empty(t, env.notificationsFor("carol"))

	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Post struct {
			CommentsCount int `json:"commentsCount"`
		} `json:"post"`
	}
	decode(t, rec, &got)
	assert.Equal(t, 1, got.Post.CommentsCount)
}

func TestReplyMustStayOnSamePost(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	first := env.createPost("alice", "alice", "first")
	second := env.createPost("alice", "alice", "second")
	parent := env.createComment("alice", first, nil, "on first")

	rec := env.do(http.MethodPost, "/api/v1/comments", "alice", echo.Map{
		"postId":          second,
		"parentCommentId": parent,
		"message":         "wrong post",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeValidationFailed, errorCode(t, rec))

	rec = env.do(http.MethodPost, "/api/v1/comments", "alice", echo.Map{
		"postId":          first,
		"parentCommentId": 9999,
		"message":         "missing parent",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	postID := env.createPost("alice", "alice", "hello")

	tests := []struct {
		name string
		path string
		body echo.Map
	}{
		{"blank comment", "/api/v1/comments", echo.Map{"postId": postID, "message": "   "}},
		{"bad post id", "/api/v1/comments", echo.Map{"postId": "abc", "message": "hi"}},
		{"unsafe comment", "/api/v1/comments", echo.Map{"postId": postID, "message": "<script>alert(1)</script>"}},
		{"empty post", "/api/v1/users/alice/posts", echo.Map{"message": ""}},
		{"unsafe post", "/api/v1/users/alice/posts", echo.Map{"message": "click javascript:void(0)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, tt.path, "alice", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, models.CodeValidationFailed, errorCode(t, rec))
		})
	}
}

func TestClosedWallRejectsOtherAuthors(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", false)
	env.addUser("bob", true)

	rec := env.do(http.MethodPost, "/api/v1/users/alice/posts", "bob", echo.Map{"message": "hi alice"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.createPost("alice", "alice", "my wall is closed")
	env.createPost("alice", "bob", "bob's wall is open")
}

func TestPostEditIsRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	postID := env.createPost("alice", "alice", "v0")

	for i := 1; i <= ratelimit.PostEdit.MaxRequests; i++ {
		rec := env.do(http.MethodPatch, "/api/v1/posts/"+postID, "alice", echo.Map{"message": fmt.Sprintf("v%d", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(http.MethodPatch, "/api/v1/posts/"+postID, "alice", echo.Map{"message": "one too many"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))

	var body models.APIError
	decode(t, rec, &body)
	assert.Equal(t, models.CodeRateLimited, body.Code)
	assert.Equal(t, 300, body.RetryAfter)

	// Other actions keep their own budget.
	rec = env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotificationFeed(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("bob", "bob", "shout out to @Alice and @nobody_here")

	var list struct {
		Success bool `json:"success"`
		Data    struct {
			Notifications []models.NotificationView `json:"notifications"`
		} `json:"data"`
		Meta struct {
			TotalItems int `json:"totalItems"`
		} `json:"meta"`
	}
	env.runner.Wait()
	rec := env.do(http.MethodGet, "/api/v1/notifications", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)

	assert.True(t, list.Success)
	assert.Equal(t, 1, list.Meta.TotalItems)
	require.Len(t, list.Data.Notifications, 1)
	n := list.Data.Notifications[0]
	assert.Equal(t, models.NotificationMentionPost, n.Type)
	assert.Equal(t, "bob mentioned you in a post", n.Message)
	assert.Equal(t, "bob", n.Sender.Username)
	require.NotNil(t, n.RelatedPost)
	assert.Equal(t, postID, n.RelatedPost.ID)
	assert.False(t, n.IsRead)

	rec = env.do(http.MethodGet, "/api/v1/notifications/unread-count", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":1}}`, rec.Body.String())

	// bob cannot touch alice's notification.
	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", n.ID), "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPatch, "/api/v1/notifications/mark-all-read", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/api/v1/notifications/unread-count", "alice", nil)
	assert.JSONEq(t, `{"success":true,"data":{"count":0}}`, rec.Body.String())

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", n.ID), "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.notificationsFor("alice"))
}

func TestDeletePostCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("alice", "alice", "short lived")
	env.createComment("bob", postID, nil, "nice")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "bob", nil).Code)
	require.Len(t, env.notificationsFor("alice"), 2)

	rec := env.do(http.MethodDelete, "/api/v1/posts/"+postID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, "/api/v1/posts/"+postID, "alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, env.notificationsFor("alice"))
	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	comments, err := env.store.Comments().GetCommentsByPostID(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentAcceptsUppercasePostID(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("alice", "alice", "case matters")
	upper := strings.ToUpper(postID)
	require.NotEqual(t, postID, upper)

	rec := env.do(http.MethodPost, "/api/v1/comments", "bob", echo.Map{"postId": upper, "message": "shouting"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Comment struct {
			ID     uint   `json:"id"`
			PostID string `json:"postId"`
		} `json:"comment"`
	}
	decode(t, rec, &created)
	assert.Equal(t, postID, created.Comment.PostID)

	rec = env.do(http.MethodPost, "/api/v1/comments", "alice", echo.Map{
		"postId":          upper,
		"parentCommentId": created.Comment.ID,
		"message":         "reply through the same id",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Total    int `json:"total"`
		Comments []struct {
			Replies []struct {
				ID uint `json:"id"`
			} `json:"replies"`
		} `json:"comments"`
	}
	decode(t, rec, &listed)
	assert.Equal(t, 2, listed.Total)
	require.Len(t, listed.Comments, 1)
	assert.Len(t, listed.Comments[0].Replies, 1)

	rec = env.do(http.MethodPost, "/api/v1/posts/"+upper+"/like", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	liked, err := env.store.Likes().HasUserLikedPost(context.Background(), postID, env.users["bob"].ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestCountersSurviveSaturatedRunner(t *testing.T) {
	env := newTestEnvWithSlots(t, 1)
	env.addUser("alice", true)
	env.addUser("bob", true)
	postID := env.createPost("alice", "alice", "busy day")

	env.runner.Wait()
	release := make(chan struct{})
	require.True(t, env.runner.Go("hold", nil, func(context.Context) (int, error) {
		<-release
		return 0, nil
	}))

	first := env.createComment("bob", postID, nil, "counted anyway")
	env.createComment("bob", postID, &first, "and a reply")
	env.createComment("bob", postID, nil, "second thread")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", "bob", nil).Code)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", first), "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Post struct {
			Likes         int `json:"likes"`
			CommentsCount int `json:"commentsCount"`
		} `json:"post"`
		Comments []json.RawMessage `json:"comments"`
	}
	decode(t, rec, &got)
	assert.Equal(t, 1, got.Post.CommentsCount)
	assert.Equal(t, 1, got.Post.Likes)
	assert.Len(t, got.Comments, 1)

	rec = env.do(http.MethodDelete, "/api/v1/posts/"+postID, "alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	comments, err := env.store.Comments().GetCommentsByPostID(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	likes, err := env.store.Likes().GetLikesCountByPostID(context.Background(), postID)
	require.NoError(t, err)
	assert.Zero(t, likes)

	close(release)
	// Notifications are the only work allowed to be dropped.
	assert.Empty(t, env.notificationsFor("alice"))
}

func TestLikedPosts(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	first := env.createPost("alice", "alice", "first")
	second := env.createPost("alice", "alice", "second")
	env.createPost("alice", "alice", "never liked")

	for _, id := range []string{first, second} {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/posts/"+id+"/like", "bob", nil).Code)
	}

	rec := env.do(http.MethodGet, "/api/v1/users/bob/likes", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			Posts []struct {
				ID      string             `json:"id"`
				IsLiked bool               `json:"isLiked"`
				Author  models.UserCompact `json:"author"`
			} `json:"posts"`
		} `json:"data"`
		Meta struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"meta"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data.Posts, 2)
	assert.Equal(t, second, resp.Data.Posts[0].ID)
	assert.Equal(t, first, resp.Data.Posts[1].ID)
	assert.True(t, resp.Data.Posts[0].IsLiked)
	assert.Equal(t, "alice", resp.Data.Posts[0].Author.Username)
	assert.False(t, resp.Meta.HasNextPage)

	rec = env.do(http.MethodGet, "/api/v1/users/bob/likes?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	require.Len(t, resp.Data.Posts, 1)
	assert.Equal(t, second, resp.Data.Posts[0].ID)
	assert.True(t, resp.Meta.HasNextPage)

	rec = env.do(http.MethodGet, "/api/v1/users/alice/likes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"posts":[]`)

	rec = env.do(http.MethodGet, "/api/v1/users/nobody/likes", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscoverUsers(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)
	env.addUser("carol", true)

	var resp struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}

	rec := env.do(http.MethodGet, "/api/v1/discover/users", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	names := []string{}
	for _, u := range resp.Users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	rec = env.do(http.MethodGet, "/api/v1/discover/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Len(t, resp.Users, 3)

	rec = env.do(http.MethodGet, "/api/v1/discover/users?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Len(t, resp.Users, 1)
}

func TestMessagesRenderMentionLinks(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("alice", true)
	env.addUser("bob", true)

	rec := env.do(http.MethodPost, "/api/v1/users/alice/posts", "alice", echo.Map{"message": "hi @Bob <b>bold</b>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post struct {
		ID          string `json:"id"`
		Message     string `json:"message"`
		MessageHTML string `json:"messageHtml"`
	}
	decode(t, rec, &post)
	assert.Equal(t, "hi @Bob <b>bold</b>", post.Message)
	assert.Equal(t, `hi <a href="/u/bob" class="mention-link">@Bob</a> &lt;b&gt;bold&lt;/b&gt;`, post.MessageHTML)

	env.createComment("bob", post.ID, nil, "thanks @alice & co")
	rec = env.do(http.MethodGet, "/api/v1/posts/"+post.ID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Comments []struct {
			MessageHTML string `json:"messageHtml"`
		} `json:"comments"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Comments, 1)
	assert.Equal(t, `thanks <a href="/u/alice" class="mention-link">@alice</a> &amp; co`, listed.Comments[0].MessageHTML)
}

type brokenLikeLookup struct {
	repositories.LikeRepository
}

func (brokenLikeLookup) HasUserLikedPost(context.Context, string, uint) (bool, error) {
	return false, errors.New("likes unavailable")
}

func TestLikeLookupFailureIsReported(t *testing.T) {
	env := newTestEnvWithSlots(t, 8, func(d *Deps) {
		d.Likes = brokenLikeLookup{d.Likes}
	})
	env.addUser("alice", true)
	postID := env.createPost("alice", "alice", "hello")

	rec := env.do(http.MethodGet, "/api/v1/posts/"+postID, "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, models.CodeInternal, errorCode(t, rec))

	rec = env.do(http.MethodGet, "/api/v1/posts", "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Anonymous readers never ask for like state.
	rec = env.do(http.MethodGet, "/api/v1/posts/"+postID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
