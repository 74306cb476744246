package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/internal/repositories/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postID = "65f1a2b3c4d5e6f7a8b9c0d1"

type fixture struct {
	store *inmem.Store
	d     *Dispatcher
	alice models.User
	bob   models.User
	carol models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmem.NewStore()
	f := &fixture{store: store, d: NewDispatcher(store.Users(), store.Notifications())}
	for _, u := range []*models.User{
		{Username: "alice"}, {Username: "bob"}, {Username: "carol"},
	} {
		require.NoError(t, store.Users().CreateUser(context.Background(), u))
	}
	ctx := context.Background()
	a, _ := store.Users().GetUserByUsername(ctx, "alice")
	b, _ := store.Users().GetUserByUsername(ctx, "bob")
	c, _ := store.Users().GetUserByUsername(ctx, "carol")
	f.alice, f.bob, f.carol = *a, *b, *c
	return f
}

func actor(u models.User) Actor { return Actor{ID: u.ID, Username: u.Username} }

func TestPostLikeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.d.PostLiked(ctx, actor(f.bob), f.alice.ID, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.d.PostLiked(ctx, actor(f.bob), f.alice.ID, postID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all := f.store.AllNotifications()
	require.Len(t, all, 1)
	assert.Equal(t, models.NotificationPostLike, all[0].Type)
	assert.Equal(t, "bob liked your post", all[0].Message)
	assert.Equal(t, f.alice.ID, all[0].RecipientID)

	n, err = f.d.PostUnliked(ctx, f.bob.ID, f.alice.ID, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.store.AllNotifications())
}

func TestSelfActionsNeverNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := actor(f.alice)

	calls := []func() (int, error){
		func() (int, error) { return f.d.PostLiked(ctx, me, f.alice.ID, postID) },
		func() (int, error) { return f.d.CommentLiked(ctx, me, f.alice.ID, postID, 1) },
		func() (int, error) { return f.d.CommentOnPost(ctx, me, f.alice.ID, postID, 1) },
		func() (int, error) { return f.d.ReplyToComment(ctx, me, f.alice.ID, postID, 2) },
		func() (int, error) { return f.d.MentionsInPost(ctx, me, "hello @alice", postID) },
		func() (int, error) { return f.d.PostUnliked(ctx, f.alice.ID, f.alice.ID, postID) },
	}
	for i, call := range calls {
		n, err := call()
		require.NoError(t, err, "call %d", i)
		assert.Zero(t, n, "call %d", i)
	}
	assert.Empty(t, f.store.AllNotifications())
}

func TestMentionsSkipUnknownUsers(t *testing.T) {
	f := newFixture(t)

	n, err := f.d.MentionsInComment(context.Background(), actor(f.alice),
		"@Bob @ghost @carol @alice see http://x.com/@bob", postID, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := f.store.AllNotifications()
	require.Len(t, all, 2)
	recipients := []uint{all[0].RecipientID, all[1].RecipientID}
	assert.ElementsMatch(t, []uint{f.bob.ID, f.carol.ID}, recipients)
	for _, got := range all {
		assert.Equal(t, models.NotificationMentionComment, got.Type)
		assert.Equal(t, "alice mentioned you in a comment", got.Message)
		require.NotNil(t, got.CommentID)
		assert.Equal(t, uint(42), *got.CommentID)
		assert.Nil(t, got.DedupeKey)
	}
}

func TestMentionsWithoutMatchesWriteNothing(t *testing.T) {
	f := newFixture(t)
	n, err := f.d.MentionsInPost(context.Background(), actor(f.alice), "no mentions here", postID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommentAndReplyNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.d.CommentOnPost(ctx, Actor{ID: f.bob.ID}, f.alice.ID, postID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.d.ReplyToComment(ctx, actor(f.carol), f.bob.ID, postID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all := f.store.AllNotifications()
	require.Len(t, all, 2)
	assert.Equal(t, "Someone commented on your post", all[0].Message)
	assert.Equal(t, models.NotificationCommentReply, all[1].Type)
	assert.Equal(t, "carol replied to your comment", all[1].Message)
	assert.Equal(t, f.bob.ID, all[1].RecipientID)
}

func TestCommentLikeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.d.CommentLiked(ctx, actor(f.carol), f.bob.ID, postID, 9)
		require.NoError(t, err)
	}
	all := f.store.AllNotifications()
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DedupeKey)
	assert.Equal(t, DedupeKey(models.NotificationCommentLike, f.bob.ID, f.carol.ID, "9"), *all[0].DedupeKey)

	n, err := f.d.CommentUnliked(ctx, f.carol.ID, f.bob.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.d.CommentUnliked(ctx, f.carol.ID, f.bob.ID, 9)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// racingStore hides existing rows from FindNotification, the way a concurrent
// duplicate like sees the table before either insert lands.
type racingStore struct {
	Store
}

func (racingStore) FindNotification(context.Context, repositories.NotificationCriteria) (*models.Notification, error) {
	return nil, repositories.ErrNotFound
}

func TestDedupeKeyCollapsesRacingLikes(t *testing.T) {
	f := newFixture(t)
	d := NewDispatcher(f.store.Users(), racingStore{f.store.Notifications()})

	first, err := d.PostLiked(context.Background(), actor(f.bob), f.alice.ID, postID)
	require.NoError(t, err)
	second, err := d.PostLiked(context.Background(), actor(f.bob), f.alice.ID, postID)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, f.store.AllNotifications(), 1)
}

type brokenUsers struct{}

func (brokenUsers) GetUsersByUsernames(context.Context, []string) ([]models.User, error) {
	return nil, errors.New("db down")
}

func TestMentionLookupFailure(t *testing.T) {
	store := inmem.NewStore()
	d := NewDispatcher(brokenUsers{}, store.Notifications())
	_, err := d.MentionsInPost(context.Background(), Actor{ID: 1}, "@alice", postID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
