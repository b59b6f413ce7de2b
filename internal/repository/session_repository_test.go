package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurkhatq/connect/internal/model"
)

func newSession(id, userID, testID string) *model.TestSession {
	return &model.TestSession{
		ID:     id,
		UserID: userID,
		TestID: testID,
		Questions: []model.Question{
			{ID: "q1", Text: "one", Options: []string{"a", "b"}},
			{ID: "q2", Text: "two", Options: []string{"c", "d"}},
		},
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func containsSession(list []*model.TestSession, id string) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}

// exerciseStore runs the same contract against any SessionStore.
func exerciseStore(t *testing.T, store SessionStore, prefix string) {
	ctx := context.Background()
	id := prefix + "-s1"
	user := prefix + "-u1"

	_, err := store.Get(ctx, id)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.SaveAnswer(ctx, id, "q1", "a")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Create(ctx, newSession(id, user, "ict")))

	open, err := store.FindOpen(ctx, user, "ict")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, id, open.ID)
	assert.Len(t, open.Questions, 2)

	listed, err := store.ListOpen(ctx)
	require.NoError(t, err)
	assert.True(t, containsSession(listed, id))

	none, err := store.FindOpen(ctx, user, "reading")
	require.NoError(t, err)
	assert.Nil(t, none)

	n, err := store.SaveAnswer(ctx, id, "q1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.SaveAnswer(ctx, id, "q1", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "overwrite does not add an answer")
	n, err = store.SaveAnswer(ctx, id, "q2", "c")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "b", "q2": "c"}, got.Answers)

	p, err := store.GetProgress(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)
	require.NoError(t, store.SetProgress(ctx, id, model.Progress{Progress: 100, Answers: 2}))
	p, err = store.GetProgress(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Answers)

	now := time.Now().UTC()
	got.Completed = true
	got.CompletedAt = &now
	got.CorrectAnswers = 1
	require.NoError(t, store.Complete(ctx, got))
	require.NoError(t, store.DeleteProgress(ctx, id))

	open, err = store.FindOpen(ctx, user, "ict")
	require.NoError(t, err)
	assert.Nil(t, open)

	listed, err = store.ListOpen(ctx)
	require.NoError(t, err)
	assert.False(t, containsSession(listed, id))

	done, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 1, done.CorrectAnswers)

	p, err = store.GetProgress(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseStore(t, NewMemorySessionStore(), "mem")
}

func TestMemorySessionStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	s := newSession("s1", "u1", "ict")
	require.NoError(t, store.Create(ctx, s))

	s.Questions[0].Text = "changed"
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "one", got.Questions[0].Text)

	got.Answers["q1"] = "a"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Answers)
}

func TestMemoryProgressExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetProgress(ctx, "s1", model.Progress{Progress: 50, Answers: 1}))
	now = now.Add(progressTTL + time.Second)

	p, err := store.GetProgress(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

// TestRedisSessionStore needs a disposable Redis, e.g.
// REDIS_TEST_URL=redis://localhost:6379/15.
func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisSessionStore(rdb), "redis-"+time.Now().Format("150405.000000"))
}
