package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/repository"
)

type testEnv struct {
	svc   *TestService
	users *repository.UserRepository
	store *repository.MemorySessionStore
	user  *model.User
	clock time.Time
}

func newTestEnv(t *testing.T, cat repository.Catalog) *testEnv {
	t.Helper()
	users := repository.NewUserRepository()
	store := repository.NewMemorySessionStore()
	svc := NewTestService(repository.NewCatalogRepository(cat), store, users, zerolog.Nop())
	svc.shuffle = func(int, func(i, j int)) {}

	env := &testEnv{svc: svc, users: users, store: store, clock: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return env.clock }

	u, _, err := users.UpsertTelegramUser(context.Background(), model.TelegramUser{ID: 42, FirstName: "Dana"})
	require.NoError(t, err)
	env.user = u
	return env
}

func correctAnswers(t *testing.T, cat repository.Catalog) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, q := range cat.Questions {
		out[q.ID] = q.CorrectAnswer
	}
	return out
}

func TestStartTestSamplesAndResumes(t *testing.T) {
	cat := repository.DemoCatalog()
	env := newTestEnv(t, cat)
	ctx := context.Background()

	resp, err := env.svc.StartTest(ctx, env.user.ID, "ict-basics")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.Questions, 5)
	assert.Equal(t, 900, resp.TimeLimit)
	for _, q := range resp.Questions {
		assert.Equal(t, "multiple_choice", q.Type)
		assert.NotEmpty(t, q.Options)
	}

	again, err := env.svc.StartTest(ctx, env.user.ID, "ict-basics")
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, again.SessionID)
	assert.Equal(t, resp.Questions, again.Questions)

	other, _, err := env.users.UpsertTelegramUser(ctx, model.TelegramUser{ID: 43})
	require.NoError(t, err)
	theirs, err := env.svc.StartTest(ctx, other.ID, "ict-basics")
	require.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, theirs.SessionID)
}

func TestStartTestErrors(t *testing.T) {
	cat := repository.DemoCatalog()
	cat.Tests = append(cat.Tests, model.CatalogTest{
		ID: "too-big", Title: "Too big", Category: model.CategoryReading, TimeLimit: 60, QuestionsCount: 50, IsActive: true,
	})
	env := newTestEnv(t, cat)

	_, err := env.svc.StartTest(context.Background(), env.user.ID, "missing")
	assert.ErrorIs(t, err, ErrTestNotFound)

	_, err = env.svc.StartTest(context.Background(), env.user.ID, "too-big")
	assert.ErrorIs(t, err, ErrNotEnoughQuestions)
}

func TestAnswerAndComplete(t *testing.T) {
	cat := repository.DemoCatalog()
	env := newTestEnv(t, cat)
	ctx := context.Background()
	correct := correctAnswers(t, cat)

	resp, err := env.svc.StartTest(ctx, env.user.ID, "logical-reasoning")
	require.NoError(t, err)
	require.Len(t, resp.Questions, 4)

	// Three right, one wrong; the first answer is overwritten.
	q := resp.Questions
	_, err = env.svc.SubmitAnswer(ctx, env.user.ID, resp.SessionID, model.SubmitAnswerRequest{QuestionID: q[0].ID, Answer: "wrong"})
	require.NoError(t, err)
	for i, question := range q {
		answer := correct[question.ID]
		if i == 3 {
			answer = "definitely wrong"
		}
		ack, err := env.svc.SubmitAnswer(ctx, env.user.ID, resp.SessionID, model.SubmitAnswerRequest{QuestionID: question.ID, Answer: answer})
		require.NoError(t, err)
		assert.True(t, ack.Success)
		assert.InDelta(t, float64(i+1)*25, ack.Progress, 0.001)
	}

	p, err := env.svc.Progress(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Answers)

	_, err = env.svc.SubmitAnswer(ctx, "someone-else", resp.SessionID, model.SubmitAnswerRequest{QuestionID: q[0].ID, Answer: "x"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	env.clock = env.clock.Add(95 * time.Second)
	res, err := env.svc.CompleteTest(ctx, env.user.ID, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CorrectAnswers)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.Equal(t, 75.0, res.Percentage)
	assert.True(t, res.Passed) // passing score 60
	pct := 75.0
	assert.Equal(t, 50+int(pct*4.5), res.PointsEarned)
	assert.Equal(t, 95, res.TimeSpent)

	_, err = env.svc.CompleteTest(ctx, env.user.ID, resp.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = env.svc.SubmitAnswer(ctx, env.user.ID, resp.SessionID, model.SubmitAnswerRequest{QuestionID: q[0].ID, Answer: "x"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	p, err = env.svc.Progress(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.Progress{}, *p)

	user, err := env.users.GetByID(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, res.PointsEarned, user.Points)
	assert.Equal(t, 1, user.Level)

	detail, err := env.svc.GetTest(ctx, env.user.ID, "logical-reasoning")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Attempts)
	require.NotNil(t, detail.BestScore)
	assert.Equal(t, 75.0, *detail.BestScore)
	require.NotNil(t, detail.LastAttempt)

	list, err := env.svc.ListTests(ctx, env.user.ID, model.CategoryLogical)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].BestScore)

	next, err := env.svc.StartTest(ctx, env.user.ID, "logical-reasoning")
	require.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, next.SessionID)
}

func TestCompleteRaisesLevel(t *testing.T) {
	cat := repository.DemoCatalog()
	env := newTestEnv(t, cat)
	ctx := context.Background()
	correct := correctAnswers(t, cat)

	for i := 0; i < 3; i++ {
		resp, err := env.svc.StartTest(ctx, env.user.ID, "ict-basics")
		require.NoError(t, err)
		for _, q := range resp.Questions {
			_, err := env.svc.SubmitAnswer(ctx, env.user.ID, resp.SessionID, model.SubmitAnswerRequest{QuestionID: q.ID, Answer: correct[q.ID]})
			require.NoError(t, err)
		}
		res, err := env.svc.CompleteTest(ctx, env.user.ID, resp.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 500, res.PointsEarned)
	}

	user, err := env.users.GetByID(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, user.Points)
	assert.Equal(t, 2, user.Level)
}

func TestExpireStaleClosesAbandonedSessions(t *testing.T) {
	cat := repository.DemoCatalog()
	env := newTestEnv(t, cat)
	ctx := context.Background()
	correct := correctAnswers(t, cat)

	resp, err := env.svc.StartTest(ctx, env.user.ID, "ict-basics")
	require.NoError(t, err)
	q := resp.Questions[0]
	_, err = env.svc.SubmitAnswer(ctx, env.user.ID, resp.SessionID, model.SubmitAnswerRequest{QuestionID: q.ID, Answer: correct[q.ID]})
	require.NoError(t, err)

	env.clock = env.clock.Add(900*time.Second + time.Minute)
	n, err := env.svc.ExpireStale(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "still within grace")

	env.clock = env.clock.Add(time.Minute + time.Second)
	n, err = env.svc.ExpireStale(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.svc.CompleteTest(ctx, env.user.ID, resp.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	user, err := env.users.GetByID(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, user.Points, "1 of 5 correct scores 20%")

	next, err := env.svc.StartTest(ctx, env.user.ID, "ict-basics")
	require.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, next.SessionID)
}
