package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/repository"
)

// Test session errors.
var (
	ErrTestNotFound       = errors.New("test not found")
	ErrNotEnoughQuestions = errors.New("not enough questions available")
	ErrSessionNotFound    = errors.New("session not found or completed")
)

const (
	historyLimit = 5
	// defaultTimeLimit applies to sessions whose test left the catalog.
	defaultTimeLimit = 1800
)

// TestService implements the catalog and session endpoints of the sandbox.
type TestService struct {
	catalog  *repository.CatalogRepository
	sessions repository.SessionStore
	users    repository.UserStore
	log      zerolog.Logger
	now      func() time.Time
	shuffle  func(n int, swap func(i, j int))

	// mu serialises session writes so an answer can never land after the
	// session has been scored.
	mu sync.Mutex
}

// NewTestService creates a new TestService.
func NewTestService(
	catalog *repository.CatalogRepository,
	sessions repository.SessionStore,
	users repository.UserStore,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		catalog:  catalog,
		sessions: sessions,
		users:    users,
		log:      log.With().Str("component", "test_service").Logger(),
		now:      time.Now,
		shuffle:  rand.Shuffle,
	}
}

// ListTests returns active tests with the user's best score on each.
func (s *TestService) ListTests(ctx context.Context, userID string, category model.TestCategory) ([]model.TestSummary, error) {
	best, err := s.users.BestScores(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("best scores: %w", err)
	}
	tests := s.catalog.ListTests(category)

	out := make([]model.TestSummary, 0, len(tests))
	for _, t := range tests {
		sum := summary(t)
		if b, ok := best[t.ID]; ok {
			sum.BestScore = &b
		}
		out = append(out, sum)
	}
	return out, nil
}

// GetTest returns a test with the user's last five attempts summarised.
func (s *TestService) GetTest(ctx context.Context, userID, testID string) (*model.TestDetail, error) {
	t, ok := s.catalog.GetTest(testID)
	if !ok {
		return nil, ErrTestNotFound
	}

	history, err := s.users.Results(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}

	detail := &model.TestDetail{
		TestSummary:  summary(t),
		PassingScore: t.PassingScore,
		Attempts:     len(history),
	}
	if len(history) > 0 {
		best := history[0].Percentage
		for _, h := range history[1:] {
			best = math.Max(best, h.Percentage)
		}
		detail.BestScore = &best
		last := history[0].CreatedAt
		detail.LastAttempt = &last
	}
	return detail, nil
}

// StartTest resumes the user's open session for testID or starts a new one
// with a random sample of the category's questions.
func (s *TestService) StartTest(ctx context.Context, userID, testID string) (*model.StartSessionResponse, error) {
	t, ok := s.catalog.GetTest(testID)
	if !ok {
		return nil, ErrTestNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.sessions.FindOpen(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	if open != nil {
		s.log.Debug().Str("session_id", open.ID).Str("user_id", userID).Msg("Resuming open session")
		return startResponse(t, open), nil
	}

	bank := s.catalog.QuestionsFor(t.Category)
	n := t.QuestionsCount
	if n <= 0 {
		n = len(bank)
	}
	if len(bank) < n || n == 0 {
		return nil, ErrNotEnoughQuestions
	}

	s.shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
	questions := make([]model.Question, 0, n)
	for _, q := range bank[:n] {
		questions = append(questions, q.ForTaker())
	}

	sess := &model.TestSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		TestID:    testID,
		Questions: questions,
		Answers:   make(map[string]string),
		StartedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("user_id", userID).
		Str("test_id", testID).
		Int("questions", n).
		Msg("Session started")
	return startResponse(t, sess), nil
}

// SubmitAnswer stores the latest answer for a question and refreshes the
// progress cache.
func (s *TestService) SubmitAnswer(ctx context.Context, userID, sessionID string, req model.SubmitAnswerRequest) (*model.SubmitAnswerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	count, err := s.sessions.SaveAnswer(ctx, sessionID, req.QuestionID, req.Answer)
	if err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	progress := 0.0
	if len(sess.Questions) > 0 {
		progress = float64(count) / float64(len(sess.Questions)) * 100
	}
	if err := s.sessions.SetProgress(ctx, sessionID, model.Progress{Progress: progress, Answers: count}); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Progress cache update failed")
	}

	return &model.SubmitAnswerResponse{Success: true, Progress: progress}, nil
}

// CompleteTest scores the session, awards points and closes it. A second
// call fails with ErrSessionNotFound.
func (s *TestService) CompleteTest(ctx context.Context, userID, sessionID string) (*model.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.completeLocked(ctx, sess)
}

// ExpireStale completes open sessions whose time limit plus grace has
// passed, scoring whatever answers they hold. It returns how many it closed.
func (s *TestService) ExpireStale(ctx context.Context, grace time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.sessions.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open sessions: %w", err)
	}

	now := s.now()
	expired := 0
	for _, sess := range open {
		limit := time.Duration(defaultTimeLimit) * time.Second
		if t, ok := s.catalog.GetTest(sess.TestID); ok {
			limit = time.Duration(t.TimeLimit) * time.Second
		}
		if now.Before(sess.StartedAt.Add(limit + grace)) {
			continue
		}
		if _, err := s.completeLocked(ctx, sess); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Expiring session failed")
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *TestService) completeLocked(ctx context.Context, sess *model.TestSession) (*model.CompletionResult, error) {
	passing := DefaultPassingScore
	if t, ok := s.catalog.GetTest(sess.TestID); ok {
		passing = t.PassingScore
	}
	score := Score(sess.Questions, sess.Answers, func(id string) (string, bool) {
		q, ok := s.catalog.Question(id)
		return q.CorrectAnswer, ok
	}, passing)

	now := s.now().UTC()
	timeSpent := int(now.Sub(sess.StartedAt).Seconds())

	sess.Completed = true
	sess.CompletedAt = &now
	sess.CorrectAnswers = score.Correct
	sess.Score = score.Percentage
	sess.TimeSpent = timeSpent
	if err := s.sessions.Complete(ctx, sess); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}

	user, err := s.users.RecordResult(ctx, model.TestResult{
		UserID:       sess.UserID,
		TestID:       sess.TestID,
		SessionID:    sess.ID,
		Percentage:   score.Percentage,
		Passed:       score.Passed,
		PointsEarned: score.PointsEarned,
		CreatedAt:    now,
	}, CalculateLevel)
	if err != nil {
		return nil, fmt.Errorf("record result: %w", err)
	}

	if err := s.sessions.DeleteProgress(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Progress cache cleanup failed")
	}

	s.log.Info().
		Str("session_id", sess.ID).
		Str("user_id", sess.UserID).
		Int("correct", score.Correct).
		Int("total", score.Total).
		Float64("percentage", score.Percentage).
		Int("points_earned", score.PointsEarned).
		Int("level", user.Level).
		Msg("Session completed")

	return &model.CompletionResult{
		Score:          score.Correct,
		Percentage:     math.Round(score.Percentage*10) / 10,
		CorrectAnswers: score.Correct,
		TotalQuestions: score.Total,
		Passed:         score.Passed,
		PointsEarned:   score.PointsEarned,
		TimeSpent:      timeSpent,
	}, nil
}

// Progress returns the cached progress of a session, or zeros.
func (s *TestService) Progress(ctx context.Context, sessionID string) (*model.Progress, error) {
	p, err := s.sessions.GetProgress(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Progress cache read failed")
		return &model.Progress{}, nil
	}
	if p == nil {
		return &model.Progress{}, nil
	}
	return p, nil
}

// openSession loads a session owned by userID that is not yet completed.
func (s *TestService) openSession(ctx context.Context, userID, sessionID string) (*model.TestSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UserID != userID || sess.Completed {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func summary(t model.CatalogTest) model.TestSummary {
	return model.TestSummary{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Category:       t.Category,
		TimeLimit:      t.TimeLimit,
		QuestionsCount: t.QuestionsCount,
	}
}

func startResponse(t model.CatalogTest, sess *model.TestSession) *model.StartSessionResponse {
	started := sess.StartedAt
	return &model.StartSessionResponse{
		SessionID: sess.ID,
		Title:     t.Title,
		Questions: sess.Questions,
		TimeLimit: t.TimeLimit,
		StartedAt: &started,
	}
}
