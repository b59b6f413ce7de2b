package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nurkhatq/connect/internal/model"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionTTL  = 24 * time.Hour
	progressTTL = time.Hour
)

// SessionStore persists test sessions, their answers and the progress cache.
type SessionStore interface {
	Create(ctx context.Context, s *model.TestSession) error
	// Get returns the session with its answers, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*model.TestSession, error)
	// FindOpen returns the user's uncompleted session for testID, or nil.
	FindOpen(ctx context.Context, userID, testID string) (*model.TestSession, error)
	// SaveAnswer overwrites one answer and returns the number of answered questions.
	SaveAnswer(ctx context.Context, id, questionID, answer string) (int, error)
	// Complete persists the scored session and releases the user's open-session slot.
	Complete(ctx context.Context, s *model.TestSession) error
	// ListOpen returns every session that is not completed.
	ListOpen(ctx context.Context) ([]*model.TestSession, error)

	SetProgress(ctx context.Context, id string, p model.Progress) error
	// GetProgress returns nil when nothing is cached.
	GetProgress(ctx context.Context, id string) (*model.Progress, error)
	DeleteProgress(ctx context.Context, id string) error
}

// MemorySessionStore is the SessionStore used when no Redis URL is configured.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.TestSession
	open     map[string]string
	progress map[string]progressEntry
	now      func() time.Time
}

type progressEntry struct {
	p       model.Progress
	expires time.Time
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*model.TestSession),
		open:     make(map[string]string),
		progress: make(map[string]progressEntry),
		now:      time.Now,
	}
}

func openKey(userID, testID string) string { return userID + "/" + testID }

func (m *MemorySessionStore) Create(ctx context.Context, s *model.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneSession(s)
	if cp.Answers == nil {
		cp.Answers = make(map[string]string)
	}
	m.sessions[s.ID] = cp
	m.open[openKey(s.UserID, s.TestID)] = s.ID
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *MemorySessionStore) FindOpen(ctx context.Context, userID, testID string) (*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.open[openKey(userID, testID)]
	if !ok {
		return nil, nil
	}
	s, ok := m.sessions[id]
	if !ok || s.Completed {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (m *MemorySessionStore) SaveAnswer(ctx context.Context, id, questionID, answer string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	s.Answers[questionID] = answer
	return len(s.Answers), nil
}

func (m *MemorySessionStore) Complete(ctx context.Context, s *model.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[s.ID] = cloneSession(s)
	if m.open[openKey(s.UserID, s.TestID)] == s.ID {
		delete(m.open, openKey(s.UserID, s.TestID))
	}
	return nil
}

func (m *MemorySessionStore) ListOpen(ctx context.Context) ([]*model.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.TestSession
	for _, s := range m.sessions {
		if !s.Completed {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (m *MemorySessionStore) SetProgress(ctx context.Context, id string, p model.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[id] = progressEntry{p: p, expires: m.now().Add(progressTTL)}
	return nil
}

func (m *MemorySessionStore) GetProgress(ctx context.Context, id string) (*model.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.progress[id]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expires) {
		delete(m.progress, id)
		return nil, nil
	}
	p := e.p
	return &p, nil
}

func (m *MemorySessionStore) DeleteProgress(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progress, id)
	return nil
}

func cloneSession(s *model.TestSession) *model.TestSession {
	cp := *s
	cp.Questions = append([]model.Question(nil), s.Questions...)
	if s.Answers != nil {
		cp.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			cp.Answers[k] = v
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
