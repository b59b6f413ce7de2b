package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurkhatq/connect/internal/model"
)

// ErrUserNotFound is returned when no user has the given ID.
var ErrUserNotFound = errors.New("user not found")

// UserStore persists users, their points and level, and test results.
type UserStore interface {
	// UpsertTelegramUser finds the user by Telegram ID, refreshing the non-empty
	// profile fields, or creates a level-1 user. created reports which happened.
	UpsertTelegramUser(ctx context.Context, tu model.TelegramUser) (user *model.User, created bool, err error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	// RecordResult stores res, adds its points to the user and raises the
	// level to levelFor(points) if that is higher. The level never decreases.
	RecordResult(ctx context.Context, res model.TestResult, levelFor func(points int) int) (*model.User, error)
	// Results returns the user's results for a test, newest first.
	Results(ctx context.Context, userID, testID string) ([]model.TestResult, error)
	// BestScores returns the best percentage per test for a user.
	BestScores(ctx context.Context, userID string) (map[string]float64, error)
}

// UserRepository keeps users and their test results in memory.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byTelegram map[int64]string
	results    []model.TestResult
	now        func() time.Time
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*model.User),
		byTelegram: make(map[int64]string),
		now:        time.Now,
	}
}

func (r *UserRepository) UpsertTelegramUser(ctx context.Context, tu model.TelegramUser) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byTelegram[tu.ID]; ok {
		u := r.byID[id]
		if tu.Username != "" {
			u.Username = tu.Username
		}
		if tu.FirstName != "" {
			u.FirstName = tu.FirstName
		}
		if tu.LastName != "" {
			u.LastName = tu.LastName
		}
		cp := *u
		return &cp, false, nil
	}

	u := &model.User{
		ID:         uuid.New().String(),
		TelegramID: tu.ID,
		Username:   tu.Username,
		FirstName:  tu.FirstName,
		LastName:   tu.LastName,
		Level:      1,
		IsActive:   true,
		CreatedAt:  r.now().UTC(),
	}
	r.byID[u.ID] = u
	r.byTelegram[tu.ID] = u.ID
	cp := *u
	return &cp, true, nil
}

// GetByID retrieves a user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// SetActive enables or disables a user.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *UserRepository) RecordResult(ctx context.Context, res model.TestResult, levelFor func(points int) int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[res.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = r.now().UTC()
	}
	r.results = append(r.results, res)

	u.Points += res.PointsEarned
	if lvl := levelFor(u.Points); lvl > u.Level {
		u.Level = lvl
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) Results(ctx context.Context, userID, testID string) ([]model.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.TestResult
	for i := len(r.results) - 1; i >= 0; i-- {
		if res := r.results[i]; res.UserID == userID && res.TestID == testID {
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) BestScores(ctx context.Context, userID string) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := make(map[string]float64)
	for _, res := range r.results {
		if res.UserID != userID {
			continue
		}
		if cur, ok := best[res.TestID]; !ok || res.Percentage > cur {
			best[res.TestID] = res.Percentage
		}
	}
	return best, nil
}
