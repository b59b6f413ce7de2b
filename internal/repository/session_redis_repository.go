package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/model"
)

// RedisSessionStore keeps session metadata as JSON, answers as a hash per
// session and the progress snapshot under test_progress:{id} with a 1h TTL.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore creates a RedisSessionStore.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (r *RedisSessionStore) Create(ctx context.Context, s *model.TestSession) error {
	meta := *s
	meta.Answers = nil
	data, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.TestSessionKey(s.ID), data, sessionTTL)
		pipe.Del(ctx, config.CacheKey.TestSessionAnswersKey(s.ID))
		if len(s.Answers) > 0 {
			fields := make(map[string]interface{}, len(s.Answers))
			for q, a := range s.Answers {
				fields[q] = a
			}
			pipe.HSet(ctx, config.CacheKey.TestSessionAnswersKey(s.ID), fields)
			pipe.Expire(ctx, config.CacheKey.TestSessionAnswersKey(s.ID), sessionTTL)
		}
		pipe.Set(ctx, config.CacheKey.UserOpenSessionKey(s.UserID, s.TestID), s.ID, sessionTTL)
		pipe.SAdd(ctx, config.CacheKey.OpenSessionsKey(), s.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*model.TestSession, error) {
	data, err := r.rdb.Get(ctx, config.CacheKey.TestSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s model.TestSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	answers, err := r.rdb.HGetAll(ctx, config.CacheKey.TestSessionAnswersKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	s.Answers = answers
	return &s, nil
}

func (r *RedisSessionStore) FindOpen(ctx context.Context, userID, testID string) (*model.TestSession, error) {
	id, err := r.rdb.Get(ctx, config.CacheKey.UserOpenSessionKey(userID, testID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}

	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Completed {
		return nil, nil
	}
	return s, nil
}

func (r *RedisSessionStore) SaveAnswer(ctx context.Context, id, questionID, answer string) (int, error) {
	exists, err := r.rdb.Exists(ctx, config.CacheKey.TestSessionKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return 0, ErrSessionNotFound
	}

	key := config.CacheKey.TestSessionAnswersKey(id)
	var count *redis.IntCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, questionID, answer)
		pipe.Expire(ctx, key, sessionTTL)
		count = pipe.HLen(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	return int(count.Val()), nil
}

func (r *RedisSessionStore) Complete(ctx context.Context, s *model.TestSession) error {
	meta := *s
	meta.Answers = nil
	data, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetArgs(ctx, config.CacheKey.TestSessionKey(s.ID), data, redis.SetArgs{KeepTTL: true})
		pipe.Del(ctx, config.CacheKey.UserOpenSessionKey(s.UserID, s.TestID))
		pipe.SRem(ctx, config.CacheKey.OpenSessionsKey(), s.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// ListOpen reads the open-session set. IDs whose metadata has expired are
// dropped from the set.
func (r *RedisSessionStore) ListOpen(ctx context.Context) ([]*model.TestSession, error) {
	ids, err := r.rdb.SMembers(ctx, config.CacheKey.OpenSessionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}

	out := make([]*model.TestSession, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			r.rdb.SRem(ctx, config.CacheKey.OpenSessionsKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !s.Completed {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *RedisSessionStore) SetProgress(ctx context.Context, id string, p model.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, config.CacheKey.TestProgressKey(id), data, progressTTL).Err()
}

func (r *RedisSessionStore) GetProgress(ctx context.Context, id string) (*model.Progress, error) {
	data, err := r.rdb.Get(ctx, config.CacheKey.TestProgressKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var p model.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &p, nil
}

func (r *RedisSessionStore) DeleteProgress(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, config.CacheKey.TestProgressKey(id)).Err()
}
