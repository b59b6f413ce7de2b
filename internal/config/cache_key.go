package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestSessionKey returns the cache key holding a test session's metadata.
func (r *CacheKeyStruct) TestSessionKey(sessionID string) string {
	return fmt.Sprintf("test_session:%s", sessionID)
}

// TestSessionAnswersKey returns the hash key of a session's answers (question_id → answer).
func (r *CacheKeyStruct) TestSessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("test_session:%s:answers", sessionID)
}

// UserOpenSessionKey returns the key pointing at a user's open session for a test.
func (r *CacheKeyStruct) UserOpenSessionKey(userID, testID string) string {
	return fmt.Sprintf("user:%s:test:%s:open_session", userID, testID)
}

// OpenSessionsKey returns the set of session IDs not yet completed.
func (r *CacheKeyStruct) OpenSessionsKey() string {
	return "test_sessions:open"
}

// TestProgressKey returns the cache key for a session's progress snapshot.
func (r *CacheKeyStruct) TestProgressKey(sessionID string) string {
	return fmt.Sprintf("test_progress:%s", sessionID)
}

var CacheKey = NewCacheKeyStruct()
