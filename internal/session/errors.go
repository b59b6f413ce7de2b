package session

import "errors"

var (
	ErrSessionStartFailed = errors.New("session start failed")
	ErrAnswerSaveFailed   = errors.New("answer save failed")
	ErrFlushFailed        = errors.New("could not save all answers before submitting")
	ErrCompletionFailed   = errors.New("session completion failed")

	ErrSessionActive    = errors.New("a session is already in progress")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrNotActive        = errors.New("session is not active")
	ErrUnknownQuestion  = errors.New("question does not belong to this test")
	ErrInvalidChoice    = errors.New("choice is not one of the question's options")
)
