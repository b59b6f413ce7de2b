package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var errSaverStopped = errors.New("answer saver stopped")

type saveJob struct {
	ctx        context.Context
	questionID string
	value      string
	pause      time.Duration
	// result is nil for fire-and-forget saves from SelectAnswer.
	result chan error
}

// saver is the single consumer of an attempt's save queue. Because only this
// goroutine calls SubmitAnswer, at most one save request is in flight and the
// server sees saves in the order they were queued.
type saver struct {
	c         *Controller
	a         *attempt
	api       API
	sessionID string
	jobs      chan saveJob
	log       zerolog.Logger
}

func newSaver(c *Controller, a *attempt, queueSize int) *saver {
	return &saver{
		c:         c,
		a:         a,
		api:       c.api,
		sessionID: a.sessionID,
		jobs:      make(chan saveJob, queueSize),
		log:       c.log.With().Str("component", "answer_saver").Str("session_id", a.sessionID).Logger(),
	}
}

// run consumes the queue until the attempt's context is cancelled. Jobs still
// queued at that point are dropped; their waiters observe the cancellation.
func (s *saver) run(ctx context.Context) {
	s.log.Debug().Msg("Saver started")
	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Int("dropped", len(s.jobs)).Msg("Saver stopped")
			return
		case job := <-s.jobs:
			err := s.process(job)
			if job.result != nil {
				job.result <- err
				continue
			}
			if err != nil {
				s.log.Debug().Err(err).Str("question_id", job.questionID).Msg("Immediate save failed, left for reconciliation")
			}
		}
	}
}

func (s *saver) process(job saveJob) error {
	if !s.c.needsSave(s.a, job.questionID, job.value) {
		return nil
	}

	err := s.api.SubmitAnswer(job.ctx, s.sessionID, job.questionID, job.value)
	if err == nil {
		s.c.acknowledge(s.a, job.questionID, job.value)
	}

	sleepCtx(job.ctx, job.pause)

	if err != nil {
		return fmt.Errorf("%w: question %s: %w", ErrAnswerSaveFailed, job.questionID, err)
	}
	return nil
}

// enqueue queues a fire-and-forget save. It reports false when the queue is full.
func (s *saver) enqueue(job saveJob) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

// save queues one answer and waits for its outcome.
func (s *saver) save(ctx context.Context, questionID, value string, pause time.Duration) error {
	job := saveJob{
		ctx:        ctx,
		questionID: questionID,
		value:      value,
		pause:      pause,
		result:     make(chan error, 1),
	}

	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.a.ctx.Done():
		return errSaverStopped
	}

	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.a.ctx.Done():
		return errSaverStopped
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
