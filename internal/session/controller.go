package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/validator"
)

// API is the part of the Session API the controller needs.
// *apiclient.Client satisfies it.
type API interface {
	StartTest(ctx context.Context, testID string) (*model.StartSessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID, answer string) error
	CompleteTest(ctx context.Context, sessionID string) (*model.CompletionResult, error)
}

// Options tunes timers and queue sizes. Zero values take the defaults; a
// negative pause disables it.
type Options struct {
	TickInterval      time.Duration // default 1s
	ReconcileInterval time.Duration // default 10s
	SavePause         time.Duration // default 50ms
	FlushPause        time.Duration // default 100ms
	QueueSize         int           // default 64
	EventBuffer       int           // default 64
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.ReconcileInterval <= 0 {
		o.ReconcileInterval = 10 * time.Second
	}
	if o.SavePause < 0 {
		o.SavePause = 0
	} else if o.SavePause == 0 {
		o.SavePause = 50 * time.Millisecond
	}
	if o.FlushPause < 0 {
		o.FlushPause = 0
	} else if o.FlushPause == 0 {
		o.FlushPause = 100 * time.Millisecond
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
	return o
}

// attempt is everything that lives exactly as long as one started session.
type attempt struct {
	sessionID string
	test      model.TestDefinition
	index     map[string]model.Question
	remaining int
	autoFired bool
	startedAt time.Time

	// local is the display source of truth; acked holds the values the server
	// has confirmed. Every acked key is present in local with the same value.
	local map[string]string
	acked map[string]string

	ctx       context.Context
	cancel    context.CancelFunc
	saver     *saver
	done      chan struct{}
	closeOnce sync.Once
}

func (a *attempt) teardown() {
	a.cancel()
	a.closeOnce.Do(func() { close(a.done) })
}

type pendingAnswer struct {
	questionID string
	value      string
}

// Controller owns one timed attempt at a time: countdown, immediate and
// periodic answer saves, and the flush-then-complete submission.
type Controller struct {
	api    API
	opts   Options
	log    zerolog.Logger
	events chan Event

	startMu sync.Mutex
	// passMu serialises reconciliation passes and the submit flush.
	passMu sync.Mutex

	mu     sync.Mutex
	state  State
	cur    *attempt
	result *model.CompletionResult
}

// NewController creates a Controller bound to api.
func NewController(api API, opts Options, log zerolog.Logger) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		api:    api,
		opts:   opts,
		log:    log.With().Str("component", "session_controller").Logger(),
		events: make(chan Event, opts.EventBuffer),
	}
}

// Events returns the controller's event stream. It is never closed.
func (c *Controller) Events() <-chan Event { return c.events }

// Done is closed when the current attempt completes or is exited.
// Before the first Start it returns nil, which blocks forever in a select.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.done
}

// Result returns the scored result of the last completed attempt.
func (c *Controller) Result() (*model.CompletionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.result != nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a session for testID and starts the countdown and
// reconciliation timers. A failed start leaves no state behind.
func (c *Controller) Start(ctx context.Context, testID string) (*Handle, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if s := c.State(); s == StateActive || s == StateSubmitting {
		return nil, ErrSessionActive
	}

	resp, err := c.api.StartTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStartFailed, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrSessionStartFailed)
	}
	if err := validator.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStartFailed, err)
	}

	a := &attempt{
		sessionID: resp.SessionID,
		test: model.TestDefinition{
			ID:               testID,
			Title:            resp.Title,
			TimeLimitSeconds: resp.TimeLimit,
			Questions:        append([]model.Question(nil), resp.Questions...),
		},
		index:     make(map[string]model.Question, len(resp.Questions)),
		remaining: resp.TimeLimit,
		startedAt: time.Now(),
		local:     make(map[string]string),
		acked:     make(map[string]string),
		done:      make(chan struct{}),
	}
	for _, q := range resp.Questions {
		a.index[q.ID] = q
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.saver = newSaver(c, a, c.opts.QueueSize)
	remaining := a.remaining

	c.mu.Lock()
	c.cur = a
	c.state = StateActive
	c.result = nil
	c.mu.Unlock()
	c.drainEvents()

	go a.saver.run(a.ctx)
	go c.runCountdown(a)
	go c.runReconcile(a)

	c.log.Info().
		Str("session_id", a.sessionID).
		Str("test_id", testID).
		Int("questions", len(a.test.Questions)).
		Int("time_limit", remaining).
		Msg("Session started")

	return &Handle{SessionID: a.sessionID, Test: a.test, RemainingSeconds: remaining}, nil
}

// SelectAnswer records choice for questionID and queues an immediate save.
// A failed save is not reported; the next reconciliation pass or the submit
// flush retries it.
func (c *Controller) SelectAnswer(questionID, choice string) error {
	c.mu.Lock()
	a := c.cur
	if a == nil || c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	q, ok := a.index[questionID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !q.HasOption(choice) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	a.local[questionID] = choice
	if v, ok := a.acked[questionID]; ok && v != choice {
		delete(a.acked, questionID)
	}
	c.mu.Unlock()

	queued := a.saver.enqueue(saveJob{
		ctx:        a.ctx,
		questionID: questionID,
		value:      choice,
		pause:      c.opts.SavePause,
	})
	if !queued {
		c.log.Debug().Str("question_id", questionID).Msg("Save queue full, deferring to reconciliation")
	}
	return nil
}

// Submit flushes unsaved answers and completes the session. A second call
// while a submission runs returns ErrSubmitInProgress. On failure the
// attempt returns to Active and Submit may be called again.
func (c *Controller) Submit(ctx context.Context) (*model.CompletionResult, error) {
	return c.submit(ctx, false)
}

func (c *Controller) submit(ctx context.Context, auto bool) (*model.CompletionResult, error) {
	c.mu.Lock()
	a := c.cur
	switch {
	case a != nil && c.state == StateSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	case a == nil || c.state != StateActive:
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	log := c.log.With().Str("session_id", a.sessionID).Bool("auto", auto).Logger()
	log.Info().Msg("Submitting session")

	result, err := c.flushAndComplete(ctx, a)
	if err != nil {
		c.mu.Lock()
		if c.cur == a && c.state == StateSubmitting {
			c.state = StateActive
		}
		c.mu.Unlock()

		log.Warn().Err(err).Msg("Submission failed")
		c.emit(Event{Kind: EventSubmitFailed, SessionID: a.sessionID, Err: err, Auto: auto})
		return nil, err
	}

	c.mu.Lock()
	if c.cur == a && c.state == StateSubmitting {
		c.state = StateCompleted
	}
	c.result = result
	c.mu.Unlock()
	a.teardown()

	log.Info().
		Float64("percentage", result.Percentage).
		Bool("passed", result.Passed).
		Int("points_earned", result.PointsEarned).
		Msg("Session completed")
	c.emit(Event{Kind: EventCompleted, SessionID: a.sessionID, Result: result, Auto: auto})
	return result, nil
}

func (c *Controller) flushAndComplete(ctx context.Context, a *attempt) (*model.CompletionResult, error) {
	if err := c.flush(ctx, a); err != nil {
		return nil, err
	}

	if !c.isCurrent(a, StateSubmitting) {
		return nil, ErrNotActive
	}

	result, err := c.api.CompleteTest(ctx, a.sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}
	return result, nil
}

// flush persists every unacknowledged answer in question order and fails on
// the first error. It waits for a running reconciliation pass.
func (c *Controller) flush(ctx context.Context, a *attempt) error {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	pending := c.unsaved(a)
	for _, p := range pending {
		if err := a.saver.save(ctx, p.questionID, p.value, c.opts.FlushPause); err != nil {
			return fmt.Errorf("%w: %w", ErrFlushFailed, err)
		}
	}

	if left := len(c.unsaved(a)); left > 0 {
		return fmt.Errorf("%w: %d answers not acknowledged", ErrFlushFailed, left)
	}
	if len(pending) > 0 {
		c.log.Debug().Str("session_id", a.sessionID).Int("count", len(pending)).Msg("Flushed answers")
	}
	return nil
}

// reconcile is one periodic pass over unsaved answers. Failures are logged and
// the pass continues; it stops early once the attempt leaves Active.
func (c *Controller) reconcile(a *attempt) {
	if !c.passMu.TryLock() {
		c.log.Debug().Str("session_id", a.sessionID).Msg("Previous pass still running, skipping")
		return
	}
	defer c.passMu.Unlock()

	if !c.isCurrent(a, StateActive) {
		return
	}

	pending := c.unsaved(a)
	if len(pending) == 0 {
		return
	}

	saved, failed := 0, 0
	for _, p := range pending {
		if !c.isCurrent(a, StateActive) {
			break
		}
		if err := a.saver.save(a.ctx, p.questionID, p.value, c.opts.SavePause); err != nil {
			if errors.Is(err, errSaverStopped) {
				break
			}
			failed++
			c.log.Debug().Err(err).Str("session_id", a.sessionID).Str("question_id", p.questionID).Msg("Reconcile save failed")
			continue
		}
		saved++
	}

	c.log.Debug().
		Str("session_id", a.sessionID).
		Int("pending", len(pending)).
		Int("saved", saved).
		Int("failed", failed).
		Msg("Reconcile pass done")
}

// Exit abandons the attempt. Unsaved answers are discarded without a flush.
// While a submission runs Exit does nothing; the submission decides whether
// the attempt ends Completed or goes back to Active.
func (c *Controller) Exit() {
	c.mu.Lock()
	a := c.cur
	if a == nil || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	unsaved := len(unsavedLocked(a))
	c.state = StateClosed
	a.local = make(map[string]string)
	a.acked = make(map[string]string)
	c.mu.Unlock()

	a.teardown()
	c.log.Info().Str("session_id", a.sessionID).Int("discarded", unsaved).Msg("Session exited")
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{State: c.state}
	a := c.cur
	if a == nil {
		return s
	}
	s.SessionID = a.sessionID
	s.Test = a.test
	s.RemainingSeconds = a.remaining
	s.LocalAnswers = copyMap(a.local)
	s.AcknowledgedAnswers = copyMap(a.acked)
	s.Unsaved = len(unsavedLocked(a))
	return s
}

// ─── Timers ─────────────────────────────────────────────────────────────

func (c *Controller) runCountdown(a *attempt) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			c.tick(a)
		}
	}
}

func (c *Controller) runReconcile(a *attempt) {
	ticker := time.NewTicker(c.opts.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			c.reconcile(a)
		}
	}
}

// tick advances the countdown by one second. The step that reaches zero
// fires the automatic submission, once per attempt.
func (c *Controller) tick(a *attempt) {
	c.mu.Lock()
	if c.cur != a || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	if a.remaining > 0 {
		a.remaining--
	}
	remaining := a.remaining
	fire := remaining == 0 && !a.autoFired
	if fire {
		a.autoFired = true
	}
	c.mu.Unlock()

	c.emit(Event{Kind: EventTick, SessionID: a.sessionID, Remaining: remaining})

	if fire {
		c.log.Info().Str("session_id", a.sessionID).Msg("Time is up, submitting automatically")
		go c.autoSubmit(a)
	}
}

func (c *Controller) autoSubmit(a *attempt) {
	if !c.isCurrent(a, StateActive) {
		return
	}
	_, err := c.submit(a.ctx, true)
	if errors.Is(err, ErrSubmitInProgress) || errors.Is(err, ErrNotActive) {
		c.log.Debug().Str("session_id", a.sessionID).Msg("Manual submission already running")
	}
}

// ─── State helpers ──────────────────────────────────────────────────────

func (c *Controller) isCurrent(a *attempt, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur == a && c.state == state
}

// needsSave reports whether value is still the local choice for questionID
// and not yet acknowledged. Superseded and duplicate saves are skipped.
func (c *Controller) needsSave(a *attempt, questionID, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != a || (c.state != StateActive && c.state != StateSubmitting) {
		return false
	}
	if a.local[questionID] != value {
		return false
	}
	v, ok := a.acked[questionID]
	return !ok || v != value
}

// acknowledge marks value as persisted unless the user changed it meanwhile.
func (c *Controller) acknowledge(a *attempt, questionID, value string) {
	c.mu.Lock()
	if c.cur != a || (c.state != StateActive && c.state != StateSubmitting) {
		c.mu.Unlock()
		return
	}
	if v, ok := a.local[questionID]; !ok || v != value {
		c.mu.Unlock()
		return
	}
	a.acked[questionID] = value
	c.mu.Unlock()

	c.emit(Event{Kind: EventAnswerSaved, SessionID: a.sessionID, QuestionID: questionID})
}

func (c *Controller) unsaved(a *attempt) []pendingAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != a {
		return nil
	}
	return unsavedLocked(a)
}

// unsavedLocked lists local answers whose acknowledged value differs, in question order.
func unsavedLocked(a *attempt) []pendingAnswer {
	var out []pendingAnswer
	for _, q := range a.test.Questions {
		v, ok := a.local[q.ID]
		if !ok {
			continue
		}
		if acked, ok := a.acked[q.ID]; ok && acked == v {
			continue
		}
		out = append(out, pendingAnswer{questionID: q.ID, value: v})
	}
	return out
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// drainEvents drops events left unread from a previous attempt.
func (c *Controller) drainEvents() {
	for {
		select {
		case <-c.events:
		default:
			return
		}
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
