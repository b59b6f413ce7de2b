package session

import "github.com/nurkhatq/connect/internal/model"

// State is the lifecycle state of the controller's current attempt.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateSubmitting
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventTick carries the remaining seconds after each countdown step.
	EventTick EventKind = iota
	// EventAnswerSaved reports that the server acknowledged QuestionID.
	EventAnswerSaved
	// EventSubmitFailed reports a failed manual or automatic submission; Err is set.
	EventSubmitFailed
	// EventCompleted carries the scored Result.
	EventCompleted
)

// Event is published on Controller.Events. Sends never block: a slow reader
// misses events and should fall back to Snapshot.
type Event struct {
	Kind EventKind
	// SessionID is the attempt the event belongs to.
	SessionID  string
	Remaining  int
	QuestionID string
	Result     *model.CompletionResult
	Err        error
	// Auto is set on submission events triggered by the countdown.
	Auto bool
}

// Handle describes a freshly started attempt.
type Handle struct {
	SessionID        string
	Test             model.TestDefinition
	RemainingSeconds int
}

// Snapshot is a consistent copy of the controller state for display.
type Snapshot struct {
	State               State
	SessionID           string
	Test                model.TestDefinition
	RemainingSeconds    int
	LocalAnswers        map[string]string
	AcknowledgedAnswers map[string]string
	// Unsaved counts local answers the server has not acknowledged with the same value.
	Unsaved int
}

// Answered is the number of questions with a local choice.
func (s Snapshot) Answered() int { return len(s.LocalAnswers) }
