package model

import "time"

// TestCategory enumerates the admission test sections.
type TestCategory string

const (
	CategoryICT          TestCategory = "ict"
	CategoryLogical      TestCategory = "logical"
	CategoryReading      TestCategory = "reading"
	CategoryUseOfEnglish TestCategory = "useofenglish"
	CategoryGrammar      TestCategory = "grammar"
)

// TestSummary is a catalog entry as returned by GET /tests.
type TestSummary struct {
	ID             string       `json:"id" binding:"required"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Category       TestCategory `json:"category"`
	TimeLimit      int          `json:"time_limit" binding:"gt=0"`
	QuestionsCount int          `json:"questions_count"`
	BestScore      *float64     `json:"best_score"`
}

// TestDetail is returned by GET /tests/{id}.
type TestDetail struct {
	TestSummary
	PassingScore int        `json:"passing_score"`
	Attempts     int        `json:"attempts"`
	LastAttempt  *time.Time `json:"last_attempt"`
}

// Question is a single multiple-choice question as delivered to the test taker
// (no correct answer).
type Question struct {
	ID      string   `json:"id" binding:"required"`
	Text    string   `json:"text"`
	Options []string `json:"options" binding:"required,min=1"`
	Type    string   `json:"type,omitempty"`
}

// HasOption reports whether choice is one of the question's options.
func (q Question) HasOption(choice string) bool {
	for _, o := range q.Options {
		if o == choice {
			return true
		}
	}
	return false
}

// TestDefinition is the read-only definition of one attempt, fetched once at start.
type TestDefinition struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	TimeLimitSeconds int        `json:"time_limit"`
	Questions        []Question `json:"questions"`
}

// StartSessionResponse is returned by POST /tests/{id}/start.
type StartSessionResponse struct {
	SessionID string     `json:"session_id" binding:"required"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions" binding:"required,min=1,unique=ID,dive"`
	TimeLimit int        `json:"time_limit" binding:"required,gt=0"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// SubmitAnswerRequest is the body of POST /tests/sessions/{id}/answer.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// SubmitAnswerResponse acknowledges a stored answer.
type SubmitAnswerResponse struct {
	Success  bool    `json:"success"`
	Progress float64 `json:"progress"`
}

// CompletionResult is the scored outcome returned by POST /tests/sessions/{id}/complete.
type CompletionResult struct {
	Score          int     `json:"score"`
	Percentage     float64 `json:"percentage" binding:"gte=0,lte=100"`
	CorrectAnswers int     `json:"correct_answers" binding:"gte=0"`
	TotalQuestions int     `json:"total_questions" binding:"gte=0"`
	Passed         bool    `json:"passed"`
	PointsEarned   int     `json:"points_earned" binding:"gte=0"`
	TimeSpent      int     `json:"time_spent"`
}

// Progress is the cached progress snapshot of an open session.
type Progress struct {
	Progress float64 `json:"progress"`
	Answers  int     `json:"answers"`
}
