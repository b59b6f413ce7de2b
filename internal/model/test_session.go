package model

import "time"

// CatalogQuestion is a question bank entry including its correct answer.
// Only the sandbox holds these; clients never see CorrectAnswer.
type CatalogQuestion struct {
	ID            string       `json:"id"`
	Category      TestCategory `json:"category"`
	Text          string       `json:"text"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty"`
	Type          string       `json:"type,omitempty"`
}

// ForTaker strips the correct answer.
func (q CatalogQuestion) ForTaker() Question {
	t := q.Type
	if t == "" {
		t = "multiple_choice"
	}
	return Question{ID: q.ID, Text: q.Text, Options: q.Options, Type: t}
}

// CatalogTest is a test definition in the sandbox catalog.
type CatalogTest struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Category       TestCategory `json:"category"`
	TimeLimit      int          `json:"time_limit"`
	PassingScore   int          `json:"passing_score"`
	QuestionsCount int          `json:"questions_count"`
	IsActive       bool         `json:"is_active"`
}

// TestSession is the server-side record of one attempt.
type TestSession struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	TestID         string            `json:"test_id"`
	Questions      []Question        `json:"questions"`
	Answers        map[string]string `json:"answers,omitempty"`
	Completed      bool              `json:"completed"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CorrectAnswers int               `json:"correct_answers"`
	Score          float64           `json:"score"`
	TimeSpent      int               `json:"time_spent"`
}

// TestResult is a completed attempt kept for best-score and history lookups.
type TestResult struct {
	UserID       string    `json:"user_id"`
	TestID       string    `json:"test_id"`
	SessionID    string    `json:"session_id"`
	Percentage   float64   `json:"percentage"`
	Passed       bool      `json:"passed"`
	PointsEarned int       `json:"points_earned"`
	CreatedAt    time.Time `json:"created_at"`
}
