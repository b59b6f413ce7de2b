package service

import (
	"math"
	"strings"

	"github.com/nurkhatq/connect/internal/model"
)

// DefaultPassingScore applies when a test does not set its own.
const DefaultPassingScore = 70

// ScoreResult is the outcome of scoring one session.
type ScoreResult struct {
	Correct      int
	Total        int
	Percentage   float64 // rounded to 2 decimals
	Passed       bool
	PointsEarned int
}

// Score compares answers to the correct answers case-insensitively after
// trimming. Unanswered questions count as wrong.
func Score(questions []model.Question, answers map[string]string, correctAnswer func(questionID string) (string, bool), passingScore int) ScoreResult {
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}

	res := ScoreResult{Total: len(questions)}
	for _, q := range questions {
		given := answers[q.ID]
		if given == "" {
			continue
		}
		want, ok := correctAnswer(q.ID)
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(want)) {
			res.Correct++
		}
	}

	var pct float64
	if res.Total > 0 {
		pct = float64(res.Correct) / float64(res.Total) * 100
	}
	res.Passed = pct >= float64(passingScore)
	res.PointsEarned = PointsFor(pct, res.Passed)
	res.Percentage = math.Round(pct*100) / 100
	return res
}

// PointsFor awards 50 plus 4.5 per percent on a pass, and half a point per
// percent otherwise.
func PointsFor(percentage float64, passed bool) int {
	if passed {
		return 50 + int(percentage*4.5)
	}
	return max(0, int(percentage*0.5))
}

var levelThresholds = []int{1000, 3000, 6000, 10000, 15000, 25000, 40000, 60000, 85000}

// CalculateLevel maps total points to a level from 1 to 10.
func CalculateLevel(points int) int {
	for i, t := range levelThresholds {
		if points < t {
			return i + 1
		}
	}
	return len(levelThresholds) + 1
}
