package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nurkhatq/connect/internal/model"
)

func TestScore(t *testing.T) {
	questions := []model.Question{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	correct := map[string]string{"a": "Router", "b": "8", "c": "  were "}
	lookup := func(id string) (string, bool) {
		v, ok := correct[id]
		return v, ok
	}

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		res := Score(questions, map[string]string{"a": "router ", "b": "8", "c": "WERE"}, lookup, 70)
		assert.Equal(t, 3, res.Correct)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 100.0, res.Percentage)
		assert.True(t, res.Passed)
		assert.Equal(t, 500, res.PointsEarned)
	})

	t.Run("two of three", func(t *testing.T) {
		res := Score(questions, map[string]string{"a": "Router", "b": "8", "c": "was"}, lookup, 70)
		assert.Equal(t, 2, res.Correct)
		assert.Equal(t, 66.67, res.Percentage)
		assert.False(t, res.Passed)
		assert.Equal(t, 33, res.PointsEarned)
	})

	t.Run("default passing score", func(t *testing.T) {
		res := Score(questions, map[string]string{"a": "Router", "b": "8"}, lookup, 0)
		assert.False(t, res.Passed)

		res = Score(questions, map[string]string{"a": "Router", "b": "8"}, lookup, 60)
		assert.True(t, res.Passed)
		assert.InDelta(t, 350, res.PointsEarned, 1)
	})

	t.Run("unanswered and unknown", func(t *testing.T) {
		res := Score(append(questions, model.Question{ID: "x"}), map[string]string{"x": "anything"}, lookup, 70)
		assert.Equal(t, 0, res.Correct)
		assert.Equal(t, 4, res.Total)
		assert.Equal(t, 0, res.PointsEarned)
	})

	t.Run("no questions", func(t *testing.T) {
		res := Score(nil, nil, lookup, 70)
		assert.Equal(t, 0.0, res.Percentage)
		assert.False(t, res.Passed)
	})
}

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		points int
		level  int
	}{
		{0, 1}, {999, 1}, {1000, 2}, {2999, 2}, {3000, 3}, {6000, 4}, {10000, 5},
		{15000, 6}, {25000, 7}, {40000, 8}, {59999, 8}, {60000, 9}, {85000, 10}, {1000000, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, CalculateLevel(tt.points), "points=%d", tt.points)
	}
}
