package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/session"
)

const help = "Enter an option number to answer, n/p to move, t for time, s to submit, q to quit."

// taker drives one attempt from line commands.
type taker struct {
	ctrl  *session.Controller
	out   io.Writer
	lines <-chan string
	pos   int
}

func newTaker(ctrl *session.Controller, out io.Writer, lines <-chan string) *taker {
	return &taker{ctrl: ctrl, out: out, lines: lines}
}

func (t *taker) take(ctx context.Context, testID string) error {
	h, err := t.ctrl.Start(ctx, testID)
	if err != nil {
		return fmt.Errorf("start test: %w", err)
	}
	fmt.Fprintf(t.out, "\n%s: %d questions, %s to finish.\n%s\n",
		h.Test.Title, len(h.Test.Questions), formatRemaining(h.RemainingSeconds), help)
	t.show()

	done := t.ctrl.Done()
	for {
		select {
		case <-ctx.Done():
			t.ctrl.Exit()
			return ctx.Err()

		case <-done:
			if res, ok := t.ctrl.Result(); ok {
				fmt.Fprintln(t.out, "\nTime is up, your answers were submitted.")
				printResult(t.out, res)
			}
			return nil

		case ev := <-t.ctrl.Events():
			t.event(ev)

		case line, ok := <-t.lines:
			if !ok {
				t.ctrl.Exit()
				return nil
			}
			if t.command(ctx, line) {
				return nil
			}
		}
	}
}

func (t *taker) event(ev session.Event) {
	switch ev.Kind {
	case session.EventTick:
		if ev.Remaining > 0 && (ev.Remaining%60 == 0 || ev.Remaining <= 10) {
			fmt.Fprintf(t.out, "[%s left]\n", formatRemaining(ev.Remaining))
		}
	case session.EventSubmitFailed:
		if ev.Auto {
			fmt.Fprintf(t.out, "\nTime is up but submitting failed: %v\nYour answers are kept. Type s to try again.\n", ev.Err)
		}
	}
}

// command handles one input line and reports whether the attempt is over.
func (t *taker) command(ctx context.Context, line string) bool {
	snap := t.ctrl.Snapshot()
	questions := snap.Test.Questions

	switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
	case "":
		t.show()
	case "n":
		if t.pos < len(questions)-1 {
			t.pos++
		}
		t.show()
	case "p":
		if t.pos > 0 {
			t.pos--
		}
		t.show()
	case "t":
		fmt.Fprintf(t.out, "%s left, %d of %d answered.\n",
			formatRemaining(snap.RemainingSeconds), snap.Answered(), len(questions))
	case "s":
		if left := len(questions) - snap.Answered(); left > 0 {
			fmt.Fprintf(t.out, "Submitting with %d unanswered.\n", left)
		}
		res, err := t.ctrl.Submit(ctx)
		if err != nil {
			if errors.Is(err, session.ErrSubmitInProgress) {
				fmt.Fprintln(t.out, "Already submitting, please wait.")
				return false
			}
			if errors.Is(err, session.ErrNotActive) {
				return true
			}
			fmt.Fprintf(t.out, "Submitting failed: %v\nYour answers are kept. Type s to try again.\n", err)
			return false
		}
		printResult(t.out, res)
		return true
	case "q":
		if snap.State == session.StateSubmitting {
			fmt.Fprintln(t.out, "Submitting, please wait for the result.")
			return false
		}
		unsaved := snap.Unsaved
		t.ctrl.Exit()
		if unsaved > 0 {
			fmt.Fprintf(t.out, "Exited. %d unsaved answers were discarded.\n", unsaved)
		} else {
			fmt.Fprintln(t.out, "Exited.")
		}
		return true
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil || len(questions) == 0 {
			fmt.Fprintln(t.out, help)
			return false
		}
		q := questions[t.pos]
		if n < 1 || n > len(q.Options) {
			fmt.Fprintf(t.out, "Choose 1-%d.\n", len(q.Options))
			return false
		}
		if err := t.ctrl.SelectAnswer(q.ID, q.Options[n-1]); err != nil {
			fmt.Fprintf(t.out, "Cannot answer: %v\n", err)
			return false
		}
		if t.pos < len(questions)-1 {
			t.pos++
		}
		t.show()
	}
	return false
}

func (t *taker) show() {
	snap := t.ctrl.Snapshot()
	questions := snap.Test.Questions
	if len(questions) == 0 {
		return
	}
	q := questions[t.pos]

	fmt.Fprintf(t.out, "\nQuestion %d/%d  (answered %d, %s left)\n%s\n",
		t.pos+1, len(questions), snap.Answered(), formatRemaining(snap.RemainingSeconds), q.Text)
	chosen := snap.LocalAnswers[q.ID]
	for i, opt := range q.Options {
		mark := " "
		if opt == chosen {
			mark = "*"
			if snap.AcknowledgedAnswers[q.ID] == opt {
				mark = "✓"
			}
		}
		fmt.Fprintf(t.out, " %s %d) %s\n", mark, i+1, opt)
	}
}

// ─── Rendering ─────────────────────────────────────────────────────────

func formatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func printTests(w io.Writer, tests []model.TestSummary) {
	if len(tests) == 0 {
		fmt.Fprintln(w, "No tests available.")
		return
	}
	for i, t := range tests {
		best := "not taken"
		if t.BestScore != nil {
			best = fmt.Sprintf("best %.1f%%", *t.BestScore)
		}
		fmt.Fprintf(w, "%2d. %-28s %-13s %2d questions, %3d min, %s\n",
			i+1, t.Title, "["+string(t.Category)+"]", t.QuestionsCount, t.TimeLimit/60, best)
	}
	fmt.Fprintln(w)
}

func printDetail(w io.Writer, d *model.TestDetail) {
	fmt.Fprintf(w, "%s\n%s\nPassing score: %d%%. Attempts: %d.",
		d.Title, d.Description, d.PassingScore, d.Attempts)
	if d.BestScore != nil {
		fmt.Fprintf(w, " Best: %.1f%%.", *d.BestScore)
	}
	if d.LastAttempt != nil {
		fmt.Fprintf(w, " Last: %s.", d.LastAttempt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)
}

func printResult(w io.Writer, r *model.CompletionResult) {
	verdict := "Not passed"
	if r.Passed {
		verdict = "Passed"
	}
	fmt.Fprintf(w, "\n%s: %d/%d correct (%.1f%%), +%d points, %s.\n",
		verdict, r.CorrectAnswers, r.TotalQuestions, r.Percentage, r.PointsEarned, formatRemaining(r.TimeSpent))
}
