package sequencer

import (
	"context"
	"errors"

	"github.com/hireround/interview-engine/internal/interview"
)

// ErrInsufficientCandidates reports that a skill-depth interview was
// constructed with fewer candidate skills than it needs. Fatal at session
// start, never recoverable.
var ErrInsufficientCandidates = errors.New("not enough candidate skills")

// Outcome classifies the result of submitting one answer.
type Outcome string

const (
	// OutcomeAdvanced means the answer was accepted and the interview
	// moved to the next question.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeWaiting means the answer was accepted but the current slot
	// still waits for other respondents.
	OutcomeWaiting Outcome = "waiting"
	// OutcomeCompleted means the answer was accepted and the interview is
	// now finished.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRejected means the answer was refused and sequencer state is
	// unchanged.
	OutcomeRejected Outcome = "rejected"
)

// Transition describes what happened to the interview after a submission.
type Transition struct {
	Outcome    Outcome
	WaitingFor int
	Reason     string
	Feedback   *Feedback
}

// Accepted reports whether the submission mutated sequencer state.
func (t *Transition) Accepted() bool {
	return t != nil && t.Outcome != OutcomeRejected
}

// Feedback carries the per-answer insights extracted for adaptive follow-up
// questions.
type Feedback struct {
	KeyPoints             []string `json:"key_points"`
	MentionedTechnologies []string `json:"mentioned_technologies"`
	DepthAreas            []string `json:"depth_areas"`
	FollowUpDirection     string   `json:"follow_up_direction"`
}

// Sequencer is the per-interview policy deciding the next question and
// completion. Implementations are not safe for concurrent use; the session
// layer serializes access.
type Sequencer interface {
	// NextQuestion returns the question for the current slot, or nil when
	// the interview is finished. Calling it again before an accepted
	// answer returns the same question without re-generating it.
	NextQuestion(ctx context.Context) (*interview.Question, error)

	// SubmitAnswer applies one answer. A rejected transition leaves all
	// state untouched.
	SubmitAnswer(ctx context.Context, ans interview.Answer) (*Transition, error)

	// Finished reports whether every slot has been satisfied.
	Finished() bool

	// Progress returns accepted answers so far and the fixed total.
	Progress() (answered, total int)
}

func rejected(reason string) *Transition {
	return &Transition{Outcome: OutcomeRejected, Reason: reason}
}
