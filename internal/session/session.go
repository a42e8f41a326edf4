package session

import (
	"errors"
	"sync"
	"time"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/sequencer"
	"github.com/hireround/interview-engine/internal/synthesis"
)

var (
	// ErrSessionNotFound reports an unknown, deleted or expired session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTransition reports an operation the session's current state
	// does not allow. State is unchanged.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInsufficientRespondents reports a multi-respondent flow started
	// without enough respondents.
	ErrInsufficientRespondents = errors.New("not enough respondents")

	// ErrUnknownKind reports a Start with an unrecognized interview kind.
	ErrUnknownKind = errors.New("unknown interview kind")
)

// Seed carries everything a new session needs at start. Fields are used per
// kind: Questions by the fixed-script flows, Respondents by team-review,
// Profile and Prior by the adaptive flows.
type Seed struct {
	Profile     interview.Profile
	Prior       interview.PriorAnalysis
	Questions   []interview.Question
	Respondents []string
}

// Started is the Start response: the session handle plus its first question.
type Started struct {
	SessionID string              `json:"session_id"`
	Kind      interview.Kind      `json:"kind"`
	Question  *interview.Question `json:"question"`
	Total     int                 `json:"total"`
}

// AnswerResult reports what one submission did to the session.
type AnswerResult struct {
	Transition *sequencer.Transition
	Next       *interview.Question
	Answered   int
	Total      int
}

// QuestionSynthesis pairs one question with its aggregated view.
type QuestionSynthesis struct {
	QuestionID   string            `json:"question_id"`
	QuestionText string            `json:"question_text"`
	Synthesis    *synthesis.Result `json:"synthesis"`
}

// Result is the final session artifact. Exactly one of the kind-specific
// sections is populated; Transcript accompanies the fixed-script kinds.
type Result struct {
	SessionID   string                  `json:"session_id"`
	Kind        interview.Kind          `json:"kind"`
	CompletedAt time.Time               `json:"completed_at"`
	Transcript  []sequencer.Record      `json:"transcript,omitempty"`
	Synthesis   []QuestionSynthesis     `json:"synthesis,omitempty"`
	SkillTracks []sequencer.SkillTrack  `json:"skill_tracks,omitempty"`
	Persona     *sequencer.PersonaReport `json:"persona,omitempty"`
}

// Session is one live interview. All access goes through its mutex; the
// store hands the locked session to exactly one operation at a time.
type Session struct {
	mu sync.Mutex

	id        string
	kind      interview.Kind
	createdAt time.Time
	updatedAt time.Time
	seq       sequencer.Sequencer

	// result is set once and then served verbatim; repeated Result calls
	// never re-run synthesis.
	result *Result
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Kind returns the interview kind chosen at start.
func (s *Session) Kind() interview.Kind { return s.kind }

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns when the session last accepted an answer, or CreatedAt
// if none was accepted yet.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
