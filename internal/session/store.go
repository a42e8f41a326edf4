package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/logger"
	"github.com/hireround/interview-engine/internal/oracle"
	"github.com/hireround/interview-engine/internal/sequencer"
	"github.com/hireround/interview-engine/internal/synthesis"
)

const (
	// DefaultTTL is how long an idle session survives before eviction.
	DefaultTTL = 2 * time.Hour

	// DefaultMaxSessions bounds concurrently held sessions; the oldest is
	// evicted first.
	DefaultMaxSessions = 1024
)

// Options tune the store. Zero values fall back to defaults; Clock and
// NewID exist for tests.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	Clock       func() time.Time
	NewID       func() string
}

// Store owns every live session. It serializes access per session, evicts
// idle sessions after the TTL and builds the final result exactly once.
type Store struct {
	sessions   *expirable.LRU[string, *Session]
	client     *oracle.Client
	aggregator *synthesis.Aggregator
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewStore builds a session store over the given oracle client.
func NewStore(client *oracle.Client, opts Options, log *zap.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Store{
		sessions:   expirable.NewLRU[string, *Session](opts.MaxSessions, nil, opts.TTL),
		client:     client,
		aggregator: synthesis.NewAggregator(client, log),
		logger:     log,
		now:        opts.Clock,
		newID:      opts.NewID,
	}
}

// Start creates a session of the given kind and returns its first question.
// Construction failures leave no session behind.
func (st *Store) Start(ctx context.Context, kind interview.Kind, seed Seed) (*Started, error) {
	seq, err := st.buildSequencer(kind, seed)
	if err != nil {
		return nil, err
	}

	now := st.now()
	s := &Session{
		id:        st.newID(),
		kind:      kind,
		createdAt: now,
		updatedAt: now,
		seq:       seq,
	}

	question, err := seq.NextQuestion(ctx)
	if err != nil {
		return nil, fmt.Errorf("first question: %w", err)
	}

	st.sessions.Add(s.id, s)

	_, total := seq.Progress()
	st.logger.Info("session started",
		zap.String(logger.FieldSession, s.id),
		zap.String("kind", string(kind)),
		zap.Int("total_questions", total),
	)

	return &Started{
		SessionID: s.id,
		Kind:      kind,
		Question:  question,
		Total:     total,
	}, nil
}

func (st *Store) buildSequencer(kind interview.Kind, seed Seed) (sequencer.Sequencer, error) {
	switch kind {
	case interview.KindGeneral:
		return sequencer.NewLinear(seed.Questions, 1)

	case interview.KindTeamReview:
		if len(seed.Respondents) < 1 {
			return nil, fmt.Errorf("%w: team review needs at least one", ErrInsufficientRespondents)
		}
		return sequencer.NewLinear(seed.Questions, len(seed.Respondents))

	case interview.KindTechnical:
		return sequencer.NewSkillDepth(st.client, seed.Profile, seed.Prior, st.newID, st.logger)

	case interview.KindSituational:
		return sequencer.NewPersona(st.client, st.newID, st.logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// NextQuestion returns the current question, or nil once the interview
// finished.
func (st *Store) NextQuestion(ctx context.Context, sessionID string) (*interview.Question, error) {
	s, err := st.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.NextQuestion(ctx)
}

// Answer submits one respondent's answer to the session's current question.
// A rejected submission returns ErrInvalidTransition with the sequencer's
// reason and changes nothing.
func (st *Store) Answer(ctx context.Context, sessionID, respondentID, text string) (*AnswerResult, error) {
	s, err := st.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.seq.NextQuestion(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: interview already completed", ErrInvalidTransition)
	}

	transition, err := s.seq.SubmitAnswer(ctx, interview.Answer{
		QuestionID:   current.ID,
		RespondentID: respondentID,
		Text:         text,
		SubmittedAt:  st.now(),
	})
	if err != nil {
		return nil, err
	}
	if !transition.Accepted() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, transition.Reason)
	}

	next, err := s.seq.NextQuestion(ctx)
	if err != nil {
		return nil, err
	}

	s.updatedAt = st.now()

	answered, total := s.seq.Progress()
	st.logger.Debug("answer accepted",
		zap.String(logger.FieldSession, s.id),
		zap.String("outcome", string(transition.Outcome)),
		zap.Int("answered", answered),
		zap.Int("total", total),
	)

	return &AnswerResult{
		Transition: transition,
		Next:       next,
		Answered:   answered,
		Total:      total,
	}, nil
}

// Progress reports accepted answers and the fixed total.
func (st *Store) Progress(sessionID string) (answered, total int, err error) {
	s, err := st.get(sessionID)
	if err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	answered, total = s.seq.Progress()
	return answered, total, nil
}

// Result builds the final artifact for a finished session. The first call
// does the synthesis work; later calls return the same result without any
// oracle traffic.
func (st *Store) Result(ctx context.Context, sessionID string) (*Result, error) {
	s, err := st.get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil {
		return s.result, nil
	}
	if !s.seq.Finished() {
		return nil, fmt.Errorf("%w: interview is not finished", ErrInvalidTransition)
	}

	result, err := st.buildResult(ctx, s)
	if err != nil {
		return nil, err
	}

	s.result = result
	return result, nil
}

func (st *Store) buildResult(ctx context.Context, s *Session) (*Result, error) {
	result := &Result{
		SessionID:   s.id,
		Kind:        s.kind,
		CompletedAt: st.now(),
	}

	switch seq := s.seq.(type) {
	case *sequencer.Linear:
		result.Transcript = seq.Records()
		for _, rec := range result.Transcript {
			qs, err := st.synthesizeRecord(ctx, rec)
			if err != nil {
				return nil, fmt.Errorf("synthesizing question %s: %w", rec.Question.ID, err)
			}
			result.Synthesis = append(result.Synthesis, qs)
		}

	case *sequencer.SkillDepth:
		result.SkillTracks = seq.Tracks()

	case *sequencer.Persona:
		report, err := seq.Report(ctx)
		if err != nil {
			return nil, fmt.Errorf("persona report: %w", err)
		}
		result.Persona = report

	default:
		return nil, fmt.Errorf("no result builder for kind %q", s.kind)
	}

	return result, nil
}

// synthesizeRecord aggregates one question's answers. Two or more
// respondents get the extract-then-judge strategy; a single respondent's
// answer is short enough for the one-shot rubric.
func (st *Store) synthesizeRecord(ctx context.Context, rec sequencer.Record) (QuestionSynthesis, error) {
	synthRec := synthesis.Record{
		QuestionID:   rec.Question.ID,
		QuestionText: rec.Question.Text,
	}
	for _, ans := range rec.Answers {
		synthRec.Responses = append(synthRec.Responses, synthesis.Perspective{
			RespondentID: ans.RespondentID,
			Answer:       ans.Text,
		})
	}

	var (
		res *synthesis.Result
		err error
	)
	if len(synthRec.Responses) >= 2 {
		res, err = st.aggregator.SynthesizeTwoPhase(ctx, synthRec)
	} else {
		res, err = st.aggregator.Synthesize(ctx, synthRec)
	}
	if err != nil {
		return QuestionSynthesis{}, err
	}

	return QuestionSynthesis{
		QuestionID:   rec.Question.ID,
		QuestionText: rec.Question.Text,
		Synthesis:    res,
	}, nil
}

// Delete removes a session immediately.
func (st *Store) Delete(sessionID string) error {
	if !st.sessions.Remove(sessionID) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	st.logger.Info("session deleted", zap.String(logger.FieldSession, sessionID))
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.sessions.Len()
}

func (st *Store) get(sessionID string) (*Session, error) {
	s, ok := st.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}
