package sequencer

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/oracle"
	"go.uber.org/zap"
)

//go:embed skill_question_prompt.md
var skillQuestionPrompt string

const answerAnalysisPrompt = `You are a technical interview analyst. Given a question, the skill it probes
and the candidate's answer, extract insight for the next question. Do not
score the answer.

Respond with JSON:
{"key_points": [string], "mentioned_technologies": [string],
 "depth_areas": [string], "follow_up_direction": string}`

// SkillLevels is the fixed per-skill question order. A skill's levels
// complete before the next skill begins.
var SkillLevels = []string{"basic", "practical", "advanced"}

// SkillCount is the number of skills evaluated per interview.
const SkillCount = 3

// SkillEntry is one completed question/answer pair inside a skill track.
type SkillEntry struct {
	Level    string
	Question interview.Question
	Answer   string
	Feedback *Feedback
}

// SkillTrack collects everything recorded for one evaluated skill.
type SkillTrack struct {
	Skill   string
	Entries []SkillEntry
}

// SkillDepth drives the adaptive 3 skills x 3 levels interview. Questions
// are oracle-generated from the profile, the prior-interview analysis and
// the history of the current skill only; history of other skills never
// leaks into the context.
type SkillDepth struct {
	client  *oracle.Client
	logger  *zap.Logger
	profile interview.Profile
	prior   interview.PriorAnalysis
	newID   func() string

	skills   []string
	tracks   []SkillTrack
	skillIdx int
	levelIdx int
	current  *interview.Question
}

// NewSkillDepth selects the skills to evaluate and builds the sequencer.
// Skills mentioned in the prior analysis come first, then remaining profile
// skills, both in profile declaration order. Fewer than SkillCount
// candidates is fatal.
func NewSkillDepth(client *oracle.Client, profile interview.Profile, prior interview.PriorAnalysis, newID func() string, log *zap.Logger) (*SkillDepth, error) {
	skills, err := SelectSkills(profile.Skills, prior.TechnicalKeywords)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	tracks := make([]SkillTrack, len(skills))
	for i, skill := range skills {
		tracks[i] = SkillTrack{Skill: skill}
	}

	return &SkillDepth{
		client:  client,
		logger:  log,
		profile: profile,
		prior:   prior,
		newID:   newID,
		skills:  skills,
		tracks:  tracks,
	}, nil
}

// SelectSkills orders and truncates the candidate skills: profile skills
// also present in the mentioned list first, then the rest, ties broken by
// profile declaration order.
func SelectSkills(profileSkills, mentioned []string) ([]string, error) {
	seen := make(map[string]bool, len(profileSkills))
	unique := make([]string, 0, len(profileSkills))
	for _, skill := range profileSkills {
		skill = strings.TrimSpace(skill)
		if skill == "" || seen[skill] {
			continue
		}
		seen[skill] = true
		unique = append(unique, skill)
	}

	if len(unique) < SkillCount {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientCandidates, len(unique), SkillCount)
	}

	mentionedSet := make(map[string]bool, len(mentioned))
	for _, m := range mentioned {
		mentionedSet[strings.TrimSpace(m)] = true
	}

	selected := make([]string, 0, SkillCount)
	for _, skill := range unique {
		if mentionedSet[skill] {
			selected = append(selected, skill)
		}
	}
	for _, skill := range unique {
		if !mentionedSet[skill] {
			selected = append(selected, skill)
		}
	}

	return selected[:SkillCount], nil
}

func (s *SkillDepth) NextQuestion(ctx context.Context) (*interview.Question, error) {
	if s.Finished() {
		return nil, nil
	}
	if s.current != nil {
		return s.current, nil
	}

	skill := s.skills[s.skillIdx]
	level := SkillLevels[s.levelIdx]

	text := s.generateQuestion(ctx, skill, level)

	// An aborted generation must not issue its fallback as the current
	// question.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.current = &interview.Question{
		ID:    s.newID(),
		Text:  text,
		Topic: skill,
	}

	return s.current, nil
}

func (s *SkillDepth) SubmitAnswer(ctx context.Context, ans interview.Answer) (*Transition, error) {
	if s.Finished() {
		return rejected("interview already completed"), nil
	}
	if s.current == nil {
		return rejected("no question has been issued"), nil
	}
	if ans.QuestionID != s.current.ID {
		return rejected(fmt.Sprintf("question %s is not the current question", ans.QuestionID)), nil
	}

	feedback := s.analyzeAnswer(ctx, s.current.Text, ans.Text, s.skills[s.skillIdx])

	// Commit only after all oracle work is done, so a caller abort leaves
	// the sequencer in its pre-call state.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.tracks[s.skillIdx].Entries = append(s.tracks[s.skillIdx].Entries, SkillEntry{
		Level:    SkillLevels[s.levelIdx],
		Question: *s.current,
		Answer:   ans.Text,
		Feedback: feedback,
	})
	s.current = nil

	s.levelIdx++
	if s.levelIdx >= len(SkillLevels) {
		s.levelIdx = 0
		s.skillIdx++
	}

	if s.Finished() {
		return &Transition{Outcome: OutcomeCompleted, Feedback: feedback}, nil
	}

	return &Transition{Outcome: OutcomeAdvanced, Feedback: feedback}, nil
}

func (s *SkillDepth) Finished() bool {
	return s.skillIdx >= len(s.skills)
}

func (s *SkillDepth) Progress() (answered, total int) {
	for _, track := range s.tracks {
		answered += len(track.Entries)
	}
	return answered, len(s.skills) * len(SkillLevels)
}

// Tracks returns the recorded per-skill results.
func (s *SkillDepth) Tracks() []SkillTrack {
	return s.tracks
}

// Skills returns the evaluation order chosen at construction.
func (s *SkillDepth) Skills() []string {
	return s.skills
}

func (s *SkillDepth) generateQuestion(ctx context.Context, skill, level string) string {
	history := make([]map[string]any, 0, len(SkillLevels))
	for _, entry := range s.tracks[s.skillIdx].Entries {
		item := map[string]any{
			"question": entry.Question.Text,
			"answer":   entry.Answer,
		}
		if entry.Feedback != nil && len(entry.Feedback.DepthAreas) > 0 {
			item["depth_areas"] = entry.Feedback.DepthAreas
		}
		history = append(history, item)
	}

	req := oracle.Request{
		SystemInstructions: skillQuestionPrompt,
		Payload: map[string]any{
			"skill":          skill,
			"level":          level,
			"profile":        s.profile,
			"prior_analysis": s.prior,
			"skill_history":  history,
		},
	}

	var generated struct {
		Question string `json:"question"`
		Why      string `json:"why"`
	}

	if err := s.client.Infer(ctx, req, &generated); err != nil {
		s.logger.Warn("question generation failed, using fallback",
			zap.String("skill", skill),
			zap.String("level", level),
			zap.Error(err),
		)
		return fallbackSkillQuestion(skill, level)
	}

	if strings.TrimSpace(generated.Question) == "" {
		return fallbackSkillQuestion(skill, level)
	}

	return strings.TrimSpace(generated.Question)
}

func (s *SkillDepth) analyzeAnswer(ctx context.Context, question, answer, skill string) *Feedback {
	req := oracle.Request{
		SystemInstructions: answerAnalysisPrompt,
		Payload: map[string]any{
			"skill":    skill,
			"question": question,
			"answer":   answer,
		},
	}

	var feedback Feedback
	if err := s.client.Infer(ctx, req, &feedback); err != nil {
		s.logger.Warn("answer analysis failed, recording answer without feedback",
			zap.String("skill", skill),
			zap.Error(err),
		)
		return nil
	}

	return &feedback
}

// A static question per level keeps the interview completable when the
// oracle is down.
func fallbackSkillQuestion(skill, level string) string {
	switch level {
	case "practical":
		return fmt.Sprintf("Walk me through a concrete problem you solved with %s. What approach did you take and why?", skill)
	case "advanced":
		return fmt.Sprintf("Describe a design decision or trade-off you made involving %s in production. What were the alternatives?", skill)
	default:
		return fmt.Sprintf("Tell me about your experience with %s. Where have you used it and for what?", skill)
	}
}
