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

//go:embed deep_dive_prompt.md
var deepDivePrompt string

const personaAnalysisPrompt = `You are an HR analyst scoring one interview answer against persona
dimensions. For every target dimension, score the traits the answer actually
shows, between 0.0 and 1.0 per trait. Strong signal: 0.7-1.0, medium:
0.4-0.6, weak: 0.0-0.3. Scores need not sum to 1. Only use the target
dimensions; leave the others out. Score only what the answer shows; never
guess.

Respond with JSON:
{"reasoning": string, "work_style": {trait: score},
 "problem_solving": {trait: score}, "learning": {trait: score},
 "stress_response": {trait: score}, "communication": {trait: score}}`

const personaReportPrompt = `You are a talent analyst. Given the per-dimension dominant traits and the
interview transcript, write a short persona summary and a recommended team
environment. Quote the candidate's actual answers when justifying a
dimension; keep each justification to one sentence.

Respond with JSON:
{"summary": string, "team_fit": string, "dimension_notes": {dimension: string}}`

// Phase names of the persona interview, in order.
const (
	PhaseExploration = "exploration"
	PhaseDeepDive    = "deep_dive"
	PhaseValidation  = "validation"
)

const (
	explorationCount = 3
	deepDiveCount    = 2
	personaTotal     = 6
)

// explorationPool is the fixed opening set; each question is pre-tagged
// with the dimensions it is allowed to score.
var explorationPool = []interview.Question{
	{
		ID:   "persona-exploration-1",
		Text: "Tell me about a time your team disagreed on how to proceed. How did you handle the conflict? Please describe the concrete situation and what you did.",
		TargetDimensions: []string{
			interview.DimensionWorkStyle,
			interview.DimensionCommunication,
		},
	},
	{
		ID:   "persona-exploration-2",
		Text: "How do you respond when priorities change unexpectedly or a deadline is suddenly moved up? Walk me through a concrete example.",
		TargetDimensions: []string{
			interview.DimensionProblemSolving,
			interview.DimensionStressResponse,
		},
	},
	{
		ID:   "persona-exploration-3",
		Text: "Describe a time you had to pick up a completely new domain or task on short notice. How did you learn it and what came out of it?",
		TargetDimensions: []string{
			interview.DimensionLearning,
		},
	},
}

// validationQuestions closes the interview with one fixed question for the
// least certain dimension.
var validationQuestions = map[string]string{
	interview.DimensionWorkStyle:      "When two tasks with different priorities land at the same time, how do you coordinate with your team to handle them?",
	interview.DimensionProblemSolving: "When you face a problem you have never seen before, how do you approach solving it? Please use a concrete case.",
	interview.DimensionLearning:       "Have you ever introduced a new tool or way of working to your team? How did you contribute to the change?",
	interview.DimensionStressResponse: "Tell me about an unexpected difficulty right before an important deliverable. What exactly did you do?",
	interview.DimensionCommunication:  "When a colleague strongly disagrees with your opinion, how do you act? Focus on concrete behavior and outcome.",
}

// deepDiveFallbacks keep the interview going when question generation fails.
var deepDiveFallbacks = map[string]string{
	interview.DimensionWorkStyle:      "Tell me about a time a team or leadership decision did not match what you thought was right. What did you do?",
	interview.DimensionProblemSolving: "Describe a project where you had to diagnose the root cause of a problem before acting. How did you proceed?",
	interview.DimensionLearning:       "What was the hardest thing you taught yourself for work, and how did you go about it?",
	interview.DimensionStressResponse: "Tell me about the most pressured period in your work so far. How did you get through it?",
	interview.DimensionCommunication:  "Describe a situation where you had to convince someone who saw things very differently. How did it end?",
}

// QA is one recorded persona exchange.
type QA struct {
	Question  interview.Question
	Answer    string
	Reasoning string
	Phase     string
}

// PersonaReport is the final artifact of a persona interview.
type PersonaReport struct {
	DominantTraits map[string]string            `json:"dominant_traits"`
	Scores         map[string]map[string]float64 `json:"scores"`
	Confidence     float64                       `json:"confidence"`
	Summary        string                        `json:"summary"`
	TeamFit        string                        `json:"team_fit"`
	DimensionNotes map[string]string             `json:"dimension_notes"`
}

// Persona drives the phased culture-fit interview: three fixed exploration
// questions, two oracle-generated deep dives into the globally dominant
// trait, and one fixed validation question for the least certain dimension.
type Persona struct {
	client *oracle.Client
	logger *zap.Logger
	newID  func() string

	board   *interview.ScoreBoard
	history []QA
	asked   int
	current *interview.Question
	phase   string
}

// NewPersona builds the phased persona sequencer.
func NewPersona(client *oracle.Client, newID func() string, log *zap.Logger) *Persona {
	if log == nil {
		log = zap.NewNop()
	}

	return &Persona{
		client: client,
		logger: log,
		newID:  newID,
		board:  interview.NewScoreBoard(),
		phase:  PhaseExploration,
	}
}

func (p *Persona) NextQuestion(ctx context.Context) (*interview.Question, error) {
	if p.Finished() {
		return nil, nil
	}
	if p.current != nil {
		return p.current, nil
	}

	switch {
	case p.asked < explorationCount:
		p.phase = PhaseExploration
		q := explorationPool[p.asked]
		p.current = &q

	case p.asked < explorationCount+deepDiveCount:
		p.phase = PhaseDeepDive
		q := p.deepDiveQuestion(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.current = q

	default:
		p.phase = PhaseValidation
		p.current = p.validationQuestion()
	}

	return p.current, nil
}

func (p *Persona) SubmitAnswer(ctx context.Context, ans interview.Answer) (*Transition, error) {
	if p.Finished() {
		return rejected("interview already completed"), nil
	}
	if p.current == nil {
		return rejected("no question has been issued"), nil
	}
	if ans.QuestionID != p.current.ID {
		return rejected(fmt.Sprintf("question %s is not the current question", ans.QuestionID)), nil
	}

	reasoning, deltas := p.analyzeAnswer(ctx, p.current, ans.Text)

	// All state changes happen after the oracle call returned. A caller
	// abort rolls the submission back entirely.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for dimension, traits := range deltas {
		p.board.Accumulate(dimension, traits)
	}
	p.history = append(p.history, QA{
		Question:  *p.current,
		Answer:    ans.Text,
		Reasoning: reasoning,
		Phase:     p.phase,
	})
	p.current = nil
	p.asked++

	if p.Finished() {
		return &Transition{Outcome: OutcomeCompleted}, nil
	}

	return &Transition{Outcome: OutcomeAdvanced}, nil
}

func (p *Persona) Finished() bool {
	return p.asked >= personaTotal
}

func (p *Persona) Progress() (answered, total int) {
	return p.asked, personaTotal
}

// Phase returns the phase of the current (or next) question.
func (p *Persona) Phase() string {
	return p.phase
}

// Board exposes the accumulated persona scores.
func (p *Persona) Board() *interview.ScoreBoard {
	return p.board
}

// History returns the recorded exchanges in order.
func (p *Persona) History() []QA {
	return p.history
}

// Report assembles the final persona report. The narrative parts come from
// one oracle call and degrade to empty strings when it fails; scores and
// dominant traits are always present.
func (p *Persona) Report(ctx context.Context) (*PersonaReport, error) {
	if !p.Finished() {
		return nil, fmt.Errorf("interview is not finished")
	}

	dominant := make(map[string]string, len(interview.Dimensions))
	for _, dim := range interview.Dimensions {
		if trait, ok := p.board.DominantIn(dim); ok {
			dominant[dim] = trait.Name
		} else {
			dominant[dim] = "unknown"
		}
	}

	report := &PersonaReport{
		DominantTraits: dominant,
		Scores:         p.board.Snapshot(),
		Confidence:     p.board.Confidence(),
	}

	transcript := make([]map[string]string, 0, len(p.history))
	for _, qa := range p.history {
		transcript = append(transcript, map[string]string{
			"question": qa.Question.Text,
			"answer":   qa.Answer,
		})
	}

	var narrative struct {
		Summary        string            `json:"summary"`
		TeamFit        string            `json:"team_fit"`
		DimensionNotes map[string]string `json:"dimension_notes"`
	}

	req := oracle.Request{
		SystemInstructions: personaReportPrompt,
		Payload: map[string]any{
			"dominant_traits": dominant,
			"transcript":      transcript,
		},
	}

	if err := p.client.Infer(ctx, req, &narrative); err != nil {
		p.logger.Warn("persona report narrative failed, returning scores only", zap.Error(err))
		return report, nil
	}

	report.Summary = narrative.Summary
	report.TeamFit = narrative.TeamFit
	report.DimensionNotes = narrative.DimensionNotes

	return report, nil
}

func (p *Persona) deepDiveQuestion(ctx context.Context) *interview.Question {
	dominant, ok := p.board.DominantTrait()
	if !ok {
		// No signal at all: probe collaboration, the safest default.
		dominant = interview.Trait{Dimension: interview.DimensionWorkStyle, Name: "collaborative"}
	}

	transcript := make([]map[string]string, 0, len(p.history))
	for _, qa := range p.history {
		transcript = append(transcript, map[string]string{
			"question": qa.Question.Text,
			"answer":   qa.Answer,
		})
	}

	req := oracle.Request{
		SystemInstructions: deepDivePrompt,
		Payload: map[string]any{
			"dominant_trait": dominant.Name,
			"dimension":      dominant.Dimension,
			"history":        transcript,
		},
	}

	var generated struct {
		Question string `json:"question"`
	}

	text := strings.TrimSpace(deepDiveFallbacks[dominant.Dimension])
	if err := p.client.Infer(ctx, req, &generated); err != nil {
		p.logger.Warn("deep dive generation failed, using fallback",
			zap.String("dimension", dominant.Dimension),
			zap.String("trait", dominant.Name),
			zap.Error(err),
		)
	} else if q := strings.TrimSpace(generated.Question); q != "" {
		text = q
	}

	return &interview.Question{
		ID:               p.newID(),
		Text:             text,
		Topic:            dominant.Name,
		TargetDimensions: []string{dominant.Dimension},
	}
}

func (p *Persona) validationQuestion() *interview.Question {
	dimension, ok := p.board.Unresolved(interview.DefaultMargin)
	if !ok {
		dimension = p.board.LeastExplored()
	}

	return &interview.Question{
		ID:               p.newID(),
		Text:             validationQuestions[dimension],
		Topic:            dimension,
		TargetDimensions: []string{dimension},
	}
}

func (p *Persona) analyzeAnswer(ctx context.Context, q *interview.Question, answer string) (string, map[string]map[string]float64) {
	var analysis struct {
		Reasoning      string             `json:"reasoning"`
		WorkStyle      map[string]float64 `json:"work_style"`
		ProblemSolving map[string]float64 `json:"problem_solving"`
		Learning       map[string]float64 `json:"learning"`
		StressResponse map[string]float64 `json:"stress_response"`
		Communication  map[string]float64 `json:"communication"`
	}

	req := oracle.Request{
		SystemInstructions: personaAnalysisPrompt,
		Payload: map[string]any{
			"question":          q.Text,
			"answer":            answer,
			"target_dimensions": q.TargetDimensions,
		},
	}

	if err := p.client.Infer(ctx, req, &analysis); err != nil {
		p.logger.Warn("persona analysis failed, accumulating nothing",
			zap.String("question_id", q.ID),
			zap.Error(err),
		)
		return "", nil
	}

	all := map[string]map[string]float64{
		interview.DimensionWorkStyle:      analysis.WorkStyle,
		interview.DimensionProblemSolving: analysis.ProblemSolving,
		interview.DimensionLearning:       analysis.Learning,
		interview.DimensionStressResponse: analysis.StressResponse,
		interview.DimensionCommunication:  analysis.Communication,
	}

	// Only the dimensions this question targets may score, whatever the
	// oracle returned.
	deltas := make(map[string]map[string]float64, len(q.TargetDimensions))
	for _, dim := range q.TargetDimensions {
		if traits := all[dim]; len(traits) > 0 {
			deltas[dim] = traits
		}
	}

	return analysis.Reasoning, deltas
}
