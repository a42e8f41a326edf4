package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"github.com/hireround/interview-engine/internal/oracle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed synthesis_prompt.md
var synthesisPrompt string

const extractionPrompt = `You are an HR analyst extracting requirements from one respondent's answer
about a role they are hiring for. For every concrete requirement, skill or
expectation, produce one item with:
- keyword: the short canonical name (e.g. "Python", "code review"),
- category: one of "language", "framework", "tooling", "practice",
  "domain", "soft-skill",
- importance: "required" when the respondent presents it as a must,
  "excluded" when they explicitly rule it out, otherwise "preferred",
- quote: the respondent's verbatim words supporting the item.

Only extract what the answer states. Respond with JSON:
{"items": [{"keyword": string, "category": string, "importance": string,
 "quote": string}]}`

// ErrNoRespondents reports an aggregation request without any perspectives.
// Caller error, never retried.
var ErrNoRespondents = errors.New("no respondents to aggregate")

// Perspective is one respondent's answer to a shared question.
type Perspective struct {
	RespondentID string
	Answer       string
}

// Record is the aggregation unit: one question and everything said about it.
type Record struct {
	QuestionID   string
	QuestionText string
	Responses    []Perspective
}

// Conflict describes mutually exclusive claims and their proposed
// resolution.
type Conflict struct {
	Issue      string   `json:"issue"`
	Options    []string `json:"options"`
	Resolution string   `json:"resolution"`
}

// Result is the synthesized view of all perspectives. Both strategies
// produce this exact shape so downstream consumers stay strategy-agnostic.
type Result struct {
	Consensus     []string   `json:"consensus"`
	Majority      []string   `json:"majority"`
	Minority      []string   `json:"minority"`
	Conflicts     []Conflict `json:"conflicts"`
	FinalText     string     `json:"final_text"`
	Keywords      []string   `json:"keywords"`
	PriorityOrder []string   `json:"priority_order"`
}

// Aggregator turns N perspectives on one question into a single Result. It
// holds no session state; every call is self-contained. Strategy selection
// belongs to the caller.
type Aggregator struct {
	client *oracle.Client
	logger *zap.Logger
}

// NewAggregator builds an aggregator over the given oracle client.
func NewAggregator(client *oracle.Client, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{client: client, logger: log}
}

// Synthesize runs the one-shot strategy: all raw answers in a single oracle
// call against the fixed rubric. Suited to short answers and small
// respondent counts.
func (a *Aggregator) Synthesize(ctx context.Context, rec Record) (*Result, error) {
	if len(rec.Responses) == 0 {
		return nil, ErrNoRespondents
	}

	responses := make([]map[string]string, 0, len(rec.Responses))
	for _, p := range rec.Responses {
		responses = append(responses, map[string]string{
			"respondent": p.RespondentID,
			"answer":     p.Answer,
		})
	}

	var result Result
	req := oracle.Request{
		SystemInstructions: synthesisPrompt,
		Payload: map[string]any{
			"question":  rec.QuestionText,
			"responses": responses,
		},
	}

	if err := a.client.Infer(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("one-shot synthesis: %w", err)
	}

	if strings.TrimSpace(result.FinalText) == "" {
		return nil, fmt.Errorf("one-shot synthesis: %w: missing final text", oracle.ErrMalformed)
	}

	a.logger.Debug("one-shot synthesis completed",
		zap.String("question_id", rec.QuestionID),
		zap.Int("respondents", len(rec.Responses)),
		zap.Int("keywords", len(result.Keywords)),
	)

	return &result, nil
}

// SynthesizeTwoPhase runs the extract-then-judge strategy: one low-variance
// extraction call per respondent, a deterministic merge, then a single
// judgment call over the frequency statistics. Exactly respondents+1 oracle
// calls, independent of answer length.
func (a *Aggregator) SynthesizeTwoPhase(ctx context.Context, rec Record) (*Result, error) {
	if len(rec.Responses) == 0 {
		return nil, ErrNoRespondents
	}

	extracted := make([][]RequirementItem, len(rec.Responses))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, p := range rec.Responses {
		group.Go(func() error {
			items, err := a.extract(groupCtx, rec.QuestionText, p)
			if err != nil {
				return fmt.Errorf("extracting from %s: %w", p.RespondentID, err)
			}
			extracted[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var items []RequirementItem
	for _, respondentItems := range extracted {
		items = append(items, respondentItems...)
	}

	classified, conflicts := Classify(items, len(rec.Responses))

	result := buildResult(classified, conflicts, len(rec.Responses))

	if err := a.judge(ctx, rec, classified, result); err != nil {
		return nil, fmt.Errorf("two-phase judgment: %w", err)
	}

	return result, nil
}

// extract is the Phase-1 call for a single respondent. Items keep a
// verbatim quote so later classification stays auditable.
func (a *Aggregator) extract(ctx context.Context, question string, p Perspective) ([]RequirementItem, error) {
	var extracted struct {
		Items []struct {
			Keyword    string `json:"keyword"`
			Category   string `json:"category"`
			Importance string `json:"importance"`
			Quote      string `json:"quote"`
		} `json:"items"`
	}

	req := oracle.Request{
		SystemInstructions: extractionPrompt,
		Payload: map[string]any{
			"question": question,
			"answer":   p.Answer,
		},
	}

	if err := a.client.Infer(ctx, req, &extracted); err != nil {
		return nil, err
	}

	items := make([]RequirementItem, 0, len(extracted.Items))
	for _, item := range extracted.Items {
		keyword := strings.TrimSpace(item.Keyword)
		if keyword == "" {
			continue
		}
		items = append(items, RequirementItem{
			Keyword:       keyword,
			Category:      strings.TrimSpace(item.Category),
			ImportanceRaw: strings.ToLower(strings.TrimSpace(item.Importance)),
			ContextQuote:  item.Quote,
			MentionedBy:   []string{p.RespondentID},
		})
	}

	return items, nil
}

// judge is the single Phase-2 call. It sees frequency statistics, not raw
// text, and only contributes prose: final text, conflict resolutions and
// priority order. It can never move an item between buckets.
func (a *Aggregator) judge(ctx context.Context, rec Record, classified []ClassifiedRequirement, result *Result) error {
	stats := make([]map[string]any, 0, len(classified))
	for _, req := range classified {
		stats = append(stats, map[string]any{
			"keyword":       req.Keyword,
			"category":      req.Category,
			"mention_count": req.MentionCount,
			"importance":    string(req.Importance),
			"quotes":        req.Quotes,
		})
	}

	conflictIssues := make([]string, 0, len(result.Conflicts))
	for _, c := range result.Conflicts {
		conflictIssues = append(conflictIssues, c.Issue)
	}

	var judgment struct {
		FinalText     string            `json:"final_text"`
		Resolutions   map[string]string `json:"resolutions"`
		PriorityOrder []string          `json:"priority_order"`
		Reasoning     string            `json:"reasoning"`
	}

	req := oracle.Request{
		SystemInstructions: judgmentPrompt,
		Payload: map[string]any{
			"question":        rec.QuestionText,
			"respondents":     len(rec.Responses),
			"requirements":    stats,
			"conflict_issues": conflictIssues,
		},
	}

	if err := a.client.Infer(ctx, req, &judgment); err != nil {
		return err
	}

	if strings.TrimSpace(judgment.FinalText) == "" {
		return fmt.Errorf("%w: missing final text", oracle.ErrMalformed)
	}

	result.FinalText = judgment.FinalText
	for i, c := range result.Conflicts {
		if resolution, ok := judgment.Resolutions[c.Issue]; ok {
			result.Conflicts[i].Resolution = resolution
		}
	}
	if ordered := intersectOrder(judgment.PriorityOrder, result.Keywords); len(ordered) == len(result.Keywords) {
		result.PriorityOrder = ordered
	}

	return nil
}

const judgmentPrompt = `You are an HR analyst writing the narrative layer over pre-computed
requirement statistics. The importance buckets are fixed; do not question
them. Produce:
- final_text: a readable summary of what the team requires and prefers,
- resolutions: for every listed conflict issue, a short resolution text,
- priority_order: the given keywords reordered by importance to the team,
- reasoning: one paragraph explaining the ordering.

Respond with JSON:
{"final_text": string, "resolutions": {issue: string},
 "priority_order": [string], "reasoning": string}`

// intersectOrder returns candidates filtered to known keywords, preserving
// candidate order. The oracle may reorder keywords but not add or drop any.
func intersectOrder(candidates, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}

	ordered := make([]string, 0, len(known))
	for _, c := range candidates {
		if knownSet[c] {
			ordered = append(ordered, c)
			knownSet[c] = false
		}
	}
	return ordered
}
