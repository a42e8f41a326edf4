package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hireround/interview-engine/internal/interview"
)

// Linear walks a fixed ordered question list, optionally replicated across
// several respondents per slot. A slot advances only once every respondent
// answered it; the total question count never varies with answer content.
// No oracle is involved.
type Linear struct {
	questions   []interview.Question
	respondents int

	slot     int
	received []map[string]interview.Answer
}

// NewLinear builds a linear sequencer over the given questions with the
// given respondent count per slot. respondents < 1 defaults to 1.
func NewLinear(questions []interview.Question, respondents int) (*Linear, error) {
	if len(questions) == 0 {
		return nil, errors.New("at least one question is required")
	}
	if respondents < 1 {
		respondents = 1
	}

	received := make([]map[string]interview.Answer, len(questions))
	for i := range received {
		received[i] = make(map[string]interview.Answer, respondents)
	}

	return &Linear{
		questions:   questions,
		respondents: respondents,
		received:    received,
	}, nil
}

func (l *Linear) NextQuestion(_ context.Context) (*interview.Question, error) {
	if l.Finished() {
		return nil, nil
	}

	q := l.questions[l.slot]
	return &q, nil
}

func (l *Linear) SubmitAnswer(_ context.Context, ans interview.Answer) (*Transition, error) {
	if l.Finished() {
		return rejected("interview already completed"), nil
	}

	current := l.questions[l.slot]
	if ans.QuestionID != current.ID {
		return rejected(fmt.Sprintf("question %s is not the current slot", ans.QuestionID)), nil
	}

	slotAnswers := l.received[l.slot]
	if _, dup := slotAnswers[ans.RespondentID]; dup {
		return rejected(fmt.Sprintf("respondent %s already answered this question", ans.RespondentID)), nil
	}

	slotAnswers[ans.RespondentID] = ans

	if remaining := l.respondents - len(slotAnswers); remaining > 0 {
		return &Transition{Outcome: OutcomeWaiting, WaitingFor: remaining}, nil
	}

	l.slot++
	if l.Finished() {
		return &Transition{Outcome: OutcomeCompleted}, nil
	}

	return &Transition{Outcome: OutcomeAdvanced}, nil
}

func (l *Linear) Finished() bool {
	return l.slot >= len(l.questions)
}

func (l *Linear) Progress() (answered, total int) {
	for _, slot := range l.received {
		answered += len(slot)
	}
	return answered, len(l.questions) * l.respondents
}

// Records groups the accepted answers by question for synthesis once the
// interview is finished.
func (l *Linear) Records() []Record {
	records := make([]Record, 0, len(l.questions))
	for i, q := range l.questions {
		rec := Record{Question: q}
		for _, respondent := range orderedRespondents(l.received[i]) {
			rec.Answers = append(rec.Answers, l.received[i][respondent])
		}
		records = append(records, rec)
	}
	return records
}

// Record pairs one question with every answer it collected.
type Record struct {
	Question interview.Question
	Answers  []interview.Answer
}

func orderedRespondents(answers map[string]interview.Answer) []string {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	// Lexicographic order keeps synthesis inputs stable across runs.
	sort.Strings(ids)
	return ids
}
