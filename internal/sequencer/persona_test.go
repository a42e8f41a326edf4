package sequencer

import (
	"context"
	"fmt"
	"testing"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/oracle"
)

// personaStub scores every target dimension with a fixed trait profile and
// serves the deep-dive and report routes. stress_response gets a close
// top-two race so validation has something to resolve.
func personaStub() *scriptedOracle {
	scores := map[string]string{
		interview.DimensionWorkStyle:      `{"collaborative": 0.8}`,
		interview.DimensionProblemSolving: `{"analytical": 0.9}`,
		interview.DimensionLearning:       `{"curious": 0.5}`,
		interview.DimensionStressResponse: `{"resilient": 0.6, "avoidant": 0.55}`,
		interview.DimensionCommunication:  `{"direct": 0.7}`,
	}

	return &scriptedOracle{
		respond: func(req oracle.Request, out any) error {
			payload := payloadMap(req)
			switch {
			case payload["target_dimensions"] != nil:
				raw := `{"reasoning": "observed"`
				for dim, traits := range scores {
					raw += fmt.Sprintf(`, %q: %s`, dim, traits)
				}
				raw += `}`
				return oracle.Decode(raw, out)

			case payload["dominant_trait"] != nil:
				return oracle.Decode(`{"question": "Tell me more about a time that trait showed."}`, out)

			case payload["dominant_traits"] != nil:
				return oracle.Decode(`{"summary": "steady analytical profile", "team_fit": "small autonomous team",
					"dimension_notes": {"problem_solving": "quoted"}}`, out)

			default:
				return oracle.ErrUnavailable
			}
		},
	}
}

func answerAll(t *testing.T, seq *Persona, count int) []interview.Question {
	t.Helper()
	ctx := context.Background()

	var questions []interview.Question
	for i := 0; i < count; i++ {
		q, err := seq.NextQuestion(ctx)
		if err != nil {
			t.Fatalf("question %d: %v", i, err)
		}
		if q == nil {
			t.Fatalf("question %d: interview ended early", i)
		}
		questions = append(questions, *q)

		if _, err := seq.SubmitAnswer(ctx, interview.Answer{QuestionID: q.ID, Text: "an answer"}); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	return questions
}

func TestPersonaPhaseOrder(t *testing.T) {
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	questions := answerAll(t, seq, 6)

	wantPhases := []string{
		PhaseExploration, PhaseExploration, PhaseExploration,
		PhaseDeepDive, PhaseDeepDive,
		PhaseValidation,
	}
	for i, qa := range seq.History() {
		if qa.Phase != wantPhases[i] {
			t.Fatalf("question %d in phase %s, want %s", i, qa.Phase, wantPhases[i])
		}
	}

	// Exploration questions come from the fixed pool, in order.
	for i := 0; i < 3; i++ {
		if questions[i].ID != fmt.Sprintf("persona-exploration-%d", i+1) {
			t.Fatalf("exploration question %d has id %s", i, questions[i].ID)
		}
	}

	if !seq.Finished() {
		t.Fatalf("expected the interview to be finished after 6 answers")
	}
	answered, total := seq.Progress()
	if answered != 6 || total != 6 {
		t.Fatalf("unexpected progress %d/%d", answered, total)
	}
}

func TestPersonaDeepDiveTargetsDominantTrait(t *testing.T) {
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	questions := answerAll(t, seq, 4)

	// After exploration, analytical (0.9) leads the whole board.
	deepDive := questions[3]
	if deepDive.Topic != "analytical" {
		t.Fatalf("deep dive probes %q, want analytical", deepDive.Topic)
	}
	if len(deepDive.TargetDimensions) != 1 || deepDive.TargetDimensions[0] != interview.DimensionProblemSolving {
		t.Fatalf("deep dive targets %v", deepDive.TargetDimensions)
	}

	// The generation request carried the dominant trait.
	last := stub.requests[len(stub.requests)-2]
	if got := payloadMap(last)["dominant_trait"]; got != "analytical" {
		t.Fatalf("generation payload carried %v", got)
	}
}

func TestPersonaValidationPicksUnresolvedDimension(t *testing.T) {
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	questions := answerAll(t, seq, 6)

	// stress_response holds a 0.6 vs 0.55 race, inside the margin.
	validation := questions[5]
	if len(validation.TargetDimensions) != 1 || validation.TargetDimensions[0] != interview.DimensionStressResponse {
		t.Fatalf("validation targets %v, want stress_response", validation.TargetDimensions)
	}
	if validation.Text == "" {
		t.Fatalf("expected a validation question text")
	}
}

func TestPersonaScoresOnlyTargetDimensions(t *testing.T) {
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	answerAll(t, seq, 1)

	// The first exploration question targets work_style and communication;
	// the stub scored every dimension but only those two may land.
	snapshot := seq.Board().Snapshot()
	if len(snapshot[interview.DimensionWorkStyle]) == 0 {
		t.Fatalf("expected work_style signal")
	}
	if len(snapshot[interview.DimensionCommunication]) == 0 {
		t.Fatalf("expected communication signal")
	}
	for _, dim := range []string{
		interview.DimensionProblemSolving,
		interview.DimensionLearning,
		interview.DimensionStressResponse,
	} {
		if len(snapshot[dim]) != 0 {
			t.Fatalf("dimension %s scored outside its question: %v", dim, snapshot[dim])
		}
	}
}

func TestPersonaReport(t *testing.T) {
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	if _, err := seq.Report(context.Background()); err == nil {
		t.Fatalf("expected an error before the interview finished")
	}

	answerAll(t, seq, 6)

	report, err := seq.Report(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.DominantTraits[interview.DimensionProblemSolving] != "analytical" {
		t.Fatalf("unexpected dominant traits: %v", report.DominantTraits)
	}
	if report.Summary != "steady analytical profile" {
		t.Fatalf("unexpected summary: %q", report.Summary)
	}
	if report.Confidence <= 0 {
		t.Fatalf("expected positive confidence, got %v", report.Confidence)
	}
}

func TestPersonaCompletesWithOracleDown(t *testing.T) {
	stub := &scriptedOracle{
		respond: func(_ oracle.Request, _ any) error { return oracle.ErrUnavailable },
	}
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	questions := answerAll(t, seq, 6)

	// No signal: deep dives fall back to the default work_style probe and
	// validation picks the first canonical dimension.
	deepDive := questions[3]
	if deepDive.TargetDimensions[0] != interview.DimensionWorkStyle {
		t.Fatalf("deep dive targets %v", deepDive.TargetDimensions)
	}
	if deepDive.Text == "" {
		t.Fatalf("expected a fallback deep dive question")
	}

	validation := questions[5]
	if validation.TargetDimensions[0] != interview.DimensionWorkStyle {
		t.Fatalf("validation targets %v", validation.TargetDimensions)
	}

	// The report still carries scores; the narrative degrades to empty.
	report, err := seq.Report(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary != "" {
		t.Fatalf("expected an empty summary, got %q", report.Summary)
	}
	for _, dim := range interview.Dimensions {
		if report.DominantTraits[dim] != "unknown" {
			t.Fatalf("expected unknown dominant trait for %s, got %s", dim, report.DominantTraits[dim])
		}
	}
}

func TestPersonaCanceledSubmitLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	q, err := seq.NextQuestion(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	tr, err := seq.SubmitAnswer(canceled, interview.Answer{QuestionID: q.ID, Text: "an answer"})
	if err == nil {
		t.Fatalf("expected the abort to surface")
	}
	if tr != nil {
		t.Fatalf("an aborted submission must not produce a transition: %+v", tr)
	}

	// Nothing committed: no answer counted, no scores, same question.
	answered, _ := seq.Progress()
	if answered != 0 {
		t.Fatalf("expected 0 accepted answers, got %d", answered)
	}
	for _, traits := range seq.Board().Snapshot() {
		if len(traits) != 0 {
			t.Fatalf("scores accumulated despite the abort: %v", traits)
		}
	}
	again, _ := seq.NextQuestion(ctx)
	if again.ID != q.ID {
		t.Fatalf("current question changed across the abort")
	}

	// The same submission succeeds once retried with a live context.
	tr, err = seq.SubmitAnswer(ctx, interview.Answer{QuestionID: q.ID, Text: "an answer"})
	if err != nil || tr.Outcome != OutcomeAdvanced {
		t.Fatalf("retried submission failed: %+v (err=%v)", tr, err)
	}
}

func TestPersonaRejections(t *testing.T) {
	ctx := context.Background()
	stub := personaStub()
	seq := NewPersona(newTestClient(stub), sequentialIDs("pq"), nil)

	tr, _ := seq.SubmitAnswer(ctx, interview.Answer{QuestionID: "x", Text: "x"})
	if tr.Outcome != OutcomeRejected {
		t.Fatalf("expected rejection before any question was issued, got %s", tr.Outcome)
	}

	q, _ := seq.NextQuestion(ctx)
	tr, _ = seq.SubmitAnswer(ctx, interview.Answer{QuestionID: "wrong", Text: "x"})
	if tr.Outcome != OutcomeRejected {
		t.Fatalf("expected rejection for a wrong question id, got %s", tr.Outcome)
	}

	again, _ := seq.NextQuestion(ctx)
	if again.ID != q.ID {
		t.Fatalf("rejection must not discard the current question")
	}
}
