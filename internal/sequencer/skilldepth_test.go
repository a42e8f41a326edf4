package sequencer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hireround/interview-engine/internal/interview"
	"github.com/hireround/interview-engine/internal/oracle"
)

func skillProfile() interview.Profile {
	return interview.Profile{
		Name:   "Dana",
		Role:   "backend engineer",
		Skills: []string{"Python", "Django", "Redis", "Docker", "FastAPI"},
	}
}

func skillStub() *scriptedOracle {
	return &scriptedOracle{
		respond: func(req oracle.Request, out any) error {
			payload := payloadMap(req)
			if _, generation := payload["level"]; generation {
				raw := fmt.Sprintf(`{"question": "Probe %s at %s level", "why": "coverage"}`,
					payload["skill"], payload["level"])
				return oracle.Decode(raw, out)
			}
			return oracle.Decode(`{"key_points": ["p"], "mentioned_technologies": ["Redis"],
				"depth_areas": ["caching"], "follow_up_direction": "go deeper"}`, out)
		},
	}
}

func TestSelectSkillsMentionedFirst(t *testing.T) {
	selected, err := SelectSkills(
		[]string{"Python", "Django", "Redis", "Docker", "FastAPI"},
		[]string{"FastAPI", "Redis", "Docker"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mentioned skills come first, in profile declaration order.
	want := []string{"Redis", "Docker", "FastAPI"}
	for i, skill := range want {
		if selected[i] != skill {
			t.Fatalf("expected %v, got %v", want, selected)
		}
	}
}

func TestSelectSkillsPartialMentions(t *testing.T) {
	selected, err := SelectSkills(
		[]string{"Redis", "Docker", "FastAPI"},
		[]string{"Redis", "Docker"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Redis", "Docker", "FastAPI"}
	for i, skill := range want {
		if selected[i] != skill {
			t.Fatalf("expected %v, got %v", want, selected)
		}
	}
}

func TestSelectSkillsNoMentions(t *testing.T) {
	selected, err := SelectSkills([]string{"Go", "Kafka", "Postgres", "Redis"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Go", "Kafka", "Postgres"}
	for i, skill := range want {
		if selected[i] != skill {
			t.Fatalf("expected %v, got %v", want, selected)
		}
	}
}

func TestSelectSkillsDeduplicates(t *testing.T) {
	selected, err := SelectSkills([]string{"Go", "Go", "Kafka", " ", "Postgres"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected 3 skills, got %v", selected)
	}
}

func TestSelectSkillsInsufficient(t *testing.T) {
	_, err := SelectSkills([]string{"Go", "Go", "Kafka"}, nil)
	if !errors.Is(err, ErrInsufficientCandidates) {
		t.Fatalf("expected ErrInsufficientCandidates, got: %v", err)
	}
}

func TestSkillDepthFullFlow(t *testing.T) {
	ctx := context.Background()
	stub := skillStub()

	seq, err := NewSkillDepth(newTestClient(stub), skillProfile(),
		interview.PriorAnalysis{TechnicalKeywords: []string{"Redis", "Docker", "FastAPI"}},
		sequentialIDs("sq"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSkills := []string{"Redis", "Docker", "FastAPI"}
	var asked []string

	for i := 0; i < 9; i++ {
		q, err := seq.NextQuestion(ctx)
		if err != nil {
			t.Fatalf("question %d: %v", i, err)
		}
		asked = append(asked, q.Topic)

		// Asking again before answering must not generate a second question.
		again, _ := seq.NextQuestion(ctx)
		if again.ID != q.ID {
			t.Fatalf("question regenerated: %s vs %s", again.ID, q.ID)
		}

		tr, err := seq.SubmitAnswer(ctx, interview.Answer{QuestionID: q.ID, Text: "an answer"})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if i < 8 && tr.Outcome != OutcomeAdvanced {
			t.Fatalf("answer %d: expected advanced, got %s", i, tr.Outcome)
		}
		if i == 8 && tr.Outcome != OutcomeCompleted {
			t.Fatalf("expected completion on the ninth answer, got %s", tr.Outcome)
		}
		if tr.Feedback == nil {
			t.Fatalf("answer %d: expected feedback", i)
		}
	}

	// One skill fully completes before the next begins.
	for i, skill := range wantSkills {
		for j := 0; j < 3; j++ {
			if asked[i*3+j] != skill {
				t.Fatalf("question %d probes %s, want %s", i*3+j, asked[i*3+j], skill)
			}
		}
	}

	tracks := seq.Tracks()
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}
	for _, track := range tracks {
		if len(track.Entries) != 3 {
			t.Fatalf("track %s has %d entries", track.Skill, len(track.Entries))
		}
		for i, entry := range track.Entries {
			if entry.Level != SkillLevels[i] {
				t.Fatalf("track %s entry %d level %s, want %s", track.Skill, i, entry.Level, SkillLevels[i])
			}
		}
	}

	if !seq.Finished() {
		t.Fatalf("expected the interview to be finished")
	}
}

func TestSkillDepthQuestionGenerationFallback(t *testing.T) {
	ctx := context.Background()
	stub := &scriptedOracle{
		respond: func(_ oracle.Request, _ any) error { return oracle.ErrUnavailable },
	}

	seq, err := NewSkillDepth(newTestClient(stub), skillProfile(), interview.PriorAnalysis{}, sequentialIDs("sq"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q, err := seq.NextQuestion(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q == nil || q.Text == "" {
		t.Fatalf("expected a fallback question")
	}
	if !strings.Contains(q.Text, q.Topic) {
		t.Fatalf("fallback question %q does not mention the skill %q", q.Text, q.Topic)
	}

	// Analysis also fails: the answer is still recorded, without feedback.
	tr, err := seq.SubmitAnswer(ctx, interview.Answer{QuestionID: q.ID, Text: "an answer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Outcome != OutcomeAdvanced {
		t.Fatalf("expected advanced, got %s", tr.Outcome)
	}
	if tr.Feedback != nil {
		t.Fatalf("expected no feedback when analysis fails")
	}
}

func TestSkillDepthCanceledSubmitLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	stub := skillStub()
	seq, _ := NewSkillDepth(newTestClient(stub), skillProfile(), interview.PriorAnalysis{}, sequentialIDs("sq"), nil)

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

	answered, _ := seq.Progress()
	if answered != 0 {
		t.Fatalf("expected 0 accepted answers, got %d", answered)
	}
	again, _ := seq.NextQuestion(ctx)
	if again.ID != q.ID {
		t.Fatalf("current question changed across the abort")
	}

	tr, err = seq.SubmitAnswer(ctx, interview.Answer{QuestionID: q.ID, Text: "an answer"})
	if err != nil || tr.Outcome != OutcomeAdvanced {
		t.Fatalf("retried submission failed: %+v (err=%v)", tr, err)
	}
}

func TestSkillDepthRejections(t *testing.T) {
	ctx := context.Background()
	stub := skillStub()
	seq, _ := NewSkillDepth(newTestClient(stub), skillProfile(), interview.PriorAnalysis{}, sequentialIDs("sq"), nil)

	tr, _ := seq.SubmitAnswer(ctx, interview.Answer{QuestionID: "nope", Text: "x"})
	if tr.Outcome != OutcomeRejected {
		t.Fatalf("expected rejection before any question was issued, got %s", tr.Outcome)
	}

	q, _ := seq.NextQuestion(ctx)
	tr, _ = seq.SubmitAnswer(ctx, interview.Answer{QuestionID: "wrong-id", Text: "x"})
	if tr.Outcome != OutcomeRejected {
		t.Fatalf("expected rejection for a wrong question id, got %s", tr.Outcome)
	}

	// The current question survives a rejection.
	again, _ := seq.NextQuestion(ctx)
	if again.ID != q.ID {
		t.Fatalf("rejection must not discard the current question")
	}
}
