package interview

import "time"

// Kind identifies the interview flow owned by a session.
type Kind string

const (
	// KindGeneral is the fixed-script single-respondent interview.
	KindGeneral Kind = "general"
	// KindTeamReview is the fixed-script interview replicated across
	// several team members per question.
	KindTeamReview Kind = "team-review"
	// KindTechnical is the adaptive skill-depth interview.
	KindTechnical Kind = "technical"
	// KindSituational is the adaptive phased persona interview.
	KindSituational Kind = "situational"
)

// Question is immutable once issued to a respondent.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Topic            string   `json:"topic,omitempty"`
	TargetDimensions []string `json:"target_dimensions,omitempty"`
}

// Answer is one respondent's reply to an issued question. RespondentID is
// meaningful only for multi-respondent flows.
type Answer struct {
	QuestionID   string    `json:"question_id"`
	RespondentID string    `json:"respondent_id,omitempty"`
	Text         string    `json:"text"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Profile holds the static candidate fields supplied by the external
// profile provider at session start.
type Profile struct {
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
}

// PriorAnalysis summarizes an earlier fixed-script interview and steers
// adaptive question generation.
type PriorAnalysis struct {
	KeyThemes             []string `json:"key_themes"`
	Interests             []string `json:"interests"`
	EmphasizedExperiences []string `json:"emphasized_experiences"`
	WorkStyleHints        []string `json:"work_style_hints"`
	TechnicalKeywords     []string `json:"technical_keywords"`
	Summary               string   `json:"summary"`
}
