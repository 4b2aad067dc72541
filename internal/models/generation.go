package models

import "strconv"

// Accent is the fixed taxonomy tag identifying a variant's style.
type Accent string

const (
	AccentNeutral           Accent = "neutral"
	AccentEmpathetic        Accent = "empathetic"
	AccentSolutionFocused   Accent = "solution-focused"
	AccentPassiveAggressive Accent = "passive-aggressive"
	AccentHardcore          Accent = "hardcore"
)

// baseAccents is the fixed, ordered taxonomy of variants every generation
// produces. The hardcore accent is appended only when requested.
var baseAccents = []Accent{
	AccentNeutral,
	AccentEmpathetic,
	AccentSolutionFocused,
	AccentPassiveAggressive,
}

// Accents returns the ordered variant taxonomy for one generation call.
func Accents(includeHardcore bool) []Accent {
	out := make([]Accent, len(baseAccents), len(baseAccents)+1)
	copy(out, baseAccents)
	if includeHardcore {
		out = append(out, AccentHardcore)
	}
	return out
}

// Known reports whether the accent is part of the taxonomy.
func (a Accent) Known() bool {
	switch a {
	case AccentNeutral, AccentEmpathetic, AccentSolutionFocused,
		AccentPassiveAggressive, AccentHardcore:
		return true
	}
	return false
}

// VariantID is the 1-based position of an accent in the fixed order,
// rendered as a string because that is how it travels on the wire.
func VariantID(position int) string {
	return strconv.Itoa(position + 1)
}

// GeneratedResponse is one reply draft produced per call. The core never
// persists these itself; storage is the caller's job.
type GeneratedResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Accent      Accent `json:"accent"`
	Explanation string `json:"explanation"`
}

// Sentiment and urgency values the analysis object may carry.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ReviewAnalysis is produced alongside the variant set in the same model
// call. MainIssue is nil when the model reported none.
type ReviewAnalysis struct {
	Sentiment string  `json:"sentiment"`
	MainIssue *string `json:"mainIssue"`
	Urgency   string  `json:"urgency"`
}

// GenerateOptions are the optional knobs of one generation call.
type GenerateOptions struct {
	Rating            int                 `json:"rating,omitempty"` // 1..5, 0 means absent
	OwnerContext      string              `json:"context,omitempty"`
	Adjustment        string              `json:"adjustment,omitempty"`
	PreviousResponses []GeneratedResponse `json:"previousResponses,omitempty"`
	IncludeHardcore   bool                `json:"includeHardcore,omitempty"`
}

// GenerationResult is what the pipeline hands back to the caller.
type GenerationResult struct {
	Responses []GeneratedResponse `json:"responses"`
	Analysis  ReviewAnalysis      `json:"analysis"`
}
