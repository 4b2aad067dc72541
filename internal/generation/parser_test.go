package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-responder/internal/models"
)

const contractPayload = `{
  "responses": [
    {"id": "1", "text": "Thank you for your feedback.", "accent": "neutral", "explanation": "balanced"},
    {"id": "2", "text": "We hear how frustrating this was.", "accent": "empathetic", "explanation": "feelings"},
    {"id": "3", "text": "Write to us and we will remake the order.", "accent": "solution-focused", "explanation": "next step"},
    {"id": "4", "text": "We deliver hundreds of orders daily without issue.", "accent": "passive-aggressive", "explanation": "firm"}
  ],
  "analysis": {"sentiment": "negative", "mainIssue": "cold delivery", "urgency": "high"}
}`

func TestParseResult_RoundTripThroughProse(t *testing.T) {
	raw := "Here you go:\n" + contractPayload + "\nHope that helps :-}"

	result, err := ParseResult(raw)
	require.NoError(t, err)
	require.Len(t, result.Responses, 4)

	assert.Equal(t, "Thank you for your feedback.", result.Responses[0].Text)
	assert.Equal(t, models.AccentNeutral, result.Responses[0].Accent)
	assert.Equal(t, models.AccentPassiveAggressive, result.Responses[3].Accent)
	assert.Equal(t, models.SentimentNegative, result.Analysis.Sentiment)
	require.NotNil(t, result.Analysis.MainIssue)
	assert.Equal(t, "cold delivery", *result.Analysis.MainIssue)
	assert.Equal(t, models.UrgencyHigh, result.Analysis.Urgency)
}

func TestParseResult_IDsFollowPosition(t *testing.T) {
	raw := `{"responses": [
		{"id": "7", "text": "a", "accent": "neutral", "explanation": ""},
		{"id": "x", "text": "b", "accent": "empathetic", "explanation": ""}
	]}`

	result, err := ParseResult(raw)
	require.NoError(t, err)
	for i, r := range result.Responses {
		assert.Equal(t, models.VariantID(i), r.ID)
	}
}

func TestParseResult_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no braces at all", "I cannot answer that question in JSON form, sorry."},
		{"empty string", ""},
		{"truncated JSON", `{"responses": [{"text": "a"`},
		{"responses missing", `{"analysis": {"sentiment": "negative"}}`},
		{"responses not an array", `{"responses": {"text": "a"}}`},
		{"entry without text", `{"responses": [{"accent": "neutral"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResult(tt.raw)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestParseResult_AnalysisDefaults(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantSentiment string
		wantUrgency   string
		wantIssueNil  bool
	}{
		{
			name:          "analysis missing entirely",
			raw:           `{"responses": [{"text": "a", "accent": "neutral"}]}`,
			wantSentiment: models.SentimentNeutral,
			wantUrgency:   models.UrgencyLow,
			wantIssueNil:  true,
		},
		{
			name:          "partial analysis",
			raw:           `{"responses": [{"text": "a"}], "analysis": {"sentiment": "positive"}}`,
			wantSentiment: models.SentimentPositive,
			wantUrgency:   models.UrgencyLow,
			wantIssueNil:  true,
		},
		{
			name:          "unknown enum values fall back",
			raw:           `{"responses": [{"text": "a"}], "analysis": {"sentiment": "furious", "urgency": "apocalyptic"}}`,
			wantSentiment: models.SentimentNeutral,
			wantUrgency:   models.UrgencyLow,
			wantIssueNil:  true,
		},
		{
			name:          "blank mainIssue treated as absent",
			raw:           `{"responses": [{"text": "a"}], "analysis": {"sentiment": "negative", "mainIssue": "  ", "urgency": "medium"}}`,
			wantSentiment: models.SentimentNegative,
			wantUrgency:   models.UrgencyMedium,
			wantIssueNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResult(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSentiment, result.Analysis.Sentiment)
			assert.Equal(t, tt.wantUrgency, result.Analysis.Urgency)
			if tt.wantIssueNil {
				assert.Nil(t, result.Analysis.MainIssue)
			}
		})
	}
}

func TestParseResult_ShortArraySurfacedAsIs(t *testing.T) {
	raw := `{"responses": [{"text": "only one", "accent": "neutral"}]}`

	result, err := ParseResult(raw)
	require.NoError(t, err)
	assert.Len(t, result.Responses, 1, "missing entries are never invented")
}

func TestParseResult_UnknownAccentPassesThrough(t *testing.T) {
	raw := `{"responses": [{"text": "a", "accent": "sardonic"}]}`

	result, err := ParseResult(raw)
	require.NoError(t, err)
	assert.Equal(t, models.Accent("sardonic"), result.Responses[0].Accent)
	assert.False(t, result.Responses[0].Accent.Known())
}

func TestExtractJSONObject(t *testing.T) {
	doc, ok := extractJSONObject("prefix {\"a\": 1} suffix")
	assert.True(t, ok)
	assert.Equal(t, `{"a": 1}`, doc)

	// a stray brace in the trailing prose must not extend the substring
	doc, ok = extractJSONObject(`Here you go: {"a": {"b": 2}} hope that helps :-}`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": 2}}`, doc)

	// braces inside string values do not count toward nesting
	doc, ok = extractJSONObject(`{"text": "smile :-} and a \"quote\""} trailing`)
	assert.True(t, ok)
	assert.Equal(t, `{"text": "smile :-} and a \"quote\""}`, doc)

	_, ok = extractJSONObject("} backwards {")
	assert.False(t, ok)

	_, ok = extractJSONObject(`{"never": "closed"`)
	assert.False(t, ok)
}
