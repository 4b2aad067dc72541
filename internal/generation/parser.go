package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"review-responder/internal/models"
)

var (
	ErrUpstream        = errors.New("GENERATION_UPSTREAM_ERROR")
	ErrEmptyCompletion = errors.New("GENERATION_EMPTY_COMPLETION")
	ErrMalformedOutput = errors.New("GENERATION_MALFORMED_OUTPUT")
)

var contractLoader = gojsonschema.NewStringLoader(contractSchema)

// wire shapes, decoded only after schema validation. The model's output is
// untrusted; nothing here is assumed beyond what the schema guarantees.
type wireResult struct {
	Responses []wireResponse `json:"responses"`
	Analysis  *wireAnalysis  `json:"analysis"`
}

type wireResponse struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Accent      string `json:"accent"`
	Explanation string `json:"explanation"`
}

type wireAnalysis struct {
	Sentiment string  `json:"sentiment"`
	MainIssue *string `json:"mainIssue"`
	Urgency   string  `json:"urgency"`
}

// extractJSONObject pulls the first top-level {...} substring out of the raw
// completion text. Models reliably wrap JSON in prose, so substring
// extraction, not whole-string parsing, is the contract here. The scan
// balances braces (ignoring any inside string literals) so prose after the
// object, even a stray "}", does not poison the substring.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseResult turns the provider's free-form completion text into a typed
// result. A missing or invalid "responses" array is fatal; a missing or
// partial "analysis" is patched with defaults. No response entries are ever
// invented: a short array is returned as-is.
func ParseResult(raw string) (*models.GenerationResult, error) {
	doc, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in completion text", ErrMalformedOutput)
	}

	validation, err := gojsonschema.Validate(contractLoader, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, validation.Errors()[0].String())
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(doc), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	result := &models.GenerationResult{
		Responses: make([]models.GeneratedResponse, 0, len(wire.Responses)),
		Analysis:  defaultAnalysis(),
	}

	for i, r := range wire.Responses {
		result.Responses = append(result.Responses, models.GeneratedResponse{
			ID:          models.VariantID(i), // position wins over whatever id the model wrote
			Text:        r.Text,
			Accent:      models.Accent(r.Accent),
			Explanation: r.Explanation,
		})
	}

	if wire.Analysis != nil {
		if a := wire.Analysis.Sentiment; a == models.SentimentPositive || a == models.SentimentNeutral || a == models.SentimentNegative {
			result.Analysis.Sentiment = a
		}
		if wire.Analysis.MainIssue != nil && strings.TrimSpace(*wire.Analysis.MainIssue) != "" {
			result.Analysis.MainIssue = wire.Analysis.MainIssue
		}
		if u := wire.Analysis.Urgency; u == models.UrgencyLow || u == models.UrgencyMedium || u == models.UrgencyHigh {
			result.Analysis.Urgency = u
		}
	}

	return result, nil
}

func defaultAnalysis() models.ReviewAnalysis {
	return models.ReviewAnalysis{
		Sentiment: models.SentimentNeutral,
		MainIssue: nil,
		Urgency:   models.UrgencyLow,
	}
}
