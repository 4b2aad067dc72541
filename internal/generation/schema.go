package generation

import (
	"encoding/json"
	"fmt"

	"review-responder/internal/models"
)

// The prompt's contract block and the parser's schema below describe the
// same shape. They live in one file on purpose: whoever edits the output
// contract edits both, or the pipeline silently starts rejecting output.

// outputContract renders the instruction block that promises the JSON shape
// the parser will look for.
func outputContract(includeHardcore bool) string {
	count := "four"
	example := `{
  "responses": [
    {"id": "1", "text": "...", "accent": "neutral", "explanation": "..."},
    {"id": "2", "text": "...", "accent": "empathetic", "explanation": "..."},
    {"id": "3", "text": "...", "accent": "solution-focused", "explanation": "..."},
    {"id": "4", "text": "...", "accent": "passive-aggressive", "explanation": "..."}
  ],
  "analysis": {"sentiment": "negative", "mainIssue": "cold delivery", "urgency": "high"}
}`
	if includeHardcore {
		count = "five"
		example = `{
  "responses": [
    {"id": "1", "text": "...", "accent": "neutral", "explanation": "..."},
    {"id": "2", "text": "...", "accent": "empathetic", "explanation": "..."},
    {"id": "3", "text": "...", "accent": "solution-focused", "explanation": "..."},
    {"id": "4", "text": "...", "accent": "passive-aggressive", "explanation": "..."},
    {"id": "5", "text": "...", "accent": "hardcore", "explanation": "..."}
  ],
  "analysis": {"sentiment": "negative", "mainIssue": "cold delivery", "urgency": "high"}
}`
	}
	return fmt.Sprintf(`Answer with a single JSON object, %s entries in "responses", shaped exactly like this:
%s
"sentiment" is one of positive|neutral|negative, "urgency" is one of low|medium|high,
"explanation" is one short sentence on why the variant is phrased the way it is.
Write reply texts in the language of the review. Output the JSON object and nothing else.`, count, example)
}

// contractSchema is what the parser holds the extracted JSON object to.
// Deliberately loose where the model cannot be trusted: analysis and its
// sub-fields are optional (defaults are filled in), unknown accents pass
// through. A missing or non-array "responses" fails the whole call.
const contractSchema = `{
  "type": "object",
  "required": ["responses"],
  "properties": {
    "responses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "id":          {"type": "string"},
          "text":        {"type": "string", "minLength": 1},
          "accent":      {"type": "string"},
          "explanation": {"type": "string"}
        }
      }
    },
    "analysis": {
      "type": "object",
      "properties": {
        "sentiment": {"type": "string"},
        "mainIssue": {"type": ["string", "null"]},
        "urgency":   {"type": "string"}
      }
    }
  }
}`

// replayResponses re-renders a previous response set in the contract shape
// so it can be replayed as an assistant turn on the regeneration path.
func replayResponses(prev []models.GeneratedResponse) string {
	payload := struct {
		Responses []models.GeneratedResponse `json:"responses"`
	}{Responses: prev}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "{\"responses\": []}"
	}
	return string(data)
}
