// Package research drafts profile suggestions for a business so owners do
// not start from a blank form.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

// GenerativeClient abstracts the Gemini client for testability.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClientFactory creates a GenerativeClient. Production code uses
// DefaultClientFactory; tests inject a factory that returns a fake.
type ClientFactory func(ctx context.Context, apiKey string) (GenerativeClient, error)

type genaiClient struct {
	inner *genai.Client
}

func (g *genaiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.inner.Models.GenerateContent(ctx, model, contents, config)
}

// DefaultClientFactory creates a real Gemini API client.
func DefaultClientFactory(ctx context.Context, apiKey string) (GenerativeClient, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &genaiClient{inner: c}, nil
}

// ProfileSuggestions is the draft material for a new business profile.
type ProfileSuggestions struct {
	Description string   `json:"description"`
	Specialties string   `json:"specialties"`
	KnownIssues []string `json:"knownIssues"`
	Strengths   []string `json:"strengths"`
}

// Researcher queries Gemini for profile suggestions.
type Researcher struct {
	apiKey  string
	model   string
	timeout time.Duration
	factory ClientFactory
	logger  logger.Logger
}

func NewResearcher(apiKey, model string, timeout time.Duration, factory ClientFactory, log logger.Logger) *Researcher {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if factory == nil {
		factory = DefaultClientFactory
	}
	return &Researcher{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		factory: factory,
		logger:  log,
	}
}

// Research asks the model to describe a business of the given name and
// category. Structured output mode keeps the response parseable.
func (r *Researcher) Research(ctx context.Context, name string, category models.BusinessCategory) (*ProfileSuggestions, error) {
	start := time.Now()

	client, err := r.factory(ctx, r.apiKey)
	if err != nil {
		return nil, errors.NewResearchFailedError(fmt.Errorf("creating client: %w", err))
	}

	prompt := fmt.Sprintf(
		"Describe the %s %q for a review-response assistant. "+
			"Summarize what it offers, its likely specialties, the complaints "+
			"customers of such a business typically raise, and its likely strengths.",
		category.Label(), name,
	)

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.3)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionsSchema(),
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := client.GenerateContent(reqCtx, r.model, genai.Text(prompt), config)
	if err != nil {
		return nil, errors.NewResearchFailedError(err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, errors.NewResearchFailedError(err)
	}

	var suggestions ProfileSuggestions
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, errors.NewResearchFailedError(fmt.Errorf("parsing response: %w", err))
	}

	r.logger.Info("research complete", map[string]interface{}{
		"business":   name,
		"category":   string(category),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return &suggestions, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}
	part := candidate.Content.Parts[0]
	if part.Text == "" {
		return "", fmt.Errorf("empty text in response part")
	}
	return part.Text, nil
}

func suggestionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"description": {Type: genai.TypeString, Description: "One-paragraph description of the business"},
			"specialties": {Type: genai.TypeString, Description: "What the business is known for"},
			"knownIssues": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"strengths":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"description"},
	}
}
