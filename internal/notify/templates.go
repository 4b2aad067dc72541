// Package notify delivers owner emails and operator alerts over SES and SNS.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Template is one renderable message with {{placeholder}} substitution.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateRegistry maps notification types to templates. It can be loaded
// from a JSON file so wording changes do not need a rebuild.
type TemplateRegistry struct {
	Version   string              `json:"version"`
	Templates map[string]Template `json:"templates"`
}

const (
	TypeNegativeReview  = "negative_review"
	TypeUsageLimit      = "usage_limit"
	TypeProviderFailure = "provider_failure"
)

// LoadTemplateRegistry reads a registry file, or returns the built-in
// defaults when path is empty.
func LoadTemplateRegistry(path string) (*TemplateRegistry, error) {
	if path == "" {
		return defaultTemplates(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template registry: %w", err)
	}

	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse template registry: %w", err)
	}
	if len(reg.Templates) == 0 {
		return nil, fmt.Errorf("template registry %s has no templates", path)
	}
	return &reg, nil
}

func defaultTemplates() *TemplateRegistry {
	return &TemplateRegistry{
		Version: "1",
		Templates: map[string]Template{
			TypeNegativeReview: {
				Subject: "Urgent review for {{businessName}}",
				Body:    "A {{rating}}-star review needs your attention: {{mainIssue}}. Suggested replies are ready in your dashboard.",
			},
			TypeUsageLimit: {
				Subject: "{{businessName}} hit its {{window}} generation limit",
				Body:    "Your {{window}} limit of {{limit}} generated responses has been reached. Generation resumes when the window rolls over, or you can raise the limit on your plan.",
			},
			TypeProviderFailure: {
				Subject: "Response generation degraded",
				Body:    "{{failureCount}} consecutive generation failures. Last error: {{lastError}}.",
			},
		},
	}
}

// Get returns the template for a notification type.
func (r *TemplateRegistry) Get(notificationType string) (Template, bool) {
	t, ok := r.Templates[notificationType]
	return t, ok
}

// renderTemplate substitutes {{key}} placeholders from data and blanks any
// placeholder that has no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return result
}
