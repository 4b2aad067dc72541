// Package api exposes the HTTP surface of the response generator.
package api

import (
	"fmt"
	"strings"

	"review-responder/internal/models"
)

// GenerateRequest is the body of POST /api/v1/generate.
type GenerateRequest struct {
	ProfileID         string                     `json:"profileId"`
	ReviewText        string                     `json:"reviewText"`
	Rating            int                        `json:"rating,omitempty"`
	Context           string                     `json:"context,omitempty"`
	Adjustment        string                     `json:"adjustment,omitempty"`
	PreviousResponses []models.GeneratedResponse `json:"previousResponses,omitempty"`
	IncludeHardcore   bool                       `json:"includeHardcore,omitempty"`
}

// Validate checks the request against the input contract.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.ProfileID) == "" {
		return fmt.Errorf("profileId is required")
	}
	if strings.TrimSpace(r.ReviewText) == "" {
		return fmt.Errorf("reviewText is required")
	}
	if r.Rating != 0 && (r.Rating < 1 || r.Rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	if r.Adjustment != "" && len(r.PreviousResponses) == 0 {
		return fmt.Errorf("adjustment requires previousResponses")
	}
	return nil
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	RequestID    string                     `json:"requestId"`
	GenerationID string                     `json:"generationId"`
	Responses    []models.GeneratedResponse `json:"responses"`
	Analysis     models.ReviewAnalysis      `json:"analysis"`
	Notification *NotificationSummary       `json:"notification,omitempty"`
}

// NotificationSummary reports what the owner-alert path did for this request.
type NotificationSummary struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// ResearchRequest is the body of POST /api/v1/research.
type ResearchRequest struct {
	Name     string                  `json:"name"`
	Category models.BusinessCategory `json:"category"`
}

func (r *ResearchRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("unknown category: %s", r.Category)
	}
	return nil
}

// SaveProfileResponse returns the persisted profile ID.
type SaveProfileResponse struct {
	ProfileID string `json:"profileId"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
