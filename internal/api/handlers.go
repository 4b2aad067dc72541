package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"review-responder/internal/analytics"
	"review-responder/internal/common/errors"
	"review-responder/internal/generation"
	"review-responder/internal/models"
	"review-responder/internal/store"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError(err.Error()))
		return
	}

	profile, err := s.profiles.GetProfile(ctx, req.ProfileID)
	if err != nil {
		s.errorHandler.WriteError(w, requestID, err)
		return
	}

	if err := s.limiter.Allow(ctx, req.ProfileID); err != nil {
		s.notifyLimitReached(ctx, profile, err)
		s.errorHandler.WriteError(w, requestID, err)
		return
	}

	opts := models.GenerateOptions{
		Rating:            req.Rating,
		OwnerContext:      req.Context,
		Adjustment:        req.Adjustment,
		PreviousResponses: req.PreviousResponses,
		IncludeHardcore:   req.IncludeHardcore,
	}

	genCtx := ctx
	if s.obs != nil {
		var span trace.Span
		genCtx, span = s.obs.StartSpan(ctx, "generation.pipeline")
		defer span.End()
	}

	start := time.Now()
	result, err := s.generator.Generate(genCtx, req.ReviewText, profile, opts)
	if s.obs != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.obs.RecordGeneration(ctx, status)
		s.obs.RecordGenerationDuration(ctx, time.Since(start), status)
	}
	if err != nil {
		if s.notifier != nil {
			s.notifier.RecordProviderFailure(ctx, err)
		}
		s.errorHandler.WriteError(w, requestID, mapGenerationError(err))
		return
	}
	if s.notifier != nil {
		s.notifier.RecordProviderSuccess()
	}

	if err := s.limiter.Record(ctx, req.ProfileID); err != nil {
		// the generation already happened; losing one counter tick is
		// better than failing the request
		s.logger.Warn("usage record failed", map[string]interface{}{
			"requestId": requestID,
			"profileId": req.ProfileID,
			"error":     err.Error(),
		})
	}

	generationID := uuid.NewString()
	s.persistGeneration(r, generationID, &req, profile, result)

	resp := GenerateResponse{
		RequestID:    requestID,
		GenerationID: generationID,
		Responses:    result.Responses,
		Analysis:     result.Analysis,
	}
	resp.Notification = s.maybeNotifyOwner(r, &req, profile, result)

	writeJSON(w, http.StatusOK, resp)
}

// persistGeneration records history and analytics. Both are best-effort:
// the caller already has their responses.
func (s *Server) persistGeneration(r *http.Request, generationID string, req *GenerateRequest, profile *models.BusinessProfile, result *models.GenerationResult) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	if s.history != nil {
		err := s.history.SaveGeneration(ctx, &store.GenerationRecord{
			ID:         generationID,
			ProfileID:  profile.ID,
			ReviewText: req.ReviewText,
			Rating:     req.Rating,
			Adjustment: req.Adjustment,
			Responses:  result.Responses,
			Analysis:   result.Analysis,
		})
		if err != nil {
			s.logger.Warn("history save failed", map[string]interface{}{
				"requestId": requestID,
				"error":     err.Error(),
			})
		}
	}

	if s.indexer != nil {
		doc := analytics.DocumentFor(generationID, profile, analytics.ReviewContext{
			ReviewText:  req.ReviewText,
			Rating:      req.Rating,
			Regenerated: len(req.PreviousResponses) > 0,
		}, result)
		if err := s.indexer.IndexAnalysis(ctx, doc); err != nil {
			s.logger.Warn("analytics indexing failed", map[string]interface{}{
				"requestId": requestID,
				"error":     err.Error(),
			})
		}
	}
}

// maybeNotifyOwner emails the owner for urgent negative reviews on the
// first generation only; regenerations of the same review stay quiet.
func (s *Server) maybeNotifyOwner(r *http.Request, req *GenerateRequest, profile *models.BusinessProfile, result *models.GenerationResult) *NotificationSummary {
	if s.notifier == nil || len(req.PreviousResponses) > 0 {
		return nil
	}
	if result.Analysis.Sentiment != models.SentimentNegative || result.Analysis.Urgency != models.UrgencyHigh {
		return nil
	}

	ctx := r.Context()
	notification, err := s.notifier.NotifyNegativeReview(ctx, profile, req.Rating, result.Analysis)
	if err != nil {
		s.logger.Warn("owner notification failed", map[string]interface{}{
			"requestId": requestIDFrom(ctx),
			"profileId": profile.ID,
			"error":     err.Error(),
		})
	}
	if notification == nil {
		return nil
	}
	return &NotificationSummary{Type: notification.Type, Status: notification.Status}
}

// notifyLimitReached tells the owner their quota window filled up. Best
// effort: the 429 goes out either way.
func (s *Server) notifyLimitReached(ctx context.Context, profile *models.BusinessProfile, limitErr error) {
	if s.notifier == nil {
		return
	}
	var stdErr *errors.StandardError
	if !stderrors.As(limitErr, &stdErr) || stdErr.Code != errors.ErrCodeUsageLimitExceeded {
		return
	}
	window, _ := stdErr.Metadata["window"].(string)
	limit, _ := stdErr.Metadata["limit"].(int64)
	if _, err := s.notifier.NotifyUsageLimitReached(ctx, profile, window, limit); err != nil {
		s.logger.Warn("usage limit notification failed", map[string]interface{}{
			"requestId": requestIDFrom(ctx),
			"profileId": profile.ID,
			"error":     err.Error(),
		})
	}
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	var profile models.BusinessProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("invalid JSON body"))
		return
	}
	if profile.Name == "" {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("name is required"))
		return
	}
	if !profile.Category.Valid() {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("unknown category: "+string(profile.Category)))
		return
	}

	id, err := s.profiles.SaveProfile(ctx, &profile)
	if err != nil {
		s.errorHandler.WriteError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, SaveProfileResponse{ProfileID: id})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	profile, err := s.profiles.GetProfile(ctx, r.PathValue("id"))
	if err != nil {
		s.errorHandler.WriteError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	if s.history == nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("history is not enabled"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	records, err := s.history.RecentGenerations(ctx, r.PathValue("id"), limit)
	if err != nil {
		s.errorHandler.WriteError(w, requestID, err)
		return
	}
	if records == nil {
		records = []store.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestIDFrom(ctx)

	if s.researcher == nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("research is not enabled"))
		return
	}

	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		s.errorHandler.WriteError(w, requestID, errors.NewValidationFailedError(err.Error()))
		return
	}

	suggestions, err := s.researcher.Research(ctx, req.Name, req.Category)
	if err != nil {
		s.errorHandler.WriteError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.config.App.Version,
	})
}

// mapGenerationError converts pipeline sentinels to the standard shape so
// the HTTP status mapping can pick the right code.
func mapGenerationError(err error) error {
	switch {
	case stderrors.Is(err, generation.ErrEmptyCompletion):
		return errors.NewEmptyCompletionError(err.Error())
	case stderrors.Is(err, generation.ErrMalformedOutput):
		return errors.NewMalformedOutputError(err.Error())
	case stderrors.Is(err, generation.ErrUpstream):
		return errors.NewUpstreamError(err)
	default:
		return errors.NewInternalError(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
