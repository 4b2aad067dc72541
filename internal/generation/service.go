package generation

import (
	"context"
	"errors"
	"strconv"
	"time"

	"review-responder/internal/common/logger"
	"review-responder/internal/common/metrics"
	"review-responder/internal/models"
)

// Service is the response generation pipeline: prompt builder, completion
// client, parser. It holds no state between calls; concurrent invocations
// are fully independent.
type Service struct {
	client *Client
	logger logger.Logger
}

func NewService(client *Client, log logger.Logger) *Service {
	return &Service{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "generation"}),
	}
}

// Generate runs one review through the pipeline. Exactly one provider round
// trip; all three failure modes are terminal and no fallback reply set is
// ever synthesized, since the owner might publish whatever comes back.
func (s *Service) Generate(ctx context.Context, reviewText string, profile *models.BusinessProfile, opts models.GenerateOptions) (*models.GenerationResult, error) {
	started := time.Now()
	path := "generate"
	if len(opts.PreviousResponses) > 0 && opts.Adjustment != "" {
		path = "regenerate"
	}

	messages := BuildMessages(reviewText, profile, opts)

	raw, err := s.client.Complete(ctx, messages)
	if err != nil {
		metrics.GenerationsFailed.WithLabelValues(errorCode(err)).Inc()
		return nil, err
	}

	result, err := ParseResult(raw)
	if err != nil {
		s.logger.Error("completion did not match output contract", map[string]interface{}{
			"error":      err.Error(),
			"rawExcerpt": excerpt(raw),
		})
		metrics.GenerationsFailed.WithLabelValues(errorCode(err)).Inc()
		return nil, err
	}

	metrics.GenerationsCompleted.WithLabelValues(strconv.Itoa(len(result.Responses))).Inc()
	metrics.GenerationDuration.WithLabelValues(path).Observe(time.Since(started).Seconds())

	s.logger.Info("generation completed", map[string]interface{}{
		"path":      path,
		"variants":  len(result.Responses),
		"sentiment": result.Analysis.Sentiment,
		"urgency":   result.Analysis.Urgency,
		"elapsedMs": time.Since(started).Milliseconds(),
	})

	return result, nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCompletion):
		return "EMPTY_COMPLETION"
	case errors.Is(err, ErrMalformedOutput):
		return "MALFORMED_OUTPUT"
	case errors.Is(err, ErrUpstream):
		return "UPSTREAM_ERROR"
	default:
		return "UNKNOWN"
	}
}

func excerpt(s string) string {
	const limit = 400
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
