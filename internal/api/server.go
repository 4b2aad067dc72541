package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"review-responder/internal/analytics"
	"review-responder/internal/common/config"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/common/observability"
	"review-responder/internal/models"
	"review-responder/internal/notify"
	"review-responder/internal/research"
	"review-responder/internal/store"
)

// Generator runs the prompt pipeline for one review.
type Generator interface {
	Generate(ctx context.Context, reviewText string, profile *models.BusinessProfile, opts models.GenerateOptions) (*models.GenerationResult, error)
}

// UsageLimiter gates and charges generation quota.
type UsageLimiter interface {
	Allow(ctx context.Context, profileID string) error
	Record(ctx context.Context, profileID string) error
}

// ProfileStore loads and saves business profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, profileID string) (*models.BusinessProfile, error)
	SaveProfile(ctx context.Context, p *models.BusinessProfile) (string, error)
}

// HistoryStore persists finished generations.
type HistoryStore interface {
	SaveGeneration(ctx context.Context, rec *store.GenerationRecord) error
	RecentGenerations(ctx context.Context, profileID string, limit int) ([]store.GenerationRecord, error)
}

// AnalyticsIndexer ships analysis documents to the dashboard index.
type AnalyticsIndexer interface {
	IndexAnalysis(ctx context.Context, doc analytics.AnalysisDocument) error
}

// OwnerNotifier handles owner emails and provider-failure alerting.
type OwnerNotifier interface {
	NotifyNegativeReview(ctx context.Context, profile *models.BusinessProfile, rating int, analysis models.ReviewAnalysis) (*notify.Notification, error)
	NotifyUsageLimitReached(ctx context.Context, profile *models.BusinessProfile, window string, limit int64) (*notify.Notification, error)
	RecordProviderFailure(ctx context.Context, cause error)
	RecordProviderSuccess()
}

// BusinessResearcher drafts profile suggestions.
type BusinessResearcher interface {
	Research(ctx context.Context, name string, category models.BusinessCategory) (*research.ProfileSuggestions, error)
}

// Server wires the HTTP handlers to the domain services. Indexer, notifier
// and researcher are optional; a nil value disables that path.
type Server struct {
	config       config.Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler

	generator  Generator
	limiter    UsageLimiter
	profiles   ProfileStore
	history    HistoryStore
	indexer    AnalyticsIndexer
	notifier   OwnerNotifier
	researcher BusinessResearcher
	obs        *observability.Observability
}

// Deps carries the service dependencies for NewServer.
type Deps struct {
	Generator     Generator
	Limiter       UsageLimiter
	Profiles      ProfileStore
	History       HistoryStore
	Indexer       AnalyticsIndexer
	Notifier      OwnerNotifier
	Researcher    BusinessResearcher
	Observability *observability.Observability
}

func NewServer(cfg config.Config, deps Deps, log logger.Logger) *Server {
	return &Server{
		config:       cfg,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		generator:    deps.Generator,
		limiter:      deps.Limiter,
		profiles:     deps.Profiles,
		history:      deps.History,
		indexer:      deps.Indexer,
		notifier:     deps.Notifier,
		researcher:   deps.Researcher,
		obs:          deps.Observability,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/v1/profiles", s.handleSaveProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}", s.handleGetProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/v1/research", s.handleResearch)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.withRequestID(mux)
}

type contextKey string

const requestIDKey contextKey = "requestId"

// withRequestID tags every request with a UUID and logs the access line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestIDKey, requestID),
		))

		s.logger.Info("request handled", map[string]interface{}{
			"requestId":  requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
