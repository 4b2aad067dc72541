package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-responder/internal/analytics"
	"review-responder/internal/common/config"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/generation"
	"review-responder/internal/models"
	"review-responder/internal/notify"
	"review-responder/internal/research"
	"review-responder/internal/store"
)

type fakeGenerator struct {
	result *models.GenerationResult
	err    error

	gotReview string
	gotOpts   models.GenerateOptions
}

func (f *fakeGenerator) Generate(ctx context.Context, reviewText string, profile *models.BusinessProfile, opts models.GenerateOptions) (*models.GenerationResult, error) {
	f.gotReview = reviewText
	f.gotOpts = opts
	return f.result, f.err
}

type fakeLimiter struct {
	allowErr error
	recorded []string
}

func (f *fakeLimiter) Allow(ctx context.Context, profileID string) error {
	return f.allowErr
}

func (f *fakeLimiter) Record(ctx context.Context, profileID string) error {
	f.recorded = append(f.recorded, profileID)
	return nil
}

type fakeProfiles struct {
	profiles map[string]*models.BusinessProfile
	saved    []*models.BusinessProfile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, profileID string) (*models.BusinessProfile, error) {
	if p, ok := f.profiles[profileID]; ok {
		return p, nil
	}
	return nil, errors.NewProfileNotFoundError(profileID)
}

func (f *fakeProfiles) SaveProfile(ctx context.Context, p *models.BusinessProfile) (string, error) {
	if p.ID == "" {
		p.ID = fmt.Sprintf("p-%d", len(f.saved)+1)
	}
	f.saved = append(f.saved, p)
	return p.ID, nil
}

type fakeHistory struct {
	records []*store.GenerationRecord
}

func (f *fakeHistory) SaveGeneration(ctx context.Context, rec *store.GenerationRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) RecentGenerations(ctx context.Context, profileID string, limit int) ([]store.GenerationRecord, error) {
	var out []store.GenerationRecord
	for _, rec := range f.records {
		if rec.ProfileID == profileID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeIndexer struct {
	docs []analytics.AnalysisDocument
}

func (f *fakeIndexer) IndexAnalysis(ctx context.Context, doc analytics.AnalysisDocument) error {
	f.docs = append(f.docs, doc)
	return nil
}

type fakeNotifier struct {
	notification *notify.Notification
	notified     []models.ReviewAnalysis
	limitWindows []string
	failures     int
	successes    int
}

func (f *fakeNotifier) NotifyNegativeReview(ctx context.Context, profile *models.BusinessProfile, rating int, analysis models.ReviewAnalysis) (*notify.Notification, error) {
	f.notified = append(f.notified, analysis)
	if f.notification != nil {
		return f.notification, nil
	}
	return &notify.Notification{ID: "n-1", Type: notify.TypeNegativeReview, Status: notify.StatusSent}, nil
}

func (f *fakeNotifier) NotifyUsageLimitReached(ctx context.Context, profile *models.BusinessProfile, window string, limit int64) (*notify.Notification, error) {
	f.limitWindows = append(f.limitWindows, window)
	return &notify.Notification{ID: "n-2", Type: notify.TypeUsageLimit, Status: notify.StatusSent}, nil
}

func (f *fakeNotifier) RecordProviderFailure(ctx context.Context, cause error) { f.failures++ }
func (f *fakeNotifier) RecordProviderSuccess()                                { f.successes++ }

type fakeResearcher struct {
	suggestions *research.ProfileSuggestions
	err         error
}

func (f *fakeResearcher) Research(ctx context.Context, name string, category models.BusinessCategory) (*research.ProfileSuggestions, error) {
	return f.suggestions, f.err
}

type testEnv struct {
	server    *Server
	generator *fakeGenerator
	limiter   *fakeLimiter
	profiles  *fakeProfiles
	history   *fakeHistory
	indexer   *fakeIndexer
	notifier  *fakeNotifier
}

func okResult() *models.GenerationResult {
	issue := "cold food"
	return &models.GenerationResult{
		Responses: []models.GeneratedResponse{
			{ID: "1", Text: "We are sorry about the wait.", Accent: models.AccentNeutral},
			{ID: "2", Text: "That must have been frustrating.", Accent: models.AccentEmpathetic},
			{ID: "3", Text: "Here is what we will do.", Accent: models.AccentSolutionFocused},
			{ID: "4", Text: "Noted.", Accent: models.AccentPassiveAggressive},
		},
		Analysis: models.ReviewAnalysis{
			Sentiment: models.SentimentNegative,
			MainIssue: &issue,
			Urgency:   models.UrgencyHigh,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		generator: &fakeGenerator{result: okResult()},
		limiter:   &fakeLimiter{},
		profiles: &fakeProfiles{profiles: map[string]*models.BusinessProfile{
			"p-1": {ID: "p-1", Name: "Mario's Pizza", Category: models.CategoryRestaurant},
		}},
		history:  &fakeHistory{},
		indexer:  &fakeIndexer{},
		notifier: &fakeNotifier{},
	}

	var cfg config.Config
	cfg.App.Version = "1.2.3"

	env.server = NewServer(cfg, Deps{
		Generator:  env.generator,
		Limiter:    env.limiter,
		Profiles:   env.profiles,
		History:    env.history,
		Indexer:    env.indexer,
		Notifier:   env.notifier,
		Researcher: &fakeResearcher{suggestions: &research.ProfileSuggestions{Description: "a pizzeria"}},
	}, logger.NewTestLogger(t))
	return env
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGenerateHappyPath(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "p-1",
		ReviewText: "Cold pizza, waited two hours",
		Rating:     2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, resp.GenerationID)
	require.Len(t, resp.Responses, 4)
	assert.Equal(t, models.AccentNeutral, resp.Responses[0].Accent)

	assert.Equal(t, "Cold pizza, waited two hours", env.generator.gotReview)
	assert.Equal(t, 2, env.generator.gotOpts.Rating)
	assert.Equal(t, []string{"p-1"}, env.limiter.recorded)

	require.Len(t, env.history.records, 1)
	assert.Equal(t, resp.GenerationID, env.history.records[0].ID)

	require.Len(t, env.indexer.docs, 1)
	assert.Equal(t, "negative", env.indexer.docs[0].Sentiment)
	assert.False(t, env.indexer.docs[0].Regenerated)

	assert.Equal(t, 1, env.notifier.successes)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), resp.RequestID)
}

func TestGenerateNotifiesOwnerOnUrgentNegative(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "p-1",
		ReviewText: "Food poisoning, never again",
		Rating:     1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotNil(t, resp.Notification)
	assert.Equal(t, notify.TypeNegativeReview, resp.Notification.Type)
	assert.Equal(t, notify.StatusSent, resp.Notification.Status)
	assert.Len(t, env.notifier.notified, 1)
}

func TestGenerateRegenerationSkipsOwnerNotification(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "p-1",
		ReviewText: "Food poisoning, never again",
		Rating:     1,
		Adjustment: "make it shorter",
		PreviousResponses: []models.GeneratedResponse{
			{ID: "1", Text: "prior", Accent: models.AccentNeutral},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Nil(t, resp.Notification)
	assert.Empty(t, env.notifier.notified)

	require.Len(t, env.indexer.docs, 1)
	assert.True(t, env.indexer.docs[0].Regenerated)
	assert.Equal(t, "make it shorter", env.generator.gotOpts.Adjustment)
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()

	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{"missing profile", GenerateRequest{ReviewText: "hi"}},
		{"missing review", GenerateRequest{ProfileID: "p-1"}},
		{"blank review", GenerateRequest{ProfileID: "p-1", ReviewText: "   "}},
		{"rating out of range", GenerateRequest{ProfileID: "p-1", ReviewText: "hi", Rating: 6}},
		{"adjustment without history", GenerateRequest{ProfileID: "p-1", ReviewText: "hi", Adjustment: "softer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/v1/generate", tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
		})
	}
}

func TestGenerateUnknownProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "missing",
		ReviewText: "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROFILE_NOT_FOUND")
}

func TestGenerateQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	env.limiter.allowErr = errors.NewUsageLimitExceededError("daily", 50)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "p-1",
		ReviewText: "hello",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "USAGE_LIMIT_EXCEEDED")
	assert.Empty(t, env.limiter.recorded)
	assert.Equal(t, []string{"daily"}, env.notifier.limitWindows)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.generator.result = nil
	env.generator.err = fmt.Errorf("%w: status 503", generation.ErrUpstream)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/generate", GenerateRequest{
		ProfileID:  "p-1",
		ReviewText: "hello",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "GENERATION_UPSTREAM_ERROR")

	assert.Equal(t, 1, env.notifier.failures)
	assert.Empty(t, env.limiter.recorded)
	assert.Empty(t, env.history.records)
}

func TestSaveAndGetProfile(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/profiles", models.BusinessProfile{
		Name:     "Hotel Riva",
		Category: models.CategoryHotel,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var saved SaveProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ProfileID)

	env.profiles.profiles[saved.ProfileID] = env.profiles.saved[0]

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/profiles/"+saved.ProfileID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.BusinessProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Hotel Riva", got.Name)
}

func TestSaveProfileRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/profiles", models.BusinessProfile{
		Name:     "Mystery Inc",
		Category: "detective-agency",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.history.records = append(env.history.records, &store.GenerationRecord{
		ID: "g-1", ProfileID: "p-1", ReviewText: "Cold pizza",
	})

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/api/v1/profiles/p-1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []store.GenerationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "g-1", records[0].ID)
}

func TestHistoryLimitValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/api/v1/profiles/p-1/history?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResearchEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/research", ResearchRequest{
		Name:     "Mario's Pizza",
		Category: models.CategoryRestaurant,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var suggestions research.ProfileSuggestions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	assert.Equal(t, "a pizzeria", suggestions.Description)
}

func TestResearchValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/api/v1/research", ResearchRequest{
		Name:     "",
		Category: models.CategoryCafe,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
}
