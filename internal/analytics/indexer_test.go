package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-responder/internal/common/database"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the v8 client refuses to talk to anything that does not
		// identify itself as Elasticsearch
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	client := &database.ElasticsearchClient{Client: es}
	return NewIndexer(client, "review-analysis", logger.NewTestLogger(t))
}

func TestIndexAnalysisWritesDocument(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := indexer.IndexAnalysis(context.Background(), AnalysisDocument{
		GenerationID: "g-1",
		ProfileID:    "p-1",
		Category:     "restaurant",
		Rating:       2,
		Sentiment:    "negative",
		MainIssue:    "cold food",
		Urgency:      "high",
		ReviewLength: 42,
		VariantCount: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, "/review-analysis/_doc/g-1", gotPath)
	assert.Equal(t, "negative", gotBody["sentiment"])
	assert.Equal(t, "cold food", gotBody["mainIssue"])
	assert.NotEmpty(t, gotBody["@timestamp"])
}

func TestIndexAnalysisErrorResponse(t *testing.T) {
	indexer := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})

	err := indexer.IndexAnalysis(context.Background(), AnalysisDocument{GenerationID: "g-2"})
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeIndexingFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestDocumentForMapsResult(t *testing.T) {
	issue := "late delivery"
	profile := &models.BusinessProfile{ID: "p-7", Category: models.CategoryDelivery}
	result := &models.GenerationResult{
		Responses: []models.GeneratedResponse{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}},
		Analysis: models.ReviewAnalysis{
			Sentiment: models.SentimentNegative,
			MainIssue: &issue,
			Urgency:   models.UrgencyMedium,
		},
	}

	doc := DocumentFor("g-3", profile, ReviewContext{
		ReviewText:  "Two hours late again",
		Rating:      1,
		Regenerated: true,
	}, result)

	assert.Equal(t, "g-3", doc.GenerationID)
	assert.Equal(t, "delivery", doc.Category)
	assert.Equal(t, "late delivery", doc.MainIssue)
	assert.Equal(t, 4, doc.VariantCount)
	assert.Equal(t, len("Two hours late again"), doc.ReviewLength)
	assert.True(t, doc.Regenerated)
}
