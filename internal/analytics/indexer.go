// Package analytics ships review-analysis documents to Elasticsearch so
// sentiment and issue trends can be charted per business.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"review-responder/internal/common/database"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

// AnalysisDocument is the flattened shape indexed per generation.
type AnalysisDocument struct {
	GenerationID string    `json:"generationId"`
	ProfileID    string    `json:"profileId"`
	Category     string    `json:"category"`
	Rating       int       `json:"rating,omitempty"`
	Sentiment    string    `json:"sentiment"`
	MainIssue    string    `json:"mainIssue,omitempty"`
	Urgency      string    `json:"urgency"`
	ReviewLength int       `json:"reviewLength"`
	VariantCount int       `json:"variantCount"`
	Regenerated  bool      `json:"regenerated"`
	Timestamp    time.Time `json:"@timestamp"`
}

// Indexer writes analysis documents into a single configured index.
type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{es: es, index: index, logger: log}
}

// IndexAnalysis stores one document keyed by generation ID. Indexing is
// best-effort from the caller's point of view; the returned error carries
// the INDEXING_FAILED code so callers can log and move on.
func (i *Indexer) IndexAnalysis(ctx context.Context, doc AnalysisDocument) error {
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.NewIndexingFailedError(i.index, err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithDocumentID(doc.GenerationID),
	)
	if err != nil {
		return errors.NewIndexingFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewIndexingFailedError(i.index, fmt.Errorf("index response: %s", res.Status()))
	}

	i.logger.Debug("analysis indexed", map[string]interface{}{
		"generationId": doc.GenerationID,
		"index":        i.index,
		"sentiment":    doc.Sentiment,
	})
	return nil
}

// DocumentFor maps a finished generation onto the indexable shape.
func DocumentFor(generationID string, profile *models.BusinessProfile, rec ReviewContext, result *models.GenerationResult) AnalysisDocument {
	doc := AnalysisDocument{
		GenerationID: generationID,
		ProfileID:    profile.ID,
		Category:     string(profile.Category),
		Rating:       rec.Rating,
		Sentiment:    result.Analysis.Sentiment,
		Urgency:      result.Analysis.Urgency,
		ReviewLength: len(rec.ReviewText),
		VariantCount: len(result.Responses),
		Regenerated:  rec.Regenerated,
	}
	if result.Analysis.MainIssue != nil {
		doc.MainIssue = *result.Analysis.MainIssue
	}
	return doc
}

// ReviewContext carries the request-side fields the document needs.
type ReviewContext struct {
	ReviewText  string
	Rating      int
	Regenerated bool
}
