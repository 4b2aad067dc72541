package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"review-responder/internal/common/database"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

// GenerationRecord is one completed generation as persisted for history
// and dashboards.
type GenerationRecord struct {
	ID         string                     `json:"id"`
	ProfileID  string                     `json:"profileId"`
	ReviewText string                     `json:"reviewText"`
	Rating     int                        `json:"rating,omitempty"`
	Adjustment string                     `json:"adjustment,omitempty"`
	Responses  []models.GeneratedResponse `json:"responses"`
	Analysis   models.ReviewAnalysis      `json:"analysis"`
	CreatedAt  time.Time                  `json:"createdAt"`
}

// HistoryStore persists generation records.
type HistoryStore struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewHistoryStore(db *database.PostgresClient, log logger.Logger) *HistoryStore {
	return &HistoryStore{db: db, logger: log}
}

const insertGenerationQuery = `
	INSERT INTO generations
		(id, profile_id, review_text, rating, adjustment, responses, analysis, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// SaveGeneration writes one record. The record ID and timestamp are filled
// in when absent.
func (s *HistoryStore) SaveGeneration(ctx context.Context, rec *GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	responses, err := json.Marshal(rec.Responses)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.Exec(ctx, insertGenerationQuery,
		rec.ID, rec.ProfileID, rec.ReviewText, nullableRating(rec.Rating),
		rec.Adjustment, responses, analysis, rec.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	s.logger.Debug("generation recorded", map[string]interface{}{
		"generationId": rec.ID,
		"profileId":    rec.ProfileID,
	})
	return nil
}

const recentGenerationsQuery = `
	SELECT id, profile_id, review_text, COALESCE(rating, 0), adjustment,
	       responses, analysis, created_at
	FROM generations
	WHERE profile_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// RecentGenerations returns the newest records for a profile, newest first.
func (s *HistoryStore) RecentGenerations(ctx context.Context, profileID string, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, recentGenerationsQuery, profileID, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("recentGenerations", err)
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var (
			rec          GenerationRecord
			responsesRaw []byte
			analysisRaw  []byte
		)
		err := rows.Scan(
			&rec.ID, &rec.ProfileID, &rec.ReviewText, &rec.Rating,
			&rec.Adjustment, &responsesRaw, &analysisRaw, &rec.CreatedAt,
		)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("recentGenerations", err)
		}
		if len(responsesRaw) > 0 {
			if err := json.Unmarshal(responsesRaw, &rec.Responses); err != nil {
				return nil, errors.NewQueryExecutionFailedError("recentGenerations", err)
			}
		}
		if len(analysisRaw) > 0 {
			if err := json.Unmarshal(analysisRaw, &rec.Analysis); err != nil {
				return nil, errors.NewQueryExecutionFailedError("recentGenerations", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("recentGenerations", err)
	}
	return out, nil
}

func nullableRating(rating int) interface{} {
	if rating == 0 {
		return sql.NullInt64{}
	}
	return rating
}
