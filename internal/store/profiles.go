// Package store persists business profiles and generation history in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"review-responder/internal/common/database"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

// ProfileStore reads and writes business profiles.
type ProfileStore struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewProfileStore(db *database.PostgresClient, log logger.Logger) *ProfileStore {
	return &ProfileStore{db: db, logger: log}
}

const getProfileQuery = `
	SELECT id, name, category, description, specialties,
	       known_issues, strengths, tone, rules,
	       owner_rules, owner_email, notify_by_email
	FROM business_profiles
	WHERE id = $1`

// GetProfile loads a profile by ID. Unknown IDs map to PROFILE_NOT_FOUND.
func (s *ProfileStore) GetProfile(ctx context.Context, profileID string) (*models.BusinessProfile, error) {
	row := s.db.QueryRow(ctx, getProfileQuery, profileID)

	var (
		p              models.BusinessProfile
		knownIssuesRaw []byte
		strengthsRaw   []byte
		toneRaw        []byte
		rulesRaw       []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Description, &p.Specialties,
		&knownIssuesRaw, &strengthsRaw, &toneRaw, &rulesRaw,
		&p.OwnerRules, &p.OwnerEmail, &p.NotifyByEmail,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewProfileNotFoundError(profileID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("getProfile", err)
	}

	if err := decodeJSONColumns(&p, knownIssuesRaw, strengthsRaw, toneRaw, rulesRaw); err != nil {
		return nil, errors.NewQueryExecutionFailedError("getProfile", err)
	}
	return &p, nil
}

const upsertProfileQuery = `
	INSERT INTO business_profiles
		(id, name, category, description, specialties,
		 known_issues, strengths, tone, rules,
		 owner_rules, owner_email, notify_by_email, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		description = EXCLUDED.description,
		specialties = EXCLUDED.specialties,
		known_issues = EXCLUDED.known_issues,
		strengths = EXCLUDED.strengths,
		tone = EXCLUDED.tone,
		rules = EXCLUDED.rules,
		owner_rules = EXCLUDED.owner_rules,
		owner_email = EXCLUDED.owner_email,
		notify_by_email = EXCLUDED.notify_by_email,
		updated_at = NOW()`

// SaveProfile inserts or updates a profile and returns its ID. A missing ID
// gets a fresh UUID.
func (s *ProfileStore) SaveProfile(ctx context.Context, p *models.BusinessProfile) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	knownIssues, err := json.Marshal(p.KnownIssues)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}
	strengths, err := json.Marshal(p.Strengths)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}
	tone, err := json.Marshal(p.Tone)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}
	rules, err := json.Marshal(p.Rules)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}

	_, err = s.db.Exec(ctx, upsertProfileQuery,
		p.ID, p.Name, string(p.Category), p.Description, p.Specialties,
		knownIssues, strengths, tone, rules,
		p.OwnerRules, p.OwnerEmail, p.NotifyByEmail,
	)
	if err != nil {
		return "", errors.NewDatabaseInsertFailedError(err)
	}

	s.logger.Info("profile saved", map[string]interface{}{
		"profileId": p.ID,
		"category":  string(p.Category),
	})
	return p.ID, nil
}

func decodeJSONColumns(p *models.BusinessProfile, knownIssues, strengths, tone, rules []byte) error {
	if len(knownIssues) > 0 {
		if err := json.Unmarshal(knownIssues, &p.KnownIssues); err != nil {
			return fmt.Errorf("known_issues column: %w", err)
		}
	}
	if len(strengths) > 0 {
		if err := json.Unmarshal(strengths, &p.Strengths); err != nil {
			return fmt.Errorf("strengths column: %w", err)
		}
	}
	if len(tone) > 0 {
		if err := json.Unmarshal(tone, &p.Tone); err != nil {
			return fmt.Errorf("tone column: %w", err)
		}
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &p.Rules); err != nil {
			return fmt.Errorf("rules column: %w", err)
		}
	}
	return nil
}
