// api_key_repository.go implements APIKeyRepository over the append-only
// api_keys log: newest-row lookup by hash, issuance, listing, and the scan
// used by the expiry reminder job.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

const apiKeyColumns = `api_key_id, creation_time, creator_user_id, api_key_hash, api_key_kind, duration`

var apiKeySelect = []string{"api_key_id", "creation_time", "creator_user_id", "api_key_hash", "api_key_kind", "duration"}

// APIKeyFilter selects api key rows for List.
type APIKeyFilter struct {
	APIKeyID        *int64             `form:"apiKeyId" json:"apiKeyId"`
	CreatorUserID   *int64             `form:"creatorUserId" json:"creatorUserId"`
	CreationTime    *int64             `form:"creationTime" json:"creationTime"`
	MinCreationTime *int64             `form:"minCreationTime" json:"minCreationTime"`
	MaxCreationTime *int64             `form:"maxCreationTime" json:"maxCreationTime"`
	Duration        *int64             `form:"duration" json:"duration"`
	MinDuration     *int64             `form:"minDuration" json:"minDuration"`
	MaxDuration     *int64             `form:"maxDuration" json:"maxDuration"`
	Kind            *models.APIKeyKind `form:"-" json:"-"`
	OnlyRecent      bool               `form:"onlyRecent" json:"onlyRecent"`
	Offset          *int64             `form:"offset" json:"offset"`
	Count           *int64             `form:"count" json:"count"`
}

func (f *APIKeyFilter) hasDuration() bool {
	return f.Duration != nil || f.MinDuration != nil || f.MaxDuration != nil
}

// APIKeyRepository handles the api key event log.
type APIKeyRepository struct {
	db     DBTX
	limits query.Limits
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db DBTX, limits query.Limits) *APIKeyRepository {
	return &APIKeyRepository{db: db, limits: limits}
}

// Latest returns the newest row for keyHash, or nil if the hash is unknown.
func (r *APIKeyRepository) Latest(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.GetContext(ctx, &k, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE api_key_hash = $1
		ORDER BY api_key_id DESC
		LIMIT 1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &k, nil
}

// Create appends k and sets its APIKeyID.
func (r *APIKeyRepository) Create(ctx context.Context, k *models.APIKey) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO api_keys (creation_time, creator_user_id, api_key_hash, api_key_kind, duration)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING api_key_id`,
		k.CreationTime, k.CreatorUserID, k.APIKeyHash, int16(k.Kind), k.Duration,
	).Scan(&k.APIKeyID)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", mapErr(err))
	}
	return nil
}

// List returns one page of api key rows matching f. Duration is only
// meaningful for VALID rows, so a duration filter combined with any other
// kind matches nothing.
func (r *APIKeyRepository) List(ctx context.Context, f APIKeyFilter) ([]models.APIKey, error) {
	b := query.New("api_keys", "api_key_id", apiKeySelect...).WithLimits(r.limits)
	if f.hasDuration() && f.Kind != nil && *f.Kind != models.APIKeyKindValid {
		b.MatchNothing()
	}
	query.Equal(b, "api_key_id", f.APIKeyID)
	query.Equal(b, "creator_user_id", f.CreatorUserID)
	query.Equal(b, "creation_time", f.CreationTime)
	query.Within(b, "creation_time", f.MinCreationTime, f.MaxCreationTime)
	query.Equal(b, "duration", f.Duration)
	query.Between(b, "duration", f.MinDuration, f.MaxDuration)
	if f.Kind != nil {
		b.Where("api_key_kind", query.Eq, int16(*f.Kind))
	}
	b.OnlyRecent("api_key_hash", f.OnlyRecent).Page(f.Offset, f.Count)

	return query.Run[models.APIKey](ctx, r.db, b)
}

// FindExpiring returns the current VALID rows whose expiry falls in
// (now, now+window]. Cancelled keys are excluded because their newest row
// has zero duration. The bounds subtract from the instants rather than adding
// to the duration, so keys issued near the int64 limit do not overflow.
func (r *APIKeyRepository) FindExpiring(ctx context.Context, now, window int64) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	err := r.db.SelectContext(ctx, &keys, `
		SELECT a.api_key_id, a.creation_time, a.creator_user_id, a.api_key_hash, a.api_key_kind, a.duration
		FROM api_keys a
		INNER JOIN (SELECT MAX(api_key_id) AS id FROM api_keys GROUP BY api_key_hash) latest ON latest.id = a.api_key_id
		WHERE a.api_key_kind = $1
		  AND a.duration > 0
		  AND a.duration > $2 - a.creation_time
		  AND a.duration <= $3 - a.creation_time
		ORDER BY a.api_key_id ASC`,
		int16(models.APIKeyKindValid), now, now+window,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring api keys: %w", err)
	}
	return keys, nil
}
