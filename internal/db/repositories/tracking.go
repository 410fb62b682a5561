package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/query"
)

// CommonFilter holds the filters every tracking table supports.
type CommonFilter struct {
	CreationTime    *int64 `form:"creationTime" json:"creationTime"`
	MinCreationTime *int64 `form:"minCreationTime" json:"minCreationTime"`
	MaxCreationTime *int64 `form:"maxCreationTime" json:"maxCreationTime"`
	CreatorUserID   *int64 `form:"creatorUserId" json:"creatorUserId"`
	Offset          *int64 `form:"offset" json:"offset"`
	Count           *int64 `form:"count" json:"count"`
}

func (f CommonFilter) apply(b *query.Builder) *query.Builder {
	query.Equal(b, "creation_time", f.CreationTime)
	query.Between(b, "creation_time", f.MinCreationTime, f.MaxCreationTime)
	query.Equal(b, "creator_user_id", f.CreatorUserID)
	return b.Page(f.Offset, f.Count)
}

// getRow loads a single row by id into dest, reporting false when absent.
func getRow(ctx context.Context, db DBTX, dest interface{}, table, idColumn, columns string, id int64) (bool, error) {
	err := db.GetContext(ctx, dest, fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, columns, table, idColumn), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", table, err)
	}
	return true, nil
}

// insertIdentity inserts an identity row (creation_time, creator_user_id)
// into table and returns the generated id.
func insertIdentity(ctx context.Context, db DBTX, table, idColumn string, creationTime, creatorUserID int64) (int64, error) {
	var id int64
	err := db.QueryRowxContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (creation_time, creator_user_id) VALUES ($1, $2) RETURNING %s`, table, idColumn),
		creationTime, creatorUserID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", table, mapErr(err))
	}
	return id, nil
}
