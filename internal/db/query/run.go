package query

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run builds b and scans every row of the page into a slice of T. The result
// is never nil, so an empty page encodes as [] in JSON.
func Run[T any](ctx context.Context, q sqlx.QueryerContext, b *Builder) ([]T, error) {
	out := []T{}
	if b.Empty() {
		return out, nil
	}

	sqlText, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := sqlx.SelectContext(ctx, q, &out, sqlText, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", b.table, err)
	}
	return out, nil
}
