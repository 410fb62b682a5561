// Package repositories holds one repository per table of the goal tracker
// schema. Credential tables are append-only: repositories expose inserts and
// "latest row for key" reads, never updates or deletes.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/goaltracker/goaltracker/internal/db/query"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// ErrUniqueViolation wraps PostgreSQL unique_violation (23505) errors.
var ErrUniqueViolation = errors.New("unique constraint violation")

const pqUniqueViolation = "23505"

// mapErr converts driver errors the services need to branch on.
func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
	}
	return err
}

// Store aggregates every repository over one connection or transaction.
type Store struct {
	db     *sqlx.DB // nil inside a transaction
	conn   DBTX
	limits query.Limits

	Users                *UserRepository
	Challenges           *VerificationChallengeRepository
	Passwords            *PasswordRepository
	PasswordResets       *PasswordResetRepository
	APIKeys              *APIKeyRepository
	Goals                *GoalRepository
	PastEvents           *PastEventRepository
	TimeUtilityFunctions *TimeUtilityFunctionRepository
	Subscriptions        *SubscriptionRepository
}

// NewStore builds a Store over db. List queries use limits for paging.
func NewStore(db *sqlx.DB, limits query.Limits) *Store {
	s := newStore(db, limits)
	s.db = db
	return s
}

func newStore(conn DBTX, limits query.Limits) *Store {
	return &Store{
		conn:                 conn,
		limits:               limits,
		Users:                NewUserRepository(conn, limits),
		Challenges:           NewVerificationChallengeRepository(conn),
		Passwords:            NewPasswordRepository(conn, limits),
		PasswordResets:       NewPasswordResetRepository(conn),
		APIKeys:              NewAPIKeyRepository(conn, limits),
		Goals:                NewGoalRepository(conn, limits),
		PastEvents:           NewPastEventRepository(conn, limits),
		TimeUtilityFunctions: NewTimeUtilityFunctionRepository(conn, limits),
		Subscriptions:        NewSubscriptionRepository(conn, limits),
	}
}

// WithTx runs fn against a Store bound to a new transaction, committing when
// fn returns nil. Nested calls reuse the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := fn(newStore(tx, s.limits)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapErr(err))
	}
	return nil
}

// LockEmail serializes concurrent transactions working on the same address.
// The lock is released when the enclosing transaction ends, so it must be
// called from inside WithTx.
func (s *Store) LockEmail(ctx context.Context, email string) error {
	if s.db != nil {
		return errors.New("LockEmail requires a transaction")
	}
	if _, err := s.conn.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email); err != nil {
		return fmt.Errorf("failed to lock email: %w", err)
	}
	return nil
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}
