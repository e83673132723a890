package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repository code runs standalone and inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories holds all repository interfaces
type Repositories struct {
	User  UserRepository
	Token TokenRepository

	db *sql.DB
}

// NewRepositories creates all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Token: NewTokenRepository(db),
		db:    db,
	}
}

// WithTransaction runs fn against a repository set bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise, so a
// multi-step state transition either fully lands or leaves no trace.
func (r *Repositories) WithTransaction(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepos := &Repositories{
		User:  NewUserRepository(tx),
		Token: NewTokenRepository(tx),
		db:    r.db,
	}

	if err := fn(txRepos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
