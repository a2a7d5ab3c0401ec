package domain

import (
	"context"
	"time"
)

// Repository persists transactions and evaluation results.
// Writes on the scoring path are best-effort: a failed save is logged
// and never fails the request.
type Repository interface {
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	ListTransactionsSince(ctx context.Context, since time.Time, limit int) ([]*Transaction, error)

	SaveEvaluation(ctx context.Context, res *Result) error
	GetEvaluation(ctx context.Context, id string) (*Result, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres".
	Driver string

	// SQLite specific.
	SQLitePath string

	// PostgreSQL specific.
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
