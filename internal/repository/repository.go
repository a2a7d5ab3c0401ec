// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a transaction.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO transactions (
			id, account_id, amount, timestamp, type, location,
			device_id, merchant_id, channel, occupation,
			risk_score, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.AccountID, tx.Amount, tx.Timestamp.UTC(),
		tx.Type, tx.Location,
		tx.DeviceID, tx.MerchantID, tx.Channel, tx.Occupation,
		tx.RiskScore, tx.Status,
	)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	if txID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, account_id, amount, timestamp, type, location,
			   device_id, merchant_id, channel, occupation,
			   risk_score, status
		FROM transactions
		WHERE id = ?
	`

	var tx domain.Transaction
	err := r.db.QueryRowContext(ctx, r.rebind(query), txID).Scan(
		&tx.ID, &tx.AccountID, &tx.Amount, &tx.Timestamp,
		&tx.Type, &tx.Location,
		&tx.DeviceID, &tx.MerchantID, &tx.Channel, &tx.Occupation,
		&tx.RiskScore, &tx.Status,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &tx, nil
}

// ListTransactionsSince retrieves transactions at or after the given time,
// newest first. A zero since returns everything; limit <= 0 means no limit.
func (r *SQLRepository) ListTransactionsSince(ctx context.Context, since time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, timestamp, type, location,
			   device_id, merchant_id, channel, occupation,
			   risk_score, status
		FROM transactions
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`
	args := []interface{}{since.UTC()}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.AccountID, &tx.Amount, &tx.Timestamp,
			&tx.Type, &tx.Location,
			&tx.DeviceID, &tx.MerchantID, &tx.Channel, &tx.Occupation,
			&tx.RiskScore, &tx.Status,
		); err != nil {
			return nil, err
		}
		txs = append(txs, &tx)
	}

	return txs, rows.Err()
}

// SaveEvaluation stores a scoring result. Sub-scores and the explanation
// are serialized as JSON blobs; the columns queried by the API stay flat.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, res *domain.Result) error {
	if res == nil || res.ID == "" {
		return fmt.Errorf("%w: evaluation id is required", ErrInvalidInput)
	}

	scores, _ := json.Marshal(map[string]domain.SubScore{
		"anomaly":    res.Anomaly,
		"supervised": res.Supervised,
		"graph":      res.Graph,
	})
	explanation, _ := json.Marshal(res.Explanation)

	query := `
		INSERT INTO evaluations (
			id, tx_id, account_id, timestamp, composite_score,
			customer_risk, status, drift_detected, sub_scores, explanation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	drift := 0
	if res.DriftDetected {
		drift = 1
	}

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		res.ID, res.TxID, res.AccountID, res.Timestamp.UTC(),
		res.Composite, res.CustomerRisk, res.Status, drift,
		string(scores), string(explanation),
	)
	return err
}

// GetEvaluation retrieves a scoring result by ID.
func (r *SQLRepository) GetEvaluation(ctx context.Context, id string) (*domain.Result, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: evaluation id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tx_id, account_id, timestamp, composite_score,
			   customer_risk, status, drift_detected, sub_scores, explanation
		FROM evaluations
		WHERE id = ?
	`

	var res domain.Result
	var drift int
	var scores, explanation string

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&res.ID, &res.TxID, &res.AccountID, &res.Timestamp,
		&res.Composite, &res.CustomerRisk, &res.Status, &drift,
		&scores, &explanation,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	res.DriftDetected = drift != 0

	var sub map[string]domain.SubScore
	if err := json.Unmarshal([]byte(scores), &sub); err == nil {
		res.Anomaly = sub["anomaly"]
		res.Supervised = sub["supervised"]
		res.Graph = sub["graph"]
	}
	if explanation != "" {
		json.Unmarshal([]byte(explanation), &res.Explanation)
	}

	return &res, nil
}

// Ping verifies the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
