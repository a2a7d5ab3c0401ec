package repository

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// openPostgres opens the pro-tier PostgreSQL connection. SSL defaults
// to disable for local single-node deployments; set PostgresSSLMode for
// anything reachable over a network.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	params := map[string]string{
		"host":     cfg.PostgresHost,
		"port":     fmt.Sprintf("%d", cfg.PostgresPort),
		"user":     cfg.PostgresUser,
		"password": cfg.PostgresPassword,
		"dbname":   cfg.PostgresDB,
		"sslmode":  cfg.PostgresSSLMode,
	}
	if params["host"] == "" {
		params["host"] = "localhost"
	}
	if cfg.PostgresPort == 0 {
		params["port"] = "5432"
	}
	if params["dbname"] == "" {
		params["dbname"] = "kestrel"
	}
	if params["sslmode"] == "" {
		params["sslmode"] = "disable"
	}

	parts := make([]string, 0, len(params))
	for _, key := range []string{"host", "port", "user", "password", "dbname", "sslmode"} {
		if params[key] != "" {
			parts = append(parts, key+"="+params[key])
		}
	}

	db, err := sql.Open("postgres", strings.Join(parts, " "))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}
