package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    amount REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    location TEXT,
    device_id TEXT,
    merchant_id TEXT,
    channel TEXT,
    occupation TEXT,
    risk_score REAL NOT NULL DEFAULT 0,
    status TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    tx_id TEXT,
    account_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    composite_score REAL NOT NULL,
    customer_risk REAL NOT NULL,
    status TEXT NOT NULL,
    drift_detected INTEGER NOT NULL DEFAULT 0,
    sub_scores TEXT NOT NULL,
    explanation TEXT
);

CREATE INDEX IF NOT EXISTS idx_evaluations_account ON evaluations(account_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_tx ON evaluations(tx_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaEvaluations,
	}
}
