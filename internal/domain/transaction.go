// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"time"
)

// TimeLayout is the wire format for transaction timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Transaction types.
const (
	TypeDebit  = "Debit"
	TypeCredit = "Credit"
)

// Transaction statuses assigned to synthetic/history entries.
const (
	StatusApproved      = "Approved"
	StatusFlagged       = "Flagged"
	StatusPendingReview = "Pending Review"
)

// Transaction is an immutable record of a single transaction.
// Instances are created by ingestion and never mutated afterwards;
// the ring store evicts them once capacity is exceeded.
type Transaction struct {
	ID         string    `json:"TransactionID"`
	AccountID  string    `json:"AccountID"`
	Amount     float64   `json:"TransactionAmount"`
	Timestamp  time.Time `json:"-"`
	Type       string    `json:"TransactionType"`
	Location   string    `json:"Location"`
	DeviceID   string    `json:"DeviceID,omitempty"`
	MerchantID string    `json:"MerchantID,omitempty"`
	Channel    string    `json:"Channel,omitempty"`
	Occupation string    `json:"CustomerOccupation,omitempty"`

	// Set only for synthetic/history entries.
	RiskScore float64 `json:"RiskScore,omitempty"`
	Status    string  `json:"Status,omitempty"`
}

// WireDate returns the timestamp in the wire format used by the API.
func (t *Transaction) WireDate() string {
	return t.Timestamp.Format(TimeLayout)
}

// AnalyzeRequest is the API request payload for transaction analysis.
// Numeric fields are pointers so that a missing field is distinguishable
// from a zero value.
type AnalyzeRequest struct {
	TransactionID           string   `json:"TransactionID"`
	AccountID               string   `json:"AccountID"`
	TransactionAmount       *float64 `json:"TransactionAmount"`
	TransactionDuration     *float64 `json:"TransactionDuration"`
	LoginAttempts           *float64 `json:"LoginAttempts"`
	AccountBalance          *float64 `json:"AccountBalance"`
	TransactionDate         string   `json:"TransactionDate"`
	PreviousTransactionDate string   `json:"PreviousTransactionDate"`
	TransactionType         string   `json:"TransactionType"`
	Location                string   `json:"Location"`
	DeviceID                string   `json:"DeviceID"`
	MerchantID              string   `json:"MerchantID"`
	Channel                 string   `json:"Channel"`
	CustomerOccupation      string   `json:"CustomerOccupation"`
}

// TransactionSummary carries the per-transaction data the profile store
// aggregates for an account.
type TransactionSummary struct {
	Amount    float64
	Duration  float64
	Type      string
	Location  string
	Timestamp time.Time
}

// CustomerRiskProfile is a snapshot of an account's running aggregates.
// The profile store owns the mutable state; the scoring path only ever
// reads snapshots.
type CustomerRiskProfile struct {
	AccountID       string  `json:"account_id"`
	AvgAmount       float64 `json:"avg_amount"`
	StdAmount       float64 `json:"std_amount"`
	MaxAmount       float64 `json:"max_amount"`
	AvgDuration     float64 `json:"avg_duration"`
	UniqueLocations int     `json:"unique_locations"`
	RiskScore       float64 `json:"risk_score"`
	TxCount         int64   `json:"transaction_count"`
}

// Fallback profile statistics applied when an account has never been
// seen before (cold start). None of these may be zero: AmountDeviation
// and DurationDeviation divide by StdAmount and AvgDuration.
const (
	DefaultAvgAmount       = 150.0
	DefaultStdAmount       = 75.0
	DefaultMaxAmount       = 1000.0
	DefaultAvgDuration     = 120.0
	DefaultUniqueLocations = 3
	DefaultRiskScore       = 0.5
)

// DefaultProfile returns the cold-start profile for an unknown account.
func DefaultProfile(accountID string) *CustomerRiskProfile {
	return &CustomerRiskProfile{
		AccountID:       accountID,
		AvgAmount:       DefaultAvgAmount,
		StdAmount:       DefaultStdAmount,
		MaxAmount:       DefaultMaxAmount,
		AvgDuration:     DefaultAvgDuration,
		UniqueLocations: DefaultUniqueLocations,
		RiskScore:       DefaultRiskScore,
	}
}
