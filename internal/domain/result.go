package domain

import (
	"time"
)

// SubScore is one oracle's contribution to the ensemble.
type SubScore struct {
	Value    float64 `json:"value"`
	Degraded bool    `json:"degraded"`
}

// ExplanationItem describes one feature's influence on the verdict.
type ExplanationItem struct {
	Feature     string  `json:"feature"`
	Value       float64 `json:"value"`
	Attribution float64 `json:"attribution"`
}

// Result is the per-request outcome of the scoring pipeline.
// Composite is a relative risk intensity, not a probability: the
// weighted sub-score sum is amplified by up to 1.5x based on the
// account's historical risk and is deliberately not clamped to [0,1].
// Downstream thresholds depend on this; do not "fix" it.
type Result struct {
	ID        string    `json:"id"`
	TxID      string    `json:"txId,omitempty"`
	AccountID string    `json:"accountId"`
	Timestamp time.Time `json:"timestamp"`

	Anomaly    SubScore `json:"anomaly"`
	Supervised SubScore `json:"supervised"`
	Graph      SubScore `json:"graph"`

	Composite    float64 `json:"compositeScore"`
	CustomerRisk float64 `json:"customerRiskScore"`

	Explanation   []ExplanationItem `json:"explanation"`
	DriftDetected bool              `json:"driftDetected"`

	// Status is the policy verdict: Approved or Flagged.
	Status string `json:"status"`
}
