package domain

import (
	"context"
)

// Oracle is the uniform capability contract for an external, pre-trained
// scoring model. Predict returns a score in [0,1]; it may fail or time
// out, in which case the ensemble substitutes the neutral default.
type Oracle interface {
	// Name identifies the oracle in logs and metrics.
	Name() string

	// Predict scores a feature vector. Implementations must honor
	// ctx cancellation and deadlines.
	Predict(ctx context.Context, fv *FeatureVector) (float64, error)
}

// ProfileStore owns the mutable customer risk profiles. The scoring
// core reads a fresh snapshot per request and never caches it.
type ProfileStore interface {
	// GetProfile returns a snapshot for the account, or
	// ErrProfileNotFound if the account has never been seen.
	GetProfile(ctx context.Context, accountID string) (*CustomerRiskProfile, error)

	// UpdateProfile folds a transaction into the account's aggregates.
	UpdateProfile(ctx context.Context, accountID string, summary TransactionSummary) error

	// Ping checks store health.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Explainer is the optional per-feature attribution provider.
// Explanation is best-effort: a nil Explainer, or one that errors,
// yields an empty explanation list, never a failed request.
type Explainer interface {
	// Attribute returns attribution items in schema feature order.
	Attribute(ctx context.Context, fv *FeatureVector) ([]ExplanationItem, error)
}
