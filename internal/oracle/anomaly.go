// Package oracle ships reference implementations of the scoring oracle
// contract: builtin heuristic models for each ensemble slot plus a
// client for remotely hosted models. Production deployments typically
// swap the builtins for remote oracles backed by trained artifacts.
package oracle

import (
	"context"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Anomaly scores how far a transaction sits from the account's
// behavioral baseline. It fills the isolation-forest slot of the
// ensemble: deviation in amount and duration, unusual velocity, and
// repeated login attempts all push the score toward 1.
type Anomaly struct{}

// NewAnomaly creates the builtin anomaly oracle.
func NewAnomaly() *Anomaly { return &Anomaly{} }

func (*Anomaly) Name() string { return "anomaly" }

// Predict maps the deviation signals through a logistic squash so the
// output always lands in [0,1].
func (*Anomaly) Predict(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw := 0.9*math.Abs(fv.AmountDeviation) +
		0.5*math.Abs(fv.DurationDeviation) +
		0.002*fv.TransactionSpeed +
		0.3*math.Max(fv.LoginAttempts-1, 0)

	return squash(raw - 2.0), nil
}

// squash is the standard logistic function.
func squash(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
