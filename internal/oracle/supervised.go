package oracle

import (
	"context"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Supervised is a logistic model over the feature schema, filling the
// gradient-boosted-classifier slot of the ensemble. The weights mimic a
// trained model's emphasis: behavioral deviations dominate, identifier
// encodings barely register.
type Supervised struct {
	weights  [domain.NumFeatures]float64
	absolute [domain.NumFeatures]bool
	bias     float64
}

// NewSupervised creates the builtin supervised oracle.
func NewSupervised() *Supervised {
	s := &Supervised{bias: -2.5}
	for i, name := range domain.FeatureNames() {
		switch name {
		case "AmountDeviation":
			s.weights[i] = 0.8
			s.absolute[i] = true
		case "DurationDeviation":
			s.weights[i] = 0.4
			s.absolute[i] = true
		case "TransactionSpeed":
			s.weights[i] = 0.003
		case "LoginAttempts":
			s.weights[i] = 0.35
		case "DaysSinceLastTransaction":
			s.weights[i] = 0.02
		case "UniqueLocations":
			s.weights[i] = 0.05
		case "TransactionType":
			s.weights[i] = 0.1
		case "TransactionAmount":
			s.weights[i] = 0.0002
		}
	}
	return s
}

func (*Supervised) Name() string { return "supervised" }

// Predict returns the fraud probability in [0,1].
func (s *Supervised) Predict(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	values := fv.Values()
	z := s.bias
	for i, v := range values {
		if s.weights[i] == 0 {
			continue
		}
		// Deviations contribute by magnitude; sign alone is not risk.
		if s.absolute[i] {
			v = math.Abs(v)
		}
		z += s.weights[i] * v
	}
	return squash(z), nil
}
