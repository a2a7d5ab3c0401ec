package explain

import (
	"context"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// LinearAttributor is a surrogate attribution provider: a fixed linear
// weighting over the feature schema standing in for a model-side
// explainer. Attribution is signed (weight times observed value), so
// features pulling the score down carry negative attributions.
type LinearAttributor struct {
	weights [domain.NumFeatures]float64
}

// NewLinearAttributor creates the surrogate attributor with weights
// emphasizing the behavioral-deviation features.
func NewLinearAttributor() *LinearAttributor {
	a := &LinearAttributor{}
	for i, name := range domain.FeatureNames() {
		switch name {
		case "AmountDeviation":
			a.weights[i] = 0.30
		case "DurationDeviation":
			a.weights[i] = 0.15
		case "TransactionSpeed":
			a.weights[i] = 0.002
		case "TransactionAmount":
			a.weights[i] = 0.0001
		case "LoginAttempts":
			a.weights[i] = 0.05
		case "DaysSinceLastTransaction":
			a.weights[i] = -0.01
		case "UniqueLocations":
			a.weights[i] = 0.02
		default:
			a.weights[i] = 0.001
		}
	}
	return a
}

// Attribute returns one item per schema feature, in schema order.
func (a *LinearAttributor) Attribute(ctx context.Context, fv *domain.FeatureVector) ([]domain.ExplanationItem, error) {
	names := domain.FeatureNames()
	values := fv.Values()

	items := make([]domain.ExplanationItem, domain.NumFeatures)
	for i := range items {
		items[i] = domain.ExplanationItem{
			Feature:     names[i],
			Value:       values[i],
			Attribution: a.weights[i] * values[i],
		}
	}
	return items, nil
}
