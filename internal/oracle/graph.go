package oracle

import (
	"context"
	"math"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Graph fills the relational-inference slot of the ensemble. It keeps a
// lightweight co-occurrence graph over the encoded device and merchant
// buckets and scores a transaction by how concentrated activity is on
// the entities it touches: a device bucket suddenly carrying a large
// share of traffic is the shared-device pattern a trained graph model
// would surface.
type Graph struct {
	mu sync.Mutex

	deviceSeen   map[int]int64
	merchantSeen map[int]int64
	total        int64
}

// NewGraph creates the builtin graph oracle.
func NewGraph() *Graph {
	return &Graph{
		deviceSeen:   make(map[int]int64),
		merchantSeen: make(map[int]int64),
	}
}

func (*Graph) Name() string { return "graph" }

// Predict folds the transaction's entities into the graph and returns
// the relational risk in [0,1]. Observation and scoring are one atomic
// step under the lock, mirroring how the reference model extended its
// graph per transaction before inference.
func (g *Graph) Predict(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	device := int(fv.DeviceID)
	merchant := int(fv.MerchantID)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.deviceSeen[device]++
	g.merchantSeen[merchant]++
	g.total++

	if g.total < 5 {
		// Too little structure to infer anything relational.
		return 0.5, nil
	}

	deviceShare := float64(g.deviceSeen[device]) / float64(g.total)
	merchantShare := float64(g.merchantSeen[merchant]) / float64(g.total)

	// Uniform traffic over 100 buckets gives shares near 0.01;
	// concentration well above that reads as entity sharing.
	concentration := 0.6*deviceShare + 0.4*merchantShare
	score := clamp01(concentration * 5)

	// Blend with the behavioral deviation so the slot still reacts to
	// outliers on a cold graph.
	score = 0.7*score + 0.3*clamp01(math.Abs(fv.AmountDeviation)/10)

	return clamp01(score), nil
}
