// Package drift tracks behavioral drift of the incoming feature
// distribution against a reference baseline.
package drift

import (
	"math"
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
)

// Aggregator feeds feature vectors into a windowed mean-shift monitor
// and exposes a sticky drift flag plus a monotonic counter.
//
// The first `window` observations form the reference baseline (per-
// feature mean and standard deviation). Every later observation is
// folded into a rolling window of the same size; when the average
// normalized distance between the rolling means and the reference means
// exceeds the threshold, a drift event is recorded. Once detected, the
// flag is sticky for the process lifetime: drift is an alarm, not a
// momentary signal. Clearing it requires an explicit operator Reset,
// which is never exposed on the scoring path.
//
// All state is guarded by one mutex; Observe calls are serialized so
// the counter never race-loses increments.
type Aggregator struct {
	mu sync.Mutex

	window    int
	threshold float64

	reference [][]float64 // warmup samples until window is full
	refMean   []float64
	refStd    []float64
	baselined bool

	recent [][]float64 // rolling window, oldest first

	detected bool
	count    int
}

// Defaults for the monitor.
const (
	DefaultWindow    = 30
	DefaultThreshold = 3.0
)

// NewAggregator creates a drift aggregator.
func NewAggregator(window int, threshold float64) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Aggregator{
		window:    window,
		threshold: threshold,
	}
}

// Observe feeds one feature vector into the monitor. The mutation is
// atomic: the sample, the rolling window, and the counter are updated
// under one lock acquisition.
func (a *Aggregator) Observe(fv *domain.FeatureVector) {
	if fv == nil {
		return
	}
	sample := fv.Values()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.baselined {
		a.reference = append(a.reference, sample)
		if len(a.reference) >= a.window {
			a.computeBaseline()
		}
		return
	}

	a.recent = append(a.recent, sample)
	if len(a.recent) > a.window {
		a.recent = a.recent[1:]
	}

	if a.distance() > a.threshold {
		a.count++
		a.detected = true
		metrics.DriftEventsTotal.Inc()
	}
}

// Status returns the sticky drift flag and the monotonic event count.
func (a *Aggregator) Status() (detected bool, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detected, a.count
}

// Reset clears the flag, the counter, and the baseline so the monitor
// rebaselines on the next observations. Operator-only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reference = nil
	a.refMean = nil
	a.refStd = nil
	a.baselined = false
	a.recent = nil
	a.detected = false
	a.count = 0
}

// computeBaseline derives per-feature mean and std from the warmup
// samples. Caller holds the lock.
func (a *Aggregator) computeBaseline() {
	n := len(a.reference)
	dims := domain.NumFeatures

	a.refMean = make([]float64, dims)
	a.refStd = make([]float64, dims)

	for _, s := range a.reference {
		for i := 0; i < dims; i++ {
			a.refMean[i] += s[i]
		}
	}
	for i := 0; i < dims; i++ {
		a.refMean[i] /= float64(n)
	}
	for _, s := range a.reference {
		for i := 0; i < dims; i++ {
			d := s[i] - a.refMean[i]
			a.refStd[i] += d * d
		}
	}
	for i := 0; i < dims; i++ {
		a.refStd[i] = math.Sqrt(a.refStd[i] / float64(n))
	}

	a.reference = nil
	a.baselined = true
}

// distance is the average per-feature normalized mean shift between the
// rolling window and the reference. Caller holds the lock.
func (a *Aggregator) distance() float64 {
	if len(a.recent) == 0 {
		return 0
	}

	const eps = 1e-9
	dims := domain.NumFeatures

	var total float64
	for i := 0; i < dims; i++ {
		var mean float64
		for _, s := range a.recent {
			mean += s[i]
		}
		mean /= float64(len(a.recent))
		total += math.Abs(mean-a.refMean[i]) / (a.refStd[i] + eps)
	}
	return total / float64(dims)
}
