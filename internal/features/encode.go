package features

import (
	"hash/fnv"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// hashBuckets is the range high-cardinality identifiers are reduced to.
const hashBuckets = 100

// hashCode reduces a string to a bucket in [0,100) with FNV-1a.
// FNV is seed-stable: identical inputs yield identical encodings across
// process restarts, which the feature schema requires for reproducible
// scoring. Do not replace with a runtime-seeded hash.
func hashCode(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32() % hashBuckets)
}

// channelCodes is the total categorical lookup for Channel.
// Unknown values encode as 0 and never fail the request.
var channelCodes = map[string]float64{
	"ATM":    0,
	"Online": 1,
	"Branch": 2,
}

// occupationCodes is the total categorical lookup for CustomerOccupation.
var occupationCodes = map[string]float64{
	"Student":  0,
	"Doctor":   1,
	"Engineer": 2,
	"Retired":  3,
}

func encodeChannel(channel string) float64 {
	return channelCodes[channel]
}

func encodeOccupation(occupation string) float64 {
	return occupationCodes[occupation]
}

// encodeType maps Debit to 0 and anything else to 1, matching the
// reference binary encoding.
func encodeType(txType string) float64 {
	if txType == domain.TypeDebit {
		return 0
	}
	return 1
}
