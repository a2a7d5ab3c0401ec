// Package explain ranks per-feature attributions for a verdict.
// Explanation is best-effort: an absent attribution source yields an
// empty list and never blocks or fails a scoring request.
package explain

import (
	"math"
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DefaultLimit caps the ranked explanation list.
const DefaultLimit = 5

// Rank orders attributions by absolute magnitude, descending, with ties
// broken by input order (first-seen feature wins), and truncates to
// limit. A nil or empty input returns an empty list.
func Rank(items []domain.ExplanationItem, limit int) []domain.ExplanationItem {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]domain.ExplanationItem, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Attribution) > math.Abs(ranked[j].Attribution)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
