package aggregate

import (
	"sort"

	"github.com/sells-group/sld-insights/internal/model"
)

// RankFunc maps a categorical label to its presentation rank. Lower sorts first.
type RankFunc func(label string) int

// SustainabilityRank ranks High, Medium, Low, then everything else.
func SustainabilityRank(label string) int {
	switch label {
	case model.LabelHigh:
		return 1
	case model.LabelMedium:
		return 2
	case model.LabelLow:
		return 3
	default:
		return 4
	}
}

// SortForPresentation returns a copy of rows ordered by rank of the
// sustainability label, then RegionID. A nil rank uses SustainabilityRank.
func SortForPresentation(rows []NormalizedRecord, rank RankFunc) []NormalizedRecord {
	if rank == nil {
		rank = SustainabilityRank
	}
	out := make([]NormalizedRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].SustainabilityLabel), rank(out[j].SustainabilityLabel)
		if ri != rj {
			return ri < rj
		}
		return out[i].RegionID < out[j].RegionID
	})
	return out
}
