package loader

import (
	"sort"
	"strings"

	"github.com/sells-group/sld-insights/internal/model"
)

// Selection is the set of metros the dashboard is filtered to. An empty
// selection means every record.
type Selection struct {
	Metros []string `json:"metros"`
}

// NewSelection builds a selection from user input, dropping blanks and duplicates.
func NewSelection(metros ...string) Selection {
	seen := make(map[string]bool, len(metros))
	var out []string
	for _, m := range metros {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return Selection{Metros: out}
}

// IsAll reports whether the selection keeps every record.
func (s Selection) IsAll() bool {
	return len(s.Metros) == 0
}

// Contains reports whether a region id is selected.
func (s Selection) Contains(regionID string) bool {
	if s.IsAll() {
		return true
	}
	for _, m := range s.Metros {
		if m == regionID {
			return true
		}
	}
	return false
}

// Apply returns the records whose RegionID is selected, preserving order.
func (s Selection) Apply(records []model.RegionRecord) []model.RegionRecord {
	if s.IsAll() {
		return records
	}
	out := make([]model.RegionRecord, 0, len(records))
	for _, r := range records {
		if s.Contains(r.RegionID) {
			out = append(out, r)
		}
	}
	return out
}

// Metros lists the distinct non-empty region ids of records in sorted order.
func Metros(records []model.RegionRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.RegionID == "" || seen[r.RegionID] {
			continue
		}
		seen[r.RegionID] = true
		out = append(out, r.RegionID)
	}
	sort.Strings(out)
	return out
}
