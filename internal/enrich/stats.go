package enrich

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/leadflow-cli/internal/lead"
)

// Stats is a histogram of terminal status tags over a run. Counts always
// sum to the input record count.
type Stats struct {
	Total  int
	Counts map[string]int
}

// NewStats creates an empty histogram for total records.
func NewStats(total int) *Stats {
	return &Stats{Total: total, Counts: make(map[string]int)}
}

// Add increments the count for a status tag.
func (s *Stats) Add(tag string) {
	if tag == "" {
		tag = "unknown"
	}
	s.Counts[tag]++
}

// Count returns the count for a tag.
func (s *Stats) Count(tag string) int {
	return s.Counts[tag]
}

// Percent returns the tag's share of the total, 0 when the run was empty.
func (s *Stats) Percent(tag string) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Counts[tag]) / float64(s.Total) * 100
}

// Tags returns the status tags sorted by descending count, ties broken
// alphabetically, for stable summaries.
func (s *Stats) Tags() []string {
	tags := make([]string, 0, len(s.Counts))
	for t := range s.Counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if s.Counts[tags[i]] != s.Counts[tags[j]] {
			return s.Counts[tags[i]] > s.Counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}

// Summary formats the histogram as a run-end report.
func (s *Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total: %d\n", s.Total)
	for _, tag := range s.Tags() {
		fmt.Fprintf(&b, "  %s: %d (%.1f%%)\n", tag, s.Counts[tag], s.Percent(tag))
	}
	return b.String()
}

// CrossTab derives a secondary business classification from annotation
// fields, e.g. "has GTM but no Ads tracking".
type CrossTab struct {
	Name  string
	Match func(rec *lead.Record) bool
}

// CrossTabulate counts how many records fall into each category. Categories
// are evaluated independently; a record may match several or none.
func CrossTabulate(records []*lead.Record, tabs []CrossTab) map[string]int {
	out := make(map[string]int, len(tabs))
	for _, tab := range tabs {
		out[tab.Name] = 0
		for _, rec := range records {
			if tab.Match(rec) {
				out[tab.Name]++
			}
		}
	}
	return out
}
