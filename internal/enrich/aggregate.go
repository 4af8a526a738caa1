package enrich

import (
	"github.com/sells-group/leadflow-cli/internal/lead"
)

// KeyFunc resolves the lookup key for a record, reporting false when the
// record is ineligible.
type KeyFunc func(*lead.Record) (string, bool)

// Partition splits the input collection into eligible work items and
// ineligible record indices. Ineligible records never consume a worker slot
// or a rate-limit token.
type Partition struct {
	Items      []WorkItem
	Ineligible []int
}

// PartitionRecords builds the work queue from the input records.
func PartitionRecords(records []*lead.Record, key KeyFunc) Partition {
	var p Partition
	for i, rec := range records {
		if k, ok := key(rec); ok {
			p.Items = append(p.Items, WorkItem{Index: i, Key: k, Record: rec})
		} else {
			p.Ineligible = append(p.Ineligible, i)
		}
	}
	return p
}

// Annotator writes provider-specific fields onto a record after its outcome
// is terminal. The status tag itself is written by Aggregate.
type Annotator func(rec *lead.Record, out Outcome)

// Aggregate merges terminal outcomes back onto the input collection. Output
// order is the original input order, every input record appears exactly
// once, and each carries exactly one terminal status under statusKey.
// Ineligible records get ineligibleTag. Statistics are derived fresh from
// the final annotations, so aggregating twice yields identical results.
func Aggregate(records []*lead.Record, part Partition, results []Result, statusKey, ineligibleTag string, annotate Annotator) ([]*lead.Record, *Stats) {
	byIndex := make(map[int]Outcome, len(results))
	for _, r := range results {
		byIndex[r.Index] = r.Outcome
	}

	for _, item := range part.Items {
		out, ok := byIndex[item.Index]
		if !ok {
			// A vanished result would silently drop a record; record it
			// as a permanent failure instead.
			out = Outcome{Status: StatusPermanent, Kind: KindUnknown}
		}
		rec := records[item.Index]
		if annotate != nil {
			annotate(rec, out)
		}
		rec.Set(statusKey, out.Tag())
	}

	for _, idx := range part.Ineligible {
		rec := records[idx]
		if annotate != nil {
			annotate(rec, Outcome{Status: StatusIneligible})
		}
		rec.Set(statusKey, ineligibleTag)
	}

	return records, TagStats(records, statusKey)
}

// TagStats derives a fresh histogram from the status tags currently on the
// records. Commands that rewrite tags after aggregation use it to restate.
func TagStats(records []*lead.Record, statusKey string) *Stats {
	stats := NewStats(len(records))
	for _, rec := range records {
		tag, _ := rec.Get(statusKey)
		stats.Add(tag)
	}
	return stats
}
