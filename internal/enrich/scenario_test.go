package enrich

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow-cli/internal/lead"
	"github.com/sells-group/leadflow-cli/internal/ratelimit"
)

// TestEndToEndBatch runs the full partition -> pool -> aggregate flow over a
// mixed batch: records without websites, a flaky provider that rate-limits
// twice before succeeding, and one domain the provider permanently rejects.
func TestEndToEndBatch(t *testing.T) {
	websites := []string{
		"one.com", "", "two.com", "three.com", "",
		"flaky.com", "four.com", "gone.com", "", "five.com",
	}
	records := make([]*lead.Record, len(websites))
	for i, site := range websites {
		rec := lead.NewRecord()
		rec.Set("companyName", "co")
		rec.Set("website", site)
		records[i] = rec
	}

	part := PartitionRecords(records, func(rec *lead.Record) (string, bool) {
		v, _ := rec.Get("website")
		return v, v != ""
	})
	require.Len(t, part.Items, 7)
	require.Len(t, part.Ineligible, 3)

	var mu sync.Mutex
	flakyCalls := 0
	goneCalls := 0

	call := func(_ context.Context, key string) (map[string]string, error) {
		mu.Lock()
		defer mu.Unlock()
		switch key {
		case "flaky.com":
			flakyCalls++
			if flakyCalls <= 2 {
				return nil, NewStatusError(http.StatusTooManyRequests, "slow down")
			}
		case "gone.com":
			goneCalls++
			return nil, NewStatusError(http.StatusNotFound, "")
		}
		return map[string]string{"checked": "TRUE"}, nil
	}

	exec := NewExecutor(Policy{MaxAttempts: 3})
	exec.sleep = noSleep

	window := ratelimit.NewWindow(5, 50*time.Millisecond, 0)
	pool := NewPool(2, window, exec)

	results := pool.Run(context.Background(), part.Items, call)
	require.Len(t, results, 7)

	out, stats := Aggregate(records, part, results, "website_status", "no_website", func(rec *lead.Record, o Outcome) {
		for k, v := range o.Payload {
			rec.Set(k, v)
		}
	})

	// Output order is input order.
	require.Len(t, out, 10)
	for i, rec := range out {
		site, _ := rec.Get("website")
		assert.Equal(t, websites[i], site, "record %d out of order", i)
	}

	assert.Equal(t, 2+1, flakyCalls, "two 429s then one success")
	assert.Equal(t, 1, goneCalls, "a 404 must not be retried")

	tagOf := func(i int) string {
		tag, _ := out[i].Get("website_status")
		return tag
	}
	assert.Equal(t, "success", tagOf(5), "flaky domain recovers within budget")
	assert.Equal(t, "invalid", tagOf(7), "404 is permanent")
	assert.Equal(t, "no_website", tagOf(1))

	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 6, stats.Count("success"))
	assert.Equal(t, 1, stats.Count("invalid"))
	assert.Equal(t, 3, stats.Count("no_website"))
}
