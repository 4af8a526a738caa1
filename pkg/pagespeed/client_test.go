package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const scoresBody = `{
	"lighthouseResult": {
		"categories": {
			"performance": {"score": 0.87},
			"seo": {"score": 0.92}
		}
	}
}`

func TestAnalyze_ParsesScores(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runPagespeed", r.URL.Path)
		query = r.URL.Query()
		_, _ = w.Write([]byte(scoresBody))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Analyze(context.Background(), "https://acme.com")
	require.NoError(t, err)

	require.NotNil(t, res.PerformanceScore)
	assert.Equal(t, 87, *res.PerformanceScore)
	require.NotNil(t, res.SEOScore)
	assert.Equal(t, 92, *res.SEOScore)

	assert.Equal(t, "https://acme.com", query["url"][0])
	assert.Equal(t, "mobile", query["strategy"][0])
	assert.ElementsMatch(t, []string{"performance", "seo"}, query["category"])
	assert.Equal(t, "test-key", query["key"][0])
}

func TestAnalyze_OmitsEmptyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		_, _ = w.Write([]byte(scoresBody))
	}))
	defer srv.Close()

	_, err := NewClient("", WithBaseURL(srv.URL)).Analyze(context.Background(), "https://acme.com")
	require.NoError(t, err)
}

func TestAnalyze_MissingCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lighthouseResult":{"categories":{"performance":{"score":0.5}}}}`))
	}))
	defer srv.Close()

	res, err := NewClient("", WithBaseURL(srv.URL)).Analyze(context.Background(), "https://acme.com")
	require.NoError(t, err)
	require.NotNil(t, res.PerformanceScore)
	assert.Equal(t, 50, *res.PerformanceScore)
	assert.Nil(t, res.SEOScore)

	f := res.Fields()
	assert.Equal(t, "50", f["performance_score"])
	assert.Equal(t, "", f["seo_score"])
}

func TestAnalyze_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Quota exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("", WithBaseURL(srv.URL)).Analyze(context.Background(), "https://acme.com")
	require.Error(t, err)

	status, kind := enrich.Classify(err)
	assert.Equal(t, enrich.StatusTransient, status)
	assert.Equal(t, enrich.KindRateLimited, kind)
}

func TestAnalyze_DesktopStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desktop", r.URL.Query().Get("strategy"))
		_, _ = w.Write([]byte(scoresBody))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithStrategy("desktop"))
	_, err := c.Analyze(context.Background(), "https://acme.com")
	require.NoError(t, err)
}
