// Package pagespeed queries the Google PageSpeed Insights v5 API for
// performance and SEO scores.
package pagespeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const (
	defaultBaseURL  = "https://www.googleapis.com/pagespeedonline/v5"
	defaultStrategy = "mobile"
)

// Result holds the Lighthouse category scores, scaled 0-100. A nil score
// means the category was absent from the response.
type Result struct {
	PerformanceScore *int
	SEOScore         *int
}

// Fields returns the annotation payload. Absent scores become empty cells.
func (r *Result) Fields() map[string]string {
	return map[string]string{
		"performance_score": scoreCell(r.PerformanceScore),
		"seo_score":         scoreCell(r.SEOScore),
	}
}

func scoreCell(s *int) string {
	if s == nil {
		return ""
	}
	return strconv.Itoa(*s)
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithStrategy overrides the analysis strategy (mobile or desktop).
func WithStrategy(s string) Option {
	return func(c *Client) { c.strategy = s }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client queries PageSpeed Insights. The API key is optional but unkeyed
// access gets a far smaller quota.
type Client struct {
	apiKey   string
	baseURL  string
	strategy string
	http     *http.Client
}

// NewClient creates a PageSpeed client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		strategy: defaultStrategy,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type runPagespeedResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Analyze runs PageSpeed for one URL, requesting the performance and seo
// categories.
func (c *Client) Analyze(ctx context.Context, pageURL string) (*Result, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", c.strategy)
	q.Add("category", "performance")
	q.Add("category", "seo")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/runPagespeed?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, enrich.NewStatusError(resp.StatusCode, string(body))
	}

	var parsed runPagespeedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "pagespeed: parse response")
	}

	result := &Result{}
	if cat, ok := parsed.LighthouseResult.Categories["performance"]; ok && cat.Score != nil {
		s := int(*cat.Score * 100)
		result.PerformanceScore = &s
	}
	if cat, ok := parsed.LighthouseResult.Categories["seo"]; ok && cat.Score != nil {
		s := int(*cat.Score * 100)
		result.SEOScore = &s
	}
	return result, nil
}
