// Package webcheck probes lead websites for reachability: HTTP status,
// certificate problems, and Cloudflare/CloudFront blocks.
package webcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

// Result is a successful reachability probe.
type Result struct {
	StatusCode int
	Message    string
}

// Fields returns the annotation payload for a valid site.
func (r *Result) Fields() map[string]string {
	return map[string]string{
		"website_status_message": r.Message,
	}
}

// Option configures the client.
type Option func(*Client)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client performs reachability probes.
type Client struct {
	userAgent string
	http      *http.Client
}

// NewClient creates a webcheck client. Redirects are followed; the per-call
// deadline comes from the caller's context.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
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

// Check probes one URL. HEAD is tried first (cheaper); servers that reject
// HEAD with 405 get a GET. Edge blocks and non-2xx statuses are returned as
// typed errors so the retry policy can classify them.
func (c *Client) Check(ctx context.Context, url string) (*Result, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%d OK", resp.StatusCode),
		}, nil
	}

	// Edge blocks report 403/429 through Cloudflare or CloudFront; these
	// sometimes clear on retry.
	if service := edgeService(resp); service != "" &&
		(resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) {
		return nil, &enrich.BlockedError{Service: service, Code: resp.StatusCode}
	}

	return nil, enrich.NewStatusError(resp.StatusCode, http.StatusText(resp.StatusCode))
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "webcheck: create %s request", method)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.http.Do(req)
}

// edgeService sniffs the response for Cloudflare or CloudFront fingerprints:
// the Server header, the cf-ray header, or the body text.
func edgeService(resp *http.Response) string {
	server := strings.ToLower(resp.Header.Get("Server"))
	if strings.Contains(server, "cloudflare") || resp.Header.Get("Cf-Ray") != "" {
		return "Cloudflare"
	}
	if strings.Contains(server, "cloudfront") {
		return "CloudFront"
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	text := strings.ToLower(string(body))
	if strings.Contains(text, "cloudflare") {
		return "Cloudflare"
	}
	if strings.Contains(text, "cloudfront") {
		return "CloudFront"
	}
	return ""
}
