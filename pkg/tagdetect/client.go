// Package tagdetect fetches lead website HTML and detects Google Tag
// Manager containers, Google Ads accounts, conversion tracking, and
// remarketing tags.
package tagdetect

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

// Result holds the tracking instrumentation found on a page.
type Result struct {
	GTMInstalled       bool
	GTMContainerID     string
	GoogleAdsDetected  bool
	GoogleAdsAccountID string
	ConversionTracking bool
	RemarketingTag     bool
}

// Fields returns the annotation payload. Booleans are spelled TRUE/FALSE to
// match the spreadsheet conventions downstream tooling expects.
func (r *Result) Fields() map[string]string {
	return map[string]string{
		"gtm_installed":         boolCell(r.GTMInstalled),
		"gtm_container_id":      r.GTMContainerID,
		"google_ads_detected":   boolCell(r.GoogleAdsDetected),
		"google_ads_account_id": r.GoogleAdsAccountID,
		"conversion_tracking":   boolCell(r.ConversionTracking),
		"remarketing_tag":       boolCell(r.RemarketingTag),
	}
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Option configures the client.
type Option func(*Client)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithInsecureFallback enables one plain-HTTP retry after a certificate
// failure. Default is off: a bad certificate is terminal.
func WithInsecureFallback(on bool) Option {
	return func(c *Client) { c.insecureFallback = on }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client fetches and analyzes page HTML.
type Client struct {
	userAgent        string
	insecureFallback bool
	http             *http.Client
}

// NewClient creates a tagdetect client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
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

// Analyze fetches the page and runs tag detection. When the HTTPS fetch
// fails on a certificate error and the insecure fallback is enabled, the
// page is refetched once over plain HTTP before giving up.
func (c *Client) Analyze(ctx context.Context, url string) (*Result, error) {
	html, err := c.fetch(ctx, url)
	if err != nil {
		status, kind := enrich.Classify(err)
		if status == enrich.StatusPermanent && kind == enrich.KindSSL &&
			c.insecureFallback && strings.HasPrefix(url, "https://") {
			insecureURL := "http://" + strings.TrimPrefix(url, "https://")
			html, err = c.fetch(ctx, insecureURL)
		}
		if err != nil {
			return nil, err
		}
	}
	return Detect(html), nil
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "tagdetect: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", enrich.NewStatusError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", eris.Wrap(err, "tagdetect: read body")
	}
	return string(body), nil
}

// Detect runs the tag patterns over raw page HTML.
func Detect(html string) *Result {
	r := &Result{}

	for _, p := range gtmPatterns {
		if m := p.FindStringSubmatch(html); m != nil {
			r.GTMInstalled = true
			r.GTMContainerID = strings.ToUpper(m[1])
			break
		}
	}

	if m := adsConfigPattern.FindStringSubmatch(html); m != nil {
		r.GoogleAdsDetected = true
		r.GoogleAdsAccountID = strings.ToUpper(m[1])
	}
	if adsLegacyPattern.MatchString(html) {
		r.GoogleAdsDetected = true
	}
	if m := adsGtagPattern.FindStringSubmatch(html); m != nil {
		r.GoogleAdsDetected = true
		if r.GoogleAdsAccountID == "" {
			r.GoogleAdsAccountID = strings.ToUpper(m[1])
		}
	}

	for _, p := range conversionPatterns {
		if p.MatchString(html) {
			r.ConversionTracking = true
			break
		}
	}
	for _, p := range remarketingPatterns {
		if p.MatchString(html) {
			r.RemarketingTag = true
			break
		}
	}

	return r
}
