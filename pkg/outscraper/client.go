// Package outscraper pulls company contact details (emails, phones, social
// profiles) from the Outscraper emails-and-contacts API.
package outscraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const defaultBaseURL = "https://api.app.outscraper.com"

// CostPerDomain is the credit cost of scraping one domain.
const CostPerDomain = 1

// Result holds the contact details scraped for one domain.
type Result struct {
	Emails    []string
	Phones    []string
	Facebook  string
	Instagram string
	LinkedIn  string
}

// Fields returns the annotation payload. List values are joined with
// commas to stay spreadsheet friendly.
func (r *Result) Fields() map[string]string {
	return map[string]string{
		"contact_emails": strings.Join(r.Emails, ", "),
		"contact_phones": strings.Join(r.Phones, ", "),
		"facebook_url":   r.Facebook,
		"instagram_url":  r.Instagram,
		"linkedin_url":   r.LinkedIn,
	}
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client calls Outscraper with API key auth.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Outscraper client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
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

type contactsResponse struct {
	Data []struct {
		Emails []struct {
			Value string `json:"value"`
		} `json:"emails"`
		Phones []struct {
			Value string `json:"value"`
		} `json:"phones"`
		Socials map[string]string `json:"socials"`
	} `json:"data"`
}

// Contacts scrapes emails and contacts for a domain. Returns
// enrich.ErrNotFound when the scrape succeeds but finds nothing.
func (c *Client) Contacts(ctx context.Context, domain string) (*Result, error) {
	q := url.Values{}
	q.Set("query", domain)
	q.Set("async", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/emails-and-contacts?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "outscraper: create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "outscraper: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, enrich.NewStatusError(resp.StatusCode, string(raw))
	}

	var parsed contactsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "outscraper: parse response")
	}
	if len(parsed.Data) == 0 {
		return nil, enrich.ErrNotFound
	}

	result := &Result{}
	for _, entry := range parsed.Data {
		for _, e := range entry.Emails {
			if e.Value != "" {
				result.Emails = append(result.Emails, e.Value)
			}
		}
		for _, p := range entry.Phones {
			if p.Value != "" {
				result.Phones = append(result.Phones, p.Value)
			}
		}
		if result.Facebook == "" {
			result.Facebook = entry.Socials["facebook"]
		}
		if result.Instagram == "" {
			result.Instagram = entry.Socials["instagram"]
		}
		if result.LinkedIn == "" {
			result.LinkedIn = entry.Socials["linkedin"]
		}
	}
	if len(result.Emails) == 0 && len(result.Phones) == 0 &&
		result.Facebook == "" && result.Instagram == "" && result.LinkedIn == "" {
		return nil, enrich.ErrNotFound
	}
	return result, nil
}
