// Package anymailfinder looks up work email addresses by person and domain
// via the AnyMailFinder v5 search API.
package anymailfinder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const defaultBaseURL = "https://api.anymailfinder.com/v5.0"

// CostPerMatch is the credit cost of one successful email match. Searches
// that find nothing are free.
const CostPerMatch = 1

// Result holds a found email and its verification state.
type Result struct {
	Email      string
	Validation string
	Verified   bool
}

// Fields returns the annotation payload.
func (r *Result) Fields() map[string]string {
	verified := "FALSE"
	if r.Verified {
		verified = "TRUE"
	}
	return map[string]string{
		"email":            r.Email,
		"email_validation": r.Validation,
		"email_verified":   verified,
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

// Client calls AnyMailFinder with bearer auth.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an AnyMailFinder client.
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

type searchResponse struct {
	Success bool `json:"success"`
	Results struct {
		Email      string `json:"email"`
		Validation string `json:"validation"`
	} `json:"results"`
}

// FindPerson searches for a person's email at a company domain. Returns
// enrich.ErrNotFound when the search succeeds but no email is known.
func (c *Client) FindPerson(ctx context.Context, firstName, lastName, domain string) (*Result, error) {
	payload := map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
		"domain":     domain,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "anymailfinder: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/search/person.json", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "anymailfinder: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "anymailfinder: read body")
	}
	// A 404 from the search endpoint means no email, not a bad route.
	if resp.StatusCode == http.StatusNotFound {
		return nil, enrich.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, enrich.NewStatusError(resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "anymailfinder: parse response")
	}
	if !parsed.Success || parsed.Results.Email == "" {
		return nil, enrich.ErrNotFound
	}
	return &Result{
		Email:      parsed.Results.Email,
		Validation: parsed.Results.Validation,
		Verified:   parsed.Results.Validation == "valid",
	}, nil
}
