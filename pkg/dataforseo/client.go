// Package dataforseo queries the DataForSEO Google Ads advertisers endpoint
// using the task-post / task-get polling flow.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const (
	defaultBaseURL = "https://api.dataforseo.com/v3"

	// CostPerTask is the list price of one ads_advertisers task in USD.
	CostPerTask = 0.0006

	statusOK = 20000
)

// Result summarizes a Google Ads advertiser lookup for one domain.
type Result struct {
	Advertising    bool
	ApproxAdsCount int
	AdvertiserID   string
	Verified       bool
}

// Fields returns the annotation payload.
func (r *Result) Fields() map[string]string {
	f := map[string]string{
		"running_google_ads": boolCell(r.Advertising),
	}
	if r.Advertising {
		f["approx_ads_count"] = strconv.Itoa(r.ApproxAdsCount)
		f["advertiser_id"] = r.AdvertiserID
		f["advertiser_verified"] = boolCell(r.Verified)
	}
	return f
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLocation sets the location name sent with the task.
func WithLocation(loc string) Option {
	return func(c *Client) { c.location = loc }
}

// WithPollBudget caps the total time spent polling one task.
func WithPollBudget(d time.Duration) Option {
	return func(c *Client) { c.pollBudget = d }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to DataForSEO with basic auth.
type Client struct {
	login      string
	password   string
	baseURL    string
	location   string
	pollBudget time.Duration
	http       *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a DataForSEO client.
func NewClient(login, password string, opts ...Option) *Client {
	c := &Client{
		login:      login,
		password:   password,
		baseURL:    defaultBaseURL,
		location:   "United States",
		pollBudget: 60 * time.Second,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sleep: sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		ID            string `json:"id"`
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Items []struct {
				Type           string `json:"type"`
				AdvertiserID   string `json:"advertiser_id"`
				ApproxAdsCount int    `json:"approx_ads_count"`
				Verified       bool   `json:"verified"`
			} `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// Lookup posts an ads_advertisers task for the domain and polls until the
// task completes or the poll budget runs out.
func (c *Client) Lookup(ctx context.Context, domain string) (*Result, error) {
	taskID, err := c.postTask(ctx, domain)
	if err != nil {
		return nil, err
	}
	return c.pollTask(ctx, domain, taskID)
}

func (c *Client) postTask(ctx context.Context, domain string) (string, error) {
	payload := []map[string]any{{
		"target":        domain,
		"location_name": c.location,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "dataforseo: marshal task")
	}

	parsed, err := c.call(ctx, http.MethodPost,
		"/serp/google/ads_advertisers/task_post", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if parsed.StatusCode != statusOK {
		return "", eris.Errorf("dataforseo: task post rejected: %d %s",
			parsed.StatusCode, parsed.StatusMessage)
	}
	if len(parsed.Tasks) == 0 {
		return "", eris.New("dataforseo: task post returned no tasks")
	}
	task := parsed.Tasks[0]
	if task.StatusCode >= 40000 {
		// A rejected task will be rejected again; fail the record outright.
		return "", enrich.NewStatusError(http.StatusBadRequest,
			fmt.Sprintf("dataforseo task rejected: %d %s", task.StatusCode, task.StatusMessage))
	}
	return task.ID, nil
}

func (c *Client) pollTask(ctx context.Context, domain, taskID string) (*Result, error) {
	deadline := time.Now().Add(c.pollBudget)
	interval := 2 * time.Second

	for {
		if err := c.sleep(ctx, interval); err != nil {
			return nil, err
		}
		if interval < 5*time.Second {
			interval += time.Second
		}

		parsed, err := c.call(ctx, http.MethodGet,
			"/serp/google/ads_advertisers/task_get/advanced/"+taskID, nil)
		if err != nil {
			return nil, err
		}
		if len(parsed.Tasks) == 0 {
			return nil, eris.New("dataforseo: task get returned no tasks")
		}
		task := parsed.Tasks[0]

		switch {
		case task.StatusCode == statusOK:
			return resultFromTask(parsed), nil
		case inProgress(task.StatusMessage):
			if time.Now().After(deadline) {
				return nil, enrich.NewStatusError(http.StatusRequestTimeout,
					fmt.Sprintf("task %s still pending for %s", taskID, domain))
			}
			zap.L().Debug("dataforseo task pending",
				zap.String("domain", domain),
				zap.String("task_id", taskID))
		default:
			return nil, eris.Errorf("dataforseo: task failed: %d %s",
				task.StatusCode, task.StatusMessage)
		}
	}
}

func inProgress(msg string) bool {
	return msg == "Task is in progress." || msg == "Task is pending." ||
		msg == "Task is in progress" || msg == "Task is pending"
}

func resultFromTask(parsed *apiResponse) *Result {
	result := &Result{}
	for _, res := range parsed.Tasks[0].Result {
		for _, item := range res.Items {
			if item.Type != "ads_advertiser" {
				continue
			}
			result.Advertising = true
			result.ApproxAdsCount += item.ApproxAdsCount
			if result.AdvertiserID == "" {
				result.AdvertiserID = item.AdvertiserID
			}
			if item.Verified {
				result.Verified = true
			}
		}
	}
	return result
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	req.SetBasicAuth(c.login, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, enrich.NewStatusError(resp.StatusCode, string(raw))
	}

	parsed := &apiResponse{}
	if err := json.Unmarshal(raw, parsed); err != nil {
		return nil, eris.Wrap(err, "dataforseo: parse response")
	}
	return parsed, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
