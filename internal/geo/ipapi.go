// Package geo is the IP-geolocation collaborator. It resolves the
// caller's coarse location once, best-effort; on any failure callers
// fall back to the canned Unknown value.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nilay/saathi/internal/memory"
)

const (
	defaultBaseURL = "http://ip-api.com"
	lookupTimeout  = 5 * time.Second
)

// Unknown is the canned value used when lookup fails.
var Unknown = memory.Location{
	City:     "Unknown",
	Country:  "Unknown",
	Timezone: memory.DefaultTimezone,
}

// Client communicates with an ip-api style geolocation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a geolocation client.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: lookupTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type lookupResponse struct {
	Status   string `json:"status"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// Locate resolves the caller's location from its public IP. One
// attempt, 5s bound. Callers should substitute Unknown on error.
func (c *Client) Locate(ctx context.Context) (memory.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json/", nil)
	if err != nil {
		return memory.Location{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return memory.Location{}, fmt.Errorf("executing lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return memory.Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return memory.Location{}, fmt.Errorf("decoding lookup response: %w", err)
	}
	if parsed.Status != "success" {
		return memory.Location{}, fmt.Errorf("lookup failed with status %q", parsed.Status)
	}

	loc := memory.Location{
		City:     parsed.City,
		Country:  parsed.Country,
		Timezone: parsed.Timezone,
	}
	if loc.Timezone == "" {
		loc.Timezone = memory.DefaultTimezone
	}
	return loc, nil
}
