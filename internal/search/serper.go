// Package search is the web-search collaborator: a client for a
// Serper-style search API that reduces a free-text query to a single
// best short answer.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://google.serper.dev"
	answerTimeout  = 12 * time.Second
)

// NoResult is returned when the search succeeds but yields nothing usable.
const NoResult = "No relevant result found."

// Client communicates with the search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a search client. An empty API key produces a
// client that reports itself unavailable; the feature degrades, the
// process does not fail.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: answerTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Available reports whether a search credential is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type searchResponse struct {
	Knowledge struct {
		Description string `json:"description"`
	} `json:"knowledge"`
	Organic []struct {
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Answer runs the query and returns the single best short answer:
// the knowledge panel description if present, else the first organic
// result snippet, else NoResult. One attempt, 12s bound.
func (c *Client) Answer(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return "", fmt.Errorf("marshaling query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, answerTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	if desc := strings.TrimSpace(parsed.Knowledge.Description); desc != "" {
		return desc, nil
	}
	if len(parsed.Organic) > 0 {
		if snippet := strings.TrimSpace(parsed.Organic[0].Snippet); snippet != "" {
			return snippet, nil
		}
	}
	return NoResult, nil
}
