// Package tools holds the outward-facing helpers agents call into: web
// search and page text extraction.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// NoSearchResults is the in-band answer for an empty or failed search.
const NoSearchResults = "No search results, web search failed."

// searchResultCount caps how many hits are fetched and formatted.
const searchResultCount = 3

// SearchResult is one formatted web hit, with the page text already pulled.
type SearchResult struct {
	Title   string
	Snippet string
	Link    string
	Content string
}

// BraveClient queries the Brave web search API.
type BraveClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewBraveClient creates a search client. An empty key disables search and
// every call reports failure in-band.
func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs the query and returns the top hits with their page content.
// Page fetches are best effort; a page that cannot be read keeps an empty
// Content.
func (c *BraveClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("web search disabled: no api key")
	}

	reqURL := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	var payload braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("web search response malformed: %w", err)
	}

	hits := payload.Web.Results
	if len(hits) > searchResultCount {
		hits = hits[:searchResultCount]
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		result := SearchResult{
			Title:   hit.Title,
			Snippet: hit.Description,
			Link:    hit.URL,
		}
		content, err := FetchPageText(ctx, c.client, hit.URL)
		if err != nil {
			slog.Debug("page fetch failed", "url", hit.URL, "error", err)
		} else {
			result.Content = content
		}
		results = append(results, result)
	}
	return results, nil
}

// FormatResults renders hits in the block format agents feed to the model.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return NoSearchResults
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Title:%s\nSnippet:%s\nLink:%s\nContent:%s", r.Title, r.Snippet, r.Link, r.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// Links returns the result URLs, for source attribution.
func Links(results []SearchResult) []string {
	links := make([]string, 0, len(results))
	for _, r := range results {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	return links
}
