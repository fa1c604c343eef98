package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// WebSearchTool performs web searches through the Tavily API.
type WebSearchTool struct {
	apiKey     string
	baseURL    string
	maxResults int
	client     *http.Client
}

// WebSearchOption configures a WebSearchTool.
type WebSearchOption func(*WebSearchTool)

// WithSearchBaseURL overrides the API endpoint, used by tests.
func WithSearchBaseURL(baseURL string) WebSearchOption {
	return func(t *WebSearchTool) {
		t.baseURL = baseURL
	}
}

// WithSearchHTTPClient overrides the HTTP client.
func WithSearchHTTPClient(client *http.Client) WebSearchOption {
	return func(t *WebSearchTool) {
		t.client = client
	}
}

// WithMaxResults caps the number of returned search results.
func WithMaxResults(n int) WebSearchOption {
	return func(t *WebSearchTool) {
		t.maxResults = n
	}
}

// NewWebSearchTool creates the web search tool.
func NewWebSearchTool(apiKey string, opts ...WebSearchOption) *WebSearchTool {
	t := &WebSearchTool{
		apiKey:     apiKey,
		baseURL:    defaultTavilyBaseURL,
		maxResults: 5,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Searches the web for up-to-date information the knowledge base does not cover."
}

func (t *WebSearchTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "The search query",
			},
		},
		Required: []string{"query"},
	}
}

type webSearchInput struct {
	Query string `json:"query"`
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *WebSearchTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var input webSearchInput
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid web search arguments: %w", err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      input.Query,
		MaxResults: t.maxResults,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(data.Results) == 0 {
		return "No results found for: " + input.Query, nil
	}

	var sb strings.Builder
	for i, result := range data.Results {
		fmt.Fprintf(&sb, "%d. %s (%s)\n%s\n", i+1, result.Title, result.URL, result.Content)
	}
	return sb.String(), nil
}

var _ Tool = (*WebSearchTool)(nil)
