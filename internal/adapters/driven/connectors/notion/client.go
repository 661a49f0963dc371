package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ItemLoader = (*Client)(nil)

const pageSize = 100

// Client loads pages and databases shared with the integration.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Notion API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = APIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Provider returns Notion.
func (c *Client) Provider() domain.ProviderType {
	return domain.ProviderTypeNotion
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type searchResult struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	URL            string                     `json:"url"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	Title          []richText                 `json:"title"`
	Properties     map[string]json.RawMessage `json:"properties"`
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// LoadItems runs an empty search, which returns everything the user
// shared with the integration, first page only.
func (c *Client) LoadItems(ctx context.Context, accessToken string) ([]domain.IntegrationItem, error) {
	body, err := json.Marshal(map[string]any{"page_size": pageSize})
	if err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: notion: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: notion access token expired or invalid", domain.ErrProviderUnauthorized)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("notion API error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	items := make([]domain.IntegrationItem, 0, len(search.Results))
	for _, raw := range search.Results {
		var r searchResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode search result: %w", err)
		}
		items = append(items, toItem(r, raw))
	}
	return items, nil
}

func toItem(r searchResult, raw json.RawMessage) domain.IntegrationItem {
	item := domain.IntegrationItem{
		ID:       r.ID,
		Name:     title(r),
		Type:     itemType(r.Object),
		Provider: domain.ProviderTypeNotion,
		URL:      r.URL,
		Raw:      raw,
	}
	if !r.CreatedTime.IsZero() {
		t := r.CreatedTime.UTC()
		item.CreatedAt = &t
	}
	if !r.LastEditedTime.IsZero() {
		t := r.LastEditedTime.UTC()
		item.UpdatedAt = &t
	}
	return item
}

func itemType(object string) string {
	switch object {
	case "database":
		return "Database"
	case "page":
		return "Page"
	default:
		return object
	}
}

// title joins a database title, or the page's title property.
func title(r searchResult) string {
	if name := joinText(r.Title); name != "" {
		return name
	}
	for _, prop := range r.Properties {
		var p struct {
			Type  string     `json:"type"`
			Title []richText `json:"title"`
		}
		if err := json.Unmarshal(prop, &p); err != nil || p.Type != "title" {
			continue
		}
		if name := joinText(p.Title); name != "" {
			return name
		}
	}
	return "Untitled"
}

func joinText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return strings.TrimSpace(b.String())
}
