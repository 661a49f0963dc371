package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ItemLoader = (*Client)(nil)

const (
	pageSize   = 100
	appBaseURL = "https://app.hubspot.com"
)

// objectKind describes one CRM object collection.
type objectKind struct {
	itemType   string
	path       string
	properties string
	urlSuffix  string
}

var objectKinds = []objectKind{
	{itemType: "Contact", path: "/crm/v3/objects/contacts", properties: "firstname,lastname,email"},
	{itemType: "Company", path: "/crm/v3/objects/companies", properties: "name,domain", urlSuffix: "/company"},
	{itemType: "Deal", path: "/crm/v3/objects/deals", properties: "dealname,amount,dealstage", urlSuffix: "/deal"},
}

// Client loads CRM objects from the HubSpot API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a new HubSpot API client.
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
		maxRetries: 2,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger used for per-kind load warnings.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Provider returns HubSpot.
func (c *Client) Provider() domain.ProviderType {
	return domain.ProviderTypeHubSpot
}

// crmObject is one entry of a CRM list response.
type crmObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  json.RawMessage   `json:"createdAt"`
	UpdatedAt  json.RawMessage   `json:"updatedAt"`
	Archived   bool              `json:"archived"`
}

type listResponse struct {
	Results []json.RawMessage `json:"results"`
}

// LoadItems fetches the first page of contacts, companies and deals.
// A kind that fails is skipped with a warning; an unauthorized token or a
// cancelled context aborts the load, as does every kind failing.
func (c *Client) LoadItems(ctx context.Context, accessToken string) ([]domain.IntegrationItem, error) {
	var (
		items   []domain.IntegrationItem
		lastErr error
		failed  int
	)
	for _, kind := range objectKinds {
		page, err := c.listObjects(ctx, accessToken, kind)
		if err != nil {
			if errors.Is(err, domain.ErrProviderUnauthorized) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("hubspot object kind failed", "kind", kind.itemType, "error", err)
			lastErr = err
			failed++
			continue
		}
		items = append(items, page...)
	}
	if failed == len(objectKinds) {
		return nil, lastErr
	}
	return items, nil
}

func (c *Client) listObjects(ctx context.Context, accessToken string, kind objectKind) ([]domain.IntegrationItem, error) {
	path := fmt.Sprintf("%s?limit=%d&properties=%s", kind.path, pageSize, kind.properties)

	resp, err := c.doRequest(ctx, accessToken, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", strings.ToLower(kind.itemType), err)
	}

	items := make([]domain.IntegrationItem, 0, len(list.Results))
	for _, raw := range list.Results {
		var obj crmObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.ToLower(kind.itemType), err)
		}
		items = append(items, toItem(kind, obj, raw))
	}
	return items, nil
}

// toItem maps a CRM object onto the item envelope.
func toItem(kind objectKind, obj crmObject, raw json.RawMessage) domain.IntegrationItem {
	return domain.IntegrationItem{
		ID:        obj.ID,
		Name:      displayName(kind.itemType, obj),
		Type:      kind.itemType,
		Provider:  domain.ProviderTypeHubSpot,
		URL:       fmt.Sprintf("%s/contacts/%s%s", appBaseURL, obj.ID, kind.urlSuffix),
		CreatedAt: parseTimestamp(obj.CreatedAt),
		UpdatedAt: parseTimestamp(obj.UpdatedAt),
		Raw:       raw,
	}
}

func displayName(itemType string, obj crmObject) string {
	p := obj.Properties
	switch itemType {
	case "Contact":
		if name := strings.TrimSpace(p["firstname"] + " " + p["lastname"]); name != "" {
			return name
		}
		if p["email"] != "" {
			return p["email"]
		}
	case "Company":
		if p["name"] != "" {
			return p["name"]
		}
	case "Deal":
		if p["dealname"] != "" {
			return p["dealname"]
		}
	}
	return itemType + " " + obj.ID
}

// parseTimestamp accepts RFC 3339 strings and epoch milliseconds,
// either as a JSON number or a numeric string.
func parseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	value := strings.Trim(string(raw), `"`)
	if value == "" {
		return nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, accessToken, path string) (*http.Response, error) {
	var resp *http.Response
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: hubspot: %v", domain.ErrNetwork, err)
		}

		// Success or non-retryable error
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		if attempt == c.maxRetries {
			break
		}

		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: hubspot access token expired or invalid", domain.ErrProviderUnauthorized)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("hubspot API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}
