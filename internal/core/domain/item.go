package domain

import (
	"encoding/json"
	"time"
)

// IntegrationItem is the normalized envelope for an object fetched from a
// provider, so callers do not need to branch on provider past this point.
type IntegrationItem struct {
	ID        string          `json:"id" example:"1001"`
	Name      string          `json:"name" example:"John Doe"`
	Type      string          `json:"type" example:"Contact"`
	Provider  ProviderType    `json:"provider" example:"hubspot"`
	URL       string          `json:"url,omitempty" example:"https://app.hubspot.com/contacts/1001"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty" swaggertype:"object"`
}
