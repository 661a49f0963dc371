package notion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/oauth-broker/internal/adapters/driven/connectors"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
)

func TestClient_LoadItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, APIVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, "Bearer secret_tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","results":[
			{"object":"page","id":"p1","url":"https://www.notion.so/p1","created_time":"2024-03-01T10:00:00.000Z","last_edited_time":"2024-03-02T10:00:00.000Z",
			 "properties":{"Name":{"id":"title","type":"title","title":[{"plain_text":"Roadmap "},{"plain_text":"2024"}]}}},
			{"object":"database","id":"d1","url":"https://www.notion.so/d1","title":[{"plain_text":"Tasks"}],"properties":{}},
			{"object":"page","id":"p2","properties":{}}
		]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, time.Second).LoadItems(context.Background(), "secret_tok")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Roadmap 2024", items[0].Name)
	assert.Equal(t, "Page", items[0].Type)
	assert.Equal(t, "https://www.notion.so/p1", items[0].URL)
	require.NotNil(t, items[0].CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *items[0].CreatedAt)

	assert.Equal(t, "Tasks", items[1].Name)
	assert.Equal(t, "Database", items[1].Type)
	assert.Nil(t, items[1].CreatedAt)

	assert.Equal(t, "Untitled", items[2].Name)
	for _, item := range items {
		assert.Equal(t, domain.ProviderTypeNotion, item.Provider)
	}
}

func TestClient_LoadItems_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).LoadItems(context.Background(), "revoked")
	assert.True(t, errors.Is(err, domain.ErrProviderUnauthorized))
}

func TestAdapterConfig_OwnerParam(t *testing.T) {
	cfg := AdapterConfig(connectors.ClientSettings{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://broker.example.com/cb",
	})
	adapter, err := connectors.NewOAuth2Adapter(cfg)
	require.NoError(t, err)

	raw, err := adapter.BuildAuthorizationURL(&domain.AuthorizationState{Token: "st"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user", u.Query().Get("owner"))
	assert.Empty(t, u.Query().Get("scope"))
}
