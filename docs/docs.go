// Package docs holds the OpenAPI document for the broker API.
// Regenerate with: swag init -g cmd/oauth-broker/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "oauth-broker maintainers",
            "url": "https://github.com/custodia-labs/oauth-broker/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/integrations/providers": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Reports which providers are configured and can serve authorization flows",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "List providers",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ProviderStatus"}}
                    }
                }
            }
        },
        "/integrations/{provider}/authorize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Issues a single-use state token and returns the provider consent URL",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Begin authorization",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true, "enum": ["hubspot", "airtable", "notion"]},
                    {"description": "Caller correlation", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/domain.Correlation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.BeginResponse"}},
                    "400": {"description": "Missing user or organization", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Body does not match token claims", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Unsupported provider", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Provider misconfigured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/integrations/{provider}/oauth2callback": {
            "get": {
                "description": "Provider redirect target. Consumes the state, exchanges the code and answers with a page that closes the popup",
                "produces": ["text/html"],
                "tags": ["Integrations"],
                "summary": "OAuth callback",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true},
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query"},
                    {"type": "string", "description": "State token", "name": "state", "in": "query", "required": true},
                    {"type": "string", "description": "Provider error", "name": "error", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Connected"},
                    "400": {"description": "Invalid state or exchange failure"},
                    "502": {"description": "Provider unreachable"},
                    "504": {"description": "Provider timeout"}
                }
            }
        },
        "/integrations/{provider}/credentials": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the live credential for the caller without consuming it",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Fetch credential",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true},
                    {"description": "Caller correlation", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/domain.Correlation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.CredentialResponse"}},
                    "404": {"description": "No live credential", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Revokes the stored credential. Revoking a missing credential succeeds",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Disconnect",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true},
                    {"description": "Caller correlation", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/domain.Correlation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/integrations/{provider}/items": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Loads provider objects using the stored credential",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Load items",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true},
                    {"description": "Caller correlation", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/domain.Correlation"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ItemsResponse"}},
                    "401": {"description": "Provider rejected the stored token", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No live credential", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Correlation": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string", "example": "o1"},
                "user_id": {"type": "string", "example": "u1"}
            }
        },
        "domain.ProviderStatus": {
            "type": "object",
            "properties": {
                "configured": {"type": "boolean"},
                "name": {"type": "string", "example": "HubSpot"},
                "provider": {"type": "string", "example": "hubspot"},
                "reason": {"type": "string", "example": "client secret is missing"},
                "supports_items": {"type": "boolean"}
            }
        },
        "domain.IntegrationItem": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string", "example": "1001"},
                "name": {"type": "string", "example": "John Doe"},
                "provider": {"type": "string", "example": "hubspot"},
                "raw": {"type": "object"},
                "type": {"type": "string", "example": "Contact"},
                "updated_at": {"type": "string"},
                "url": {"type": "string", "example": "https://app.hubspot.com/contacts/1001"}
            }
        },
        "driving.BeginResponse": {
            "type": "object",
            "properties": {
                "authorization_url": {"type": "string"},
                "expires_at": {"type": "string", "example": "2024-01-15T10:10:00Z"},
                "phase": {"type": "string", "example": "pending_callback"},
                "state": {"type": "string"}
            }
        },
        "driving.CredentialResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string", "example": "tok123"},
                "expires_at": {"type": "string"},
                "obtained_at": {"type": "string"},
                "organization_id": {"type": "string", "example": "o1"},
                "phase": {"type": "string", "example": "exchanged"},
                "provider": {"type": "string", "example": "hubspot"},
                "refresh_token": {"type": "string"},
                "scopes": {"type": "array", "items": {"type": "string"}},
                "token_type": {"type": "string", "example": "bearer"},
                "user_id": {"type": "string", "example": "u1"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid_state"},
                "error_description": {"type": "string"},
                "provider_error": {"type": "string", "example": "invalid_grant"}
            }
        },
        "http.ItemsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.IntegrationItem"}}
            }
        },
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "HS256 JWT carrying user_id and org_id claims. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "OAuth Broker API",
	Description:      "Brokers OAuth 2.0 authorization-code flows for HubSpot, Airtable and Notion and keeps the resulting credentials per user and organization.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
