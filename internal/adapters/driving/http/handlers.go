package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/custodia-labs/oauth-broker/docs"
	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driving"
)

// maxBodyBytes caps request bodies; they only ever carry two identifiers.
const maxBodyBytes = 64 << 10

// readyTimeout bounds each readiness check
const readyTimeout = 2 * time.Second

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_state"`
	ErrorDescription string `json:"error_description,omitempty" example:"The state parameter is invalid or expired"`
	ProviderError    string `json:"provider_error,omitempty" example:"invalid_grant"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports each backend checked by /ready
// @Description Readiness status with per-backend results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ItemsResponse wraps loaded integration items
// @Description Items loaded from a provider
type ItemsResponse struct {
	Items []domain.IntegrationItem `json:"items"`
}

// correlationRequest is the body accepted by every caller-facing route.
// org_id is accepted as an alias of organization_id.
type correlationRequest struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	OrgID          string `json:"org_id"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings every storage backend
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for name, p := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("readiness check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleOpenAPI serves the swag document
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, docs.SwaggerInfo.ReadDoc())
}

// Integration endpoints

// handleListProviders godoc
// @Summary      List providers
// @Description  Reports which providers are configured and can serve authorization flows
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.ProviderStatus
// @Router       /integrations/providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.authService.Providers(r.Context()))
}

// handleAuthorize godoc
// @Summary      Begin authorization
// @Description  Issues a single-use state token and returns the provider consent URL
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string              true  "Provider"  Enums(hubspot, airtable, notion)
// @Param        request   body      domain.Correlation  false "Caller correlation"
// @Success      200       {object}  driving.BeginResponse
// @Failure      400       {object}  ErrorResponse  "Missing user or organization"
// @Failure      403       {object}  ErrorResponse  "Body does not match token claims"
// @Failure      404       {object}  ErrorResponse  "Unsupported provider"
// @Failure      503       {object}  ErrorResponse  "Provider misconfigured"
// @Router       /integrations/{provider}/authorize [post]
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	provider, corr, ok := s.parseIntegrationRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.authService.BeginAuthorization(r.Context(), driving.BeginRequest{
		Correlation: corr,
		Provider:    provider,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCallback godoc
// @Summary      OAuth callback
// @Description  Provider redirect target. Consumes the state, exchanges the code and answers with a page that closes the popup
// @Tags         Integrations
// @Produce      html
// @Param        provider  path   string  true   "Provider"
// @Param        code      query  string  false  "Authorization code"
// @Param        state     query  string  true   "State token"
// @Param        error     query  string  false  "Provider error"
// @Success      200
// @Failure      400
// @Failure      502
// @Failure      504
// @Router       /integrations/{provider}/oauth2callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		s.renderCallback(w, http.StatusNotFound, callbackPage{Message: "This integration is not supported."})
		return
	}

	q := r.URL.Query()
	cred, err := s.authService.HandleCallback(r.Context(), driving.CallbackRequest{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Provider:         provider,
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		status, body := classifyError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("callback failed", "provider", provider, "error", err, "request_id", RequestID(r.Context()))
		}
		s.renderCallback(w, status, callbackPage{
			Provider: provider.DisplayName(),
			Message:  callbackMessage(body),
			Code:     body.Error,
		})
		return
	}

	s.renderCallback(w, http.StatusOK, callbackPage{
		Success:  true,
		Provider: cred.Provider.DisplayName(),
		Message:  cred.Provider.DisplayName() + " is connected. You can close this window.",
	})
}

// handleGetCredentials godoc
// @Summary      Fetch credential
// @Description  Returns the live credential for the caller without consuming it
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string              true   "Provider"
// @Param        request   body      domain.Correlation  false  "Caller correlation"
// @Success      200       {object}  driving.CredentialResponse
// @Failure      404       {object}  ErrorResponse  "No live credential"
// @Router       /integrations/{provider}/credentials [post]
func (s *Server) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	provider, corr, ok := s.parseIntegrationRequest(w, r)
	if !ok {
		return
	}

	cred, err := s.authService.FetchCredential(r.Context(), credentialKey(provider, corr))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, driving.NewCredentialResponse(cred))
}

// handleDisconnect godoc
// @Summary      Disconnect
// @Description  Revokes the stored credential. Revoking a missing credential succeeds
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string              true   "Provider"
// @Param        request   body      domain.Correlation  false  "Caller correlation"
// @Success      200       {object}  StatusResponse
// @Router       /integrations/{provider}/credentials [delete]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	provider, corr, ok := s.parseIntegrationRequest(w, r)
	if !ok {
		return
	}

	if err := s.authService.Disconnect(r.Context(), credentialKey(provider, corr)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "disconnected"})
}

// handleLoadItems godoc
// @Summary      Load items
// @Description  Loads provider objects using the stored credential
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string              true   "Provider"
// @Param        request   body      domain.Correlation  false  "Caller correlation"
// @Success      200       {object}  ItemsResponse
// @Failure      401       {object}  ErrorResponse  "Provider rejected the stored token"
// @Failure      404       {object}  ErrorResponse  "No live credential"
// @Router       /integrations/{provider}/items [post]
func (s *Server) handleLoadItems(w http.ResponseWriter, r *http.Request) {
	provider, corr, ok := s.parseIntegrationRequest(w, r)
	if !ok {
		return
	}

	items, err := s.itemService.LoadItems(r.Context(), credentialKey(provider, corr))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.IntegrationItem{}
	}

	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// Request parsing

// parseIntegrationRequest resolves the path provider and the caller
// correlation, writing the error response itself when it fails.
func (s *Server) parseIntegrationRequest(w http.ResponseWriter, r *http.Request) (domain.ProviderType, domain.Correlation, bool) {
	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", domain.Correlation{}, false
	}

	corr, err := resolveCorrelation(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", domain.Correlation{}, false
	}

	return provider, corr, true
}

// resolveCorrelation returns the (user, organization) pair the request acts for.
// With an authenticated caller the claims win and a body naming anyone else
// is refused; otherwise the body is trusted.
func resolveCorrelation(r *http.Request) (domain.Correlation, error) {
	body, err := decodeCorrelation(r)
	if err != nil {
		return domain.Correlation{}, err
	}

	if caller := GetCaller(r.Context()); caller != nil {
		corr := caller.Correlation()
		if (body.UserID != "" && body.UserID != corr.UserID) ||
			(body.OrganizationID != "" && body.OrganizationID != corr.OrganizationID) {
			return domain.Correlation{}, domain.ErrForbidden
		}
		return corr, nil
	}

	if err := body.Validate(); err != nil {
		return domain.Correlation{}, err
	}
	return body, nil
}

// decodeCorrelation reads user and organization ids from a JSON or form
// body, falling back to query parameters.
func decodeCorrelation(r *http.Request) (domain.Correlation, error) {
	var req correlationRequest

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return domain.Correlation{}, domain.ErrInvalidInput
		}
		req.UserID = r.PostFormValue("user_id")
		req.OrganizationID = r.PostFormValue("organization_id")
		req.OrgID = r.PostFormValue("org_id")
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return domain.Correlation{}, domain.ErrInvalidInput
		}
	}

	q := r.URL.Query()
	if req.UserID == "" {
		req.UserID = q.Get("user_id")
	}
	if req.OrganizationID == "" {
		req.OrganizationID = req.OrgID
	}
	if req.OrganizationID == "" {
		req.OrganizationID = q.Get("organization_id")
	}
	if req.OrganizationID == "" {
		req.OrganizationID = q.Get("org_id")
	}

	return domain.Correlation{UserID: req.UserID, OrganizationID: req.OrganizationID}, nil
}

func credentialKey(provider domain.ProviderType, corr domain.Correlation) domain.CredentialKey {
	return domain.CredentialKey{
		Provider:       provider,
		UserID:         corr.UserID,
		OrganizationID: corr.OrganizationID,
	}
}

// Error mapping

// classifyError maps a service error to its HTTP status and body.
func classifyError(err error) (int, ErrorResponse) {
	var exchangeErr *domain.ProviderExchangeError

	switch {
	case errors.Is(err, domain.ErrInvalidOrExpiredState):
		return http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_state",
			ErrorDescription: "The state parameter is invalid or expired",
		}
	case errors.As(err, &exchangeErr):
		return http.StatusBadRequest, ErrorResponse{
			Error:            "exchange_failed",
			ErrorDescription: exchangeErr.Description,
			ProviderError:    exchangeErr.Code,
		}
	case errors.Is(err, domain.ErrProviderTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "provider_timeout", ErrorDescription: "The provider did not respond in time"}
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, ErrorResponse{Error: "provider_unreachable", ErrorDescription: "The provider could not be reached"}
	case errors.Is(err, domain.ErrCredentialNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "credential_not_found", ErrorDescription: "No credential found, please re-authenticate"}
	case errors.Is(err, domain.ErrProviderMisconfigured):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "provider_misconfigured", ErrorDescription: "This integration is not configured"}
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return http.StatusNotFound, ErrorResponse{Error: "unsupported_provider"}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_request", ErrorDescription: "user_id and organization_id are required"}
	case errors.Is(err, domain.ErrProviderUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "provider_unauthorized", ErrorDescription: "The provider rejected the stored token, please re-authenticate"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", ErrorDescription: "Request does not match the authenticated caller"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error"}
	}
}

// writeServiceError writes the mapped error and logs unexpected failures
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classifyError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", RequestID(r.Context()),
		)
	}
	writeJSON(w, status, body)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
