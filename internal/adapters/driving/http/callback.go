package http

import (
	"html/template"
	"net/http"
)

// callbackPage is rendered into the popup window the provider redirected.
// It must never carry token material.
type callbackPage struct {
	Success  bool
	Provider string
	Message  string
	Code     string
}

// The opener is notified with a small message so the application can
// refresh its connection state; the popup then closes itself.
var callbackTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{if .Success}}Connected{{else}}Connection failed{{end}}</title>
</head>
<body>
<p>{{.Message}}</p>
<script>
(function () {
  var msg = {type: "oauth-broker", success: {{.Success}}, provider: {{.Provider}}, error: {{.Code}}};
  if (window.opener) {
    try { window.opener.postMessage(msg, "*"); } catch (e) {}
  }
  {{if .Success}}window.close();{{end}}
})();
</script>
</body>
</html>
`))

func (s *Server) renderCallback(w http.ResponseWriter, status int, page callbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(status)
	if err := callbackTemplate.Execute(w, page); err != nil {
		s.logger.Error("render callback page", "error", err)
	}
}

// callbackMessage turns a mapped error into text for the popup
func callbackMessage(body ErrorResponse) string {
	switch body.Error {
	case "invalid_state":
		return "This authorization link has expired or was already used. Please start again."
	case "exchange_failed":
		if body.ProviderError == "access_denied" {
			return "Access was denied. No connection was made."
		}
		return "The provider did not accept the authorization. Please start again."
	case "provider_timeout":
		return "The provider did not respond in time. Please try again."
	case "provider_unreachable":
		return "The provider could not be reached. Please try again."
	case "provider_misconfigured":
		return "This integration is not configured."
	default:
		return "Something went wrong while connecting. Please try again."
	}
}
