package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

type callbackVariant string

const (
	callbackSuccess callbackVariant = "success"
	callbackError   callbackVariant = "error"
	callbackInvalid callbackVariant = "invalid"
)

type callbackPage struct {
	Variant      callbackVariant
	Heading      string
	Detail       string
	Message      map[string]any
	MaxAttempts  int
	CloseAfterMs int
	Nonce        string

	// TargetOrigins are the only origins the opener may have; postMessage
	// drops the message for any other.
	TargetOrigins []string
}

var callbackTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>OAuth Callback</title>
<style nonce="{{.Nonce}}">
body { font-family: Arial, sans-serif; text-align: center; padding: 50px; margin: 0; color: white; }
body.success { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); }
body.error { background: linear-gradient(135deg, #ff6b6b 0%, #ee5a24 100%); }
body.invalid { background: linear-gradient(135deg, #ff9a9e 0%, #fecfef 100%); color: #333; }
.container { background: rgba(255, 255, 255, 0.1); padding: 2rem; border-radius: 15px; max-width: 400px; margin: 0 auto; }
body.invalid .container { background: rgba(255, 255, 255, 0.9); }
.spinner { border: 3px solid rgba(255, 255, 255, 0.3); border-radius: 50%; border-top: 3px solid white; width: 30px; height: 30px; animation: spin 1s linear infinite; margin: 20px auto; }
@keyframes spin { 0% { transform: rotate(0deg); } 100% { transform: rotate(360deg); } }
</style>
</head>
<body class="{{.Variant}}">
<div class="container">
<h2>{{.Heading}}</h2>
{{if eq .Variant "success"}}<div class="spinner"></div>{{end}}
<p>{{.Detail}}</p>
<p><small>This window will close automatically.</small></p>
</div>
<script nonce="{{.Nonce}}">
(function () {
  var message = {{.Message}};
  var origins = {{.TargetOrigins}} || [];
  var maxAttempts = {{.MaxAttempts}};
  var attempts = 0;
  var sent = false;
  function send() {
    attempts++;
    if (sent) return;
    if (attempts > maxAttempts) { window.close(); return; }
    try {
      if (window.opener && !window.opener.closed) {
        for (var i = 0; i < origins.length; i++) {
          window.opener.postMessage(message, origins[i]);
        }
        sent = true;
        setTimeout(function () { window.close(); }, 2000);
        return;
      }
    } catch (e) {}
    setTimeout(send, 500);
  }
  setTimeout(send, 1000);
  setTimeout(function () { if (!sent) window.close(); }, {{.CloseAfterMs}});
})();
</script>
</body>
</html>
`))

// newCallbackPage picks the page for the provider redirect parameters. An
// error wins over a code; a code without state is invalid.
func newCallbackPage(code, state, providerError string) callbackPage {
	switch {
	case providerError != "":
		return callbackPage{
			Variant:      callbackError,
			Heading:      "❌ OAuth Error",
			Detail:       "Authentication failed: " + providerError,
			Message:      map[string]any{"error": providerError},
			MaxAttempts:  20,
			CloseAfterMs: 10000,
		}
	case code != "" && state != "":
		return callbackPage{
			Variant:      callbackSuccess,
			Heading:      "✅ Authentication Successful",
			Detail:       "Please wait while we redirect you back to the application...",
			Message:      map[string]any{"code": code, "state": state, "success": true},
			MaxAttempts:  10,
			CloseAfterMs: 30000,
		}
	default:
		return callbackPage{
			Variant:      callbackInvalid,
			Heading:      "⚠️ OAuth Error",
			Detail:       "Invalid callback parameters",
			Message:      map[string]any{"error": "Invalid callback parameters"},
			MaxAttempts:  20,
			CloseAfterMs: 10000,
		}
	}
}

// callback renders the popup landing page that hands the provider's
// redirect parameters to the opener window.
func (s *Server) callback(c echo.Context) error {
	page := newCallbackPage(c.QueryParam("code"), c.QueryParam("state"), c.QueryParam("error"))
	page.Nonce, _ = c.Get(nonceKey).(string)
	page.TargetOrigins = s.config.AllowedOrigins

	var buf bytes.Buffer
	if err := callbackTemplate.Execute(&buf, page); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
