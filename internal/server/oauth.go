package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/freshlist/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>freshlist: {{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; display: grid; place-items: center; height: 100vh; margin: 0; background: #121212; color: #b3b3b3; }
main { text-align: center; }
h1 { color: {{if .OK}}#1DB954{{else}}#e22134{{end}}; }
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
<p>You can close this window and return to the terminal.</p>
</main>
</body>
</html>
`))

type callbackView struct {
	OK     bool
	Title  string
	Detail string
}

// OAuthHandler serves the Spotify authorization-code redirect. Only the first callback is honored.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	handled atomic.Bool
	once    sync.Once
}

// NewOAuthHandler creates an [OAuthHandler] expecting state on the callback.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.handled.CompareAndSwap(false, true) {
		h.render(w, http.StatusBadRequest, callbackView{Title: "Already authorized", Detail: "This callback has already been used."})
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "state mismatch", "The request did not come from this freshlist session.")
		return
	}

	if reason := query.Get("error"); reason != "" {
		detail := "Spotify did not grant access."
		if reason != "access_denied" {
			detail = "Spotify returned: " + reason
		}
		h.fail(w, http.StatusBadRequest, "spotify returned "+reason, detail)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, "missing authorization code", "The callback carried no authorization code.")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)})
		h.render(w, http.StatusInternalServerError, callbackView{Title: "Authorization failed", Detail: "Could not exchange the code for a token."})
		return
	}

	h.Send(OAuthResult{Token: token})
	h.render(w, http.StatusOK, callbackView{OK: true, Title: "Authorized", Detail: "freshlist can now manage your playlist."})
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, reason, detail string) {
	h.Send(OAuthResult{err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
	h.render(w, status, callbackView{Title: "Authorization failed", Detail: detail})
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, view callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, view)
}

// Send delivers result once and closes the channel. Later calls are dropped.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one [OAuthResult].
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
