package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an OAuth authorization flow.
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
    <title>moodsplit</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
        h1 { color: {{if .OK}}#1DB954{{else}}#E22134{{end}}; }
    </style>
</head>
<body>
    <div>
        <h1>{{.Title}}</h1>
        <p>{{.Detail}}</p>
    </div>
</body>
</html>
`))

type callbackView struct {
	OK     bool
	Title  string
	Detail string
}

// OAuthHandler serves the Spotify redirect for `spotify auth`.
//
// It accepts exactly one callback, trades its code through a [TokenExchanger] and publishes the outcome on [OAuthHandler.Result].
type OAuthHandler struct {
	exchanger TokenExchanger
	state     string
	results   chan OAuthResult
	once      sync.Once
	mu        sync.Mutex
	handled   bool
}

// NewOAuthHandler creates a handler that only accepts callbacks carrying state.
func NewOAuthHandler(exchanger TokenExchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger: exchanger,
		state:     state,
		results:   make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// claim marks the handler as used and reports whether this is the first callback.
func (h *OAuthHandler) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handled {
		return false
	}
	h.handled = true
	return true
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, title string, err error) {
	h.Send(OAuthResult{err: err})
	render(w, status, callbackView{Title: title, Detail: err.Error()})
}

// ServeHTTP validates the state, exchanges the code and renders a page for the browser.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claim() {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "Invalid state", fmt.Errorf("invalid state parameter"))
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization denied: %s %s", query.Get("error"), query.Get("error_description"))
		h.fail(w, http.StatusBadRequest, "Authorization failed", err)
		return
	}

	token, err := h.exchanger.Exchange(r.Context(), code, "")
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed", fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.Send(OAuthResult{Token: token})
	render(w, http.StatusOK, callbackView{
		OK:     true,
		Title:  "✓ Spotify connected",
		Detail: "You can close this window and return to the terminal.",
	})
}

func render(w http.ResponseWriter, status int, view callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, view)
}

// Send publishes the result once; later calls are ignored.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
