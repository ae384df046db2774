// Package oauth provides the local redirect listener, the copy/paste
// fallback and browser utilities used by the authorization flow.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// Ensure CallbackServer implements the listener port.
var _ driven.CallbackListener = (*CallbackServer)(nil)

// Callback errors.
var (
	ErrStateMismatch  = errors.New("state mismatch")
	ErrMissingCode    = errors.New("no authorization code received")
	ErrMalformedQuery = errors.New("malformed callback query")
)

// ProviderError is an error reported by the provider on the redirect.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "provider returned error: " + e.Code
	}
	return fmt.Sprintf("provider returned error: %s - %s", e.Code, e.Description)
}

// resolution is a write-once result cell with a channel closed on write.
type resolution struct {
	mu     sync.Mutex
	result *domain.CallbackResult
	done   chan struct{}
}

func newResolution() *resolution {
	return &resolution{done: make(chan struct{})}
}

// resolve stores r unless a result is already set. It reports whether r won.
func (c *resolution) resolve(r domain.CallbackResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result != nil {
		return false
	}
	c.result = &r
	close(c.done)
	return true
}

func (c *resolution) get() (domain.CallbackResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.CallbackResult{}, false
	}
	return *c.result, true
}

// CallbackServer receives the provider's browser redirect on a fixed
// loopback port. The first callback resolves the attempt; later callbacks
// are answered but ignored.
type CallbackServer struct {
	port           int
	expectedState  string
	requiredScopes []string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	res *resolution
}

// NewCallbackServer creates a callback server for one authorization
// attempt. Callbacks must carry expectedState and, when they report scopes,
// every scope in requiredScopes.
func NewCallbackServer(port int, expectedState string, requiredScopes []string) *CallbackServer {
	return &CallbackServer{
		port:           port,
		expectedState:  expectedState,
		requiredScopes: requiredScopes,
		res:            newResolution(),
	}
}

// NewListenerFactory returns a factory creating CallbackServers.
func NewListenerFactory() driven.CallbackListenerFactory {
	return func(port int, expectedState string, requiredScopes []string) driven.CallbackListener {
		return NewCallbackServer(port, expectedState, requiredScopes)
	}
}

// Start binds 127.0.0.1:<port> and serves in the background.
// If port is 0, a random available port will be chosen.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleCallback)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	// Store the actual port (important when port was 0)
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("callback server: %v", err)
		}
	}()

	logger.Debug("callback server listening on %s", listener.Addr())
	return nil
}

// handleCallback answers every GET with exactly one page and resolves the
// attempt on the first one.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := ValidateCallback(r.URL.RawQuery, s.expectedState, s.requiredScopes)
	if !s.res.resolve(result) {
		logger.Debug("callback server: ignoring repeated callback")
	}

	if result.Err != nil {
		writePage(w, "Authorization failed", result.Err.Error())
		return
	}
	writePage(w, "Authorization successful!", "You can close this window and return to the application.")
}

// Stop shuts the server down, letting in-flight responses finish until
// ctx is done. Stopping twice or before Start is a no-op.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	if err != nil {
		_ = server.Close()
	}
	// Serve may not have registered the listener yet; the port must be
	// free once Stop returns.
	if listener != nil {
		if cerr := listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			logger.Debug("callback server: close listener: %v", cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("shutdown callback server: %w", err)
	}
	return nil
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI returns the redirect URI registered with the provider.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d", s.Port())
}

// Done is closed once the attempt is resolved.
func (s *CallbackServer) Done() <-chan struct{} {
	return s.res.done
}

// Result returns the resolved callback, if any.
func (s *CallbackServer) Result() (domain.CallbackResult, bool) {
	return s.res.get()
}

// ValidateCallback turns a raw redirect query into a callback result.
// Only the first value of a repeated parameter counts.
func ValidateCallback(rawQuery, expectedState string, requiredScopes []string) domain.CallbackResult {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return domain.CallbackResult{Err: fmt.Errorf("%w: %w", ErrMalformedQuery, err)}
	}

	if code := params.Get("error"); code != "" {
		return domain.CallbackResult{Err: &ProviderError{Code: code, Description: params.Get("error_description")}}
	}
	if params.Get("state") != expectedState {
		return domain.CallbackResult{Err: ErrStateMismatch}
	}
	code := params.Get("code")
	if code == "" {
		return domain.CallbackResult{Err: ErrMissingCode}
	}

	var scopes []string
	if params.Has("scope") {
		scopes = strings.Fields(params.Get("scope"))
		if missing := domain.MissingScopes(requiredScopes, scopes); len(missing) > 0 {
			return domain.CallbackResult{Err: fmt.Errorf("%w: %s", domain.ErrMissingScopes, strings.Join(missing, " "))}
		}
	}
	return domain.CallbackResult{Code: code, Scopes: scopes}
}

func writePage(w http.ResponseWriter, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, resultHTML(html.EscapeString(title), html.EscapeString(message)))
}

//nolint:misspell // CSS properties use American spelling (center, color)
func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Capshare</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #FAFAFA;
        }
        .container {
            text-align: center;
            background: white;
            padding: 48px 64px;
            border-radius: 16px;
            border: 1px solid #C7C8CC;
        }
        h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; }
        p { color: #7B8088; margin: 0; font-size: 16px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, message)
}
