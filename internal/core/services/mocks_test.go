package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// mockListener is a CallbackListener whose result is set by the test.
type mockListener struct {
	startErr error
	redirect string

	mu       sync.Mutex
	result   *domain.CallbackResult
	done     chan struct{}
	started  atomic.Bool
	stopped  atomic.Bool
	state    string
	required []string
}

func newMockListener() *mockListener {
	return &mockListener{redirect: "http://localhost:8747", done: make(chan struct{})}
}

func (m *mockListener) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started.Store(true)
	return nil
}

func (m *mockListener) Stop(_ context.Context) error {
	m.stopped.Store(true)
	return nil
}

func (m *mockListener) RedirectURI() string { return m.redirect }

func (m *mockListener) Done() <-chan struct{} { return m.done }

func (m *mockListener) Result() (domain.CallbackResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return domain.CallbackResult{}, false
	}
	return *m.result, true
}

// resolve records the first result only.
func (m *mockListener) resolve(r domain.CallbackResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result != nil {
		return
	}
	m.result = &r
	close(m.done)
}

func (m *mockListener) factory() driven.CallbackListenerFactory {
	return func(_ int, state string, required []string) driven.CallbackListener {
		m.state = state
		m.required = required
		return m
	}
}

// mockOAuthClient records calls to the token endpoint.
type mockOAuthClient struct {
	grant      *domain.TokenGrant
	exchErr    error
	refresh    *domain.TokenGrant
	refreshErr error

	exchanges atomic.Int32
	refreshes atomic.Int32

	mu            sync.Mutex
	challenge     string
	state         string
	gotCode       string
	gotVerifier   string
	gotRedirect   string
	refreshedWith string
}

func (m *mockOAuthClient) AuthCodeURL(redirectURI, state, challenge string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenge = challenge
	m.state = state
	return "https://provider.test/authorize?state=" + state + "&redirect_uri=" + redirectURI
}

func (m *mockOAuthClient) ExchangeCode(_ context.Context, code, verifier, redirectURI string) (*domain.TokenGrant, error) {
	m.exchanges.Add(1)
	m.mu.Lock()
	m.gotCode, m.gotVerifier, m.gotRedirect = code, verifier, redirectURI
	m.mu.Unlock()
	if m.exchErr != nil {
		return nil, m.exchErr
	}
	return m.grant, nil
}

func (m *mockOAuthClient) Refresh(_ context.Context, refreshToken string) (*domain.TokenGrant, error) {
	m.refreshes.Add(1)
	m.mu.Lock()
	m.refreshedWith = refreshToken
	m.mu.Unlock()
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return m.refresh, nil
}

func (m *mockOAuthClient) factory() driven.OAuthClientFactory {
	return func(domain.OAuthProviderConfig) driven.OAuthClient { return m }
}

func (m *mockOAuthClient) resolver() ClientResolver {
	return func(domain.ProviderType) (driven.OAuthClient, error) { return m, nil }
}

// mockExporter is a provider with fixed configuration values.
type mockExporter struct {
	provider   domain.ProviderType
	profile    *domain.Profile
	profileErr error
	transport  driven.UploadSessionTransport
}

func newMockExporter() *mockExporter {
	return &mockExporter{
		provider:  domain.ProviderDropbox,
		profile:   &domain.Profile{ID: "dbid:1", DisplayName: "Ada Lovelace", Email: "ada@example.com"},
		transport: newMockTransport(),
	}
}

func (m *mockExporter) Type() domain.ProviderType { return m.provider }

func (m *mockExporter) OAuthConfig(creds domain.ClientCredentials) domain.OAuthProviderConfig {
	return domain.OAuthProviderConfig{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		AuthURL:        "https://provider.test/authorize",
		TokenURL:       "https://provider.test/token",
		Scopes:         []string{"files.content.write", "account_info.read"},
		RequiredScopes: []string{"files.content.write"},
	}
}

func (m *mockExporter) GetUserInfo(_ context.Context, _ string) (*domain.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

func (m *mockExporter) Transport() driven.UploadSessionTransport { return m.transport }

func (m *mockExporter) SetupHint() string { return "register an app at provider.test" }

// sharingExporter also implements driven.Sharer.
type sharingExporter struct {
	*mockExporter
	shareErr error
}

func (s *sharingExporter) Share(_ context.Context, _ string, result *domain.UploadResult) (string, error) {
	if s.shareErr != nil {
		return "", s.shareErr
	}
	return "https://share.test/" + result.ID, nil
}

// mockTransport reassembles the bytes of the latest session and counts
// calls across sessions.
type mockTransport struct {
	mu       sync.Mutex
	received bytes.Buffer
	starts   int
	appends  int
	finishes int
	offsets  []int64

	startErr  error
	appendErr func(n int) error
	finishErr error
	onAppend  func(n int)
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) check(session *domain.UploadSession) error {
	if session.Offset != int64(m.received.Len()) {
		return errors.New("offset does not match received bytes")
	}
	return nil
}

func (m *mockTransport) Start(_ context.Context, token string, session *domain.UploadSession, chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return errors.New("missing bearer token")
	}
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	session.ID = fmt.Sprintf("sess-%d", m.starts)
	m.received.Reset()
	m.received.Write(chunk)
	return nil
}

func (m *mockTransport) Append(_ context.Context, _ string, session *domain.UploadSession, chunk []byte) error {
	m.mu.Lock()
	m.appends++
	n := m.appends
	hook := m.onAppend
	if err := m.check(session); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.appendErr != nil {
		if err := m.appendErr(n); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.offsets = append(m.offsets, session.Offset)
	m.received.Write(chunk)
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (m *mockTransport) Finish(_ context.Context, _ string, session *domain.UploadSession, chunk []byte) (*domain.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(session); err != nil {
		return nil, err
	}
	if m.finishErr != nil {
		return nil, m.finishErr
	}
	m.finishes++
	m.received.Write(chunk)
	return &domain.UploadResult{
		Path: "/" + session.Commit.Path,
		ID:   "id:" + session.ID,
		Size: int64(m.received.Len()),
	}, nil
}

// staticTokens is a TokenProvider returning a fixed token.
type staticTokens struct {
	token string
	err   error
	calls atomic.Int32
}

func (s *staticTokens) GetToken(_ context.Context) (string, error) {
	s.calls.Add(1)
	return s.token, s.err
}

func (s *staticTokens) AccountID() string { return "acc-1" }

// mockClipboard records copied text.
type mockClipboard struct {
	text string
	err  error
}

func (m *mockClipboard) WriteText(text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

// progressRecorder collects progress updates.
type progressRecorder struct {
	mu      sync.Mutex
	updates []domain.ProgressUpdate
}

func (p *progressRecorder) ReportProgress(u domain.ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func (p *progressRecorder) all() []domain.ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressUpdate(nil), p.updates...)
}

func freshGrant() *domain.TokenGrant {
	return &domain.TokenGrant{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(4 * time.Hour),
	}
}
