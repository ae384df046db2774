package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// call is one request seen by fakeDropbox.
type call struct {
	route string
	auth  string
	arg   string
	body  []byte
}

// fakeDropbox serves the API and content routes from one handler.
type fakeDropbox struct {
	mu       sync.Mutex
	calls    []call
	received bytes.Buffer
	handlers map[string]http.HandlerFunc
}

func (f *fakeDropbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call{
		route: r.URL.Path,
		auth:  r.Header.Get("Authorization"),
		arg:   r.Header.Get("Dropbox-API-Arg"),
		body:  body,
	})
	handler := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	handler(w, r)
}

func (f *fakeDropbox) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestExporter(t *testing.T, handlers map[string]http.HandlerFunc) (*Exporter, *fakeDropbox) {
	t.Helper()
	fake := &fakeDropbox{handlers: handlers}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return New(Options{HTTPClient: server.Client(), APIURL: server.URL, ContentURL: server.URL}), fake
}

func TestExporter_Config(t *testing.T) {
	e := New(Options{})
	assert.Equal(t, domain.ProviderDropbox, e.Type())
	assert.Contains(t, e.SetupHint(), "dropbox.com/developers")
	assert.Equal(t, APIURL, e.client.apiURL)
	assert.Equal(t, ContentURL, e.client.contentURL)

	cfg := e.OAuthConfig(domain.ClientCredentials{ClientID: "app-key"})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "app-key", cfg.ClientID)
	assert.Equal(t, AuthURL, cfg.AuthURL)
	assert.Equal(t, TokenURL, cfg.TokenURL)
	assert.Contains(t, cfg.Scopes, ScopeFilesContentWrite)
	assert.Equal(t, []string{ScopeFilesContentWrite}, cfg.RequiredScopes)
	assert.Equal(t, "offline", cfg.ExtraAuthParams["token_access_type"])
}

func TestExporter_GetUserInfo(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e, fake := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/users/get_current_account": respond(http.StatusOK,
				`{"account_id":"dbid:AAH4","name":{"display_name":"Ada Lovelace"},"email":"ada@example.com"}`),
		})

		profile, err := e.GetUserInfo(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, &domain.Profile{ID: "dbid:AAH4", DisplayName: "Ada Lovelace", Email: "ada@example.com"}, profile)

		c := fake.lastCall()
		assert.Equal(t, "Bearer tok", c.auth)
		assert.Empty(t, c.body)
	})

	t.Run("expired token", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/users/get_current_account": respond(http.StatusUnauthorized,
				`{"error_summary":"expired_access_token/","error":{".tag":"expired_access_token"}}`),
		})

		_, err := e.GetUserInfo(context.Background(), "tok")
		assert.ErrorIs(t, err, domain.ErrAuthorization)
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
		var exportErr *domain.ExportError
		require.ErrorAs(t, err, &exportErr)
		assert.Equal(t, "expired_access_token/", exportErr.Detail)
	})

	t.Run("unexpected shape", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/users/get_current_account": respond(http.StatusOK, `{}`),
		})

		_, err := e.GetUserInfo(context.Background(), "tok")
		assert.ErrorIs(t, err, domain.ErrCommunication)
	})
}

func TestSessionTransport_Upload(t *testing.T) {
	var fake *fakeDropbox
	appendChunk := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fake.mu.Lock()
		fake.received.Write(body)
		fake.mu.Unlock()
		respond(http.StatusOK, "null")(w, r)
	}
	e, fake := newTestExporter(t, map[string]http.HandlerFunc{
		"/2/files/upload_session/start": func(w http.ResponseWriter, r *http.Request) {
			appendChunk(httptest.NewRecorder(), r)
			respond(http.StatusOK, `{"session_id":"sess-1"}`)(w, r)
		},
		"/2/files/upload_session/append_v2": appendChunk,
		"/2/files/upload_session/finish": func(w http.ResponseWriter, r *http.Request) {
			appendChunk(httptest.NewRecorder(), r)
			respond(http.StatusOK,
				`{"name":"shot (1).png","id":"id:abc","path_display":"/Screenshots/shot (1).png","size":9}`)(w, r)
		},
	})
	transport := e.Transport()
	ctx := context.Background()

	session := &domain.UploadSession{
		TotalSize: 9,
		Commit:    domain.NewUploadCommit("shot.png", "Screenshots"),
	}

	require.NoError(t, transport.Start(ctx, "tok", session, []byte("abc")))
	assert.Equal(t, "sess-1", session.ID)
	start := fake.lastCall()
	assert.False(t, gjson.Get(start.arg, "close").Bool())
	session.Offset = 3

	require.NoError(t, transport.Append(ctx, "tok", session, []byte("def")))
	appended := fake.lastCall()
	assert.Equal(t, "sess-1", gjson.Get(appended.arg, "cursor.session_id").String())
	assert.Equal(t, int64(3), gjson.Get(appended.arg, "cursor.offset").Int())
	session.Offset = 6

	result, err := transport.Finish(ctx, "tok", session, []byte("ghi"))
	require.NoError(t, err)
	finish := fake.lastCall()
	assert.Equal(t, int64(6), gjson.Get(finish.arg, "cursor.offset").Int())
	assert.Equal(t, "/Screenshots/shot.png", gjson.Get(finish.arg, "commit.path").String())
	assert.Equal(t, "add", gjson.Get(finish.arg, `commit.mode.\.tag`).String())
	assert.True(t, gjson.Get(finish.arg, "commit.autorename").Bool())
	assert.False(t, gjson.Get(finish.arg, "commit.mute").Bool())
	assert.Equal(t, "Bearer tok", finish.auth)

	assert.Equal(t, &domain.UploadResult{Path: "/Screenshots/shot (1).png", ID: "id:abc", Size: 9}, result)
	assert.Equal(t, "abcdefghi", fake.received.String())
}

func TestSessionTransport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		resumeIs bool
		detail   string
	}{
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"error_summary":"incorrect_offset/..","error":{".tag":"incorrect_offset","correct_offset":3}}`,
			detail: "incorrect_offset/..",
		},
		{
			name:     "server error",
			status:   http.StatusServiceUnavailable,
			body:     "upstream unavailable",
			resumeIs: true,
			detail:   "upstream unavailable",
		},
		{
			name:   "expired token",
			status: http.StatusUnauthorized,
			body:   `{"error_summary":"expired_access_token/"}`,
			detail: "expired_access_token/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExporter(t, map[string]http.HandlerFunc{
				"/2/files/upload_session/append_v2": respond(tt.status, tt.body),
			})
			session := &domain.UploadSession{ID: "sess-1", Offset: 3, TotalSize: 10}

			err := e.Transport().Append(context.Background(), "tok", session, []byte("x"))

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrUpload)
			assert.Equal(t, tt.resumeIs, errors.Is(err, domain.ErrResumeNotImplemented))
			var exportErr *domain.ExportError
			require.ErrorAs(t, err, &exportErr)
			assert.Equal(t, tt.detail, exportErr.Detail)
		})
	}

	t.Run("start without session id", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/files/upload_session/start": respond(http.StatusOK, `{}`),
		})
		err := e.Transport().Start(context.Background(), "tok", &domain.UploadSession{}, nil)
		assert.ErrorIs(t, err, domain.ErrUpload)
	})

	t.Run("unreachable host", func(t *testing.T) {
		e := New(Options{ContentURL: "http://127.0.0.1:1"})
		_, err := e.Transport().Finish(context.Background(), "tok", &domain.UploadSession{}, nil)
		assert.ErrorIs(t, err, domain.ErrUpload)
	})
}

func TestExporter_Share(t *testing.T) {
	uploaded := &domain.UploadResult{Path: "/Screenshots/shot.png", ID: "id:abc"}

	t.Run("new link", func(t *testing.T) {
		e, fake := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/sharing/create_shared_link_with_settings": respond(http.StatusOK,
				`{".tag":"file","url":"https://www.dropbox.com/s/xyz/shot.png?dl=0"}`),
		})

		url, err := e.Share(context.Background(), "tok", uploaded)
		require.NoError(t, err)
		assert.Equal(t, "https://www.dropbox.com/s/xyz/shot.png?dl=0", url)

		var arg map[string]any
		require.NoError(t, json.Unmarshal(fake.lastCall().body, &arg))
		assert.Equal(t, "/Screenshots/shot.png", arg["path"])
	})

	t.Run("existing link is reused", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/sharing/create_shared_link_with_settings": respond(http.StatusConflict,
				`{"error_summary":"shared_link_already_exists/metadata/..","error":{".tag":"shared_link_already_exists",`+
					`"shared_link_already_exists":{".tag":"metadata","metadata":{"url":"https://www.dropbox.com/s/old/shot.png?dl=0"}}}}`),
		})

		url, err := e.Share(context.Background(), "tok", uploaded)
		require.NoError(t, err)
		assert.Equal(t, "https://www.dropbox.com/s/old/shot.png?dl=0", url)
	})

	t.Run("other conflicts fail", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/sharing/create_shared_link_with_settings": respond(http.StatusConflict,
				`{"error_summary":"path/not_found/","error":{".tag":"path"}}`),
		})

		_, err := e.Share(context.Background(), "tok", uploaded)
		assert.ErrorIs(t, err, domain.ErrCommunication)
		assert.Contains(t, err.Error(), "path/not_found/")
	})

	t.Run("missing scope", func(t *testing.T) {
		e, _ := newTestExporter(t, map[string]http.HandlerFunc{
			"/2/sharing/create_shared_link_with_settings": respond(http.StatusUnauthorized,
				`{"error_summary":"missing_scope/","error":{".tag":"missing_scope","required_scope":"sharing.write"}}`),
		})

		_, err := e.Share(context.Background(), "tok", uploaded)
		assert.ErrorIs(t, err, domain.ErrCommunication)
	})
}

func TestHeaderSafeJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"path":"/a.png"}`, `{"path":"/a.png"}`},
		{`{"path":"/café.png"}`, `{"path":"/caf\u00e9.png"}`},
		{`{"path":"/😀.png"}`, `{"path":"/\ud83d\ude00.png"}`},
		{"{\"path\":\"/\x7f\"}", `{"path":"/\u007f"}`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := headerSafeJSON([]byte(tt.in))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, gjson.Get(tt.in, "path").String(), gjson.Get(got, "path").String())
		})
	}
}

func TestWebURL(t *testing.T) {
	assert.Equal(t, "https://www.dropbox.com/home", WebURL(""))
	assert.Equal(t, "https://www.dropbox.com/home/Screenshots/shot%20%281%29.png", WebURL("/Screenshots/shot (1).png"))
}
