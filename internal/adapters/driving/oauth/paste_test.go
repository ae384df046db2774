package oauth

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

func pasted(t *testing.T, input string, required []string) domain.CallbackResult {
	t.Helper()
	var out bytes.Buffer
	listener := NewPasteListener(8747, "state-1", required, strings.NewReader(input), &out)
	require.NoError(t, listener.Start())
	defer listener.Stop(context.Background())

	select {
	case <-listener.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pasted input")
	}
	assert.Contains(t, out.String(), "paste")

	result, ok := listener.Result()
	require.True(t, ok)
	return result
}

func TestPasteListener(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		required []string
		code     string
		scopes   []string
		errIs    error
	}{
		{
			name:  "full redirect URL",
			input: "http://localhost:8747/?code=abc&state=state-1\n",
			code:  "abc",
		},
		{
			name:   "URL with scopes",
			input:  "http://localhost:8747/?code=abc&state=state-1&scope=a%20b\n",
			code:   "abc",
			scopes: []string{"a", "b"},
		},
		{
			name:  "query only",
			input: "?code=xyz&state=state-1\n",
			code:  "xyz",
		},
		{
			name:  "bare code after blank lines",
			input: "\n\n  bare-code  \n",
			code:  "bare-code",
		},
		{
			name:  "wrong state",
			input: "http://localhost:8747/?code=abc&state=forged\n",
			errIs: ErrStateMismatch,
		},
		{
			name:     "missing required scope",
			input:    "http://localhost:8747/?code=abc&state=state-1&scope=a\n",
			required: []string{"b"},
			errIs:    domain.ErrMissingScopes,
		},
		{
			name:  "provider error",
			input: "http://localhost:8747/?error=access_denied&state=state-1\n",
			errIs: &ProviderError{},
		},
		{
			name:  "closed input",
			input: "",
			errIs: ErrNoInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pasted(t, tt.input, tt.required)

			if tt.errIs != nil {
				if _, ok := tt.errIs.(*ProviderError); ok {
					var providerErr *ProviderError
					assert.ErrorAs(t, result.Err, &providerErr)
				} else {
					assert.ErrorIs(t, result.Err, tt.errIs)
				}
				assert.Empty(t, result.Code)
				return
			}
			require.NoError(t, result.Err)
			assert.Equal(t, tt.code, result.Code)
			assert.Equal(t, tt.scopes, result.Scopes)
		})
	}
}

func TestPasteListener_RedirectURIAndFactory(t *testing.T) {
	listener := NewPasteListenerFactory(strings.NewReader(""), io.Discard)(9001, "s", nil)
	assert.Equal(t, "http://localhost:9001", listener.RedirectURI())
	_, ok := listener.Result()
	assert.False(t, ok)
}

func TestPasteListener_SharedInput(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	factory := NewPasteListenerFactory(r, io.Discard)

	abandoned := factory(8747, "s1", nil)
	require.NoError(t, abandoned.Start())
	require.NoError(t, abandoned.Stop(context.Background()))

	next := factory(8747, "s2", nil)
	require.NoError(t, next.Start())
	defer next.Stop(context.Background())
	go func() { _, _ = io.WriteString(w, "code-2\n") }()

	select {
	case <-next.Done():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pasted input")
	}
	result, ok := next.Result()
	require.True(t, ok)
	assert.Equal(t, "code-2", result.Code)

	_, ok = abandoned.Result()
	assert.False(t, ok)
}

func TestPasteListener_InputClosedBeforeAttempt(t *testing.T) {
	factory := NewPasteListenerFactory(strings.NewReader(""), io.Discard)

	first := factory(8747, "s1", nil)
	require.NoError(t, first.Start())
	<-first.Done()

	second := factory(8747, "s2", nil)
	require.NoError(t, second.Start())

	select {
	case <-second.Done():
	case <-time.After(time.Second):
		t.Fatal("second attempt did not see the closed input")
	}
	result, ok := second.Result()
	require.True(t, ok)
	assert.ErrorIs(t, result.Err, ErrNoInput)
}
