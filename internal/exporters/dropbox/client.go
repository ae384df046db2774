package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"

	"github.com/custodia-labs/capshare/internal/logger"
)

// maxResponseSize caps how much of an API response is read.
const maxResponseSize = 4 << 20

// client issues Dropbox RPC and content-upload requests.
type client struct {
	httpClient *http.Client
	apiURL     string
	contentURL string
}

// response is a fully read API answer.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// rpc posts a JSON argument to an API host route. A nil arg sends no body,
// which routes without arguments require.
func (c *client) rpc(ctx context.Context, token, route string, arg any) (*response, error) {
	var body io.Reader
	if arg != nil {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encode %s argument: %w", route, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/2/"+route, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", route, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if arg != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, route)
}

// upload posts chunk bytes to a content host route with arg in the
// Dropbox-API-Arg header.
func (c *client) upload(ctx context.Context, token, route string, arg any, chunk []byte) (*response, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("encode %s argument: %w", route, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/2/"+route, bytes.NewReader(chunk))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", route, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", headerSafeJSON(b))
	return c.do(req, route)
}

func (c *client) do(req *http.Request, route string) (*response, error) {
	logger.Debug("dropbox: POST %s (%d bytes)", route, req.ContentLength)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", route, err)
	}
	logger.Debug("dropbox: %s -> %d", route, resp.StatusCode)
	return &response{status: resp.StatusCode, body: body}, nil
}

// headerSafeJSON escapes every non-ASCII character of an encoded JSON
// value as \uXXXX, using surrogate pairs outside the BMP. HTTP header
// values must be ASCII.
func headerSafeJSON(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, r := range string(b) {
		switch {
		case r < 0x7f:
			sb.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String()
}
