package googledrive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// statusResumeIncomplete is the answer to a chunk that did not complete
// the upload.
const statusResumeIncomplete = 308

// resultFields are requested on the completing answer.
const resultFields = "id,name,size,webViewLink"

// Ensure resumableTransport implements the transport port.
var _ driven.UploadSessionTransport = (*resumableTransport)(nil)

// resumableTransport drives a Drive resumable upload. A chunk that covers
// the last byte completes the upload immediately, so its result is kept
// until Finish asks for it.
type resumableTransport struct {
	httpClient *http.Client
	uploadURL  string

	mu        sync.Mutex
	completed map[string]*domain.UploadResult
}

func newResumableTransport(httpClient *http.Client, uploadURL string) *resumableTransport {
	return &resumableTransport{
		httpClient: httpClient,
		uploadURL:  uploadURL,
		completed:  make(map[string]*domain.UploadResult),
	}
}

// Start initiates the session and sends the first chunk.
func (t *resumableTransport) Start(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) error {
	const op = "resumable upload start"

	meta := &drive.File{Name: session.Commit.Path}
	if session.Commit.Folder != "" {
		meta.Parents = []string{session.Commit.Folder}
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}

	url := t.uploadURL + "?uploadType=resumable&fields=" + resultFields
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", contentType(session.Commit.Path))
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(session.TotalSize, 10))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(domain.ErrUpload, op, err)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return domain.NewError(domain.ErrUpload, op, errors.New("response has no session URI"))
	}
	session.ID = location
	logger.Debug("googledrive: session opened for %s", session.Commit.Path)

	return t.put(ctx, op, token, session, chunk)
}

// Append sends a chunk at the session offset.
func (t *resumableTransport) Append(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) error {
	return t.put(ctx, "resumable upload append", token, session, chunk)
}

// Finish sends the last chunk and returns the committed file. When an
// earlier chunk already completed the upload its result is returned.
func (t *resumableTransport) Finish(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) (*domain.UploadResult, error) {
	const op = "resumable upload finish"

	if len(chunk) == 0 {
		if result := t.takeResult(session.ID); result != nil {
			return result, nil
		}
	}
	if err := t.put(ctx, op, token, session, chunk); err != nil {
		return nil, err
	}
	result := t.takeResult(session.ID)
	if result == nil {
		return nil, domain.NewError(domain.ErrUpload, op,
			fmt.Errorf("upload incomplete after byte %d of %d", session.Offset+int64(len(chunk)), session.TotalSize))
	}
	return result, nil
}

// put sends one chunk. An empty chunk queries the session state, which
// commits a zero-byte file.
func (t *resumableTransport) put(ctx context.Context, op, token string, session *domain.UploadSession, chunk []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.ID, bytes.NewReader(chunk))
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Range", contentRange(session.Offset, len(chunk), session.TotalSize))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	defer resp.Body.Close()

	end := session.Offset + int64(len(chunk))
	if resp.StatusCode == statusResumeIncomplete {
		if acked := acknowledged(resp.Header.Get("Range")); acked != end {
			return domain.NewError(domain.ErrUpload, op,
				fmt.Errorf("server acknowledged %d bytes, sent %d", acked, end))
		}
		return nil
	}
	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(domain.ErrUpload, op, err)
	}

	result, err := decodeResult(resp.Body)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	t.mu.Lock()
	t.completed[session.ID] = result
	t.mu.Unlock()
	return nil
}

func (t *resumableTransport) takeResult(id string) *domain.UploadResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := t.completed[id]
	delete(t.completed, id)
	return result
}

// decodeResult reads the file resource of a completed upload. The web view
// link is the location when Drive returns one.
func decodeResult(r io.Reader) (*domain.UploadResult, error) {
	var f drive.File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode file resource: %w", err)
	}
	if f.Id == "" {
		return nil, errors.New("file resource has no id")
	}
	path := f.WebViewLink
	if path == "" {
		path = f.Name
	}
	return &domain.UploadResult{Path: path, ID: f.Id, Size: f.Size}, nil
}

// contentRange formats the Content-Range of a chunk.
func contentRange(offset int64, n int, total int64) string {
	if n == 0 {
		return fmt.Sprintf("bytes */%d", total)
	}
	return fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(n)-1, total)
}

// acknowledged parses a "bytes=0-N" Range header into N+1. A missing header
// means nothing was received.
func acknowledged(header string) int64 {
	_, last, ok := strings.Cut(strings.TrimPrefix(header, "bytes="), "-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0
	}
	return n + 1
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
