package dropbox

import (
	"context"
	"errors"
	"path"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Upload session routes on the content host.
const (
	routeSessionStart  = "files/upload_session/start"
	routeSessionAppend = "files/upload_session/append_v2"
	routeSessionFinish = "files/upload_session/finish"
)

// Ensure sessionTransport implements the transport port.
var _ driven.UploadSessionTransport = (*sessionTransport)(nil)

// sessionTransport carries chunks through a Dropbox upload session.
type sessionTransport struct {
	client *client
}

// Start opens a session with the first chunk and records the session id.
func (t *sessionTransport) Start(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) error {
	const op = "upload session start"

	resp, err := t.client.upload(ctx, token, routeSessionStart, files.NewUploadSessionStartArg(), chunk)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	if !resp.ok() {
		return apiError(domain.ErrUpload, op, resp)
	}

	id := gjson.GetBytes(resp.body, "session_id").String()
	if id == "" {
		return domain.NewError(domain.ErrUpload, op, errors.New("response has no session_id")).
			WithDetail(string(resp.body))
	}
	session.ID = id
	return nil
}

// Append sends a chunk at the session offset.
func (t *sessionTransport) Append(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) error {
	const op = "upload session append"

	arg := files.NewUploadSessionAppendArg(cursor(session))
	resp, err := t.client.upload(ctx, token, routeSessionAppend, arg, chunk)
	if err != nil {
		return domain.NewError(domain.ErrUpload, op, err)
	}
	if !resp.ok() {
		return apiError(domain.ErrUpload, op, resp)
	}
	return nil
}

// Finish sends the last chunk and commits the file in add mode.
func (t *sessionTransport) Finish(ctx context.Context, token string, session *domain.UploadSession, chunk []byte) (*domain.UploadResult, error) {
	const op = "upload session finish"

	arg := files.NewUploadSessionFinishArg(cursor(session), commitInfo(session.Commit))
	resp, err := t.client.upload(ctx, token, routeSessionFinish, arg, chunk)
	if err != nil {
		return nil, domain.NewError(domain.ErrUpload, op, err)
	}
	if !resp.ok() {
		return nil, apiError(domain.ErrUpload, op, resp)
	}

	meta := gjson.ParseBytes(resp.body)
	result := &domain.UploadResult{
		Path: meta.Get("path_display").String(),
		ID:   meta.Get("id").String(),
		Size: meta.Get("size").Int(),
	}
	if result.Path == "" {
		return nil, domain.NewError(domain.ErrUpload, op, errors.New("response has no path_display")).
			WithDetail(string(resp.body))
	}
	return result, nil
}

func cursor(session *domain.UploadSession) *files.UploadSessionCursor {
	return files.NewUploadSessionCursor(session.ID, uint64(session.Offset))
}

// commitInfo maps a commit onto Dropbox's. The destination is the commit
// path joined under the folder, rooted at "/".
func commitInfo(commit domain.UploadCommit) *files.CommitInfo {
	info := files.NewCommitInfo(path.Join("/", commit.Folder, commit.Path))
	info.Autorename = commit.Autorename
	info.Mute = commit.Mute
	return info
}
